package zim

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// clusterOffsetWidth is the width, in bytes, of one entry in a cluster's
// blob offset table.
const clusterOffsetWidth = 4

// buildCluster packages blobs into the on-disk cluster layout: a one-byte
// compression tag followed by the compressed concatenation of the blob
// offset table and the blob bytes themselves. The table is part of the
// compressed stream (not a separate uncompressed prefix) so that on read,
// decompressing the whole payload yields a single buffer whose own first
// four bytes bootstrap the blob count — see decompressCluster.
func buildCluster(blobs [][]byte, tag Compression) ([]byte, error) {
	n := len(blobs)
	tableBytes := uint32(clusterOffsetWidth * (n + 1))

	offsets := make([]uint32, n+1)
	cumulative := tableBytes
	for i, b := range blobs {
		offsets[i] = cumulative
		cumulative += uint32(len(b))
	}
	offsets[n] = cumulative

	var uncompressed bytes.Buffer
	offsetBuf := make([]byte, clusterOffsetWidth)
	for _, off := range offsets {
		binary.LittleEndian.PutUint32(offsetBuf, off)
		uncompressed.Write(offsetBuf)
	}
	for _, b := range blobs {
		uncompressed.Write(b)
	}

	compressed, err := Compress(uncompressed.Bytes(), tag)
	if err != nil {
		return nil, fmt.Errorf("zim: compress cluster: %w", err)
	}

	var out bytes.Buffer
	out.WriteByte(byte(tag))
	out.Write(compressed)
	return out.Bytes(), nil
}

// decompressCluster strips the leading tag byte from a cluster's raw on-disk
// bytes and decompresses the remainder, yielding the single buffer whose
// first four bytes are the self-describing bootstrap offset (spec §4.2/§9).
func decompressCluster(raw []byte) ([]byte, error) {
	if len(raw) < 1 {
		return nil, fmt.Errorf("%w: empty cluster", ErrMalformedCluster)
	}
	tag := Compression(raw[0])
	return Decompress(raw[1:], tag)
}

// clusterBlobCount returns n = offset[0]/4 - 1, the bootstrap trick from
// spec §4.2/§9: offset[0] is read as a u32 and treated as the byte length of
// the offset table, not as a literal zero-valued first offset. The
// zero-terminator heuristic flagged in spec §9 as a likely source bug is
// deliberately never implemented here.
func clusterBlobCount(decompressed []byte) (uint32, error) {
	if len(decompressed) < clusterOffsetWidth {
		return 0, fmt.Errorf("%w: payload too short for bootstrap offset", ErrMalformedCluster)
	}
	firstOffset := binary.LittleEndian.Uint32(decompressed[0:clusterOffsetWidth])
	if firstOffset == 0 || firstOffset%clusterOffsetWidth != 0 {
		return 0, fmt.Errorf("%w: bad bootstrap offset %d", ErrMalformedCluster, firstOffset)
	}
	return firstOffset/clusterOffsetWidth - 1, nil
}

// extractBlob slices blob k out of an already-decompressed cluster buffer.
// Offsets are absolute indices into decompressed (table included), per the
// bootstrap scheme: offsets strictly non-decreasing, offset[n] == len(decompressed).
func extractBlob(decompressed []byte, blob uint32) ([]byte, error) {
	n, err := clusterBlobCount(decompressed)
	if err != nil {
		return nil, err
	}
	if blob >= n {
		return nil, fmt.Errorf("%w: blob %d out of range (cluster has %d)", ErrMalformedCluster, blob, n)
	}

	readOffset := func(i uint32) uint32 {
		return binary.LittleEndian.Uint32(decompressed[i*clusterOffsetWidth : i*clusterOffsetWidth+clusterOffsetWidth])
	}

	start := readOffset(blob)
	end := readOffset(blob + 1)
	if blob > 0 && start < readOffset(blob-1) {
		return nil, fmt.Errorf("%w: non-monotonic offsets", ErrMalformedCluster)
	}
	if end > uint32(len(decompressed)) || start > end {
		return nil, fmt.Errorf("%w: blob offset out of range", ErrMalformedCluster)
	}

	out := make([]byte, end-start)
	copy(out, decompressed[start:end])
	return out, nil
}

// readClusterBlob resolves blob k directly from a cluster's raw on-disk
// bytes in one step (decompress + extract), for callers that do not
// maintain a decompressed-cluster cache.
func readClusterBlob(raw []byte, blob uint32) ([]byte, error) {
	decompressed, err := decompressCluster(raw)
	if err != nil {
		return nil, err
	}
	return extractBlob(decompressed, blob)
}
