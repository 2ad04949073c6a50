package zim

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz/lzma"
)

// Compression identifies a cluster's compression algorithm by its one-byte
// on-disk tag.
type Compression uint8

const (
	CompressionDefault Compression = 0
	CompressionNone     Compression = 1
	CompressionDeflate  Compression = 2
	CompressionBzip2    Compression = 3
	CompressionLZMA     Compression = 4
	CompressionZstd     Compression = 5
)

func (c Compression) String() string {
	switch c {
	case CompressionDefault:
		return "default"
	case CompressionNone:
		return "none"
	case CompressionDeflate:
		return "deflate"
	case CompressionBzip2:
		return "bzip2"
	case CompressionLZMA:
		return "lzma"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// zstdEncoderPool/zstdDecoderPool amortize the setup cost of klauspost/compress's
// stateful codecs behind the pure-function Compress/Decompress boundary the
// spec requires (§4.1: "pure function — no state between calls").
var zstdEncoderPool = newSyncPool(func() (*zstd.Encoder, error) {
	return zstd.NewWriter(nil)
})

var zstdDecoderPool = newSyncPool(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
})

// Compress applies the algorithm identified by tag to data, returning the
// compressed byte string that would be stored (without the cluster's
// leading tag byte, which buildCluster prepends).
func Compress(data []byte, tag Compression) ([]byte, error) {
	switch tag {
	case CompressionDefault, CompressionNone:
		return data, nil
	case CompressionDeflate:
		var buf bytes.Buffer
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("zim: deflate writer: %w", err)
		}
		if _, err := fw.Write(data); err != nil {
			return nil, fmt.Errorf("zim: deflate write: %w", err)
		}
		if err := fw.Close(); err != nil {
			return nil, fmt.Errorf("zim: deflate close: %w", err)
		}
		return buf.Bytes(), nil
	case CompressionBzip2:
		var buf bytes.Buffer
		bw, err := bzip2.NewWriter(&buf, nil)
		if err != nil {
			return nil, fmt.Errorf("zim: bzip2 writer: %w", err)
		}
		if _, err := bw.Write(data); err != nil {
			return nil, fmt.Errorf("zim: bzip2 write: %w", err)
		}
		if err := bw.Close(); err != nil {
			return nil, fmt.Errorf("zim: bzip2 close: %w", err)
		}
		return buf.Bytes(), nil
	case CompressionLZMA:
		var buf bytes.Buffer
		lw, err := lzma.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("zim: lzma writer: %w", err)
		}
		if _, err := lw.Write(data); err != nil {
			return nil, fmt.Errorf("zim: lzma write: %w", err)
		}
		if err := lw.Close(); err != nil {
			return nil, fmt.Errorf("zim: lzma close: %w", err)
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, put, err := zstdEncoderPool.get()
		if err != nil {
			return nil, fmt.Errorf("zim: zstd encoder: %w", err)
		}
		defer put()
		var buf bytes.Buffer
		enc.Reset(&buf)
		if _, err := enc.Write(data); err != nil {
			return nil, fmt.Errorf("zim: zstd write: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("zim: zstd close: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnsupportedCompression, tag)
	}
}

// Decompress reverses Compress, reading the compressed payload to
// completion (the cluster format has no length prefix, only an EOF or a
// boundary determined externally by the next cluster pointer).
func Decompress(data []byte, tag Compression) ([]byte, error) {
	switch tag {
	case CompressionDefault, CompressionNone:
		return data, nil
	case CompressionDeflate:
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		out, err := io.ReadAll(fr)
		if err != nil {
			return nil, fmt.Errorf("%w: deflate: %v", ErrCorruptCompressedStream, err)
		}
		return out, nil
	case CompressionBzip2:
		br, err := bzip2.NewReader(bytes.NewReader(data), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: bzip2: %v", ErrCorruptCompressedStream, err)
		}
		defer br.Close()
		out, err := io.ReadAll(br)
		if err != nil {
			return nil, fmt.Errorf("%w: bzip2: %v", ErrCorruptCompressedStream, err)
		}
		return out, nil
	case CompressionLZMA:
		lr, err := lzma.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: lzma: %v", ErrCorruptCompressedStream, err)
		}
		out, err := io.ReadAll(lr)
		if err != nil {
			return nil, fmt.Errorf("%w: lzma: %v", ErrCorruptCompressedStream, err)
		}
		return out, nil
	case CompressionZstd:
		dec, put, err := zstdDecoderPool.get()
		if err != nil {
			return nil, fmt.Errorf("zim: zstd decoder: %w", err)
		}
		defer put()
		if err := dec.Reset(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorruptCompressedStream, err)
		}
		out, err := io.ReadAll(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorruptCompressedStream, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnsupportedCompression, tag)
	}
}
