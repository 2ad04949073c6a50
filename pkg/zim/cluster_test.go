package zim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClusterBuildAndReadSingleBlob(t *testing.T) {
	raw, err := buildCluster([][]byte{[]byte("hello world")}, CompressionNone)
	require.NoError(t, err)

	got, err := readClusterBlob(raw, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), got)
}

func TestClusterBuildAndReadMultipleBlobs(t *testing.T) {
	blobs := [][]byte{
		[]byte("first blob"),
		[]byte(""),
		[]byte("third blob, a bit longer than the others"),
	}

	raw, err := buildCluster(blobs, CompressionDeflate)
	require.NoError(t, err)

	for i, want := range blobs {
		got, err := readClusterBlob(raw, uint32(i))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestClusterBlobOutOfRange(t *testing.T) {
	raw, err := buildCluster([][]byte{[]byte("x")}, CompressionNone)
	require.NoError(t, err)

	_, err = readClusterBlob(raw, 5)
	require.ErrorIs(t, err, ErrMalformedCluster)
}

func TestClusterBootstrapOffsetRejectsZero(t *testing.T) {
	// A four-byte payload whose first offset is zero must be rejected; this
	// is the exact heuristic spec §9 warns against mistaking for a valid
	// terminator.
	_, err := clusterBlobCount([]byte{0, 0, 0, 0})
	require.ErrorIs(t, err, ErrMalformedCluster)
}

func TestClusterOffsetTableByteLengthMatchesBootstrap(t *testing.T) {
	blobs := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}
	raw, err := buildCluster(blobs, CompressionNone)
	require.NoError(t, err)

	decompressed, err := decompressCluster(raw)
	require.NoError(t, err)

	n, err := clusterBlobCount(decompressed)
	require.NoError(t, err)
	require.Equal(t, uint32(len(blobs)), n)
}
