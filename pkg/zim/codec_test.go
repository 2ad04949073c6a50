package zim_test

import (
	"bytes"
	"testing"

	"github.com/go-zim/zim/pkg/zim"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("abcd"), 10000)

	for _, tag := range []zim.Compression{
		zim.CompressionNone,
		zim.CompressionDeflate,
		zim.CompressionBzip2,
		zim.CompressionLZMA,
		zim.CompressionZstd,
	} {
		t.Run(tag.String(), func(t *testing.T) {
			compressed, err := zim.Compress(payload, tag)
			require.NoError(t, err)

			if tag != zim.CompressionNone {
				require.Less(t, len(compressed), len(payload), "compressed payload should be strictly shorter")
			}

			decompressed, err := zim.Decompress(compressed, tag)
			require.NoError(t, err)
			require.Equal(t, payload, decompressed)
		})
	}
}

func TestCodecUnsupportedTag(t *testing.T) {
	_, err := zim.Compress([]byte("x"), zim.Compression(9))
	require.ErrorIs(t, err, zim.ErrUnsupportedCompression)

	_, err = zim.Decompress([]byte("x"), zim.Compression(9))
	require.ErrorIs(t, err, zim.ErrUnsupportedCompression)
}

func TestCodecCorruptStream(t *testing.T) {
	_, err := zim.Decompress([]byte{0x00, 0x01, 0x02}, zim.CompressionDeflate)
	require.Error(t, err)
}
