package zim

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		MajorVersion:    SupportedMajorVersion,
		MinorVersion:    1,
		UUID:            0x0102030405060708,
		EntryCount:      10,
		ArticleCount:    8,
		ClusterCount:    3,
		RedirectCount:   2,
		MimeListPos:     80,
		TitleIndexPos:   0,
		ClusterPtrPos:   900,
		URLPtrPos:       500,
		MainPageIndex:   0,
		LayoutPageIndex: 0,
		ChecksumPos:     1200,
	}

	var buf bytes.Buffer
	require.NoError(t, writeHeader(&buf, h))
	require.Equal(t, HeaderSize, buf.Len())

	got, err := readHeader(&buf)
	require.NoError(t, err)
	h.Magic = MagicCanonical
	require.Equal(t, h, got)
}

func TestHeaderAcceptsLegacyMagic(t *testing.T) {
	h := Header{MajorVersion: SupportedMajorVersion}
	var buf bytes.Buffer
	require.NoError(t, writeHeader(&buf, h))

	raw := buf.Bytes()
	raw[0], raw[1], raw[2], raw[3] = 0x5A, 0x5A, 0x49, 0x4D // MagicLegacy, little-endian

	got, err := readHeader(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, MagicLegacy, got.Magic)
}

func TestHeaderRejectsBadMagic(t *testing.T) {
	h := Header{MajorVersion: SupportedMajorVersion}
	var buf bytes.Buffer
	require.NoError(t, writeHeader(&buf, h))

	raw := buf.Bytes()
	raw[0] = 0xFF

	_, err := readHeader(bytes.NewReader(raw))
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestHeaderRejectsUnsupportedVersion(t *testing.T) {
	h := Header{MajorVersion: SupportedMajorVersion + 1}
	var buf bytes.Buffer
	require.NoError(t, writeHeader(&buf, h))

	_, err := readHeader(&buf)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestHeaderTruncatedRead(t *testing.T) {
	h := Header{MajorVersion: SupportedMajorVersion}
	var buf bytes.Buffer
	require.NoError(t, writeHeader(&buf, h))

	short := buf.Bytes()[:10]
	_, err := readHeader(bytes.NewReader(short))
	require.ErrorIs(t, err, ErrTruncated)
}
