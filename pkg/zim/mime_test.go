package zim

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMimeTableRoundTrip(t *testing.T) {
	types := []string{"text/html", "image/png", "text/css"}

	var buf bytes.Buffer
	require.NoError(t, writeMimeTypes(&buf, types))

	got, err := readMimeTypes(&buf)
	require.NoError(t, err)
	require.Equal(t, types, got)
}

func TestMimeTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMimeTypes(&buf, nil))

	got, err := readMimeTypes(&buf)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestMimeTableInternDedups(t *testing.T) {
	mt := newMimeTable()

	i1, err := mt.intern("text/html")
	require.NoError(t, err)
	i2, err := mt.intern("image/png")
	require.NoError(t, err)
	i3, err := mt.intern("text/html")
	require.NoError(t, err)

	require.Equal(t, i1, i3)
	require.NotEqual(t, i1, i2)
	require.Equal(t, []string{"text/html", "image/png"}, mt.strings())
}
