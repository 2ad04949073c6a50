package zim_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-zim/zim/pkg/zim"
	"github.com/stretchr/testify/require"
)

func tempArchivePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "archive.zim")
}

func TestMinimalArchiveRoundTrip(t *testing.T) {
	path := tempArchivePath(t)

	w, err := zim.Create(path)
	require.NoError(t, err)
	idx, err := w.AddArticle(zim.NamespaceArticle, "Main_Page", "Main Page", []byte("<html>hello</html>"), "text/html")
	require.NoError(t, err)
	require.NoError(t, w.SetMainPage(idx))
	require.NoError(t, w.Finalize())
	require.NoError(t, w.Close())

	r, err := zim.Open(path)
	require.NoError(t, err)
	defer r.Close()

	h, err := r.Header()
	require.NoError(t, err)
	require.Equal(t, uint32(1), h.EntryCount)
	require.Equal(t, uint32(1), h.ArticleCount)
	require.Equal(t, uint32(0), h.RedirectCount)

	main, ok, err := r.GetMainPage()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Main_Page", main.URL)

	content, err := r.GetArticleContent(main)
	require.NoError(t, err)
	require.Equal(t, []byte("<html>hello</html>"), content)
}

func TestRedirectResolution(t *testing.T) {
	path := tempArchivePath(t)

	w, err := zim.Create(path)
	require.NoError(t, err)
	targetIdx, err := w.AddArticle(zim.NamespaceArticle, "New_Name", "New Name", []byte("content body"), "text/html")
	require.NoError(t, err)
	_, err = w.AddRedirect(zim.NamespaceArticle, "Old_Name", "Old Name", targetIdx)
	require.NoError(t, err)
	require.NoError(t, w.Finalize())
	require.NoError(t, w.Close())

	r, err := zim.Open(path)
	require.NoError(t, err)
	defer r.Close()

	entry, err := r.GetEntryByPath(zim.NamespaceArticle, "Old_Name")
	require.NoError(t, err)
	require.True(t, entry.IsRedirect)

	content, err := r.GetArticleContent(entry)
	require.NoError(t, err)
	require.Equal(t, []byte("content body"), content)
}

func TestMultipleMimeTypesDeduplicate(t *testing.T) {
	path := tempArchivePath(t)

	w, err := zim.Create(path)
	require.NoError(t, err)
	_, err = w.AddArticle(zim.NamespaceArticle, "a.html", "A", []byte("aaa"), "text/html")
	require.NoError(t, err)
	_, err = w.AddArticle(zim.NamespaceImage, "b.png", "B", []byte("bbb"), "image/png")
	require.NoError(t, err)
	_, err = w.AddArticle(zim.NamespaceArticle, "c.html", "C", []byte("ccc"), "text/html")
	require.NoError(t, err)
	require.NoError(t, w.Finalize())
	require.NoError(t, w.Close())

	r, err := zim.Open(path)
	require.NoError(t, err)
	defer r.Close()

	mimes, err := r.MimeTypes()
	require.NoError(t, err)
	require.Equal(t, []string{"text/html", "image/png"}, mimes)
}

func TestBinaryContentRoundTrip(t *testing.T) {
	path := tempArchivePath(t)

	binary := make([]byte, 4096)
	for i := range binary {
		binary[i] = byte(i * 7 % 256)
	}

	w, err := zim.Create(path)
	require.NoError(t, err)
	_, err = w.AddArticle(zim.NamespaceImage, "pic.bin", "pic", binary, "application/octet-stream")
	require.NoError(t, err)
	require.NoError(t, w.Finalize())
	require.NoError(t, w.Close())

	r, err := zim.Open(path)
	require.NoError(t, err)
	defer r.Close()

	content, _, err := r.GetEntryContent(zim.NamespaceImage, "pic.bin")
	require.NoError(t, err)
	require.Equal(t, binary, content)
}

func TestInvalidMagicRejectedWithoutFDLeak(t *testing.T) {
	path := tempArchivePath(t)
	require.NoError(t, os.WriteFile(path, make([]byte, zim.HeaderSize), 0o644))

	_, err := zim.Open(path)
	require.ErrorIs(t, err, zim.ErrInvalidMagic)

	// A failed Open must not leak the file descriptor: the file should be
	// removable immediately on platforms (like Windows) that lock open files.
	require.NoError(t, os.Remove(path))
}

func TestEntryLookupMissing(t *testing.T) {
	path := tempArchivePath(t)

	w, err := zim.Create(path)
	require.NoError(t, err)
	_, err = w.AddArticle(zim.NamespaceArticle, "a.html", "A", []byte("aaa"), "text/html")
	require.NoError(t, err)
	require.NoError(t, w.Finalize())
	require.NoError(t, w.Close())

	r, err := zim.Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.GetEntryByPath(zim.NamespaceArticle, "missing.html")
	require.ErrorIs(t, err, zim.ErrNotFound)
}

func TestWriterRejectsOutOfRangeRedirect(t *testing.T) {
	path := tempArchivePath(t)

	w, err := zim.Create(path)
	require.NoError(t, err)
	_, err = w.AddRedirect(zim.NamespaceArticle, "dangling", "Dangling", 99)
	require.NoError(t, err)
	err = w.Finalize()
	require.Error(t, err)
}

func TestWriterCloseWithoutFinalize(t *testing.T) {
	path := tempArchivePath(t)

	w, err := zim.Create(path)
	require.NoError(t, err)
	_, err = w.AddArticle(zim.NamespaceArticle, "a.html", "A", []byte("aaa"), "text/html")
	require.NoError(t, err)

	err = w.Close()
	require.ErrorIs(t, err, zim.ErrNotFinalized)
}

func TestReaderOperationsRequireOpen(t *testing.T) {
	path := tempArchivePath(t)
	w, err := zim.Create(path)
	require.NoError(t, err)
	_, err = w.AddArticle(zim.NamespaceArticle, "a.html", "A", []byte("aaa"), "text/html")
	require.NoError(t, err)
	require.NoError(t, w.Finalize())
	require.NoError(t, w.Close())

	r, err := zim.Open(path)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Header()
	require.ErrorIs(t, err, zim.ErrNotOpen)

	// Close is idempotent.
	require.NoError(t, r.Close())
}
