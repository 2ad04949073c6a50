package zim

import (
	"bufio"
	"fmt"
	"io"
)

// readMimeTypes decodes the MIME table starting at the reader's current
// position: an ordered sequence of NUL-terminated UTF-8 strings, itself
// terminated by an empty string (two consecutive NULs).
func readMimeTypes(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	var mimeTypes []string
	for {
		s, err := readNulString(br)
		if err != nil {
			return nil, fmt.Errorf("zim: read mime table: %w", err)
		}
		if s == "" {
			break
		}
		mimeTypes = append(mimeTypes, s)
	}
	return mimeTypes, nil
}

func writeMimeTypes(w io.Writer, mimeTypes []string) error {
	for _, m := range mimeTypes {
		if err := writeNulString(w, m); err != nil {
			return fmt.Errorf("zim: write mime table: %w", err)
		}
	}
	// terminating empty string
	if err := writeNulString(w, ""); err != nil {
		return fmt.Errorf("zim: write mime table terminator: %w", err)
	}
	return nil
}

// mimeTable deduplicates MIME strings by equality, preserving first-seen
// order, and hands out the u32 index writers embed in content entries.
type mimeTable struct {
	index map[string]uint32
	order []string
}

func newMimeTable() *mimeTable {
	return &mimeTable{index: make(map[string]uint32)}
}

func (t *mimeTable) intern(mime string) (uint32, error) {
	if idx, ok := t.index[mime]; ok {
		return idx, nil
	}
	if uint64(len(t.order)) >= uint64(RedirectSentinel) {
		return 0, ErrMimeTypeOverflow
	}
	idx := uint32(len(t.order))
	t.index[mime] = idx
	t.order = append(t.order, mime)
	return idx, nil
}

func (t *mimeTable) strings() []string {
	return t.order
}

func readNulString(r *bufio.Reader) (string, error) {
	b, err := r.ReadBytes(0)
	if err != nil {
		if err == io.EOF && len(b) == 0 {
			return "", fmt.Errorf("%w: unterminated string", ErrTruncated)
		}
		return "", joinTruncated(err)
	}
	return string(b[:len(b)-1]), nil
}

func writeNulString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	_, err := w.Write([]byte{0})
	return err
}
