package zim

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
)

type writerState int

const (
	stateInitial writerState = iota
	stateCreated
	stateFinalized
	stateClosed
)

// pendingEntry is the in-memory accumulation the writer builds before
// finalize: a two-pass design (accumulate, then emit sequentially) grounded
// on dpeckett-qcow2's writeHeader (placeholder header, rewritten once table
// offsets are known) and KarpelesLab-squashfs's Writer (in-memory tree,
// single Finalize()).
type pendingEntry struct {
	namespace  byte
	url        string
	title      string
	isRedirect bool
	mimeIndex  uint32
	cluster    uint32
	blob       uint32
	target     uint32 // redirect only; resolved/validated at finalize
}

// Writer is the public ZIM archive writer façade. It follows an
// Initial → Created → Finalized → Closed state machine (spec §4.5): add_*
// calls require Created, finalize requires Created and transitions to
// Finalized, close is valid from any state.
type Writer struct {
	state  writerState
	file   *os.File
	path   string
	mimes  *mimeTable
	pend   []pendingEntry
	blobs  [][]byte // one blob per content entry, 1:1 with add_article calls
	mainPg uint32
}

// Create opens path for writing and reserves the fixed header region.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("zim: create %s: %w", path, err)
	}

	// Reserve the header bytes now; finalize seeks back and overwrites them
	// with real values once every table offset is known.
	placeholder := make([]byte, HeaderSize)
	if _, err := f.Write(placeholder); err != nil {
		f.Close()
		return nil, fmt.Errorf("zim: write placeholder header: %w", err)
	}

	w := &Writer{
		state:  stateCreated,
		file:   f,
		path:   path,
		mimes:  newMimeTable(),
		mainPg: NoMainPage,
	}
	return w, nil
}

func (w *Writer) requireCreated() error {
	if w.state != stateCreated {
		return ErrNotCreated
	}
	return nil
}

// AddArticle registers a new content entry: one cluster holding a single
// blob, deduplicating mimeType into the MIME table. Returns the assigned
// directory index.
func (w *Writer) AddArticle(namespace byte, url, title string, content []byte, mimeType string) (uint32, error) {
	if err := w.requireCreated(); err != nil {
		return 0, err
	}

	mimeIdx, err := w.mimes.intern(mimeType)
	if err != nil {
		return 0, err
	}

	clusterNum := uint32(len(w.blobs))
	w.blobs = append(w.blobs, content)

	idx := uint32(len(w.pend))
	w.pend = append(w.pend, pendingEntry{
		namespace: namespace,
		url:       url,
		title:     title,
		mimeIndex: mimeIdx,
		cluster:   clusterNum,
		blob:      0,
	})
	return idx, nil
}

// AddRedirect appends a redirect entry. targetIndex is not validated until
// Finalize, per spec §4.5.
func (w *Writer) AddRedirect(namespace byte, url, title string, targetIndex uint32) (uint32, error) {
	if err := w.requireCreated(); err != nil {
		return 0, err
	}

	idx := uint32(len(w.pend))
	w.pend = append(w.pend, pendingEntry{
		namespace:  namespace,
		url:        url,
		title:      title,
		isRedirect: true,
		target:     targetIndex,
	})
	return idx, nil
}

// SetMainPage records the main-page directory index.
func (w *Writer) SetMainPage(index uint32) error {
	if err := w.requireCreated(); err != nil {
		return err
	}
	w.mainPg = index
	return nil
}

// Finalize validates redirect targets, then emits (in order): the MIME
// table, all directory entries (recording each starting offset), the index
// pointer list, the cluster pointer list, and each cluster's bytes; then
// rewrites the header and writes the checksum placeholder. Entries are
// emitted in insertion order, and the index pointer list is built
// URL-sorted so reader-side binary search (spec §4.4) is correct regardless
// of insertion order.
func (w *Writer) Finalize() error {
	if err := w.requireCreated(); err != nil {
		return err
	}

	if w.mainPg != NoMainPage && w.mainPg >= uint32(len(w.pend)) {
		return fmt.Errorf("zim: main page index %d out of range", w.mainPg)
	}
	for i, e := range w.pend {
		if e.isRedirect && e.target >= uint32(len(w.pend)) {
			return fmt.Errorf("zim: entry %d redirects to out-of-range target %d", i, e.target)
		}
	}

	clusterBytes := make([][]byte, len(w.blobs))
	for i, content := range w.blobs {
		raw, err := buildCluster([][]byte{content}, CompressionDeflate)
		if err != nil {
			return fmt.Errorf("zim: build cluster %d: %w", i, err)
		}
		clusterBytes[i] = raw
	}

	if _, err := w.file.Seek(int64(HeaderSize), io.SeekStart); err != nil {
		return fmt.Errorf("zim: seek past header: %w", err)
	}

	mimeListPos := int64(HeaderSize)
	if err := writeMimeTypes(w.file, w.mimes.strings()); err != nil {
		return err
	}

	entryOffsets := make([]uint64, len(w.pend))
	pos, err := w.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("zim: tell position: %w", err)
	}
	for i, e := range w.pend {
		entryOffsets[i] = uint64(pos)
		entry := Entry{
			Index:          uint32(i),
			Namespace:      e.namespace,
			URL:            e.url,
			Title:          e.title,
			IsRedirect:     e.isRedirect,
			MimeTypeIndex:  e.mimeIndex,
			Cluster:        e.cluster,
			Blob:           e.blob,
			RedirectTarget: e.target,
		}
		if err := writeEntry(w.file, entry); err != nil {
			return fmt.Errorf("zim: write entry %d: %w", i, err)
		}
		newPos, err := w.file.Seek(0, io.SeekCurrent)
		if err != nil {
			return fmt.Errorf("zim: tell position: %w", err)
		}
		pos = newPos
	}

	urlOrder := sortedURLOrder(w.pend)
	urlPtrPos := pos
	for _, idx := range urlOrder {
		if err := binary.Write(w.file, binary.LittleEndian, entryOffsets[idx]); err != nil {
			return fmt.Errorf("zim: write url pointer: %w", err)
		}
	}

	clusterPtrPos, err := w.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("zim: tell position: %w", err)
	}
	clusterOffsets := make([]uint64, len(clusterBytes))
	for i := range clusterBytes {
		// Placeholder; filled in once we know where each cluster actually lands.
		clusterOffsets[i] = 0
	}
	if _, err := w.file.Seek(int64(8*len(clusterBytes)), io.SeekCurrent); err != nil {
		return fmt.Errorf("zim: skip cluster pointer list: %w", err)
	}

	clusterDataStart, err := w.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("zim: tell position: %w", err)
	}
	pos = clusterDataStart
	for i, raw := range clusterBytes {
		clusterOffsets[i] = uint64(pos)
		if _, err := w.file.Write(raw); err != nil {
			return fmt.Errorf("zim: write cluster %d: %w", i, err)
		}
		pos += int64(len(raw))
	}

	checksumPos := pos
	checksum := make([]byte, 16) // MD5 of preceding bytes is a declared non-goal; placeholder kept exactly 16 bytes
	if _, err := w.file.Write(checksum); err != nil {
		return fmt.Errorf("zim: write checksum placeholder: %w", err)
	}

	if _, err := w.file.Seek(clusterPtrPos, io.SeekStart); err != nil {
		return fmt.Errorf("zim: seek cluster pointer list: %w", err)
	}
	for _, off := range clusterOffsets {
		if err := binary.Write(w.file, binary.LittleEndian, off); err != nil {
			return fmt.Errorf("zim: write cluster pointer: %w", err)
		}
	}

	articleCount, redirectCount := 0, 0
	for _, e := range w.pend {
		if e.isRedirect {
			redirectCount++
		} else {
			articleCount++
		}
	}

	h := Header{
		MajorVersion:    SupportedMajorVersion,
		MinorVersion:    0,
		EntryCount:      uint32(len(w.pend)),
		ArticleCount:    uint32(articleCount),
		ClusterCount:    uint32(len(clusterBytes)),
		RedirectCount:   uint32(redirectCount),
		MimeListPos:     uint64(mimeListPos),
		TitleIndexPos:   0,
		ClusterPtrPos:   uint64(clusterPtrPos),
		URLPtrPos:       uint64(urlPtrPos),
		MainPageIndex:   w.mainPg,
		LayoutPageIndex: 0,
		ChecksumPos:     uint64(checksumPos),
	}

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("zim: seek header for rewrite: %w", err)
	}
	if err := writeHeader(w.file, h); err != nil {
		return err
	}

	w.state = stateFinalized
	log.Printf("zim: finalized %s: %d entries (%d articles, %d redirects), %d clusters",
		w.path, h.EntryCount, h.ArticleCount, h.RedirectCount, h.ClusterCount)
	return nil
}

// sortedURLOrder returns, for each position in the (namespace, url)-sorted
// index pointer list, the pending-entry index it should point to.
func sortedURLOrder(pend []pendingEntry) []int {
	order := make([]int, len(pend))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := pend[order[i]], pend[order[j]]
		if a.namespace != b.namespace {
			return a.namespace < b.namespace
		}
		return a.url < b.url
	})
	return order
}

// Close releases the file handle. Valid from any state; if Finalize was
// never called, the partially written file is left on disk per spec §4.5
// (cleanup is the caller's responsibility) and ErrNotFinalized is returned.
func (w *Writer) Close() error {
	if w.state == stateClosed {
		return nil
	}
	finalized := w.state == stateFinalized
	w.state = stateClosed
	closeErr := w.file.Close()
	if !finalized {
		if closeErr != nil {
			return fmt.Errorf("%w: %v", ErrNotFinalized, closeErr)
		}
		return ErrNotFinalized
	}
	return closeErr
}
