package zim

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"sync"
)

// clusterCache memoizes decompressed cluster bytes keyed by cluster number,
// holding at most maxSize clusters, grounded on the teacher's clusterCache.
// Eviction is first-in first-out: a cache hit does not refresh an entry.
type clusterCache struct {
	mu      sync.Mutex
	order   []uint32
	entries map[uint32][]byte
	maxSize int
}

func newClusterCache(maxSize int) *clusterCache {
	return &clusterCache{entries: make(map[uint32][]byte), maxSize: maxSize}
}

func (c *clusterCache) get(num uint32) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[num]
	return data, ok
}

func (c *clusterCache) put(num uint32, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[num]; ok {
		return
	}
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[num] = data
	c.order = append(c.order, num)
}

const defaultClusterCacheSize = 32

// Reader is the public ZIM archive reader façade. A Reader owns exactly one
// file handle; it follows a Closed → Opened → Closed state machine, and is
// not safe to share across goroutines without external coordination (spec §5).
type Reader struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	open    bool
	header  Header
	mimes   []string
	entries []Entry
	// urlOrder maps the URL-pointer-list position to the directory index it
	// references, sorted by (namespace, url) to support binary search.
	urlOrder    []uint32
	clusterPtrs []uint64
	cache       *clusterCache
}

// Open parses the ZIM archive at path: header, MIME table, directory
// entries, and the cluster pointer list are read and memoized up front;
// blob content is fetched on demand and never cached beyond clusterCache.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("zim: open %s: %w", path, err)
	}

	r := &Reader{file: f, path: path, cache: newClusterCache(defaultClusterCacheSize)}
	if err := r.load(); err != nil {
		f.Close()
		return nil, err
	}
	r.open = true

	log.Printf("zim: opened %s: %d entries (%d articles, %d redirects), %d clusters",
		path, r.header.EntryCount, r.header.ArticleCount, r.header.RedirectCount, r.header.ClusterCount)

	return r, nil
}

func (r *Reader) load() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("zim: seek header: %w", err)
	}
	h, err := readHeader(r.file)
	if err != nil {
		return err
	}
	r.header = h

	if err := r.checkSectionBounds(); err != nil {
		return err
	}

	if _, err := r.file.Seek(int64(h.MimeListPos), io.SeekStart); err != nil {
		return fmt.Errorf("zim: seek mime table: %w", err)
	}
	mimes, err := readMimeTypes(r.file)
	if err != nil {
		return err
	}
	r.mimes = mimes

	if _, err := r.file.Seek(int64(h.URLPtrPos), io.SeekStart); err != nil {
		return fmt.Errorf("zim: seek url pointer list: %w", err)
	}
	ptrs := make([]uint64, h.EntryCount)
	for i := range ptrs {
		if err := readUint64(r.file, &ptrs[i]); err != nil {
			return fmt.Errorf("zim: read url pointer %d: %w", i, err)
		}
	}

	// ptrs is the URL-sorted pointer list (spec: a lookup aid), not the
	// canonical directory ordinal that main_page_index/redirect_target
	// reference. Entries are written sequentially in insertion order, so
	// sorting pointer values ascending recovers that canonical order
	// independently of URL-sort rank.
	insertionPtrs := append([]uint64(nil), ptrs...)
	sort.Slice(insertionPtrs, func(a, b int) bool { return insertionPtrs[a] < insertionPtrs[b] })

	entries := make([]Entry, h.EntryCount)
	br := bufio.NewReader(nil)
	for i, ptr := range insertionPtrs {
		if _, err := r.file.Seek(int64(ptr), io.SeekStart); err != nil {
			return fmt.Errorf("zim: seek entry %d: %w", i, err)
		}
		br.Reset(r.file)
		e, err := readEntry(br, uint32(i))
		if err != nil {
			return err
		}
		entries[i] = e
	}
	r.entries = entries

	order := make([]uint32, len(entries))
	for i := range order {
		order[i] = uint32(i)
	}
	sort.Slice(order, func(a, b int) bool {
		ea, eb := entries[order[a]], entries[order[b]]
		if ea.Namespace != eb.Namespace {
			return ea.Namespace < eb.Namespace
		}
		return ea.URL < eb.URL
	})
	r.urlOrder = order

	if _, err := r.file.Seek(int64(h.ClusterPtrPos), io.SeekStart); err != nil {
		return fmt.Errorf("zim: seek cluster pointer list: %w", err)
	}
	clusterPtrs := make([]uint64, h.ClusterCount)
	for i := range clusterPtrs {
		if err := readUint64(r.file, &clusterPtrs[i]); err != nil {
			return fmt.Errorf("zim: read cluster pointer %d: %w", i, err)
		}
	}
	r.clusterPtrs = clusterPtrs

	return nil
}

func (r *Reader) checkSectionBounds() error {
	info, err := r.file.Stat()
	if err != nil {
		return fmt.Errorf("zim: stat: %w", err)
	}
	size := uint64(info.Size())
	for name, pos := range map[string]uint64{
		"mime table":          r.header.MimeListPos,
		"cluster pointer list": r.header.ClusterPtrPos,
		"url pointer list":     r.header.URLPtrPos,
	} {
		if pos > size {
			return fmt.Errorf("%w: %s offset %d exceeds file size %d", ErrTruncated, name, pos, size)
		}
	}
	return nil
}

func readUint64(r io.Reader, out *uint64) error {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return joinTruncated(err)
	}
	*out = leUint64(buf[:])
	return nil
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// Close releases the underlying file handle. Idempotent.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return nil
	}
	r.open = false
	return r.file.Close()
}

func (r *Reader) requireOpen() error {
	if !r.open {
		return ErrNotOpen
	}
	return nil
}

// Header returns a copy of the parsed header.
func (r *Reader) Header() (Header, error) {
	if err := r.requireOpen(); err != nil {
		return Header{}, err
	}
	return r.header, nil
}

// MimeTypes returns the decoded MIME table in on-disk order.
func (r *Reader) MimeTypes() ([]string, error) {
	if err := r.requireOpen(); err != nil {
		return nil, err
	}
	out := make([]string, len(r.mimes))
	copy(out, r.mimes)
	return out, nil
}

// Directory returns the decoded directory entries in on-disk order.
func (r *Reader) Directory() ([]Entry, error) {
	if err := r.requireOpen(); err != nil {
		return nil, err
	}
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}

// ListArticles returns only content entries, preserving directory order.
func (r *Reader) ListArticles() ([]Entry, error) {
	if err := r.requireOpen(); err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range r.entries {
		if !e.IsRedirect {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetEntryByPath looks up a directory entry by (namespace, url) using
// binary search over the (namespace, url)-sorted index built at Open time.
// Returns ErrNotFound if no entry matches.
func (r *Reader) GetEntryByPath(namespace byte, url string) (Entry, error) {
	if err := r.requireOpen(); err != nil {
		return Entry{}, err
	}
	n := len(r.urlOrder)
	i := sort.Search(n, func(i int) bool {
		e := r.entries[r.urlOrder[i]]
		if e.Namespace != namespace {
			return e.Namespace >= namespace
		}
		return e.URL >= url
	})
	if i < n {
		e := r.entries[r.urlOrder[i]]
		if e.Namespace == namespace && e.URL == url {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %c/%s", ErrNotFound, namespace, url)
}

// GetMainPage returns the directory entry at the header's main-page index,
// or (Entry{}, false, nil) if the sentinel ("no main page") is set.
func (r *Reader) GetMainPage() (Entry, bool, error) {
	if err := r.requireOpen(); err != nil {
		return Entry{}, false, err
	}
	if r.header.MainPageIndex == NoMainPage || r.header.MainPageIndex >= uint32(len(r.entries)) {
		return Entry{}, false, nil
	}
	return r.entries[r.header.MainPageIndex], true, nil
}

// GetArticleContent resolves a content entry to its decompressed blob,
// following redirects (bounded by entry count, per testable property 5) if
// given a redirect entry. This is the implementation's documented, fixed
// choice for spec §4.4's implementation-defined redirect behavior.
func (r *Reader) GetArticleContent(e Entry) ([]byte, error) {
	if err := r.requireOpen(); err != nil {
		return nil, err
	}
	_, content, err := r.resolveContent(e)
	return content, err
}

// resolveContent follows e's redirect chain (if any) and returns both the
// resolved content entry and its decompressed blob, so callers that need
// the resolved entry's own fields (e.g. its real MIME type) don't have to
// re-walk the chain themselves.
func (r *Reader) resolveContent(e Entry) (Entry, []byte, error) {
	seen := uint32(0)
	for e.IsRedirect {
		seen++
		if seen > uint32(len(r.entries)) {
			return Entry{}, nil, fmt.Errorf("zim: redirect cycle at entry %d", e.Index)
		}
		if e.RedirectTarget >= uint32(len(r.entries)) {
			return Entry{}, nil, fmt.Errorf("%w: redirect target %d out of range", ErrInvalidEntry, e.RedirectTarget)
		}
		e = r.entries[e.RedirectTarget]
	}

	content, err := r.getBlob(e.Cluster, e.Blob)
	if err != nil {
		return Entry{}, nil, err
	}
	return e, content, nil
}

// GetEntryContent is a convenience wrapper resolving by (namespace, url)
// then fetching content, matching the common open→lookup→fetch call shape.
// The returned Entry is the resolved content entry (redirects followed), so
// its MimeTypeIndex is always the real content type, never the redirect
// sentinel.
func (r *Reader) GetEntryContent(namespace byte, url string) ([]byte, Entry, error) {
	e, err := r.GetEntryByPath(namespace, url)
	if err != nil {
		return nil, Entry{}, err
	}
	if err := r.requireOpen(); err != nil {
		return nil, Entry{}, err
	}
	resolved, content, err := r.resolveContent(e)
	if err != nil {
		return nil, Entry{}, err
	}
	return content, resolved, nil
}

func (r *Reader) getBlob(clusterNum, blobNum uint32) ([]byte, error) {
	if clusterNum >= r.header.ClusterCount {
		return nil, fmt.Errorf("%w: cluster %d out of range", ErrMalformedCluster, clusterNum)
	}

	if decompressed, ok := r.cache.get(clusterNum); ok {
		return extractBlob(decompressed, blobNum)
	}

	r.mu.Lock()
	raw, err := r.readRawCluster(clusterNum)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	decompressed, err := decompressCluster(raw)
	if err != nil {
		return nil, err
	}
	r.cache.put(clusterNum, decompressed)

	return extractBlob(decompressed, blobNum)
}

// readRawCluster reads the raw tag+compressed-payload bytes for a cluster.
// The caller holds r.mu. The cluster's end is the next cluster pointer, or
// checksumPos for the last cluster, matching spec §4.4 step 4.
func (r *Reader) readRawCluster(clusterNum uint32) ([]byte, error) {
	start := r.clusterPtrs[clusterNum]
	var end uint64
	if clusterNum+1 < uint32(len(r.clusterPtrs)) {
		end = r.clusterPtrs[clusterNum+1]
	} else {
		end = r.header.ChecksumPos
	}
	if end < start {
		return nil, fmt.Errorf("%w: cluster %d has negative length", ErrMalformedCluster, clusterNum)
	}

	if _, err := r.file.Seek(int64(start), io.SeekStart); err != nil {
		return nil, fmt.Errorf("zim: seek cluster %d: %w", clusterNum, err)
	}
	buf := make([]byte, end-start)
	if _, err := io.ReadFull(r.file, buf); err != nil {
		return nil, fmt.Errorf("zim: read cluster %d: %w", clusterNum, joinTruncated(err))
	}
	return buf, nil
}

// NamespaceString renders a namespace byte for diagnostics/logging, used by
// the CLI and HTTP shells when printing directory listings.
func NamespaceString(ns byte) string {
	if ns < 0x20 || ns > 0x7e {
		return fmt.Sprintf("0x%02x", ns)
	}
	return string(ns)
}
