package zim

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MagicCanonical is the magic number this engine emits: decimal 72173914
// (hex 0x044D495A), the value real-world ZIM archives carry.
const MagicCanonical uint32 = 72173914

// MagicLegacy is a second value readers must accept. It appears in
// original_source/AnZimmermanLIB as "ZZIM" read little-endian; it looks like
// a byte-ordering confusion in that implementation rather than a second
// real-world format revision, but the engine follows spec and accepts it.
const MagicLegacy uint32 = 0x4D495A5A

// SupportedMajorVersion is the only major version this engine parses.
const SupportedMajorVersion uint16 = 5

// NoMainPage is the sentinel stored in Header.MainPageIndex when an archive
// declares no main page.
const NoMainPage uint32 = 0xFFFFFFFF

// HeaderSize is the fixed on-disk size of Header, in bytes.
const HeaderSize = 80

// Header is the fixed 80-byte ZIM preamble. All integer fields are
// little-endian on disk.
//
// The named fields below are exactly those spec.md §3 enumerates; summed,
// they occupy 72 bytes, eight short of the 80 the format reserves. Real-world
// ZIM archives spend those eight (of a 16-byte UUID) identifying the archive
// instance; this engine carries that slot as UUID so on-disk layout matches
// real files and the fixed-size invariant holds, without altering the
// meaning of any field spec.md names.
type Header struct {
	Magic           uint32
	MajorVersion    uint16
	MinorVersion    uint16
	UUID            uint64
	EntryCount      uint32
	ArticleCount    uint32
	ClusterCount    uint32
	RedirectCount   uint32
	MimeListPos     uint64
	TitleIndexPos   uint64
	ClusterPtrPos   uint64
	URLPtrPos       uint64
	MainPageIndex   uint32
	LayoutPageIndex uint32
	ChecksumPos     uint64
}

func readHeader(r io.Reader) (Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h.Magic); err != nil {
		return h, fmt.Errorf("zim: read magic: %w", joinTruncated(err))
	}
	if h.Magic != MagicCanonical && h.Magic != MagicLegacy {
		return h, fmt.Errorf("%w: got %d", ErrInvalidMagic, h.Magic)
	}

	fields := []any{
		&h.MajorVersion, &h.MinorVersion, &h.UUID,
		&h.EntryCount, &h.ArticleCount, &h.ClusterCount, &h.RedirectCount,
		&h.MimeListPos, &h.TitleIndexPos, &h.ClusterPtrPos, &h.URLPtrPos,
		&h.MainPageIndex, &h.LayoutPageIndex,
		&h.ChecksumPos,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return h, fmt.Errorf("zim: read header field: %w", joinTruncated(err))
		}
	}

	if h.MajorVersion != SupportedMajorVersion {
		return h, fmt.Errorf("%w: major version %d", ErrUnsupportedVersion, h.MajorVersion)
	}

	return h, nil
}

func writeHeader(w io.Writer, h Header) error {
	h.Magic = MagicCanonical
	values := []any{
		h.Magic, h.MajorVersion, h.MinorVersion, h.UUID,
		h.EntryCount, h.ArticleCount, h.ClusterCount, h.RedirectCount,
		h.MimeListPos, h.TitleIndexPos, h.ClusterPtrPos, h.URLPtrPos,
		h.MainPageIndex, h.LayoutPageIndex,
		h.ChecksumPos,
	}
	for _, v := range values {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("zim: write header field: %w", err)
		}
	}
	return nil
}

func joinTruncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return err
}
