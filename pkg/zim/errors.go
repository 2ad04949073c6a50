package zim

import "errors"

// Error taxonomy for the ZIM engine. Callers should compare with errors.Is;
// wrapping call sites attach offset/entry context via fmt.Errorf("...: %w").
var (
	ErrInvalidMagic           = errors.New("zim: invalid magic number")
	ErrUnsupportedVersion     = errors.New("zim: unsupported major version")
	ErrTruncated              = errors.New("zim: truncated read")
	ErrInvalidEntry           = errors.New("zim: malformed directory entry")
	ErrMalformedCluster       = errors.New("zim: malformed cluster")
	ErrUnsupportedCompression = errors.New("zim: unsupported compression")
	ErrCorruptCompressedStream = errors.New("zim: corrupt compressed stream")
	ErrIsRedirect             = errors.New("zim: entry is a redirect")
	ErrNotOpen                = errors.New("zim: reader is not open")
	ErrNotFinalized           = errors.New("zim: writer has not been finalized")
	ErrNotFound               = errors.New("zim: entry not found")
	ErrMimeTypeOverflow       = errors.New("zim: mime type table overflow")
	ErrNotCreated             = errors.New("zim: writer is not in the created state")
)
