package pack

import (
	"errors"
	"fmt"

	"github.com/packforge/packengine/hash"
)

// Format errors (spec.md §7): fatal to the operation, reject the whole
// pack.
var (
	ErrBadMagic            = errors.New("pack: bad magic")
	ErrUnsupportedVersion  = errors.New("pack: unsupported version")
	ErrTruncatedHeader     = errors.New("pack: truncated header")
	ErrMalformedEntryHdr   = errors.New("pack: malformed entry header")
	ErrMalformedOfsDelta   = errors.New("pack: malformed ofs-delta base reference")
	ErrTruncatedPayload    = errors.New("pack: truncated payload")
	ErrZlib                = errors.New("pack: zlib error")
	ErrPackChecksumMismatch = errors.New("pack: checksum mismatch")
	ErrIndexChecksumMismatch = errors.New("pack: index checksum mismatch")
	ErrUnresolvedDeltas    = errors.New("pack: unresolved deltas remain")
	ErrDuplicateObject     = errors.New("pack: duplicate object")
	ErrMalformedPack       = errors.New("pack: malformed pack")
)

// Semantic errors.
var (
	ErrDeltaChainTooDeep    = errors.New("pack: delta chain too deep")
	ErrDeltaOutOfBounds     = errors.New("pack: delta copy out of bounds")
	ErrDeltaSizeMismatch    = errors.New("pack: delta result size mismatch")
	ErrUnknownObjectKind    = errors.New("pack: unknown object kind")
	ErrDeltaBaseUnavailable = errors.New("pack: delta base unavailable")
)

// Resource errors.
var (
	ErrOutOfMemory = errors.New("pack: out of memory")
	ErrSpillFailed = errors.New("pack: spill failed")
)

// ErrCancelled is returned when a decode or encode is aborted through its
// cancellation handle.
var ErrCancelled = errors.New("pack: cancelled")

// UnresolvedDeltasError carries the count of entries still pending on a
// missing base at end-of-stream.
type UnresolvedDeltasError struct {
	Count int
}

func (e *UnresolvedDeltasError) Error() string {
	return fmt.Sprintf("pack: %d unresolved delta(s)", e.Count)
}

func (e *UnresolvedDeltasError) Unwrap() error { return ErrUnresolvedDeltas }

// DuplicateObjectError names the ID of an object seen twice in the same
// pack.
type DuplicateObjectError struct {
	ID hash.ObjectID
}

func (e *DuplicateObjectError) Error() string {
	return fmt.Sprintf("pack: duplicate object %s", e.ID.Hex())
}

func (e *DuplicateObjectError) Unwrap() error { return ErrDuplicateObject }

// OffsetError wraps a stream-level fault with the byte offset at which it
// occurred, per spec.md §7's "every error carries the byte offset" rule.
type OffsetError struct {
	Offset int64
	Err    error
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("pack: at offset %d: %v", e.Offset, e.Err)
}

func (e *OffsetError) Unwrap() error { return e.Err }
