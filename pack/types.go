// Package pack implements the streaming pack-file decoder (C6) and
// encoder (C8): parsing and producing the PACK container described in
// spec.md §6.1, including offset-delta and reference-delta resolution
// across a bounded worker pool.
package pack

import (
	"github.com/packforge/packengine/hash"
	"github.com/packforge/packengine/object"
)

// Signature is the 4-byte magic every pack stream begins with.
var Signature = [4]byte{'P', 'A', 'C', 'K'}

// Version is a supported packfile format version.
type Version uint32

// Supported reports whether v is a version this engine can read or write.
func (v Version) Supported() bool {
	return v == 2 || v == 3
}

// VersionSupported is the version this engine writes.
const VersionSupported Version = 2

// BaseRef identifies a delta entry's base, either by a backward distance
// within the same pack (OfsDelta) or by object ID (RefDelta). Exactly one
// of the two is meaningful, selected by the owning PackEntryHeader's Kind.
type BaseRef struct {
	OffsetBack int64
	ID         hash.ObjectID
}

// PackEntryHeader is the parsed per-entry header: kind, declared decoded
// size, and (for delta kinds) a reference to the base.
type PackEntryHeader struct {
	Offset      int64
	Kind        object.Kind
	DecodedSize int64
	Base        BaseRef
}

// Entry is a fully decoded pack entry as handed to the caller's sink:
// either a base object's canonical bytes, or the result of applying its
// delta chain.
type Entry struct {
	ID     hash.ObjectID
	Kind   object.Kind
	Bytes  []byte
	Offset int64
	CRC32  uint32
}

// IndexEntry is the (id, offset, crc32) tuple accumulated for every
// decoded or encoded entry, handed to the index builder (C7).
type IndexEntry struct {
	ID     hash.ObjectID
	Offset int64
	CRC32  uint32
}

// Sink receives each fully resolved object as it becomes available.
// Invocations are serialized (never concurrent) but make no promise
// about pack order (spec.md §4.6).
type Sink func(Entry) error

// ProgressFunc is invoked at a bounded rate with (decoded, total) entry
// counts.
type ProgressFunc func(decoded, total int)
