// Package waitlist implements the registry of delta entries blocked on
// an as-yet-undecoded base object (spec.md §4.5). Entries are indexed
// both by the base's pack offset (for offset-deltas) and by its object
// ID (for reference-deltas), and a single base arrival wakes every
// dependent exactly once.
package waitlist

import (
	"sync"

	"github.com/packforge/packengine/hash"
)

// Entry is a pending delta entry plus the pack offset it itself lives
// at. The payload is opaque to the waitlist; the pack decoder (C6)
// supplies and interprets it.
type Entry struct {
	EntryOffset int64
	Payload     any
}

// Waitlist is the shared, concurrency-safe pending-entry index described
// by spec.md §4.5.
type Waitlist struct {
	mu       sync.Mutex
	byOffset map[int64][]Entry
	byID     map[hash.ObjectID][]Entry
}

// New creates an empty Waitlist.
func New() *Waitlist {
	return &Waitlist{
		byOffset: make(map[int64][]Entry),
		byID:     make(map[hash.ObjectID][]Entry),
	}
}

// RegisterByOffset registers e as blocked on the base located at
// baseOffset (an OfsDelta whose base has not yet been decoded).
func (w *Waitlist) RegisterByOffset(baseOffset int64, e Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.byOffset[baseOffset] = append(w.byOffset[baseOffset], e)
}

// RegisterByID registers e as blocked on the base identified by id (a
// RefDelta whose base has not yet been decoded, or has not yet been
// seen at all).
func (w *Waitlist) RegisterByID(id hash.ObjectID, e Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.byID[id] = append(w.byID[id], e)
}

// TakeByOffset atomically removes and returns every entry waiting on the
// base at baseOffset.
func (w *Waitlist) TakeByOffset(baseOffset int64) []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	entries := w.byOffset[baseOffset]
	delete(w.byOffset, baseOffset)
	return entries
}

// TakeByID atomically removes and returns every entry waiting on id.
func (w *Waitlist) TakeByID(id hash.ObjectID) []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	entries := w.byID[id]
	delete(w.byID, id)
	return entries
}

// IsEmpty reports whether any entries remain pending on any key. A
// non-empty waitlist at end-of-stream is a hard error (UnresolvedDeltas).
func (w *Waitlist) IsEmpty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.byOffset) == 0 && len(w.byID) == 0
}

// Count returns the total number of pending entries across both
// indexes, used to populate UnresolvedDeltas{count}.
func (w *Waitlist) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, es := range w.byOffset {
		n += len(es)
	}
	for _, es := range w.byID {
		n += len(es)
	}
	return n
}
