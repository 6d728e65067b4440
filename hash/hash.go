// Package hash provides an algorithm-agnostic object identifier for the
// content-addressed store: a fixed-width digest that is either a SHA-1 or
// a SHA-256 sum, selected once per process.
package hash

import (
	"bytes"
	"crypto"
	"encoding/hex"
	"fmt"
	stdhash "hash"
	"io"
	"sort"
	"sync"

	"github.com/pjbgf/sha1cd"
)

// Algorithm identifies which digest function backs ObjectIDs in this
// process.
type Algorithm int

const (
	// SHA1 is the default algorithm, kept for compatibility with Git's
	// historical object format. It is implemented with sha1cd, a
	// collision-detecting SHA-1, the same choice go-git makes.
	SHA1 Algorithm = iota
	// SHA256 is the newer object format.
	SHA256
)

func (a Algorithm) String() string {
	switch a {
	case SHA256:
		return "sha256"
	default:
		return "sha1"
	}
}

// Size returns the digest width, in bytes, for the algorithm.
func (a Algorithm) Size() int {
	if a == SHA256 {
		return Size256
	}
	return Size1
}

const (
	// Size1 is the width in bytes of a SHA-1 ObjectID.
	Size1 = 20
	// Size256 is the width in bytes of a SHA-256 ObjectID.
	Size256 = 32
)

// ErrInvalidHexLength is returned when a hex string does not match the
// width of the currently active algorithm.
var ErrInvalidHexLength = fmt.Errorf("hash: invalid hex length")

// ErrUnknownAlgorithm is returned by SetAlgorithm for an unrecognised value.
var ErrUnknownAlgorithm = fmt.Errorf("hash: unknown algorithm")

var (
	mu     sync.RWMutex
	active = SHA1
	locked bool
)

// SetAlgorithm selects the process-wide hash algorithm. It must be called
// before any ObjectID is constructed; once the first ObjectID has been
// minted (or SetAlgorithm has been called once), further calls that would
// change the algorithm return an error, so that every ID constructed
// within a session shares the same width.
func SetAlgorithm(a Algorithm) error {
	mu.Lock()
	defer mu.Unlock()

	if a != SHA1 && a != SHA256 {
		return ErrUnknownAlgorithm
	}
	if locked && a != active {
		return fmt.Errorf("hash: algorithm already set to %s for this session", active)
	}
	active = a
	locked = true
	return nil
}

// ActiveAlgorithm returns the algorithm currently selected for the
// process. The first read also locks the default (SHA1) in place.
func ActiveAlgorithm() Algorithm {
	mu.Lock()
	defer mu.Unlock()
	locked = true
	return active
}

// ObjectID is a fixed-width, algorithm-tagged content address. The zero
// value is the all-zero SHA-1 ID; Zero returns the all-zero ID for the
// active algorithm's width.
type ObjectID struct {
	algo Algorithm
	buf  [Size256]byte
}

// Zero returns the all-zero ObjectID for the active algorithm.
func Zero() ObjectID {
	return ObjectID{algo: ActiveAlgorithm()}
}

// New constructs an ObjectID from raw digest bytes. The algorithm is
// inferred from the length of raw, which must equal Size1 or Size256 and
// must match the currently active algorithm.
func New(raw []byte) (ObjectID, error) {
	var id ObjectID
	switch len(raw) {
	case Size1:
		id.algo = SHA1
	case Size256:
		id.algo = SHA256
	default:
		return ObjectID{}, fmt.Errorf("hash: invalid raw length %d", len(raw))
	}
	if id.algo != ActiveAlgorithm() {
		return ObjectID{}, fmt.Errorf("hash: id width %d does not match active algorithm %s", len(raw), ActiveAlgorithm())
	}
	copy(id.buf[:], raw)
	return id, nil
}

// FromHex parses a lowercase (or mixed-case) hex string into an ObjectID,
// validating its width against the active algorithm.
func FromHex(s string) (ObjectID, error) {
	want := ActiveAlgorithm().Size() * 2
	if len(s) != want {
		return ObjectID{}, ErrInvalidHexLength
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ObjectID{}, fmt.Errorf("hash: %w", err)
	}
	return New(raw)
}

// Bytes returns the raw digest bytes, sized to the ID's own algorithm.
func (id ObjectID) Bytes() []byte {
	return append([]byte(nil), id.buf[:id.Size()]...)
}

// Size returns the width of this ID in bytes.
func (id ObjectID) Size() int {
	return id.algo.Size()
}

// Hex returns the lowercase hexadecimal form.
func (id ObjectID) Hex() string {
	return hex.EncodeToString(id.buf[:id.Size()])
}

// String implements fmt.Stringer.
func (id ObjectID) String() string {
	return id.Hex()
}

// IsZero reports whether every digest byte is zero.
func (id ObjectID) IsZero() bool {
	for _, b := range id.buf[:id.Size()] {
		if b != 0 {
			return false
		}
	}
	return true
}

// Compare returns -1, 0 or 1 comparing the lexicographic order of the raw
// bytes, following the same convention as bytes.Compare.
func (id ObjectID) Compare(other ObjectID) int {
	return bytes.Compare(id.buf[:id.Size()], other.buf[:other.Size()])
}

// Equal reports whether two IDs are byte-for-byte identical.
func (id ObjectID) Equal(other ObjectID) bool {
	return id.Compare(other) == 0
}

// Sort sorts a slice of ObjectIDs in ascending lexicographic order.
func Sort(ids []ObjectID) {
	sort.Sort(idSlice(ids))
}

type idSlice []ObjectID

func (s idSlice) Len() int           { return len(s) }
func (s idSlice) Less(i, j int) bool { return s[i].Compare(s[j]) < 0 }
func (s idSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// newDigest returns a fresh hash.Hash for the active algorithm.
func newDigest() stdhash.Hash {
	if ActiveAlgorithm() == SHA256 {
		return crypto.SHA256.New()
	}
	return sha1cd.New()
}

// Of computes the ObjectID of the given bytes directly (no framing
// header); used internally by higher layers that have already framed
// their payload, and by tests.
func Of(b []byte) ObjectID {
	h := newDigest()
	h.Write(b)
	id, _ := New(h.Sum(nil))
	return id
}

// StreamHasher incrementally hashes bytes fed to it via Write, producing
// an ObjectID once the caller calls Sum. It satisfies io.Writer so the
// engine can tee pack/object bytes through it while decoding.
type StreamHasher struct {
	h stdhash.Hash
}

// NewStreamHasher returns a streaming hasher bound to the active
// algorithm at the time of the call.
func NewStreamHasher() *StreamHasher {
	return &StreamHasher{h: newDigest()}
}

// Write implements io.Writer.
func (s *StreamHasher) Write(p []byte) (int, error) {
	return s.h.Write(p)
}

// ReadFrom copies from r until EOF, feeding bytes into the digest.
func (s *StreamHasher) ReadFrom(r io.Reader) (int64, error) {
	return io.Copy(s.h, r)
}

// Sum finalises the digest into an ObjectID. It does not reset the
// hasher: further writes would be accepted by the underlying hash.Hash
// and extend the same stream, so Sum should be treated as terminal.
func (s *StreamHasher) Sum() ObjectID {
	id, _ := New(s.h.Sum(nil))
	return id
}

// Reset restores the hasher to its initial state, ready to hash another
// stream under the same algorithm.
func (s *StreamHasher) Reset() {
	s.h.Reset()
}
