package idx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	packbinary "github.com/packforge/packengine/internal/binary"

	"github.com/packforge/packengine/hash"
)

// ErrInvalidIndex is returned when a byte stream does not look like a v2
// idx file or fails its trailing checksum.
var ErrInvalidIndex = errors.New("idx: invalid index file")

// Reader is an in-memory, parsed view of a v2 idx file supporting
// binary-search lookup by object ID.
type Reader struct {
	packChecksum hash.ObjectID
	hashSize     int
	fanout       [256]uint32
	ids          [][]byte
	crc32        []uint32
	offsets      []int64
}

// Load parses a complete v2 idx file read fully into memory. hashSize is
// the object ID width in bytes for the active hash algorithm (20 for
// SHA-1, 32 for SHA-256); the idx v2 format does not self-describe it.
func Load(r io.Reader, hashSize int) (*Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data, hashSize)
}

// Parse decodes a complete idx file already held in memory, validating
// its trailing checksum.
func Parse(data []byte, hashSize int) (*Reader, error) {
	minLen := 4 + 4 + 256*4 + 2*hashSize
	if len(data) < minLen {
		return nil, fmt.Errorf("%w: too short", ErrInvalidIndex)
	}
	if !bytes.Equal(data[:4], Header[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidIndex)
	}

	streamHash := hash.NewStreamHasher()
	body := data[:len(data)-hashSize]
	streamHash.Write(body)
	wantChecksum := streamHash.Sum()
	gotChecksum, err := hash.New(data[len(data)-hashSize:])
	if err != nil {
		return nil, err
	}
	if !wantChecksum.Equal(gotChecksum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidIndex)
	}

	br := bytes.NewReader(data[4:])
	version, err := packbinary.ReadUint32(br)
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidIndex, version)
	}

	rd := &Reader{hashSize: hashSize}
	for i := range rd.fanout {
		v, err := packbinary.ReadUint32(br)
		if err != nil {
			return nil, err
		}
		rd.fanout[i] = v
	}

	count := int(rd.fanout[255])
	rd.ids = make([][]byte, count)
	for i := 0; i < count; i++ {
		id := make([]byte, hashSize)
		if _, err := io.ReadFull(br, id); err != nil {
			return nil, err
		}
		rd.ids[i] = id
	}

	rd.crc32 = make([]uint32, count)
	for i := 0; i < count; i++ {
		v, err := packbinary.ReadUint32(br)
		if err != nil {
			return nil, err
		}
		rd.crc32[i] = v
	}

	raw32 := make([]uint32, count)
	var ext64Count int
	for i := 0; i < count; i++ {
		v, err := packbinary.ReadUint32(br)
		if err != nil {
			return nil, err
		}
		raw32[i] = v
		if v&large64BitMask != 0 {
			ext64Count++
		}
	}

	ext64 := make([]int64, ext64Count)
	for i := 0; i < ext64Count; i++ {
		hi, err := packbinary.ReadUint32(br)
		if err != nil {
			return nil, err
		}
		lo, err := packbinary.ReadUint32(br)
		if err != nil {
			return nil, err
		}
		ext64[i] = int64(uint64(hi)<<32 | uint64(lo))
	}

	rd.offsets = make([]int64, count)
	for i, v := range raw32 {
		if v&large64BitMask != 0 {
			rd.offsets[i] = ext64[v&^large64BitMask]
		} else {
			rd.offsets[i] = int64(v)
		}
	}

	packChecksumBuf := make([]byte, hashSize)
	if _, err := io.ReadFull(br, packChecksumBuf); err != nil {
		return nil, err
	}
	packChecksum, err := hash.New(packChecksumBuf)
	if err != nil {
		return nil, err
	}
	rd.packChecksum = packChecksum

	return rd, nil
}

// PackChecksum returns the checksum of the pack this index describes.
func (r *Reader) PackChecksum() hash.ObjectID {
	return r.packChecksum
}

// Count returns the number of indexed objects.
func (r *Reader) Count() int {
	return len(r.ids)
}

// Lookup returns the pack offset and CRC-32 for id, using the fanout
// table to narrow to a 256th of the index before a binary search over the
// sorted ID slice, per spec.md §4.7's O(log n) requirement.
func (r *Reader) Lookup(id hash.ObjectID) (offset int64, crc32 uint32, ok bool) {
	idBytes := id.Bytes()
	lo := 0
	if b := int(idBytes[0]); b > 0 {
		lo = int(r.fanout[b-1])
	}
	hi := int(r.fanout[idBytes[0]])

	i := sort.Search(hi-lo, func(k int) bool {
		return bytes.Compare(r.ids[lo+k], idBytes) >= 0
	}) + lo

	if i >= hi || !bytes.Equal(r.ids[i], idBytes) {
		return 0, 0, false
	}
	return r.offsets[i], r.crc32[i], true
}

// EntryAt returns the ID, offset, and CRC-32 of the i-th entry in sorted
// order, for iterating the whole index (e.g. repacking or verification).
func (r *Reader) EntryAt(i int) (hash.ObjectID, int64, uint32, error) {
	if i < 0 || i >= len(r.ids) {
		return hash.ObjectID{}, 0, 0, fmt.Errorf("idx: index %d out of range", i)
	}
	id, err := hash.New(r.ids[i])
	if err != nil {
		return hash.ObjectID{}, 0, 0, err
	}
	return id, r.offsets[i], r.crc32[i], nil
}
