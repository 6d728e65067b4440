// Package idx implements the pack index format (C7): a v2 ".idx" file
// giving O(log n) lookup from object ID to pack offset without needing to
// scan the pack itself, grounded on the teacher's idxfile package (fanout
// table + sorted-name + parallel CRC/offset tables layout, 64-bit offset
// extension table for large packs).
package idx

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	packbinary "github.com/packforge/packengine/internal/binary"

	"github.com/packforge/packengine/hash"
)

// Header is the 4-byte magic every v2 idx file begins with.
var Header = [4]byte{0xff, 't', 'O', 'c'}

// Version is the only index format version this engine produces.
const Version uint32 = 2

// large64BitMask flags an offset32 slot as an index into the 64-bit extension
// table rather than a literal offset, per the git idx v2 format.
const large64BitMask = uint32(1) << 31

// record is a single (id, offset, crc32) tuple, field for field the same
// as a pack.IndexEntry.
type record struct {
	id     hash.ObjectID
	offset int64
	crc32  uint32
}

// Builder accumulates index records, one per packed object, and produces
// an Index sorted into final on-disk layout.
type Builder struct {
	packChecksum hash.ObjectID
	records      []record
}

// NewBuilder creates an empty Builder for a pack whose trailer checksum is
// packChecksum; every index carries the checksum of the pack it indexes.
func NewBuilder(packChecksum hash.ObjectID) *Builder {
	return &Builder{packChecksum: packChecksum}
}

// Add records one packed object's identity, starting offset, and CRC-32
// (computed over its compressed bytes). Safe to call once per entry as a
// pack.Sink / pack encoder callback drains entries in any order; sorting
// happens at Build time.
func (b *Builder) Add(id hash.ObjectID, offset int64, crc32 uint32) {
	b.records = append(b.records, record{id: id, offset: offset, crc32: crc32})
}

// Index is the finalized, sorted index ready for encoding. Lookup is
// done on a Reader parsed from the encoded bytes.
type Index struct {
	packChecksum hash.ObjectID
	hashSize     int
	records      []record
}

// Build sorts the accumulated records by ID and returns the finalized
// Index. The Builder must not be reused afterward.
func (b *Builder) Build() (*Index, error) {
	if len(b.records) == 0 {
		return &Index{packChecksum: b.packChecksum, hashSize: hash.ActiveAlgorithm().Size()}, nil
	}

	hashSize := b.records[0].id.Size()
	sort.Slice(b.records, func(i, j int) bool {
		return bytes.Compare(b.records[i].id.Bytes(), b.records[j].id.Bytes()) < 0
	})

	for i := 1; i < len(b.records); i++ {
		if b.records[i].id.Equal(b.records[i-1].id) {
			return nil, fmt.Errorf("idx: duplicate object %s", b.records[i].id.Hex())
		}
	}

	return &Index{packChecksum: b.packChecksum, hashSize: hashSize, records: b.records}, nil
}

// Count returns the number of indexed objects.
func (idx *Index) Count() int {
	return len(idx.records)
}

// Encode writes idx to w in v2 format: header, fanout, sorted IDs, CRC-32
// table, offset table (with a 64-bit extension table for offsets that do
// not fit in 31 bits), pack checksum, then a streaming checksum of
// everything written before it.
func (idx *Index) Encode(w io.Writer) error {
	streamHash := hash.NewStreamHasher()
	mw := io.MultiWriter(w, streamHash)

	if _, err := mw.Write(Header[:]); err != nil {
		return err
	}
	if err := packbinary.WriteUint32(mw, Version); err != nil {
		return err
	}

	fanout := idx.buildFanout()
	for _, c := range fanout {
		if err := packbinary.WriteUint32(mw, c); err != nil {
			return err
		}
	}

	for _, r := range idx.records {
		if _, err := mw.Write(r.id.Bytes()); err != nil {
			return err
		}
	}

	for _, r := range idx.records {
		if err := packbinary.WriteUint32(mw, r.crc32); err != nil {
			return err
		}
	}

	var ext64 []int64
	for _, r := range idx.records {
		if r.offset >= 0 && r.offset < int64(large64BitMask) {
			if err := packbinary.WriteUint32(mw, uint32(r.offset)); err != nil {
				return err
			}
			continue
		}
		extIdx := uint32(len(ext64))
		ext64 = append(ext64, r.offset)
		if err := packbinary.WriteUint32(mw, extIdx|large64BitMask); err != nil {
			return err
		}
	}

	for _, off := range ext64 {
		hi := uint32(uint64(off) >> 32)
		lo := uint32(uint64(off) & 0xffffffff)
		if err := packbinary.WriteUint32(mw, hi); err != nil {
			return err
		}
		if err := packbinary.WriteUint32(mw, lo); err != nil {
			return err
		}
	}

	if _, err := mw.Write(idx.packChecksum.Bytes()); err != nil {
		return err
	}

	idxChecksum := streamHash.Sum()
	_, err := w.Write(idxChecksum.Bytes())
	return err
}

// buildFanout returns the 256-entry cumulative fanout table: entry k is
// the count of records whose first ID byte is <= k.
func (idx *Index) buildFanout() [256]uint32 {
	var fanout [256]uint32
	for _, r := range idx.records {
		b := r.id.Bytes()[0]
		for k := int(b); k < 256; k++ {
			fanout[k]++
		}
	}
	return fanout
}
