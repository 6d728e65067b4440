package pack

import (
	"compress/zlib"
	"fmt"
	"io"

	packbinary "github.com/packforge/packengine/internal/binary"

	"github.com/packforge/packengine/hash"
	"github.com/packforge/packengine/object"
)

// ObjectSource is a single object to be packed: its kind and payload. It
// carries no id; the encoder computes each object's id itself.
type ObjectSource struct {
	Kind    object.Kind
	Payload []byte
}

// Encoder writes a self-contained (non-delta) PACK stream, mirroring
// packfile.Encoder's offset-tracking writer but without delta selection,
// per spec.md §4.8 ("no delta selection heuristics required in-core").
type Encoder struct {
	w        *offsetWriter
	packHash *hash.StreamHasher
	onEntry  func(IndexEntry)
}

// NewEncoder creates an Encoder writing to w. onEntry, if non-nil, is
// called once per emitted entry with its (id, offset, crc32) tuple, the
// same stream C7 consumes to build an index alongside the pack.
func NewEncoder(w io.Writer, onEntry func(IndexEntry)) *Encoder {
	packHash := hash.NewStreamHasher()
	return &Encoder{
		w:        newOffsetWriter(io.MultiWriter(w, packHash)),
		packHash: packHash,
		onEntry:  onEntry,
	}
}

// Encode writes objs as a complete pack: header, each entry, trailer.
// Returns the pack trailer ID.
func (e *Encoder) Encode(objs []ObjectSource) (hash.ObjectID, error) {
	if err := e.writeHeader(len(objs)); err != nil {
		return hash.ObjectID{}, err
	}

	for _, o := range objs {
		if err := e.writeEntry(o); err != nil {
			return hash.ObjectID{}, err
		}
	}

	return e.writeTrailer()
}

func (e *Encoder) writeHeader(count int) error {
	if _, err := e.w.Write(Signature[:]); err != nil {
		return err
	}
	if err := packbinary.WriteUint32(e.w, uint32(VersionSupported)); err != nil {
		return err
	}
	return packbinary.WriteUint32(e.w, uint32(count))
}

func (e *Encoder) writeEntry(o ObjectSource) error {
	offset := e.w.Offset()

	crc := newCountingCRCWriter()
	mw := io.MultiWriter(e.w, crc)

	kindBits, ok := o.Kind.PackTypeBits()
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownObjectKind, o.Kind)
	}
	if err := packbinary.WriteEntrySizeHeader(mw, kindBits, uint64(len(o.Payload))); err != nil {
		return err
	}

	zw := zlib.NewWriter(mw)
	if _, err := zw.Write(o.Payload); err != nil {
		zw.Close()
		return fmt.Errorf("%w: %v", ErrZlib, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrZlib, err)
	}

	if e.onEntry != nil {
		obj, err := object.Decode(o.Kind, o.Payload)
		if err != nil {
			return err
		}
		id, err := obj.ComputeID()
		if err != nil {
			return err
		}
		e.onEntry(IndexEntry{ID: id, Offset: offset, CRC32: crc.Sum32()})
	}

	return nil
}

func (e *Encoder) writeTrailer() (hash.ObjectID, error) {
	id := e.packHash.Sum()
	_, err := e.w.Write(id.Bytes())
	return id, err
}

// offsetWriter tracks the number of bytes written so far, used to record
// each entry's starting offset the same way packfile.Encoder's
// offsetWriter does.
type offsetWriter struct {
	w      io.Writer
	offset int64
}

func newOffsetWriter(w io.Writer) *offsetWriter {
	return &offsetWriter{w: w}
}

func (ow *offsetWriter) Write(p []byte) (int, error) {
	n, err := ow.w.Write(p)
	ow.offset += int64(n)
	return n, err
}

func (ow *offsetWriter) Offset() int64 {
	return ow.offset
}
