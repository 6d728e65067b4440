// Package packengine is the top-level facade over the object/pack engine:
// PackReader/PackWriter for the pack container (C6, C8) and
// IndexReader/IndexWriter for its companion .idx (C7), mirroring the
// entry points go-git exposes on its Storer/ObjectStorage types for
// opening packs and indexes by path rather than by hand-wiring Decoder,
// Encoder and idx.Builder at every call site.
package packengine

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/packforge/packengine/cache"
	"github.com/packforge/packengine/config"
	"github.com/packforge/packengine/hash"
	"github.com/packforge/packengine/idx"
	"github.com/packforge/packengine/pack"
)

// PackReader decodes a single pack stream, either from an already-open
// io.Reader or from a path on disk.
type PackReader struct {
	cfg   config.Config
	cache *cache.Cache
	dec   *pack.Decoder
	f     *os.File // non-nil only when opened via Open
}

// Open opens the pack file at path for decoding. Cache may be nil, in
// which case a private one is created from cfg's budget and spill
// directory.
func Open(path string, cfg config.Config, c *cache.Cache) (*PackReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("packengine: opening %s: %w", path, err)
	}
	r, err := fromCache(cfg, c)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.f = f
	return r, nil
}

// FromStream creates a PackReader that holds no stream of its own. It
// takes no reader: the stream to decode (e.g. a network body) is passed
// to Decode as body, and the caller remains responsible for closing it.
func FromStream(cfg config.Config, c *cache.Cache) (*PackReader, error) {
	return fromCache(cfg, c)
}

func fromCache(cfg config.Config, c *cache.Cache) (*PackReader, error) {
	if c == nil {
		var err error
		c, err = cache.New(cfg.CacheBudgetBytes, cache.WithSpillDirectory(cfg.SpillDirectory))
		if err != nil {
			return nil, fmt.Errorf("packengine: constructing cache: %w", err)
		}
	}
	return &PackReader{cfg: cfg, cache: c, dec: pack.NewDecoder(cfg, c)}, nil
}

// Decode streams every object in the pack to sink, returning the index
// entries and pack trailer needed to write a companion .idx (C7).
func (r *PackReader) Decode(ctx context.Context, body ReaderSource, sink pack.Sink, opts pack.Options) ([]pack.IndexEntry, hash.ObjectID, error) {
	src := body
	if src == nil {
		if r.f == nil {
			return nil, hash.ObjectID{}, fmt.Errorf("packengine: no stream to decode (use Open or pass a body to Decode)")
		}
		src = r.f
	}
	return r.dec.Decode(ctx, src, sink, opts)
}

// Close releases the file opened by Open. A no-op for readers created
// with FromStream.
func (r *PackReader) Close() error {
	if r.f == nil {
		return nil
	}
	return r.f.Close()
}

// ReaderSource is the minimal reader Decode needs; satisfied by *os.File
// and any plain io.Reader. Pass nil to decode the file a reader opened
// with Open is already holding.
type ReaderSource = io.Reader

// PackWriter writes a self-contained pack file to disk, accumulating the
// index entries needed to write its companion .idx immediately after.
type PackWriter struct{}

// Write encodes objs as a new pack file at path, returning its trailer
// checksum and the per-object index entries for IndexWriter.
func (PackWriter) Write(path string, objs []pack.ObjectSource) (hash.ObjectID, []pack.IndexEntry, error) {
	f, err := os.Create(path)
	if err != nil {
		return hash.ObjectID{}, nil, fmt.Errorf("packengine: creating %s: %w", path, err)
	}
	defer f.Close()

	var entries []pack.IndexEntry
	enc := pack.NewEncoder(f, func(e pack.IndexEntry) {
		entries = append(entries, e)
	})

	trailer, err := enc.Encode(objs)
	if err != nil {
		return hash.ObjectID{}, nil, err
	}
	return trailer, entries, nil
}

// IndexWriter writes a .idx file for a pack already written by PackWriter
// (or decoded by PackReader).
type IndexWriter struct{}

// Write builds and writes the v2 index for entries, a pack whose trailer
// checksum is packTrailer, to path.
func (IndexWriter) Write(path string, entries []pack.IndexEntry, packTrailer hash.ObjectID) error {
	b := idx.NewBuilder(packTrailer)
	for _, e := range entries {
		b.Add(e.ID, e.Offset, e.CRC32)
	}
	built, err := b.Build()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("packengine: creating %s: %w", path, err)
	}
	defer f.Close()

	return built.Encode(f)
}

// IndexReader is an opened .idx file supporting lookup(id) -> (offset,
// crc32).
type IndexReader struct {
	*idx.Reader
	f *os.File
}

// OpenIndex reads the complete .idx file at path into memory.
func OpenIndex(path string, hashSize int) (*IndexReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("packengine: opening %s: %w", path, err)
	}
	r, err := idx.Load(f, hashSize)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &IndexReader{Reader: r, f: f}, nil
}

// Close releases the underlying file handle.
func (r *IndexReader) Close() error {
	return r.f.Close()
}
