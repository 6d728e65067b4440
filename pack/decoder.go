package pack

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	ctxio "github.com/jbenet/go-context/io"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	packbinary "github.com/packforge/packengine/internal/binary"

	"github.com/packforge/packengine/cache"
	"github.com/packforge/packengine/config"
	"github.com/packforge/packengine/delta"
	"github.com/packforge/packengine/hash"
	"github.com/packforge/packengine/object"
	"github.com/packforge/packengine/waitlist"
)

// rawEntry is what the single-threaded producer pushes onto the work
// queue: a parsed header plus its fully inflated bytes (raw object
// payload for non-delta kinds, delta instruction stream otherwise).
type rawEntry struct {
	header  PackEntryHeader
	data    []byte
	crc32   uint32
	memCost int64
}

// Decoder streams a pack, resolving every entry (including delta chains)
// and handing each to the caller's sink (C6).
//
// mu is the single lock serializing every place a delta's base-readiness
// is decided against every place a base's arrival is published: offset
// and cache-membership checks in resolve, and the offsetToID write plus
// waitlist drain in finish, all run under mu. Without that, a check and
// a publish on two different locks can interleave so the check sees
// "not ready", registers, and the publish's drain runs before the
// registration lands — the dependent then waits forever for a wakeup
// that already happened. Holding mu across the cache membership test
// keeps that check honest too; only the (potentially slow) byte fetch
// happens outside the lock, once readiness under mu is established.
type Decoder struct {
	cfg       config.Config
	cache     *cache.Cache
	wl        *waitlist.Waitlist
	memSem    *semaphore.Weighted
	memBudget int64

	mu           sync.Mutex
	offsetToID   map[int64]hash.ObjectID
	chainDepth   map[hash.ObjectID]int
	seen         map[hash.ObjectID]struct{}
	indexEntries []IndexEntry
}

// NewDecoder creates a Decoder using c for base-object caching. Callers
// typically construct one Cache per decode (or reuse across packs that
// share a spill budget).
func NewDecoder(cfg config.Config, c *cache.Cache) *Decoder {
	budget := cfg.CacheBudgetBytes
	if budget <= 0 {
		budget = 1
	}
	return &Decoder{
		cfg:        cfg,
		cache:      c,
		wl:         waitlist.New(),
		memSem:     semaphore.NewWeighted(budget),
		memBudget:  budget,
		offsetToID: make(map[int64]hash.ObjectID),
		chainDepth: make(map[hash.ObjectID]int),
		seen:       make(map[hash.ObjectID]struct{}),
	}
}

// memCost clamps an entry's accounted size to the semaphore's total
// capacity: semaphore.Weighted blocks forever on an Acquire larger than
// its total, so a single object bigger than the whole cache budget must
// still be admitted (charged at the full budget) rather than wedge the
// producer permanently.
func (d *Decoder) memCost(n int) int64 {
	cost := int64(n)
	if cost > d.memBudget {
		cost = d.memBudget
	}
	if cost < 1 {
		cost = 1
	}
	return cost
}

// Options bundles the optional collaborators a Decode call accepts.
type Options struct {
	Progress ProgressFunc
}

// Decode reads a full pack from r, invoking sink for each resolved
// object, and returns the accumulated index entries and pack trailer ID.
func (d *Decoder) Decode(ctx context.Context, r io.Reader, sink Sink, opts Options) ([]IndexEntry, hash.ObjectID, error) {
	cr := ctxio.NewReader(ctx, r)

	packHash := hash.NewStreamHasher()
	crc := crc32.NewIEEE()
	er := newEntryReader(cr, packHash, crc)

	version, count, err := readPackHeader(er)
	if err != nil {
		return nil, hash.ObjectID{}, err
	}
	_ = version

	var wg sync.WaitGroup
	q := newEntryQueue(&wg)

	var producerErr error
	decoded := 0

	// Single producer: the pack bytes must be consumed strictly in
	// order, so inflation happens here; resolution (ID computation,
	// sink dispatch, delta application) happens on the worker pool.
	//
	// Back-pressure: every entry's inflated size is charged against
	// memSem (capacity == the configured cache budget) before it is
	// pushed, and released once it is fully resolved in finish. A pack
	// with more in-flight (decoded-but-unresolved) bytes than the
	// budget stalls the producer here rather than growing the queue
	// without bound, keeping resident memory within
	// cache_budget + workers*entry_size regardless of pack size.
	producerDone := make(chan struct{})
	go func() {
		defer close(producerDone)
		for i := uint32(0); i < count; i++ {
			if err := ctx.Err(); err != nil {
				producerErr = ErrCancelled
				return
			}

			entry, err := readOneEntry(er)
			if err != nil {
				producerErr = &OffsetError{Offset: er.Offset(), Err: err}
				return
			}

			entry.memCost = d.memCost(len(entry.data))
			if err := d.memSem.Acquire(ctx, entry.memCost); err != nil {
				producerErr = ErrCancelled
				return
			}

			q.push(entry)

			decoded++
			if opts.Progress != nil {
				opts.Progress(decoded, int(count))
			}
		}
	}()

	sem := semaphore.NewWeighted(int64(d.cfg.WorkerThreads))
	g, gctx := errgroup.WithContext(ctx)

	var sinkMu sync.Mutex
	guardedSink := func(e Entry) error {
		sinkMu.Lock()
		defer sinkMu.Unlock()
		return sink(e)
	}

	workerLoop := func() error {
		for {
			e, ok := q.pop()
			if !ok {
				return nil
			}
			err := func() error {
				defer wg.Done()
				if err := sem.Acquire(gctx, 1); err != nil {
					return err
				}
				defer sem.Release(1)
				return d.resolve(gctx, e, q, guardedSink)
			}()
			if err != nil {
				return err
			}
		}
	}

	for i := 0; i < d.cfg.WorkerThreads; i++ {
		g.Go(workerLoop)
	}

	<-producerDone
	if producerErr != nil {
		q.close()
		_ = g.Wait()
		return nil, hash.ObjectID{}, producerErr
	}

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()
	go func() {
		select {
		case <-allDone:
		case <-gctx.Done():
		}
		q.close()
	}()

	if err := g.Wait(); err != nil {
		return nil, hash.ObjectID{}, err
	}

	if !d.wl.IsEmpty() {
		return nil, hash.ObjectID{}, &UnresolvedDeltasError{Count: d.wl.Count()}
	}

	expected := packHash.Sum()

	trailer, err := readPackTrailer(er)
	if err != nil {
		return nil, hash.ObjectID{}, err
	}

	if !trailer.Equal(expected) {
		return nil, hash.ObjectID{}, ErrPackChecksumMismatch
	}

	d.mu.Lock()
	entries := append([]IndexEntry(nil), d.indexEntries...)
	d.mu.Unlock()

	return entries, trailer, nil
}

func readPackHeader(er *entryReader) (Version, uint32, error) {
	var magic [4]byte
	if _, err := io.ReadFull(er, magic[:]); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
	}
	if magic != Signature {
		return 0, 0, ErrBadMagic
	}

	verBytes, err := packbinary.ReadUint32(er)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
	}
	version := Version(verBytes)
	if !version.Supported() {
		return 0, 0, ErrUnsupportedVersion
	}

	count, err := packbinary.ReadUint32(er)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
	}

	return version, count, nil
}

func readPackTrailer(er *entryReader) (hash.ObjectID, error) {
	buf := make([]byte, hash.ActiveAlgorithm().Size())
	if _, err := io.ReadFull(er, buf); err != nil {
		return hash.ObjectID{}, fmt.Errorf("pack: reading trailer: %w", err)
	}
	return hash.New(buf)
}

// readOneEntry parses a single entry header and fully inflates its
// zlib-compressed payload, returning the raw (undeltified or delta
// instruction stream) bytes plus the CRC-32 over the compressed bytes
// consumed for this entry, starting at the entry's own offset.
func readOneEntry(er *entryReader) (rawEntry, error) {
	offset := er.Offset()
	er.resetCRC()

	first, err := er.ReadByte()
	if err != nil {
		return rawEntry{}, fmt.Errorf("%w: %v", ErrMalformedEntryHdr, err)
	}

	kindBits := (first >> 4) & 0x07
	kind, ok := object.KindFromPackTypeBits(kindBits)
	if !ok {
		return rawEntry{}, fmt.Errorf("%w: kind bits %d", ErrUnknownObjectKind, kindBits)
	}

	size := uint64(first & 0x0f)
	if first&0x80 != 0 {
		size, err = packbinary.ReadEntrySizeContinuation(er, size)
		if err != nil {
			return rawEntry{}, fmt.Errorf("%w: %v", ErrMalformedEntryHdr, err)
		}
	}

	hdr := PackEntryHeader{Offset: offset, Kind: kind, DecodedSize: int64(size)}

	switch kind {
	case object.OfsDelta:
		back, err := packbinary.ReadOfsDeltaOffset(er)
		if err != nil {
			return rawEntry{}, fmt.Errorf("%w: %v", ErrMalformedOfsDelta, err)
		}
		baseOffset := offset - int64(back)
		if baseOffset < 0 || baseOffset >= offset {
			return rawEntry{}, fmt.Errorf("%w: base offset %d not before entry at %d", ErrMalformedPack, baseOffset, offset)
		}
		hdr.Base.OffsetBack = int64(back)
	case object.RefDelta:
		idBuf := make([]byte, hash.ActiveAlgorithm().Size())
		if _, err := io.ReadFull(er, idBuf); err != nil {
			return rawEntry{}, fmt.Errorf("%w: reading ref-delta base id: %v", ErrMalformedEntryHdr, err)
		}
		id, err := hash.New(idBuf)
		if err != nil {
			return rawEntry{}, err
		}
		hdr.Base.ID = id
	}

	zr, err := zlib.NewReader(er)
	if err != nil {
		return rawEntry{}, fmt.Errorf("%w: %v", ErrZlib, err)
	}
	var out bytes.Buffer
	if _, err := io.Copy(&out, zr); err != nil {
		zr.Close()
		return rawEntry{}, fmt.Errorf("%w: %v", ErrZlib, err)
	}
	if err := zr.Close(); err != nil {
		return rawEntry{}, fmt.Errorf("%w: %v", ErrZlib, err)
	}

	return rawEntry{header: hdr, data: out.Bytes(), crc32: er.crc.Sum32()}, nil
}

// resolve attempts to fully resolve e. If it is a delta entry whose base
// is not yet cached, it registers on the waitlist instead of failing.
func (d *Decoder) resolve(ctx context.Context, e rawEntry, q *entryQueue, sink Sink) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !e.header.Kind.IsDelta() {
		return d.finish(e.header.Offset, e.header.Kind, e.data, 0, e.crc32, e.memCost, q, sink)
	}

	baseID, depth, ready := d.checkOrRegisterBase(e)
	if !ready {
		return nil
	}

	baseEntry, ok := d.cache.Get(baseID)
	if !ok {
		// checkOrRegisterBase established readiness under mu, so the
		// cache entry exists; a miss here means its spilled bytes could
		// not be read back from disk (cache.Get reports a failed spill
		// read as a miss). That can never resolve no matter how long
		// this entry waits, so surface it rather than registering it
		// into a wait that would hang until end-of-stream.
		return ErrDeltaBaseUnavailable
	}

	if depth > d.cfg.MaxDeltaChainDepth {
		return ErrDeltaChainTooDeep
	}

	result, err := delta.ApplyStream(baseEntry.Bytes, e.data)
	if err != nil {
		return err
	}

	return d.finish(e.header.Offset, baseEntry.Kind, result, depth, e.crc32, e.memCost, q, sink)
}

// checkOrRegisterBase atomically determines whether e's delta base is
// already resolved. If it is not, e is registered on the waitlist in the
// very same critical section finish uses to publish a base's arrival and
// drain its dependents, so the two can never interleave such that a
// registration lands just after the drain that would have woken it —
// the lost-wakeup race a check-then-register pair on separate locks
// would otherwise allow.
func (d *Decoder) checkOrRegisterBase(e rawEntry) (baseID hash.ObjectID, depth int, ready bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch e.header.Kind {
	case object.OfsDelta:
		baseOffset := e.header.Offset - e.header.Base.OffsetBack
		id, haveBase := d.offsetToID[baseOffset]
		if !haveBase || !d.cache.Contains(id) {
			d.wl.RegisterByOffset(baseOffset, waitlist.Entry{EntryOffset: e.header.Offset, Payload: e})
			return hash.ObjectID{}, 0, false
		}
		baseID = id
	case object.RefDelta:
		baseID = e.header.Base.ID
		if !d.cache.Contains(baseID) {
			d.wl.RegisterByID(baseID, waitlist.Entry{EntryOffset: e.header.Offset, Payload: e})
			return hash.ObjectID{}, 0, false
		}
	}

	return baseID, d.chainDepth[baseID] + 1, true
}

// finish is reached once an entry's final bytes are known (either a raw
// base object or the output of a delta application): compute its ID,
// publish it and wake any dependents (under mu, matching
// checkOrRegisterBase), cache it, and dispatch it to the sink.
func (d *Decoder) finish(offset int64, kind object.Kind, data []byte, depth int, crc32 uint32, memCost int64, q *entryQueue, sink Sink) error {
	defer d.memSem.Release(memCost)

	obj, err := object.Decode(kind, data)
	if err != nil {
		return err
	}
	id, err := obj.ComputeID()
	if err != nil {
		return err
	}

	// Large objects stream straight to the disk tier rather than ever
	// occupying the in-memory budget: cache.Insert below would briefly
	// hold the whole object resident before eviction could spill it
	// back out, and a plain "skip caching" would leave offsetToID
	// pointing at an id the cache can never produce, orphaning any
	// dependent delta on the waitlist forever. InsertSpilled keeps the
	// id genuinely resolvable (Contains/Get both still work) without
	// ever charging it against the RAM tier.
	streamThreshold := d.cfg.LargeObjectStreamingThresholdBytes
	stream := streamThreshold > 0 && int64(len(data)) >= streamThreshold

	d.mu.Lock()
	if _, dup := d.seen[id]; dup {
		d.mu.Unlock()
		return &DuplicateObjectError{ID: id}
	}
	d.seen[id] = struct{}{}

	if stream {
		if err := d.cache.InsertSpilled(id, kind, data); err != nil {
			d.mu.Unlock()
			return fmt.Errorf("%w: %v", ErrSpillFailed, err)
		}
	} else {
		if err := d.cache.Insert(id, kind, data); err != nil {
			d.mu.Unlock()
			return fmt.Errorf("%w: %v", ErrSpillFailed, err)
		}
	}

	d.offsetToID[offset] = id
	d.chainDepth[id] = depth
	d.indexEntries = append(d.indexEntries, IndexEntry{ID: id, Offset: offset, CRC32: crc32})

	var deps []waitlist.Entry
	deps = append(deps, d.wl.TakeByOffset(offset)...)
	deps = append(deps, d.wl.TakeByID(id)...)
	d.mu.Unlock()

	if err := sink(Entry{ID: id, Kind: kind, Bytes: data, Offset: offset, CRC32: crc32}); err != nil {
		return err
	}

	for _, dep := range deps {
		q.push(dep.Payload.(rawEntry))
	}

	return nil
}
