package pack

import (
	"bufio"
	stdhash "hash"
	"io"

	"github.com/packforge/packengine/hash"
)

// entryReader wraps the pack's underlying byte stream with a single
// shared bufio.Reader (so zlib's own internal buffering never
// over-consumes bytes belonging to the next entry) and tees every byte
// actually consumed into the running pack hash and the current entry's
// CRC-32, tracking the absolute offset as it goes. Grounded on the
// scannerReader trick from packfile scanning: one buffered reader for
// the whole scan, with zlib reading directly through it.
type entryReader struct {
	buf      *bufio.Reader
	packHash *hash.StreamHasher
	crc      stdhash.Hash32
	offset   int64
}

func newEntryReader(r io.Reader, packHash *hash.StreamHasher, crc stdhash.Hash32) *entryReader {
	return &entryReader{
		buf:      bufio.NewReaderSize(r, 32*1024),
		packHash: packHash,
		crc:      crc,
	}
}

func (r *entryReader) Read(p []byte) (int, error) {
	n, err := r.buf.Read(p)
	if n > 0 {
		r.offset += int64(n)
		r.packHash.Write(p[:n])
		r.crc.Write(p[:n])
	}
	return n, err
}

func (r *entryReader) ReadByte() (byte, error) {
	b, err := r.buf.ReadByte()
	if err != nil {
		return 0, err
	}
	r.offset++
	r.packHash.Write([]byte{b})
	r.crc.Write([]byte{b})
	return b, nil
}

// resetCRC begins a fresh CRC-32 accounting window for the next entry.
func (r *entryReader) resetCRC() {
	r.crc.Reset()
}

// Offset returns the number of bytes consumed from the stream so far.
func (r *entryReader) Offset() int64 {
	return r.offset
}
