// Package delta implements Git's copy/insert delta instruction stream:
// parsing, application against a base object, and encoding (used by
// tests and by any future delta-aware encoder to build fixtures).
package delta

import (
	"bytes"
	"errors"
	"fmt"
)

// Op is one delta instruction: either Copy a span of the base, or Insert
// literal bytes taken from the delta stream itself.
type Op struct {
	// Copy, when true, means this op copies Len bytes from the base
	// starting at Offset. Otherwise it inserts Bytes.
	Copy   bool
	Offset uint32
	Len    uint32
	Bytes  []byte
}

// Errors returned while parsing or applying a delta stream.
var (
	ErrTruncated       = errors.New("delta: truncated stream")
	ErrInvalidCommand  = errors.New("delta: invalid command byte")
	ErrOutOfBounds     = errors.New("delta: copy exceeds base length")
	ErrSizeMismatch    = errors.New("delta: produced size does not match declared result size")
	ErrChainTooDeep    = errors.New("delta: chain exceeds configured maximum depth")
	ErrDeclaredBaseLen = errors.New("delta: declared base length does not match actual base")
)

// ParseSizes reads the two leading varints of a delta stream: the
// expected base length and the expected result length. It returns the
// remainder of the stream after both varints.
func ParseSizes(stream []byte) (baseLen, resultLen uint64, rest []byte, err error) {
	baseLen, rest, err = readVarint(stream)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w: base length: %w", ErrTruncated, err)
	}
	resultLen, rest, err = readVarint(rest)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w: result length: %w", ErrTruncated, err)
	}
	return baseLen, resultLen, rest, nil
}

// readVarint decodes Git's 7-bit little-endian varint: each byte
// contributes 7 bits, the high bit signals continuation.
func readVarint(b []byte) (uint64, []byte, error) {
	var val uint64
	var shift uint
	for i := 0; i < len(b); i++ {
		c := b[i]
		val |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return val, b[i+1:], nil
		}
		shift += 7
	}
	return 0, nil, errTruncatedVarint
}

var errTruncatedVarint = errors.New("delta: truncated varint")

// ParseOps decodes the op stream following the two size varints. Insert
// ops' Bytes are sub-slices of stream, not copies; callers that retain
// Ops past the lifetime of stream should copy them.
func ParseOps(stream []byte) ([]Op, error) {
	var ops []Op
	for len(stream) > 0 {
		cmd := stream[0]
		stream = stream[1:]

		if cmd&0x80 != 0 {
			op, rest, err := parseCopy(cmd, stream)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
			stream = rest
			continue
		}

		if cmd == 0 {
			return nil, fmt.Errorf("%w: reserved opcode 0", ErrInvalidCommand)
		}

		n := int(cmd)
		if len(stream) < n {
			return nil, fmt.Errorf("%w: insert of %d bytes", ErrTruncated, n)
		}
		ops = append(ops, Op{Bytes: stream[:n]})
		stream = stream[n:]
	}
	return ops, nil
}

var copyOffsetBits = []struct {
	mask  byte
	shift uint
}{
	{0x01, 0}, {0x02, 8}, {0x04, 16}, {0x08, 24},
}

var copySizeBits = []struct {
	mask  byte
	shift uint
}{
	{0x10, 0}, {0x20, 8}, {0x40, 16},
}

func parseCopy(cmd byte, stream []byte) (Op, []byte, error) {
	var offset, size uint32
	for _, b := range copyOffsetBits {
		if cmd&b.mask != 0 {
			if len(stream) == 0 {
				return Op{}, nil, fmt.Errorf("%w: copy offset", ErrTruncated)
			}
			offset |= uint32(stream[0]) << b.shift
			stream = stream[1:]
		}
	}
	for _, b := range copySizeBits {
		if cmd&b.mask != 0 {
			if len(stream) == 0 {
				return Op{}, nil, fmt.Errorf("%w: copy size", ErrTruncated)
			}
			size |= uint32(stream[0]) << b.shift
			stream = stream[1:]
		}
	}
	if size == 0 {
		size = 0x10000
	}
	return Op{Copy: true, Offset: offset, Len: size}, stream, nil
}

// Apply reconstructs the result bytes of applying ops to base. resultLen
// is the declared target length from ParseSizes, used to detect
// truncated or overrun delta streams.
func Apply(base []byte, ops []Op, resultLen uint64) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(int(resultLen))

	for _, op := range ops {
		if op.Copy {
			end := uint64(op.Offset) + uint64(op.Len)
			if end > uint64(len(base)) {
				return nil, fmt.Errorf("%w: offset=%d len=%d base=%d", ErrOutOfBounds, op.Offset, op.Len, len(base))
			}
			out.Write(base[op.Offset:end])
		} else {
			out.Write(op.Bytes)
		}
	}

	if uint64(out.Len()) != resultLen {
		return nil, fmt.Errorf("%w: got %d want %d", ErrSizeMismatch, out.Len(), resultLen)
	}
	return out.Bytes(), nil
}

// ApplyStream is a convenience wrapper combining ParseSizes, ParseOps and
// Apply, validating the base's actual length against the stream's
// declared base length.
func ApplyStream(base []byte, stream []byte) ([]byte, error) {
	baseLen, resultLen, rest, err := ParseSizes(stream)
	if err != nil {
		return nil, err
	}
	if baseLen != uint64(len(base)) {
		return nil, fmt.Errorf("%w: declared %d actual %d", ErrDeclaredBaseLen, baseLen, len(base))
	}
	ops, err := ParseOps(rest)
	if err != nil {
		return nil, err
	}
	return Apply(base, ops, resultLen)
}

// EncodeSizes writes the base/result length varint pair that must
// prefix any delta stream.
func EncodeSizes(baseLen, resultLen uint64) []byte {
	var buf bytes.Buffer
	writeVarint(&buf, baseLen)
	writeVarint(&buf, resultLen)
	return buf.Bytes()
}

func writeVarint(buf *bytes.Buffer, v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			buf.WriteByte(b | 0x80)
		} else {
			buf.WriteByte(b)
			return
		}
	}
}

// EncodeOps serialises ops (without the leading size varints) back into
// a delta instruction stream. Copy lengths/offsets above the per-op
// 4-byte/3-byte encodable range, or insert runs above 127 bytes, are
// split automatically.
func EncodeOps(ops []Op) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		if op.Copy {
			off, n := op.Offset, op.Len
			for n > 0xffffff {
				encodeCopy(&buf, off, 0xffffff)
				off += 0xffffff
				n -= 0xffffff
			}
			encodeCopy(&buf, off, n)
			continue
		}
		b := op.Bytes
		for len(b) > 127 {
			buf.WriteByte(127)
			buf.Write(b[:127])
			b = b[127:]
		}
		if len(b) > 0 {
			buf.WriteByte(byte(len(b)))
			buf.Write(b)
		}
	}
	return buf.Bytes()
}

func encodeCopy(buf *bytes.Buffer, offset, size uint32) {
	code := byte(0x80)
	var tail []byte

	put := func(v uint32, mask byte) {
		tail = append(tail, byte(v))
		code |= mask
	}

	if offset&0xff != 0 {
		put(offset&0xff, 0x01)
	}
	if (offset>>8)&0xff != 0 {
		put((offset>>8)&0xff, 0x02)
	}
	if (offset>>16)&0xff != 0 {
		put((offset>>16)&0xff, 0x04)
	}
	if (offset>>24)&0xff != 0 {
		put((offset>>24)&0xff, 0x08)
	}

	encSize := size
	if encSize == 0x10000 {
		encSize = 0
	}
	if encSize&0xff != 0 {
		put(encSize&0xff, 0x10)
	}
	if (encSize>>8)&0xff != 0 {
		put((encSize>>8)&0xff, 0x20)
	}
	if (encSize>>16)&0xff != 0 {
		put((encSize>>16)&0xff, 0x40)
	}

	buf.WriteByte(code)
	buf.Write(tail)
}
