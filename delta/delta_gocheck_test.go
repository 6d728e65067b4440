package delta

import (
	"bytes"
	"testing"

	. "gopkg.in/check.v1"
)

func TestGocheck(t *testing.T) { TestingT(t) }

type SizesSuite struct{}

var _ = Suite(&SizesSuite{})

func (s *SizesSuite) TestParseSizesRoundTripsThroughEncodeSizes(c *C) {
	stream := EncodeSizes(12345, 7)
	baseLen, resultLen, rest, err := ParseSizes(stream)
	c.Assert(err, IsNil)
	c.Assert(baseLen, Equals, uint64(12345))
	c.Assert(resultLen, Equals, uint64(7))
	c.Assert(rest, HasLen, 0)
}

func (s *SizesSuite) TestParseSizesRejectsTruncatedVarint(c *C) {
	_, _, _, err := ParseSizes([]byte{0x80})
	c.Assert(err, NotNil)
}

type OpsSuite struct{}

var _ = Suite(&OpsSuite{})

func (s *OpsSuite) TestEncodeOpsSplitsInsertsOverOneTwentySeven(c *C) {
	literal := bytes.Repeat([]byte{'z'}, 300)
	encoded := EncodeOps([]Op{{Bytes: literal}})

	decoded, err := ParseOps(encoded)
	c.Assert(err, IsNil)
	c.Assert(len(decoded) >= 3, Equals, true)

	var rebuilt []byte
	for _, op := range decoded {
		c.Assert(op.Copy, Equals, false)
		rebuilt = append(rebuilt, op.Bytes...)
	}
	c.Assert(rebuilt, DeepEquals, literal)
}

func (s *OpsSuite) TestEncodeOpsRoundTripsCopyOps(c *C) {
	ops := []Op{{Copy: true, Offset: 0x1234, Len: 0x56}}
	decoded, err := ParseOps(EncodeOps(ops))
	c.Assert(err, IsNil)
	c.Assert(decoded, DeepEquals, ops)
}
