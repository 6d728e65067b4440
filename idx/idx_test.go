package idx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packforge/packengine/hash"
)

func TestBuildEncodeAndLookupRoundTrip(t *testing.T) {
	packChecksum := hash.Of([]byte("pack content"))
	b := NewBuilder(packChecksum)

	ids := make([]hash.ObjectID, 0, 50)
	for i := 0; i < 50; i++ {
		id := hash.Of([]byte{byte(i), byte(i * 7), byte(i * 13)})
		ids = append(ids, id)
		b.Add(id, int64(i*100), uint32(i))
	}

	index, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 50, index.Count())

	var buf bytes.Buffer
	require.NoError(t, index.Encode(&buf))

	reader, err := Parse(buf.Bytes(), ids[0].Size())
	require.NoError(t, err)
	assert.Equal(t, 50, reader.Count())
	assert.True(t, reader.PackChecksum().Equal(packChecksum))

	for i, id := range ids {
		offset, crc, ok := reader.Lookup(id)
		require.True(t, ok)
		assert.Equal(t, int64(i*100), offset)
		assert.Equal(t, uint32(i), crc)
	}
}

func TestLookupMissingIDFails(t *testing.T) {
	packChecksum := hash.Of([]byte("pack"))
	b := NewBuilder(packChecksum)
	id := hash.Of([]byte("present"))
	b.Add(id, 0, 1)

	index, err := b.Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, index.Encode(&buf))

	reader, err := Parse(buf.Bytes(), id.Size())
	require.NoError(t, err)

	_, _, ok := reader.Lookup(hash.Of([]byte("absent")))
	assert.False(t, ok)
}

func TestBuildRejectsDuplicateIDs(t *testing.T) {
	b := NewBuilder(hash.Of([]byte("pack")))
	id := hash.Of([]byte("dup"))
	b.Add(id, 0, 1)
	b.Add(id, 10, 2)

	_, err := b.Build()
	assert.Error(t, err)
}

func TestParseRejectsBadMagic(t *testing.T) {
	data := make([]byte, 4+4+256*4+40)
	_, err := Parse(data, 20)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestLargeOffsetUsesExtensionTable(t *testing.T) {
	packChecksum := hash.Of([]byte("pack"))
	b := NewBuilder(packChecksum)

	smallID := hash.Of([]byte("small"))
	bigID := hash.Of([]byte("big"))
	b.Add(smallID, 123, 1)
	b.Add(bigID, int64(1)<<33, 2)

	index, err := b.Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, index.Encode(&buf))

	reader, err := Parse(buf.Bytes(), smallID.Size())
	require.NoError(t, err)

	offset, _, ok := reader.Lookup(bigID)
	require.True(t, ok)
	assert.Equal(t, int64(1)<<33, offset)
}
