package pack

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packforge/packengine/object"
)

func TestEncoderInvokesOnEntryWithIncreasingOffsets(t *testing.T) {
	var buf bytes.Buffer
	var entries []IndexEntry
	enc := NewEncoder(&buf, func(e IndexEntry) {
		entries = append(entries, e)
	})

	objs := []ObjectSource{
		{Kind: object.Blob, Payload: []byte("first")},
		{Kind: object.Blob, Payload: []byte("second, a bit longer")},
	}
	trailer, err := enc.Encode(objs)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(12), entries[0].Offset)
	assert.Greater(t, entries[1].Offset, entries[0].Offset)
	assert.False(t, trailer.IsZero())

	// Trailer is the last hashSize bytes of the stream.
	assert.Equal(t, trailer.Bytes(), buf.Bytes()[buf.Len()-trailer.Size():])
}

func TestEncoderRejectsUnknownKind(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, nil)

	_, err := enc.Encode([]ObjectSource{{Kind: object.Invalid, Payload: []byte("x")}})
	assert.ErrorIs(t, err, ErrUnknownObjectKind)
}
