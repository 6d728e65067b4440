package waitlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packforge/packengine/hash"
)

func TestRegisterAndTakeByOffset(t *testing.T) {
	w := New()
	w.RegisterByOffset(42, Entry{EntryOffset: 100, Payload: "a"})
	w.RegisterByOffset(42, Entry{EntryOffset: 200, Payload: "b"})

	assert.False(t, w.IsEmpty())
	assert.Equal(t, 2, w.Count())

	got := w.TakeByOffset(42)
	require.Len(t, got, 2)
	assert.True(t, w.IsEmpty())

	assert.Empty(t, w.TakeByOffset(42))
}

func TestRegisterAndTakeByID(t *testing.T) {
	w := New()
	id := hash.Of([]byte("base"))
	w.RegisterByID(id, Entry{EntryOffset: 10, Payload: "x"})

	assert.Equal(t, 1, w.Count())
	got := w.TakeByID(id)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].Payload)
	assert.True(t, w.IsEmpty())
}
