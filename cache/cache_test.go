package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packforge/packengine/hash"
	"github.com/packforge/packengine/object"
)

func TestInsertAndGetRoundTrip(t *testing.T) {
	c, err := New(1024*1024, WithSpillDirectory(t.TempDir()))
	require.NoError(t, err)

	id := hash.Of([]byte("blob content"))
	require.NoError(t, c.Insert(id, object.Blob, []byte("blob content")))

	got, ok := c.Get(id)
	require.True(t, ok)
	assert.Equal(t, object.Blob, got.Kind)
	assert.Equal(t, []byte("blob content"), got.Bytes)
	assert.True(t, c.Contains(id))
}

func TestEvictionSpillsAndStillReadsBack(t *testing.T) {
	// Small budget forces eviction after a couple of inserts.
	c, err := New(200, WithSpillDirectory(t.TempDir()))
	require.NoError(t, err)

	ids := make([]hash.ObjectID, 5)
	for i := range ids {
		data := []byte{byte(i), byte(i), byte(i), byte(i), byte(i)}
		ids[i] = hash.Of(data)
		require.NoError(t, c.Insert(ids[i], object.Blob, data))
	}

	for i, id := range ids {
		got, ok := c.Get(id)
		require.True(t, ok, "entry %d should still be retrievable after spill", i)
		assert.Equal(t, byte(i), got.Bytes[0])
	}
}

func TestGetMissingReturnsFalse(t *testing.T) {
	c, err := New(1024, WithSpillDirectory(t.TempDir()))
	require.NoError(t, err)

	_, ok := c.Get(hash.Of([]byte("never inserted")))
	assert.False(t, ok)
}

func TestClearRemovesEntries(t *testing.T) {
	c, err := New(1024, WithSpillDirectory(t.TempDir()))
	require.NoError(t, err)

	id := hash.Of([]byte("x"))
	require.NoError(t, c.Insert(id, object.Blob, []byte("x")))
	require.NoError(t, c.Clear())

	assert.False(t, c.Contains(id))
	assert.Equal(t, int64(0), c.Size())
}
