package pack

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packforge/packengine/cache"
	"github.com/packforge/packengine/config"
	"github.com/packforge/packengine/object"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(4*1024*1024, cache.WithSpillDirectory(t.TempDir()))
	require.NoError(t, err)
	return c
}

func testConfig() config.Config {
	cfg, _ := config.WithDefaults(config.Config{WorkerThreads: 4})
	return cfg
}

func encodePack(t *testing.T, objs []ObjectSource) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := NewEncoder(&buf, nil)
	_, err := enc.Encode(objs)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	objs := []ObjectSource{
		{Kind: object.Blob, Payload: []byte("hello world")},
		{Kind: object.Blob, Payload: []byte("second blob")},
	}
	data := encodePack(t, objs)

	dec := NewDecoder(testConfig(), newTestCache(t))

	var got []Entry
	sink := func(e Entry) error {
		got = append(got, e)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, trailer, err := dec.Decode(ctx, bytes.NewReader(data), sink, Options{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Len(t, entries, 2)
	assert.False(t, trailer.IsZero())

	payloads := map[string]bool{}
	for _, e := range got {
		payloads[string(e.Bytes)] = true
	}
	assert.True(t, payloads["hello world"])
	assert.True(t, payloads["second blob"])
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	dec := NewDecoder(testConfig(), newTestCache(t))
	_, _, err := dec.Decode(context.Background(), bytes.NewReader([]byte("NOPE1234567890")), func(Entry) error { return nil }, Options{})
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestDecodeDetectsDuplicateObjects(t *testing.T) {
	objs := []ObjectSource{
		{Kind: object.Blob, Payload: []byte("same content")},
		{Kind: object.Blob, Payload: []byte("same content")},
	}
	data := encodePack(t, objs)

	dec := NewDecoder(testConfig(), newTestCache(t))
	_, _, err := dec.Decode(context.Background(), bytes.NewReader(data), func(Entry) error { return nil }, Options{})

	var dup *DuplicateObjectError
	assert.ErrorAs(t, err, &dup)
}

func TestDecodeReportsProgress(t *testing.T) {
	objs := []ObjectSource{
		{Kind: object.Blob, Payload: []byte("one")},
		{Kind: object.Blob, Payload: []byte("two")},
		{Kind: object.Blob, Payload: []byte("three")},
	}
	data := encodePack(t, objs)

	dec := NewDecoder(testConfig(), newTestCache(t))

	calls := 0
	opts := Options{Progress: func(decoded, total int) {
		calls++
		assert.LessOrEqual(t, decoded, total)
	}}

	_, _, err := dec.Decode(context.Background(), bytes.NewReader(data), func(Entry) error { return nil }, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}
