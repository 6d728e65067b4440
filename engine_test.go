package packengine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packforge/packengine/config"
	"github.com/packforge/packengine/hash"
	"github.com/packforge/packengine/object"
	"github.com/packforge/packengine/pack"
)

func TestEndToEndWriteIndexAndRead(t *testing.T) {
	dir := t.TempDir()
	packPath := filepath.Join(dir, "objects.pack")
	idxPath := filepath.Join(dir, "objects.idx")

	objs := []pack.ObjectSource{
		{Kind: object.Blob, Payload: []byte("alpha")},
		{Kind: object.Blob, Payload: []byte("beta, somewhat longer payload")},
	}

	trailer, entries, err := PackWriter{}.Write(packPath, objs)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, IndexWriter{}.Write(idxPath, entries, trailer))

	cfg, err := config.WithDefaults(config.Config{})
	require.NoError(t, err)

	reader, err := Open(packPath, cfg, nil)
	require.NoError(t, err)
	defer reader.Close()

	var decoded []pack.Entry
	_, gotTrailer, err := reader.Decode(context.Background(), nil, func(e pack.Entry) error {
		decoded = append(decoded, e)
		return nil
	}, pack.Options{})
	require.NoError(t, err)
	assert.True(t, gotTrailer.Equal(trailer))
	assert.Len(t, decoded, 2)

	idxReader, err := OpenIndex(idxPath, hash.ActiveAlgorithm().Size())
	require.NoError(t, err)
	defer idxReader.Close()

	for _, e := range entries {
		offset, crc, ok := idxReader.Lookup(e.ID)
		require.True(t, ok)
		assert.Equal(t, e.Offset, offset)
		assert.Equal(t, e.CRC32, crc)
	}
}
