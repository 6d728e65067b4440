package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packforge/packengine/hash"
)

func TestTreeEncodeSortsCanonically(t *testing.T) {
	blobID := hash.Of([]byte("a"))
	subID := hash.Of([]byte("b"))

	tree := &TreeObject{
		Entries: []TreeEntry{
			{Mode: ModeRegular, Name: "foo.c", ID: blobID},
			{Mode: ModeDir, Name: "foo", ID: subID},
		},
	}

	encoded := encodeTree(tree)
	decoded, err := decodeTree(encoded)
	require.NoError(t, err)
	require.Len(t, decoded.Entries, 2)

	assert.Equal(t, "foo.c", decoded.Entries[0].Name)
	assert.Equal(t, "foo", decoded.Entries[1].Name)
}

func TestDecodeTreeRejectsOutOfOrderEntries(t *testing.T) {
	blobID := hash.Of([]byte("a"))

	var buf []byte
	buf = append(buf, []byte(ModeRegular.String()+" zzz\x00")...)
	buf = append(buf, blobID.Bytes()...)
	buf = append(buf, []byte(ModeRegular.String()+" aaa\x00")...)
	buf = append(buf, blobID.Bytes()...)

	_, err := decodeTree(buf)
	assert.Error(t, err)
}
