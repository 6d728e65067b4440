package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packforge/packengine/hash"
)

func commitPayload(treeHex string) string {
	return "tree " + treeHex + "\n" +
		"author A U Thor <a@example.com> 1234567890 +0000\n" +
		"committer A U Thor <a@example.com> 1234567890 +0000\n" +
		"\n" +
		"initial commit\n"
}

func TestDecodeCommitRoundTrip(t *testing.T) {
	treeID := hash.Of([]byte("tree-content"))
	payload := commitPayload(treeID.Hex())

	obj, err := Decode(Commit, []byte(payload))
	require.NoError(t, err)

	got, ok := obj.Commit.Tree()
	require.True(t, ok)
	assert.True(t, got.Equal(treeID))

	encoded, err := obj.Encode()
	require.NoError(t, err)
	assert.Equal(t, payload, string(encoded))
}

func TestDecodeCommitMissingTreeFails(t *testing.T) {
	payload := "author A U Thor <a@example.com> 1234567890 +0000\n" +
		"committer A U Thor <a@example.com> 1234567890 +0000\n\nmsg\n"

	_, err := Decode(Commit, []byte(payload))
	assert.Error(t, err)
}

func TestDecodeCommitPreservesContinuationLines(t *testing.T) {
	treeID := hash.Of([]byte("tree-content"))
	payload := "tree " + treeID.Hex() + "\n" +
		"author A U Thor <a@example.com> 1234567890 +0000\n" +
		"committer A U Thor <a@example.com> 1234567890 +0000\n" +
		"gpgsig -----BEGIN PGP SIGNATURE-----\n" +
		" abcdef\n" +
		" -----END PGP SIGNATURE-----\n" +
		"\n" +
		"signed commit\n"

	obj, err := Decode(Commit, []byte(payload))
	require.NoError(t, err)

	encoded, err := obj.Encode()
	require.NoError(t, err)
	assert.Equal(t, payload, string(encoded))
}
