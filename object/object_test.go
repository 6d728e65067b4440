package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobRoundTrip(t *testing.T) {
	obj, err := Decode(Blob, []byte("hello world"))
	require.NoError(t, err)

	payload, err := obj.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), payload)

	framed, err := obj.FramedEncode()
	require.NoError(t, err)
	assert.Equal(t, "blob 11\x00hello world", string(framed))
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode(Invalid, []byte("x"))
	require.Error(t, err)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestComputeIDIsStableAcrossEncodes(t *testing.T) {
	obj, err := Decode(Blob, []byte("stable content"))
	require.NoError(t, err)

	id1, err := obj.ComputeID()
	require.NoError(t, err)
	id2, err := obj.ComputeID()
	require.NoError(t, err)

	assert.True(t, id1.Equal(id2))
}
