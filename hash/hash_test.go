package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfAndFromHex(t *testing.T) {
	id := Of([]byte("blob 5\x00hello"))
	assert.Equal(t, Size1, id.Size())

	roundTrip, err := FromHex(id.Hex())
	require.NoError(t, err)
	assert.True(t, id.Equal(roundTrip))
}

func TestNewRejectsWrongWidth(t *testing.T) {
	_, err := New(make([]byte, 13))
	assert.Error(t, err)
}

func TestCompareAndSort(t *testing.T) {
	a := Of([]byte("a"))
	b := Of([]byte("b"))
	c := Of([]byte("c"))

	ids := []ObjectID{c, a, b}
	Sort(ids)

	for i := 1; i < len(ids); i++ {
		assert.LessOrEqual(t, ids[i-1].Compare(ids[i]), 0)
	}
}

func TestZeroIsAllZeroBytes(t *testing.T) {
	z := Zero()
	assert.True(t, z.IsZero())
	for _, b := range z.Bytes() {
		assert.Equal(t, byte(0), b)
	}
}

func TestStreamHasherMatchesOf(t *testing.T) {
	data := []byte("commit 123\x00some content here")

	sh := NewStreamHasher()
	_, err := sh.Write(data)
	require.NoError(t, err)

	assert.True(t, sh.Sum().Equal(Of(data)))
}

func TestFromHexRejectsWrongLength(t *testing.T) {
	_, err := FromHex("abcd")
	assert.ErrorIs(t, err, ErrInvalidHexLength)
}

func TestSetAlgorithmRejectsUnknown(t *testing.T) {
	err := SetAlgorithm(Algorithm(99))
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}
