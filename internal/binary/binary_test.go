package binary

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint32RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, 0xdeadbeef))

	got, err := ReadUint32(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), got)
}

func TestEntrySizeHeaderRoundTrip(t *testing.T) {
	sizes := []uint64{0, 1, 15, 16, 127, 128, 4096, 1 << 20, 1 << 40}

	for _, size := range sizes {
		var buf bytes.Buffer
		require.NoError(t, WriteEntrySizeHeader(&buf, 3, size))

		r := bufio.NewReader(&buf)
		first, err := r.ReadByte()
		require.NoError(t, err)

		got := uint64(first & 0x0f)
		if first&0x80 != 0 {
			got, err = ReadEntrySizeContinuation(r, got)
			require.NoError(t, err)
		}
		assert.Equal(t, size, got, "size=%d", size)
	}
}

func TestOfsDeltaOffsetRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 16383, 16384, 1 << 20, 1 << 35}

	for _, v := range values {
		var buf bytes.Buffer
		require.NoError(t, WriteOfsDeltaOffset(&buf, v))

		r := bufio.NewReader(&buf)
		got, err := ReadOfsDeltaOffset(r)
		require.NoError(t, err)
		assert.Equal(t, v, got, "v=%d", v)
	}
}
