package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodedMessageDefaultsToRawWhenNoEncodingHeader(t *testing.T) {
	c := &CommitObject{Message: "plain utf-8 message\n"}
	got, err := c.DecodedMessage()
	require.NoError(t, err)
	assert.Equal(t, c.Message, got)
}

func TestDecodedMessagePassesThroughExplicitUTF8(t *testing.T) {
	c := &CommitObject{
		Headers: []Header{{Key: "encoding", Value: "UTF-8"}},
		Message: "hello\n",
	}
	got, err := c.DecodedMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello\n", got)
}

func TestDecodedMessageRejectsUnknownEncoding(t *testing.T) {
	c := &CommitObject{
		Headers: []Header{{Key: "encoding", Value: "not-a-real-charset"}},
		Message: "x\n",
	}
	_, err := c.DecodedMessage()
	assert.Error(t, err)
}
