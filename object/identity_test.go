package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignatureRoundTrip(t *testing.T) {
	raw := "A U Thor <a@example.com> 1234567890 +0530"

	sig, err := ParseSignature(raw)
	require.NoError(t, err)
	assert.Equal(t, "A U Thor", sig.Name)
	assert.Equal(t, "a@example.com", sig.Email)
	assert.Equal(t, raw, sig.String())
}

func TestParseSignatureNegativeOffset(t *testing.T) {
	raw := "Someone <s@example.com> 1000 -0700"
	sig, err := ParseSignature(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, sig.String())
}

func TestParseSignatureRejectsMissingAngleBrackets(t *testing.T) {
	_, err := ParseSignature("no brackets here 123 +0000")
	assert.Error(t, err)
}
