package object

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// DecodedMessage returns c.Message transcoded to UTF-8 using the charset
// named by its optional "encoding" header. Raw bytes are never mutated by
// decode/encode (round-trip always preserves the original bytes
// verbatim); this is a convenience for callers that want to display the
// message and don't want to special-case non-UTF8 commits themselves.
//
// If there is no "encoding" header, or its value already names UTF-8,
// c.Message is returned unchanged.
func (c *CommitObject) DecodedMessage() (string, error) {
	enc, ok := c.Encoding()
	if !ok {
		return c.Message, nil
	}
	return transcodeToUTF8(c.Message, enc)
}

func transcodeToUTF8(s, charset string) (string, error) {
	if strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return s, nil
	}

	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return "", fmt.Errorf("object: unknown message encoding %q: %w", charset, err)
	}
	if enc == nil {
		return "", fmt.Errorf("object: unsupported message encoding %q", charset)
	}

	decoder := enc.NewDecoder()
	r := decoder.Reader(strings.NewReader(s))
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("object: transcoding message from %q: %w", charset, err)
	}
	return string(out), nil
}
