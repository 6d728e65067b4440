package object

import (
	"bytes"

	"github.com/packforge/packengine/hash"
)

// Header is one raw header line of a commit or tag object. Value may
// contain embedded "\n "-prefixed continuation lines (as Git uses for
// multi-line "gpgsig"/"mergetag" blocks); storing it verbatim is what
// lets Encode reproduce the exact original bytes for headers this
// implementation doesn't otherwise interpret.
type Header struct {
	Key   string
	Value string
}

// CommitObject is the decoded form of a Git commit. All header lines are
// preserved in Headers, in their original order, so that unknown headers
// (encoding, gpgsig, mergetag, ...) round-trip byte for byte even though
// this package only interprets tree/parent/author/committer itself.
type CommitObject struct {
	Headers []Header
	Message string
}

// Tree returns the commit's tree ID.
func (c *CommitObject) Tree() (hash.ObjectID, bool) {
	return c.firstHeaderID("tree")
}

// Parents returns the commit's parent IDs, in header order.
func (c *CommitObject) Parents() []hash.ObjectID {
	var out []hash.ObjectID
	for _, h := range c.Headers {
		if h.Key == "parent" {
			if id, err := hash.FromHex(h.Value); err == nil {
				out = append(out, id)
			}
		}
	}
	return out
}

// Author returns the raw "author" header value (name, email, time, tz).
func (c *CommitObject) Author() (string, bool) {
	return c.firstHeaderValue("author")
}

// Committer returns the raw "committer" header value.
func (c *CommitObject) Committer() (string, bool) {
	return c.firstHeaderValue("committer")
}

// Encoding returns the optional "encoding" header value, naming the
// charset of Message when it is not UTF-8.
func (c *CommitObject) Encoding() (string, bool) {
	return c.firstHeaderValue("encoding")
}

func (c *CommitObject) firstHeaderValue(key string) (string, bool) {
	for _, h := range c.Headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return "", false
}

func (c *CommitObject) firstHeaderID(key string) (hash.ObjectID, bool) {
	v, ok := c.firstHeaderValue(key)
	if !ok {
		return hash.ObjectID{}, false
	}
	id, err := hash.FromHex(v)
	if err != nil {
		return hash.ObjectID{}, false
	}
	return id, true
}

func decodeCommit(payload []byte) (*CommitObject, error) {
	headers, message, err := splitHeaderBlock(payload, Commit)
	if err != nil {
		return nil, err
	}

	c := &CommitObject{Headers: headers, Message: message}
	if _, ok := c.Tree(); !ok {
		return nil, &ParseError{Kind: Commit, Reason: "missing or invalid tree header"}
	}
	if _, ok := c.Author(); !ok {
		return nil, &ParseError{Kind: Commit, Reason: "missing author header"}
	}
	if _, ok := c.Committer(); !ok {
		return nil, &ParseError{Kind: Commit, Reason: "missing committer header"}
	}
	return c, nil
}

func encodeCommit(c *CommitObject) []byte {
	return encodeHeaderBlock(c.Headers, c.Message)
}

// splitHeaderBlock implements the shared commit/tag framing: a sequence
// of "key value" lines (continuation lines begin with a single space),
// a blank line, then a free-form message.
func splitHeaderBlock(payload []byte, kind Kind) ([]Header, string, error) {
	sep := []byte("\n\n")
	idx := bytes.Index(payload, sep)
	if idx < 0 {
		return nil, "", &ParseError{Kind: kind, Reason: "missing blank line before message"}
	}

	headerBytes := payload[:idx]
	message := string(payload[idx+len(sep):])

	var headers []Header
	for _, line := range bytes.Split(headerBytes, []byte("\n")) {
		if len(line) > 0 && line[0] == ' ' {
			if len(headers) == 0 {
				return nil, "", &ParseError{Kind: kind, Reason: "continuation line before any header"}
			}
			headers[len(headers)-1].Value += "\n" + string(line)
			continue
		}
		if len(line) == 0 {
			continue
		}
		sp := bytes.IndexByte(line, ' ')
		if sp < 0 {
			headers = append(headers, Header{Key: string(line)})
			continue
		}
		headers = append(headers, Header{Key: string(line[:sp]), Value: string(line[sp+1:])})
	}

	return headers, message, nil
}

func encodeHeaderBlock(headers []Header, message string) []byte {
	var buf bytes.Buffer
	for _, h := range headers {
		buf.WriteString(h.Key)
		if h.Value != "" {
			buf.WriteByte(' ')
			buf.WriteString(h.Value)
		}
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.WriteString(message)
	return buf.Bytes()
}
