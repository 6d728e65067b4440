package object

import "github.com/packforge/packengine/hash"

// TagObject is the decoded form of an annotated Git tag.
type TagObject struct {
	Headers []Header
	Message string
}

// Object returns the ID of the tagged object.
func (t *TagObject) Object() (hash.ObjectID, bool) {
	v, ok := t.firstHeaderValue("object")
	if !ok {
		return hash.ObjectID{}, false
	}
	id, err := hash.FromHex(v)
	if err != nil {
		return hash.ObjectID{}, false
	}
	return id, true
}

// Type returns the kind of the tagged object.
func (t *TagObject) Type() (Kind, bool) {
	v, ok := t.firstHeaderValue("type")
	if !ok {
		return Invalid, false
	}
	k, err := ParseKind(v)
	if err != nil {
		return Invalid, false
	}
	return k, true
}

// Name returns the tag's own name (the "tag" header).
func (t *TagObject) Name() (string, bool) {
	return t.firstHeaderValue("tag")
}

// Tagger returns the raw "tagger" header value.
func (t *TagObject) Tagger() (string, bool) {
	return t.firstHeaderValue("tagger")
}

func (t *TagObject) firstHeaderValue(key string) (string, bool) {
	for _, h := range t.Headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return "", false
}

func decodeTag(payload []byte) (*TagObject, error) {
	headers, message, err := splitHeaderBlock(payload, Tag)
	if err != nil {
		return nil, err
	}

	t := &TagObject{Headers: headers, Message: message}
	if _, ok := t.Object(); !ok {
		return nil, &ParseError{Kind: Tag, Reason: "missing or invalid object header"}
	}
	if _, ok := t.Type(); !ok {
		return nil, &ParseError{Kind: Tag, Reason: "missing or invalid type header"}
	}
	if _, ok := t.Name(); !ok {
		return nil, &ParseError{Kind: Tag, Reason: "missing tag header"}
	}
	return t, nil
}

func encodeTag(t *TagObject) []byte {
	return encodeHeaderBlock(t.Headers, t.Message)
}
