// Package object implements the canonical encoding, decoding and
// self-identification of Git's four logical object kinds: blob, tree,
// commit and tag.
package object

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/packforge/packengine/hash"
)

// ParseError reports a structural problem found while decoding an
// object's payload for a given kind.
type ParseError struct {
	Kind   Kind
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("object: malformed %s: %s", e.Kind, e.Reason)
}

// Object is a decoded Git object: a kind tag plus whatever payload
// interpretation that kind calls for. Exactly one of Blob/Tree/Commit/Tag
// is populated, selected by Kind.
type Object struct {
	Kind Kind

	// Blob holds the opaque payload when Kind == Blob.
	Blob []byte

	Tree   *TreeObject
	Commit *CommitObject
	Tag    *TagObject
}

// Decode validates and parses payload according to kind, returning a
// structured Object. Commit and tag decoding tolerates unknown header
// lines by preserving their raw bytes, so Encode(Decode(b)) == b exactly.
func Decode(kind Kind, payload []byte) (*Object, error) {
	switch kind {
	case Blob:
		return &Object{Kind: Blob, Blob: append([]byte(nil), payload...)}, nil
	case Tree:
		t, err := decodeTree(payload)
		if err != nil {
			return nil, err
		}
		return &Object{Kind: Tree, Tree: t}, nil
	case Commit:
		c, err := decodeCommit(payload)
		if err != nil {
			return nil, err
		}
		return &Object{Kind: Commit, Commit: c}, nil
	case Tag:
		g, err := decodeTag(payload)
		if err != nil {
			return nil, err
		}
		return &Object{Kind: Tag, Tag: g}, nil
	default:
		return nil, &ParseError{Kind: kind, Reason: "unknown object kind"}
	}
}

// Encode returns the canonical payload bytes for o (unframed).
func (o *Object) Encode() ([]byte, error) {
	switch o.Kind {
	case Blob:
		return append([]byte(nil), o.Blob...), nil
	case Tree:
		return encodeTree(o.Tree), nil
	case Commit:
		return encodeCommit(o.Commit), nil
	case Tag:
		return encodeTag(o.Tag), nil
	default:
		return nil, &ParseError{Kind: o.Kind, Reason: "unknown object kind"}
	}
}

// FramedEncode returns "<kind> <size>\0" followed by the canonical
// payload, the exact byte sequence Git hashes to produce an object ID.
func (o *Object) FramedEncode() ([]byte, error) {
	payload, err := o.Encode()
	if err != nil {
		return nil, err
	}
	return frame(o.Kind, payload), nil
}

func frame(kind Kind, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(kind.String())
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(len(payload)))
	buf.WriteByte(0)
	buf.Write(payload)
	return buf.Bytes()
}

// ComputeID returns the ObjectID for o, hashed over FramedEncode() under
// the currently active hash algorithm.
func (o *Object) ComputeID() (hash.ObjectID, error) {
	framed, err := o.FramedEncode()
	if err != nil {
		return hash.ObjectID{}, err
	}
	return hash.Of(framed), nil
}
