package object

import "fmt"

// Kind tags the variant of a Git object. The four logical kinds (Blob,
// Tree, Commit, Tag) are ever materialised by the object model; OfsDelta
// and RefDelta are pack-transport-only tags used by the pack decoder to
// describe an as-yet-unresolved entry and are never passed to Decode.
type Kind int8

const (
	// Invalid marks a zero-value/unrecognised kind.
	Invalid Kind = iota
	Commit
	Tree
	Blob
	Tag
	OfsDelta
	RefDelta
)

// String returns Git's canonical lowercase name for the kind, as used in
// the framing header "<kind> <size>\0".
func (k Kind) String() string {
	switch k {
	case Commit:
		return "commit"
	case Tree:
		return "tree"
	case Blob:
		return "blob"
	case Tag:
		return "tag"
	case OfsDelta:
		return "ofs-delta"
	case RefDelta:
		return "ref-delta"
	default:
		return "invalid"
	}
}

// IsDelta reports whether the kind is one of the pack-only transport
// kinds rather than a logical object.
func (k Kind) IsDelta() bool {
	return k == OfsDelta || k == RefDelta
}

// Valid reports whether k is one of the four logical object kinds.
func (k Kind) Valid() bool {
	return k >= Commit && k <= Tag
}

// ParseKind maps a Git type name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "commit":
		return Commit, nil
	case "tree":
		return Tree, nil
	case "blob":
		return Blob, nil
	case "tag":
		return Tag, nil
	case "ofs-delta":
		return OfsDelta, nil
	case "ref-delta":
		return RefDelta, nil
	default:
		return Invalid, fmt.Errorf("object: unknown kind %q", s)
	}
}

// packTypeBits maps a Kind to the 3-bit type tag used in a pack entry's
// header byte, per the external pack format (spec §6.1).
func (k Kind) packTypeBits() (byte, bool) {
	switch k {
	case Commit:
		return 1, true
	case Tree:
		return 2, true
	case Blob:
		return 3, true
	case Tag:
		return 4, true
	case OfsDelta:
		return 6, true
	case RefDelta:
		return 7, true
	default:
		return 0, false
	}
}

// KindFromPackTypeBits maps the 3-bit pack type tag back to a Kind.
func KindFromPackTypeBits(b byte) (Kind, bool) {
	switch b {
	case 1:
		return Commit, true
	case 2:
		return Tree, true
	case 3:
		return Blob, true
	case 4:
		return Tag, true
	case 6:
		return OfsDelta, true
	case 7:
		return RefDelta, true
	default:
		return Invalid, false
	}
}

// PackTypeBits exposes packTypeBits to sibling packages (the pack
// encoder) that need to write the pack entry header without duplicating
// the mapping.
func (k Kind) PackTypeBits() (byte, bool) {
	return k.packTypeBits()
}
