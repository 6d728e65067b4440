package object

import (
	"bufio"
	"bytes"
	"sort"

	"github.com/packforge/packengine/hash"
)

// TreeEntry is one record of a tree object: a mode, a name and the ID of
// the blob/tree/commit(gitlink) it names.
type TreeEntry struct {
	Mode FileMode
	Name string
	ID   hash.ObjectID
}

// TreeObject is the decoded form of a Git tree: an ordered set of
// entries, canonically sorted by TreeSortLess.
type TreeObject struct {
	Entries []TreeEntry
}

// TreeSortLess implements Git's tree ordering: entries are compared by
// name, except that a name denoting a subtree is compared as though it
// had a trailing "/". This makes "foo" sort after "foo.c" but before
// "foo/bar", matching Git's on-disk canonical order.
func TreeSortLess(a, b TreeEntry) bool {
	an, bn := a.Name, b.Name
	if a.Mode.IsDir() {
		an += "/"
	}
	if b.Mode.IsDir() {
		bn += "/"
	}
	return an < bn
}

func decodeTree(payload []byte) (*TreeObject, error) {
	t := &TreeObject{}
	r := bufio.NewReader(bytes.NewReader(payload))

	var prev *TreeEntry
	for {
		modeName, err := r.ReadString(' ')
		if err != nil {
			if len(modeName) == 0 {
				break
			}
			return nil, &ParseError{Kind: Tree, Reason: "truncated mode field"}
		}
		modeStr := modeName[:len(modeName)-1]
		mode, err := parseFileMode(modeStr)
		if err != nil {
			return nil, &ParseError{Kind: Tree, Reason: err.Error()}
		}

		name, err := r.ReadString(0)
		if err != nil {
			return nil, &ParseError{Kind: Tree, Reason: "truncated name field"}
		}
		name = name[:len(name)-1]
		if name == "" {
			return nil, &ParseError{Kind: Tree, Reason: "empty entry name"}
		}

		idSize := hash.ActiveAlgorithm().Size()
		raw := make([]byte, idSize)
		if _, err := readFull(r, raw); err != nil {
			return nil, &ParseError{Kind: Tree, Reason: "truncated object id"}
		}
		id, err := hash.New(raw)
		if err != nil {
			return nil, &ParseError{Kind: Tree, Reason: err.Error()}
		}

		entry := TreeEntry{Mode: mode, Name: name, ID: id}
		if prev != nil && !TreeSortLess(*prev, entry) {
			return nil, &ParseError{Kind: Tree, Reason: "entries not in canonical sort order: " + prev.Name + " >= " + entry.Name}
		}
		t.Entries = append(t.Entries, entry)
		prevCopy := entry
		prev = &prevCopy
	}

	return t, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func encodeTree(t *TreeObject) []byte {
	entries := append([]TreeEntry(nil), t.Entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		return TreeSortLess(entries[i], entries[j])
	})

	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString(e.Mode.String())
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.ID.Bytes())
	}
	return buf.Bytes()
}
