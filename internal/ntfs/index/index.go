// Package index implements IndexTree (C8): the B-tree rooted in
// $INDEX_ROOT, with internal/leaf nodes materialized lazily from
// $INDEX_ALLOCATION index records.
package index

import (
	"fmt"

	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/attr"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/block"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/fixup"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
)

const nodeHeaderSize = 16
const entryHeaderSize = 16
const indexRecordHeaderSize = 24
const indxMagic = "INDX"

// EntryFlag bits on an IndexEntry (§3).
type EntryFlag uint16

const (
	EntryPointsToSubnode EntryFlag = 0x1
	EntryLastInNode      EntryFlag = 0x2
)

// Entry is one IndexEntry (§3, §4.7). KeyStream is empty for the terminal
// entry, which carries no key.
type Entry struct {
	FileReference types.FileReference
	Flags         EntryFlag
	KeyStream     block.Block
	ChildVCN      uint64
	HasChild      bool
}

func (e Entry) PointsToSubnode() bool { return e.Flags&EntryPointsToSubnode != 0 }
func (e Entry) IsLast() bool          { return e.Flags&EntryLastInNode != 0 }

// Node is a decoded IndexNode: an ordered list of entries (§3).
type Node struct {
	Entries []Entry
}

// parseNode decodes the INDEX_HEADER and its entry list (§3, §4.7).
func parseNode(data block.Block) (Node, bool) {
	if data.Len() < nodeHeaderSize {
		return Node{}, false
	}
	offFirst, ok1 := data.Uint32(0)
	totalSize, ok2 := data.Uint32(4)
	if !ok1 || !ok2 {
		return Node{}, false
	}
	if uint64(totalSize) < uint64(offFirst) {
		return Node{}, false
	}
	entries := data.Slice(int(offFirst), int(totalSize)-int(offFirst))

	var node Node
	pos := 0
	for pos+entryHeaderSize <= entries.Len() {
		rawRef, ok1 := entries.Uint64(pos)
		length, ok2 := entries.Uint16(pos + 8)
		streamLen, ok3 := entries.Uint16(pos + 10)
		flags, ok4 := entries.Uint16(pos + 12)
		if !(ok1 && ok2 && ok3 && ok4) || length < entryHeaderSize {
			break
		}
		entryBlock := entries.Slice(pos, int(length))
		if entryBlock.Len() != int(length) {
			break
		}

		e := Entry{
			FileReference: types.FileReferenceFromRaw(rawRef),
			Flags:         EntryFlag(flags),
		}
		if !e.IsLast() && int(entryHeaderSize)+int(streamLen) <= int(length) {
			e.KeyStream = entryBlock.Slice(entryHeaderSize, int(streamLen))
		}
		if e.PointsToSubnode() {
			if vcn, ok := entryBlock.Uint64(int(length) - 8); ok {
				e.ChildVCN = vcn
				e.HasChild = true
			}
		}
		node.Entries = append(node.Entries, e)
		pos += int(length)
	}
	return node, true
}

// RecordLoader reads the index-record-sized chunk of the owning
// $INDEX_ALLOCATION stream at cluster vcn (byte offset vcn × cluster size).
// The volume layer supplies this via the $DATA range-read primitive so that index
// materialization stays lazy (§9 "Lazy vs eager expansion").
type RecordLoader func(vcn uint64, length uint32) (block.Block, error)

// Tree is a decoded IndexTree (§4.7): the root node plus whatever is
// needed to lazily pull further nodes from $INDEX_ALLOCATION.
type Tree struct {
	Collation       types.CollationRule
	IndexedAttrType types.AttrType
	root            Node
	indexBlockBytes uint32
	bytesPerSector  uint16
	loader          RecordLoader
	fold            func(uint16) uint16
}

// New builds a Tree from a decoded $INDEX_ROOT and a lazy loader for
// $INDEX_ALLOCATION records. loader may be nil for an index small enough
// to fit entirely in the root node.
func New(root attr.IndexRoot, loader RecordLoader, bytesPerSector uint16) (Tree, bool) {
	node, ok := parseNode(root.NodeData)
	if !ok {
		return Tree{}, false
	}
	return Tree{
		Collation:       root.Collation,
		IndexedAttrType: root.IndexedAttrType,
		root:            node,
		indexBlockBytes: root.IndexBlockBytes,
		bytesPerSector:  bytesPerSector,
		loader:          loader,
	}, true
}

// WithFold returns a copy of t that case-folds FILENAME collation keys
// through fold instead of the built-in ASCII/Latin-1 table. Callers that
// have the volume's $UpCase table loaded pass its Fold method here, so
// collation matches what Windows itself would do for codepoints outside
// Latin-1; callers without it get the ASCII/Latin-1 fallback.
func (t Tree) WithFold(fold func(uint16) uint16) Tree {
	t.fold = fold
	return t
}

func (t Tree) foldUnit(u uint16) uint16 {
	if t.fold != nil {
		return t.fold(u)
	}
	return foldUnit(u)
}

// loadChild materializes the index record at the given VCN: magic check,
// USN/USA fixup, then its embedded node (§3, §4.7).
func (t Tree) loadChild(vcn uint64) (Node, error) {
	if t.loader == nil {
		return Node{}, fmt.Errorf("index: child requested but no loader was given")
	}
	raw, err := t.loader(vcn, t.indexBlockBytes)
	if err != nil {
		return Node{}, err
	}
	if raw.Len() < indexRecordHeaderSize {
		return Node{}, fmt.Errorf("index: short index record at vcn %d", vcn)
	}
	if string(raw.Slice(0, 4).Bytes()) != indxMagic {
		return Node{}, fmt.Errorf("index: bad magic in index record at vcn %d", vcn)
	}
	offsetToUS, ok1 := raw.Uint16(4)
	sizeInWordsUSN, ok2 := raw.Uint16(6)
	if !ok1 || !ok2 {
		return Node{}, fmt.Errorf("index: truncated header at vcn %d", vcn)
	}

	fixedUp := raw.Copy()
	if !fixup.Apply(fixedUp, offsetToUS, sizeInWordsUSN, t.bytesPerSector) {
		return Node{}, fmt.Errorf("index: fixup mismatch at vcn %d", vcn)
	}

	node, ok := parseNode(fixedUp.SliceFrom(indexRecordHeaderSize))
	if !ok {
		return Node{}, fmt.Errorf("index: malformed node at vcn %d", vcn)
	}
	return node, nil
}

// Pair is one (key, target) result emitted by ForEach.
type Pair struct {
	Key           block.Block
	FileReference types.FileReference
}

// ForEach performs the inorder traversal of §4.7: descend into every
// subnode, skip the terminal entry's own key (it carries none) but still
// descend through its child pointer, and emit every keyed entry in
// collation order.
func (t Tree) ForEach(yield func(Pair) bool) error {
	return t.forEachNode(t.root, yield)
}

func (t Tree) forEachNode(n Node, yield func(Pair) bool) error {
	for _, e := range n.Entries {
		if e.PointsToSubnode() {
			child, err := t.loadChild(e.ChildVCN)
			if err != nil {
				return err
			}
			if err := t.forEachNode(child, yield); err != nil {
				return err
			}
		}
		if !e.IsLast() {
			if !yield(Pair{Key: e.KeyStream, FileReference: e.FileReference}) {
				return nil
			}
		}
	}
	return nil
}

// Compare orders two key streams per the tree's collation rule. FILENAME
// uses uppercase-first, case-folded Unicode code-point order (§4.7); every
// other collation rule falls back to a raw byte compare.
func (t Tree) Compare(a, b block.Block) int {
	if t.Collation == types.CollationFilename {
		return t.compareFilenameKeys(a, b)
	}
	return compareBytes(a.Bytes(), b.Bytes())
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// compareFilenameKeys decodes both streams as $FILE_NAME payloads and
// compares names case-foldedly; names that fold to the same code units
// compare equal (§4.7, "FILENAME" collation).
func (t Tree) compareFilenameKeys(a, b block.Block) int {
	fa, okA := attr.ParseFileName(a)
	fb, okB := attr.ParseFileName(b)
	if !okA || !okB {
		return compareBytes(a.Bytes(), b.Bytes())
	}
	return t.compareUTF16Fold(fa.Name, fb.Name)
}

func (t Tree) compareUTF16Fold(a, b []uint16) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ca, cb := t.foldUnit(a[i]), t.foldUnit(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// foldUnit upper-cases a single UTF-16 code unit for collation purposes.
// Only the BMP ASCII/Latin-1 range needs folding for round-tripping
// ordinary filenames; surrogate halves pass through unchanged.
func foldUnit(u uint16) uint16 {
	if u >= 'a' && u <= 'z' {
		return u - ('a' - 'A')
	}
	if u >= 0xE0 && u <= 0xFE && u != 0xF7 {
		return u - 0x20
	}
	return u
}

// Find descends the tree per §4.7: entries within a node are ascending by
// collation order, and a keyed entry's child subnode holds only entries
// with a smaller key, so the search walks entries in order and descends
// the moment it finds one not smaller than the search key — on equality
// that is the match, otherwise that entry's child is the only place a
// match could still live. The terminal entry carries no key but, when it
// has a child, that child covers everything larger than every real entry.
func (t Tree) Find(key block.Block) (types.FileReference, bool, error) {
	return t.findNode(t.root, key)
}

func (t Tree) findNode(n Node, key block.Block) (types.FileReference, bool, error) {
	for _, e := range n.Entries {
		if e.IsLast() {
			if e.PointsToSubnode() {
				child, err := t.loadChild(e.ChildVCN)
				if err != nil {
					return types.FileReference{}, false, err
				}
				return t.findNode(child, key)
			}
			return types.FileReference{}, false, nil
		}

		cmp := t.Compare(key, e.KeyStream)
		if cmp == 0 {
			return e.FileReference, true, nil
		}
		if cmp < 0 {
			if e.PointsToSubnode() {
				child, err := t.loadChild(e.ChildVCN)
				if err != nil {
					return types.FileReference{}, false, err
				}
				return t.findNode(child, key)
			}
			return types.FileReference{}, false, nil
		}
		// cmp > 0: key is past this entry's key, keep scanning forward.
	}
	return types.FileReference{}, false, nil
}
