package index

import (
	"testing"

	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/attr"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/block"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
)

// fileNameKeyStream builds a minimal 66-byte-plus-name $FILE_NAME-shaped
// key stream, the format directory index entries for $I30 embed (§4.5,
// §4.7).
func fileNameKeyStream(name string) []byte {
	u16 := []uint16(nil)
	for _, r := range name {
		u16 = append(u16, uint16(r))
	}
	buf := make([]byte, 66+len(u16)*2)
	buf[64] = byte(len(u16))
	buf[65] = 1 // Win32 namespace
	for i, u := range u16 {
		buf[66+i*2] = byte(u)
		buf[66+i*2+1] = byte(u >> 8)
	}
	return buf
}

// buildRootOnlyNode builds a single-node $INDEX_ROOT body (16-byte root
// info + node header + entries) holding keyed entries for the given names
// in ascending order, followed by the mandatory terminal entry.
func buildRootOnlyNode(t *testing.T, names []string) []byte {
	t.Helper()

	type built struct {
		fileRef uint64
		key     []byte
	}
	var entries []built
	for i, n := range names {
		entries = append(entries, built{fileRef: uint64(100 + i), key: fileNameKeyStream(n)})
	}

	entrySize := func(keyLen int) int {
		return align8(16 + keyLen)
	}

	total := 0
	for _, e := range entries {
		total += entrySize(len(e.key))
	}
	terminalSize := 16 // no key, no child
	nodeHeaderAndEntries := 16 + total + terminalSize

	buf := make([]byte, 16+nodeHeaderAndEntries)
	// root info (16 bytes)
	putU32(buf, 0, uint32(types.AttrFileName))
	putU32(buf, 4, uint32(types.CollationFilename))
	putU32(buf, 8, 4096)
	buf[12] = 1

	node := buf[16:]
	putU32(node, 0, 16) // offset to first entry
	putU32(node, 4, uint32(nodeHeaderAndEntries))
	putU32(node, 8, uint32(nodeHeaderAndEntries))
	node[12] = 0

	pos := 16
	for _, e := range entries {
		sz := entrySize(len(e.key))
		putU64(node, pos, e.fileRef)
		putU16(node, pos+8, uint16(sz))
		putU16(node, pos+10, uint16(len(e.key)))
		putU16(node, pos+12, 0)
		copy(node[pos+16:], e.key)
		pos += sz
	}
	// terminal entry
	putU16(node, pos+8, uint16(terminalSize))
	putU16(node, pos+10, 0)
	putU16(node, pos+12, uint16(EntryLastInNode))

	return buf
}

func align8(n int) int { return (n + 7) &^ 7 }

func putU16(buf []byte, off int, v uint16) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
}
func putU32(buf []byte, off int, v uint32) {
	for i := 0; i < 4; i++ {
		buf[off+i] = byte(v >> (8 * i))
	}
}
func putU64(buf []byte, off int, v uint64) {
	for i := 0; i < 8; i++ {
		buf[off+i] = byte(v >> (8 * i))
	}
}

func buildTree(t *testing.T, names []string) Tree {
	t.Helper()
	raw := buildRootOnlyNode(t, names)
	root, ok := attr.ParseIndexRoot(block.New(raw))
	if !ok {
		t.Fatalf("ParseIndexRoot failed")
	}
	tree, ok := New(root, nil, 512)
	if !ok {
		t.Fatalf("index.New failed")
	}
	return tree
}

func TestForEachVisitsAllInOrder(t *testing.T) {
	names := []string{"alpha", "bravo", "charlie"}
	tree := buildTree(t, names)

	var got []string
	err := tree.ForEach(func(p Pair) bool {
		fn, ok := attr.ParseFileName(p.Key)
		if !ok {
			t.Fatalf("ParseFileName failed on emitted key")
		}
		got = append(got, fn.Name.Decode())
		return true
	})
	if err != nil {
		t.Fatalf("ForEach error: %v", err)
	}
	if len(got) != len(names) {
		t.Fatalf("got %d entries, want %d", len(got), len(names))
	}
	for i, n := range names {
		if got[i] != n {
			t.Errorf("entry %d = %q, want %q", i, got[i], n)
		}
	}
}

func TestFindMatchesForEach(t *testing.T) {
	names := []string{"alpha", "bravo", "charlie"}
	tree := buildTree(t, names)

	for i, n := range names {
		key := block.New(fileNameKeyStream(n))
		ref, found, err := tree.Find(key)
		if err != nil {
			t.Fatalf("Find(%q) error: %v", n, err)
		}
		if !found {
			t.Fatalf("Find(%q): not found", n)
		}
		if ref.FRN != types.FRN(100+i) {
			t.Errorf("Find(%q) FRN = %d, want %d", n, ref.FRN, 100+i)
		}
	}
}

func TestFindMissingNameNotFound(t *testing.T) {
	tree := buildTree(t, []string{"alpha", "bravo", "charlie"})
	_, found, err := tree.Find(block.New(fileNameKeyStream("zzzz")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected zzzz to be absent")
	}
}

// buildRootWithSubnodeEntry builds a two-level tree: the root node holds one
// keyed entry ("mango") that points to a subnode at childVCN, plus the
// mandatory childless terminal entry. The subnode itself is returned
// separately as a fixed-up INDX record, for a fake RecordLoader to serve.
func buildRootWithSubnodeEntry(t *testing.T, childVCN uint64) (rootAttrBytes []byte, childRecordBytes []byte) {
	t.Helper()

	mangoKey := fileNameKeyStream("mango")
	const mangoEntryLen = 104 // align8(16 + len(mangoKey) + 8), len(mangoKey) == 76
	const terminalLen = 16
	nodeHeaderAndEntries := 16 + mangoEntryLen + terminalLen

	buf := make([]byte, 16+nodeHeaderAndEntries)
	putU32(buf, 0, uint32(types.AttrFileName))
	putU32(buf, 4, uint32(types.CollationFilename))
	putU32(buf, 8, 512)
	buf[12] = 1

	node := buf[16:]
	putU32(node, 0, 16)
	putU32(node, 4, uint32(nodeHeaderAndEntries))
	putU32(node, 8, uint32(nodeHeaderAndEntries))
	node[12] = 0

	putU64(node, 16, 200)
	putU16(node, 16+8, mangoEntryLen)
	putU16(node, 16+10, uint16(len(mangoKey)))
	putU16(node, 16+12, uint16(EntryPointsToSubnode))
	copy(node[16+16:], mangoKey)
	putU64(node, 16+mangoEntryLen-8, childVCN)

	pos := 16 + mangoEntryLen
	putU16(node, pos+8, terminalLen)
	putU16(node, pos+10, 0)
	putU16(node, pos+12, uint16(EntryLastInNode))

	return buf, buildIndexRecord(t, []keyedEntry{
		{fileRef: 100, key: fileNameKeyStream("apple")},
		{fileRef: 101, key: fileNameKeyStream("banana")},
	})
}

type keyedEntry struct {
	fileRef uint64
	key     []byte
}

// buildIndexRecord builds a single fixed-up INDX record (indexRecordHeaderSize
// header + one node) holding the given ascending keyed entries plus the
// mandatory terminal entry, sized to exactly one 512-byte sector.
func buildIndexRecord(t *testing.T, entries []keyedEntry) []byte {
	t.Helper()
	const bytesPerSector = 512

	entrySize := func(keyLen int) int { return align8(16 + keyLen) }
	total := 0
	for _, e := range entries {
		total += entrySize(len(e.key))
	}
	const terminalSize = 16
	nodeHeaderAndEntries := 16 + total + terminalSize

	buf := make([]byte, bytesPerSector)
	copy(buf[0:4], "INDX")
	const offsetToUS = 400
	const sizeInWordsUSN = 2 // usn + one saved word, one sector
	putU16(buf, 4, offsetToUS)
	putU16(buf, 6, sizeInWordsUSN)
	putU64(buf, 8, 0)  // lsn
	putU64(buf, 16, 1) // this record's own VCN

	const usn = 0x5A5A
	putU16(buf, offsetToUS, usn)
	putU16(buf, offsetToUS+2, 0x3333) // saved word for the sector's last 2 bytes

	putU16(buf, bytesPerSector-2, usn) // sentinel the fixup must see and restore

	node := buf[indexRecordHeaderSize:]
	putU32(node, 0, 16)
	putU32(node, 4, uint32(nodeHeaderAndEntries))
	putU32(node, 8, uint32(nodeHeaderAndEntries))
	node[12] = 0

	pos := 16
	for _, e := range entries {
		sz := entrySize(len(e.key))
		putU64(node, pos, e.fileRef)
		putU16(node, pos+8, uint16(sz))
		putU16(node, pos+10, uint16(len(e.key)))
		putU16(node, pos+12, 0)
		copy(node[pos+16:], e.key)
		pos += sz
	}
	putU16(node, pos+8, terminalSize)
	putU16(node, pos+10, 0)
	putU16(node, pos+12, uint16(EntryLastInNode))

	return buf
}

func buildTreeWithSubnode(t *testing.T) Tree {
	t.Helper()
	rootRaw, childRaw := buildRootWithSubnodeEntry(t, 1)

	root, ok := attr.ParseIndexRoot(block.New(rootRaw))
	if !ok {
		t.Fatalf("ParseIndexRoot failed")
	}

	loader := func(vcn uint64, length uint32) (block.Block, error) {
		if vcn != 1 {
			t.Fatalf("loader called with unexpected vcn %d", vcn)
		}
		return block.New(childRaw), nil
	}

	tree, ok := New(root, loader, 512)
	if !ok {
		t.Fatalf("index.New failed")
	}
	return tree
}

func TestForEachDescendsIntoSubnode(t *testing.T) {
	tree := buildTreeWithSubnode(t)

	var got []string
	err := tree.ForEach(func(p Pair) bool {
		fn, ok := attr.ParseFileName(p.Key)
		if !ok {
			t.Fatalf("ParseFileName failed on emitted key")
		}
		got = append(got, fn.Name.Decode())
		return true
	})
	if err != nil {
		t.Fatalf("ForEach error: %v", err)
	}
	want := []string{"apple", "banana", "mango"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFindDescendsIntoSubnode(t *testing.T) {
	tree := buildTreeWithSubnode(t)

	ref, found, err := tree.Find(block.New(fileNameKeyStream("apple")))
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if !found {
		t.Fatalf("expected to find apple in the subnode")
	}
	if ref.FRN != 100 {
		t.Errorf("Find(apple) FRN = %d, want 100", ref.FRN)
	}

	ref, found, err = tree.Find(block.New(fileNameKeyStream("banana")))
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if !found || ref.FRN != 101 {
		t.Errorf("Find(banana) = (%v, %v), want (101, true)", ref, found)
	}

	_, found, err = tree.Find(block.New(fileNameKeyStream("mango")))
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if !found {
		t.Fatalf("expected to find mango in the root node itself")
	}
}

func TestCompareFilenameCaseFold(t *testing.T) {
	tree := buildTree(t, []string{"alpha"})
	a := block.New(fileNameKeyStream("ABC"))
	b := block.New(fileNameKeyStream("abc"))
	if tree.Compare(a, b) != 0 {
		t.Errorf("expected case-insensitive equality between ABC and abc")
	}
}
