// Package volume implements Volume (C9) and Path resolution (C11): the
// top-level handle that bootstraps the $MFT self-description, translates
// file-record numbers to sector ranges, and materializes attribute data.
package volume

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/ntfs-tools/ntfsinspector/internal/interfaces"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/attr"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/block"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/boot"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/filerecord"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/index"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/runs"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/winstring"
)

// Volume is the opened NTFS volume handle (§4.8). It owns the block device
// and the immutable geometry decoded at open time.
type Volume struct {
	dev interfaces.BlockDevice

	Boot boot.Sector

	fileRecordSize  uint32
	fileRecordCount uint64
	mftRuns         []runs.Run
	mftSectorMap    []runs.SectorExtent

	lockMu sync.Mutex

	upcaseOnce sync.Once
	upcase     UpcaseTable
	upcaseOK   bool
}

// Open implements §4.8's open sequence: boot sector, the $MFT's own FILE
// record, its $DATA run list, and the derived record-size/count geometry.
func Open(dev interfaces.BlockDevice) (*Volume, error) {
	sector0, err := dev.ReadSector(0)
	if err != nil {
		return nil, fmt.Errorf("volume: reading boot sector: %w", err)
	}
	bootSec := boot.Decode(block.New(sector0))
	if !bootSec.Valid {
		return nil, fmt.Errorf("volume: invalid boot sector")
	}

	v := &Volume{dev: dev, Boot: bootSec}

	mftStartSector := bootSec.MFTStartLCN * uint64(bootSec.SectorsPerCluster)
	mftRaw, err := dev.ReadSectors(mftStartSector, uint32(bootSec.SectorsPerCluster))
	if err != nil {
		return nil, fmt.Errorf("volume: reading $MFT record: %w", err)
	}
	// A FILE record larger than one cluster (1 KiB records on a 512-byte
	// cluster volume) is re-read whole so the fixup sees all its sectors.
	if alloc, ok := block.New(mftRaw).Uint32(28); ok && alloc > uint32(len(mftRaw)) && alloc <= 1<<16 {
		secs := (alloc + uint32(bootSec.BytesPerSector) - 1) / uint32(bootSec.BytesPerSector)
		mftRaw, err = dev.ReadSectors(mftStartSector, secs)
		if err != nil {
			return nil, fmt.Errorf("volume: reading $MFT record: %w", err)
		}
	}
	// The $MFT's own record has no enclosing record to resolve
	// $ATTRIBUTE_LIST extensions through — it fits in one record by
	// construction — so it decodes with a nil loader.
	mftRecord := filerecord.Decode(block.New(mftRaw), types.FRNMFT, bootSec.BytesPerSector, nil)
	if !mftRecord.Valid {
		return nil, fmt.Errorf("volume: $MFT's own FILE record is invalid")
	}

	dataAttr, ok := mftRecord.FindAttr(types.AttrData, nil, nil)
	if !ok || dataAttr.Resident {
		return nil, fmt.Errorf("volume: $MFT has no non-resident $DATA attribute")
	}

	v.fileRecordSize = mftRecord.AllocatedSize
	if v.fileRecordSize == 0 {
		return nil, fmt.Errorf("volume: $MFT record advertises zero allocated size")
	}
	v.fileRecordCount = dataAttr.NR.AllocatedSize / uint64(v.fileRecordSize)
	v.mftRuns = dataAttr.NR.Runs
	v.mftSectorMap = runs.ToSectorMap(v.mftRuns, uint64(bootSec.SectorsPerCluster))

	return v, nil
}

// FileRecordSize returns the file-record size actually in effect — read
// from the live $MFT record, not the boot sector's hint (§4.8).
func (v *Volume) FileRecordSize() uint32 { return v.fileRecordSize }

// FileRecordCount returns the number of file-record slots addressable in
// the $MFT's $DATA stream.
func (v *Volume) FileRecordCount() uint64 { return v.fileRecordCount }

// recordAreaForFRN implements record_area_for_frn(frn) (§4.8): the VSN
// range occupied by frn's record, translated through the MFT run list.
func (v *Volume) recordAreaForFRN(frn types.FRN) (uint64, uint64, error) {
	secsPerRec := uint64(v.fileRecordSize) / uint64(v.Boot.BytesPerSector)
	if secsPerRec == 0 {
		return 0, 0, fmt.Errorf("volume: file record size smaller than a sector")
	}
	vsnStart := uint64(frn) * secsPerRec
	return vsnStart, secsPerRec, nil
}

// ReadRecordSectors reads the raw sector range backing frn, without
// decoding it — the primitive ReadRecord builds on.
func (v *Volume) ReadRecordSectors(frn types.FRN) ([]byte, error) {
	vsnStart, n, err := v.recordAreaForFRN(frn)
	if err != nil {
		return nil, err
	}
	extents, err := runs.VSNToLSN(v.mftSectorMap, vsnStart, n)
	if err != nil {
		return nil, fmt.Errorf("volume: mapping frn %d: %w", frn, err)
	}
	return v.readExtents(extents, v.Boot.BytesPerSector)
}

// readExtents reads every extent's sectors (or zero-fills sparse ones) and
// concatenates them in order.
func (v *Volume) readExtents(extents []runs.SectorExtent, bytesPerSector uint16) ([]byte, error) {
	var out []byte
	for _, ext := range extents {
		want := ext.Sectors * uint64(bytesPerSector)
		if ext.Sparse {
			out = append(out, make([]byte, want)...)
			continue
		}
		buf, err := v.dev.ReadSectors(ext.StartSector, uint32(ext.Sectors))
		if err != nil {
			return nil, err
		}
		if uint64(len(buf)) != want {
			return nil, fmt.Errorf("volume: short read at sector %d: got %d, want %d", ext.StartSector, len(buf), want)
		}
		out = append(out, buf...)
	}
	return out, nil
}

// ReadRecord implements read_record(frn) (§4.8): reads and decodes frn,
// recursively resolving $ATTRIBUTE_LIST extension records through the
// volume itself.
func (v *Volume) ReadRecord(frn types.FRN) (filerecord.Record, error) {
	raw, err := v.ReadRecordSectors(frn)
	if err != nil {
		return filerecord.Record{}, err
	}
	loader := func(extFRN types.FRN) (filerecord.Record, error) {
		return v.ReadRecord(extFRN)
	}
	nrList := func(a attr.Attribute) (attr.AttributeList, bool) {
		data, err := v.materializeNonResidentPayload(a)
		if err != nil {
			return attr.AttributeList{}, false
		}
		return attr.ParseAttributeList(data)
	}
	return filerecord.DecodeWithListMaterializer(block.New(raw), frn, v.Boot.BytesPerSector, loader, nrList), nil
}

// sectorReaderFor adapts the volume's device into the attr.SectorReader
// callback shape that Attribute.ReadRange expects.
func (v *Volume) sectorReaderFor() attr.SectorReader {
	return func(id uint64, n uint64) ([]byte, error) {
		return v.dev.ReadSectors(id, uint32(n))
	}
}

// ReadAttributeData materializes length bytes at offset from a $DATA
// attribute, resident or non-resident (§4.5). Any other non-resident
// attribute ($INDEX_ALLOCATION, $ATTRIBUTE_LIST, $BITMAP) is read the same
// way, through its run list.
func (v *Volume) ReadAttributeData(a attr.Attribute, offset, length uint64) ([]byte, error) {
	if a.Type != types.AttrData && !a.Resident {
		a.Type = types.AttrData
		a.Payload = attr.DataPayload{NR: a.NR}
	}
	return a.ReadRange(offset, length, uint64(v.Boot.SectorsPerCluster), uint64(v.Boot.BytesPerSector), v.sectorReaderFor())
}

// materializeNonResidentPayload reads a non-resident $ATTRIBUTE_LIST or
// $BITMAP attribute's full bytes via the $DATA range-read primitive, for
// the attribute types whose payload decode is deferred when non-resident
// (§4.6 step 4's prerequisite).
func (v *Volume) materializeNonResidentPayload(a attr.Attribute) (block.Block, error) {
	raw, err := v.ReadAttributeData(a, 0, a.NR.RealSize)
	if err != nil {
		return block.Empty(), err
	}
	return block.New(raw), nil
}

// IndexTreeFor builds an IndexTree from a file record's $INDEX_ROOT/
// $INDEX_ALLOCATION pair for the named index (e.g. "$I30"), lazily loading
// $INDEX_ALLOCATION records on demand (§4.7, §9 "Lazy vs eager").
func (v *Volume) IndexTreeFor(rec filerecord.Record, indexName string) (index.Tree, bool) {
	name := winstring.String(toUTF16(indexName))
	rootAttr, ok := rec.FindAttr(types.AttrIndexRoot, name, nil)
	if !ok {
		return index.Tree{}, false
	}
	root, ok := rootAttr.Payload.(attr.IndexRoot)
	if !ok {
		return index.Tree{}, false
	}

	allocAttr, hasAlloc := rec.FindAttr(types.AttrIndexAllocation, name, nil)

	var loader index.RecordLoader
	if hasAlloc {
		loader = func(vcn uint64, length uint32) (block.Block, error) {
			byteOffset := vcn * uint64(v.Boot.ClusterSize())
			raw, err := v.ReadAttributeData(allocAttr, byteOffset, uint64(length))
			if err != nil {
				return block.Empty(), err
			}
			return block.New(raw), nil
		}
	}

	tree, ok := index.New(root, loader, v.Boot.BytesPerSector)
	if !ok {
		return tree, false
	}
	if table, ok := v.upcaseTable(); ok {
		tree = tree.WithFold(table.Fold)
	}
	return tree, true
}

// PathOf implements path_of(record) (§4.8, C11): walks the parent
// reference chain from the first $FILE_NAME attribute, prepending each
// ancestor's filename, stopping at the root directory (FRN 5) or the
// sentinel FRN 0.
func (v *Volume) PathOf(rec filerecord.Record) (string, error) {
	var parts []string
	cur := rec
	for depth := 0; depth < 255; depth++ {
		fnAttr, ok := cur.FindAttr(types.AttrFileName, nil, nil)
		if !ok {
			break
		}
		fn, ok := fnAttr.Payload.(attr.FileName)
		if !ok {
			break
		}
		parts = append([]string{fn.Name.Decode()}, parts...)

		if cur.FRN == types.FRNRootDir || fn.ParentReference.FRN == types.FRNMFT {
			break
		}
		if fn.ParentReference.FRN == cur.FRN {
			break
		}
		parent, err := v.ReadRecord(fn.ParentReference.FRN)
		if err != nil || !parent.Valid {
			return "", fmt.Errorf("volume: resolving parent of frn %d: %w", cur.FRN, err)
		}
		cur = parent
	}
	path := "/"
	for _, p := range parts {
		path += p + "/"
	}
	if len(path) > 1 {
		path = path[:len(path)-1]
	}
	return path, nil
}

// WriteSector implements the guarded raw-write path (§5): acquire the
// device's advisory lock, write exactly one sector, release the lock
// immediately after. Devices that don't implement VolumeLocker are always
// available.
func (v *Volume) WriteSector(id uint64, data []byte) error {
	v.lockMu.Lock()
	defer v.lockMu.Unlock()

	if locker, ok := v.dev.(interfaces.VolumeLocker); ok {
		if err := locker.Lock(); err != nil {
			return fmt.Errorf("volume: acquiring write lock: %w", err)
		}
		defer locker.Unlock()
	}
	_, err := v.dev.WriteSector(id, data)
	return err
}

// ResolvePath walks a slash-separated path from the root directory (FRN 5)
// through each component's $I30 directory index, returning the FRN of the
// final component. "/" and "" resolve to the root directory itself.
func (v *Volume) ResolvePath(p string) (types.FRN, error) {
	clean := path.Clean("/" + p)
	if clean == "/" || clean == "." {
		return types.FRNRootDir, nil
	}

	cur := types.FRNRootDir
	for _, part := range strings.Split(strings.Trim(clean, "/"), "/") {
		rec, err := v.ReadRecord(cur)
		if err != nil || !rec.Valid || !rec.IsDirectory() {
			return 0, fmt.Errorf("volume: resolving %q: %q is not a directory", clean, part)
		}
		tree, ok := v.IndexTreeFor(rec, I30IndexName)
		if !ok {
			return 0, fmt.Errorf("volume: resolving %q: no directory index at frn %d", clean, cur)
		}
		ref, found, err := tree.Find(block.New(fileNameSearchKey(part)))
		if err != nil {
			return 0, fmt.Errorf("volume: resolving %q: %w", clean, err)
		}
		if !found {
			return 0, fmt.Errorf("volume: resolving %q: %q not found", clean, part)
		}
		cur = ref.FRN
	}
	return cur, nil
}

// I30IndexName is the directory-index attribute name every NTFS directory
// indexes its children under.
const I30IndexName = "$I30"

// fileNameSearchKey builds a minimal $FILE_NAME-shaped key stream for name,
// in the Win32 namespace, suitable for Tree.Find's collation comparison.
func fileNameSearchKey(name string) []byte {
	u16 := toUTF16(name)
	buf := make([]byte, 66+len(u16)*2)
	buf[64] = byte(len(u16))
	buf[65] = byte(types.NamespaceWin32)
	copy(buf[66:], winstring.String(u16).Bytes())
	return buf
}

func toUTF16(s string) []uint16 {
	out := make([]uint16, 0, len(s))
	for _, r := range s {
		out = append(out, uint16(r))
	}
	return out
}
