package volume

import (
	"fmt"
	"testing"

	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
)

const sectorSize = 512

// mockBlockDevice is a flat in-memory BlockDevice backed by a single byte
// slice, addressed sector by sector.
type mockBlockDevice struct {
	data []byte
}

func newMockBlockDevice(sectors int) *mockBlockDevice {
	return &mockBlockDevice{data: make([]byte, sectors*sectorSize)}
}

func (m *mockBlockDevice) ReadSector(id uint64) ([]byte, error) {
	return m.ReadSectors(id, 1)
}

func (m *mockBlockDevice) ReadSectors(id uint64, n uint32) ([]byte, error) {
	start := id * sectorSize
	end := start + uint64(n)*sectorSize
	if end > uint64(len(m.data)) {
		return nil, fmt.Errorf("mock device: read past end")
	}
	out := make([]byte, end-start)
	copy(out, m.data[start:end])
	return out, nil
}

func (m *mockBlockDevice) WriteSector(id uint64, data []byte) (int, error) {
	start := id * sectorSize
	if start+sectorSize > uint64(len(m.data)) {
		return 0, fmt.Errorf("mock device: write past end")
	}
	copy(m.data[start:start+sectorSize], data)
	return sectorSize, nil
}

func (m *mockBlockDevice) SectorSize() uint32 { return sectorSize }
func (m *mockBlockDevice) TotalSize() uint64  { return uint64(len(m.data)) }

func (m *mockBlockDevice) putAt(byteOffset int, b []byte) {
	copy(m.data[byteOffset:], b)
}

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

// buildBootSector writes a minimal valid NTFS boot sector at sector 0:
// 512-byte sectors, 1 sector per cluster, MFT starting at LCN 1.
func buildBootSector(sectorsPerCluster uint8, mftStartLCN uint64) []byte {
	buf := make([]byte, sectorSize)
	copy(buf[3:11], "NTFS    ")
	putU16(buf, 11, sectorSize)
	buf[13] = sectorsPerCluster
	putU64(buf, 0x28, 2048)
	putU64(buf, 0x30, mftStartLCN)
	putU64(buf, 0x38, mftStartLCN+100)
	buf[0x40] = 1 // file record size hint: 1 cluster
	buf[0x44] = 1 // index record size hint: 1 cluster
	putU64(buf, 0x48, 0xDEADBEEF)
	return buf
}

// buildMFTRecordWithDataRun returns a recordSize-byte minimal FILE record
// for FRN 0 ($MFT itself) whose $DATA attribute is non-resident with one
// run of runClusters clusters starting at runLCN.
func buildMFTRecordWithDataRun(recordSize int, runLCN, runClusters uint64) []byte {
	buf := make([]byte, recordSize)
	copy(buf[0:4], "FILE")
	putU16(buf, 4, 48)
	putU16(buf, 6, 3)
	putU64(buf, 8, 1)
	putU16(buf, 16, 1)
	putU16(buf, 18, 1)
	putU16(buf, 20, 56)
	putU16(buf, 22, uint16(types.FileRecordInUse))
	putU32(buf, 24, uint32(recordSize))
	putU32(buf, 28, uint32(recordSize))
	putU64(buf, 32, 0)
	putU16(buf, 40, 1)

	usn := uint16(0x1234)
	putU16(buf, 48, usn)
	putU16(buf, 50, 0xAAAA)
	putU16(buf, 52, 0xBBBB)
	putU16(buf, sectorSize-2, usn)
	if recordSize >= 2*sectorSize {
		putU16(buf, 2*sectorSize-2, usn)
	}

	off := 56
	// non-resident $DATA attribute: 16-byte common header + 48-byte
	// non-resident header (vcn_start, vcn_end, offset_to_runs,
	// compression_unit, reserved, allocated_size, real_size,
	// initialized_size) = 64 bytes, then the run list.
	putU32(buf, off+0, uint32(types.AttrData))
	runsOff := off + 64
	dataSize := runClusters * sectorSize // 1 sector per cluster in this fixture
	attrLen := 64 + 4 + 4                // header + 4 run bytes, rounded to 8

	putU32(buf, off+4, uint32(attrLen))
	buf[off+8] = 1 // non-resident
	buf[off+9] = 0
	putU16(buf, off+10, 24)
	putU16(buf, off+12, 0)
	putU16(buf, off+14, 0)

	putU64(buf, off+16, 0)             // vcn start
	putU64(buf, off+24, runClusters-1) // vcn end
	putU16(buf, off+32, 64)            // offset to runs (relative to attr start)
	putU16(buf, off+34, 0)             // compression unit
	putU64(buf, off+40, dataSize)      // allocated size
	putU64(buf, off+48, dataSize)      // real size
	putU64(buf, off+56, dataSize)      // initialized size

	// run list: header nibble (lenSize=1, offSize=1), clusters byte, lcn byte, terminator
	buf[runsOff+0] = 0x11
	buf[runsOff+1] = byte(runClusters)
	buf[runsOff+2] = byte(runLCN)
	buf[runsOff+3] = 0x00

	putU32(buf, off+attrLen, uint32(types.AttrEnd))
	return buf
}

func TestOpenBootstrapsGeometryFromMFT(t *testing.T) {
	const recordSize = 1024
	const mftStartLCN = 1
	const dataRunClusters = 4 // enough for a handful of file records

	dev := newMockBlockDevice(200)
	dev.putAt(0, buildBootSector(1, mftStartLCN))
	mftRecord := buildMFTRecordWithDataRun(recordSize, mftStartLCN, dataRunClusters)
	dev.putAt(int(mftStartLCN)*sectorSize, mftRecord)

	v, err := Open(dev)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !v.Boot.Valid {
		t.Fatalf("expected valid boot sector")
	}
	if v.FileRecordSize() != recordSize {
		t.Errorf("FileRecordSize() = %d, want %d", v.FileRecordSize(), recordSize)
	}
	wantCount := uint64(dataRunClusters) * sectorSize / uint64(recordSize)
	if v.FileRecordCount() != wantCount {
		t.Errorf("FileRecordCount() = %d, want %d", v.FileRecordCount(), wantCount)
	}
}

func TestOpenRejectsBadBootSector(t *testing.T) {
	dev := newMockBlockDevice(10)
	_, err := Open(dev)
	if err == nil {
		t.Fatalf("expected error opening volume with all-zero boot sector")
	}
}

func TestReadRecordRoundTripsSelfMFTRecord(t *testing.T) {
	const recordSize = 1024
	const mftStartLCN = 1
	const dataRunClusters = 4

	dev := newMockBlockDevice(200)
	dev.putAt(0, buildBootSector(1, mftStartLCN))
	dev.putAt(int(mftStartLCN)*sectorSize, buildMFTRecordWithDataRun(recordSize, mftStartLCN, dataRunClusters))

	v, err := Open(dev)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	rec, err := v.ReadRecord(types.FRNMFT)
	if err != nil {
		t.Fatalf("ReadRecord failed: %v", err)
	}
	if !rec.Valid {
		t.Fatalf("expected valid record")
	}
	if rec.FRN != types.FRNMFT {
		t.Errorf("FRN = %d, want 0", rec.FRN)
	}
}

func TestFileNameSearchKeyEncodesWin32Namespace(t *testing.T) {
	key := fileNameSearchKey("hello.txt")
	if len(key) != 66+9*2 {
		t.Fatalf("len(key) = %d, want %d", len(key), 66+9*2)
	}
	if key[64] != 9 {
		t.Errorf("name length byte = %d, want 9", key[64])
	}
	if key[65] != byte(types.NamespaceWin32) {
		t.Errorf("namespace byte = %d, want %d", key[65], types.NamespaceWin32)
	}
}

func TestResolvePathRootIsIdentity(t *testing.T) {
	const recordSize = 1024
	const mftStartLCN = 1
	const dataRunClusters = 4

	dev := newMockBlockDevice(200)
	dev.putAt(0, buildBootSector(1, mftStartLCN))
	dev.putAt(int(mftStartLCN)*sectorSize, buildMFTRecordWithDataRun(recordSize, mftStartLCN, dataRunClusters))

	v, err := Open(dev)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for _, p := range []string{"", "/", "."} {
		frn, err := v.ResolvePath(p)
		if err != nil {
			t.Fatalf("ResolvePath(%q) failed: %v", p, err)
		}
		if frn != types.FRNRootDir {
			t.Errorf("ResolvePath(%q) = %d, want %d", p, frn, types.FRNRootDir)
		}
	}
}
