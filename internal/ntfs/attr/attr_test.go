package attr

import (
	"testing"

	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/block"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
)

// residentAttrBytes builds a minimal resident attribute: common 16-byte
// header (type, length, resident=0, nameLen=0, offToName, flags, attrID),
// then an 8-byte resident sub-header (attrLen, offToData, indexed, padding),
// then the payload itself.
func residentAttrBytes(attrType types.AttrType, payload []byte) []byte {
	offToData := 24
	total := offToData + len(payload)
	padded := align8(total)

	buf := make([]byte, padded)
	putU32(buf, 0, uint32(attrType))
	putU32(buf, 4, uint32(padded))
	buf[8] = 0 // resident
	buf[9] = 0 // nameLen
	putU16(buf, 10, 0)
	putU16(buf, 12, 0)
	putU16(buf, 14, 1) // attrID
	putU32(buf, 16, uint32(len(payload)))
	putU16(buf, 20, uint16(offToData))
	buf[22] = 0
	copy(buf[offToData:], payload)
	return buf
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

func TestDecodeResidentData(t *testing.T) {
	payload := []byte("hello ntfs")
	raw := residentAttrBytes(types.AttrData, payload)

	a := Decode(block.New(raw))
	if !a.Valid {
		t.Fatalf("Decode returned invalid")
	}
	if !a.Resident {
		t.Fatalf("expected resident attribute")
	}
	if a.Type != types.AttrData {
		t.Fatalf("Type = %v, want AttrData", a.Type)
	}
	dp, ok := a.Payload.(DataPayload)
	if !ok {
		t.Fatalf("Payload = %T, want DataPayload", a.Payload)
	}
	if string(dp.ResidentBytes) != string(payload) {
		t.Errorf("ResidentBytes = %q, want %q", dp.ResidentBytes, payload)
	}
}

// nonResidentAttrBytes builds a non-resident attribute with the given VCN
// range and a run list, per the §4.4 non-resident sub-header layout: VCN
// start/end, offset to runs, compression unit, allocated/real/initialized
// sizes, then the run list itself.
func nonResidentAttrBytes(attrType types.AttrType, vcnStart, vcnEnd uint64, runBytes []byte, allocSize, realSize, initSize uint64) []byte {
	offToRuns := 64
	total := offToRuns + len(runBytes)
	padded := align8(total)

	buf := make([]byte, padded)
	putU32(buf, 0, uint32(attrType))
	putU32(buf, 4, uint32(padded))
	buf[8] = 1 // non-resident
	buf[9] = 0 // nameLen
	putU16(buf, 10, 0)
	putU16(buf, 12, 0)
	putU16(buf, 14, 1) // attrID
	putU64(buf, 16, vcnStart)
	putU64(buf, 24, vcnEnd)
	putU16(buf, 32, uint16(offToRuns))
	putU16(buf, 34, 0) // compression unit
	putU64(buf, 40, allocSize)
	putU64(buf, 48, realSize)
	putU64(buf, 56, initSize)
	copy(buf[offToRuns:], runBytes)
	return buf
}

func TestDecodeNonResidentDataMultiRunWithSparse(t *testing.T) {
	// run 1: sparse, 4 clusters. run 2: 8 clusters at LCN 20. terminator.
	runBytes := []byte{
		0x01, 0x04,
		0x11, 0x08, 0x14,
		0x00,
	}
	raw := nonResidentAttrBytes(types.AttrData, 0, 11, runBytes, 12*4096, 12*4096, 12*4096)

	a := Decode(block.New(raw))
	if !a.Valid {
		t.Fatalf("Decode returned invalid")
	}
	if a.Resident {
		t.Fatalf("expected non-resident attribute")
	}
	if len(a.NR.Runs) != 2 {
		t.Fatalf("NR.Runs = %+v, want 2 runs", a.NR.Runs)
	}
	if !a.NR.Runs[0].Sparse || a.NR.Runs[0].Clusters != 4 {
		t.Errorf("run 0 = %+v, want sparse 4 clusters", a.NR.Runs[0])
	}
	if a.NR.Runs[1].Sparse || a.NR.Runs[1].LCN != 20 || a.NR.Runs[1].Clusters != 8 {
		t.Errorf("run 1 = %+v, want non-sparse 8 clusters at LCN 20", a.NR.Runs[1])
	}

	dp, ok := a.Payload.(DataPayload)
	if !ok {
		t.Fatalf("Payload = %T, want DataPayload", a.Payload)
	}
	if dp.Resident {
		t.Errorf("DataPayload.Resident = true, want false")
	}
	if len(dp.NR.Runs) != 2 {
		t.Errorf("DataPayload.NR.Runs has %d entries, want 2", len(dp.NR.Runs))
	}
}

func TestDecodeNonResidentRunCountMismatchIsInvalid(t *testing.T) {
	// VCN range claims 99 clusters but the run list only covers 4.
	runBytes := []byte{0x11, 0x04, 0x0A, 0x00}
	raw := nonResidentAttrBytes(types.AttrData, 0, 98, runBytes, 4*4096, 4*4096, 4*4096)

	a := Decode(block.New(raw))
	if a.Valid {
		t.Fatalf("Decode should reject a run list that doesn't cover the declared VCN range")
	}
}

func TestDecodeRejectsShortBlock(t *testing.T) {
	if Decode(block.New([]byte{1, 2, 3})).Valid {
		t.Fatalf("Decode of a too-short block should be invalid")
	}
}

func TestDecodeRejectsAttrEnd(t *testing.T) {
	buf := make([]byte, 16)
	putU32(buf, 0, uint32(types.AttrEnd))
	if Decode(block.New(buf)).Valid {
		t.Fatalf("Decode of $END should be invalid")
	}
}

func TestDecodeRejectsBadLengthAlignment(t *testing.T) {
	raw := residentAttrBytes(types.AttrData, []byte("x"))
	putU32(raw, 4, 25) // not a multiple of 8
	if Decode(block.New(raw)).Valid {
		t.Fatalf("Decode should reject a length not aligned to 8")
	}
}

func TestDecodeCorrectsOversizedLength(t *testing.T) {
	payload := []byte("abcdefgh")
	raw := residentAttrBytes(types.AttrData, payload)
	// Advertise a length far beyond the actual block.
	putU32(raw, 4, uint32(len(raw)*4))

	a := Decode(block.New(raw))
	if !a.Valid {
		t.Fatalf("Decode returned invalid")
	}
	if int(a.Length) > len(raw) {
		t.Errorf("Length = %d, want <= %d after correction", a.Length, len(raw))
	}
}
