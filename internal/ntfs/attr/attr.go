// Package attr implements AttributeDecoder (C5) and AttributePayloads (C6):
// given a DataBlock positioned at an attribute header, produce one tagged
// Attribute value, or an invalid marker. Resident/non-resident is a flag in
// the common header, not a subclass axis (§9) — Attribute carries both
// possible sub-headers and a typed Payload.
package attr

import (
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/block"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/runs"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/winstring"
)

const commonHeaderSize = 16

// NonResident carries the geometry of a non-resident attribute (§3, §4.4).
type NonResident struct {
	VCNStart          uint64
	VCNEnd            uint64
	CompressionUnit   uint16
	AllocatedSize     uint64
	RealSize          uint64
	InitializedSize   uint64
	Runs              []runs.Run
}

// Attribute is the tagged union over attribute type (§3, §9). A zero value
// has Valid == false.
type Attribute struct {
	Valid bool

	Type       types.AttrType
	Resident   bool
	Name       winstring.String
	AttrID     uint16
	Length     uint32
	Indexed    bool

	// ResidentPayload is the raw inline bytes for a resident attribute.
	ResidentPayload block.Block

	// NR is populated only when Resident == false.
	NR NonResident

	// Payload is the typed decode of ResidentPayload/NR, one of the
	// payload types in payloads.go, or nil if the attribute type has no typed
	// decoder (pass-through, §6).
	Payload any

	// AttrIndex is this attribute's position within its owning record's
	// attribute list; FileRecord threads this through so dependent
	// decoders (e.g. $INDEX_ALLOCATION resolving its $INDEX_ROOT) can walk
	// backwards without a raw pointer (§9, "attribute cursor").
	AttrIndex int

	// FileRecordFrom is the FRN this attribute was decoded from — the
	// base record normally, or an extension record when chained through
	// $ATTRIBUTE_LIST.
	FileRecordFrom types.FRN
}

func invalid() Attribute { return Attribute{} }

// Decode implements C5: given a block starting at the attribute header,
// produces one Attribute or an invalid marker.
func Decode(data block.Block) Attribute {
	if data.Len() < commonHeaderSize {
		return invalid()
	}

	rawType, ok := data.Uint32(0)
	if !ok {
		return invalid()
	}
	if rawType == uint32(types.AttrEnd) {
		return invalid()
	}
	attrType := types.AttrType(rawType)
	if attrType > types.AttrLoggedUtilityStream {
		return invalid()
	}

	length, ok := data.Uint32(4)
	if !ok || length == 0 || length%8 != 0 {
		return invalid()
	}

	residentFlag, ok := data.Uint8(8)
	if !ok || residentFlag > 1 {
		return invalid()
	}
	resident := residentFlag == 0

	nameLen, ok := data.Uint8(9)
	if !ok {
		return invalid()
	}
	offToName, ok := data.Uint16(10)
	if !ok {
		return invalid()
	}
	flags, ok := data.Uint16(12)
	if !ok {
		return invalid()
	}
	attrID, ok := data.Uint16(14)
	if !ok {
		return invalid()
	}

	var name winstring.String
	if nameLen > 0 {
		nameBlock := data.Slice(int(offToName), int(nameLen)*2)
		if nameBlock.Len() != int(nameLen)*2 {
			return invalid()
		}
		name = winstring.FromBytes(nameBlock.Bytes())
	}

	a := Attribute{
		Valid:    true,
		Type:     attrType,
		Resident: resident,
		Name:     name,
		AttrID:   attrID,
		Length:   length,
		Indexed:  flags&0x01 != 0,
	}

	headerBytes := commonHeaderSize
	var payloadBytes int

	if resident {
		if data.Len() < 24 {
			return invalid()
		}
		attrLen, ok1 := data.Uint32(16)
		offToData, ok2 := data.Uint16(20)
		indexedFlag, ok3 := data.Uint8(22)
		if !ok1 || !ok2 || !ok3 {
			return invalid()
		}
		payload := data.Slice(int(offToData), int(attrLen))
		if payload.Len() != int(attrLen) {
			return invalid()
		}
		a.ResidentPayload = payload
		a.Indexed = a.Indexed || indexedFlag != 0
		headerBytes = int(offToData)
		payloadBytes = int(attrLen)
	} else {
		if data.Len() < commonHeaderSize+48 {
			return invalid()
		}
		vcnStart, ok1 := data.Uint64(16)
		vcnEnd, ok2 := data.Uint64(24)
		offToRuns, ok3 := data.Uint16(32)
		compUnit, ok4 := data.Uint16(34)
		allocSize, ok5 := data.Uint64(40)
		realSize, ok6 := data.Uint64(48)
		initSize, ok7 := data.Uint64(56)
		if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
			return invalid()
		}

		wantClusters := int64(-1)
		if vcnEnd+1 >= vcnStart {
			wantClusters = int64(vcnEnd - vcnStart + 1)
		}
		runsBlock := data.SliceFrom(int(offToRuns))
		parsedRuns, err := runs.Parse(runsBlock, wantClusters)
		if err != nil {
			return invalid()
		}

		a.NR = NonResident{
			VCNStart:        vcnStart,
			VCNEnd:          vcnEnd,
			CompressionUnit: compUnit,
			AllocatedSize:   allocSize,
			RealSize:        realSize,
			InitializedSize: initSize,
			Runs:            parsedRuns,
		}
		headerBytes = int(offToRuns)
		payloadBytes = 0
	}

	// Re-derive the total length (§4.4 step 6); correct a header that
	// advertises more than the enclosing block actually holds.
	derived := align8(headerBytes + payloadBytes)
	if int(a.Length) > data.Len() {
		a.Length = uint32(derived)
	}

	a.Payload = decodePayload(&a)
	return a
}

func align8(n int) int {
	return (n + 7) &^ 7
}
