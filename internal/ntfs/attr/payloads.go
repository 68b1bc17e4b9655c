package attr

import (
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/block"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/runs"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/winstring"
)

// decodePayload dispatches the attribute's payload to its typed decoder
// (§4.5). Non-resident attributes whose payload lives outside the record
// (the $ATTRIBUTE_LIST / $BITMAP non-resident cases) are left undecoded
// here — FileRecord/Volume materialize their bytes via a data read and call
// the exported Parse* functions directly.
func decodePayload(a *Attribute) any {
	switch a.Type {
	case types.AttrStandardInformation:
		if !a.Resident {
			return nil
		}
		v, ok := ParseStandardInformation(a.ResidentPayload)
		if !ok {
			return nil
		}
		return v
	case types.AttrAttributeList:
		if !a.Resident {
			return nil
		}
		v, ok := ParseAttributeList(a.ResidentPayload)
		if !ok {
			return nil
		}
		return v
	case types.AttrFileName:
		if !a.Resident {
			return nil
		}
		v, ok := ParseFileName(a.ResidentPayload)
		if !ok {
			return nil
		}
		return v
	case types.AttrData:
		return DataPayload{
			Resident:      a.Resident,
			ResidentBytes: residentBytesOrNil(a),
			NR:            a.NR,
		}
	case types.AttrIndexRoot:
		if !a.Resident {
			return nil
		}
		v, ok := ParseIndexRoot(a.ResidentPayload)
		if !ok {
			return nil
		}
		return v
	case types.AttrIndexAllocation:
		if a.Resident {
			return nil
		}
		return IndexAllocationPayload{Runs: a.NR.Runs, AllocatedSize: a.NR.AllocatedSize, RealSize: a.NR.RealSize}
	case types.AttrBitmap:
		if !a.Resident {
			return nil
		}
		return ParseBitmap(a.ResidentPayload)
	default:
		return nil
	}
}

func residentBytesOrNil(a *Attribute) []byte {
	if !a.Resident {
		return nil
	}
	return a.ResidentPayload.Copy().Bytes()
}

// StandardInformation is the $STANDARD_INFORMATION payload (§4.5): four
// timestamps, DOS permission bits, and — when the payload is long enough —
// the extended owner/security/quota/USN fields.
type StandardInformation struct {
	Created        types.FileTime
	Modified       types.FileTime
	MFTModified    types.FileTime
	Accessed       types.FileTime
	DOSPermissions uint32
	MaxVersions    uint32
	VersionNumber  uint32
	ClassID        uint32

	HasExtension bool
	OwnerID      uint32
	SecurityID   uint32
	QuotaCharged uint64
	USN          uint64
}

// ParseStandardInformation decodes the fixed 48-byte prefix, plus the
// optional 24-byte extension when present (§4.5).
func ParseStandardInformation(data block.Block) (StandardInformation, bool) {
	if data.Len() < 48 {
		return StandardInformation{}, false
	}
	created, _ := data.Uint64(0)
	modified, _ := data.Uint64(8)
	mftMod, _ := data.Uint64(16)
	accessed, _ := data.Uint64(24)
	dosPerm, _ := data.Uint32(32)
	maxVer, _ := data.Uint32(36)
	verNum, _ := data.Uint32(40)
	classID, _ := data.Uint32(44)

	si := StandardInformation{
		Created:        types.FileTime(created),
		Modified:       types.FileTime(modified),
		MFTModified:    types.FileTime(mftMod),
		Accessed:       types.FileTime(accessed),
		DOSPermissions: dosPerm,
		MaxVersions:    maxVer,
		VersionNumber:  verNum,
		ClassID:        classID,
	}

	if data.Len() >= 72 {
		ownerID, _ := data.Uint32(48)
		secID, _ := data.Uint32(52)
		quota, _ := data.Uint64(56)
		usn, _ := data.Uint64(64)
		si.HasExtension = true
		si.OwnerID = ownerID
		si.SecurityID = secID
		si.QuotaCharged = quota
		si.USN = usn
	}
	return si, true
}

// AttributeListEntry is one record within an $ATTRIBUTE_LIST (§4.5).
type AttributeListEntry struct {
	Type          types.AttrType
	Length        uint16
	Name          winstring.String
	StartingVCN   uint64
	FileReference types.FileReference
	AttrID        uint16
}

// AttributeList is the decoded $ATTRIBUTE_LIST payload.
type AttributeList struct {
	Entries []AttributeListEntry
}

// ParseAttributeList walks the repeating {type, length, name_length,
// offset_to_name, starting_vcn, file_reference, attr_id} records (§4.5). It
// is exported because a non-resident $ATTRIBUTE_LIST's bytes are
// materialized by the caller (via the $DATA range-read primitive) before
// being handed here.
func ParseAttributeList(data block.Block) (AttributeList, bool) {
	var list AttributeList
	pos := 0
	for pos+8 <= data.Len() {
		rawType, ok1 := data.Uint32(pos)
		length, ok2 := data.Uint16(pos + 4)
		nameLen, ok3 := data.Uint8(pos + 6)
		if !ok1 || !ok2 || !ok3 {
			break
		}
		if length == 0 || int(length) < 26 {
			break
		}
		entryBlock := data.Slice(pos, int(length))
		if entryBlock.Len() != int(length) {
			break
		}
		startVCN, ok4 := entryBlock.Uint64(8)
		rawRef, ok5 := entryBlock.Uint64(16)
		attrID, ok6 := entryBlock.Uint16(24)
		if !(ok4 && ok5 && ok6) {
			break
		}
		var name winstring.String
		if nameLen > 0 {
			nameBlock := entryBlock.Slice(0x1A, int(nameLen)*2)
			if nameBlock.Len() == int(nameLen)*2 {
				name = winstring.FromBytes(nameBlock.Bytes())
			}
		}
		list.Entries = append(list.Entries, AttributeListEntry{
			Type:          types.AttrType(rawType),
			Length:        length,
			Name:          name,
			StartingVCN:   startVCN,
			FileReference: types.FileReferenceFromRaw(rawRef),
			AttrID:        attrID,
		})
		pos += int(length)
	}
	return list, true
}

// FileName is the decoded $FILE_NAME payload (§4.5).
type FileName struct {
	ParentReference types.FileReference
	Created         types.FileTime
	Modified        types.FileTime
	MFTModified     types.FileTime
	Accessed        types.FileTime
	AllocatedSize   uint64
	RealSize        uint64
	Flags           types.FileNameFlag
	Reparse         uint32
	NameLength      uint8
	Namespace       types.FileNameNamespace
	Name            winstring.String
}

// ParseFileName decodes the fixed 66-byte prefix followed by the UTF-16
// filename (§4.5).
func ParseFileName(data block.Block) (FileName, bool) {
	if data.Len() < 66 {
		return FileName{}, false
	}
	parentRef, _ := data.Uint64(0)
	created, _ := data.Uint64(8)
	modified, _ := data.Uint64(16)
	mftMod, _ := data.Uint64(24)
	accessed, _ := data.Uint64(32)
	allocSize, _ := data.Uint64(40)
	realSize, _ := data.Uint64(48)
	flags, _ := data.Uint32(56)
	reparse, _ := data.Uint32(60)
	nameLen, _ := data.Uint8(64)
	namespace, _ := data.Uint8(65)

	nameBlock := data.Slice(66, int(nameLen)*2)
	if nameBlock.Len() != int(nameLen)*2 {
		return FileName{}, false
	}

	return FileName{
		ParentReference: types.FileReferenceFromRaw(parentRef),
		Created:         types.FileTime(created),
		Modified:        types.FileTime(modified),
		MFTModified:     types.FileTime(mftMod),
		Accessed:        types.FileTime(accessed),
		AllocatedSize:   allocSize,
		RealSize:        realSize,
		Flags:           types.FileNameFlag(flags),
		Reparse:         reparse,
		NameLength:      nameLen,
		Namespace:       types.FileNameNamespace(namespace),
		Name:            winstring.FromBytes(nameBlock.Bytes()),
	}, true
}

// DataPayload is the $DATA payload: either the resident bytes, or the
// non-resident geometry needed to range-read through the owning volume
// (§4.5). The range-read primitive itself lives on Attribute (see data.go)
// since it needs a sector reader callback the payload decoder doesn't have.
type DataPayload struct {
	Resident      bool
	ResidentBytes []byte
	NR            NonResident
}

// IndexRoot is the decoded $INDEX_ROOT payload (§4.5): root info plus the
// raw bytes of the embedded IndexNode, which the index package parses.
type IndexRoot struct {
	IndexedAttrType       types.AttrType
	Collation             types.CollationRule
	IndexBlockBytes       uint32
	ClustersPerIndexBlock uint8
	NodeData              block.Block
}

// ParseIndexRoot decodes the 16-byte root info and slices the embedded node.
func ParseIndexRoot(data block.Block) (IndexRoot, bool) {
	if data.Len() < 16 {
		return IndexRoot{}, false
	}
	indexedType, ok1 := data.Uint32(0)
	collation, ok2 := data.Uint32(4)
	blockBytes, ok3 := data.Uint32(8)
	clustersPer, ok4 := data.Uint8(12)
	if !(ok1 && ok2 && ok3 && ok4) {
		return IndexRoot{}, false
	}
	return IndexRoot{
		IndexedAttrType:       types.AttrType(indexedType),
		Collation:             types.CollationRule(collation),
		IndexBlockBytes:       blockBytes,
		ClustersPerIndexBlock: clustersPer,
		NodeData:              data.SliceFrom(16),
	}, true
}

// IndexAllocationPayload is the decoded $INDEX_ALLOCATION payload: always
// non-resident, the payload *is* the run list (§4.5).
type IndexAllocationPayload struct {
	Runs          []runs.Run
	AllocatedSize uint64
	RealSize      uint64
}
