// Package filerecord implements FileRecord (C7): fixup application,
// attribute-sequence decode, and chaining of extension records through
// $ATTRIBUTE_LIST.
package filerecord

import (
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/attr"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/block"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/fixup"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/winstring"
)

const headerSize = 48
const magic = "FILE"

// Record is a decoded FILE record. A Record with Valid == false carries no
// usable fields, and its Attributes slice is empty — callers chaining
// through an invalid record see empty results, never a crash (§4.10).
type Record struct {
	Valid bool

	FRN              types.FRN
	SequenceNumber   uint16
	LSN              uint64
	HardLinkCount    uint16
	Flags            types.FileRecordFlag
	RealSize         uint32
	AllocatedSize    uint32
	BaseFileRef      types.FileReference
	NextAttrID       uint16

	Attributes []attr.Attribute
}

// IsExtension reports whether this record's attributes logically belong to
// a different base FRN.
func (r Record) IsExtension() bool {
	return r.BaseFileRef.FRN != 0 || r.BaseFileRef.SequenceNumber != 0
}

// IsDirectory reports the IS_DIRECTORY flag.
func (r Record) IsDirectory() bool {
	return r.Flags&types.FileRecordIsDirectory != 0
}

// IsInUse reports the IN_USE flag.
func (r Record) IsInUse() bool {
	return r.Flags&types.FileRecordInUse != 0
}

// ExtensionLoader loads another FILE record by FRN, used to resolve
// $ATTRIBUTE_LIST references into extension records (§4.6 step 4). The
// volume layer supplies this; filerecord itself never touches a device.
type ExtensionLoader func(frn types.FRN) (Record, error)

// NonResidentListMaterializer reads a non-resident $ATTRIBUTE_LIST
// attribute's full bytes and parses them, for the rare case an
// $ATTRIBUTE_LIST itself outgrows one record (§4.5, §4.6 step 4). May be
// nil; a non-resident $ATTRIBUTE_LIST is then simply not chained.
type NonResidentListMaterializer func(a attr.Attribute) (attr.AttributeList, bool)

// Decode implements §4.6: header validation, USN/USA fixup, attribute-list
// iteration, and — when loader is non-nil — extension-record chaining.
// bytesPerSector is required to locate each sector's fixup word.
func Decode(raw block.Block, frn types.FRN, bytesPerSector uint16, loader ExtensionLoader) Record {
	return decode(raw, frn, bytesPerSector, loader, nil)
}

// DecodeWithListMaterializer is Decode plus the ability to chain through a
// non-resident $ATTRIBUTE_LIST.
func DecodeWithListMaterializer(raw block.Block, frn types.FRN, bytesPerSector uint16, loader ExtensionLoader, nrList NonResidentListMaterializer) Record {
	return decode(raw, frn, bytesPerSector, loader, nrList)
}

func decode(raw block.Block, frn types.FRN, bytesPerSector uint16, loader ExtensionLoader, nrList NonResidentListMaterializer) Record {
	if raw.Len() < headerSize {
		return Record{}
	}
	magicBytes := raw.Slice(0, 4)
	if string(magicBytes.Bytes()) != magic {
		return Record{}
	}

	offsetToUS, ok1 := raw.Uint16(4)
	sizeInWordsUSN, ok2 := raw.Uint16(6)
	lsn, ok3 := raw.Uint64(8)
	seqNum, ok4 := raw.Uint16(16)
	hardLinks, ok5 := raw.Uint16(18)
	offToFirstAttr, ok6 := raw.Uint16(20)
	flags, ok7 := raw.Uint16(22)
	realSize, ok8 := raw.Uint32(24)
	allocSize, ok9 := raw.Uint32(28)
	rawBaseRef, ok10 := raw.Uint64(32)
	nextAttrID, ok11 := raw.Uint16(40)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7 && ok8 && ok9 && ok10 && ok11) {
		return Record{}
	}

	if uint64(offToFirstAttr) > uint64(realSize) || uint64(realSize) > uint64(allocSize) {
		return Record{}
	}

	// Fixup applies to a local copy, never the device-facing buffer, so
	// reads remain idempotent and re-parseable (§9).
	fixedUp := raw.Copy()
	if !fixup.Apply(fixedUp, offsetToUS, sizeInWordsUSN, bytesPerSector) {
		return Record{}
	}

	r := Record{
		Valid:          true,
		FRN:            frn,
		SequenceNumber: seqNum,
		LSN:            lsn,
		HardLinkCount:  hardLinks,
		Flags:          types.FileRecordFlag(flags),
		RealSize:       realSize,
		AllocatedSize:  allocSize,
		BaseFileRef:    types.FileReferenceFromRaw(rawBaseRef),
		NextAttrID:     nextAttrID,
	}

	attrsData := fixedUp.Slice(int(offToFirstAttr), int(realSize)-int(offToFirstAttr))
	pos := 0
	for pos+8 <= attrsData.Len() {
		one := attr.Decode(attrsData.SliceFrom(pos))
		if !one.Valid || one.Length == 0 {
			break
		}
		one.AttrIndex = len(r.Attributes)
		one.FileRecordFrom = frn
		r.Attributes = append(r.Attributes, one)
		pos += int(one.Length)
	}

	if loader != nil {
		r.chainAttributeLists(loader, nrList)
	}

	return r
}

// chainAttributeLists implements §4.6 step 4: for each $ATTRIBUTE_LIST
// entry referencing a different FRN, recursively load the extension record
// and append its attributes in list order.
func (r *Record) chainAttributeLists(loader ExtensionLoader, nrList NonResidentListMaterializer) {
	for _, a := range r.Attributes {
		if a.Type != types.AttrAttributeList {
			continue
		}
		list, ok := a.Payload.(attr.AttributeList)
		if !ok {
			if !a.Resident && nrList != nil {
				list, ok = nrList(a)
			}
			if !ok {
				continue
			}
		}
		for _, entry := range list.Entries {
			if entry.FileReference.FRN == r.FRN {
				continue
			}
			ext, err := loader(entry.FileReference.FRN)
			if err != nil || !ext.Valid {
				continue
			}
			for _, extAttr := range ext.Attributes {
				extAttr.AttrIndex = len(r.Attributes)
				r.Attributes = append(r.Attributes, extAttr)
			}
		}
	}
}

// FindAttr returns the first attribute matching type (and, if non-nil,
// name and filename), scanning forward (§4.6). The filename filter only
// applies to attributes that carry a $FILE_NAME payload.
func (r Record) FindAttr(t types.AttrType, name winstring.String, filenameFilter winstring.String) (attr.Attribute, bool) {
	for _, a := range r.Attributes {
		if a.Type != t {
			continue
		}
		if name != nil && !a.Name.Equal(name) {
			continue
		}
		if filenameFilter != nil {
			fn, ok := a.Payload.(attr.FileName)
			if ok && !fn.Name.Equal(filenameFilter) {
				continue
			}
		}
		return a, true
	}
	return attr.Attribute{}, false
}

// AttrByID returns the attribute with the given id, searching the full
// chain (base + extension attributes), so attributes loaded from extension
// records are found (§4.6).
func (r Record) AttrByID(id uint16) (attr.Attribute, bool) {
	for i := len(r.Attributes) - 1; i >= 0; i-- {
		if r.Attributes[i].AttrID == id {
			return r.Attributes[i], true
		}
	}
	return attr.Attribute{}, false
}

// FileName returns the first $FILE_NAME payload's name, or an empty string
// if none is present.
func (r Record) FileName() string {
	a, ok := r.FindAttr(types.AttrFileName, nil, nil)
	if !ok {
		return ""
	}
	fn, ok := a.Payload.(attr.FileName)
	if !ok {
		return ""
	}
	return fn.Name.Decode()
}

