// Package types defines the shared primitive types of the NTFS core: file
// references, attribute type codes, on-disk flag bits, and the Windows
// FILETIME conversion. Nothing here touches I/O.
package types

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// FRN is a 48-bit file-record number, the index of a record within the MFT.
type FRN uint64

// FileReference is an FRN plus the 16-bit sequence number that increments
// each time the record is reused.
type FileReference struct {
	FRN            FRN
	SequenceNumber uint16
}

// FileReferenceFromRaw decodes an 8-byte packed file reference: low 48 bits are the FRN, high
// 16 bits are the sequence number.
func FileReferenceFromRaw(raw uint64) FileReference {
	return FileReference{
		FRN:            FRN(raw & 0x0000FFFFFFFFFFFF),
		SequenceNumber: uint16(raw >> 48),
	}
}

func (r FileReference) Raw() uint64 {
	return uint64(r.FRN&0x0000FFFFFFFFFFFF) | uint64(r.SequenceNumber)<<48
}

// Reserved file-record numbers (§6).
const (
	FRNMFT        FRN = 0
	FRNMFTMirr    FRN = 1
	FRNLogFile    FRN = 2
	FRNVolume     FRN = 3
	FRNAttrDef    FRN = 4
	FRNRootDir    FRN = 5
	FRNBitmap     FRN = 6
	FRNBoot       FRN = 7
	FRNBadClus    FRN = 8
	FRNSecure     FRN = 9
	FRNUpCase     FRN = 10
	FRNExtend     FRN = 11
)

// AttrType is an on-disk attribute type code (§6).
type AttrType uint32

const (
	AttrStandardInformation AttrType = 0x10
	AttrAttributeList       AttrType = 0x20
	AttrFileName            AttrType = 0x30
	AttrObjectID            AttrType = 0x40
	AttrSecurityDescriptor  AttrType = 0x50
	AttrVolumeName          AttrType = 0x60
	AttrVolumeInformation   AttrType = 0x70
	AttrData                AttrType = 0x80
	AttrIndexRoot           AttrType = 0x90
	AttrIndexAllocation     AttrType = 0xA0
	AttrBitmap              AttrType = 0xB0
	AttrLoggedUtilityStream AttrType = 0x100
	AttrEnd                 AttrType = 0xFFFFFFFF
)

// TypeName returns a human-readable name for an attribute type, or "" if
// unknown. Used at display boundaries only.
func (t AttrType) TypeName() string {
	switch t {
	case AttrStandardInformation:
		return "$STANDARD_INFORMATION"
	case AttrAttributeList:
		return "$ATTRIBUTE_LIST"
	case AttrFileName:
		return "$FILE_NAME"
	case AttrObjectID:
		return "$OBJECT_ID"
	case AttrSecurityDescriptor:
		return "$SECURITY_DESCRIPTOR"
	case AttrVolumeName:
		return "$VOLUME_NAME"
	case AttrVolumeInformation:
		return "$VOLUME_INFORMATION"
	case AttrData:
		return "$DATA"
	case AttrIndexRoot:
		return "$INDEX_ROOT"
	case AttrIndexAllocation:
		return "$INDEX_ALLOCATION"
	case AttrBitmap:
		return "$BITMAP"
	case AttrLoggedUtilityStream:
		return "$LOGGED_UTILITY_STREAM"
	default:
		return ""
	}
}

// FileRecordFlag bits in the FILE record header.
type FileRecordFlag uint16

const (
	FileRecordInUse       FileRecordFlag = 0x0001
	FileRecordIsDirectory FileRecordFlag = 0x0002
)

// FileNameFlag bits carried in a $FILE_NAME payload.
type FileNameFlag uint32

const (
	FileNameReadOnly    FileNameFlag = 0x1
	FileNameHidden      FileNameFlag = 0x2
	FileNameSystem      FileNameFlag = 0x4
	FileNameArchive     FileNameFlag = 0x20
	FileNameDevice      FileNameFlag = 0x40
	FileNameNormal      FileNameFlag = 0x80
	FileNameTemporary   FileNameFlag = 0x100
	FileNameSparse      FileNameFlag = 0x200
	FileNameReparse     FileNameFlag = 0x400
	FileNameCompressed  FileNameFlag = 0x800
	FileNameOffline     FileNameFlag = 0x1000
	FileNameNotIndexed  FileNameFlag = 0x2000
	FileNameEncrypted   FileNameFlag = 0x4000
	FileNameDirectory   FileNameFlag = 0x10000000
	FileNameIndexView   FileNameFlag = 0x20000000
)

// FileNameNamespace identifies which namespace a $FILE_NAME belongs to.
type FileNameNamespace uint8

const (
	NamespacePOSIX    FileNameNamespace = 0
	NamespaceWin32    FileNameNamespace = 1
	NamespaceDOS      FileNameNamespace = 2
	NamespaceWin32DOS FileNameNamespace = 3
)

// UsnReason bits (§6).
type UsnReason uint32

const (
	UsnReasonDataOverwrite     UsnReason = 0x1
	UsnReasonDataExtend        UsnReason = 0x2
	UsnReasonDataTruncation    UsnReason = 0x4
	UsnReasonNamedDataOverwrite UsnReason = 0x10
	UsnReasonNamedDataExtend    UsnReason = 0x20
	UsnReasonNamedDataTruncation UsnReason = 0x40
	UsnReasonFileCreate        UsnReason = 0x100
	UsnReasonFileDelete        UsnReason = 0x200
	UsnReasonEAChange          UsnReason = 0x400
	UsnReasonSecurityChange    UsnReason = 0x800
	UsnReasonRenameOldName     UsnReason = 0x1000
	UsnReasonRenameNewName     UsnReason = 0x2000
	UsnReasonIndexableChange   UsnReason = 0x4000
	UsnReasonBasicInfoChange   UsnReason = 0x8000
	UsnReasonHardLinkChange    UsnReason = 0x10000
	UsnReasonCompressionChange UsnReason = 0x20000
	UsnReasonEncryptionChange  UsnReason = 0x40000
	UsnReasonObjectIDChange    UsnReason = 0x80000
	UsnReasonReparsePointChange UsnReason = 0x100000
	UsnReasonStreamChange      UsnReason = 0x200000
	UsnReasonClose             UsnReason = 0x80000000
)

// FileTime is a 64-bit count of 100ns units since 1601-01-01 UTC.
type FileTime uint64

var ntfsEpoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

// Time converts an NTFS FileTime to a time.Time.
func (f FileTime) Time() time.Time {
	return ntfsEpoch.Add(time.Duration(f) * 100)
}

// VolumeSerial is the 64-bit serial number stamped in the boot sector.
type VolumeSerial uint64

// volumeSerialNamespace is a fixed namespace UUID used to derive a stable
// UUID view of a volume serial, so the same 64-bit value always maps to the
// same UUID across runs and hosts.
var volumeSerialNamespace = uuid.MustParse("6f6e7420-6e74-4673-8001-000000000000")

// UUID derives a deterministic UUIDv5 from the volume serial, for callers
// (reports, cross-referencing tools) that want a stable Go UUID identifier
// rather than a raw 64-bit integer.
func (s VolumeSerial) UUID() uuid.UUID {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(s))
	return uuid.NewSHA1(volumeSerialNamespace, buf[:])
}

// CollationRule identifies the ordering used within an index (§4.7).
type CollationRule uint32

const (
	CollationBinary       CollationRule = 0x0
	CollationFilename     CollationRule = 0x1
	CollationUnicodeString CollationRule = 0x2
	CollationUlong        CollationRule = 0x10
	CollationSID          CollationRule = 0x11
	CollationSecurityHash CollationRule = 0x12
	CollationUlongs       CollationRule = 0x13
)
