// Package boot implements BootSector (C3): decode of the first 512 bytes of
// an NTFS volume and the geometry constants derived from it.
package boot

import (
	"github.com/google/uuid"

	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/block"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
)

// Sector holds the decoded geometry of an NTFS boot sector. A Sector with
// Valid == false carries no usable fields.
type Sector struct {
	Valid bool

	BytesPerSector    uint16
	SectorsPerCluster uint8
	TotalSectors      uint64
	MFTStartLCN       uint64
	MFTMirrorLCN      uint64

	// FileRecordSizeHint / IndexRecordSizeHint are the raw signed hint
	// bytes as read from the boot sector (§3): positive means "this many
	// clusters", negative means "2^(-value) bytes". The authoritative
	// file-record size is the $MFT's own FILE record allocatedSize (§4.2,
	// §4.8), not this hint — callers should prefer that once available.
	FileRecordSizeHint  int8
	IndexRecordSizeHint int8

	VolumeSerial uint64
}

const oemID = "NTFS    "

// Decode parses a 512-byte boot sector block. An invalid OEM id, or a block
// shorter than 512 bytes, yields Sector{Valid: false}.
func Decode(data block.Block) Sector {
	if data.Len() < 512 {
		return Sector{}
	}
	oem := data.Slice(3, 8)
	if string(oem.Bytes()) != oemID {
		return Sector{}
	}

	bytesPerSector, ok1 := data.Uint16(11)
	sectorsPerCluster, ok2 := data.Uint8(13)
	totalSectors, ok3 := data.Uint64(0x28)
	mftStartLCN, ok4 := data.Uint64(0x30)
	mftMirrorLCN, ok5 := data.Uint64(0x38)
	frHint, ok6 := data.Uint8(0x40)
	irHint, ok7 := data.Uint8(0x44)
	serial, ok8 := data.Uint64(0x48)

	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7 && ok8) {
		return Sector{}
	}

	if bytesPerSector == 0 || sectorsPerCluster == 0 {
		return Sector{}
	}

	return Sector{
		Valid:               true,
		BytesPerSector:      bytesPerSector,
		SectorsPerCluster:   sectorsPerCluster,
		TotalSectors:        totalSectors,
		MFTStartLCN:         mftStartLCN,
		MFTMirrorLCN:        mftMirrorLCN,
		FileRecordSizeHint:  int8(frHint),
		IndexRecordSizeHint: int8(irHint),
		VolumeSerial:        serial,
	}
}

// RecordSizeFromHint interprets a signed size hint byte per §4.2: positive
// means clusters, negative means 1<<(-hint) bytes.
func RecordSizeFromHint(hint int8, clusterSize uint32) uint32 {
	if hint > 0 {
		return uint32(hint) * clusterSize
	}
	return uint32(1) << uint(-hint)
}

// ClusterSize returns BytesPerSector * SectorsPerCluster.
func (s Sector) ClusterSize() uint32 {
	return uint32(s.BytesPerSector) * uint32(s.SectorsPerCluster)
}

// SerialUUID returns a stable UUID view of the volume's 64-bit serial
// number, for callers that want a Go UUID identifier rather than a raw hex
// integer (cross-referencing a volume across reports, for instance).
func (s Sector) SerialUUID() uuid.UUID {
	return types.VolumeSerial(s.VolumeSerial).UUID()
}
