package attr

import (
	"fmt"

	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/runs"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
)

// SectorReader reads n consecutive sectors starting at sector id. Attribute
// range reads are expressed against it so this package never depends on a
// concrete block device.
type SectorReader func(id uint64, n uint64) ([]byte, error)

// ReadRange implements the $DATA range-read primitive (§4.5): resident
// payloads slice directly; non-resident payloads translate the byte offset
// to a starting sector via the run map and read through r, trimming partial
// leading/trailing sectors. Sparse runs produce zero-filled regions without
// calling r. offset==realSize returns an empty slice; an offset past
// realSize is an error, and a range that runs past realSize is cut to the
// realSize-offset bytes that exist (boundary behaviors, §8).
func (a Attribute) ReadRange(offset, length uint64, sectorsPerCluster, bytesPerSector uint64, r SectorReader) ([]byte, error) {
	if a.Type != types.AttrData {
		return nil, fmt.Errorf("attr: ReadRange called on non-$DATA attribute")
	}
	dp, ok := a.Payload.(DataPayload)
	if !ok {
		return nil, fmt.Errorf("attr: $DATA payload not decoded")
	}

	realSize := dp.NR.RealSize
	if dp.Resident {
		realSize = uint64(len(dp.ResidentBytes))
	}

	if offset > realSize {
		return nil, fmt.Errorf("attr: range request offset %d beyond real size %d", offset, realSize)
	}
	if offset == realSize {
		return []byte{}, nil
	}
	if offset+length > realSize {
		length = realSize - offset
	}
	if length == 0 {
		return []byte{}, nil
	}

	if dp.Resident {
		return dp.ResidentBytes[offset : offset+length], nil
	}

	sectorMap := runs.ToSectorMap(dp.NR.Runs, sectorsPerCluster)

	startSector := offset / bytesPerSector
	endSector := (offset + length - 1) / bytesPerSector
	nSectors := endSector - startSector + 1

	extents, err := runs.VSNToLSN(sectorMap, startSector, nSectors)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, 0, nSectors*bytesPerSector)
	for _, ext := range extents {
		want := ext.Sectors * bytesPerSector
		if ext.Sparse {
			raw = append(raw, make([]byte, want)...)
			continue
		}
		buf, err := r(ext.StartSector, ext.Sectors)
		if err != nil {
			return nil, err
		}
		if uint64(len(buf)) != want {
			return nil, fmt.Errorf("attr: short read at sector %d: got %d bytes, want %d", ext.StartSector, len(buf), want)
		}
		raw = append(raw, buf...)
	}

	leadTrim := offset - startSector*bytesPerSector
	return raw[leadTrim : leadTrim+length], nil
}
