// Package interfaces defines the contracts the NTFS core consumes from its
// external collaborators (§1, §6): the block device and the volume
// enumerator. The core never depends on a concrete device implementation —
// only on these interfaces — so it can run against raw disks, image files,
// or test doubles interchangeably.
package interfaces

// BlockDevice is the sector-addressed external collaborator the core reads
// and optionally writes through. Implementations live outside the core
// (internal/device); every method can fail with an I/O error.
type BlockDevice interface {
	// ReadSector reads exactly one sector at the given sector id.
	ReadSector(id uint64) ([]byte, error)

	// ReadSectors reads n consecutive sectors starting at id. A short read
	// is a failure, never a partial result.
	ReadSectors(id uint64, n uint32) ([]byte, error)

	// WriteSector overwrites one sector. The lock is taken by the caller:
	// Volume.WriteSector acquires VolumeLocker (when implemented) before
	// this call and releases it immediately after (§5); failure to acquire
	// the lock is a write failure, not a fatal error.
	WriteSector(id uint64, data []byte) (int, error)

	// SectorSize returns the device's sector size in bytes.
	SectorSize() uint32

	// TotalSize returns the total addressable size of the device in bytes.
	TotalSize() uint64
}

// VolumeLocker is an optional capability a BlockDevice may implement to
// support the advisory exclusivity window around WriteSector (§5). Devices
// that don't support locking simply don't implement it; Volume.WriteSector
// treats a missing lock as always-available.
type VolumeLocker interface {
	Lock() error
	Unlock() error
}

// VolumeInfo describes one volume found by a VolumeEnumerator.
type VolumeInfo struct {
	// Path is the implementation-defined path or identifier for the volume.
	Path string
	// FilesystemTag names the detected filesystem kind ("ntfs" or
	// "unknown").
	FilesystemTag string
	// Size is the volume's total size in bytes, when known.
	Size uint64
}

// VolumeEnumerator lists available volumes. It is an external collaborator
// per spec.md §1; the core never calls it directly, only the CLI layer
// (cmd/list.go) does, to decide which image/device to open.
type VolumeEnumerator interface {
	ListVolumes() ([]VolumeInfo, error)
}
