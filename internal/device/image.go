// Package device provides interfaces.BlockDevice implementations for raw
// NTFS image files and device nodes (C2): sector-addressed I/O over a
// single volume image, with no assumption about any wrapping container.
package device

import (
	"fmt"
	"sync"

	"github.com/ntfs-tools/ntfsinspector/internal/device/rawfile"
)

// defaultSectorSize is the fixed sector size every Image addresses; it is
// not updated from the boot sector. Callers that need the volume's real
// geometry read it from boot.Sector.BytesPerSector after volume.Open, not
// from the device.
const defaultSectorSize = 512

// Image is a BlockDevice backed by a raw NTFS image file or device node.
type Image struct {
	f          *rawfile.File
	byteOffset int64
	sectorSize uint32
	totalSize  uint64

	mu sync.Mutex
}

// OpenImage opens path as a raw block device, with sector 0 starting at
// byteOffset within the file — non-zero for images that carry a partition
// table ahead of the NTFS volume. It makes no assumption about the data
// found there — volume.Open is what validates the NTFS boot sector — this
// layer only provides sector-addressed I/O.
func OpenImage(path string, byteOffset int64) (*Image, error) {
	f, err := rawfile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("device: opening %s: %w", path, err)
	}
	size, err := f.Size()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("device: stat %s: %w", path, err)
	}
	if byteOffset < 0 || byteOffset > size {
		f.Close()
		return nil, fmt.Errorf("device: offset %d out of range for %s (%d bytes)", byteOffset, path, size)
	}
	return &Image{f: f, byteOffset: byteOffset, sectorSize: defaultSectorSize, totalSize: uint64(size - byteOffset)}, nil
}

// ReadSector reads exactly one sector.
func (d *Image) ReadSector(id uint64) ([]byte, error) {
	return d.ReadSectors(id, 1)
}

// ReadSectors reads n consecutive sectors starting at id.
func (d *Image) ReadSectors(id uint64, n uint32) ([]byte, error) {
	buf := make([]byte, uint64(n)*uint64(d.sectorSize))
	off := d.byteOffset + int64(id)*int64(d.sectorSize)
	read, err := d.f.ReadAt(buf, off)
	if err != nil {
		return nil, fmt.Errorf("device: reading %d sector(s) at %d: %w", n, id, err)
	}
	if read != len(buf) {
		return nil, fmt.Errorf("device: short read at sector %d: got %d bytes, want %d", id, read, len(buf))
	}
	return buf, nil
}

// WriteSector overwrites exactly one sector. It does not take the lock
// itself; Volume.WriteSector holds it (via Lock/Unlock) around this call.
func (d *Image) WriteSector(id uint64, data []byte) (int, error) {
	if uint64(len(data)) != uint64(d.sectorSize) {
		return 0, fmt.Errorf("device: write must be exactly one sector (%d bytes), got %d", d.sectorSize, len(data))
	}
	if id >= d.totalSize/uint64(d.sectorSize) {
		return 0, fmt.Errorf("device: write at sector %d past end of device", id)
	}
	off := d.byteOffset + int64(id)*int64(d.sectorSize)
	return d.f.WriteAt(data, off)
}

// SectorSize returns the device's fixed sector size.
func (d *Image) SectorSize() uint32 { return d.sectorSize }

// TotalSize returns the total addressable size of the underlying file.
func (d *Image) TotalSize() uint64 { return d.totalSize }

// Lock implements interfaces.VolumeLocker (§5): an in-process mutex around
// the write path. It does not claim any OS-level advisory lock over a
// shared device node — only single-process callers are protected.
func (d *Image) Lock() error {
	d.mu.Lock()
	return nil
}

// Unlock releases the lock acquired by Lock.
func (d *Image) Unlock() error {
	d.mu.Unlock()
	return nil
}

// Close releases the underlying file handle.
func (d *Image) Close() error {
	return d.f.Close()
}
