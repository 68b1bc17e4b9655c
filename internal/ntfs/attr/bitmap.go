package attr

import "github.com/ntfs-tools/ntfsinspector/internal/ntfs/block"

// Bitmap wraps a $BITMAP payload's bit array (§4.5). The unit a bit
// represents (cluster, file record, ...) is attached externally by whoever
// holds the attribute — Bitmap itself is unit-agnostic.
type Bitmap struct {
	Data []byte
}

// ParseBitmap copies the resident payload into a Bitmap. Non-resident
// bitmaps are built the same way after the caller materializes their bytes
// via a $DATA range read.
func ParseBitmap(data block.Block) Bitmap {
	return Bitmap{Data: data.Copy().Bytes()}
}

// Test reports whether bit pos is set. Out-of-range positions read as unset.
func (b Bitmap) Test(pos uint64) bool {
	byteIdx := pos / 8
	if byteIdx >= uint64(len(b.Data)) {
		return false
	}
	bit := pos % 8
	return b.Data[byteIdx]&(1<<bit) != 0
}

// FindFirstFree returns the index of the first unset bit, and false if every
// bit is set.
func (b Bitmap) FindFirstFree() (uint64, bool) {
	for i, byt := range b.Data {
		if byt == 0xFF {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			if byt&(1<<uint(bit)) == 0 {
				return uint64(i)*8 + uint64(bit), true
			}
		}
	}
	return 0, false
}
