// Package fixup implements the USN/USA update-sequence integrity check
// shared by FILE records and INDX index records (§3, §4.6, §4.7): each
// 512-byte-boundary word must equal a sentinel before being overwritten
// with the saved original word.
package fixup

import "github.com/ntfs-tools/ntfsinspector/internal/ntfs/block"

// Apply verifies and restores the update sequence array in place. buf must
// be an independently owned block (callers fix up a copy, never the
// device-facing buffer). Returns false on any sentinel mismatch or
// out-of-range offset, in which case buf is left partially modified and
// must be discarded by the caller.
func Apply(buf block.Block, offsetToUS, sizeInWordsUSN uint16, bytesPerSector uint16) bool {
	if sizeInWordsUSN == 0 || bytesPerSector == 0 {
		return false
	}
	usaWordCount := int(sizeInWordsUSN) - 1
	usnOff := int(offsetToUS)
	if usnOff+2+usaWordCount*2 > buf.Len() {
		return false
	}
	usn, ok := buf.Uint16(usnOff)
	if !ok {
		return false
	}

	for i := 0; i < usaWordCount; i++ {
		sectorEnd := (i+1)*int(bytesPerSector) - 2
		if sectorEnd+2 > buf.Len() {
			return false
		}
		cur, ok := buf.Uint16(sectorEnd)
		if !ok || cur != usn {
			return false
		}
		replacement, ok := buf.Uint16(usnOff + 2 + i*2)
		if !ok {
			return false
		}
		putUint16(buf, sectorEnd, replacement)
	}
	return true
}

func putUint16(buf block.Block, off int, v uint16) {
	b := buf.Bytes()
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
}
