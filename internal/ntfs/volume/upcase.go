package volume

import (
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
)

// upcaseTableLen is the number of uint16 entries in a full $UpCase stream:
// one uppercase mapping per UTF-16 code unit in the BMP.
const upcaseTableLen = 65536

// UpcaseTable is the volume's $UpCase mapping (FRN 10): for every UTF-16
// code unit, the code unit Windows folds it to for filename comparison.
// Loading it is what lets FILENAME-collation compares match what Windows
// itself would do outside the ASCII/Latin-1 range the built-in fallback
// handles.
type UpcaseTable []uint16

// Fold looks up c's uppercase mapping in u. Code units beyond the table (a
// malformed or truncated $UpCase stream) pass through unchanged.
func (u UpcaseTable) Fold(c uint16) uint16 {
	if int(c) >= len(u) {
		return c
	}
	return u[c]
}

// upcaseTable lazily loads and caches the volume's $UpCase table. A volume
// missing FRN 10 or carrying a malformed stream yields ok == false, and
// callers fall back to the built-in ASCII/Latin-1 folding.
func (v *Volume) upcaseTable() (UpcaseTable, bool) {
	v.upcaseOnce.Do(func() {
		v.upcaseOK = v.loadUpcaseTable()
	})
	return v.upcase, v.upcaseOK
}

func (v *Volume) loadUpcaseTable() bool {
	rec, err := v.ReadRecord(types.FRNUpCase)
	if err != nil || !rec.Valid {
		return false
	}
	dataAttr, ok := rec.FindAttr(types.AttrData, nil, nil)
	if !ok {
		return false
	}
	var size uint64
	if dataAttr.Resident {
		size = uint64(dataAttr.ResidentPayload.Len())
	} else {
		size = dataAttr.NR.RealSize
	}
	if size < upcaseTableLen*2 {
		return false
	}
	raw, err := v.ReadAttributeData(dataAttr, 0, upcaseTableLen*2)
	if err != nil || len(raw) < upcaseTableLen*2 {
		return false
	}

	table := make(UpcaseTable, upcaseTableLen)
	for i := range table {
		table[i] = uint16(raw[i*2]) | uint16(raw[i*2+1])<<8
	}
	v.upcase = table
	return true
}
