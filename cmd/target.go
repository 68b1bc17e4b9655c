package cmd

import (
	"strconv"

	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/volume"
)

// resolveTarget interprets arg as a bare FRN if it parses as a decimal
// integer, otherwise as a slash-separated path resolved through the
// volume's directory indexes.
func resolveTarget(vol *volume.Volume, arg string) (types.FRN, error) {
	if n, err := strconv.ParseUint(arg, 10, 48); err == nil {
		return types.FRN(n), nil
	}
	return vol.ResolvePath(arg)
}
