package device

import (
	"os"
	"path/filepath"

	"github.com/ntfs-tools/ntfsinspector/internal/interfaces"
)

// FileEnumerator implements interfaces.VolumeEnumerator by scanning a fixed
// set of directories for regular files, tagging each one "ntfs" or
// "unknown" by reading its boot-sector OEM id. It never mounts or scans
// block devices directly — OS-level device enumeration is out of scope
// (spec.md §1 keeps the volume enumerator an external collaborator); this
// is the local-image-file default the CLI's `list` command uses.
type FileEnumerator struct {
	SearchPaths []string
}

const ntfsOEMOffset = 3
const ntfsOEMLen = 8
const ntfsOEM = "NTFS    "

// ListVolumes implements interfaces.VolumeEnumerator.
func (e FileEnumerator) ListVolumes() ([]interfaces.VolumeInfo, error) {
	var out []interfaces.VolumeInfo
	for _, dir := range e.SearchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, ent := range entries {
			if ent.IsDir() {
				continue
			}
			path := filepath.Join(dir, ent.Name())
			info, err := ent.Info()
			if err != nil {
				continue
			}
			out = append(out, interfaces.VolumeInfo{
				Path:          path,
				FilesystemTag: tagFile(path),
				Size:          uint64(info.Size()),
			})
		}
	}
	return out, nil
}

// tagFile reads the first 512 bytes of path and checks the NTFS OEM id,
// returning "ntfs" or "unknown". A read failure is reported as "unknown"
// rather than propagated — enumeration best-effort skips what it can't read.
func tagFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "unknown"
	}
	defer f.Close()

	buf := make([]byte, ntfsOEMOffset+ntfsOEMLen)
	n, err := f.ReadAt(buf, 0)
	if err != nil || n != len(buf) {
		return "unknown"
	}
	if string(buf[ntfsOEMOffset:ntfsOEMOffset+ntfsOEMLen]) == ntfsOEM {
		return "ntfs"
	}
	return "unknown"
}
