//go:build linux

package rawfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// openDirect opens path with O_DIRECT, so sector reads go straight to the
// block layer instead of being served from (and polluting) the page cache.
// O_DIRECT imposes alignment requirements on the caller's buffers and
// offsets. Reads that don't meet them fail as ReadAt errors; Open falls
// back to buffered I/O only when this open call itself fails, never after
// a later read error.
func openDirect(path string) (*File, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_DIRECT, 0)
	if err != nil {
		fd, err = unix.Open(path, unix.O_RDONLY|unix.O_DIRECT, 0)
	}
	if err != nil {
		return nil, err
	}
	return &File{f: os.NewFile(uintptr(fd), path)}, nil
}
