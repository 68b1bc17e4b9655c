// Package rawfile opens an image file or raw device node for sector I/O,
// preferring unbuffered access where the platform supports it (Linux's
// O_DIRECT) and falling back to a normal buffered os.File open otherwise.
package rawfile

import "os"

// File is an opened image or device file.
type File struct {
	f *os.File
}

// Open opens path for sector-addressed reads and writes. On Linux it tries
// O_DIRECT first, so the inspector's reads bypass the page cache and see
// the same bytes a parallel forensic acquisition would; any platform or
// filesystem that rejects O_DIRECT (plain image files on tmpfs, FAT-backed
// mounts, non-Linux hosts) falls back to a normal buffered open.
func Open(path string) (*File, error) {
	if f, err := openDirect(path); err == nil {
		return f, nil
	}
	return openBuffered(path)
}

// ReadAt reads len(p) bytes starting at off.
func (rf *File) ReadAt(p []byte, off int64) (int, error) {
	return rf.f.ReadAt(p, off)
}

// WriteAt writes p starting at off.
func (rf *File) WriteAt(p []byte, off int64) (int, error) {
	return rf.f.WriteAt(p, off)
}

// Size returns the file's current size.
func (rf *File) Size() (int64, error) {
	info, err := rf.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close releases the underlying file handle.
func (rf *File) Close() error {
	return rf.f.Close()
}

func openBuffered(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}
