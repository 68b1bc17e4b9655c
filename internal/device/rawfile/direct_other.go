//go:build !linux

package rawfile

import "errors"

// openDirect has no portable equivalent outside Linux; Open always falls
// back to openBuffered on these platforms.
func openDirect(path string) (*File, error) {
	return nil, errors.New("rawfile: O_DIRECT not supported on this platform")
}
