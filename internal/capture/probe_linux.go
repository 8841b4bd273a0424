//go:build linux

package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// devicePath is overridden in tests.
var devicePath = func(index int) string {
	return fmt.Sprintf("/dev/video%d", index)
}

// Probe reports whether the V4L2 device for index exists and is readable by
// this process.
func Probe(index int) error {
	path := devicePath(index)
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	switch {
	case err == nil:
		return f.Close()
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNoDevice, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	default:
		return fmt.Errorf("probe %s: %w", path, err)
	}
}
