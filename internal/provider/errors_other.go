//go:build !unix && !windows

package provider

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/breeze-rmm/procmon/internal/process"
)

func classifySignalError(pid uint32, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: pid %d", process.ErrProcessNotFound, pid)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: pid %d", process.ErrPermissionDenied, pid)
	default:
		return &process.PlatformError{Op: "terminate", PID: pid, Err: err}
	}
}
