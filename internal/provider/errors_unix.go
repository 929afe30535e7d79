//go:build unix

package provider

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/breeze-rmm/procmon/internal/process"
)

// classifySignalError maps a failed kill(2) onto the process error set.
func classifySignalError(pid uint32, err error) error {
	switch {
	case errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: pid %d", process.ErrProcessNotFound, pid)
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.EACCES):
		return fmt.Errorf("%w: pid %d", process.ErrPermissionDenied, pid)
	default:
		return &process.PlatformError{Op: "signal", PID: pid, Err: err}
	}
}
