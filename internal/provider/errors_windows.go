//go:build windows

package provider

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/breeze-rmm/procmon/internal/process"
)

// classifySignalError maps a failed OpenProcess/TerminateProcess onto the
// process error set. OpenProcess reports a PID that does not exist as
// ERROR_INVALID_PARAMETER.
func classifySignalError(pid uint32, err error) error {
	switch {
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
		return fmt.Errorf("%w: pid %d", process.ErrProcessNotFound, pid)
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("%w: pid %d", process.ErrPermissionDenied, pid)
	default:
		return &process.PlatformError{Op: "terminate", PID: pid, Err: err}
	}
}
