package process

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable means the full process list could not be read.
	ErrProviderUnavailable = errors.New("process provider unavailable")
	// ErrVanished means a process exited while it was being read.
	ErrVanished = errors.New("process vanished")
	// ErrProcessNotFound means the PID is not (or no longer) a live process.
	ErrProcessNotFound = errors.New("process not found")
	// ErrPermissionDenied means the OS refused the operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrPlatform matches any *PlatformError via errors.Is.
	ErrPlatform = errors.New("platform error")
)

// PlatformError is an OS failure that is neither "not found" nor
// "permission denied".
type PlatformError struct {
	Op  string
	PID uint32
	Err error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s pid %d: %v", e.Op, e.PID, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

func (e *PlatformError) Is(target error) bool {
	return target == ErrPlatform
}
