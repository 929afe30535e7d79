//go:build unix

package provider

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/breeze-rmm/procmon/internal/process"
)

func TestClassifySignalError(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{unix.ESRCH, process.ErrProcessNotFound},
		{unix.EPERM, process.ErrPermissionDenied},
		{unix.EACCES, process.ErrPermissionDenied},
		{unix.EINVAL, process.ErrPlatform},
	}
	for _, tc := range cases {
		got := classifySignalError(42, tc.err)
		if !errors.Is(got, tc.want) {
			t.Fatalf("classifySignalError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}

	var perr *process.PlatformError
	if !errors.As(classifySignalError(42, unix.EINVAL), &perr) || perr.PID != 42 {
		t.Fatalf("expected *PlatformError for pid 42, got %v", perr)
	}
}
