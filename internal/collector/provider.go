package collector

import (
	"context"
	"time"

	"github.com/breeze-rmm/procmon/internal/process"
)

// Handle reads the attributes of one live process. Methods return an error
// wrapping process.ErrVanished once the process has exited; any other error
// means that single attribute could not be read.
type Handle interface {
	PID() uint32
	Name(ctx context.Context) (string, error)
	Cmdline(ctx context.Context) ([]string, error)
	Environ(ctx context.Context) ([]string, error)
	UID(ctx context.Context) (uint32, error)
	ParentPID(ctx context.Context) (uint32, error)
	Memory(ctx context.Context) (rss, vms uint64, err error)
	Status(ctx context.Context) (string, error)
	CreateTime(ctx context.Context) (time.Time, error)
	CPUTimes(ctx context.Context) (process.CPUTimes, error)
	IOCounters(ctx context.Context) (read, written uint64, err error)
}

// Provider is the OS-facing side of process monitoring.
type Provider interface {
	// Processes enumerates every live process.
	Processes(ctx context.Context) ([]Handle, error)
	// SystemCPUTimes returns cumulative CPU time summed over all cores.
	SystemCPUTimes(ctx context.Context) (process.CPUTimes, error)
	// NumCPU returns the number of logical CPUs.
	NumCPU(ctx context.Context) (int, error)
	// Lookup queries a single PID afresh. It returns an error wrapping
	// process.ErrProcessNotFound if the PID is not live.
	Lookup(ctx context.Context, pid uint32) (Handle, error)
	// Terminate asks the OS to end pid, gracefully unless force is set.
	// Errors wrap process.ErrProcessNotFound, process.ErrPermissionDenied
	// or a *process.PlatformError.
	Terminate(ctx context.Context, pid uint32, force bool) error
}
