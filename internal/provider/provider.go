// Package provider reads live processes from the operating system through
// gopsutil.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	gops "github.com/shirou/gopsutil/v3/process"

	"github.com/breeze-rmm/procmon/internal/collector"
	"github.com/breeze-rmm/procmon/internal/logging"
	"github.com/breeze-rmm/procmon/internal/process"
)

var log = logging.L("provider")

// Provider implements collector.Provider on top of gopsutil.
type Provider struct{}

// New returns an OS-backed provider.
func New() *Provider {
	return &Provider{}
}

var _ collector.Provider = (*Provider)(nil)

// Processes enumerates every live process.
func (p *Provider) Processes(ctx context.Context) ([]collector.Handle, error) {
	procs, err := gops.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	handles := make([]collector.Handle, 0, len(procs))
	for _, proc := range procs {
		if proc.Pid < 0 {
			continue
		}
		handles = append(handles, &handle{proc: proc})
	}
	return handles, nil
}

// SystemCPUTimes returns aggregate CPU time across all cores.
func (p *Provider) SystemCPUTimes(ctx context.Context) (process.CPUTimes, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return process.CPUTimes{}, fmt.Errorf("cpu times: %w", err)
	}
	if len(times) == 0 {
		return process.CPUTimes{}, errors.New("cpu times: no data")
	}
	return process.CPUTimes{User: times[0].User, System: times[0].System}, nil
}

// NumCPU returns the number of logical CPUs.
func (p *Provider) NumCPU(ctx context.Context) (int, error) {
	return cpu.CountsWithContext(ctx, true)
}

// Lookup opens pid afresh, bypassing any cached enumeration.
func (p *Provider) Lookup(ctx context.Context, pid uint32) (collector.Handle, error) {
	proc, err := open(ctx, pid)
	if err != nil {
		return nil, err
	}
	return &handle{proc: proc}, nil
}

// Terminate sends a graceful termination request, or kills outright when
// force is set. It never retries.
func (p *Provider) Terminate(ctx context.Context, pid uint32, force bool) error {
	proc, err := open(ctx, pid)
	if err != nil {
		return err
	}

	if force {
		err = proc.KillWithContext(ctx)
	} else {
		err = proc.TerminateWithContext(ctx)
	}
	if err != nil {
		return classifySignalError(pid, err)
	}

	log.Info("termination requested", logging.KeyPID, pid, "force", force)
	return nil
}

func open(ctx context.Context, pid uint32) (*gops.Process, error) {
	if pid == 0 || pid > math.MaxInt32 {
		return nil, fmt.Errorf("%w: invalid pid %d", process.ErrProcessNotFound, pid)
	}

	proc, err := gops.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if errors.Is(err, gops.ErrorProcessNotRunning) {
			return nil, fmt.Errorf("%w: pid %d", process.ErrProcessNotFound, pid)
		}
		return nil, classifySignalError(pid, err)
	}
	return proc, nil
}

// handle adapts a gopsutil process to collector.Handle.
type handle struct {
	proc *gops.Process
}

func (h *handle) PID() uint32 { return uint32(h.proc.Pid) }

func (h *handle) Name(ctx context.Context) (string, error) {
	name, err := h.proc.NameWithContext(ctx)
	if err != nil {
		return "", h.wrap(ctx, err)
	}
	return name, nil
}

func (h *handle) Cmdline(ctx context.Context) ([]string, error) {
	args, err := h.proc.CmdlineSliceWithContext(ctx)
	if err != nil {
		return nil, h.wrap(ctx, err)
	}
	return args, nil
}

func (h *handle) Environ(ctx context.Context) ([]string, error) {
	env, err := h.proc.EnvironWithContext(ctx)
	if err != nil {
		return nil, h.wrap(ctx, err)
	}
	return env, nil
}

func (h *handle) UID(ctx context.Context) (uint32, error) {
	uids, err := h.proc.UidsWithContext(ctx)
	if err != nil {
		return 0, h.wrap(ctx, err)
	}
	if len(uids) == 0 || uids[0] < 0 {
		return 0, errors.New("uid unavailable")
	}
	return uint32(uids[0]), nil
}

func (h *handle) ParentPID(ctx context.Context) (uint32, error) {
	ppid, err := h.proc.PpidWithContext(ctx)
	if err != nil {
		return 0, h.wrap(ctx, err)
	}
	if ppid < 0 {
		return 0, nil
	}
	return uint32(ppid), nil
}

func (h *handle) Memory(ctx context.Context) (uint64, uint64, error) {
	mem, err := h.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, 0, h.wrap(ctx, err)
	}
	if mem == nil {
		return 0, 0, errors.New("memory info unavailable")
	}
	return mem.RSS, mem.VMS, nil
}

func (h *handle) Status(ctx context.Context) (string, error) {
	status, err := h.proc.StatusWithContext(ctx)
	if err != nil {
		return "", h.wrap(ctx, err)
	}
	if len(status) == 0 {
		return "", nil
	}
	return status[0], nil
}

func (h *handle) CreateTime(ctx context.Context) (time.Time, error) {
	ms, err := h.proc.CreateTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, h.wrap(ctx, err)
	}
	return time.UnixMilli(ms), nil
}

func (h *handle) CPUTimes(ctx context.Context) (process.CPUTimes, error) {
	times, err := h.proc.TimesWithContext(ctx)
	if err != nil {
		return process.CPUTimes{}, h.wrap(ctx, err)
	}
	if times == nil {
		return process.CPUTimes{}, errors.New("cpu times unavailable")
	}
	return process.CPUTimes{User: times.User, System: times.System}, nil
}

func (h *handle) IOCounters(ctx context.Context) (uint64, uint64, error) {
	io, err := h.proc.IOCountersWithContext(ctx)
	if err != nil {
		return 0, 0, h.wrap(ctx, err)
	}
	if io == nil {
		return 0, 0, errors.New("io counters unavailable")
	}
	return io.ReadBytes, io.WriteBytes, nil
}

// wrap marks err as ErrVanished when the process no longer exists.
func (h *handle) wrap(ctx context.Context, err error) error {
	if errors.Is(err, gops.ErrorProcessNotRunning) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", process.ErrVanished, err)
	}
	if alive, perr := gops.PidExistsWithContext(ctx, h.proc.Pid); perr == nil && !alive {
		return fmt.Errorf("%w: %w", process.ErrVanished, err)
	}
	return err
}
