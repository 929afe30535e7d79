// Package collectortest provides an in-memory collector.Provider for tests.
package collectortest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/breeze-rmm/procmon/internal/collector"
	"github.com/breeze-rmm/procmon/internal/process"
)

// Method names accepted as keys of Proc.Errs.
const (
	MethodName       = "name"
	MethodCmdline    = "cmdline"
	MethodEnviron    = "environ"
	MethodUID        = "uid"
	MethodParentPID  = "ppid"
	MethodMemory     = "memory"
	MethodStatus     = "status"
	MethodCreateTime = "createTime"
	MethodCPUTimes   = "cpuTimes"
	MethodIOCounters = "io"
)

// Proc describes one fake process.
type Proc struct {
	PID      uint32
	Name     string
	Cmdline  []string
	Environ  []string
	UID      uint32
	PPID     uint32
	RSS      uint64
	VMS      uint64
	Status   string
	Created  time.Time
	CPU      process.CPUTimes
	IORead   uint64
	IOWrites uint64

	// Errs makes the named Handle method fail with the given error.
	Errs map[string]error
}

// Provider is a mutable, concurrency-safe fake process table.
type Provider struct {
	mu           sync.Mutex
	procs        map[uint32]Proc
	system       process.CPUTimes
	cores        int
	listErr      error
	systemErr    error
	terminateErr error
	listCalls    int
	terminated   []uint32

	// OnProcesses, when set, runs at the start of every Processes call.
	// Returning an error fails the enumeration.
	OnProcesses func(ctx context.Context) error
}

// New returns a provider with the given core count and processes.
func New(cores int, procs ...Proc) *Provider {
	p := &Provider{procs: make(map[uint32]Proc), cores: cores}
	for _, proc := range procs {
		p.procs[proc.PID] = proc
	}
	return p
}

// Put adds or replaces a process.
func (p *Provider) Put(proc Proc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.procs[proc.PID] = proc
}

// Remove deletes a process as if it had exited.
func (p *Provider) Remove(pid uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.procs, pid)
}

// AddCPU advances a process's cumulative CPU counters.
func (p *Provider) AddCPU(pid uint32, user, system float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	proc := p.procs[pid]
	proc.CPU.User += user
	proc.CPU.System += system
	p.procs[pid] = proc
}

// AddSystemCPU advances the system-wide counters.
func (p *Provider) AddSystemCPU(user, system float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.system.User += user
	p.system.System += system
}

// SetListError makes Processes fail with err (nil to clear).
func (p *Provider) SetListError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listErr = err
}

// SetSystemError makes SystemCPUTimes fail with err (nil to clear).
func (p *Provider) SetSystemError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.systemErr = err
}

// SetTerminateError makes Terminate fail with err (nil to clear).
func (p *Provider) SetTerminateError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminateErr = err
}

// ListCalls reports how many times Processes was called.
func (p *Provider) ListCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listCalls
}

// Terminated returns the PIDs successfully terminated so far.
func (p *Provider) Terminated() []uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint32(nil), p.terminated...)
}

func (p *Provider) Processes(ctx context.Context) ([]collector.Handle, error) {
	p.mu.Lock()
	p.listCalls++
	hook := p.OnProcesses
	p.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	handles := make([]collector.Handle, 0, len(p.procs))
	for _, proc := range p.procs {
		handles = append(handles, handle{proc})
	}
	return handles, nil
}

func (p *Provider) SystemCPUTimes(ctx context.Context) (process.CPUTimes, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.systemErr != nil {
		return process.CPUTimes{}, p.systemErr
	}
	return p.system, nil
}

func (p *Provider) NumCPU(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cores < 1 {
		return 0, fmt.Errorf("cpu count unavailable")
	}
	return p.cores, nil
}

func (p *Provider) Lookup(ctx context.Context, pid uint32) (collector.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	proc, ok := p.procs[pid]
	if !ok {
		return nil, fmt.Errorf("lookup pid %d: %w", pid, process.ErrProcessNotFound)
	}
	return handle{proc}, nil
}

func (p *Provider) Terminate(ctx context.Context, pid uint32, force bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminateErr != nil {
		return p.terminateErr
	}
	if _, ok := p.procs[pid]; !ok {
		return fmt.Errorf("terminate pid %d: %w", pid, process.ErrProcessNotFound)
	}
	delete(p.procs, pid)
	p.terminated = append(p.terminated, pid)
	return nil
}

type handle struct {
	p Proc
}

func (h handle) fail(method string) error {
	return h.p.Errs[method]
}

func (h handle) PID() uint32 { return h.p.PID }

func (h handle) Name(ctx context.Context) (string, error) {
	if err := h.fail(MethodName); err != nil {
		return "", err
	}
	return h.p.Name, nil
}

func (h handle) Cmdline(ctx context.Context) ([]string, error) {
	if err := h.fail(MethodCmdline); err != nil {
		return nil, err
	}
	return h.p.Cmdline, nil
}

func (h handle) Environ(ctx context.Context) ([]string, error) {
	if err := h.fail(MethodEnviron); err != nil {
		return nil, err
	}
	return h.p.Environ, nil
}

func (h handle) UID(ctx context.Context) (uint32, error) {
	if err := h.fail(MethodUID); err != nil {
		return 0, err
	}
	return h.p.UID, nil
}

func (h handle) ParentPID(ctx context.Context) (uint32, error) {
	if err := h.fail(MethodParentPID); err != nil {
		return 0, err
	}
	return h.p.PPID, nil
}

func (h handle) Memory(ctx context.Context) (uint64, uint64, error) {
	if err := h.fail(MethodMemory); err != nil {
		return 0, 0, err
	}
	return h.p.RSS, h.p.VMS, nil
}

func (h handle) Status(ctx context.Context) (string, error) {
	if err := h.fail(MethodStatus); err != nil {
		return "", err
	}
	return h.p.Status, nil
}

func (h handle) CreateTime(ctx context.Context) (time.Time, error) {
	if err := h.fail(MethodCreateTime); err != nil {
		return time.Time{}, err
	}
	return h.p.Created, nil
}

func (h handle) CPUTimes(ctx context.Context) (process.CPUTimes, error) {
	if err := h.fail(MethodCPUTimes); err != nil {
		return process.CPUTimes{}, err
	}
	return h.p.CPU, nil
}

func (h handle) IOCounters(ctx context.Context) (uint64, uint64, error) {
	if err := h.fail(MethodIOCounters); err != nil {
		return 0, 0, err
	}
	return h.p.IORead, h.p.IOWrites, nil
}
