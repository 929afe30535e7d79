package process

import (
	"slices"
	"strconv"
	"strings"
)

// Status is the normalised scheduler state of a process.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusRunning
	StatusSleeping
	StatusIdle
	StatusWaiting // uninterruptible wait (disk sleep, paging, lock)
	StatusStopped
	StatusZombie
	StatusDead
)

var statusNames = [...]string{
	StatusUnknown:  "unknown",
	StatusRunning:  "running",
	StatusSleeping: "sleeping",
	StatusIdle:     "idle",
	StatusWaiting:  "waiting",
	StatusStopped:  "stopped",
	StatusZombie:   "zombie",
	StatusDead:     "dead",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return statusNames[StatusUnknown]
}

// MarshalText renders the status by name in JSON and YAML output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStatus converts a platform-reported state into a Status. It accepts
// gopsutil state words as well as the single-letter codes from
// /proc/[pid]/stat. Anything it does not recognise maps to StatusUnknown,
// including gopsutil's "daemon", "system", "orphan" and "detached", which
// describe a process's role rather than its scheduler state.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "r", "running", "run":
		return StatusRunning
	case "s", "sleep", "sleeping":
		return StatusSleeping
	case "i", "idle":
		return StatusIdle
	// gopsutil reports Linux D and U as "blocked".
	case "d", "u", "w", "wait", "waiting", "blocked", "disk-sleep", "lock":
		return StatusWaiting
	case "t", "stop", "stopped", "tracing-stop":
		return StatusStopped
	case "z", "zombie":
		return StatusZombie
	case "x", "dead":
		return StatusDead
	default:
		return StatusUnknown
	}
}

// Record is one process as observed at one sampling instant. Records are
// built once by the collector and never modified afterwards; accessors on
// Snapshot hand out deep copies.
type Record struct {
	PID          uint32   `json:"pid" yaml:"pid"`
	Name         string   `json:"name" yaml:"name"`
	CommandLine  []string `json:"commandLine,omitempty" yaml:"commandLine,omitempty"`
	Environment  []string `json:"environment,omitempty" yaml:"environment,omitempty"`
	OwnerID      *uint32  `json:"ownerId,omitempty" yaml:"ownerId,omitempty"`
	ParentPID    *uint32  `json:"parentPid,omitempty" yaml:"parentPid,omitempty"`
	ResidentMem  uint64   `json:"residentMemoryBytes" yaml:"residentMemoryBytes"`
	VirtualMem   uint64   `json:"virtualMemoryBytes" yaml:"virtualMemoryBytes"`
	Status       Status   `json:"status" yaml:"status"`
	StartTime    uint64   `json:"startTimeUnix" yaml:"startTimeUnix"`
	RunTime      uint64   `json:"runTimeSeconds" yaml:"runTimeSeconds"`
	CPUPercent   float64  `json:"cpuUsagePercent" yaml:"cpuUsagePercent"`
	IOReadBytes  uint64   `json:"ioReadBytes" yaml:"ioReadBytes"`
	IOWriteBytes uint64   `json:"ioWrittenBytes" yaml:"ioWrittenBytes"`
}

// Field is one labelled value in a record's detail view.
type Field struct {
	Label string
	Value string
}

// Fields returns the record's attributes as ordered label/value pairs.
// Absent optional values render as empty strings.
func (r Record) Fields() []Field {
	return []Field{
		{"Name", r.Name},
		{"PID", strconv.FormatUint(uint64(r.PID), 10)},
		{"User ID", optional(r.OwnerID)},
		{"CMD", strings.Join(r.CommandLine, " ")},
		{"Environment", strings.Join(r.Environment, " ")},
		{"Memory", strconv.FormatUint(r.ResidentMem/1024, 10) + " KB"},
		{"Virtual Memory", strconv.FormatUint(r.VirtualMem/1024, 10) + " KB"},
		{"Parent", optional(r.ParentPID)},
		{"Status", r.Status.String()},
		{"Start Time", strconv.FormatUint(r.StartTime, 10)},
		{"Run Time", strconv.FormatUint(r.RunTime, 10)},
		{"CPU Usage", strconv.FormatFloat(r.CPUPercent, 'f', 1, 64)},
		{"Disk Read", strconv.FormatUint(r.IOReadBytes, 10)},
		{"Disk Written", strconv.FormatUint(r.IOWriteBytes, 10)},
	}
}

func (r Record) clone() Record {
	c := r
	c.CommandLine = slices.Clone(r.CommandLine)
	c.Environment = slices.Clone(r.Environment)
	if r.OwnerID != nil {
		v := *r.OwnerID
		c.OwnerID = &v
	}
	if r.ParentPID != nil {
		v := *r.ParentPID
		c.ParentPID = &v
	}
	return c
}

func optional(v *uint32) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*v), 10)
}
