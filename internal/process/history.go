package process

// CPUTimes holds cumulative CPU time in seconds.
type CPUTimes struct {
	User   float64
	System float64
}

// Total returns user plus system time.
func (t CPUTimes) Total() float64 {
	return t.User + t.System
}

// CPUSample is the per-process state kept between refreshes. StartTime
// lets the collector tell a reused PID apart from the process it sampled
// last time.
type CPUSample struct {
	Times     CPUTimes
	StartTime uint64
}

// History is the scratch state needed to turn cumulative CPU counters into
// a usage percentage. A History is built once per collection and replaced
// wholesale by the next one; it only ever holds PIDs from the snapshot it
// was produced with.
type History struct {
	System  CPUTimes
	samples map[uint32]CPUSample
}

// NewHistory returns an empty history seeded with system-wide counters.
func NewHistory(system CPUTimes, capacity int) History {
	return History{
		System:  system,
		samples: make(map[uint32]CPUSample, capacity),
	}
}

// Len returns the number of tracked PIDs.
func (h History) Len() int { return len(h.samples) }

// Lookup returns the previous sample for pid.
func (h History) Lookup(pid uint32) (CPUSample, bool) {
	s, ok := h.samples[pid]
	return s, ok
}

// Set records the sample for pid. It is only used while a History is being
// built; once handed back from a collection it is treated as read-only.
func (h History) Set(pid uint32, s CPUSample) {
	h.samples[pid] = s
}
