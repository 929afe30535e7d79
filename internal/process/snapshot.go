package process

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Snapshot is an immutable, sorted view of every live process at one
// instant. The zero value is a valid empty snapshot.
type Snapshot struct {
	takenAt  time.Time
	cpuCount int
	records  []Record
	index    map[uint32]int
}

// NewSnapshot takes ownership of records, sorts them by (name, pid) and
// indexes them by PID.
func NewSnapshot(takenAt time.Time, cpuCount int, records []Record) Snapshot {
	SortRecords(records)

	index := make(map[uint32]int, len(records))
	for i, r := range records {
		index[r.PID] = i
	}

	return Snapshot{
		takenAt:  takenAt,
		cpuCount: cpuCount,
		records:  records,
		index:    index,
	}
}

// SortRecords orders records by name ascending, then PID ascending.
func SortRecords(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.PID, b.PID)
	})
}

// TakenAt is the instant the snapshot was collected.
func (s Snapshot) TakenAt() time.Time { return s.takenAt }

// CPUCount is the number of logical CPUs used to bound CPU usage.
func (s Snapshot) CPUCount() int { return s.cpuCount }

// Len returns the number of records.
func (s Snapshot) Len() int { return len(s.records) }

// At returns the record at index i in snapshot order.
func (s Snapshot) At(i int) (Record, bool) {
	if i < 0 || i >= len(s.records) {
		return Record{}, false
	}
	return s.records[i].clone(), true
}

// ByPID returns the record for pid, if present.
func (s Snapshot) ByPID(pid uint32) (Record, bool) {
	i, ok := s.index[pid]
	if !ok {
		return Record{}, false
	}
	return s.records[i].clone(), true
}

// Records returns a copy of all records in snapshot order.
func (s Snapshot) Records() []Record {
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.clone()
	}
	return out
}

// Filter returns the records whose name, command line or PID contain
// query (case-insensitive). Order is preserved. An empty query matches
// everything.
func (s Snapshot) Filter(query string) Snapshot {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return s
	}

	var matched []Record
	for _, r := range s.records {
		if strings.Contains(strings.ToLower(r.Name), query) ||
			strings.Contains(strings.ToLower(strings.Join(r.CommandLine, " ")), query) ||
			strings.Contains(strconv.FormatUint(uint64(r.PID), 10), query) {
			matched = append(matched, r.clone())
		}
	}
	return NewSnapshot(s.takenAt, s.cpuCount, matched)
}
