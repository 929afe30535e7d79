package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/breeze-rmm/procmon/internal/process"
)

func testSnapshot() process.Snapshot {
	uid := uint32(1000)
	return process.NewSnapshot(time.Unix(1700000000, 0), 4, []process.Record{
		{PID: 42, Name: "sshd", Status: process.StatusSleeping, ResidentMem: 4096 * 1024, OwnerID: &uid, CommandLine: []string{"/usr/sbin/sshd", "-D"}},
		{PID: 7, Name: "bash", Status: process.StatusRunning, CPUPercent: 12.5},
		{PID: 3, Name: "bash", Status: process.StatusZombie},
	})
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSnapshot(&buf, testSnapshot(), "table", 0); err != nil {
		t.Fatalf("writeSnapshot: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "PID") {
		t.Errorf("header = %q", lines[0])
	}
	// Sorted by name, then PID.
	for i, want := range []string{"3 ", "7 ", "42 "} {
		if !strings.HasPrefix(lines[i+1], want) {
			t.Errorf("row %d = %q, want prefix %q", i, lines[i+1], want)
		}
	}
	if !strings.Contains(lines[2], "12.5") {
		t.Errorf("expected CPU 12.5 in %q", lines[2])
	}
	if !strings.Contains(lines[3], "4096") || !strings.Contains(lines[3], "/usr/sbin/sshd -D") {
		t.Errorf("sshd row missing memory or command: %q", lines[3])
	}
}

func TestWriteTableLimit(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSnapshot(&buf, testSnapshot(), "", 2); err != nil {
		t.Fatalf("writeSnapshot: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 3 {
		t.Errorf("expected 3 lines with limit 2, got %d", n)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSnapshot(&buf, testSnapshot(), "json", 0); err != nil {
		t.Fatalf("writeSnapshot: %v", err)
	}

	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 records, got %d", len(out))
	}
	if out[0]["status"] != "zombie" {
		t.Errorf("status = %v, want zombie", out[0]["status"])
	}
	if _, ok := out[0]["ownerId"]; ok {
		t.Error("absent owner should be omitted")
	}
	if out[2]["ownerId"] != float64(1000) {
		t.Errorf("ownerId = %v, want 1000", out[2]["ownerId"])
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSnapshot(&buf, testSnapshot(), "yaml", 1); err != nil {
		t.Fatalf("writeSnapshot: %v", err)
	}

	var out []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid yaml: %v\n%s", err, buf.String())
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	if out[0]["name"] != "bash" || out[0]["status"] != "zombie" {
		t.Errorf("unexpected record: %v", out[0])
	}
}

func TestWriteSnapshotUnknownFormat(t *testing.T) {
	if err := writeSnapshot(&bytes.Buffer{}, testSnapshot(), "xml", 0); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWriteFields(t *testing.T) {
	snap := testSnapshot()
	rec, ok := snap.ByPID(42)
	if !ok {
		t.Fatal("pid 42 missing")
	}

	var buf bytes.Buffer
	if err := writeFields(&buf, rec); err != nil {
		t.Fatalf("writeFields: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Name:", "sshd", "User ID:", "1000", "Memory:", "4096 KB", "Status:", "sleeping"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParsePID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"1", 1, false},
		{"4194304", 4194304, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"99999999999", 0, true},
	}
	for _, tt := range tests {
		got, err := parsePID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePID(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parsePID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("truncate long = %q", got)
	}
}
