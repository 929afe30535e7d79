package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPreInitLoggerUsesConfiguredHandler(t *testing.T) {
	logger := L("store")

	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger.Info("refreshed", "processes", 42)

	out := buf.String()
	if !strings.Contains(out, "msg=refreshed") {
		t.Fatalf("expected plain refreshed message, got: %s", out)
	}
	if !strings.Contains(out, "component=store") {
		t.Fatalf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "processes=42") {
		t.Fatalf("expected processes field, got: %s", out)
	}
}

func TestPreInitLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := L("collector")

	var buf bytes.Buffer
	Init("text", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info log should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn log should be emitted: %s", out)
	}
}

func TestInitJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init("json", "debug", &buf)

	L("provider").Debug("lookup", KeyPID, 7)

	out := buf.String()
	if !strings.Contains(out, `"component":"provider"`) {
		t.Fatalf("expected JSON component field, got: %s", out)
	}
	if !strings.Contains(out, `"pid":7`) {
		t.Fatalf("expected JSON pid field, got: %s", out)
	}
}

func TestFromContextAddsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	Init("text", "info", &buf)

	base := L("collector")
	if got := FromContext(context.Background(), base); got != base {
		t.Fatal("FromContext without attrs should return base unchanged")
	}

	ctx := ContextWith(context.Background(), KeyRefresh, 3)
	ctx = ContextWith(ctx, KeyPID, 42)
	FromContext(ctx, base).Info("collected")

	out := buf.String()
	for _, want := range []string{"component=collector", "refresh=3", "pid=42"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestContextWithDoesNotAliasParent(t *testing.T) {
	var buf bytes.Buffer
	Init("text", "info", &buf)

	parent := ContextWith(context.Background(), "a", 1)
	_ = ContextWith(parent, "b", 2)
	FromContext(parent, nil).Info("parent")

	if strings.Contains(buf.String(), "b=2") {
		t.Fatalf("child attrs leaked into parent: %s", buf.String())
	}
}

func TestGroupsAndAttrsKeepCallOrder(t *testing.T) {
	logger := L("store").With("outer", 1).WithGroup("snap").With("inner", 2)

	var buf bytes.Buffer
	Init("json", "info", &buf)
	logger.Info("ordered")

	out := buf.String()
	if !strings.Contains(out, `"outer":1,"snap":{"inner":2}`) {
		t.Fatalf("expected outer attr before group with inner attr nested, got: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"debug":   "DEBUG",
		"WARNING": "WARN",
		" error ": "ERROR",
		"":        "INFO",
		"bogus":   "INFO",
	}
	for in, want := range cases {
		if got := parseLevel(in).String(); got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestRotatingWriterRotatesPastMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "procmon.log")
	rw, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()

	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 3; i++ {
		if _, err := rw.Write(chunk); err != nil {
			t.Fatalf("Write #%d: %v", i, err)
		}
	}

	for _, name := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(name); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
	if _, err := os.Stat(path + ".3"); err == nil {
		t.Fatalf("backup beyond maxBackups should not exist")
	}
}

func TestRotatingWriterAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procmon.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	rw, err := NewRotatingWriter(path, 0, 0)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	if _, err := rw.Write([]byte("new\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rw.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "old\nnew\n" {
		t.Fatalf("file contents = %q, want %q", data, "old\nnew\n")
	}
}
