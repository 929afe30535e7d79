package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/breeze-rmm/procmon/internal/health"
	"github.com/breeze-rmm/procmon/internal/metrics"
)

func testApp() *app {
	return &app{metrics: metrics.New(), health: health.NewMonitor()}
}

func TestHealthzReportsCollectorStatus(t *testing.T) {
	a := testApp()
	srv := httptest.NewServer(newMetricsMux(a))
	defer srv.Close()

	a.health.RecordResult(health.ComponentCollector, nil)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("healthy collector: code=%d body=%v", resp.StatusCode, body)
	}

	for range health.UnhealthyAfter {
		a.health.RecordResult(health.ComponentCollector, errors.New("provider down"))
	}
	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unhealthy collector: code=%d, want 503", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a := testApp()
	a.metrics.ObserveRefresh(10*time.Millisecond, 5, 4, nil)

	srv := httptest.NewServer(newMetricsMux(a))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), "procmon_processes 5") {
		t.Errorf("metrics output missing process gauge:\n%s", buf.String())
	}
}

func TestPrintWatchFrameShowsRefreshError(t *testing.T) {
	var buf bytes.Buffer
	printWatchFrame(&buf, testSnapshot(), errors.New("boom"), 2, "bash", 0)

	out := buf.String()
	if !strings.Contains(out, "refresh failed (2 in a row): boom") {
		t.Errorf("missing error line:\n%s", out)
	}
	if !strings.Contains(out, "2 processes") {
		t.Errorf("filter should leave 2 processes:\n%s", out)
	}
	if strings.Contains(out, "sshd") {
		t.Errorf("filtered output should not contain sshd:\n%s", out)
	}
}

func TestHealthzUnhealthyWhileCollectorUnknown(t *testing.T) {
	a := testApp()
	a.health.Update(health.ComponentCollector, health.Unknown, "awaiting first refresh")
	a.health.Update(health.ComponentMetrics, health.Unhealthy, "listener closed")

	srv := httptest.NewServer(newMetricsMux(a))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", resp.StatusCode)
	}
}

func TestStartMetricsServerMarksHealthy(t *testing.T) {
	a := testApp()
	srv, err := startMetricsServer("127.0.0.1:0", a)
	if err != nil {
		t.Fatalf("startMetricsServer: %v", err)
	}
	defer srv.Close()

	if c, ok := a.health.Get(health.ComponentMetrics); !ok || c.Status != health.Healthy {
		t.Fatalf("metrics health = %+v (registered %v), want healthy", c, ok)
	}
}
