package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRefreshSuccess(t *testing.T) {
	r := New()
	r.ObserveRefresh(20*time.Millisecond, 12, 10, nil)

	if got := testutil.ToFloat64(r.Refreshes); got != 1 {
		t.Fatalf("Refreshes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.Processes); got != 12 {
		t.Fatalf("Processes = %v, want 12", got)
	}
	if got := testutil.ToFloat64(r.HistorySize); got != 10 {
		t.Fatalf("HistorySize = %v, want 10", got)
	}
}

func TestObserveRefreshFailureKeepsGauges(t *testing.T) {
	r := New()
	r.ObserveRefresh(time.Millisecond, 5, 5, nil)
	r.ObserveRefresh(time.Millisecond, 0, 0, errors.New("boom"))

	if got := testutil.ToFloat64(r.RefreshFailures); got != 1 {
		t.Fatalf("RefreshFailures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.Processes); got != 5 {
		t.Fatalf("Processes = %v, want 5 after a failed refresh", got)
	}
}

func TestObserveTermination(t *testing.T) {
	r := New()
	r.ObserveTermination(ResultOK)
	r.ObserveTermination(ResultNotFound)
	r.ObserveTermination(ResultNotFound)

	if got := testutil.ToFloat64(r.Terminations.WithLabelValues(ResultNotFound)); got != 2 {
		t.Fatalf("not_found terminations = %v, want 2", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveRefresh(time.Second, 1, 1, nil)
	r.ObserveTermination(ResultOK)
}

func TestHandlerServesMetrics(t *testing.T) {
	r := New()
	r.ObserveRefresh(time.Millisecond, 3, 3, nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "procmon_processes 3") {
		t.Fatalf("metrics output missing procmon_processes:\n%s", rec.Body.String())
	}
}
