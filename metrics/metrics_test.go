package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.MovementsRecorded.WithLabelValues("IN").Inc()
	m.MovementsRecorded.WithLabelValues("IN").Inc()
	m.MovementsRecorded.WithLabelValues("OUT").Inc()
	m.DeletesRefused.WithLabelValues("item").Inc()

	if got := testutil.ToFloat64(m.MovementsRecorded.WithLabelValues("IN")); got != 2 {
		t.Errorf("IN = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.MovementsRecorded); got != 2 {
		t.Errorf("series = %d, want 2", got)
	}
	if got := testutil.ToFloat64(m.DeletesRefused.WithLabelValues("item")); got != 1 {
		t.Errorf("refused = %v", got)
	}
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.LoginAttempts.WithLabelValues("failure").Inc()
	if got := testutil.ToFloat64(b.LoginAttempts.WithLabelValues("failure")); got != 0 {
		t.Errorf("registries share state: %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.EntityWrites.WithLabelValues("item", "created").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(string(body), `clothstock_entity_writes_total{action="created",entity="item"} 1`) {
		t.Errorf("metric missing from output:\n%s", body)
	}
}
