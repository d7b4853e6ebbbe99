package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
)

func TestMetrics_Observer(t *testing.T) {
	m := New()

	m.RecordSubmitted(domain.KindOutpass)
	m.RecordSubmitted(domain.KindOutpass)
	m.RecordTransitioned(domain.KindOutpass, domain.StatusApprovedCap)
	m.SubscriptionOpened(domain.KindNotice)
	m.SubscriptionOpened(domain.KindNotice)
	m.SubscriptionClosed(domain.KindNotice)

	if got := testutil.ToFloat64(m.submissions.WithLabelValues("outpasses")); got != 2 {
		t.Errorf("expected 2 submissions, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("outpasses", "Approved")); got != 1 {
		t.Errorf("expected 1 transition, got %v", got)
	}
	if got := testutil.ToFloat64(m.subscriptions.WithLabelValues("notices")); got != 1 {
		t.Errorf("expected 1 open subscription, got %v", got)
	}
}

func TestMetrics_InstrumentRecordsStatus(t *testing.T) {
	m := New()
	h := m.Instrument("POST /outpasses", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/outpasses", nil))

	if got := testutil.CollectAndCount(m.httpDuration); got != 1 {
		t.Fatalf("expected one observed series, got %d", got)
	}

	expected := `
# HELP hostel_portal_records_submitted_total Records submitted, by kind.
# TYPE hostel_portal_records_submitted_total counter
hostel_portal_records_submitted_total{kind="complaints"} 1
`
	m.RecordSubmitted(domain.KindComplaint)
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "hostel_portal_records_submitted_total"); err != nil {
		t.Error(err)
	}
}

func TestMetrics_InstrumentKeepsFlusher(t *testing.T) {
	m := New()
	flushed := false
	h := m.Instrument("GET /views/{kind}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("instrumented writer lost http.Flusher")
		}
		f.Flush()
		flushed = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/views/notices", nil))
	if !flushed || !rec.Flushed {
		t.Error("expected flush to reach the underlying writer")
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordSubmitted(domain.KindApplication)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, name := range []string{"hostel_portal_records_submitted_total", "go_goroutines"} {
		if !strings.Contains(rec.Body.String(), name) {
			t.Errorf("expected %s in exposition", name)
		}
	}
}
