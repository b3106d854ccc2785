package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read exposition: %v", err)
	}
	return string(body)
}

func TestObserveClassification(t *testing.T) {
	m := New()
	m.ObserveClassification("chunked", []string{"quiz_creation", "data_analysis"}, false, 20*time.Millisecond)
	m.ObserveClassification("trivial", []string{"outer_api"}, true, time.Millisecond)

	body := scrape(t, m)
	for _, want := range []string{
		`intentrouter_classifications_total{path="chunked"} 1`,
		`intentrouter_decisions_total{category="quiz_creation"} 1`,
		`intentrouter_decisions_total{category="outer_api"} 1`,
		"intentrouter_fallbacks_total 1",
		`intentrouter_classify_latency_seconds_count{path="trivial"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveClassification("trivial", []string{"outer_api"}, true, time.Millisecond)
	m.ObserveFailure()
	m.ObserveCache("hit")
	m.SetProfilesWarm(true)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveCache("hit")
	m.ObserveFailure()
	m.SetProfilesWarm(true)

	body := scrape(t, m)
	for _, want := range []string{
		`intentrouter_cache_requests_total{result="hit"} 1`,
		"intentrouter_classification_failures_total 1",
		"intentrouter_profiles_warm 1",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
}
