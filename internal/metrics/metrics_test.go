package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// counterValue returns the value of the counter family name whose labels
// include every pair in labels.
func counterValue(t *testing.T, r *Recorder, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.Payment("paid_cash", 800)
	r.Payment("paid_cash", 800)
	r.Payment("paid_online", 800)
	r.Transition("locked")

	if got := counterValue(t, r, "turfsplit_payments_total", map[string]string{"method": "paid_cash"}); got != 2 {
		t.Errorf("cash payments = %v, want 2", got)
	}
	if got := counterValue(t, r, "turfsplit_collected_rupees_total", map[string]string{"method": "paid_cash"}); got != 1600 {
		t.Errorf("cash collected = %v, want 1600", got)
	}
	if got := counterValue(t, r, "turfsplit_session_transitions_total", map[string]string{"to": "locked"}); got != 1 {
		t.Errorf("locked transitions = %v, want 1", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.RSVP("in", true)
	r.Transition("closed")
	r.Payment("paid_cash", 1)
	r.GatewayCall("verify", time.Now(), errors.New("x"))
	r.SweepCheck("settled")
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.RSVP("in", true)
	r.GatewayCall("create_order", time.Now(), nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{"turfsplit_rsvps_total", "turfsplit_gateway_call_duration_seconds"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %s", want)
		}
	}
}
