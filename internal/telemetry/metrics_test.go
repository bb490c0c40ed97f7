package telemetry

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// ---------------------------------------------------------------------------
// Metric registration sanity checks — verify every exported metric is properly
// registered and carries the expected fully-qualified name.
//
// We check registration via Describe() rather than DefaultGatherer.Gather()
// because Gather() only returns series that have been observed at least once;
// *Vec metrics with no label combinations yet used are silently absent from
// Gather output even though they are correctly registered.
// ---------------------------------------------------------------------------

func TestMetrics_AllRegistered(t *testing.T) {
	type describer interface {
		Describe(chan<- *prometheus.Desc)
	}

	cases := []struct {
		name string
		c    describer
	}{
		{"detection_sweeps_total", SweepsTotal},
		{"detection_sweep_duration_seconds", SweepDuration},
		{"detection_findings_total", FindingsTotal},
		{"detector_errors_total", DetectorErrorsTotal},
		{"notifications_sent_total", NotificationsSentTotal},
		{"notification_errors_total", NotificationErrorsTotal},
		{"db_open_connections", DBOpenConnections},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ch := make(chan *prometheus.Desc, 10)
			tc.c.Describe(ch)
			close(ch)
			for desc := range ch {
				// prometheus.Desc.String() returns a Go syntax string of the form:
				//   Desc{fqName: "<name>", help: "...", constLabels: {}, variableLabels: [...]}
				if strings.Contains(desc.String(), `"`+tc.name+`"`) {
					return // found — test passes
				}
			}
			t.Errorf("metric %q: Describe() returned no descriptor with this fqName", tc.name)
		})
	}
}

func TestMetrics_SweepsTotal_CanBeIncremented(t *testing.T) {
	before := plainCounterValue(t, SweepsTotal)
	SweepsTotal.Inc()
	after := plainCounterValue(t, SweepsTotal)
	if after-before < 1 {
		t.Errorf("SweepsTotal.Inc() did not increase counter (before=%.0f after=%.0f)", before, after)
	}
}

func TestMetrics_FindingsTotal_CanBeIncremented(t *testing.T) {
	before := counterValue(t, FindingsTotal, prometheus.Labels{"type": "high_purchase"})
	FindingsTotal.WithLabelValues("high_purchase").Inc()
	after := counterValue(t, FindingsTotal, prometheus.Labels{"type": "high_purchase"})
	if after-before < 1 {
		t.Errorf("FindingsTotal.Inc() did not increase counter")
	}
}

func TestMetrics_DetectorErrors_CanBeIncremented(t *testing.T) {
	before := counterValue(t, DetectorErrorsTotal, prometheus.Labels{"detector": "auth_failure"})
	DetectorErrorsTotal.WithLabelValues("auth_failure").Inc()
	after := counterValue(t, DetectorErrorsTotal, prometheus.Labels{"detector": "auth_failure"})
	if after-before < 1 {
		t.Errorf("DetectorErrorsTotal.Inc() did not increase counter")
	}
}

func TestMetrics_NotificationCounters_CanBeIncremented(t *testing.T) {
	before := counterValue(t, NotificationsSentTotal, prometheus.Labels{"channel": "email"})
	NotificationsSentTotal.WithLabelValues("email").Inc()
	after := counterValue(t, NotificationsSentTotal, prometheus.Labels{"channel": "email"})
	if after-before < 1 {
		t.Errorf("NotificationsSentTotal.Inc() did not increase counter")
	}

	NotificationErrorsTotal.WithLabelValues("chat").Inc()
}

func TestMetrics_SweepDuration_CanBeObserved(t *testing.T) {
	SweepDuration.Observe(0.5)
	SweepDuration.Observe(1.5)
	// If no panic, the histogram is functioning.
}

func TestMetrics_DBOpenConnections_CanBeSet(t *testing.T) {
	DBOpenConnections.Set(5)
	// If no panic, gauge is working.
	DBOpenConnections.Set(0) // reset to neutral value
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// counterValue reads the current value of a CounterVec for the given label set.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels prometheus.Labels) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 20)
	cv.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		if labelsMatch(dm.GetLabel(), labels) {
			return dm.GetCounter().GetValue()
		}
	}
	return 0
}

// plainCounterValue reads the value of a plain (non-vec) Counter.
func plainCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		return dm.GetCounter().GetValue()
	}
	return 0
}

// labelsMatch returns true when all entries in want appear in got.
func labelsMatch(got []*dto.LabelPair, want prometheus.Labels) bool {
	for k, v := range want {
		found := false
		for _, lp := range got {
			if lp.GetName() == k && lp.GetValue() == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
