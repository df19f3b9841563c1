package predict

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ekarau/course-completion-api/guard"
	"github.com/ekarau/course-completion-api/heuristic"
	"github.com/ekarau/course-completion-api/metrics"
	"github.com/ekarau/course-completion-api/model"
	"github.com/ekarau/course-completion-api/schema"
)

// recordingSink captures emitted events so tests can assert on them
// without a scraping endpoint.
type recordingSink struct {
	mu        sync.Mutex
	requests  int
	latencies int
	modes     map[string]int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{modes: make(map[string]int)}
}

func (s *recordingSink) IncRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
}

func (s *recordingSink) ObserveLatency(float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latencies++
}

func (s *recordingSink) IncMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[mode]++
}

func (s *recordingSink) snapshot() (int, int, map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	modes := make(map[string]int, len(s.modes))
	for k, v := range s.modes {
		modes[k] = v
	}
	return s.requests, s.latencies, modes
}

type fixedClassifier struct{ label int }

func (c fixedClassifier) Predict(*schema.AlignedRecord) (int, error) { return c.label, nil }

type errClassifier struct{ err error }

func (c errClassifier) Predict(*schema.AlignedRecord) (int, error) { return 0, c.err }

type panicClassifier struct{}

func (panicClassifier) Predict(*schema.AlignedRecord) (int, error) { panic("shape mismatch") }

func newOrchestrator(adapter *model.Adapter, sink metrics.Sink) *Orchestrator {
	return New(schema.Default(), guard.New(), adapter, heuristic.New(), sink, nil)
}

var engagedPayload = map[string]any{
	"Progress_Percentage": 95.0,
	"Quiz_Score_Avg":      80.0,
}

func TestModelUnavailableDegradesToHeuristic(t *testing.T) {
	sink := newRecordingSink()
	o := newOrchestrator(model.Unavailable("models/model.json", errors.New("no such file")), sink)

	out := o.Predict(context.Background(), engagedPayload, nil)

	if out.Mode != ModeFallback {
		t.Errorf("Mode = %q, want %q", out.Mode, ModeFallback)
	}
	if out.Reason != ReasonModelNotLoaded {
		t.Errorf("Reason = %q, want %q", out.Reason, ReasonModelNotLoaded)
	}
	if out.Prediction != 1 || out.Probability == nil || *out.Probability != 0.95 {
		t.Errorf("got prediction=%d probability=%v, want 1/0.95", out.Prediction, out.Probability)
	}

	_, _, modes := sink.snapshot()
	if modes[metrics.ModeFallbackNoModel] != 1 {
		t.Errorf("fallback_no_model count = %d, want 1", modes[metrics.ModeFallbackNoModel])
	}
}

func TestModelPathOmitsProbability(t *testing.T) {
	sink := newRecordingSink()
	o := newOrchestrator(model.NewAdapter(fixedClassifier{label: 1}, "m"), sink)

	out := o.Predict(context.Background(), engagedPayload, nil)

	if out.Mode != ModeModel {
		t.Errorf("Mode = %q, want %q", out.Mode, ModeModel)
	}
	if out.Reason != "" || out.Err != "" {
		t.Errorf("model outcome should carry no reason/error, got %q/%q", out.Reason, out.Err)
	}
	if out.Prediction != 1 {
		t.Errorf("Prediction = %d, want 1", out.Prediction)
	}
	if out.Probability != nil {
		t.Errorf("Probability = %v, want absent on the model path", *out.Probability)
	}

	_, _, modes := sink.snapshot()
	if modes[metrics.ModeModel] != 1 {
		t.Errorf("model count = %d, want 1", modes[metrics.ModeModel])
	}
}

func TestAdapterErrorDegradesWithDiagnostic(t *testing.T) {
	sink := newRecordingSink()
	o := newOrchestrator(model.NewAdapter(errClassifier{err: errors.New("matrix is singular")}, "m"), sink)

	out := o.Predict(context.Background(), engagedPayload, nil)

	if out.Mode != ModeFallback || out.Reason != ReasonException {
		t.Fatalf("got mode=%q reason=%q, want fallback/exception", out.Mode, out.Reason)
	}
	if !strings.Contains(out.Err, "matrix is singular") {
		t.Errorf("Err = %q, want the adapter error description", out.Err)
	}

	// The heuristic answered on the original payload.
	if out.Prediction != 1 || out.Probability == nil || *out.Probability != 0.95 {
		t.Errorf("got prediction=%d probability=%v, want 1/0.95", out.Prediction, out.Probability)
	}

	_, _, modes := sink.snapshot()
	if modes[metrics.ModeFallbackError] != 1 {
		t.Errorf("fallback_error count = %d, want 1", modes[metrics.ModeFallbackError])
	}
}

func TestDecodeErrorDegradesOnEmptyPayload(t *testing.T) {
	sink := newRecordingSink()
	o := newOrchestrator(model.NewAdapter(fixedClassifier{label: 1}, "m"), sink)

	out := o.Predict(context.Background(), nil, errors.New("invalid character 'h'"))

	if out.Mode != ModeFallback || out.Reason != ReasonException {
		t.Fatalf("got mode=%q reason=%q, want fallback/exception", out.Mode, out.Reason)
	}
	if out.Prediction != 0 || out.Probability == nil || *out.Probability != 0.0 {
		t.Errorf("got prediction=%d probability=%v, want 0/0.0 from the no-input heuristic", out.Prediction, out.Probability)
	}
}

func TestGuardTripDegrades(t *testing.T) {
	sink := newRecordingSink()
	o := newOrchestrator(model.NewAdapter(fixedClassifier{label: 1}, "m"), sink)

	payload := make(map[string]any)
	for i := 0; i < guard.MaxFields+1; i++ {
		payload[fmt.Sprintf("f%d", i)] = i
	}

	out := o.Predict(context.Background(), payload, nil)

	if out.Mode != ModeFallback || out.Reason != ReasonException {
		t.Fatalf("got mode=%q reason=%q, want fallback/exception", out.Mode, out.Reason)
	}
	if out.Err == "" {
		t.Error("guard trip should carry a diagnostic")
	}
}

func TestGuardTripOnModellessProcessStillReportsException(t *testing.T) {
	sink := newRecordingSink()
	o := newOrchestrator(model.Unavailable("m", errors.New("missing")), sink)

	out := o.Predict(context.Background(), nil, nil) // nil payload trips the guard

	if out.Reason != ReasonException {
		t.Errorf("Reason = %q, want %q (guard runs before the availability check)", out.Reason, ReasonException)
	}
}

func TestPanicBecomesFallbackFailed(t *testing.T) {
	sink := newRecordingSink()
	o := newOrchestrator(model.NewAdapter(panicClassifier{}, "m"), sink)

	out := o.Predict(context.Background(), engagedPayload, nil)

	if out.Mode != ModeFallback || out.Reason != ReasonFallbackFailed {
		t.Fatalf("got mode=%q reason=%q, want fallback/fallback_failed", out.Mode, out.Reason)
	}
	if out.Prediction != 0 || out.Probability != nil {
		t.Errorf("terminal tier should answer the fixed zero outcome, got %d/%v", out.Prediction, out.Probability)
	}
	if !strings.Contains(out.Err, "shape mismatch") {
		t.Errorf("Err = %q, want the panic description", out.Err)
	}

	_, latencies, modes := sink.snapshot()
	if modes[metrics.ModeFallbackFailed] != 1 {
		t.Errorf("fallback_failed count = %d, want 1", modes[metrics.ModeFallbackFailed])
	}
	if latencies != 1 {
		t.Errorf("latency observations = %d, want 1 (finalizer runs on the panic path)", latencies)
	}
}

func TestConcurrentRequestsCountExactly(t *testing.T) {
	const n = 100

	sink := newRecordingSink()
	o := newOrchestrator(model.Unavailable("m", errors.New("missing")), sink)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := o.Predict(context.Background(), engagedPayload, nil)
			if out.Mode != ModeFallback || out.Reason != ReasonModelNotLoaded {
				t.Errorf("got mode=%q reason=%q", out.Mode, out.Reason)
			}
		}()
	}
	wg.Wait()

	requests, latencies, modes := sink.snapshot()
	if requests != n {
		t.Errorf("request count = %d, want %d", requests, n)
	}
	if latencies != n {
		t.Errorf("latency observations = %d, want %d", latencies, n)
	}
	if modes[metrics.ModeFallbackNoModel] != n {
		t.Errorf("fallback_no_model count = %d, want %d", modes[metrics.ModeFallbackNoModel], n)
	}
}

func TestMetricModeLabels(t *testing.T) {
	testCases := []struct {
		name string
		out  Outcome
		want string
	}{
		{"model", Outcome{Mode: ModeModel}, metrics.ModeModel},
		{"no model", Outcome{Mode: ModeFallback, Reason: ReasonModelNotLoaded}, metrics.ModeFallbackNoModel},
		{"exception", Outcome{Mode: ModeFallback, Reason: ReasonException}, metrics.ModeFallbackError},
		{"failed", Outcome{Mode: ModeFallback, Reason: ReasonFallbackFailed}, metrics.ModeFallbackFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.out.MetricMode(); got != tc.want {
				t.Errorf("MetricMode() = %q, want %q", got, tc.want)
			}
		})
	}
}
