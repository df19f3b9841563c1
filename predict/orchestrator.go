// Package predict composes the guard, schema aligner, model adapter, and
// heuristic fallback into the prediction cascade. Exactly one terminal
// tier is reached per request, and the serving boundary never raises.
package predict

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ekarau/course-completion-api/guard"
	"github.com/ekarau/course-completion-api/heuristic"
	"github.com/ekarau/course-completion-api/metrics"
	"github.com/ekarau/course-completion-api/model"
	"github.com/ekarau/course-completion-api/schema"
)

// Response modes and reasons. These are observable API values.
const (
	ModeModel    = "model"
	ModeFallback = "fallback"

	ReasonModelNotLoaded = "model_not_loaded"
	ReasonException      = "exception"
	ReasonFallbackFailed = "fallback_failed"
)

// Outcome is the result of one prediction call. Probability is set on
// fallback outcomes only: the trained classifier does not expose a
// calibrated probability, and the asymmetry is intentional.
type Outcome struct {
	Prediction  int
	Probability *float64
	Mode        string
	Reason      string
	Err         string
}

// MetricMode maps the outcome to its mode-counter label.
func (o Outcome) MetricMode() string {
	if o.Mode == ModeModel {
		return metrics.ModeModel
	}
	switch o.Reason {
	case ReasonModelNotLoaded:
		return metrics.ModeFallbackNoModel
	case ReasonFallbackFailed:
		return metrics.ModeFallbackFailed
	default:
		return metrics.ModeFallbackError
	}
}

// Orchestrator runs the cascade. All fields are read-only after
// construction; concurrent calls share no mutable state beyond the sink.
type Orchestrator struct {
	schema   *schema.Canonical
	guard    *guard.Guard
	adapter  *model.Adapter
	fallback *heuristic.Model
	sink     metrics.Sink
	log      *slog.Logger
}

// New wires an orchestrator. The sink is required; the logger may be nil.
func New(sc *schema.Canonical, g *guard.Guard, a *model.Adapter, fb *heuristic.Model, sink metrics.Sink, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		schema:   sc,
		guard:    g,
		adapter:  a,
		fallback: fb,
		sink:     sink,
		log:      log,
	}
}

// Predict runs the cascade for one request.
//
// Tiers, in order: a decode failure, guard trip, or adapter error degrades
// to the heuristic with reason "exception"; an unavailable adapter degrades
// to the heuristic with reason "model_not_loaded"; a healthy adapter
// answers with mode "model". If anything in here panics, the deferred
// recovery produces the fixed zero outcome with reason "fallback_failed".
// The mode counter and latency are recorded on every path.
//
// decodeErr carries a transport-level failure to parse the body into an
// object; payload is then the best-effort remains (usually nil).
func (o *Orchestrator) Predict(ctx context.Context, payload map[string]any, decodeErr error) (out Outcome) {
	start := time.Now()
	o.sink.IncRequests()

	defer func() {
		if r := recover(); r != nil {
			if o.log != nil {
				o.log.Error("prediction cascade panicked", "panic", fmt.Sprintf("%v", r))
			}
			out = Outcome{
				Prediction: 0,
				Mode:       ModeFallback,
				Reason:     ReasonFallbackFailed,
				Err:        fmt.Sprintf("%v", r),
			}
		}
		o.sink.IncMode(out.MetricMode())
		o.sink.ObserveLatency(time.Since(start).Seconds())
	}()

	if decodeErr != nil {
		return o.degrade(payload, decodeErr)
	}

	if err := o.guard.Check(payload); err != nil {
		return o.degrade(payload, err)
	}

	if !o.adapter.Available() {
		fb := o.fallback.Predict(payload)
		return Outcome{
			Prediction:  fb.Prediction,
			Probability: &fb.Probability,
			Mode:        ModeFallback,
			Reason:      ReasonModelNotLoaded,
		}
	}

	rec := o.schema.Align(payload)

	label, err := o.adapter.Predict(ctx, rec)
	if err != nil {
		return o.degrade(payload, err)
	}

	return Outcome{Prediction: label, Mode: ModeModel}
}

// degrade answers with the heuristic on the best-effort payload, carrying
// the triggering error as a diagnostic. The heuristic is total, so this
// tier itself cannot fail.
func (o *Orchestrator) degrade(payload map[string]any, cause error) Outcome {
	if o.log != nil {
		o.log.Warn("prediction degraded to fallback", "error", cause.Error())
	}

	fb := o.fallback.Predict(payload)
	return Outcome{
		Prediction:  fb.Prediction,
		Probability: &fb.Probability,
		Mode:        ModeFallback,
		Reason:      ReasonException,
		Err:         cause.Error(),
	}
}
