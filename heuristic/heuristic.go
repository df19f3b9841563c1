// Package heuristic implements the rule-based fallback predictor used when
// the trained classifier is unavailable or errors. It is deterministic,
// carries no learned state, and never fails on any input.
package heuristic

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Status values reported alongside a heuristic prediction.
const (
	// StatusComputed marks a prediction derived from the decision rule.
	StatusComputed = "success"
	// StatusNoInput marks the empty-payload case, where no signal fields
	// were available at all.
	StatusNoInput = "fallback_heuristic"
)

// Signal fields the decision rule reads from the raw payload.
const (
	progressField = "Progress_Percentage"
	quizField     = "Quiz_Score_Avg"
)

// Result is the outcome of a heuristic prediction.
type Result struct {
	Prediction  int
	Probability float64
	Status      string
}

// Model is the fallback predictor. The zero value is ready to use.
type Model struct{}

// New returns a fallback predictor.
func New() *Model {
	return &Model{}
}

// Predict scores a raw payload with the fixed decision rule:
//
//   - progress >= 90 and quiz >= 70: committed student, probability 0.95
//   - progress <= 30: disengaged student, probability 0.1
//   - otherwise: weighted blend (progress*0.7 + quiz*0.3)/100, predicting
//     completion when the blend reaches 0.5
//
// Missing or non-numeric signal fields count as 0. An empty payload gets a
// zero prediction with StatusNoInput so callers can tell "no data" apart
// from "computed but low confidence".
func (m *Model) Predict(payload map[string]any) Result {
	if len(payload) == 0 {
		return Result{Prediction: 0, Probability: 0.0, Status: StatusNoInput}
	}

	progress := numberOrZero(payload[progressField])
	quiz := numberOrZero(payload[quizField])

	switch {
	case progress >= 90 && quiz >= 70:
		return Result{Prediction: 1, Probability: 0.95, Status: StatusComputed}
	case progress <= 30:
		return Result{Prediction: 0, Probability: 0.1, Status: StatusComputed}
	default:
		probability := (progress*0.7 + quiz*0.3) / 100
		prediction := 0
		if probability >= 0.5 {
			prediction = 1
		}
		return Result{Prediction: prediction, Probability: probability, Status: StatusComputed}
	}
}

// numberOrZero reads a scalar as a float, defaulting to 0 on anything it
// cannot read. The heuristic stays total this way.
func numberOrZero(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
