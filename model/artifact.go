package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// The artifact format is owned by the external training collaborator; the
// serving side only validates and loads it.
const (
	artifactVersion  = 1
	kindLinearBinary = "linear_binary"
)

type artifact struct {
	FormatVersion int           `json:"format_version"`
	Kind          string        `json:"kind"`
	Features      []FeatureSpec `json:"features"`
	Weights       []float64     `json:"weights"`
	Bias          float64       `json:"bias"`
}

// LoadClassifier reads a serialized classifier artifact from disk.
func LoadClassifier(path string) (Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var doc artifact
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact: %w", err)
	}

	if doc.FormatVersion != artifactVersion {
		return nil, fmt.Errorf("unsupported artifact format version %d (expected %d)", doc.FormatVersion, artifactVersion)
	}
	if doc.Kind != kindLinearBinary {
		return nil, fmt.Errorf("unsupported artifact kind %q", doc.Kind)
	}

	clf, err := NewLinearClassifier(doc.Features, doc.Weights, doc.Bias)
	if err != nil {
		return nil, fmt.Errorf("invalid model artifact: %w", err)
	}

	return clf, nil
}
