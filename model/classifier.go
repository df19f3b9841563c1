package model

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/ekarau/course-completion-api/schema"
)

// Classifier is the opaque capability the orchestrator consumes: a row
// shaped per the canonical schema in, a class label out.
type Classifier interface {
	Predict(rec *schema.AlignedRecord) (int, error)
}

// Feature encoder kinds understood by the artifact format.
const (
	FeatureNumeric     = "numeric"
	FeatureCategorical = "categorical"
	FeatureHashed      = "hashed"
)

// FeatureSpec describes how one canonical field is encoded into the input
// vector: numeric pass-through with an impute value, one-hot over a fixed
// vocabulary, or hashed buckets for high-cardinality fields.
type FeatureSpec struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Impute     float64  `json:"impute,omitempty"`
	Vocabulary []string `json:"vocabulary,omitempty"`
	Buckets    int      `json:"buckets,omitempty"`
}

func (f FeatureSpec) width() (int, error) {
	switch f.Kind {
	case FeatureNumeric:
		return 1, nil
	case FeatureCategorical:
		if len(f.Vocabulary) == 0 {
			return 0, fmt.Errorf("categorical feature %q has empty vocabulary", f.Name)
		}
		return len(f.Vocabulary), nil
	case FeatureHashed:
		if f.Buckets <= 0 {
			return 0, fmt.Errorf("hashed feature %q has invalid bucket count %d", f.Name, f.Buckets)
		}
		return f.Buckets, nil
	default:
		return 0, fmt.Errorf("feature %q has unknown kind %q", f.Name, f.Kind)
	}
}

// LinearClassifier is a binary logistic classifier over encoded records:
// sigmoid(w.x + b) with a 0.5 decision threshold.
type LinearClassifier struct {
	features []FeatureSpec
	vocab    []map[string]int // per-feature value -> one-hot offset
	weights  []float64
	bias     float64
	width    int
}

// NewLinearClassifier validates the feature layout against the weight
// vector and builds the encoder tables.
func NewLinearClassifier(features []FeatureSpec, weights []float64, bias float64) (*LinearClassifier, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("classifier requires at least one feature")
	}

	c := &LinearClassifier{
		features: features,
		vocab:    make([]map[string]int, len(features)),
		weights:  weights,
		bias:     bias,
	}

	for i, f := range features {
		w, err := f.width()
		if err != nil {
			return nil, err
		}
		c.width += w

		if f.Kind == FeatureCategorical {
			idx := make(map[string]int, len(f.Vocabulary))
			for j, v := range f.Vocabulary {
				idx[v] = j
			}
			c.vocab[i] = idx
		}
	}

	if len(weights) != c.width {
		return nil, fmt.Errorf("weight vector has %d entries, encoded width is %d", len(weights), c.width)
	}

	return c, nil
}

// Predict encodes the record and returns the class label.
func (c *LinearClassifier) Predict(rec *schema.AlignedRecord) (int, error) {
	if rec == nil {
		return 0, fmt.Errorf("record is nil")
	}

	x := c.encode(rec)

	sum := c.bias
	for j, v := range x {
		sum += c.weights[j] * v
	}

	if sigmoid(sum) >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

// encode turns an aligned record into the input vector. Null cells fall
// back to the impute value (numeric) or an all-zero block (categorical and
// hashed), mirroring how the training pipeline imputes.
func (c *LinearClassifier) encode(rec *schema.AlignedRecord) []float64 {
	x := make([]float64, c.width)

	offset := 0
	for i, f := range c.features {
		switch f.Kind {
		case FeatureNumeric:
			if n := rec.Number(f.Name); n != nil {
				x[offset] = *n
			} else {
				x[offset] = f.Impute
			}
			offset++

		case FeatureCategorical:
			if t := rec.Text(f.Name); t != nil {
				if j, ok := c.vocab[i][*t]; ok {
					x[offset+j] = 1
				}
			}
			offset += len(f.Vocabulary)

		case FeatureHashed:
			if t := rec.Text(f.Name); t != nil {
				x[offset+hashBucket(*t, f.Buckets)] = 1
			}
			offset += f.Buckets
		}
	}

	return x
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// hashBucket maps a raw categorical value to a bucket index. The training
// pipeline applies the same trick to compress high-cardinality columns.
func hashBucket(value string, buckets int) int {
	h := fnv.New32a()
	h.Write([]byte(value))
	return int(h.Sum32() % uint32(buckets))
}
