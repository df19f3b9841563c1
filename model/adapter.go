package model

import (
	"context"
	"errors"

	"github.com/ekarau/course-completion-api/schema"
)

// ErrUnavailable is returned by Predict when no classifier is loaded.
var ErrUnavailable = errors.New("model is not available")

// Adapter wraps the externally trained classifier. It is loaded once at
// process start and shared read-only by all requests. A failed load leaves
// the adapter permanently unavailable for the process lifetime; absence is
// an expected state, not an error state, and is surfaced only through the
// health endpoint.
type Adapter struct {
	path    string
	clf     Classifier
	loadErr error
}

// Load reads the classifier artifact at path. It never fails the process:
// any load error is recorded and the adapter comes up unavailable.
func Load(path string) *Adapter {
	clf, err := LoadClassifier(path)
	if err != nil {
		return &Adapter{path: path, loadErr: err}
	}
	return &Adapter{path: path, clf: clf}
}

// NewAdapter wraps an already constructed classifier.
func NewAdapter(clf Classifier, path string) *Adapter {
	return &Adapter{path: path, clf: clf}
}

// Unavailable returns an adapter with no classifier, recording err as the
// load failure if given.
func Unavailable(path string, err error) *Adapter {
	return &Adapter{path: path, loadErr: err}
}

// Available reports whether a classifier is loaded.
func (a *Adapter) Available() bool {
	return a.clf != nil
}

// Path returns the configured artifact location.
func (a *Adapter) Path() string {
	return a.path
}

// LoadError returns the startup load failure, or nil.
func (a *Adapter) LoadError() error {
	return a.loadErr
}

// Predict runs the wrapped classifier on an aligned record.
func (a *Adapter) Predict(ctx context.Context, rec *schema.AlignedRecord) (int, error) {
	if a.clf == nil {
		return 0, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return a.clf.Predict(rec)
}
