package store

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Recorder decouples the serving path from the store: Enqueue never
// blocks, entries are written by a background worker, and writes that
// cannot be buffered are dropped and counted. A slow or down database must
// never slow a prediction.
type Recorder struct {
	store   Store
	ch      chan *Entry
	done    chan struct{}
	dropped atomic.Int64
	log     *slog.Logger
}

// NewRecorder starts a recorder with the given buffer size.
func NewRecorder(s Store, buffer int, log *slog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}

	r := &Recorder{
		store: s,
		ch:    make(chan *Entry, buffer),
		done:  make(chan struct{}),
		log:   log,
	}

	go r.run()
	return r
}

// Enqueue submits an outcome for recording. Missing ID and CreatedAt are
// filled in here. Returns false if the buffer was full and the entry was
// dropped.
func (r *Recorder) Enqueue(e *Entry) bool {
	if e == nil {
		return false
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	select {
	case r.ch <- e:
		return true
	default:
		r.dropped.Add(1)
		return false
	}
}

// Dropped returns how many entries were discarded because the buffer was
// full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close drains buffered entries, stops the worker, and closes the store.
func (r *Recorder) Close() error {
	close(r.ch)
	<-r.done
	return r.store.Close()
}

func (r *Recorder) run() {
	defer close(r.done)

	for e := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := r.store.Record(ctx, e)
		cancel()

		if err != nil && r.log != nil {
			r.log.Warn("failed to record prediction", "error", err.Error(), "id", e.ID)
		}
	}
}
