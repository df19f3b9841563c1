// Package logger configures structured JSON logging for the service.
// Warnings and errors are always counted; log output above the threshold
// can be sampled down via ERROR_SAMPLE_RATE to keep a degraded model from
// flooding the log stream (every request on the fallback path warns).
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// Counters incremented regardless of sampling, for the health surface.
var (
	TotalErrors   atomic.Int64
	TotalWarnings atomic.Int64
)

var programLevel = new(slog.LevelVar)

// New builds a JSON logger at the given level ("DEBUG", "INFO", "WARN",
// "ERROR"; invalid or empty falls back to INFO). Warn and error records
// are sampled 1-in-rate when ERROR_SAMPLE_RATE is set above 1.
func New(level string) *slog.Logger {
	lv, err := ParseLevel(level)
	if err != nil {
		lv = slog.LevelInfo
	}
	programLevel.Set(lv)

	rate := 1
	if s := os.Getenv("ERROR_SAMPLE_RATE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			rate = n
		}
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: programLevel})
	return slog.New(&samplingHandler{handler: handler, rate: rate})
}

// SetLevel adjusts the minimum level at runtime.
func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

// ParseLevel converts a level name to slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToUpper(level) {
	case "", "INFO":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

// samplingHandler counts warn/error records and drops all but 1-in-rate of
// them from the output stream.
type samplingHandler struct {
	handler slog.Handler
	rate    int
}

func (h *samplingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *samplingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		TotalErrors.Add(1)
	} else if r.Level >= slog.LevelWarn {
		TotalWarnings.Add(1)
	}

	if r.Level >= slog.LevelWarn && h.rate > 1 && rand.Intn(h.rate) != 0 {
		return nil
	}
	return h.handler.Handle(ctx, r)
}

func (h *samplingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &samplingHandler{handler: h.handler.WithAttrs(attrs), rate: h.rate}
}

func (h *samplingHandler) WithGroup(name string) slog.Handler {
	return &samplingHandler{handler: h.handler.WithGroup(name), rate: h.rate}
}
