// Course completion prediction service.
//
// Serves POST /predict backed by a trained classifier artifact, degrading
// to a deterministic heuristic when the model is absent or errors. The
// endpoint answers HTTP 200 with a well-formed body for every conceivable
// payload.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ekarau/course-completion-api/guard"
	"github.com/ekarau/course-completion-api/heuristic"
	"github.com/ekarau/course-completion-api/internal/logger"
	"github.com/ekarau/course-completion-api/metrics"
	"github.com/ekarau/course-completion-api/model"
	"github.com/ekarau/course-completion-api/predict"
	"github.com/ekarau/course-completion-api/schema"
	"github.com/ekarau/course-completion-api/store"
)

// Request bodies larger than this are cut off at the transport; the guard
// bounds field counts and string sizes within the parsed object.
const maxBodyBytes = 1 << 20

// Config is built once from the environment in main and injected; nothing
// reads ambient state after startup.
type Config struct {
	Port           string
	ModelPath      string
	SchemaPath     string
	GuardRulesPath string
	DatabaseURL    string
	LogLevel       string
	RecorderBuffer int
}

// ConfigFromEnv reads the service configuration.
func ConfigFromEnv() Config {
	cfg := Config{
		Port:           os.Getenv("PORT"),
		ModelPath:      os.Getenv("MODEL_PATH"),
		SchemaPath:     os.Getenv("SCHEMA_PATH"),
		GuardRulesPath: os.Getenv("GUARD_RULES_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.ModelPath == "" {
		cfg.ModelPath = "models/model.json"
	}
	if s := os.Getenv("RECORDER_BUFFER"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.RecorderBuffer = n
		}
	}
	return cfg
}

type Server struct {
	cfg      Config
	log      *slog.Logger
	schema   *schema.Canonical
	adapter  *model.Adapter
	orch     *predict.Orchestrator
	sink     *metrics.PromSink
	recorder *store.Recorder
	router   *chi.Mux
}

// NewServer wires the prediction path. A missing or broken model artifact
// is not an error: the service comes up serving the fallback. A broken
// schema artifact or screening-rule file is a configuration error and
// fails startup.
func NewServer(cfg Config) (*Server, error) {
	log := logger.New(cfg.LogLevel)

	canonical := schema.Default()
	if cfg.SchemaPath != "" {
		loaded, err := schema.Load(cfg.SchemaPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load schema artifact: %w", err)
		}
		canonical = loaded
	}

	g := guard.New()
	if cfg.GuardRulesPath != "" {
		rules, err := guard.LoadRules(cfg.GuardRulesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load screening rules: %w", err)
		}
		g, err = guard.NewWithRules(rules)
		if err != nil {
			return nil, fmt.Errorf("failed to compile screening rules: %w", err)
		}
		log.Info("screening rules compiled", "count", len(rules))
	}

	adapter := model.Load(cfg.ModelPath)
	if adapter.Available() {
		log.Info("model loaded", "path", cfg.ModelPath)
	} else {
		log.Warn("model not loaded, serving heuristic fallback",
			"path", cfg.ModelPath, "error", adapter.LoadError().Error())
	}

	sink := metrics.NewPromSink()
	orch := predict.New(canonical, g, adapter, heuristic.New(), sink, log)

	s := &Server{
		cfg:     cfg,
		log:     log,
		schema:  canonical,
		adapter: adapter,
		orch:    orch,
		sink:    sink,
	}

	// The prediction log is optional; a down database must not block
	// serving.
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Warn("prediction log disabled", "error", err.Error())
		} else {
			s.recorder = store.NewRecorder(pg, cfg.RecorderBuffer, log)
			log.Info("prediction log enabled")
		}
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/predict", s.handlePredict)
	r.Get("/health", s.handleHealth)
	r.Get("/schema", s.handleSchema)
	r.Handle("/metrics", s.sink.Handler())

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close flushes and stops the prediction log, if enabled.
func (s *Server) Close() error {
	if s.recorder != nil {
		return s.recorder.Close()
	}
	return nil
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var payload map[string]any
	decodeErr := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload)

	outcome := s.orch.Predict(r.Context(), payload, decodeErr)

	if s.recorder != nil {
		s.recorder.Enqueue(&store.Entry{
			Mode:        outcome.MetricMode(),
			Reason:      outcome.Reason,
			Prediction:  outcome.Prediction,
			Probability: outcome.Probability,
			LatencyMS:   float64(time.Since(start).Microseconds()) / 1000,
		})
	}

	respondJSON(w, http.StatusOK, predictionResponse{
		Prediction:  outcome.Prediction,
		Probability: outcome.Probability,
		Meta: predictionMeta{
			Mode:   outcome.Mode,
			Reason: outcome.Reason,
			Error:  outcome.Err,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "ok",
		ModelLoaded: s.adapter.Available(),
		ModelPath:   s.adapter.Path(),
	}
	if err := s.adapter.LoadError(); err != nil {
		resp.ModelError = err.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"fields": s.schema.Fields(),
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func main() {
	cfg := ConfigFromEnv()

	server, err := NewServer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
		os.Exit(1)
	}
	defer server.Close()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		server.log.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.log.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	server.log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		server.log.Error("shutdown error", "error", err.Error())
	}

	server.log.Info("server stopped")
}
