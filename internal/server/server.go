// Package server exposes the simulator over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iwvelando/financing-simulator/internal/config"
	"github.com/iwvelando/financing-simulator/internal/metrics"
	"github.com/iwvelando/financing-simulator/internal/simulation"
	"github.com/iwvelando/financing-simulator/pkg/constants"
	"github.com/iwvelando/financing-simulator/pkg/loans"
	"github.com/iwvelando/financing-simulator/pkg/output"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Options configures NewHandler. Limiter and Cache may be nil.
type Options struct {
	MaxUploadSize int64
	Version       string
	Limiter       Limiter
	Cache         simulation.Cache
	Tax           loans.TaxPolicy

	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Only enable it behind a proxy that overwrites them.
	TrustProxy bool
}

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	cache         simulation.Cache
	runner        *simulation.Runner
}

// NewHandler constructs the HTTP handler serving the simulation API.
func NewHandler(logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxUploadSize := opts.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		cache:         opts.Cache,
		runner:        simulation.NewRunner(logger, opts.Tax, opts.Cache),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(RateLimitMiddleware(logger, opts.Limiter))
		}

		r.Get("/version", h.handleVersion)

		// Single simulation from a JSON body
		r.Post("/simulate", h.handleSimulate)

		// Every active simulation of an uploaded configuration file
		r.Post("/simulate/config", h.handleSimulateConfig)
	})

	return r
}

// simulateRequest mirrors one entry of the simulations list in a
// configuration file.
type simulateRequest struct {
	Name           string  `json:"name"`
	Product        string  `json:"product"`
	Principal      float64 `json:"principal"`
	Rate           float64 `json:"rate"`
	RateBasis      string  `json:"rateBasis"`
	Term           int     `json:"term"`
	IncludeTax     bool    `json:"includeTax"`
	Method         string  `json:"method"`
	BalloonPercent float64 `json:"balloonPercent"`
	StartDate      string  `json:"startDate"`
}

func (req simulateRequest) simulation() config.Simulation {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "simulation"
	}
	return config.Simulation{
		Name:           name,
		Active:         true,
		Product:        req.Product,
		Principal:      req.Principal,
		Rate:           req.Rate,
		RateBasis:      req.RateBasis,
		Term:           req.Term,
		IncludeTax:     req.IncludeTax,
		Method:         req.Method,
		BalloonPercent: req.BalloonPercent,
		StartDate:      req.StartDate,
	}
}

type simulateResponse struct {
	Simulation simulation.Outcome `json:"simulation"`
	Duration   string             `json:"duration"`
}

type configResponse struct {
	Simulations []simulation.Outcome   `json:"simulations"`
	CSV         string                 `json:"csv"`
	Warnings    []string               `json:"warnings,omitempty"`
	Duration    string                 `json:"duration"`
	Config      map[string]interface{} `json:"config,omitempty"`
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleVersion(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSimulate"
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req simulateRequest
	if err := decoder.Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return
	}

	outcome, err := h.runner.RunSimulation(r.Context(), req.simulation())
	if err != nil {
		h.respondErrorWithOp(w, statusForError(err), err.Error(), op)
		return
	}

	elapsed := time.Since(start)
	h.logger.Info("simulation computed",
		zap.String("op", op),
		zap.String("simulation", outcome.Name),
		zap.String("method", outcome.Params.Method.String()),
		zap.Bool("cached", outcome.Cached),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, simulateResponse{
		Simulation: outcome,
		Duration:   elapsed.String(),
	})
}

func (h *handler) handleSimulateConfig(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSimulateConfig"
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing configuration file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err), op)
		return
	}

	configBytes := buf.Bytes()
	configMap, err := decodeYAMLToMap(configBytes)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("error reading config data, %v", err), op)
		return
	}

	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	warnings := cfg.ValidateConfiguration()

	runner := h.runner
	if cfg.Tax != (config.TaxConfig{}) {
		runner = simulation.NewRunner(h.logger, cfg.Tax.TaxPolicy(), h.cache)
	}

	results, err := runner.RunAll(r.Context(), cfg.Simulations)
	if err != nil {
		h.respondErrorWithOp(w, statusForError(err), err.Error(), op)
		return
	}
	if results == nil {
		results = []simulation.Outcome{}
	}

	elapsed := time.Since(start)
	h.logger.Info("configuration simulated",
		zap.String("op", op),
		zap.Int("simulations", len(results)),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, configResponse{
		Simulations: results,
		CSV:         output.CsvString(results),
		Warnings:    warnings,
		Duration:    elapsed.String(),
		Config:      configMap,
	})
}

// statusForError maps simulation failures caused by the request to 400.
func statusForError(err error) int {
	switch {
	case errors.Is(err, simulation.ErrInvalidSimulation),
		errors.Is(err, loans.ErrInvalidLoanParameters),
		errors.Is(err, loans.ErrUnknownMethod):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeYAMLToMap(data []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return make(map[string]interface{}), nil
	}

	var result map[string]interface{}
	if err := yaml.Unmarshal(trimmed, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]interface{})
	}
	return result, nil
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	writeError(w, h.logger, status, msg, op)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	writeJSON(w, h.logger, status, payload)
}

func writeError(w http.ResponseWriter, logger *zap.Logger, status int, msg string, op string) {
	logger.Error("simulation request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	writeJSON(w, logger, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to encode JSON response", zap.Int("status", status), zap.Error(err))
		status = http.StatusInternalServerError
		data = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		logger.Error("failed to write JSON response", zap.Error(err))
	}
}
