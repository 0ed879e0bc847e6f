package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iwvelando/drone-power/internal/analysis"
	"github.com/iwvelando/drone-power/internal/cases"
	"github.com/iwvelando/drone-power/internal/store"
	"github.com/iwvelando/drone-power/pkg/constants"
	"github.com/iwvelando/drone-power/pkg/optimization"
	"github.com/iwvelando/drone-power/pkg/output"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Options configure the HTTP handler.
type Options struct {
	Settings      analysis.Settings
	MaxUploadSize int64
	Version       string
	Store         *store.Store // optional
}

type handler struct {
	logger        *zap.Logger
	runner        *analysis.Runner
	settings      analysis.Settings
	maxUploadSize int64
	version       string
	store         *store.Store
}

// NewHandler constructs the HTTP handler that serves the analysis API.
func NewHandler(logger *zap.Logger, opts Options) (http.Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	runner, err := analysis.NewRunner(logger, opts.Settings)
	if err != nil {
		return nil, err
	}

	h := &handler{
		logger:        logger,
		runner:        runner,
		settings:      opts.Settings,
		maxUploadSize: opts.MaxUploadSize,
		version:       trimmedVersion,
		store:         opts.Store,
	}

	mux := http.NewServeMux()

	// Batch analysis of an uploaded case file
	mux.HandleFunc("/api/analyze", h.handleAnalyze)

	// Single case analysis from a JSON body
	mux.HandleFunc("/api/analyze/case", h.handleAnalyzeCase)

	// Analysis settings as YAML
	mux.HandleFunc("/api/settings", h.handleSettings)

	// Stored runs
	mux.HandleFunc("/api/runs", h.handleRuns)
	mux.HandleFunc("/api/runs/", h.handleRun)

	// Version endpoint
	mux.HandleFunc("/api/version", h.handleVersion)

	return mux, nil
}

type analyzeResponse struct {
	RunID       string               `json:"runId,omitempty"`
	Results     []analysis.Result    `json:"results"`
	Summary     optimization.Summary `json:"summary"`
	ParseErrors []string             `json:"parseErrors,omitempty"`
	CSV         string               `json:"csv"`
	Duration    string               `json:"duration"`
}

func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAnalyze"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing case file", op)
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
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read case file: %v", err), op)
		return
	}

	list, parseErrors, err := cases.Read(h.logger, &buf)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	if len(list) == 0 {
		h.respondError(w, http.StatusBadRequest, "case file contains no valid records", op)
		return
	}

	results := h.runner.RunAll(list)

	var runID string
	if h.store != nil {
		runID = store.NewRunID(start)
		if err := h.store.SaveRun(r.Context(), runID, results); err != nil {
			h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store results: %v", err), op)
			return
		}
	}

	var csvBuf bytes.Buffer
	if err := output.CsvFormat(&csvBuf, results); err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render csv: %v", err), op)
		return
	}

	report := output.NewReport(results, parseErrors)
	elapsed := time.Since(start)
	response := analyzeResponse{
		RunID:       runID,
		Results:     report.Results,
		Summary:     report.Summary,
		ParseErrors: report.ParseErrors,
		CSV:         csvBuf.String(),
		Duration:    elapsed.String(),
	}

	h.logger.Info("analysis computed",
		zap.String("op", op),
		zap.Int("cases", len(results)),
		zap.Int("skipped", len(parseErrors)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleAnalyzeCase(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAnalyzeCase"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var tc cases.TestCase
	if err := dec.Decode(&tc); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid case: %v", err), op)
		return
	}

	res, err := h.runner.Run(1, tc)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	payload, err := yaml.Marshal(settingsDocument{
		Differentiation: map[string]float64{"step": h.settings.Step},
		Integration:     map[string]int{"rombergLevels": h.settings.RombergLevels},
		Maneuver: maneuverDocument{
			Duration:      h.settings.Duration,
			StartVelocity: h.settings.StartVelocity,
			Samples:       h.settings.ProfileSamples,
		},
	})
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to serialize settings: %v", err), "server.handleSettings")
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="drone-power-settings.yaml"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		h.logger.Warn("failed to write settings response",
			zap.String("op", "server.handleSettings"),
			zap.Error(err),
		)
	}
}

// settingsDocument mirrors the configuration file layout so an export can be
// used as a config file.
type settingsDocument struct {
	Differentiation map[string]float64 `yaml:"differentiation"`
	Integration     map[string]int     `yaml:"integration"`
	Maneuver        maneuverDocument   `yaml:"maneuver"`
}

type maneuverDocument struct {
	Duration      float64 `yaml:"duration"`
	StartVelocity float64 `yaml:"startVelocity"`
	Samples       int     `yaml:"samples"`
}

func (h *handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRuns"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if h.store == nil {
		h.respondError(w, http.StatusNotFound, "results store is not configured", op)
		return
	}

	ids, err := h.store.Runs(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"runs": ids})
}

func (h *handler) handleRun(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRun"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if h.store == nil {
		h.respondError(w, http.StatusNotFound, "results store is not configured", op)
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if runID == "" || strings.Contains(runID, "/") {
		h.respondError(w, http.StatusBadRequest, "invalid run id", op)
		return
	}

	results, err := h.store.LoadRun(r.Context(), runID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	if len(results) == 0 {
		h.respondError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", runID), op)
		return
	}
	h.writeJSON(w, http.StatusOK, analyzeResponse{RunID: runID, Results: results})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("analysis request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

// Serve runs an HTTP server on addr until ctx is cancelled, then shuts it
// down gracefully.
func Serve(ctx context.Context, logger *zap.Logger, addr string, handler http.Handler) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("op", "server.Serve"),
			zap.String("address", addr),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}
