// Package server exposes the estimate engine over a JSON HTTP API.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/iwvelando/steel-estimate/internal/assign"
	"github.com/iwvelando/steel-estimate/internal/boost"
	"github.com/iwvelando/steel-estimate/internal/catalog"
	"github.com/iwvelando/steel-estimate/internal/config"
	"github.com/iwvelando/steel-estimate/internal/estimate"
	"github.com/iwvelando/steel-estimate/internal/project"
	"github.com/iwvelando/steel-estimate/internal/scenario"
	"github.com/iwvelando/steel-estimate/pkg/constants"
	"github.com/iwvelando/steel-estimate/pkg/optimization"
	"github.com/iwvelando/steel-estimate/pkg/output"
)

type handler struct {
	logger        *zap.Logger
	conf          *config.Configuration
	maxUploadSize int64
	version       string
}

// Options configure NewHandler.
type Options struct {
	MaxUploadSize int64
	Timeout       time.Duration
	Version       string
}

// NewHandler constructs the router serving the estimate API. Every request
// gets its own engine built from conf, which is never modified.
func NewHandler(logger *zap.Logger, conf *config.Configuration, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if conf == nil {
		conf = config.Default()
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = constants.DefaultMaxUploadSizeBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRequestTimeout
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, conf: conf, maxUploadSize: opts.MaxUploadSize, version: trimmedVersion}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.Timeout))

	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/version", h.handleVersion)
		r.Get("/catalog", h.handleCatalog)
		r.Post("/assignments", h.handleAssignments)
		r.Post("/scenarios", h.handleScenarios)
		r.Post("/boost", h.handleBoost)
		r.Post("/boost/revert", h.handleRevert)
	})

	return r
}

type requestOptions struct {
	Boost     bool
	AppliedID string
}

type scenariosResponse struct {
	Project    project.Project        `json:"project"`
	Assignment assign.Result          `json:"assignment"`
	Scenarios  []scenario.Scenario    `json:"scenarios"`
	Plan       boost.Plan             `json:"plan"`
	Boosted    bool                   `json:"boosted"`
	Snapshot   *boost.Snapshot        `json:"snapshot,omitempty"`
	Summaries  []optimization.Summary `json:"summaries,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
	CSV        string                 `json:"csv"`
	Duration   string                 `json:"duration"`
}

type assignmentsResponse struct {
	Assignment assign.Result `json:"assignment"`
	Errors     []string      `json:"errors,omitempty"`
	Warnings   []string      `json:"warnings,omitempty"`
}

type catalogResponse struct {
	Rules        []catalog.SupplierRule `json:"rules"`
	UsedFallback bool                   `json:"usedFallback"`
	Warnings     []string               `json:"warnings,omitempty"`
}

type revertRequest struct {
	Scenarios []scenario.Scenario `json:"scenarios"`
	Snapshot  *boost.Snapshot     `json:"snapshot"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCatalog"
	engine, err := estimate.NewEngine(h.logger, h.conf, nil)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	cat := engine.Catalog()
	h.writeJSON(w, http.StatusOK, catalogResponse{
		Rules:        cat.Rules(),
		UsedFallback: cat.UsedFallback,
		Warnings:     engine.Warnings(),
	})
}

func (h *handler) handleAssignments(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAssignments"
	p, _, ok := h.readProject(w, r, op)
	if !ok {
		return
	}
	engine, err := estimate.NewEngine(h.logger, h.conf, nil)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	result := engine.Assign(*p)
	h.writeJSON(w, http.StatusOK, assignmentsResponse{
		Assignment: result,
		Errors:     result.Errors(),
		Warnings:   engine.Warnings(),
	})
}

func (h *handler) handleScenarios(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleScenarios"
	p, opts, ok := h.readProject(w, r, op)
	if !ok {
		return
	}
	h.runEstimate(w, *p, opts, op)
}

func (h *handler) handleBoost(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleBoost"
	p, opts, ok := h.readProject(w, r, op)
	if !ok {
		return
	}
	opts.Boost = true
	h.runEstimate(w, *p, opts, op)
}

func (h *handler) handleRevert(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRevert"
	body, ok := h.readBody(w, r, op)
	if !ok {
		return
	}

	var req revertRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode revert request: %v", err), op)
		return
	}
	if req.Snapshot == nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing boost snapshot", op)
		return
	}
	if _, found := scenario.Find(req.Scenarios, req.Snapshot.ScenarioID); !found {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("scenario %s not found", req.Snapshot.ScenarioID), op)
		return
	}

	engine, err := estimate.NewEngine(h.logger, h.conf, nil)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"scenarios": engine.Revert(req.Scenarios, req.Snapshot),
	})
}

func (h *handler) runEstimate(w http.ResponseWriter, p project.Project, opts requestOptions, op string) {
	start := time.Now()

	engine, err := estimate.NewEngine(h.logger, h.conf, nil)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}

	est, err := engine.Estimate(p, estimate.Options{Boost: opts.Boost, AppliedID: opts.AppliedID})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, estimate.ErrEmptyProject) {
			status = http.StatusBadRequest
		}
		h.respondErrorWithOp(w, status, err.Error(), op)
		return
	}

	var csvBuf bytes.Buffer
	if err := output.WriteCSV(&csvBuf, est); err != nil {
		h.logger.Warn("failed to render CSV",
			zap.String("op", op),
			zap.Error(err),
		)
	}

	elapsed := time.Since(start)
	response := scenariosResponse{
		Project:    est.Project,
		Assignment: est.Assignment,
		Scenarios:  est.Scenarios,
		Plan:       est.Plan,
		Boosted:    est.Boosted,
		Snapshot:   est.Snapshot,
		Summaries:  est.Summaries,
		Warnings:   est.Warnings,
		CSV:        csvBuf.String(),
		Duration:   elapsed.String(),
	}

	h.logger.Info("estimate computed",
		zap.String("op", op),
		zap.String("project", est.Project.Name),
		zap.Int("scenarios", len(est.Scenarios)),
		zap.Bool("boosted", est.Boosted),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

// readProject decodes a request body holding either a bare project or
// {"project": {...}, "options": {...}}. YAML bodies are accepted when the
// content type says so.
func (h *handler) readProject(w http.ResponseWriter, r *http.Request, op string) (*project.Project, requestOptions, bool) {
	var opts requestOptions

	body, ok := h.readBody(w, r, op)
	if !ok {
		return nil, opts, false
	}

	var payload map[string]interface{}
	if isYAML(r.Header.Get("Content-Type")) {
		decoded, err := decodeYAMLToMap(body)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode project: %v", err), op)
			return nil, opts, false
		}
		payload = decoded
	} else if err := json.Unmarshal(body, &payload); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode project: %v", err), op)
		return nil, opts, false
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	projectPayload := payload
	if rawProject, ok := payload["project"]; ok {
		projectMap, ok := rawProject.(map[string]interface{})
		if !ok {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid project payload: expected object", op)
			return nil, opts, false
		}
		projectPayload = projectMap
	}

	if rawOptions, ok := payload["options"]; ok {
		optsMap, ok := rawOptions.(map[string]interface{})
		if !ok {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid options payload: expected object", op)
			return nil, opts, false
		}
		if boostVal, ok := optsMap["boost"]; ok {
			opts.Boost = coerceBool(boostVal)
		}
		if applied, ok := optsMap["appliedScenarioId"].(string); ok {
			opts.AppliedID = strings.TrimSpace(applied)
		}
	}

	projectBytes, err := json.Marshal(projectPayload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode project: %v", err), op)
		return nil, opts, false
	}
	p, err := config.LoadProjectFromReader(bytes.NewReader(projectBytes), "json")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return nil, opts, false
	}
	return p, opts, true
}

func (h *handler) readBody(w http.ResponseWriter, r *http.Request, op string) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return nil, false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to read request: %v", err), op)
		return nil, false
	}
	return body, true
}

func isYAML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	}
	return false
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

func (h *handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("request served",
			zap.String("op", "server.requestLogger"),
			zap.String("requestId", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("estimate request failed",
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

func coerceBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false
		}
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case json.Number:
		if parsed, err := strconv.ParseFloat(v.String(), 64); err == nil {
			return parsed != 0
		}
	}
	return false
}
