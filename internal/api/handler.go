package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/upsell/internal/config"
	"github.com/gyaneshwarpardhi/upsell/internal/engine"
	"github.com/gyaneshwarpardhi/upsell/internal/event"
	"github.com/gyaneshwarpardhi/upsell/internal/opportunity"
	"github.com/gyaneshwarpardhi/upsell/internal/report"
	"github.com/gyaneshwarpardhi/upsell/internal/source"
)

// maxBodyBytes bounds raw event documents posted to /v1/analyze/events.
const maxBodyBytes = 64 << 20

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	status *statusTracker
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader *config.Loader) http.Handler {
	h := &Handler{eng: eng, loader: loader, status: newStatusTracker(), mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /{$}", h.root)
	h.mux.HandleFunc("POST /v1/analyze", h.analyzeFile)
	h.mux.HandleFunc("POST /v1/analyze/events", h.analyzeBody)
	h.mux.HandleFunc("POST /v1/upload", h.upload)
	h.mux.HandleFunc("GET /v1/sample-data", h.sampleData)
	h.mux.HandleFunc("GET /v1/status", h.getStatus)
	h.mux.HandleFunc("GET /v1/thresholds", h.thresholds)
	h.mux.HandleFunc("GET /v1/detectors", h.detectors)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return requestIDMiddleware(loggingMiddleware(corsMiddleware(loader, h.mux)))
}

// analyzeRequest selects which stored dump to analyze.
type analyzeRequest struct {
	EventsFilePath string `json:"events_file_path"`
	UseSampleData  bool   `json:"use_sample_data"`
}

// analysisResponse keeps the field names existing front-ends consume.
type analysisResponse struct {
	RunID         string                    `json:"run_id"`
	Success       bool                      `json:"success"`
	Message       string                    `json:"message"`
	Tasks         []opportunity.Opportunity `json:"tasks"`
	AnalysisTime  string                    `json:"analysis_time"`
	TotalEvents   int                       `json:"total_events"`
	SkippedEvents int                       `json:"skipped_events"`
	Users         int                       `json:"users"`
}

func newAnalysisResponse(r *report.Report) analysisResponse {
	return analysisResponse{
		RunID:         r.RunID,
		Success:       r.Success,
		Message:       r.Message,
		Tasks:         r.Opportunities,
		AnalysisTime:  r.AnalysisTime,
		TotalEvents:   r.TotalEvents,
		SkippedEvents: r.SkippedEvents,
		Users:         r.Users,
	}
}

// GET / — service banner.
func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Upsell Agent API", "status": "running"})
}

// POST /v1/analyze — analyze the sample dump or a previously uploaded file.
func (h *Handler) analyzeFile(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}

	cfg := h.loader.Config()
	var path string
	switch {
	case req.UseSampleData:
		path = cfg.Server.SampleFile
	case req.EventsFilePath != "":
		if !withinDir(cfg.Server.UploadDir, req.EventsFilePath) {
			writeError(w, http.StatusBadRequest, "events_file_path must point into the upload directory")
			return
		}
		path = req.EventsFilePath
	default:
		writeError(w, http.StatusBadRequest, "No events file specified")
		return
	}

	raw, err := source.NewFile(path).Load(r.Context())
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Events file not found: %s", path))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.runAnalysis(w, r, raw)
}

// POST /v1/analyze/events — analyze the event document in the request body.
func (h *Handler) analyzeBody(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	h.runAnalysis(w, r, raw)
}

func (h *Handler) runAnalysis(w http.ResponseWriter, r *http.Request, raw []byte) {
	h.status.set(stateAnalyzing, "Processing events...")

	rep := h.eng.Run(r.Context(), raw, h.loader.Thresholds())
	if !rep.Success {
		h.status.set(stateError, rep.Message)
		writeJSON(w, http.StatusUnprocessableEntity, newAnalysisResponse(rep))
		return
	}
	h.status.set(stateCompleted, fmt.Sprintf("Analysis completed. Found %d opportunities.", len(rep.Opportunities)))
	writeJSON(w, http.StatusOK, newAnalysisResponse(rep))
}

// POST /v1/upload — store a JSON event dump for later analysis.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	cfg := h.loader.Config()
	limit := int64(cfg.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing file: %s", err))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".json") {
		writeError(w, http.StatusBadRequest, "Only JSON files are allowed")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read upload: %s", err))
		return
	}
	events, stats, err := event.Parse(content)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid events file: %s", err))
		return
	}

	if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Upload failed: %s", err))
		return
	}
	path := filepath.Join(cfg.Server.UploadDir, uuid.New().String()+"-"+name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Upload failed: %s", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"message":        fmt.Sprintf("File uploaded successfully. Found %d events.", len(events)),
		"file_path":      path,
		"total_events":   len(events),
		"skipped_events": stats.Skipped,
	})
}

// GET /v1/sample-data — describe the bundled sample dump.
func (h *Handler) sampleData(w http.ResponseWriter, r *http.Request) {
	path := h.loader.Config().Server.SampleFile
	raw, err := source.NewFile(path).Load(r.Context())
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sample data file not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	events, _, err := event.Parse(raw)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("sample data unreadable: %s", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"total_events": len(events),
		"file_path":    path,
		"description":  "Sample dataset of PostHog events",
	})
}

// GET /v1/status — last analysis state.
func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.get())
}

// GET /v1/thresholds — cutoffs currently in force.
func (h *Handler) thresholds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.loader.Thresholds())
}

// GET /v1/detectors — detector kinds in registration order.
func (h *Handler) detectors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"kinds": h.eng.Kinds()})
}

// POST /v1/config/reload — re-read the config file from disk.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":   true,
		"version":    cfg.Version,
		"thresholds": cfg.Thresholds,
	})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withinDir reports whether path resolves inside dir.
func withinDir(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
