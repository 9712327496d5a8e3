// Package httpapi hosts the submission endpoint next to health and metrics.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/usecase"
)

const maxRequestBytes = 64 << 10

// Submitter accepts manual ingestion requests.
type Submitter interface {
	Submit(ctx context.Context, req usecase.SubmitRequest) (usecase.SubmitResult, error)
}

// HealthCheck reports whether backing services are reachable.
type HealthCheck func(ctx context.Context) error

// Handler serves the ingestion API.
type Handler struct {
	submitter Submitter
	metrics   http.Handler
	health    HealthCheck
	logger    *slog.Logger
}

// NewHandler wires the API. metrics and health may be nil.
func NewHandler(submitter Submitter, metrics http.Handler, health HealthCheck, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{submitter: submitter, metrics: metrics, health: health, logger: logger}
}

// RegisterHTTPHandlers registers all routes on mux.
func (h *Handler) RegisterHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ingest/manual", h.handleManual)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

// Routes returns a mux with every route registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterHTTPHandlers(mux)
	return mux
}

// ManualRequest is the JSON body of POST /api/ingest/manual.
type ManualRequest struct {
	URL    string       `json:"url"`
	Title  string       `json:"title,omitempty"`
	Source ManualSource `json:"source,omitempty"`
}

// ManualSource is either {"name", "feedUrl"} or a bare source name.
type ManualSource domain.SourceMeta

// UnmarshalJSON accepts the object form and a plain string.
func (s *ManualSource) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = ManualSource{Name: name}
		return nil
	}

	var meta struct {
		Name    string `json:"name"`
		FeedURL string `json:"feedUrl"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&meta); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	*s = ManualSource{Name: meta.Name, FeedURL: meta.FeedURL}
	return nil
}

// ManualResponse acknowledges acceptance into the queue only.
type ManualResponse struct {
	Status  string `json:"status"`
	JobID   string `json:"jobId"`
	Created bool   `json:"created"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) handleManual(w http.ResponseWriter, r *http.Request) {
	var req ManualRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "request body must be a JSON object with a url field and an optional source {name, feedUrl}")
		return
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "request body must contain a single JSON object")
		return
	}

	res, err := h.submitter.Submit(r.Context(), usecase.SubmitRequest{
		URL:    req.URL,
		Title:  req.Title,
		Source: domain.SourceMeta(req.Source),
	})
	switch {
	case domain.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	case err != nil:
		h.logger.Error("manual submission failed", "url", req.URL, "error", err)
		writeJSONError(w, http.StatusServiceUnavailable, "queue_unavailable", "the job could not be queued, try again later")
		return
	}

	writeJSON(w, http.StatusAccepted, ManualResponse{Status: "queued", JobID: res.JobID, Created: res.Created})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			h.logger.Warn("health check failed", "error", err)
			writeJSONError(w, http.StatusServiceUnavailable, "unhealthy", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
