package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/campus-rag-assistant/internal/config"
	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
	"github.com/kirillkom/campus-rag-assistant/internal/observability/metrics"
)

const (
	maxUploadBytes    = 50 << 20
	maxJSONBodyBytes  = 1 << 20
	backpressureWait  = 250 * time.Millisecond
	readinessTimeout  = 3 * time.Second
	defaultSearchTopK = 8
	defaultListLimit  = 50
	checkUnavailable  = "unavailable"
)

type Dependencies struct {
	Ingestor  ports.DocumentIngestor
	Query     ports.DocumentQueryService
	Documents ports.DocumentReader
	Health    ports.HealthChecker
	Metrics   *metrics.HTTPServerMetrics
	Logger    *slog.Logger
}

type Router struct {
	cfg       config.Config
	ingestor  ports.DocumentIngestor
	query     ports.DocumentQueryService
	documents ports.DocumentReader
	health    ports.HealthChecker
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:       cfg,
		ingestor:  deps.Ingestor,
		query:     deps.Query,
		documents: deps.Documents,
		health:    deps.Health,
		metrics:   deps.Metrics,
		logger:    logger,
	}
}

// Handler assembles the middleware chain: request id, access log, metrics,
// rate limit, backpressure, timeout, contract validation, routes.
func (rt *Router) Handler() (http.Handler, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /readyz", rt.readyz)
	mux.HandleFunc("POST /v1/rag/query", rt.answerSingleHop)
	mux.HandleFunc("POST /v1/rag/multihop", rt.answerMultiHop)
	mux.HandleFunc("POST /v1/rag/search", rt.search)
	mux.HandleFunc("POST /v1/rag/decompose", rt.decompose)
	mux.Handle("POST /v1/index/reload", rt.requireAdminKey(rt.reloadIndex))
	mux.Handle("POST /v1/documents", rt.requireAdminKey(rt.uploadDocument))
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/documents/{document_id}", rt.getDocument)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.APIValidateRequests {
		openapiRouter, err := loadOpenAPIRouter()
		if err != nil {
			return nil, err
		}
		handler = validationMiddleware(handler, openapiRouter)
	}
	handler = timeoutMiddleware(handler, time.Duration(rt.cfg.APIRequestTimeoutSeconds)*time.Second)

	var onReject rejectionRecorder
	if rt.metrics != nil {
		onReject = rt.metrics.RecordRejected
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait, onReject)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, onReject)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler, nil
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz reports each collaborator separately so operators see which one is
// down.
func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	if rt.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := map[string]string{"qdrant": "ok", "ollama": "ok"}
	status := http.StatusOK
	if err := rt.health.CheckStore(ctx); err != nil {
		checks["qdrant"] = checkUnavailable
		status = http.StatusServiceUnavailable
		rt.logger.Warn("readiness_check_failed", "dependency", "qdrant", "error", err)
	}
	if err := rt.health.CheckGenerator(ctx); err != nil {
		checks["ollama"] = checkUnavailable
		status = http.StatusServiceUnavailable
		rt.logger.Warn("readiness_check_failed", "dependency", "ollama", "error", err)
	}

	body := map[string]any{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := bindPage(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	docs, total, err := rt.documents.List(r.Context(), limit, offset)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, domain.DocumentList{Total: total, Documents: docs})
}

func bindPage(query url.Values) (int, int, error) {
	limit := defaultListLimit
	offset := 0
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &limit); err != nil {
		return 0, 0, fmt.Errorf("invalid limit: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", query, &offset); err != nil {
		return 0, 0, fmt.Errorf("invalid offset: %w", err)
	}
	return limit, offset, nil
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("document_id")
	if strings.TrimSpace(id) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.documents.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, map[string]string{"error": errorMessage(err, status)})
}

// errorMessage hides internal detail on 500s; upstream and caller errors are
// returned as-is.
func errorMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("invalid json: %w", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
