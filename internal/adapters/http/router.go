package httpadapter

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/kirillkom/corporate-action-intel/internal/config"
	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
	"github.com/kirillkom/corporate-action-intel/internal/core/ports"
	"github.com/kirillkom/corporate-action-intel/internal/observability/metrics"
)

const (
	serviceName       = "api"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	multipartMemLimit = 8 << 20
)

type Router struct {
	cfg       config.Config
	ingest    ports.DocumentIngestor
	docs      ports.DocumentReader
	results   ports.ResultReader
	extractor ports.DocumentExtractor
	metrics   *metrics.HTTPServerMetrics
}

type Option func(*Router)

// WithMetrics records request metrics and exposes them on /metrics.
func WithMetrics(m *metrics.HTTPServerMetrics) Option {
	return func(rt *Router) { rt.metrics = m }
}

func NewRouter(
	cfg config.Config,
	ingest ports.DocumentIngestor,
	docs ports.DocumentReader,
	results ports.ResultReader,
	extractor ports.DocumentExtractor,
	opts ...Option,
) *Router {
	rt := &Router{
		cfg:       cfg,
		ingest:    ingest,
		docs:      docs,
		results:   results,
		extractor: extractor,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Handler assembles the mux and the middleware chain. It fails only when the
// embedded OpenAPI document is invalid.
func (rt *Router) Handler() (http.Handler, error) {
	doc, err := OpenAPIDocument()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, doc)
	})
	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/documents/{document_id}", rt.getDocument)
	mux.HandleFunc("GET /v1/documents/{document_id}/result", rt.getResult)
	mux.HandleFunc("GET /v1/documents/{document_id}/raw", rt.getRawExtraction)
	mux.HandleFunc("GET /v1/documents/{document_id}/summary", rt.getSummary)
	mux.HandleFunc("GET /v1/documents/{document_id}/download", rt.downloadDocument)
	mux.HandleFunc("GET /v1/results/export.xlsx", rt.exportResults)
	mux.HandleFunc("POST /v1/extract", rt.extractDocument)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.APIOpenAPIValidate {
		handler, err = openAPIValidationMiddleware(doc, handler)
		if err != nil {
			return nil, err
		}
	}
	handler = bearerAuthMiddleware(rt.cfg.APIKey, handler)

	var onReject func(string)
	if rt.metrics != nil {
		onReject = func(reason string) { rt.metrics.RecordRejected(serviceName, reason) }
	}
	traffic := newTrafficControl(
		rt.cfg.APIRateLimitRPS,
		rt.cfg.APIRateLimitBurst,
		rt.cfg.APIMaxInFlight,
		time.Duration(rt.cfg.APIInFlightWaitMS)*time.Millisecond,
		onReject,
	)
	handler = traffic.backpressure(handler)
	handler = traffic.rateLimit(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler, nil
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	filename, mimeType, data, ok := rt.readUpload(w, r)
	if !ok {
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, int64(len(data)))
	}

	doc, err := rt.ingest.Upload(r.Context(), filename, mimeType, bytes.NewReader(data))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) extractDocument(w http.ResponseWriter, r *http.Request) {
	if rt.extractor == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "synchronous extraction is disabled"})
		return
	}
	filename, _, data, ok := rt.readUpload(w, r)
	if !ok {
		return
	}

	extraction, err := rt.extractor.ExtractDocument(r.Context(), filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("extract_sync",
		"request_id", requestIDFromContext(r.Context()),
		"filename", filename,
		"document_type", extraction.Result.DocumentType,
		"overall_confidence", extraction.Result.OverallConfidence,
		"warnings", len(extraction.Result.Warnings),
	)
	writeJSON(w, http.StatusOK, extraction)
}

// readUpload pulls the multipart "file" field into memory, bounded by
// MAX_UPLOAD_BYTES. On failure the response has already been written.
func (rt *Router) readUpload(w http.ResponseWriter, r *http.Request) (string, string, []byte, bool) {
	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemLimit); err != nil {
		if status := mapErrorToHTTPStatus(err); status == http.StatusRequestEntityTooLarge {
			writeJSON(w, status, map[string]string{"error": "upload exceeds size limit"})
			return "", "", nil, false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return "", "", nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return "", "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("read upload: %w", err))
		return "", "", nil, false
	}
	mimeType := header.Header.Get("Content-Type")
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}
	return header.Filename, mimeType, data, true
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	docs, err := rt.docs.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.docs.GetByID(r.Context(), r.PathValue("document_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) getResult(w http.ResponseWriter, r *http.Request) {
	result, err := rt.results.GetResult(r.Context(), r.PathValue("document_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) getRawExtraction(w http.ResponseWriter, r *http.Request) {
	raw, err := rt.results.GetRawExtraction(r.Context(), r.PathValue("document_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func (rt *Router) getSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := rt.results.GetSummary(r.Context(), r.PathValue("document_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (rt *Router) downloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, body, err := rt.results.OpenSource(r.Context(), r.PathValue("document_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()

	contentType := doc.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("download_interrupted", "document_id", doc.ID, "error", err)
	}
}

func (rt *Router) exportResults(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	// Buffer so a failed export still gets a JSON error instead of a truncated file.
	var buf bytes.Buffer
	if err := rt.results.ExportResults(r.Context(), limit, &buf); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="kpi_results.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "parse limit", fmt.Errorf("limit must be a positive integer, got %q", raw)))
		return 0, false
	}
	return limit, true
}
