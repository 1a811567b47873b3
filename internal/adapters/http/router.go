package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/kirillkom/document-intake/internal/config"
	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/ports"
	"github.com/kirillkom/document-intake/internal/observability/metrics"
)

const (
	serviceName = "api"

	workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultUploadMaxBytes = 20 << 20
	maxJSONBodyBytes      = 1 << 20
)

// Services are the inbound use cases the API exposes.
type Services struct {
	Submitter ports.BatchSubmitter
	Batches   ports.BatchReader
	Documents ports.DocumentReader
	Editor    ports.FieldEditor
	Exporter  ports.BatchExporter
}

type Router struct {
	cfg      config.Config
	svc      Services
	metrics  *metrics.HTTPServerMetrics
	contract *apiContract
	logger   *slog.Logger
}

// NewRouter wires the API. httpMetrics may be nil, in which case /metrics is not served.
func NewRouter(cfg config.Config, svc Services, httpMetrics *metrics.HTTPServerMetrics, logger *slog.Logger) (*Router, error) {
	contract, err := loadAPIContract(context.Background())
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:      cfg,
		svc:      svc,
		metrics:  httpMetrics,
		contract: contract,
		logger:   logger,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPI)
	mux.HandleFunc("POST /v1/batches", rt.submitBatch)
	mux.HandleFunc("GET /v1/batches/{batch_id}", rt.getBatch)
	mux.HandleFunc("GET /v1/batches/{batch_id}/export", rt.exportBatch)
	mux.HandleFunc("GET /v1/documents/{document_id}", rt.getDocument)
	mux.HandleFunc("GET /v1/documents/{document_id}/form", rt.getDocumentForm)
	mux.HandleFunc("PUT /v1/documents/{document_id}/fields/{key}", rt.updateField)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = requestValidationMiddleware(rt.contract, mux)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = rateLimitMiddleware(rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, handler)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIDocument)
}

func (rt *Router) submitBatch(w http.ResponseWriter, r *http.Request) {
	files, err := rt.readUploads(w, r)
	if err != nil {
		rt.recordBatch(0, err)
		rt.writeError(w, r, "submit_batch", err)
		return
	}

	report, err := rt.svc.Submitter.Submit(r.Context(), files)
	rt.recordBatch(len(files), err)
	if err != nil {
		rt.writeError(w, r, "submit_batch", err)
		return
	}
	rt.logger.Info("batch_submitted",
		"request_id", requestIDFromContext(r.Context()),
		"batch_id", report.BatchID,
		"files", len(files),
	)
	writeJSON(w, http.StatusAccepted, report)
}

func (rt *Router) readUploads(w http.ResponseWriter, r *http.Request) ([]domain.UploadFile, error) {
	maxBytes := rt.cfg.UploadMaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultUploadMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse multipart form", err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read uploads", errors.New("multipart field 'files' is required"))
	}

	files := make([]domain.UploadFile, 0, len(headers))
	for _, header := range headers {
		data, err := readPart(header)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read upload "+header.Filename, err)
		}
		files = append(files, domain.UploadFile{
			Filename: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	return files, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func (rt *Router) getBatch(w http.ResponseWriter, r *http.Request) {
	report, err := rt.svc.Batches.GetBatch(r.Context(), r.PathValue("batch_id"))
	if err != nil {
		rt.writeError(w, r, "get_batch", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) exportBatch(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("batch_id")
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	var buf bytes.Buffer
	summary, err := rt.svc.Exporter.ExportBatch(r.Context(), batchID, &buf)
	if err != nil {
		rt.recordExport("error", 0)
		rt.writeError(w, r, "export_batch", err)
		return
	}
	if !summary.ExportReady && !force {
		rt.recordExport("not_ready", summary.Total)
		writeJSON(w, http.StatusConflict, exportConflictResponse{
			Error:   "batch is not ready for export: documents are pending or need review",
			Summary: summary,
		})
		return
	}

	rt.recordExport("success", summary.Total)
	w.Header().Set("Content-Type", workbookContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="batch-%s.xlsx"`, batchID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type exportConflictResponse struct {
	Error   string              `json:"error"`
	Summary domain.BatchSummary `json:"summary"`
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.svc.Documents.GetByID(r.Context(), r.PathValue("document_id"))
	if err != nil {
		rt.writeError(w, r, "get_document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) getDocumentForm(w http.ResponseWriter, r *http.Request) {
	view, err := rt.svc.Documents.GetForm(r.Context(), r.PathValue("document_id"))
	if err != nil {
		rt.writeError(w, r, "get_document_form", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type updateFieldRequest struct {
	Value *string `json:"value"`
}

func (rt *Router) updateField(w http.ResponseWriter, r *http.Request) {
	var req updateFieldRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	if req.Value == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "value is required"})
		return
	}

	doc, err := rt.svc.Editor.UpdateField(r.Context(), r.PathValue("document_id"), r.PathValue("key"), *req.Value)
	if err != nil {
		rt.recordFieldEdit("rejected")
		rt.writeError(w, r, "update_field", err)
		return
	}
	rt.recordFieldEdit(string(doc.Status))
	rt.logger.Info("field_updated",
		"request_id", requestIDFromContext(r.Context()),
		"document_id", doc.ID,
		"key", r.PathValue("key"),
		"status", doc.Status,
	)
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) recordBatch(files int, err error) {
	if rt.metrics != nil {
		rt.metrics.RecordBatch(serviceName, files, err)
	}
}

func (rt *Router) recordExport(outcome string, documents int) {
	if rt.metrics != nil {
		rt.metrics.RecordExport(serviceName, outcome, documents)
	}
}

func (rt *Router) recordFieldEdit(outcome string) {
	if rt.metrics != nil {
		rt.metrics.RecordFieldEdit(serviceName, outcome)
	}
}
