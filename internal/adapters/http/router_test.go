package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/document-intake/internal/config"
	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/form"
	"github.com/kirillkom/document-intake/internal/observability/metrics"
)

type submitterFake struct {
	files []domain.UploadFile
	err   error
}

func (f *submitterFake) Submit(_ context.Context, files []domain.UploadFile) (*domain.BatchReport, error) {
	f.files = files
	if f.err != nil {
		return nil, f.err
	}
	report := domain.BuildBatchReport("batch-1", nil)
	report.Summary.Pending = len(files)
	return &report, nil
}

type batchesFake struct {
	err error
}

func (f batchesFake) GetBatch(_ context.Context, batchID string) (*domain.BatchReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	report := domain.BuildBatchReport(batchID, []domain.Document{readyDocument()})
	return &report, nil
}

func (f batchesFake) RevalidateBatch(ctx context.Context, batchID string) (*domain.BatchReport, error) {
	return f.GetBatch(ctx, batchID)
}

type documentsFake struct {
	err error
}

func (f documentsFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc := readyDocument()
	return &doc, nil
}

func (f documentsFake) GetForm(context.Context, string) (*form.View, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc := readyDocument()
	view := form.Render(&doc)
	return &view, nil
}

type editorFake struct {
	key, value string
	err        error
}

func (f *editorFake) UpdateField(_ context.Context, documentID, key, value string) (*domain.Document, error) {
	f.key, f.value = key, value
	if f.err != nil {
		return nil, f.err
	}
	doc := readyDocument()
	doc.ID = documentID
	doc.Fields[key] = domain.FieldEntry{Key: key, Value: value}
	return &doc, nil
}

type exporterFake struct {
	summary domain.BatchSummary
	err     error
}

func (f exporterFake) ExportBatch(_ context.Context, _ string, w io.Writer) (domain.BatchSummary, error) {
	if f.err != nil {
		return domain.BatchSummary{}, f.err
	}
	_, _ = w.Write([]byte("PK-workbook"))
	return f.summary, nil
}

func readyDocument() domain.Document {
	return domain.Document{
		ID:       "doc-1",
		BatchID:  "batch-1",
		Filename: "cedula.pdf",
		Type:     domain.TypeIDCard,
		Fields: map[string]domain.FieldEntry{
			"nombres": {Key: "nombres", Value: "JUAN"},
		},
		Status:      domain.StatusValidated,
		FieldErrors: []string{},
		Stage:       domain.StageReady,
	}
}

type routerFixture struct {
	submitter *submitterFake
	editor    *editorFake
	exporter  exporterFake
	batches   batchesFake
	documents documentsFake
}

func newFixture() *routerFixture {
	return &routerFixture{
		submitter: &submitterFake{},
		editor:    &editorFake{},
		exporter:  exporterFake{summary: domain.BatchSummary{Total: 1, ExportReady: true}},
	}
}

func (f *routerFixture) handler(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	router, err := NewRouter(cfg, Services{
		Submitter: f.submitter,
		Batches:   f.batches,
		Documents: f.documents,
		Editor:    f.editor,
		Exporter:  f.exporter,
	}, metrics.NewHTTPServerMetrics(serviceName), nil)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return router.Handler()
}

func newTestHandler(cfg config.Config) http.Handler {
	f := newFixture()
	router, err := NewRouter(cfg, Services{
		Submitter: f.submitter,
		Batches:   f.batches,
		Documents: f.documents,
		Editor:    f.editor,
		Exporter:  f.exporter,
	}, nil, nil)
	if err != nil {
		panic(err)
	}
	return router.Handler()
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v (body=%s)", err, res.Body.String())
	}
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newFixture().handler(t, config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id header")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	handler := newFixture().handler(t, config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if got := res.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestOpenAPIDocumentIsServed(t *testing.T) {
	handler := newFixture().handler(t, config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "/v1/batches/{batch_id}/export") {
		t.Fatalf("expected export path in served document")
	}
}

func TestSubmitBatchAcceptsMultipartFiles(t *testing.T) {
	f := newFixture()
	handler := f.handler(t, config.Config{})

	body, contentType := multipartBody(t, "files", map[string]string{
		"a.txt": "REPUBLICA DEL ECUADOR",
		"b.txt": "POLIZA",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/batches", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", res.Code, res.Body.String())
	}
	if len(f.submitter.files) != 2 {
		t.Fatalf("expected 2 files passed to submitter, got %d", len(f.submitter.files))
	}
	var report domain.BatchReport
	decodeBody(t, res, &report)
	if report.BatchID != "batch-1" || report.Summary.Pending != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestSubmitBatchRequiresFilesField(t *testing.T) {
	handler := newFixture().handler(t, config.Config{})

	body, contentType := multipartBody(t, "file", map[string]string{"a.txt": "x"})
	req := httptest.NewRequest(http.MethodPost, "/v1/batches", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestSubmitBatchRejectsOversizedUpload(t *testing.T) {
	handler := newFixture().handler(t, config.Config{UploadMaxBytes: 64})

	body, contentType := multipartBody(t, "files", map[string]string{"a.txt": strings.Repeat("x", 4096)})
	req := httptest.NewRequest(http.MethodPost, "/v1/batches", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestSubmitBatchMapsTooManyFilesTo400(t *testing.T) {
	f := newFixture()
	f.submitter.err = domain.WrapError(domain.ErrInvalidInput, "submit batch", errors.New("too many files"))
	handler := f.handler(t, config.Config{})

	body, contentType := multipartBody(t, "files", map[string]string{"a.txt": "x"})
	req := httptest.NewRequest(http.MethodPost, "/v1/batches", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetBatchReturns404ForUnknownBatch(t *testing.T) {
	f := newFixture()
	f.batches.err = domain.WrapError(domain.ErrBatchNotFound, "get batch", errors.New("id=missing"))
	handler := f.handler(t, config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/batches/missing", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetDocumentByIDReturns404ForNotFound(t *testing.T) {
	f := newFixture()
	f.documents.err = domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New("id=missing"))
	handler := f.handler(t, config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetDocumentForm(t *testing.T) {
	handler := newFixture().handler(t, config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/form", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var view form.View
	decodeBody(t, res, &view)
	if view.DocumentType != domain.TypeIDCard || len(view.Sections) == 0 {
		t.Fatalf("unexpected form view: %+v", view)
	}
}

func TestUpdateFieldPassesKeyAndValue(t *testing.T) {
	f := newFixture()
	handler := f.handler(t, config.Config{})

	req := httptest.NewRequest(http.MethodPut, "/v1/documents/doc-1/fields/apellidos", strings.NewReader(`{"value":"perez"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", res.Code, res.Body.String())
	}
	if f.editor.key != "apellidos" || f.editor.value != "perez" {
		t.Fatalf("unexpected edit call key=%q value=%q", f.editor.key, f.editor.value)
	}
}

func TestUpdateFieldRejectsNonStringValue(t *testing.T) {
	f := newFixture()
	handler := f.handler(t, config.Config{})

	req := httptest.NewRequest(http.MethodPut, "/v1/documents/doc-1/fields/apellidos", strings.NewReader(`{"value":5}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if f.editor.key != "" {
		t.Fatalf("editor must not be called for invalid body")
	}
}

func TestUpdateFieldMapsUnknownKeyTo400(t *testing.T) {
	f := newFixture()
	f.editor.err = domain.WrapError(domain.ErrInvalidInput, "update field", errors.New("unknown key"))
	handler := f.handler(t, config.Config{})

	req := httptest.NewRequest(http.MethodPut, "/v1/documents/doc-1/fields/bogus", strings.NewReader(`{"value":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestExportBatchStreamsWorkbook(t *testing.T) {
	handler := newFixture().handler(t, config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/batches/batch-1/export", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != workbookContentType {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(res.Header().Get("Content-Disposition"), "batch-batch-1.xlsx") {
		t.Fatalf("unexpected content disposition %q", res.Header().Get("Content-Disposition"))
	}
	if res.Body.String() != "PK-workbook" {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
}

func TestExportBatchReturns409UnlessForced(t *testing.T) {
	f := newFixture()
	f.exporter.summary = domain.BatchSummary{Total: 1, NeedsReview: 1}
	handler := f.handler(t, config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/batches/batch-1/export", nil))
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}

	forced := httptest.NewRecorder()
	handler.ServeHTTP(forced, httptest.NewRequest(http.MethodGet, "/v1/batches/batch-1/export?force=true", nil))
	if forced.Code != http.StatusOK {
		t.Fatalf("expected 200 with force, got %d", forced.Code)
	}
}

func TestExportBatchRejectsMalformedForceFlag(t *testing.T) {
	handler := newFixture().handler(t, config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/batches/batch-1/export?force=maybe", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	handler := newFixture().handler(t, config.Config{})

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1", nil))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(res.Body.String(), `path="/v1/documents/{document_id}"`) {
		t.Fatalf("expected normalized document path in metrics output")
	}
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.WrapError(domain.ErrInvalidInput, "op", errors.New("x")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrUnsupportedFormat, "op", errors.New("x")), http.StatusUnsupportedMediaType},
		{domain.WrapError(domain.ErrBatchNotFound, "op", errors.New("x")), http.StatusNotFound},
		{domain.WrapError(domain.ErrTemporary, "op", domain.WrapError(domain.ErrCollaborator, "ocr", errors.New("x"))), http.StatusServiceUnavailable},
		{domain.WrapError(domain.ErrCollaborator, "op", errors.New("x")), http.StatusBadGateway},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
			t.Fatalf("mapErrorToHTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
