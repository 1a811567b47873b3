package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

func TestSubmitProcessesBatchInline(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	queue := &syncQueue{}
	process := NewProcessDocumentUseCase(
		repo, storage,
		&analyzerFake{content: "text"},
		classifierFake{docType: domain.TypeServiceContract},
		extractorFake{fields: map[string]string{"numero_contrato": "2024-118"}},
	)
	if err := queue.SubscribeDocumentIngested(context.Background(), process.ProcessByID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	uc := NewSubmitBatchUseCase(repo, storage, queue, NewReviewUseCase(repo), 4, 2)

	report, err := uc.Submit(context.Background(), []domain.UploadFile{
		{Filename: "contrato 1.pdf", MimeType: "application/pdf", Data: []byte("a")},
		{Filename: "contrato 2.pdf", MimeType: "application/pdf", Data: []byte("b")},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if report.BatchID == "" {
		t.Fatalf("expected batch id")
	}
	if len(report.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(report.Documents))
	}
	if report.Documents[0].Filename != "contrato 1.pdf" || report.Documents[1].Filename != "contrato 2.pdf" {
		t.Fatalf("expected submission order, got %s, %s", report.Documents[0].Filename, report.Documents[1].Filename)
	}
	if !report.Summary.ExportReady {
		t.Fatalf("expected export ready summary, got %+v", report.Summary)
	}
	if report.Summary.ByType[domain.TypeServiceContract] != 2 {
		t.Fatalf("expected 2 contracts, got %+v", report.Summary.ByType)
	}
	for key := range storage.objects {
		if !strings.Contains(key, "_contrato_") {
			t.Fatalf("expected sanitized storage key, got %s", key)
		}
	}
}

func TestSubmitAsyncQueueLeavesDocumentsPending(t *testing.T) {
	repo := newMemRepo()
	queue := &syncQueue{}
	uc := NewSubmitBatchUseCase(repo, newMemStorage(), queue, NewReviewUseCase(repo), 0, 0)

	report, err := uc.Submit(context.Background(), []domain.UploadFile{{Filename: "a.pdf", Data: []byte("a")}})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if report.Summary.Pending != 1 || report.Summary.ExportReady {
		t.Fatalf("expected one pending document, got %+v", report.Summary)
	}
	if len(queue.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(queue.published))
	}
}

func TestSubmitFailedDocumentIsReported(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	queue := &syncQueue{}
	process := NewProcessDocumentUseCase(
		repo, storage,
		&analyzerFake{err: errors.New("ocr offline")},
		classifierFake{docType: domain.TypeUnknown},
		extractorFake{},
	)
	_ = queue.SubscribeDocumentIngested(context.Background(), process.ProcessByID)
	uc := NewSubmitBatchUseCase(repo, storage, queue, NewReviewUseCase(repo), 4, 1)

	report, err := uc.Submit(context.Background(), []domain.UploadFile{{Filename: "scan.png", Data: []byte("x")}})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(report.Documents) != 0 || len(report.Failures) != 1 {
		t.Fatalf("expected one failure, got %+v", report)
	}
	if !strings.Contains(report.Failures[0].Error, "ocr offline") {
		t.Fatalf("unexpected failure message %q", report.Failures[0].Error)
	}
	if report.Summary.ExportReady {
		t.Fatalf("batch without results must not be export ready")
	}
}

func TestSubmitRejectsEmptyAndOversizedBatch(t *testing.T) {
	repo := newMemRepo()
	uc := NewSubmitBatchUseCase(repo, newMemStorage(), &syncQueue{}, NewReviewUseCase(repo), 2, 1)

	if _, err := uc.Submit(context.Background(), nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty batch, got %v", err)
	}

	files := make([]domain.UploadFile, 3)
	if _, err := uc.Submit(context.Background(), files); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for oversized batch, got %v", err)
	}
}

func TestSubmitQueueErrorMarksDocumentFailed(t *testing.T) {
	repo := newMemRepo()
	queue := &syncQueue{err: errors.New("queue down")}
	uc := NewSubmitBatchUseCase(repo, newMemStorage(), queue, NewReviewUseCase(repo), 4, 1)

	report, err := uc.Submit(context.Background(), []domain.UploadFile{{Filename: "a.pdf"}})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(report.Failures) != 1 || !strings.Contains(report.Failures[0].Error, "publish ingestion event") {
		t.Fatalf("expected publish failure reported, got %+v", report.Failures)
	}
	if report.Failures[0].DocumentID == "" {
		t.Fatalf("expected failure tied to the stored document")
	}
}

func TestSubmitSecondPublishFailureKeepsBatch(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	queue := &syncQueue{err: errors.New("queue down"), failOn: 2}
	uc := NewSubmitBatchUseCase(repo, storage, queue, NewReviewUseCase(repo), 4, 1)

	report, err := uc.Submit(context.Background(), []domain.UploadFile{
		{Filename: "a.pdf", Data: []byte("a")},
		{Filename: "b.pdf", Data: []byte("b")},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if report.BatchID == "" {
		t.Fatalf("expected batch id")
	}
	if report.Summary.Pending != 1 || report.Summary.Failed != 1 {
		t.Fatalf("expected one pending and one failed document, got %+v", report.Summary)
	}
	if report.Failures[0].Filename != "b.pdf" || !strings.Contains(report.Failures[0].Error, "queue down") {
		t.Fatalf("unexpected failure %+v", report.Failures[0])
	}

	stages := map[domain.ProcessingStage]int{}
	for _, doc := range repo.docs {
		if doc.BatchID != report.BatchID {
			t.Fatalf("document %s outside batch %s", doc.ID, report.BatchID)
		}
		stages[doc.Stage]++
	}
	if stages[domain.StageUploaded] != 1 || stages[domain.StageFailed] != 1 {
		t.Fatalf("expected one uploaded and one failed document, got %v", stages)
	}
	if len(storage.objects) != 2 || len(queue.published) != 1 {
		t.Fatalf("expected 2 objects and 1 published event, got %d and %d", len(storage.objects), len(queue.published))
	}
}

func TestSubmitStorageFailureRecordedAsFailedDocument(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	storage.saveErr = errors.New("disk full")
	queue := &syncQueue{}
	uc := NewSubmitBatchUseCase(repo, storage, queue, NewReviewUseCase(repo), 4, 2)

	report, err := uc.Submit(context.Background(), []domain.UploadFile{
		{Filename: "a.pdf", Data: []byte("a")},
		{Filename: "b.pdf", Data: []byte("b")},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if report.Summary.Failed != 2 || len(queue.published) != 0 {
		t.Fatalf("expected both files failed and nothing enqueued, got %+v", report.Summary)
	}
	for _, doc := range repo.docs {
		if doc.Stage != domain.StageFailed || doc.StoragePath != "" || !strings.Contains(doc.Error, "disk full") {
			t.Fatalf("unexpected stored document %+v", doc)
		}
	}
}

func TestSubmitRepositoryDownReturnsError(t *testing.T) {
	repo := newMemRepo()
	repo.createErr = errors.New("db down")
	uc := NewSubmitBatchUseCase(repo, newMemStorage(), &syncQueue{}, NewReviewUseCase(repo), 4, 2)

	_, err := uc.Submit(context.Background(), []domain.UploadFile{{Filename: "a.pdf"}, {Filename: "b.pdf"}})
	if err == nil || !strings.Contains(err.Error(), "create document metadata") {
		t.Fatalf("expected create error, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report 1.txt":         "report_1.txt",
		"../../etc/passwd":     "passwd",
		`C:\scans\cédula.pdf`:  "c_dula.pdf",
		"":                     "document.bin",
		"contrato (copia).pdf": "contrato__copia_.pdf",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
