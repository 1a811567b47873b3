package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByBatch(ctx context.Context, batchID string) ([]domain.Document, error)
	UpdateStage(ctx context.Context, id string, stage domain.ProcessingStage, errMessage string) error
	// SaveAnalysis stores the OCR text, type, fields and validation state and moves the document to ready.
	SaveAnalysis(ctx context.Context, doc *domain.Document) error
	// SaveFields stores the field map and validation state only.
	SaveFields(ctx context.Context, doc *domain.Document) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextAnalyzer is the OCR collaborator: file bytes in, full-text content out.
type TextAnalyzer interface {
	Analyze(ctx context.Context, filename string, data []byte) (domain.Analysis, error)
}

// WorkbookWriter renders export sections as a spreadsheet.
type WorkbookWriter interface {
	WriteWorkbook(w io.Writer, sections []domain.ExportSection) error
}
