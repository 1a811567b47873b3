package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/form"
)

// BatchSubmitter is the inbound contract for batch upload orchestration.
type BatchSubmitter interface {
	Submit(ctx context.Context, files []domain.UploadFile) (*domain.BatchReport, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetForm(ctx context.Context, id string) (*form.View, error)
}

// BatchReader reads and revalidates batch results.
type BatchReader interface {
	GetBatch(ctx context.Context, batchID string) (*domain.BatchReport, error)
	RevalidateBatch(ctx context.Context, batchID string) (*domain.BatchReport, error)
}

// FieldEditor applies a reviewer edit to a single field.
type FieldEditor interface {
	UpdateField(ctx context.Context, documentID, key, value string) (*domain.Document, error)
}

// BatchExporter writes the batch workbook.
type BatchExporter interface {
	ExportBatch(ctx context.Context, batchID string, w io.Writer) (domain.BatchSummary, error)
}
