package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/extract"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

const (
	ColumnFilename = "Archivo"
	ColumnStatus   = "Estado Validación"
)

type ExportBatchUseCase struct {
	review ports.BatchReader
	writer ports.WorkbookWriter
}

func NewExportBatchUseCase(review ports.BatchReader, writer ports.WorkbookWriter) *ExportBatchUseCase {
	return &ExportBatchUseCase{review: review, writer: writer}
}

// ExportBatch writes one sheet per document type present in the batch's results.
// Export is not gated on validation; callers decide using the returned summary.
func (uc *ExportBatchUseCase) ExportBatch(ctx context.Context, batchID string, w io.Writer) (domain.BatchSummary, error) {
	report, err := uc.review.GetBatch(ctx, batchID)
	if err != nil {
		return domain.BatchSummary{}, err
	}

	sections := BuildExportSections(report.Documents)
	if err := uc.writer.WriteWorkbook(w, sections); err != nil {
		return domain.BatchSummary{}, fmt.Errorf("write workbook: %w", err)
	}
	return report.Summary, nil
}

// BuildExportSections groups documents by type in DocumentTypes order. Each section
// lists the filename, the validation label and every field key present in any of its
// documents: rule-set keys first in rule order, then extra keys sorted.
func BuildExportSections(docs []domain.Document) []domain.ExportSection {
	byType := make(map[domain.DocumentType][]domain.Document)
	for _, doc := range docs {
		byType[doc.Type] = append(byType[doc.Type], doc)
	}

	sections := make([]domain.ExportSection, 0, len(byType))
	for _, t := range domain.DocumentTypes {
		group := byType[t]
		if len(group) == 0 {
			continue
		}
		keys := exportKeys(t, group)

		section := domain.ExportSection{
			Type:    t,
			Title:   t.SheetTitle(),
			Columns: append([]string{ColumnFilename, ColumnStatus}, keys...),
			Rows:    make([][]string, 0, len(group)),
		}
		for _, doc := range group {
			row := make([]string, 0, len(section.Columns))
			row = append(row, doc.Filename, doc.Status.Label())
			for _, key := range keys {
				value, _ := doc.Value(key)
				row = append(row, value)
			}
			section.Rows = append(section.Rows, row)
		}
		sections = append(sections, section)
	}
	return sections
}

func exportKeys(t domain.DocumentType, docs []domain.Document) []string {
	present := make(map[string]struct{})
	for _, doc := range docs {
		for key := range doc.Fields {
			present[key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(present))
	for _, key := range extract.FieldKeys(t) {
		if _, ok := present[key]; ok {
			keys = append(keys, key)
			delete(present, key)
		}
	}
	extra := make([]string, 0, len(present))
	for key := range present {
		extra = append(extra, key)
	}
	sort.Strings(extra)
	return append(keys, extra...)
}
