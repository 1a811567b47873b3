package usecase

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/fields"
	"github.com/kirillkom/document-intake/internal/core/form"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

type ReviewUseCase struct {
	repo ports.DocumentRepository
}

func NewReviewUseCase(repo ports.DocumentRepository) *ReviewUseCase {
	return &ReviewUseCase{repo: repo}
}

func (uc *ReviewUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return uc.repo.GetByID(ctx, id)
}

// GetForm renders the review form for a document that finished analysis.
func (uc *ReviewUseCase) GetForm(ctx context.Context, id string) (*form.View, error) {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Stage != domain.StageReady {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"render form",
			fmt.Errorf("document %s is %s", id, doc.Stage),
		)
	}
	view := form.Render(doc)
	return &view, nil
}

func (uc *ReviewUseCase) GetBatch(ctx context.Context, batchID string) (*domain.BatchReport, error) {
	docs, err := uc.loadBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	report := domain.BuildBatchReport(batchID, docs)
	return &report, nil
}

// RevalidateBatch recomputes status and field errors of every ready document and
// persists the ones whose validation state changed. Each document is re-read under
// the same per-document lock UpdateField takes, so a concurrent edit is never
// overwritten by the listed snapshot.
func (uc *ReviewUseCase) RevalidateBatch(ctx context.Context, batchID string) (*domain.BatchReport, error) {
	docs, err := uc.loadBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	for i := range docs {
		if docs[i].Stage != domain.StageReady {
			continue
		}
		doc, err := uc.revalidate(ctx, docs[i].ID)
		if err != nil {
			return nil, err
		}
		docs[i] = *doc
	}

	report := domain.BuildBatchReport(batchID, docs)
	return &report, nil
}

func (uc *ReviewUseCase) revalidate(ctx context.Context, id string) (*domain.Document, error) {
	unlock := documentLocks.lock(id)
	defer unlock()

	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload document %s: %w", id, err)
	}
	if doc.Stage != domain.StageReady {
		return doc, nil
	}
	status := doc.Status
	errs := slices.Clone(doc.FieldErrors)
	fields.Revalidate(doc)
	if status == doc.Status && slices.Equal(errs, doc.FieldErrors) {
		return doc, nil
	}
	doc.UpdatedAt = time.Now().UTC()
	if err := uc.repo.SaveFields(ctx, doc); err != nil {
		return nil, fmt.Errorf("save revalidated document %s: %w", id, err)
	}
	return doc, nil
}

func (uc *ReviewUseCase) loadBatch(ctx context.Context, batchID string) ([]domain.Document, error) {
	docs, err := uc.repo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.WrapError(domain.ErrBatchNotFound, "load batch", fmt.Errorf("batch %s", batchID))
	}
	return docs, nil
}
