package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

const (
	DefaultBatchMaxFiles    = 4
	DefaultBatchConcurrency = 4
)

type SubmitBatchUseCase struct {
	repo        ports.DocumentRepository
	storage     ports.ObjectStorage
	queue       ports.MessageQueue
	review      ports.BatchReader
	maxFiles    int
	concurrency int
}

func NewSubmitBatchUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	review ports.BatchReader,
	maxFiles, concurrency int,
) *SubmitBatchUseCase {
	if maxFiles <= 0 {
		maxFiles = DefaultBatchMaxFiles
	}
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	return &SubmitBatchUseCase{
		repo:        repo,
		storage:     storage,
		queue:       queue,
		review:      review,
		maxFiles:    maxFiles,
		concurrency: concurrency,
	}
}

// Submit stores every file, records it as uploaded and enqueues it for analysis.
// The returned report reflects whatever the queue finished synchronously; with an
// asynchronous queue the documents show up as pending. A file that cannot be stored
// or enqueued is recorded as a failed document and reported alongside the others;
// Submit errors only when no file of the batch could be recorded.
func (uc *SubmitBatchUseCase) Submit(ctx context.Context, files []domain.UploadFile) (*domain.BatchReport, error) {
	if len(files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit batch", errors.New("batch has no files"))
	}
	if len(files) > uc.maxFiles {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"submit batch",
			fmt.Errorf("batch has %d files, limit is %d", len(files), uc.maxFiles),
		)
	}

	batchID := uuid.NewString()
	unrecorded := make([]error, len(files))
	var g errgroup.Group
	g.SetLimit(uc.concurrency)
	for i, file := range files {
		g.Go(func() error {
			unrecorded[i] = uc.upload(ctx, batchID, i, file)
			return nil
		})
	}
	_ = g.Wait()

	var lost []domain.BatchFailure
	for i, err := range unrecorded {
		if err != nil {
			lost = append(lost, domain.BatchFailure{Filename: files[i].Filename, Error: err.Error()})
		}
	}
	if len(lost) == len(files) {
		return nil, errors.Join(unrecorded...)
	}

	report, err := uc.review.RevalidateBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	report.Failures = append(report.Failures, lost...)
	report.Summary.Failed = len(report.Failures)
	return report, nil
}

// upload returns an error only when the file could not be recorded in the
// repository; storage and queue failures end up on the document itself.
func (uc *SubmitBatchUseCase) upload(ctx context.Context, batchID string, position int, file domain.UploadFile) error {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(file.Filename))
	now := time.Now().UTC()

	doc := &domain.Document{
		ID:          id,
		BatchID:     batchID,
		Position:    position,
		Filename:    file.Filename,
		MimeType:    file.MimeType,
		StoragePath: storageKey,
		Type:        domain.TypeUnknown,
		Fields:      map[string]domain.FieldEntry{},
		Status:      domain.StatusNeedsReview,
		FieldErrors: []string{},
		Stage:       domain.StageUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(file.Data)); err != nil {
		doc.StoragePath = ""
		doc.Stage = domain.StageFailed
		doc.Error = fmt.Sprintf("save to object storage: %v", err)
		if createErr := uc.repo.Create(ctx, doc); createErr != nil {
			return fmt.Errorf("save %q to object storage: %w", file.Filename, errors.Join(err, createErr))
		}
		return nil
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		publishErr := fmt.Errorf("publish ingestion event: %w", err)
		if markErr := uc.repo.UpdateStage(context.WithoutCancel(ctx), doc.ID, domain.StageFailed, publishErr.Error()); markErr != nil {
			return fmt.Errorf("%w: mark failed: %v", publishErr, markErr)
		}
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "document.bin"
	}
	return base
}
