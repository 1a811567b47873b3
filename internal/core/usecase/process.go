package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/fields"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo       ports.DocumentRepository
	storage    ports.ObjectStorage
	analyzer   ports.TextAnalyzer
	classifier ports.DocumentClassifier
	extractor  ports.FieldExtractor
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	analyzer ports.TextAnalyzer,
	classifier ports.DocumentClassifier,
	extractor ports.FieldExtractor,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:       repo,
		storage:    storage,
		analyzer:   analyzer,
		classifier: classifier,
		extractor:  extractor,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return err
	}
	// Redelivered events must not clobber reviewer edits.
	if doc.Stage == domain.StageReady {
		return nil
	}

	if err := uc.markStage(ctx, documentID, domain.StageProcessing, ""); err != nil {
		return fmt.Errorf("set stage=processing: %w", err)
	}

	if err := uc.processPipeline(ctx, doc); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed stage: %v", err, failErr)
		}
		return err
	}

	if err := uc.persistAnalysis(ctx, doc); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed stage: %v", err, failErr)
		}
		return err
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, doc *domain.Document) error {
	data, err := uc.readSource(ctx, doc)
	if err != nil {
		return err
	}

	text, err := uc.analyze(ctx, doc.Filename, data)
	if err != nil {
		return err
	}

	docType := uc.classifier.Classify(text)
	extracted := uc.extractor.Extract(docType, text)

	doc.RawText = text
	doc.Type = docType
	fields.Seed(doc, extracted)
	doc.Stage = domain.StageReady
	doc.Error = ""
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) readSource(ctx context.Context, doc *domain.Document) ([]byte, error) {
	rc, err := uc.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	return data, nil
}

func (uc *ProcessDocumentUseCase) analyze(ctx context.Context, filename string, data []byte) (string, error) {
	analysis, err := uc.analyzer.Analyze(ctx, filename, data)
	if err != nil {
		if isTypedError(err) {
			return "", fmt.Errorf("analyze document: %w", err)
		}
		return "", domain.WrapError(domain.ErrCollaborator, "analyze document", err)
	}
	return analysis.Content, nil
}

func (uc *ProcessDocumentUseCase) persistAnalysis(ctx context.Context, doc *domain.Document) error {
	if err := uc.repo.SaveAnalysis(ctx, doc); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) markStage(ctx context.Context, documentID string, stage domain.ProcessingStage, errMessage string) error {
	return uc.repo.UpdateStage(ctx, documentID, stage, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	// The document must leave "processing" even when the caller's context is gone.
	ctx = context.WithoutCancel(ctx)
	return uc.markStage(ctx, documentID, domain.StageFailed, processErr.Error())
}

func isTypedError(err error) bool {
	for _, kind := range []error{
		domain.ErrCollaborator,
		domain.ErrTemporary,
		domain.ErrUnsupportedFormat,
		domain.ErrInvalidInput,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
