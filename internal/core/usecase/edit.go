package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/extract"
	"github.com/kirillkom/document-intake/internal/core/fields"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

type EditFieldUseCase struct {
	repo ports.DocumentRepository
}

func NewEditFieldUseCase(repo ports.DocumentRepository) *EditFieldUseCase {
	return &EditFieldUseCase{repo: repo}
}

// UpdateField sanitizes value into key and recomputes the document's validation state.
// Keys not yet in the field map are accepted when the document type's rule set defines them.
func (uc *EditFieldUseCase) UpdateField(ctx context.Context, documentID, key, value string) (*domain.Document, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update field", errors.New("field key is required"))
	}

	unlock := documentLocks.lock(documentID)
	defer unlock()

	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Stage != domain.StageReady {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"update field",
			fmt.Errorf("document %s is %s", documentID, doc.Stage),
		)
	}
	if _, ok := doc.Fields[key]; !ok && !extract.KnownField(doc.Type, key) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"update field",
			fmt.Errorf("unknown field %q for %s", key, doc.Type),
		)
	}

	fields.Set(doc, key, value)
	doc.UpdatedAt = time.Now().UTC()
	if err := uc.repo.SaveFields(ctx, doc); err != nil {
		return nil, fmt.Errorf("save fields: %w", err)
	}
	return doc, nil
}

// documentLocks serializes writes to a document's field map within one process.
// Field edits and batch revalidation both take it.
var documentLocks keyedMutex

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
