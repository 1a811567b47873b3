// Package inline delivers ingestion events to the subscribed handler inside Publish.
// It backs single-process deployments and the CLI, where no broker is available.
package inline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrNoSubscriber = errors.New("inline queue has no subscriber")

type Queue struct {
	mu      sync.RWMutex
	handler func(context.Context, string) error
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{logger: logger}
}

// PublishDocumentIngested runs the handler synchronously. Handler errors are
// logged, not returned: the processor records failures on the document itself.
func (q *Queue) PublishDocumentIngested(ctx context.Context, documentID string) error {
	q.mu.RLock()
	handler := q.handler
	q.mu.RUnlock()
	if handler == nil {
		return ErrNoSubscriber
	}

	if err := handler(ctx, documentID); err != nil {
		q.logger.Warn("inline_handler_failed", "document_id", documentID, "error", err)
	}
	return nil
}

// SubscribeDocumentIngested registers handler and returns immediately.
func (q *Queue) SubscribeDocumentIngested(_ context.Context, handler func(context.Context, string) error) error {
	if handler == nil {
		return errors.New("inline queue: nil handler")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
	return nil
}
