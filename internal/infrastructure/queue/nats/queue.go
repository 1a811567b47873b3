package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/document-intake/internal/infrastructure/resilience"
)

const (
	defaultQueueGroup     = "intake-workers"
	defaultHandlerTimeout = 5 * time.Minute
)

type Queue struct {
	conn           *nats.Conn
	subject        string
	group          string
	handlerTimeout time.Duration
	executor       *resilience.Executor
	logger         *slog.Logger
	onDelivery     func(lag time.Duration)
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	QueueGroup           string
	HandlerTimeout       time.Duration
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
	// OnDelivery receives the publish-to-delivery lag of every event.
	OnDelivery func(lag time.Duration)
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	group := strings.TrimSpace(options.QueueGroup)
	if group == "" {
		group = defaultQueueGroup
	}
	handlerTimeout := options.HandlerTimeout
	if handlerTimeout <= 0 {
		handlerTimeout = defaultHandlerTimeout
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("document-intake"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		subject:        subject,
		group:          group,
		handlerTimeout: handlerTimeout,
		executor:       options.ResilienceExecutor,
		logger:         logger,
		onDelivery:     options.OnDelivery,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishDocumentIngested(ctx context.Context, documentID string) error {
	payload, err := encodeEvent(documentEvent{DocumentID: documentID, PublishedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeDocumentIngested blocks until ctx is cancelled, then drains the subscription.
func (q *Queue) SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.group, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		event, err := decodeEvent(msg.Data)
		if err != nil {
			q.logger.Error("nats_event_decode_failed", "subject", msg.Subject, "error", err)
			return
		}
		if q.onDelivery != nil && !event.PublishedAt.IsZero() {
			q.onDelivery(time.Since(event.PublishedAt))
		}

		handlerCtx, cancel := context.WithTimeout(ctx, q.handlerTimeout)
		defer cancel()
		if err := handler(handlerCtx, event.DocumentID); err != nil {
			q.logger.Error("worker_handler_failed", "document_id", event.DocumentID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

type documentEvent struct {
	DocumentID  string    `json:"document_id"`
	PublishedAt time.Time `json:"published_at"`
}

func encodeEvent(event documentEvent) ([]byte, error) {
	if strings.TrimSpace(event.DocumentID) == "" {
		return nil, errors.New("encode event: empty document id")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return payload, nil
}

// decodeEvent also accepts a bare document id body.
func decodeEvent(data []byte) (documentEvent, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return documentEvent{}, errors.New("empty event payload")
	}
	if !strings.HasPrefix(trimmed, "{") {
		return documentEvent{DocumentID: trimmed}, nil
	}

	var event documentEvent
	if err := json.Unmarshal([]byte(trimmed), &event); err != nil {
		return documentEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if strings.TrimSpace(event.DocumentID) == "" {
		return documentEvent{}, errors.New("event without document_id")
	}
	return event, nil
}
