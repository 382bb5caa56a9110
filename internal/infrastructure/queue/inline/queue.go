// Package inline is the in-process MessageQueue used when INLINE_PROCESSING is
// enabled: an ingested document is processed by a bounded pool of goroutines in
// the API process instead of being published to NATS.
package inline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

var ErrClosed = errors.New("inline queue closed")

type Queue struct {
	jobs   chan string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func New(buffer int, logger *slog.Logger) *Queue {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{jobs: make(chan string, buffer), logger: logger}
}

// PublishDocumentIngested enqueues a document id. A full buffer is reported as
// a temporary failure rather than blocking the upload request.
func (q *Queue) PublishDocumentIngested(ctx context.Context, documentID string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return domain.WrapError(domain.ErrTemporary, "inline publish", ErrClosed)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.jobs <- documentID:
		return nil
	default:
		return domain.WrapError(domain.ErrTemporary, "inline publish", errors.New("queue buffer full"))
	}
}

// SubscribeDocumentIngested runs handler for every queued id until ctx is
// cancelled. Only one subscriber is expected.
func (q *Queue) SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case documentID, ok := <-q.jobs:
			if !ok {
				return nil
			}
			if err := handler(ctx, documentID); err != nil {
				q.logger.Error("inline_handler_failed", "document_id", documentID, "error", err)
			}
		}
	}
}

// Close stops accepting new ids; ids already buffered are still delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.jobs)
}
