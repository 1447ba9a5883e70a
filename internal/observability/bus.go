package observability

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// AuditHandler processes AuditRecords published after a batch commits.
// Mirrors the teacher's eventbus.Handler shape (ID/Priority/Handle), swapped
// from hook events to decision audit records.
type AuditHandler interface {
	ID() string
	Priority() int
	Handle(ctx context.Context, rec *AuditRecord) error
}

// Bus dispatches AuditRecords to registered handlers in priority order
// (lowest first), the same fan-out shape as the teacher's eventbus.Bus,
// without the NATS JetStream publishing leg (AgentMem has no external
// message broker in its ambient stack).
type Bus struct {
	mu       sync.RWMutex
	handlers []AuditHandler
	logger   *slog.Logger
}

// NewBus creates an empty audit bus logging handler failures through logger.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

func (b *Bus) Register(h AuditHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Unregister(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, h := range b.handlers {
		if h.ID() == id {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Dispatch runs every registered handler against rec in priority order.
// A handler error is logged but never stops the chain, matching the
// teacher's "the bus is resilient" dispatch semantics.
func (b *Bus) Dispatch(ctx context.Context, rec *AuditRecord) {
	b.mu.RLock()
	handlers := make([]AuditHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	sort.SliceStable(handlers, func(i, j int) bool { return handlers[i].Priority() < handlers[j].Priority() })

	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			return
		}
		if err := h.Handle(ctx, rec); err != nil && b.logger != nil {
			b.logger.WarnContext(ctx, "audit handler failed", "handler", h.ID(), "error", err)
		}
	}
}
