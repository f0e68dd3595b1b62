package event

import (
	"context"
	"sync/atomic"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// IdempotencyStats counts what the handler did with deliveries
type IdempotencyStats struct {
	Processed  int64 `json:"processed"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
}

// DuplicateObserver is notified of each skipped delivery
type DuplicateObserver func(ctx context.Context, handler, eventType string)

// IdempotentHandler drops redeliveries of an event it has already seen.
// Keys are "<name>:<event id>" so two handlers can share one store.
type IdempotentHandler struct {
	name     string
	handler  shared.EventHandler
	store    shared.IdempotencyStore
	config   shared.IdempotencyConfig
	logger   *zap.Logger
	observer DuplicateObserver

	processed  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides TTL and the enabled flag
func WithIdempotencyConfig(cfg shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = cfg
	}
}

// WithDuplicateObserver registers a callback for skipped deliveries
func WithDuplicateObserver(fn DuplicateObserver) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.observer = fn
	}
}

// NewIdempotentHandler wraps handler under name
func NewIdempotentHandler(
	name string,
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	log *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &IdempotentHandler{
		name:    name,
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  log.With(zap.String("handler", name)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle runs the wrapped handler at most once per event id within the TTL.
// A store failure lets the event through: downstream handlers are
// idempotent on their own keys, a dropped event is not recoverable.
// A handler failure keeps the mark; the key becomes available again after the TTL.
func (h *IdempotentHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, evt)
	}

	log := logger.WithLogger(ctx, h.logger).With(
		zap.String("event_id", evt.EventID().String()),
		zap.String("event_type", evt.EventType()),
	)

	isNew, err := h.store.MarkProcessed(ctx, h.key(evt), h.config.TTL)
	switch {
	case err != nil:
		log.Warn("Idempotency check failed, processing anyway", zap.Error(err))
	case !isNew:
		h.duplicates.Add(1)
		if h.observer != nil {
			h.observer(ctx, h.name, evt.EventType())
		}
		log.Debug("Duplicate event skipped")
		return nil
	}

	if err := h.handler.Handle(ctx, evt); err != nil {
		h.failed.Add(1)
		return err
	}
	h.processed.Add(1)
	return nil
}

// Stats returns a snapshot of the counters
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		Processed:  h.processed.Load(),
		Duplicates: h.duplicates.Load(),
		Failed:     h.failed.Load(),
	}
}

func (h *IdempotentHandler) key(evt shared.DomainEvent) string {
	return h.name + ":" + evt.EventID().String()
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
