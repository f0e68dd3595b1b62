package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_Handle(t *testing.T) {
	ctx := context.Background()
	cfg := shared.IdempotencyConfig{TTL: time.Hour, Enabled: true}

	t.Run("first delivery runs, redelivery is skipped", func(t *testing.T) {
		store := new(mockIdempotencyStore)
		inner := &recordingHandler{types: []string{"A"}}
		evt := newTestEvent("A")
		key := "profit:" + evt.EventID().String()
		store.On("MarkProcessed", ctx, key, time.Hour).Return(true, nil).Once()
		store.On("MarkProcessed", ctx, key, time.Hour).Return(false, nil).Once()

		var observed []string
		h := NewIdempotentHandler("profit", inner, store, zap.NewNop(),
			WithIdempotencyConfig(cfg),
			WithDuplicateObserver(func(_ context.Context, name, eventType string) {
				observed = append(observed, name+"/"+eventType)
			}),
		)

		require.NoError(t, h.Handle(ctx, evt))
		require.NoError(t, h.Handle(ctx, evt))

		assert.Equal(t, 1, inner.count())
		assert.Equal(t, []string{"profit/A"}, observed)
		assert.Equal(t, IdempotencyStats{Processed: 1, Duplicates: 1}, h.Stats())
		assert.Equal(t, []string{"A"}, h.EventTypes())
		store.AssertExpectations(t)
	})

	t.Run("handlers sharing a store do not collide", func(t *testing.T) {
		store := new(mockIdempotencyStore)
		evt := newTestEvent("A")
		store.On("MarkProcessed", ctx, "profit:"+evt.EventID().String(), time.Hour).Return(true, nil)
		store.On("MarkProcessed", ctx, "dispatch:"+evt.EventID().String(), time.Hour).Return(true, nil)

		first := &recordingHandler{}
		second := &recordingHandler{}
		require.NoError(t, NewIdempotentHandler("profit", first, store, nil, WithIdempotencyConfig(cfg)).Handle(ctx, evt))
		require.NoError(t, NewIdempotentHandler("dispatch", second, store, nil, WithIdempotencyConfig(cfg)).Handle(ctx, evt))

		assert.Equal(t, 1, first.count())
		assert.Equal(t, 1, second.count())
		store.AssertExpectations(t)
	})

	t.Run("store error lets the event through", func(t *testing.T) {
		store := new(mockIdempotencyStore)
		store.On("MarkProcessed", ctx, mock.Anything, time.Hour).Return(false, errors.New("redis down"))
		inner := &recordingHandler{}

		h := NewIdempotentHandler("profit", inner, store, zap.NewNop(), WithIdempotencyConfig(cfg))
		require.NoError(t, h.Handle(ctx, newTestEvent("A")))
		assert.Equal(t, 1, inner.count())
	})

	t.Run("handler error is returned and counted", func(t *testing.T) {
		store := new(mockIdempotencyStore)
		store.On("MarkProcessed", ctx, mock.Anything, time.Hour).Return(true, nil)
		inner := &recordingHandler{err: errors.New("ledger unavailable")}

		h := NewIdempotentHandler("profit", inner, store, zap.NewNop(), WithIdempotencyConfig(cfg))
		require.EqualError(t, h.Handle(ctx, newTestEvent("A")), "ledger unavailable")
		assert.Equal(t, int64(1), h.Stats().Failed)
	})

	t.Run("disabled bypasses the store", func(t *testing.T) {
		store := new(mockIdempotencyStore)
		inner := &recordingHandler{}

		h := NewIdempotentHandler("profit", inner, store, zap.NewNop(),
			WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))
		evt := newTestEvent("A")
		require.NoError(t, h.Handle(ctx, evt))
		require.NoError(t, h.Handle(ctx, evt))

		assert.Equal(t, 2, inner.count())
		store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	})
}
