package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(context.Background(), config.TelemetryConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Meter("test"))

	base := zap.NewNop()
	assert.Same(t, base, p.BridgeLogger(base))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}
	log := zap.New(core)

	log.Info("dropped")
	log.Warn("kept")
	log.With(zap.String("k", "v")).Error("kept too")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
	assert.Equal(t, "v", logs.All()[1].ContextMap()["k"])
}

func TestEndSpan(t *testing.T) {
	rec := installRecorder(t)

	_, span := StartServiceSpan(context.Background(), "withdrawal", "Approve", AttrAccountID.String("acc-1"))
	EndSpan(span, nil)

	_, span = StartServiceSpan(context.Background(), "shipping", "Dispatch")
	EndSpan(span, errors.New("carrier down"))

	spans := rec.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "withdrawal.Approve", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), AttrAccountID.String("acc-1"))

	assert.Equal(t, "shipping.Dispatch", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}

func TestFulfillmentMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })

	m, err := NewFulfillmentMetrics(mp.Meter("test"))
	require.NoError(t, err)

	m.RecordTransition(ctx, "deliver", "shipped", "delivered")
	m.RecordDistribution(ctx, "distributed")
	m.RecordDistribution(ctx, "distributed")
	m.RecordLedgerTransaction(ctx, "credit", 700)
	m.RecordDispatch(ctx, "acme", "confirmed", 120*time.Millisecond)
	m.RecordWithdrawal(ctx, "requested")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	sums := map[string]int64{}
	for _, md := range rm.ScopeMetrics[0].Metrics {
		if s, ok := md.Data.(metricdata.Sum[int64]); ok {
			for _, dp := range s.DataPoints {
				sums[md.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(1), sums["fulfillment.order.transitions"])
	assert.Equal(t, int64(2), sums["fulfillment.profit.distributions"])
	assert.Equal(t, int64(1), sums["fulfillment.ledger.transactions"])
	assert.Equal(t, int64(700), sums["fulfillment.ledger.amount"])
	assert.Equal(t, int64(1), sums["fulfillment.shipment.dispatches"])
	assert.Equal(t, int64(1), sums["fulfillment.withdrawals"])
}

func TestFulfillmentMetrics_NilSafe(t *testing.T) {
	var m *FulfillmentMetrics
	assert.NotPanics(t, func() {
		m.RecordTransition(context.Background(), "a", "b", "c")
		m.RecordDispatch(context.Background(), "acme", "failed", time.Second)
	})
}
