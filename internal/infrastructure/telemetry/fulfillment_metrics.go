package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// FulfillmentMetrics records business counters for orders, the ledger,
// shipments and withdrawals. A nil *FulfillmentMetrics records nothing.
type FulfillmentMetrics struct {
	transitions   metric.Int64Counter
	distributions metric.Int64Counter
	ledgerTxs     metric.Int64Counter
	ledgerAmount  metric.Int64Counter
	dispatches    metric.Int64Counter
	dispatchTime  metric.Float64Histogram
	withdrawals   metric.Int64Counter
}

// CarrierDurationBuckets are histogram bounds for carrier calls, in seconds
var CarrierDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// NewFulfillmentMetrics creates the instruments on meter
func NewFulfillmentMetrics(meter metric.Meter) (*FulfillmentMetrics, error) {
	m := &FulfillmentMetrics{}
	var err error

	if m.transitions, err = meter.Int64Counter("fulfillment.order.transitions",
		metric.WithDescription("Order status transitions"), metric.WithUnit("{transition}")); err != nil {
		return nil, fmt.Errorf("create order transition counter: %w", err)
	}
	if m.distributions, err = meter.Int64Counter("fulfillment.profit.distributions",
		metric.WithDescription("Profit distribution attempts by result"), metric.WithUnit("{order}")); err != nil {
		return nil, fmt.Errorf("create distribution counter: %w", err)
	}
	if m.ledgerTxs, err = meter.Int64Counter("fulfillment.ledger.transactions",
		metric.WithDescription("Ledger transactions recorded"), metric.WithUnit("{transaction}")); err != nil {
		return nil, fmt.Errorf("create ledger counter: %w", err)
	}
	if m.ledgerAmount, err = meter.Int64Counter("fulfillment.ledger.amount",
		metric.WithDescription("Ledger amount moved in minor units"), metric.WithUnit("{cent}")); err != nil {
		return nil, fmt.Errorf("create ledger amount counter: %w", err)
	}
	if m.dispatches, err = meter.Int64Counter("fulfillment.shipment.dispatches",
		metric.WithDescription("Shipment dispatch attempts by carrier and result"), metric.WithUnit("{attempt}")); err != nil {
		return nil, fmt.Errorf("create dispatch counter: %w", err)
	}
	if m.dispatchTime, err = meter.Float64Histogram("fulfillment.shipment.carrier_duration",
		metric.WithDescription("Carrier call latency"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(CarrierDurationBuckets...)); err != nil {
		return nil, fmt.Errorf("create carrier histogram: %w", err)
	}
	if m.withdrawals, err = meter.Int64Counter("fulfillment.withdrawals",
		metric.WithDescription("Withdrawal requests and decisions"), metric.WithUnit("{withdrawal}")); err != nil {
		return nil, fmt.Errorf("create withdrawal counter: %w", err)
	}
	return m, nil
}

// RecordTransition counts one order status change
func (m *FulfillmentMetrics) RecordTransition(ctx context.Context, action, from, to string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(AttrAction.String(action), AttrFromStatus.String(from), AttrToStatus.String(to)))
}

// RecordDistribution counts one profit distribution outcome (distributed, skipped, failed)
func (m *FulfillmentMetrics) RecordDistribution(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.distributions.Add(ctx, 1, metric.WithAttributes(AttrResult.String(result)))
}

// RecordLedgerTransaction counts a newly recorded transaction and its amount
func (m *FulfillmentMetrics) RecordLedgerTransaction(ctx context.Context, direction string, amount int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(AttrDirection.String(direction))
	m.ledgerTxs.Add(ctx, 1, attrs)
	if amount > 0 {
		m.ledgerAmount.Add(ctx, amount, attrs)
	}
}

// RecordDispatch counts a carrier call and its latency
func (m *FulfillmentMetrics) RecordDispatch(ctx context.Context, carrier, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrCarrier.String(carrier), AttrResult.String(result)}
	m.dispatches.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.dispatchTime.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordWithdrawal counts a withdrawal request or decision (requested, approved, rejected)
func (m *FulfillmentMetrics) RecordWithdrawal(ctx context.Context, decision string) {
	if m == nil {
		return
	}
	m.withdrawals.Add(ctx, 1, metric.WithAttributes(AttrDecision.String(decision)))
}
