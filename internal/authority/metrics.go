package authority

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/gridclash/arena/internal/authority"

type metrics struct {
	applied  metric.Int64Counter
	rejected metric.Int64Counter
	evicted  metric.Int64Counter
	alive    metric.Int64ObservableGauge
}

// newMetrics creates the host instruments on the global meter (no-op if
// OTel is not configured). aliveFn is polled by the gauge callback.
func newMetrics(aliveFn func() int) (*metrics, error) {
	m := otel.Meter(instrumentationName)
	out := &metrics{}

	var err error
	out.applied, err = m.Int64Counter(
		"arena.actions.applied",
		metric.WithDescription("Actions that changed game state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating applied counter: %w", err)
	}

	out.rejected, err = m.Int64Counter(
		"arena.actions.rejected",
		metric.WithDescription("Actions discarded by validation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	out.evicted, err = m.Int64Counter(
		"arena.endpoints.evicted",
		metric.WithDescription("Endpoints removed after a failed delivery"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating evicted counter: %w", err)
	}

	out.alive, err = m.Int64ObservableGauge(
		"arena.players.alive",
		metric.WithDescription("Players currently alive"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating alive gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(out.alive, int64(aliveFn()))
			return nil
		},
		out.alive,
	)
	if err != nil {
		return nil, fmt.Errorf("registering alive callback: %w", err)
	}

	return out, nil
}

func (m *metrics) action(ctx context.Context, action string, applied bool, reason string) {
	if applied {
		m.applied.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
		return
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("reason", reason),
	))
}

func (m *metrics) eviction(ctx context.Context, player bool) {
	m.evicted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("player", player)))
}
