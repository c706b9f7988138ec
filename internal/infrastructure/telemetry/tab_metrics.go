package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Mirror sync outcomes
const (
	MirrorOutcomeOK            = "ok"
	MirrorOutcomeFailed        = "failed"
	MirrorOutcomePriceMismatch = "price_mismatch"
)

// ActiveSessionCounter reports the number of open order sessions
type ActiveSessionCounter func(ctx context.Context) (int64, error)

// TabMetrics records room tab business metrics.
// A nil *TabMetrics is valid and records nothing.
type TabMetrics struct {
	logger   *zap.Logger
	currency string

	ordersCreated    *Counter
	orderAmount      *Histogram
	mirrorSyncs      *Counter
	mirrorDuration   *Histogram
	webhookDelivered *Counter
	webhookDuration  *Histogram
	sessionsClosed   *Counter
}

// TabMetricsConfig configures NewTabMetrics
type TabMetricsConfig struct {
	Meter          metric.Meter
	Logger         *zap.Logger
	Currency       string
	ActiveSessions ActiveSessionCounter // optional
}

// NewTabMetrics creates the room tab instruments
func NewTabMetrics(cfg TabMetricsConfig) (*TabMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &TabMetrics{logger: logger, currency: cfg.Currency}

	var err error
	if m.ordersCreated, err = NewCounter(cfg.Meter, "roomtab_orders_created_total",
		"Orders accepted into a room tab", "{orders}"); err != nil {
		return nil, err
	}
	if m.orderAmount, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "roomtab_order_amount",
		Description: "Order totals before tax in currency units",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if m.mirrorSyncs, err = NewCounter(cfg.Meter, "roomtab_mirror_sync_total",
		"POS shadow item synchronizations by mode and outcome", "{syncs}"); err != nil {
		return nil, err
	}
	if m.mirrorDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "roomtab_mirror_sync_duration_seconds",
		Description: "Duration of POS shadow item synchronization",
		Unit:        "s",
		Boundaries:  RemoteCallBuckets,
	}); err != nil {
		return nil, err
	}
	if m.webhookDelivered, err = NewCounter(cfg.Meter, "roomtab_webhook_deliveries_total",
		"Notification delivery attempts by destination and outcome", "{deliveries}"); err != nil {
		return nil, err
	}
	if m.webhookDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "roomtab_webhook_delivery_duration_seconds",
		Description: "Duration of one notification delivery",
		Unit:        "s",
		Boundaries:  RemoteCallBuckets,
	}); err != nil {
		return nil, err
	}
	if m.sessionsClosed, err = NewCounter(cfg.Meter, "roomtab_sessions_closed_total",
		"Order sessions closed by terminal status", "{sessions}"); err != nil {
		return nil, err
	}

	if cfg.ActiveSessions != nil {
		count := cfg.ActiveSessions
		if _, err := cfg.Meter.Int64ObservableGauge("roomtab_sessions_active",
			metric.WithDescription("Currently open order sessions"),
			metric.WithUnit("{sessions}"),
			metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
				n, err := count(ctx)
				if err != nil {
					logger.Warn("Failed to count active sessions", zap.Error(err))
					return nil
				}
				o.Observe(n)
				return nil
			}),
		); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// NewNoopTabMetrics returns metrics backed by the no-op meter
func NewNoopTabMetrics() *TabMetrics {
	m, _ := NewTabMetrics(TabMetricsConfig{Meter: noop.NewMeterProvider().Meter(TracerName)})
	return m
}

// RecordOrderCreated counts an accepted order and its total
func (m *TabMetrics) RecordOrderCreated(ctx context.Context, total decimal.Decimal) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc(ctx)
	m.orderAmount.Record(ctx, total.InexactFloat64(), AttrCurrency.String(m.currency))
}

// RecordMirrorSync counts one shadow item synchronization
func (m *TabMetrics) RecordMirrorSync(ctx context.Context, mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.mirrorSyncs.Inc(ctx, AttrMode.String(mode), AttrOutcome.String(outcome))
	m.mirrorDuration.RecordDuration(ctx, d, AttrMode.String(mode))
}

// RecordWebhookDelivery counts one delivery attempt
func (m *TabMetrics) RecordWebhookDelivery(ctx context.Context, destination, eventType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.webhookDelivered.Inc(ctx,
		AttrDestination.String(destination),
		AttrEventType.String(eventType),
		AttrOutcome.String(outcome),
	)
	m.webhookDuration.RecordDuration(ctx, d, AttrDestination.String(destination))
}

// RecordSessionClosed counts a closed session by its terminal status
func (m *TabMetrics) RecordSessionClosed(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.sessionsClosed.Inc(ctx, AttrStatus.String(status))
}
