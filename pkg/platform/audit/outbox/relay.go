// Package outbox drains committed audit events from the outbox table to an
// external sink.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Entry is one committed, possibly unpublished, audit event.
type Entry struct {
	Seq         int64
	ID          string
	EventType   string
	AggregateID string
	Payload     []byte
	CreatedAt   time.Time
}

// Source reads pending entries and records delivery.
type Source interface {
	FetchPending(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, seqs []int64, at time.Time) error
}

// Sink delivers entries. Publish returns the number of leading entries that
// were delivered before the first failure.
type Sink interface {
	Publish(ctx context.Context, entries []Entry) (int, error)
}

// Metrics counts relay outcomes.
type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
}

// NewMetrics registers relay metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounter(prometheus.CounterOpts{
			Name: "recordshare_audit_outbox_published_total",
			Help: "Audit events delivered from the outbox to the sink",
		}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Name: "recordshare_audit_outbox_failures_total",
			Help: "Outbox relay passes that ended in an error",
		}),
	}
}

// Relay polls the source and forwards entries to the sink. Entries are marked
// published only after the sink acknowledged them, so delivery is
// at-least-once.
type Relay struct {
	source   Source
	sink     Sink
	interval time.Duration
	batch    int
	logger   *slog.Logger
	metrics  *Metrics
	clock    func() time.Time
}

// Option configures the Relay.
type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func WithClock(clock func() time.Time) Option {
	return func(r *Relay) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewRelay builds a relay with a 1s interval and batches of 100.
func NewRelay(source Source, sink Sink, opts ...Option) *Relay {
	r := &Relay{
		source:   source,
		sink:     sink,
		interval: time.Second,
		batch:    100,
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled. Errors are logged and retried on the
// next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.WarnContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

// RunOnce relays a single batch and returns how many entries were delivered.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	entries, err := r.source.FetchPending(ctx, r.batch)
	if err != nil {
		r.fail()
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	delivered, pubErr := r.sink.Publish(ctx, entries)
	if delivered > 0 {
		seqs := make([]int64, 0, delivered)
		for _, e := range entries[:delivered] {
			seqs = append(seqs, e.Seq)
		}
		if err := r.source.MarkPublished(ctx, seqs, r.clock()); err != nil {
			r.fail()
			return 0, err
		}
		if r.metrics != nil {
			r.metrics.Published.Add(float64(delivered))
		}
	}
	if pubErr != nil {
		r.fail()
		return delivered, pubErr
	}
	return delivered, nil
}

func (r *Relay) fail() {
	if r.metrics != nil {
		r.metrics.Failures.Inc()
	}
}
