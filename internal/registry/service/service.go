package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"recordshare/internal/registry/metrics"
	"recordshare/internal/registry/models"
	id "recordshare/pkg/domain"
	dErrors "recordshare/pkg/domain-errors"
	audit "recordshare/pkg/platform/audit"
	"recordshare/pkg/platform/sentinel"
	"recordshare/pkg/requestcontext"
)

var tracer = otel.Tracer("recordshare/internal/registry/service")

// Service owns the three registry aggregates: the identity roster, the
// per-owner document ledgers and the owner-to-consumer access matrix. It
// enforces the role preconditions and is the only writer of the store.
type Service struct {
	store   Store
	tx      TxRunner
	roles   RoleCache
	audit   AuditPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics

	roleLookups singleflight.Group
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditPublisher sets the audit sink. Mutation events are emitted inside
// the transaction, so a SQL-backed publisher commits or rolls back with the
// change it describes.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.audit = p
	}
}

// WithTxRunner replaces the default in-process ShardedTx. SQL stores need a
// runner that opens a database transaction.
func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// WithRoleCache enables read-through caching of registered roles.
func WithRoleCache(c RoleCache) Option {
	return func(s *Service) {
		s.roles = c
	}
}

// New creates a registry Service over store.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewShardedTx(0)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// observe starts a span for op and returns a finisher that records the
// outcome. Call as `defer done(&err)` from a function with a named error.
func (s *Service) observe(ctx context.Context, op string, caller id.Address) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "registry."+op, trace.WithSpanKind(trace.SpanKindInternal))
	if !caller.IsZero() {
		span.SetAttributes(attribute.String("registry.caller", caller.String()))
	}
	return ctx, func(errp *error) {
		outcome := "ok"
		if errp != nil && *errp != nil {
			outcome = string(dErrors.CodeOf(*errp))
			span.RecordError(*errp)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveOperation(op, outcome, start)
		}
	}
}

// roleOf resolves the stored role, consulting the cache first. Cache failures
// are logged and the store is authoritative.
func (s *Service) roleOf(ctx context.Context, address id.Address) (models.Role, error) {
	if s.roles != nil {
		role, ok, err := s.roles.Get(ctx, address)
		if err != nil {
			s.logger.WarnContext(ctx, "role cache read failed",
				"address", address.String(),
				"error", err,
			)
		} else {
			if s.metrics != nil {
				s.metrics.RecordRoleCache(ok)
			}
			if ok {
				return role, nil
			}
		}
	}

	identity, err := s.store.FindIdentity(ctx, address)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.RoleUnregistered, nil
	}
	if err != nil {
		return models.RoleUnregistered, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read identity")
	}
	s.cacheRole(ctx, address, identity.Role)
	return identity.Role, nil
}

func (s *Service) cacheRole(ctx context.Context, address id.Address, role models.Role) {
	if s.roles == nil || role == models.RoleUnregistered {
		return
	}
	if err := s.roles.Set(ctx, address, role); err != nil {
		s.logger.WarnContext(ctx, "role cache write failed",
			"address", address.String(),
			"error", err,
		)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

// now returns the request time truncated to the registry's precision.
func now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC().Truncate(models.TimestampPrecision)
}

// wrapTx keeps domain errors raised inside fn and maps context expiry to
// CodeTimeout. Anything else is an infrastructure failure.
func wrapTx(err error, msg string) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
