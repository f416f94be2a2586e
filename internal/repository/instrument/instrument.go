// Package instrument decorates a repository.UserRepository with tracing spans and
// Prometheus metrics. The decorator is transparent: results and errors pass through unchanged.
package instrument

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"userapi/internal/model"
	"userapi/internal/repository"
)

const tracerName = "userapi/internal/repository"

// Metrics holds the collectors shared by every instrumented repository.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the repository collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "user_repository_operations_total",
				Help: "Total number of user repository operations by outcome.",
			},
			[]string{"backend", "operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "user_repository_operation_duration_seconds",
				Help:    "Latency of user repository operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		),
	}

	for _, c := range []prometheus.Collector{m.operations, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// UserRepository wraps another repository.UserRepository.
type UserRepository struct {
	next    repository.UserRepository
	backend string
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures the decorator.
type Option func(*UserRepository)

// WithTracerProvider overrides the globally registered tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *UserRepository) { r.tracer = tp.Tracer(tracerName) }
}

// New wraps next. backend labels metrics and spans (e.g. "memory", "postgres").
func New(next repository.UserRepository, backend string, m *Metrics, opts ...Option) *UserRepository {
	r := &UserRepository{
		next:    next,
		backend: backend,
		metrics: m,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ repository.UserRepository = (*UserRepository)(nil)

// Get delegates to the wrapped repository inside a span.
func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	ctx, done := r.observe(ctx, "get", id)
	u, err := r.next.Get(ctx, id)
	done(err)
	return u, err
}

// Create delegates to the wrapped repository inside a span.
func (r *UserRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	ctx, done := r.observe(ctx, "create", userID(user))
	u, err := r.next.Create(ctx, user)
	done(err)
	return u, err
}

// Update delegates to the wrapped repository inside a span.
func (r *UserRepository) Update(ctx context.Context, user *model.User) (*model.User, error) {
	ctx, done := r.observe(ctx, "update", userID(user))
	u, err := r.next.Update(ctx, user)
	done(err)
	return u, err
}

// Delete delegates to the wrapped repository inside a span.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	ctx, done := r.observe(ctx, "delete", id)
	out, err := r.next.Delete(ctx, id)
	done(err)
	return out, err
}

func userID(u *model.User) uuid.UUID {
	if u == nil {
		return uuid.Nil
	}
	return u.ID
}

func (r *UserRepository) observe(ctx context.Context, op string, id uuid.UUID) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "UserRepository."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("repository.backend", r.backend),
			attribute.String("user.id", id.String()),
		),
	)

	return ctx, func(err error) {
		outcome := repository.Kind(err)
		span.SetAttributes(attribute.String("repository.outcome", outcome))
		// Not-found and conflicts are ordinary answers; only faults mark the span as failed.
		if err != nil && (repository.IsFault(err) || outcome == repository.KindUnknown) {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()

		if r.metrics != nil {
			r.metrics.operations.WithLabelValues(r.backend, op, outcome).Inc()
			r.metrics.duration.WithLabelValues(r.backend, op).Observe(time.Since(start).Seconds())
		}
	}
}
