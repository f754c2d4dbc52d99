package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/graffiticode/graffiticode/engine/dao"
	"github.com/graffiticode/graffiticode/engine/infra/monitoring/metrics"
	"github.com/graffiticode/graffiticode/engine/task"
	"github.com/graffiticode/graffiticode/engine/taskid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Operation outcomes recorded on the operations counter.
const (
	OutcomeOK          = "ok"
	OutcomeDecodeError = "decode_error"
	OutcomeNotFound    = "not_found"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
)

// DAOMetrics holds the instruments recorded around DAO calls.
type DAOMetrics struct {
	operations metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewDAOMetrics creates the DAO instruments on meter.
func NewDAOMetrics(meter metric.Meter) (*DAOMetrics, error) {
	operations, err := meter.Int64Counter(
		"graffiticode_dao_operations_total",
		metric.WithDescription("Task storage operations by backend, operation and outcome"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"graffiticode_dao_operation_duration_seconds",
		metric.WithDescription("Task storage operation latency"),
		metric.WithExplicitBucketBoundaries(metrics.DAODurationBuckets...),
	)
	if err != nil {
		return nil, err
	}
	return &DAOMetrics{operations: operations, duration: duration}, nil
}

// Outcome classifies err for the operations counter.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case taskid.IsDecodeIDError(err):
		return OutcomeDecodeError
	case task.IsNotFound(err):
		return OutcomeNotFound
	case task.IsValidationError(err), errors.Is(err, taskid.ErrEmptyRefs):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

func (m *DAOMetrics) observe(ctx context.Context, kind dao.Kind, op string, start time.Time, err error) {
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind.String()),
		attribute.String("op", op),
		attribute.String("outcome", Outcome(err)),
	))
	m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("kind", kind.String()),
		attribute.String("op", op),
	))
}

type instrumentedDAO struct {
	next    dao.DAO
	kind    dao.Kind
	metrics *DAOMetrics
}

// Instrument wraps d so every call is counted and timed.
func Instrument(kind dao.Kind, d dao.DAO, m *DAOMetrics) dao.DAO {
	if m == nil {
		return d
	}
	return &instrumentedDAO{next: d, kind: kind, metrics: m}
}

// Decorator adapts Instrument for dao.WithDecorator.
func (m *DAOMetrics) Decorator() dao.Decorator {
	return func(kind dao.Kind, d dao.DAO) dao.DAO {
		return Instrument(kind, d, m)
	}
}

func (i *instrumentedDAO) Create(ctx context.Context, req *dao.CreateRequest) (string, error) {
	start := time.Now()
	id, err := i.next.Create(ctx, req)
	i.metrics.observe(ctx, i.kind, "create", start, err)
	return id, err
}

func (i *instrumentedDAO) Get(ctx context.Context, req *dao.GetRequest) ([]*task.Task, error) {
	start := time.Now()
	tasks, err := i.next.Get(ctx, req)
	i.metrics.observe(ctx, i.kind, "get", start, err)
	return tasks, err
}

func (i *instrumentedDAO) AppendIDs(ctx context.Context, id string, others ...string) (string, error) {
	start := time.Now()
	out, err := i.next.AppendIDs(ctx, id, others...)
	i.metrics.observe(ctx, i.kind, "append_ids", start, err)
	return out, err
}

func (i *instrumentedDAO) Ping(ctx context.Context) error {
	return i.next.Ping(ctx)
}

func (i *instrumentedDAO) Close(ctx context.Context) error {
	return i.next.Close(ctx)
}
