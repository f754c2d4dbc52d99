package monitoring

import (
	"context"
	"errors"
	"testing"

	"github.com/graffiticode/graffiticode/engine/dao"
	"github.com/graffiticode/graffiticode/engine/task"
	"github.com/graffiticode/graffiticode/engine/taskid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*DAOMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewDAOMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

// countFor sums the operations counter for the given attribute values.
func countFor(t *testing.T, reader *sdkmetric.ManualReader, kind, op, outcome string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	want := attribute.NewSet(
		attribute.String("kind", kind),
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	)
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "graffiticode_dao_operations_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				if dp.Attributes.Equals(&want) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestInstrument(t *testing.T) {
	ctx := context.Background()

	t.Run("Should count outcomes per operation", func(t *testing.T) {
		m, reader := newTestMetrics(t)
		d := Instrument(dao.KindMemory, dao.NewMemory(), m)
		id, err := d.Create(ctx, &dao.CreateRequest{Task: &task.Task{Lang: "0002", Code: "print 1.."}})
		require.NoError(t, err)
		_, err = d.Get(ctx, &dao.GetRequest{ID: id})
		require.NoError(t, err)
		_, err = d.Get(ctx, &dao.GetRequest{ID: "!!"})
		require.Error(t, err)
		_, err = d.Create(ctx, &dao.CreateRequest{Task: &task.Task{}})
		require.Error(t, err)
		_, err = d.AppendIDs(ctx, id, id)
		require.NoError(t, err)

		assert.Equal(t, int64(1), countFor(t, reader, "memory", "create", OutcomeOK))
		assert.Equal(t, int64(1), countFor(t, reader, "memory", "create", OutcomeInvalid))
		assert.Equal(t, int64(1), countFor(t, reader, "memory", "get", OutcomeOK))
		assert.Equal(t, int64(1), countFor(t, reader, "memory", "get", OutcomeDecodeError))
		assert.Equal(t, int64(1), countFor(t, reader, "memory", "append_ids", OutcomeOK))
	})

	t.Run("Should record hidden tasks as not found", func(t *testing.T) {
		m, reader := newTestMetrics(t)
		d := Instrument(dao.KindMemory, dao.NewMemory(), m)
		id, err := d.Create(ctx, &dao.CreateRequest{Task: &task.Task{Lang: "1", Code: "x"}, Auth: &task.Auth{UID: "a"}})
		require.NoError(t, err)
		_, err = d.Get(ctx, &dao.GetRequest{ID: id})
		require.Error(t, err)
		assert.Equal(t, int64(1), countFor(t, reader, "memory", "get", OutcomeNotFound))
	})

	t.Run("Should return the DAO unchanged without metrics", func(t *testing.T) {
		d := dao.NewMemory()
		assert.Same(t, d, Instrument(dao.KindMemory, d, nil))
	})

	t.Run("Should pass health checks through to the wrapped DAO", func(t *testing.T) {
		m, _ := newTestMetrics(t)
		d := Instrument(dao.KindMemory, dao.NewMemory(), m)
		assert.NoError(t, d.Ping(ctx))
	})
}

func TestOutcome(t *testing.T) {
	t.Run("Should classify errors", func(t *testing.T) {
		assert.Equal(t, OutcomeOK, Outcome(nil))
		assert.Equal(t, OutcomeDecodeError, Outcome(taskid.NewDecodeIDError("x", "bad", nil)))
		assert.Equal(t, OutcomeNotFound, Outcome(&task.NotFoundError{}))
		assert.Equal(t, OutcomeInvalid, Outcome(&task.ValidationError{Reason: "bad"}))
		assert.Equal(t, OutcomeError, Outcome(errors.New("boom")))
	})
}
