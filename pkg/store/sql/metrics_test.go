package sql

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlflow/mlflow-go-backend/pkg/contract"
	"github.com/mlflow/mlflow-go-backend/pkg/entities"
	"github.com/mlflow/mlflow-go-backend/pkg/store/sql/model"
)

func latestMetricFor(t *testing.T, s *Store, runID, key string) model.LatestMetric {
	t.Helper()

	var latest model.LatestMetric
	require.NoError(t, s.db.
		Where("run_uuid = ?", runID).
		Where("key = ?", key).
		First(&latest).Error)

	return latest
}

func permutations(metrics []entities.Metric) [][]entities.Metric {
	if len(metrics) <= 1 {
		return [][]entities.Metric{metrics}
	}

	var result [][]entities.Metric

	for i := range metrics {
		rest := make([]entities.Metric, 0, len(metrics)-1)
		rest = append(rest, metrics[:i]...)
		rest = append(rest, metrics[i+1:]...)

		for _, perm := range permutations(rest) {
			result = append(result, append([]entities.Metric{metrics[i]}, perm...))
		}
	}

	return result
}

// The latest-value cache must converge to the row that is maximal under
// the (step, timestamp, value) order, whatever order the samples arrive
// in.
func TestLatestMetricOrderInvariance(t *testing.T) {
	store := newTestStore(t)
	id := createTestExperiment(t, store, "order-invariance")

	samples := []entities.Metric{
		{Key: "loss", Value: 1.0, Timestamp: 100, Step: 1},
		{Key: "loss", Value: 0.5, Timestamp: 200, Step: 1},
		{Key: "loss", Value: 0.1, Timestamp: 50, Step: 2},
		{Key: "loss", Value: 2.0, Timestamp: 200, Step: 1},
	}

	for _, perm := range permutations(samples) {
		run := createTestRun(t, store, id)

		for i := range perm {
			require.Nil(t, store.LogMetric(run.Info.RunID, &perm[i]))
		}

		latest := latestMetricFor(t, store, run.Info.RunID, "loss")
		require.Equal(t, int64(2), latest.Step)
		require.Equal(t, int64(50), latest.Timestamp)
		require.InDelta(t, 0.1, latest.Value, 1e-12)
	}
}

func TestLatestMetricTieBreaks(t *testing.T) {
	scenarios := []struct {
		name     string
		first    entities.Metric
		second   entities.Metric
		expected float64
	}{
		{
			name:     "higher step wins over newer timestamp",
			first:    entities.Metric{Key: "m", Value: 1, Timestamp: 999, Step: 1},
			second:   entities.Metric{Key: "m", Value: 2, Timestamp: 1, Step: 2},
			expected: 2,
		},
		{
			name:     "same step, higher timestamp wins",
			first:    entities.Metric{Key: "m", Value: 1, Timestamp: 10, Step: 1},
			second:   entities.Metric{Key: "m", Value: 2, Timestamp: 20, Step: 1},
			expected: 2,
		},
		{
			name:     "same step and timestamp, higher value wins",
			first:    entities.Metric{Key: "m", Value: 5, Timestamp: 10, Step: 1},
			second:   entities.Metric{Key: "m", Value: 3, Timestamp: 10, Step: 1},
			expected: 5,
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			store := newTestStore(t)
			id := createTestExperiment(t, store, "tie-breaks")
			run := createTestRun(t, store, id)

			first, second := scenario.first, scenario.second
			require.Nil(t, store.LogMetric(run.Info.RunID, &first))
			require.Nil(t, store.LogMetric(run.Info.RunID, &second))

			latest := latestMetricFor(t, store, run.Info.RunID, "m")
			require.InDelta(t, scenario.expected, latest.Value, 1e-12)
		})
	}
}

// Logging the exact same tuple twice yields one stored row, not two: the
// full tuple is the primary key.
func TestLogMetricDuplicateTupleIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	id := createTestExperiment(t, store, "duplicates")
	run := createTestRun(t, store, id)

	sample := entities.Metric{Key: "loss", Value: 0.25, Timestamp: 123, Step: 7}
	require.Nil(t, store.LogMetric(run.Info.RunID, &sample))
	require.Nil(t, store.LogMetric(run.Info.RunID, &sample))

	history, contractError := store.GetMetricHistory(run.Info.RunID, "loss")
	require.Nil(t, contractError)
	require.Len(t, history, 1)
}

// Multiple samples at the same step are legal and all retained.
func TestMetricHistoryKeepsSamplesWithinAStep(t *testing.T) {
	store := newTestStore(t)
	id := createTestExperiment(t, store, "same-step")
	run := createTestRun(t, store, id)

	require.Nil(t, store.LogMetric(run.Info.RunID, &entities.Metric{Key: "loss", Value: 0.4, Timestamp: 1, Step: 1}))
	require.Nil(t, store.LogMetric(run.Info.RunID, &entities.Metric{Key: "loss", Value: 0.3, Timestamp: 1, Step: 1}))

	history, contractError := store.GetMetricHistory(run.Info.RunID, "loss")
	require.Nil(t, contractError)
	require.Len(t, history, 2)
}

func TestLogMetricNaNAndInfinity(t *testing.T) {
	store := newTestStore(t)
	id := createTestExperiment(t, store, "nan")
	run := createTestRun(t, store, id)

	require.Nil(t, store.LogMetric(run.Info.RunID, &entities.Metric{Key: "nan", Value: math.NaN(), Timestamp: 1, Step: 1}))
	require.Nil(t, store.LogMetric(run.Info.RunID, &entities.Metric{Key: "inf", Value: math.Inf(1), Timestamp: 1, Step: 1}))

	nanLatest := latestMetricFor(t, store, run.Info.RunID, "nan")
	require.True(t, nanLatest.IsNaN)
	require.Zero(t, nanLatest.Value)

	infLatest := latestMetricFor(t, store, run.Info.RunID, "inf")
	require.False(t, infLatest.IsNaN)
	require.Equal(t, math.MaxFloat64, infLatest.Value)
}

func TestLatestMetricsAcrossKeys(t *testing.T) {
	store := newTestStore(t)
	id := createTestExperiment(t, store, "multi-key")
	run := createTestRun(t, store, id)

	contractError := store.LogBatch(
		run.Info.RunID,
		[]*entities.Metric{
			{Key: "loss", Value: 0.9, Timestamp: 1, Step: 1},
			{Key: "loss", Value: 0.5, Timestamp: 2, Step: 2},
			{Key: "acc", Value: 0.7, Timestamp: 1, Step: 1},
			{Key: "acc", Value: 0.8, Timestamp: 2, Step: 2},
		},
		nil,
		nil,
	)
	require.Nil(t, contractError)

	loss := latestMetricFor(t, store, run.Info.RunID, "loss")
	require.InDelta(t, 0.5, loss.Value, 1e-12)

	acc := latestMetricFor(t, store, run.Info.RunID, "acc")
	require.InDelta(t, 0.8, acc.Value, 1e-12)
}

func TestGetMetricHistoryUnknownRun(t *testing.T) {
	store := newTestStore(t)

	_, contractError := store.GetMetricHistory("00000000-0000-0000-0000-000000000000", "loss")
	requireErrorCode(t, contractError, contract.ErrorCodeResourceDoesNotExist)
}
