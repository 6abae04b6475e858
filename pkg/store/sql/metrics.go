package sql

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mlflow/mlflow-go-backend/pkg/contract"
	"github.com/mlflow/mlflow-go-backend/pkg/entities"
	"github.com/mlflow/mlflow-go-backend/pkg/store/sql/model"
)

func distinctMetricKeys(metrics []model.Metric) []string {
	keysSeen := make(map[string]struct{}, len(metrics))
	keys := make([]string, 0, len(metrics))

	for _, metric := range metrics {
		if _, ok := keysSeen[metric.Key]; !ok {
			keysSeen[metric.Key] = struct{}{}
			keys = append(keys, metric.Key)
		}
	}

	return keys
}

const latestMetricsBatchSize = 500

// currentLatestMetrics reads the cache rows for the given keys with a row
// lock, so concurrent writers to the same (run, key) serialize on the
// winner computation instead of both reading stale state.
func currentLatestMetrics(
	transaction *gorm.DB, runID string, metricKeys []string,
) ([]model.LatestMetric, error) {
	latestMetrics := make([]model.LatestMetric, 0, len(metricKeys))

	for skip := 0; skip < len(metricKeys); skip += latestMetricsBatchSize {
		take := skip + latestMetricsBatchSize
		if take > len(metricKeys) {
			take = len(metricKeys)
		}

		currentBatch := make([]model.LatestMetric, 0, take-skip)
		keys := metricKeys[skip:take]

		err := transaction.
			Model(&model.LatestMetric{}).
			Where("run_uuid = ?", runID).Where("key IN ?", keys).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("run_uuid").
			Order("key").
			Find(&currentBatch).Error
		if err != nil {
			return latestMetrics, fmt.Errorf(
				"failed to get latest metrics for run %q, skip %d, take %d: %w",
				runID, skip, take, err,
			)
		}

		latestMetrics = append(latestMetrics, currentBatch...)
	}

	return latestMetrics, nil
}

// metricWins reports whether sample a beats cache row b under the
// (step, timestamp, value) lexicographic order. The order is total over
// the stored representation (NaN is stored as 0 with is_nan set), which
// makes the fold below independent of arrival order.
func metricWins(a model.Metric, b model.LatestMetric) bool {
	return a.Step > b.Step ||
		(a.Step == b.Step && a.Timestamp > b.Timestamp) ||
		(a.Step == b.Step && a.Timestamp == b.Timestamp && a.Value > b.Value)
}

// refreshLatestMetrics folds a batch of appended samples into the
// latest-value cache inside the caller's transaction: both the log append
// and the cache update commit or roll back as a unit.
func refreshLatestMetrics(transaction *gorm.DB, runID string, metrics []model.Metric) error {
	if len(metrics) == 0 {
		return nil
	}

	metricKeys := distinctMetricKeys(metrics)

	latestMetrics, err := currentLatestMetrics(transaction, runID, metricKeys)
	if err != nil {
		return fmt.Errorf("failed to get latest metrics for run %q: %w", runID, err)
	}

	latestByKey := make(map[string]model.LatestMetric, len(latestMetrics))
	for _, latest := range latestMetrics {
		latestByKey[latest.Key] = latest
	}

	nextLatestByKey := make(map[string]model.LatestMetric, len(metrics))

	for _, metric := range metrics {
		latest, found := latestByKey[metric.Key]
		nextLatest, alreadyPresent := nextLatestByKey[metric.Key]

		switch {
		case !found && !alreadyPresent:
			// First sample ever seen for this key.
			nextLatestByKey[metric.Key] = metric.AsLatest()
		case !found && alreadyPresent && metricWins(metric, nextLatest):
			// No cache row yet and the key occurs multiple times in the
			// batch; keep the batch-local winner.
			nextLatestByKey[metric.Key] = metric.AsLatest()
		case found && metricWins(metric, latest):
			nextLatestByKey[metric.Key] = metric.AsLatest()
		}
	}

	nextLatestMetrics := make([]model.LatestMetric, 0, len(nextLatestByKey))
	for _, nextLatest := range nextLatestByKey {
		nextLatestMetrics = append(nextLatestMetrics, nextLatest)
	}

	if len(nextLatestMetrics) != 0 {
		if err := transaction.Clauses(clause.OnConflict{
			UpdateAll: true,
		}).Create(nextLatestMetrics).Error; err != nil {
			return fmt.Errorf("failed to upsert latest metrics for run %q: %w", runID, err)
		}
	}

	return nil
}

// logMetrics appends samples to the metric log and refreshes the cache.
// An exact duplicate tuple collapses onto the existing row.
func logMetrics(transaction *gorm.DB, runID string, metrics []*entities.Metric) *contract.Error {
	seen := make(map[model.Metric]struct{}, len(metrics))
	modelMetrics := make([]model.Metric, 0, len(metrics))

	for _, metric := range metrics {
		currentMetric := model.NewMetricFromEntity(runID, metric)
		if _, ok := seen[currentMetric]; !ok {
			seen[currentMetric] = struct{}{}

			modelMetrics = append(modelMetrics, currentMetric)
		}
	}

	if len(modelMetrics) == 0 {
		return nil
	}

	if err := transaction.Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(modelMetrics, batchSize).Error; err != nil {
		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("error creating metrics in batch for run %q", runID),
			err,
		)
	}

	if err := refreshLatestMetrics(transaction, runID, modelMetrics); err != nil {
		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("error updating latest metrics for run %q", runID),
			err,
		)
	}

	return nil
}

func (s *Store) LogMetric(runID string, metric *entities.Metric) *contract.Error {
	if contractError := s.validateInput(metric); contractError != nil {
		return contractError
	}

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		if contractError := checkRunIsActive(transaction, runID); contractError != nil {
			return contractError
		}

		if contractError := logMetrics(transaction, runID, []*entities.Metric{metric}); contractError != nil {
			return contractError
		}

		return nil
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("log metric transaction failed for run %q", runID),
			err,
		)
	}

	return nil
}

// GetMetricHistory returns every logged sample for (run, key), including
// multiple samples at the same step.
func (s *Store) GetMetricHistory(runID, key string) ([]*entities.Metric, *contract.Error) {
	var count int64
	if err := s.db.Model(&model.Run{}).
		Where("run_uuid = ?", runID).
		Count(&count).Error; err != nil {
		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to check run %q", runID),
			err,
		)
	}

	if count == 0 {
		return nil, contract.NewError(
			contract.ErrorCodeResourceDoesNotExist,
			fmt.Sprintf("Run with id=%s not found", runID),
		)
	}

	var metrics []model.Metric
	if err := s.db.
		Where("run_uuid = ?", runID).
		Where("key = ?", key).
		Order("timestamp").
		Order("step").
		Order("value").
		Find(&metrics).Error; err != nil {
		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to get metric history for run %q", runID),
			err,
		)
	}

	history := make([]*entities.Metric, 0, len(metrics))
	for _, metric := range metrics {
		history = append(history, metric.ToEntity())
	}

	return history, nil
}
