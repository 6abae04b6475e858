package sql

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mlflow/mlflow-go-backend/pkg/contract"
	"github.com/mlflow/mlflow-go-backend/pkg/entities"
)

// LogBatch writes metrics, params and tags against one run in a single
// transaction; no partial batch is ever visible.
func (s *Store) LogBatch(
	runID string,
	metrics []*entities.Metric,
	params []*entities.Param,
	tags []*entities.RunTag,
) *contract.Error {
	for _, metric := range metrics {
		if contractError := s.validateInput(metric); contractError != nil {
			return contractError
		}
	}

	for _, param := range params {
		if contractError := s.validateInput(param); contractError != nil {
			return contractError
		}
	}

	batchTags := make([]entities.RunTag, 0, len(tags))

	for _, tag := range tags {
		if contractError := s.validateInput(tag); contractError != nil {
			return contractError
		}

		batchTags = append(batchTags, *tag)
	}

	err := s.db.Transaction(func(transaction *gorm.DB) error {
		if contractError := checkRunIsActive(transaction, runID); contractError != nil {
			return contractError
		}

		if err := setRunTags(transaction, runID, batchTags); err != nil {
			return fmt.Errorf("error setting tags for run %q: %w", runID, err)
		}

		if contractError := logParams(transaction, runID, params); contractError != nil {
			return contractError
		}

		if contractError := logMetrics(transaction, runID, metrics); contractError != nil {
			return contractError
		}

		return nil
	})
	if err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("log batch transaction failed for run %q", runID),
			err,
		)
	}

	return nil
}
