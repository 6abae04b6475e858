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

// Reserved tag keys that mirror into run columns.
const (
	userTagKey    = "mlflow.user"
	runNameTagKey = "mlflow.runName"
)

// setRunTags upserts run tags and mirrors the reserved keys into their run
// columns, all against the caller's transaction.
func setRunTags(transaction *gorm.DB, runID string, tags []entities.RunTag) error {
	if len(tags) == 0 {
		return nil
	}

	runColumns := make(map[string]any)

	for _, tag := range tags {
		switch tag.Key {
		case userTagKey:
			runColumns["user_id"] = tag.Value
		case runNameTagKey:
			runColumns["name"] = tag.Value
		}
	}

	if len(runColumns) != 0 {
		err := transaction.
			Model(&model.Run{}).
			Where("run_uuid = ?", runID).
			UpdateColumns(runColumns).Error
		if err != nil {
			return fmt.Errorf("failed to update run columns: %w", err)
		}
	}

	runTags := make([]model.Tag, 0, len(tags))
	for _, tag := range tags {
		tag := tag
		runTags = append(runTags, model.NewTagFromEntity(runID, &tag))
	}

	if err := transaction.Clauses(clause.OnConflict{
		UpdateAll: true,
	}).CreateInBatches(runTags, batchSize).Error; err != nil {
		return fmt.Errorf("failed to create tags for run %q: %w", runID, err)
	}

	return nil
}

// SetTag is an idempotent last-write-wins upsert.
func (s *Store) SetTag(runID, key, value string) *contract.Error {
	tag := entities.RunTag{Key: key, Value: value}
	if contractError := s.validateInput(&tag); contractError != nil {
		return contractError
	}

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		if contractError := checkRunIsActive(transaction, runID); contractError != nil {
			return contractError
		}

		return setRunTags(transaction, runID, []entities.RunTag{tag})
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to set tag for run %q", runID),
			err,
		)
	}

	return nil
}

func (s *Store) DeleteTag(runID, key string) *contract.Error {
	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		if contractError := checkRunIsActive(transaction, runID); contractError != nil {
			return contractError
		}

		result := transaction.
			Where("run_uuid = ?", runID).
			Where("key = ?", key).
			Delete(&model.Tag{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete tag %q for run %q: %w", key, runID, result.Error)
		}

		if result.RowsAffected == 0 {
			return contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("No tag with name: %s in run with id %s", key, runID),
			)
		}

		return nil
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to delete tag for run %q", runID),
			err,
		)
	}

	return nil
}
