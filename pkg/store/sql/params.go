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

func paramConflictError(runID, key, oldValue, newValue string) *contract.Error {
	return contract.NewError(
		contract.ErrorCodeInvalidParameterValue,
		fmt.Sprintf(
			"Changing param values is not allowed. "+
				"Param with key=%q was already logged "+
				"with value=%q for run ID=%q. "+
				"Attempted logging new value %q.",
			key,
			oldValue,
			runID,
			newValue,
		),
	)
}

// verifyParamInserts runs after an insert-or-ignore left conflicts behind:
// any existing row whose value differs from the attempted one is a
// write-once violation.
func verifyParamInserts(
	transaction *gorm.DB, runID string, paramsByKey map[string]string,
) *contract.Error {
	keys := make([]string, 0, len(paramsByKey))
	for key := range paramsByKey {
		keys = append(keys, key)
	}

	var existingParams []model.Param

	err := transaction.
		Model(&model.Param{}).
		Select("key", "value").
		Where("run_uuid = ?", runID).
		Where("key IN ?", keys).
		Find(&existingParams).Error
	if err != nil {
		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to get existing params to check for conflicts in run %q", runID),
			err,
		)
	}

	for _, existing := range existingParams {
		if attempted, ok := paramsByKey[existing.Key]; ok && attempted != existing.Value {
			return paramConflictError(runID, existing.Key, existing.Value, attempted)
		}
	}

	return nil
}

// logParams inserts params with write-once semantics: re-logging a key
// with the same value is a no-op, with a different value a conflict.
func logParams(transaction *gorm.DB, runID string, params []*entities.Param) *contract.Error {
	paramsByKey := make(map[string]string, len(params))
	deduplicated := make([]model.Param, 0, len(params))

	for _, param := range params {
		oldValue, present := paramsByKey[param.Key]
		if present && param.Value != oldValue {
			return paramConflictError(runID, param.Key, oldValue, param.Value)
		}

		if !present {
			paramsByKey[param.Key] = param.Value
			deduplicated = append(deduplicated, model.NewParamFromEntity(runID, param))
		}
	}

	if len(deduplicated) == 0 {
		return nil
	}

	// Params are unique by (run_uuid, key), so conflicting rows are left
	// untouched and checked afterwards.
	insert := transaction.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_uuid"}, {Name: "key"}},
			DoNothing: true,
		}).
		CreateInBatches(deduplicated, batchSize)
	if insert.Error != nil {
		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("error creating params in batch for run %q", runID),
			insert.Error,
		)
	}

	if insert.RowsAffected != int64(len(deduplicated)) {
		return verifyParamInserts(transaction, runID, paramsByKey)
	}

	return nil
}

func (s *Store) LogParam(runID string, param *entities.Param) *contract.Error {
	if contractError := s.validateInput(param); contractError != nil {
		return contractError
	}

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		if contractError := checkRunIsActive(transaction, runID); contractError != nil {
			return contractError
		}

		if contractError := logParams(transaction, runID, []*entities.Param{param}); contractError != nil {
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
			fmt.Sprintf("log param transaction failed for run %q", runID),
			err,
		)
	}

	return nil
}
