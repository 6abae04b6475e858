package sql

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mlflow/mlflow-go-backend/pkg/contract"
	"github.com/mlflow/mlflow-go-backend/pkg/entities"
	"github.com/mlflow/mlflow-go-backend/pkg/store/sql/model"
)

// validateDatasetPayloads checks that the opaque schema and profile blobs
// are well-formed JSON when present. Their contents are not interpreted.
func validateDatasetPayloads(dataset *entities.Dataset) *contract.Error {
	for _, payload := range []string{dataset.Schema, dataset.Profile} {
		if payload != "" && !gjson.Valid(payload) {
			return contract.NewError(
				contract.ErrorCodeInvalidParameterValue,
				fmt.Sprintf("dataset %q has a malformed schema or profile payload", dataset.Name),
			)
		}
	}

	return nil
}

// LogInputs records dataset-to-run lineage edges. The edge insert is
// idempotent on its (source, destination) composite key; re-logging the
// same dataset against the same run is a no-op. Lineage is a plain
// directed edge set, no cycle checking.
func (s *Store) LogInputs(runID string, inputs []*entities.DatasetInput) *contract.Error {
	for _, input := range inputs {
		if contractError := s.validateInput(input); contractError != nil {
			return contractError
		}

		if contractError := validateDatasetPayloads(&input.Dataset); contractError != nil {
			return contractError
		}
	}

	err := s.db.Transaction(func(transaction *gorm.DB) error {
		run, contractError := getActiveRun(transaction, runID)
		if contractError != nil {
			return contractError
		}

		for _, input := range inputs {
			if err := logInput(transaction, run, input); err != nil {
				return err
			}
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
			fmt.Sprintf("log inputs transaction failed for run %q", runID),
			err,
		)
	}

	return nil
}

func logInput(transaction *gorm.DB, run *model.Run, input *entities.DatasetInput) error {
	dataset := model.Dataset{
		DatasetUUID:       uuid.NewString(),
		ExperimentID:      run.ExperimentID,
		Name:              input.Dataset.Name,
		Digest:            input.Dataset.Digest,
		DatasetSourceType: input.Dataset.SourceType,
		DatasetSource:     input.Dataset.Source,
		DatasetSchema:     input.Dataset.Schema,
		DatasetProfile:    input.Dataset.Profile,
	}

	// The dataset row is keyed by (experiment, name, digest); the first
	// writer's surrogate uuid sticks.
	if err := transaction.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&dataset).Error; err != nil {
		return fmt.Errorf("failed to upsert dataset %q: %w", dataset.Name, err)
	}

	if err := transaction.
		Where("experiment_id = ?", dataset.ExperimentID).
		Where("name = ?", dataset.Name).
		Where("digest = ?", dataset.Digest).
		First(&dataset).Error; err != nil {
		return fmt.Errorf("failed to read back dataset %q: %w", dataset.Name, err)
	}

	edge := model.Input{
		InputUUID:       uuid.NewString(),
		SourceType:      model.InputSourceTypeDataset,
		SourceID:        dataset.DatasetUUID,
		DestinationType: model.InputDestinationTypeRun,
		DestinationID:   run.RunID,
	}

	if err := transaction.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edge).Error; err != nil {
		return fmt.Errorf("failed to insert input edge for dataset %q: %w", dataset.Name, err)
	}

	if len(input.Tags) == 0 {
		return nil
	}

	// Re-read the edge: on an idempotent replay the surrogate uuid of the
	// original edge owns the tags.
	if err := transaction.
		Where("source_type = ?", edge.SourceType).
		Where("source_id = ?", edge.SourceID).
		Where("destination_type = ?", edge.DestinationType).
		Where("destination_id = ?", edge.DestinationID).
		First(&edge).Error; err != nil {
		return fmt.Errorf("failed to read back input edge for dataset %q: %w", dataset.Name, err)
	}

	inputTags := make([]model.InputTag, 0, len(input.Tags))
	for _, tag := range input.Tags {
		inputTags = append(inputTags, model.InputTag{
			InputUUID: edge.InputUUID,
			Key:       tag.Key,
			Value:     tag.Value,
		})
	}

	if err := transaction.Clauses(clause.OnConflict{
		UpdateAll: true,
	}).CreateInBatches(inputTags, batchSize).Error; err != nil {
		return fmt.Errorf("failed to create input tags for dataset %q: %w", dataset.Name, err)
	}

	return nil
}
