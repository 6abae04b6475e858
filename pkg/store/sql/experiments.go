package sql

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mlflow/mlflow-go-backend/pkg/contract"
	"github.com/mlflow/mlflow-go-backend/pkg/entities"
	"github.com/mlflow/mlflow-go-backend/pkg/store"
	"github.com/mlflow/mlflow-go-backend/pkg/store/sql/model"
)

func parseExperimentID(id string) (int32, *contract.Error) {
	idInt, err := strconv.ParseInt(id, 10, 32)
	if err != nil {
		return 0, contract.NewErrorWith(
			contract.ErrorCodeInvalidParameterValue,
			fmt.Sprintf("failed to convert experiment id %q to int", id),
			err,
		)
	}

	return int32(idInt), nil
}

// CreateExperiment creates an active experiment. The name is unique across
// every lifecycle stage: a deleted experiment keeps holding its name until
// it is restored or permanently removed, so restore never becomes
// ambiguous.
func (s *Store) CreateExperiment(input *entities.CreateExperiment) (string, *contract.Error) {
	if contractError := s.validateInput(input); contractError != nil {
		return "", contractError
	}

	experiment := model.NewExperimentFromEntity(input)

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		if err := transaction.Create(experiment).Error; err != nil {
			return fmt.Errorf("failed to insert experiment: %w", err)
		}

		if experiment.ArtifactLocation == "" {
			artifactLocation, err := url.JoinPath(
				s.config.DefaultArtifactRoot,
				strconv.Itoa(int(experiment.ExperimentID)),
			)
			if err != nil {
				return fmt.Errorf("failed to join artifact location: %w", err)
			}

			experiment.ArtifactLocation = artifactLocation

			if err := transaction.Model(experiment).
				UpdateColumn("artifact_location", artifactLocation).Error; err != nil {
				return fmt.Errorf("failed to update experiment artifact location: %w", err)
			}
		}

		return nil
	}); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", contract.NewError(
				contract.ErrorCodeResourceAlreadyExists,
				fmt.Sprintf("Experiment(name=%s) already exists.", experiment.Name),
			)
		}

		return "", contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to create experiment", err)
	}

	return strconv.Itoa(int(experiment.ExperimentID)), nil
}

func (s *Store) GetExperiment(id string) (*entities.Experiment, *contract.Error) {
	idInt, contractError := parseExperimentID(id)
	if contractError != nil {
		return nil, contractError
	}

	experiment := model.Experiment{ExperimentID: idInt}
	if err := s.db.Preload("Tags").First(&experiment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("No Experiment with id=%d exists", idInt),
			)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			"failed to get experiment",
			err,
		)
	}

	return experiment.ToEntity(), nil
}

func (s *Store) GetExperimentByName(name string) (*entities.Experiment, *contract.Error) {
	var experiment model.Experiment
	if err := s.db.Preload("Tags").Where("name = ?", name).First(&experiment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("Could not find experiment with name %q", name),
			)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			"failed to get experiment by name",
			err,
		)
	}

	return experiment.ToEntity(), nil
}

func (s *Store) RenameExperiment(id, newName string) *contract.Error {
	idInt, contractError := parseExperimentID(id)
	if contractError != nil {
		return contractError
	}

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		var experiment model.Experiment
		if err := transaction.First(&experiment, idInt).Error; err != nil {
			return err
		}

		if experiment.LifecycleStage != entities.LifecycleStageActive {
			return contract.NewError(
				contract.ErrorCodeInvalidState,
				fmt.Sprintf("Cannot rename experiment in non-active lifecycle stage. Current stage: %s", experiment.LifecycleStage),
			)
		}

		return transaction.Model(&experiment).Updates(map[string]any{
			"name":             newName,
			"last_update_time": time.Now().UnixMilli(),
		}).Error
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("No Experiment with id=%d exists", idInt),
			)
		}

		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return contract.NewError(
				contract.ErrorCodeResourceAlreadyExists,
				fmt.Sprintf("Experiment(name=%s) already exists.", newName),
			)
		}

		return contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to rename experiment", err)
	}

	return nil
}

// DeleteExperiment soft-deletes the experiment and, in the same
// transaction, soft-deletes its runs.
func (s *Store) DeleteExperiment(id string) *contract.Error {
	idInt, contractError := parseExperimentID(id)
	if contractError != nil {
		return contractError
	}

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		now := time.Now().UnixMilli()

		update := transaction.Model(&model.Experiment{}).
			Where("experiment_id = ?", idInt).
			Where("lifecycle_stage = ?", entities.LifecycleStageActive).
			Updates(map[string]any{
				"lifecycle_stage":  entities.LifecycleStageDeleted,
				"last_update_time": now,
			})
		if update.Error != nil {
			return fmt.Errorf("failed to update experiment %d during delete: %w", idInt, update.Error)
		}

		if update.RowsAffected != 1 {
			return gorm.ErrRecordNotFound
		}

		if err := transaction.Model(&model.Run{}).
			Where("experiment_id = ?", idInt).
			Updates(map[string]any{
				"lifecycle_stage": entities.LifecycleStageDeleted,
				"deleted_time":    now,
			}).Error; err != nil {
			return fmt.Errorf("failed to update runs during delete: %w", err)
		}

		return nil
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("No Experiment with id=%d exists", idInt),
			)
		}

		return contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to delete experiment", err)
	}

	return nil
}

// RestoreExperiment brings a soft-deleted experiment and its runs back to
// the active stage.
func (s *Store) RestoreExperiment(id string) *contract.Error {
	idInt, contractError := parseExperimentID(id)
	if contractError != nil {
		return contractError
	}

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		update := transaction.Model(&model.Experiment{}).
			Where("experiment_id = ?", idInt).
			Where("lifecycle_stage = ?", entities.LifecycleStageDeleted).
			Updates(map[string]any{
				"lifecycle_stage":  entities.LifecycleStageActive,
				"last_update_time": time.Now().UnixMilli(),
			})
		if update.Error != nil {
			return fmt.Errorf("failed to update experiment %d during restore: %w", idInt, update.Error)
		}

		if update.RowsAffected != 1 {
			return gorm.ErrRecordNotFound
		}

		if err := transaction.Model(&model.Run{}).
			Where("experiment_id = ?", idInt).
			Updates(map[string]any{
				"lifecycle_stage": entities.LifecycleStageActive,
				"deleted_time":    nil,
			}).Error; err != nil {
			return fmt.Errorf("failed to update runs during restore: %w", err)
		}

		return nil
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("No deleted Experiment with id=%d exists", idInt),
			)
		}

		return contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to restore experiment", err)
	}

	return nil
}

func (s *Store) SetExperimentTag(id, key, value string) *contract.Error {
	idInt, contractError := parseExperimentID(id)
	if contractError != nil {
		return contractError
	}

	tag := entities.ExperimentTag{Key: key, Value: value}
	if contractError := s.validateInput(&tag); contractError != nil {
		return contractError
	}

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		var experiment model.Experiment
		if err := transaction.First(&experiment, idInt).Error; err != nil {
			return err
		}

		if experiment.LifecycleStage != entities.LifecycleStageActive {
			return contract.NewError(
				contract.ErrorCodeInvalidState,
				fmt.Sprintf("The experiment %d must be in the 'active' state.\nCurrent state is %v.", idInt, experiment.LifecycleStage),
			)
		}

		return transaction.Clauses(clause.OnConflict{
			UpdateAll: true,
		}).Create(&model.ExperimentTag{
			ExperimentID: idInt,
			Key:          key,
			Value:        value,
		}).Error
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("No Experiment with id=%d exists", idInt),
			)
		}

		return contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to set experiment tag", err)
	}

	return nil
}

func (s *Store) ListExperiments(
	viewType entities.ViewType, maxResults int, pageToken string,
) (*store.PagedList[*entities.Experiment], *contract.Error) {
	offset, contractError := getOffset(pageToken)
	if contractError != nil {
		return nil, contractError
	}

	var experiments []model.Experiment

	err := s.db.
		Where("lifecycle_stage IN ?", lifecycleStagesFor(viewType)).
		Order("experiment_id").
		Limit(maxResults).
		Offset(offset).
		Preload("Tags").
		Find(&experiments).Error
	if err != nil {
		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			"failed to list experiments",
			err,
		)
	}

	items := make([]*entities.Experiment, 0, len(experiments))
	for _, experiment := range experiments {
		items = append(items, experiment.ToEntity())
	}

	nextPageToken, contractError := mkNextPageToken(len(experiments), maxResults, offset)
	if contractError != nil {
		return nil, contractError
	}

	return &store.PagedList[*entities.Experiment]{
		Items:         items,
		NextPageToken: nextPageToken,
	}, nil
}
