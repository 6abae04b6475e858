package sql

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mlflow/mlflow-go-backend/pkg/contract"
	"github.com/mlflow/mlflow-go-backend/pkg/entities"
	"github.com/mlflow/mlflow-go-backend/pkg/store/sql/model"
)

func registeredModelNotFound(name string) *contract.Error {
	return contract.NewError(
		contract.ErrorCodeResourceDoesNotExist,
		fmt.Sprintf("Registered Model with name=%s not found", name),
	)
}

func modelVersionNotFound(name string, version int32) *contract.Error {
	return contract.NewError(
		contract.ErrorCodeResourceDoesNotExist,
		fmt.Sprintf("Model Version (name=%s, version=%d) not found", name, version),
	)
}

// getRegisteredModel loads the model row inside the caller's transaction.
func getRegisteredModel(transaction *gorm.DB, name string) (*model.RegisteredModel, *contract.Error) {
	var registeredModel model.RegisteredModel

	err := transaction.Where("name = ?", name).First(&registeredModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, registeredModelNotFound(name)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to get registered model %q", name),
			err,
		)
	}

	return &registeredModel, nil
}

func touchRegisteredModel(transaction *gorm.DB, name string) error {
	return transaction.Model(&model.RegisteredModel{}).
		Where("name = ?", name).
		UpdateColumn("last_updated_time", time.Now().UnixMilli()).Error
}

func (s *Store) CreateRegisteredModel(
	input *entities.CreateRegisteredModel,
) (*entities.RegisteredModel, *contract.Error) {
	if contractError := s.validateInput(input); contractError != nil {
		return nil, contractError
	}

	now := time.Now().UnixMilli()
	registeredModel := model.RegisteredModel{
		Name:            input.Name,
		CreationTime:    now,
		LastUpdatedTime: now,
		Description:     input.Description,
		Tags:            make([]model.RegisteredModelTag, 0, len(input.Tags)),
	}

	for _, tag := range input.Tags {
		registeredModel.Tags = append(registeredModel.Tags, model.RegisteredModelTag{
			Key:   tag.Key,
			Value: tag.Value,
			Name:  input.Name,
		})
	}

	if err := s.db.Create(&registeredModel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, contract.NewError(
				contract.ErrorCodeResourceAlreadyExists,
				fmt.Sprintf("Registered Model (name=%s) already exists.", input.Name),
			)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			"failed to create registered model",
			err,
		)
	}

	return registeredModel.ToEntity(), nil
}

func (s *Store) GetRegisteredModel(name string) (*entities.RegisteredModel, *contract.Error) {
	var registeredModel model.RegisteredModel

	err := s.db.
		Preload("Tags").
		Preload("Aliases").
		Preload("Versions").
		Where("name = ?", name).
		First(&registeredModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, registeredModelNotFound(name)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to get registered model %q", name),
			err,
		)
	}

	return registeredModel.ToEntity(), nil
}

func (s *Store) UpdateRegisteredModel(name, description string) *contract.Error {
	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		if _, contractError := getRegisteredModel(transaction, name); contractError != nil {
			return contractError
		}

		return transaction.Model(&model.RegisteredModel{}).
			Where("name = ?", name).
			Updates(map[string]any{
				"description":       description,
				"last_updated_time": time.Now().UnixMilli(),
			}).Error
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to update registered model %q", name),
			err,
		)
	}

	return nil
}

// RenameRegisteredModel renames the model and fans the new name out to
// versions, version tags, model tags and aliases in one transaction; the
// name is the key all four tables reference.
func (s *Store) RenameRegisteredModel(name, newName string) *contract.Error {
	if newName == "" {
		return contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			"registered model name cannot be empty",
		)
	}

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		if _, contractError := getRegisteredModel(transaction, name); contractError != nil {
			return contractError
		}

		var collisions int64
		if err := transaction.Model(&model.RegisteredModel{}).
			Where("name = ?", newName).
			Count(&collisions).Error; err != nil {
			return err
		}

		if collisions != 0 {
			return contract.NewError(
				contract.ErrorCodeResourceAlreadyExists,
				fmt.Sprintf("Registered Model (name=%s) already exists.", newName),
			)
		}

		for _, dependent := range []any{
			&model.ModelVersion{},
			&model.ModelVersionTag{},
			&model.RegisteredModelTag{},
			&model.RegisteredModelAlias{},
		} {
			if err := transaction.Model(dependent).
				Where("name = ?", name).
				UpdateColumn("name", newName).Error; err != nil {
				return fmt.Errorf("failed to cascade rename to %T: %w", dependent, err)
			}
		}

		return transaction.Model(&model.RegisteredModel{}).
			Where("name = ?", name).
			Updates(map[string]any{
				"name":              newName,
				"last_updated_time": time.Now().UnixMilli(),
			}).Error
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to rename registered model %q", name),
			err,
		)
	}

	return nil
}

// DeleteRegisteredModel physically removes the model and every dependent
// row (versions, version tags, model tags, aliases) in one transaction.
func (s *Store) DeleteRegisteredModel(name string) *contract.Error {
	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		if _, contractError := getRegisteredModel(transaction, name); contractError != nil {
			return contractError
		}

		for _, dependent := range []any{
			&model.RegisteredModelAlias{},
			&model.ModelVersionTag{},
			&model.ModelVersion{},
			&model.RegisteredModelTag{},
		} {
			if err := transaction.Where("name = ?", name).Delete(dependent).Error; err != nil {
				return fmt.Errorf("failed to cascade delete to %T: %w", dependent, err)
			}
		}

		return transaction.Where("name = ?", name).Delete(&model.RegisteredModel{}).Error
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to delete registered model %q", name),
			err,
		)
	}

	return nil
}

func (s *Store) SetRegisteredModelTag(name, key, value string) *contract.Error {
	tag := entities.RegisteredModelTag{Key: key, Value: value}
	if contractError := s.validateInput(&tag); contractError != nil {
		return contractError
	}

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		if _, contractError := getRegisteredModel(transaction, name); contractError != nil {
			return contractError
		}

		return transaction.Clauses(clause.OnConflict{
			UpdateAll: true,
		}).Create(&model.RegisteredModelTag{Key: key, Value: value, Name: name}).Error
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to set tag on registered model %q", name),
			err,
		)
	}

	return nil
}

func (s *Store) DeleteRegisteredModelTag(name, key string) *contract.Error {
	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		if _, contractError := getRegisteredModel(transaction, name); contractError != nil {
			return contractError
		}

		return transaction.
			Where("name = ?", name).
			Where("key = ?", key).
			Delete(&model.RegisteredModelTag{}).Error
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to delete tag on registered model %q", name),
			err,
		)
	}

	return nil
}

// CreateModelVersion assigns the next version number under the model's
// row lock, so concurrent registrations cannot collide.
func (s *Store) CreateModelVersion(
	input *entities.CreateModelVersion,
) (*entities.ModelVersion, *contract.Error) {
	if contractError := s.validateInput(input); contractError != nil {
		return nil, contractError
	}

	now := time.Now().UnixMilli()
	modelVersion := model.ModelVersion{
		Name:            input.Name,
		CreationTime:    now,
		LastUpdatedTime: now,
		Description:     input.Description,
		CurrentStage:    entities.ModelVersionStageNone,
		Source:          input.Source,
		RunID:           input.RunID,
		RunLink:         input.RunLink,
		Status:          entities.ModelVersionStatusReady,
	}

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		var registeredModel model.RegisteredModel

		err := transaction.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", input.Name).
			First(&registeredModel).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return registeredModelNotFound(input.Name)
			}

			return err
		}

		var maxVersion int32
		if err := transaction.Model(&model.ModelVersion{}).
			Where("name = ?", input.Name).
			Select("COALESCE(MAX(version), 0)").
			Scan(&maxVersion).Error; err != nil {
			return fmt.Errorf("failed to compute next version for model %q: %w", input.Name, err)
		}

		modelVersion.Version = maxVersion + 1

		for _, tag := range input.Tags {
			modelVersion.Tags = append(modelVersion.Tags, model.ModelVersionTag{
				Key:     tag.Key,
				Value:   tag.Value,
				Name:    input.Name,
				Version: modelVersion.Version,
			})
		}

		if err := transaction.Create(&modelVersion).Error; err != nil {
			return fmt.Errorf("failed to insert model version: %w", err)
		}

		return touchRegisteredModel(transaction, input.Name)
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return nil, contractError
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to create model version for %q", input.Name),
			err,
		)
	}

	return modelVersion.ToEntity(), nil
}

func (s *Store) GetModelVersion(name string, version int32) (*entities.ModelVersion, *contract.Error) {
	var modelVersion model.ModelVersion

	err := s.db.
		Preload("Tags").
		Where("name = ?", name).
		Where("version = ?", version).
		First(&modelVersion).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, modelVersionNotFound(name, version)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to get model version (%s, %d)", name, version),
			err,
		)
	}

	return modelVersion.ToEntity(), nil
}

func (s *Store) updateModelVersionColumns(
	name string, version int32, columns map[string]any,
) *contract.Error {
	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		columns["last_updated_time"] = time.Now().UnixMilli()

		update := transaction.Model(&model.ModelVersion{}).
			Where("name = ?", name).
			Where("version = ?", version).
			Updates(columns)
		if update.Error != nil {
			return update.Error
		}

		if update.RowsAffected != 1 {
			return modelVersionNotFound(name, version)
		}

		return touchRegisteredModel(transaction, name)
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to update model version (%s, %d)", name, version),
			err,
		)
	}

	return nil
}

func (s *Store) UpdateModelVersion(name string, version int32, description string) *contract.Error {
	return s.updateModelVersionColumns(name, version, map[string]any{
		"description": description,
	})
}

func (s *Store) TransitionModelVersionStage(
	name string, version int32, stage entities.ModelVersionStage,
) *contract.Error {
	switch stage {
	case entities.ModelVersionStageNone,
		entities.ModelVersionStageStaging,
		entities.ModelVersionStageProduction,
		entities.ModelVersionStageArchived:
	default:
		return contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			fmt.Sprintf("invalid model version stage %q", stage),
		)
	}

	return s.updateModelVersionColumns(name, version, map[string]any{
		"current_stage": stage,
	})
}

// DeleteModelVersion removes the version, its tags, and any alias
// resolving to it in one transaction.
func (s *Store) DeleteModelVersion(name string, version int32) *contract.Error {
	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		if err := transaction.
			Where("name = ?", name).
			Where("version = ?", version).
			Delete(&model.ModelVersionTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete model version tags: %w", err)
		}

		if err := transaction.
			Where("name = ?", name).
			Where("version = ?", version).
			Delete(&model.RegisteredModelAlias{}).Error; err != nil {
			return fmt.Errorf("failed to delete aliases of model version: %w", err)
		}

		result := transaction.
			Where("name = ?", name).
			Where("version = ?", version).
			Delete(&model.ModelVersion{})
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected != 1 {
			return modelVersionNotFound(name, version)
		}

		return touchRegisteredModel(transaction, name)
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to delete model version (%s, %d)", name, version),
			err,
		)
	}

	return nil
}

func (s *Store) SetModelVersionTag(name string, version int32, key, value string) *contract.Error {
	tag := entities.ModelVersionTag{Key: key, Value: value}
	if contractError := s.validateInput(&tag); contractError != nil {
		return contractError
	}

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		var count int64
		if err := transaction.Model(&model.ModelVersion{}).
			Where("name = ?", name).
			Where("version = ?", version).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			return modelVersionNotFound(name, version)
		}

		return transaction.Clauses(clause.OnConflict{
			UpdateAll: true,
		}).Create(&model.ModelVersionTag{
			Key:     key,
			Value:   value,
			Name:    name,
			Version: version,
		}).Error
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to set tag on model version (%s, %d)", name, version),
			err,
		)
	}

	return nil
}

func (s *Store) DeleteModelVersionTag(name string, version int32, key string) *contract.Error {
	if err := s.db.
		Where("name = ?", name).
		Where("version = ?", version).
		Where("key = ?", key).
		Delete(&model.ModelVersionTag{}).Error; err != nil {
		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to delete tag on model version (%s, %d)", name, version),
			err,
		)
	}

	return nil
}

// SetRegisteredModelAlias points the alias at a version; setting an
// existing alias moves it.
func (s *Store) SetRegisteredModelAlias(name, alias string, version int32) *contract.Error {
	aliasInput := entities.RegisteredModelAlias{Alias: alias, Version: version}
	if contractError := s.validateInput(&aliasInput); contractError != nil {
		return contractError
	}

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		var count int64
		if err := transaction.Model(&model.ModelVersion{}).
			Where("name = ?", name).
			Where("version = ?", version).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			return modelVersionNotFound(name, version)
		}

		return transaction.Clauses(clause.OnConflict{
			UpdateAll: true,
		}).Create(&model.RegisteredModelAlias{
			Alias:   alias,
			Version: version,
			Name:    name,
		}).Error
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to set alias %q on registered model %q", alias, name),
			err,
		)
	}

	return nil
}

// DeleteRegisteredModelAlias is idempotent: deleting an absent alias is a
// no-op.
func (s *Store) DeleteRegisteredModelAlias(name, alias string) *contract.Error {
	if err := s.db.
		Where("name = ?", name).
		Where("alias = ?", alias).
		Delete(&model.RegisteredModelAlias{}).Error; err != nil {
		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to delete alias %q on registered model %q", alias, name),
			err,
		)
	}

	return nil
}

func (s *Store) GetModelVersionByAlias(name, alias string) (*entities.ModelVersion, *contract.Error) {
	var aliasRow model.RegisteredModelAlias

	err := s.db.
		Where("name = ?", name).
		Where("alias = ?", alias).
		First(&aliasRow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("Registered model alias %s not found.", alias),
			)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to get alias %q on registered model %q", alias, name),
			err,
		)
	}

	return s.GetModelVersion(name, aliasRow.Version)
}
