package model

import "github.com/mlflow/mlflow-go-backend/pkg/entities"

// ModelVersion mapped from table <model_versions>. The registered-model
// name is part of the primary key; a model rename fans out to this table
// inside the rename transaction.
type ModelVersion struct {
	Name            string                      `gorm:"column:name;primaryKey"`
	Version         int32                       `gorm:"column:version;primaryKey"`
	CreationTime    int64                       `gorm:"column:creation_time"`
	LastUpdatedTime int64                       `gorm:"column:last_updated_time"`
	Description     string                      `gorm:"column:description"`
	UserID          string                      `gorm:"column:user_id"`
	CurrentStage    entities.ModelVersionStage  `gorm:"column:current_stage"`
	Source          string                      `gorm:"column:source"`
	RunID           string                      `gorm:"column:run_id"`
	Status          entities.ModelVersionStatus `gorm:"column:status"`
	StatusMessage   string                      `gorm:"column:status_message"`
	RunLink         string                      `gorm:"column:run_link"`
	StorageLocation string                      `gorm:"column:storage_location"`
	Tags            []ModelVersionTag           `gorm:"foreignKey:Name,Version;references:Name,Version"`
}

func (mv ModelVersion) ToEntity() *entities.ModelVersion {
	modelVersion := entities.ModelVersion{
		Name:            mv.Name,
		Version:         mv.Version,
		CreationTime:    mv.CreationTime,
		LastUpdatedTime: mv.LastUpdatedTime,
		Description:     mv.Description,
		UserID:          mv.UserID,
		CurrentStage:    mv.CurrentStage,
		Source:          mv.Source,
		RunID:           mv.RunID,
		RunLink:         mv.RunLink,
		Status:          mv.Status,
		StatusMessage:   mv.StatusMessage,
		Tags:            make([]entities.ModelVersionTag, 0, len(mv.Tags)),
	}

	for _, tag := range mv.Tags {
		modelVersion.Tags = append(modelVersion.Tags, entities.ModelVersionTag{
			Key:   tag.Key,
			Value: tag.Value,
		})
	}

	return &modelVersion
}
