package model

import (
	"strconv"
	"time"

	"github.com/mlflow/mlflow-go-backend/pkg/entities"
)

// Experiment mapped from table <experiments>.
type Experiment struct {
	ExperimentID     int32                   `gorm:"column:experiment_id;primaryKey;autoIncrement:true"`
	Name             string                  `gorm:"column:name;not null;unique"`
	ArtifactLocation string                  `gorm:"column:artifact_location"`
	LifecycleStage   entities.LifecycleStage `gorm:"column:lifecycle_stage"`
	CreationTime     int64                   `gorm:"column:creation_time"`
	LastUpdateTime   int64                   `gorm:"column:last_update_time"`
	Tags             []ExperimentTag         `gorm:"foreignKey:ExperimentID"`
	Runs             []Run                   `gorm:"foreignKey:ExperimentID"`
}

func (e Experiment) ToEntity() *entities.Experiment {
	experiment := entities.Experiment{
		ExperimentID:     strconv.FormatInt(int64(e.ExperimentID), 10),
		Name:             e.Name,
		ArtifactLocation: e.ArtifactLocation,
		LifecycleStage:   e.LifecycleStage,
		CreationTime:     e.CreationTime,
		LastUpdateTime:   e.LastUpdateTime,
		Tags:             make([]entities.ExperimentTag, 0, len(e.Tags)),
	}

	for _, tag := range e.Tags {
		experiment.Tags = append(experiment.Tags, entities.ExperimentTag{
			Key:   tag.Key,
			Value: tag.Value,
		})
	}

	return &experiment
}

func NewExperimentFromEntity(input *entities.CreateExperiment) *Experiment {
	now := time.Now().UnixMilli()
	experiment := Experiment{
		Name:             input.Name,
		ArtifactLocation: input.ArtifactLocation,
		LifecycleStage:   entities.LifecycleStageActive,
		CreationTime:     now,
		LastUpdateTime:   now,
		Tags:             make([]ExperimentTag, 0, len(input.Tags)),
	}

	for _, tag := range input.Tags {
		experiment.Tags = append(experiment.Tags, ExperimentTag{
			Key:   tag.Key,
			Value: tag.Value,
		})
	}

	return &experiment
}
