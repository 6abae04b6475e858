package model

import (
	"strconv"

	"github.com/mlflow/mlflow-go-backend/pkg/entities"
)

// Run mapped from table <runs>.
type Run struct {
	RunID          string                  `gorm:"column:run_uuid;primaryKey"`
	Name           string                  `gorm:"column:name"`
	SourceType     entities.SourceType     `gorm:"column:source_type"`
	SourceName     string                  `gorm:"column:source_name"`
	EntryPointName string                  `gorm:"column:entry_point_name"`
	UserID         string                  `gorm:"column:user_id"`
	Status         entities.RunStatus      `gorm:"column:status"`
	StartTime      int64                   `gorm:"column:start_time"`
	EndTime        *int64                  `gorm:"column:end_time"`
	SourceVersion  string                  `gorm:"column:source_version"`
	LifecycleStage entities.LifecycleStage `gorm:"column:lifecycle_stage"`
	ArtifactURI    string                  `gorm:"column:artifact_uri"`
	ExperimentID   int32                   `gorm:"column:experiment_id"`
	DeletedTime    *int64                  `gorm:"column:deleted_time"`
	Params         []Param                 `gorm:"foreignKey:RunID"`
	Tags           []Tag                   `gorm:"foreignKey:RunID"`
	Metrics        []Metric                `gorm:"foreignKey:RunID"`
	LatestMetrics  []LatestMetric          `gorm:"foreignKey:RunID"`
	Inputs         []Input                 `gorm:"foreignKey:DestinationID"`
}

func (r Run) ToEntity() *entities.Run {
	info := entities.RunInfo{
		RunID:          r.RunID,
		RunName:        r.Name,
		ExperimentID:   strconv.FormatInt(int64(r.ExperimentID), 10),
		UserID:         r.UserID,
		Status:         r.Status,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		ArtifactURI:    r.ArtifactURI,
		LifecycleStage: r.LifecycleStage,
		DeletedTime:    r.DeletedTime,
	}

	data := entities.RunData{
		Metrics: make([]entities.Metric, 0, len(r.LatestMetrics)),
		Params:  make([]entities.Param, 0, len(r.Params)),
		Tags:    make([]entities.RunTag, 0, len(r.Tags)),
	}

	for _, metric := range r.LatestMetrics {
		data.Metrics = append(data.Metrics, *metric.ToEntity())
	}

	for _, param := range r.Params {
		data.Params = append(data.Params, entities.Param{Key: param.Key, Value: param.Value})
	}

	for _, tag := range r.Tags {
		data.Tags = append(data.Tags, entities.RunTag{Key: tag.Key, Value: tag.Value})
	}

	inputs := make([]entities.DatasetInput, 0, len(r.Inputs))
	for _, input := range r.Inputs {
		inputs = append(inputs, *input.ToEntity())
	}

	return &entities.Run{Info: info, Data: data, Inputs: inputs}
}
