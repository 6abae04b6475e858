package model

import "github.com/mlflow/mlflow-go-backend/pkg/entities"

// Tag mapped from table <tags>.
type Tag struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value"`
	RunID string `gorm:"column:run_uuid;primaryKey"`
}

func NewTagFromEntity(runID string, tag *entities.RunTag) Tag {
	return Tag{Key: tag.Key, Value: tag.Value, RunID: runID}
}
