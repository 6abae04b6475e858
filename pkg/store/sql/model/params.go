package model

import "github.com/mlflow/mlflow-go-backend/pkg/entities"

// Param mapped from table <params>.
type Param struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value;not null"`
	RunID string `gorm:"column:run_uuid;primaryKey"`
}

func NewParamFromEntity(runID string, param *entities.Param) Param {
	return Param{Key: param.Key, Value: param.Value, RunID: runID}
}
