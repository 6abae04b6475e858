package model

import "github.com/mlflow/mlflow-go-backend/pkg/entities"

// Dataset mapped from table <datasets>.
type Dataset struct {
	DatasetUUID       string `gorm:"column:dataset_uuid;not null"`
	ExperimentID      int32  `gorm:"column:experiment_id;primaryKey"`
	Name              string `gorm:"column:name;primaryKey"`
	Digest            string `gorm:"column:digest;primaryKey"`
	DatasetSourceType string `gorm:"column:dataset_source_type;not null"`
	DatasetSource     string `gorm:"column:dataset_source;not null"`
	DatasetSchema     string `gorm:"column:dataset_schema"`
	DatasetProfile    string `gorm:"column:dataset_profile"`
}

func (d Dataset) ToEntity() *entities.Dataset {
	return &entities.Dataset{
		Name:       d.Name,
		Digest:     d.Digest,
		SourceType: d.DatasetSourceType,
		Source:     d.DatasetSource,
		Schema:     d.DatasetSchema,
		Profile:    d.DatasetProfile,
	}
}
