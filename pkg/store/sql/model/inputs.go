package model

import "github.com/mlflow/mlflow-go-backend/pkg/entities"

const (
	InputSourceTypeDataset  = "DATASET"
	InputDestinationTypeRun = "RUN"
)

// Input mapped from table <inputs>: a directed lineage edge, typically
// dataset to run. The edge itself is the primary key; input_uuid is a
// surrogate the tags hang off.
type Input struct {
	InputUUID       string     `gorm:"column:input_uuid;not null"`
	SourceType      string     `gorm:"column:source_type;primaryKey"`
	SourceID        string     `gorm:"column:source_id;primaryKey"`
	DestinationType string     `gorm:"column:destination_type;primaryKey"`
	DestinationID   string     `gorm:"column:destination_id;primaryKey"`
	Tags            []InputTag `gorm:"foreignKey:InputUUID;references:InputUUID"`
	Dataset         Dataset    `gorm:"foreignKey:SourceID;references:DatasetUUID"`
}

func (i Input) ToEntity() *entities.DatasetInput {
	input := entities.DatasetInput{
		Dataset: *i.Dataset.ToEntity(),
		Tags:    make([]entities.InputTag, 0, len(i.Tags)),
	}

	for _, tag := range i.Tags {
		input.Tags = append(input.Tags, entities.InputTag{Key: tag.Key, Value: tag.Value})
	}

	return &input
}
