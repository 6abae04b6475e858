package model

import "github.com/mlflow/mlflow-go-backend/pkg/entities"

// RegisteredModel mapped from table <registered_models>.
type RegisteredModel struct {
	Name            string                 `gorm:"column:name;primaryKey"`
	CreationTime    int64                  `gorm:"column:creation_time"`
	LastUpdatedTime int64                  `gorm:"column:last_updated_time"`
	Description     string                 `gorm:"column:description"`
	Tags            []RegisteredModelTag   `gorm:"foreignKey:Name;references:Name"`
	Aliases         []RegisteredModelAlias `gorm:"foreignKey:Name;references:Name"`
	Versions        []ModelVersion         `gorm:"foreignKey:Name;references:Name"`
}

func (m RegisteredModel) ToEntity() *entities.RegisteredModel {
	registeredModel := entities.RegisteredModel{
		Name:            m.Name,
		CreationTime:    m.CreationTime,
		LastUpdatedTime: m.LastUpdatedTime,
		Description:     m.Description,
		Tags:            make([]entities.RegisteredModelTag, 0, len(m.Tags)),
		Aliases:         make([]entities.RegisteredModelAlias, 0, len(m.Aliases)),
		Versions:        make([]entities.ModelVersion, 0, len(m.Versions)),
	}

	for _, tag := range m.Tags {
		registeredModel.Tags = append(registeredModel.Tags, entities.RegisteredModelTag{
			Key:   tag.Key,
			Value: tag.Value,
		})
	}

	for _, alias := range m.Aliases {
		registeredModel.Aliases = append(registeredModel.Aliases, entities.RegisteredModelAlias{
			Alias:   alias.Alias,
			Version: alias.Version,
		})
	}

	for _, version := range m.Versions {
		registeredModel.Versions = append(registeredModel.Versions, *version.ToEntity())
	}

	return &registeredModel
}
