package model

// RegisteredModelAlias mapped from table <registered_model_aliases>. An
// alias is meaningless without its model, so model delete and rename both
// fan out here.
type RegisteredModelAlias struct {
	Alias   string `gorm:"column:alias;primaryKey"`
	Version int32  `gorm:"column:version;not null"`
	Name    string `gorm:"column:name;primaryKey"`
}
