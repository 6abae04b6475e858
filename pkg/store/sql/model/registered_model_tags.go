package model

// RegisteredModelTag mapped from table <registered_model_tags>.
type RegisteredModelTag struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value"`
	Name  string `gorm:"column:name;primaryKey"`
}
