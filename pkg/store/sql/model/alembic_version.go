package model

// AlembicVersion mapped from table <alembic_version>: the single-row
// schema-revision marker owned by external migration tooling. The store
// reads it back verbatim and never interprets it.
type AlembicVersion struct {
	VersionNum string `gorm:"column:version_num;primaryKey"`
}

func (AlembicVersion) TableName() string {
	return "alembic_version"
}
