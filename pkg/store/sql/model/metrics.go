package model

import (
	"math"

	"github.com/mlflow/mlflow-go-backend/pkg/entities"
)

// Metric mapped from table <metrics>. The whole tuple is the primary key:
// the log is append-only, and an exact duplicate insert collapses onto the
// existing row.
type Metric struct {
	Key       string  `gorm:"column:key;primaryKey"`
	Value     float64 `gorm:"column:value;primaryKey"`
	Timestamp int64   `gorm:"column:timestamp;primaryKey"`
	RunID     string  `gorm:"column:run_uuid;primaryKey"`
	Step      int64   `gorm:"column:step;primaryKey"`
	IsNaN     bool    `gorm:"column:is_nan;primaryKey"`
}

// NewMetricFromEntity normalizes values that cannot live in a numeric
// column used as part of a key: NaN is stored as 0 with the is_nan flag
// set, infinities are clamped to the largest representable float.
func NewMetricFromEntity(runID string, metric *entities.Metric) Metric {
	value := metric.Value
	isNaN := metric.IsNaN

	switch {
	case math.IsNaN(value):
		value = 0
		isNaN = true
	case math.IsInf(value, 1):
		value = math.MaxFloat64
	case math.IsInf(value, -1):
		value = -math.MaxFloat64
	}

	return Metric{
		Key:       metric.Key,
		Value:     value,
		Timestamp: metric.Timestamp,
		RunID:     runID,
		Step:      metric.Step,
		IsNaN:     isNaN,
	}
}

func (m Metric) ToEntity() *entities.Metric {
	return &entities.Metric{
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Timestamp,
		Step:      m.Step,
		IsNaN:     m.IsNaN,
	}
}

// AsLatest projects the sample onto the latest-value cache row shape.
func (m Metric) AsLatest() LatestMetric {
	return LatestMetric{
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Timestamp,
		Step:      m.Step,
		IsNaN:     m.IsNaN,
		RunID:     m.RunID,
	}
}
