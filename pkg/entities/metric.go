package entities

// Metric is one sample of the append-only metric log. The full tuple
// (key, timestamp, step, value, is_nan) plus the owning run identifies a
// row; identical tuples are legal duplicates collapsed to one row.
type Metric struct {
	Key       string `validate:"required,max=250"`
	Value     float64
	Timestamp int64
	Step      int64
	IsNaN     bool
}

type Param struct {
	Key   string `validate:"required,max=250"`
	Value string `validate:"max=6000"`
}
