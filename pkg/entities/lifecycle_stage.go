package entities

// LifecycleStage is the soft visibility state of an experiment or run,
// orthogonal to a run's execution status.
type LifecycleStage string

const (
	LifecycleStageActive  LifecycleStage = "active"
	LifecycleStageDeleted LifecycleStage = "deleted"
)

// ViewType selects which lifecycle stages a listing operation returns.
type ViewType int32

const (
	ViewTypeActiveOnly ViewType = iota + 1
	ViewTypeDeletedOnly
	ViewTypeAll
)
