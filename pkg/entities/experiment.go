package entities

type Experiment struct {
	ExperimentID     string
	Name             string
	ArtifactLocation string
	LifecycleStage   LifecycleStage
	CreationTime     int64
	LastUpdateTime   int64
	Tags             []ExperimentTag
}

type ExperimentTag struct {
	Key   string `validate:"required,max=250"`
	Value string `validate:"max=5000"`
}

// CreateExperiment is the input for TrackingStore.CreateExperiment.
type CreateExperiment struct {
	Name             string `validate:"required,max=500"`
	ArtifactLocation string `validate:"omitempty,uriWithoutFragment"`
	Tags             []ExperimentTag
}
