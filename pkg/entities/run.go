package entities

// RunStatus is the execution status of a run. SCHEDULED and RUNNING are
// transient; FINISHED, FAILED and KILLED are terminal.
type RunStatus string

const (
	RunStatusScheduled RunStatus = "SCHEDULED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusFinished  RunStatus = "FINISHED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusKilled    RunStatus = "KILLED"
)

func (s RunStatus) IsTerminal() bool {
	return s == RunStatusFinished || s == RunStatusFailed || s == RunStatusKilled
}

// SourceType describes where a run was launched from.
type SourceType string

const (
	SourceTypeNotebook SourceType = "NOTEBOOK"
	SourceTypeJob      SourceType = "JOB"
	SourceTypeLocal    SourceType = "LOCAL"
	SourceTypeProject  SourceType = "PROJECT"
	SourceTypeUnknown  SourceType = "UNKNOWN"
)

type Run struct {
	Info   RunInfo
	Data   RunData
	Inputs []DatasetInput
}

type RunInfo struct {
	RunID          string
	RunName        string
	ExperimentID   string
	UserID         string
	Status         RunStatus
	StartTime      int64
	EndTime        *int64
	ArtifactURI    string
	LifecycleStage LifecycleStage
	DeletedTime    *int64
}

type RunData struct {
	Metrics []Metric
	Params  []Param
	Tags    []RunTag
}

type RunTag struct {
	Key   string `validate:"required,max=250"`
	Value string `validate:"max=5000"`
}

// CreateRun is the input for TrackingStore.CreateRun.
type CreateRun struct {
	ExperimentID   string     `validate:"required"`
	RunName        string     `validate:"max=250"`
	UserID         string     `validate:"max=250"`
	SourceType     SourceType `validate:"omitempty,sourceType"`
	SourceName     string
	SourceVersion  string
	EntryPointName string
	StartTime      int64
	Tags           []RunTag `validate:"dive"`
}

// UpdateRun is the input for TrackingStore.UpdateRun. Zero-valued fields
// are left untouched.
type UpdateRun struct {
	RunID   string    `validate:"required,runID"`
	Status  RunStatus `validate:"omitempty,runStatus"`
	EndTime *int64
	RunName string `validate:"max=250"`
}
