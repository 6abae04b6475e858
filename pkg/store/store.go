package store

import (
	"github.com/mlflow/mlflow-go-backend/pkg/contract"
	"github.com/mlflow/mlflow-go-backend/pkg/entities"
)

// TrackingStore is the persistence contract for experiments, runs and
// everything logged against them. Absence is always surfaced as a
// RESOURCE_DOES_NOT_EXIST error, never as an empty success.
type TrackingStore interface {
	CreateExperiment(input *entities.CreateExperiment) (string, *contract.Error)
	GetExperiment(id string) (*entities.Experiment, *contract.Error)
	GetExperimentByName(name string) (*entities.Experiment, *contract.Error)
	RenameExperiment(id, newName string) *contract.Error
	DeleteExperiment(id string) *contract.Error
	RestoreExperiment(id string) *contract.Error
	SetExperimentTag(id, key, value string) *contract.Error
	ListExperiments(
		viewType entities.ViewType, maxResults int, pageToken string,
	) (*PagedList[*entities.Experiment], *contract.Error)

	CreateRun(input *entities.CreateRun) (*entities.Run, *contract.Error)
	GetRun(runID string) (*entities.Run, *contract.Error)
	UpdateRun(input *entities.UpdateRun) *contract.Error
	DeleteRun(runID string) *contract.Error
	RestoreRun(runID string) *contract.Error
	SearchRuns(
		experimentIDs []string,
		viewType entities.ViewType,
		maxResults int,
		orderBy []string,
		pageToken string,
	) (*PagedList[*entities.Run], *contract.Error)

	LogParam(runID string, param *entities.Param) *contract.Error
	SetTag(runID, key, value string) *contract.Error
	DeleteTag(runID, key string) *contract.Error
	LogMetric(runID string, metric *entities.Metric) *contract.Error
	GetMetricHistory(runID, key string) ([]*entities.Metric, *contract.Error)
	LogBatch(
		runID string,
		metrics []*entities.Metric,
		params []*entities.Param,
		tags []*entities.RunTag,
	) *contract.Error
	LogInputs(runID string, inputs []*entities.DatasetInput) *contract.Error

	// SchemaVersion returns the raw schema-revision marker written by
	// external migration tooling. The store never interprets the value.
	SchemaVersion() (string, *contract.Error)
}

// ModelRegistryStore is the persistence contract for registered models,
// their versions, tags and aliases.
type ModelRegistryStore interface {
	CreateRegisteredModel(input *entities.CreateRegisteredModel) (*entities.RegisteredModel, *contract.Error)
	GetRegisteredModel(name string) (*entities.RegisteredModel, *contract.Error)
	UpdateRegisteredModel(name, description string) *contract.Error
	RenameRegisteredModel(name, newName string) *contract.Error
	DeleteRegisteredModel(name string) *contract.Error
	SetRegisteredModelTag(name, key, value string) *contract.Error
	DeleteRegisteredModelTag(name, key string) *contract.Error

	CreateModelVersion(input *entities.CreateModelVersion) (*entities.ModelVersion, *contract.Error)
	GetModelVersion(name string, version int32) (*entities.ModelVersion, *contract.Error)
	UpdateModelVersion(name string, version int32, description string) *contract.Error
	TransitionModelVersionStage(name string, version int32, stage entities.ModelVersionStage) *contract.Error
	DeleteModelVersion(name string, version int32) *contract.Error
	SetModelVersionTag(name string, version int32, key, value string) *contract.Error
	DeleteModelVersionTag(name string, version int32, key string) *contract.Error

	SetRegisteredModelAlias(name, alias string, version int32) *contract.Error
	DeleteRegisteredModelAlias(name, alias string) *contract.Error
	GetModelVersionByAlias(name, alias string) (*entities.ModelVersion, *contract.Error)
}

type PagedList[T any] struct {
	Items         []T
	NextPageToken *string
}
