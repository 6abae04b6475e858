package entities

// ModelVersionStatus tracks the registration state of a model version.
type ModelVersionStatus string

const (
	ModelVersionStatusPendingRegistration ModelVersionStatus = "PENDING_REGISTRATION"
	ModelVersionStatusFailedRegistration  ModelVersionStatus = "FAILED_REGISTRATION"
	ModelVersionStatusReady               ModelVersionStatus = "READY"
)

// ModelVersionStage is the deployment stage of a model version.
type ModelVersionStage string

const (
	ModelVersionStageNone       ModelVersionStage = "None"
	ModelVersionStageStaging    ModelVersionStage = "Staging"
	ModelVersionStageProduction ModelVersionStage = "Production"
	ModelVersionStageArchived   ModelVersionStage = "Archived"
)

type RegisteredModel struct {
	Name            string
	CreationTime    int64
	LastUpdatedTime int64
	Description     string
	Tags            []RegisteredModelTag
	Aliases         []RegisteredModelAlias
	Versions        []ModelVersion
}

type RegisteredModelTag struct {
	Key   string `validate:"required,max=250"`
	Value string `validate:"max=5000"`
}

type RegisteredModelAlias struct {
	Alias   string `validate:"required,max=255"`
	Version int32  `validate:"gt=0"`
}

type ModelVersion struct {
	Name            string
	Version         int32
	CreationTime    int64
	LastUpdatedTime int64
	Description     string
	UserID          string
	CurrentStage    ModelVersionStage
	Source          string
	RunID           string
	RunLink         string
	Status          ModelVersionStatus
	StatusMessage   string
	Tags            []ModelVersionTag
}

type ModelVersionTag struct {
	Key   string `validate:"required,max=250"`
	Value string `validate:"max=5000"`
}

// CreateRegisteredModel is the input for
// ModelRegistryStore.CreateRegisteredModel.
type CreateRegisteredModel struct {
	Name        string               `validate:"required,max=256"`
	Description string               `validate:"max=5000"`
	Tags        []RegisteredModelTag `validate:"dive"`
}

// CreateModelVersion is the input for
// ModelRegistryStore.CreateModelVersion. The version number itself is
// assigned by the store.
type CreateModelVersion struct {
	Name        string            `validate:"required,max=256"`
	Source      string            `validate:"required,max=500"`
	RunID       string            `validate:"omitempty,runID"`
	RunLink     string            `validate:"max=500"`
	Description string            `validate:"max=5000"`
	Tags        []ModelVersionTag `validate:"dive"`
}
