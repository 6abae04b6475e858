package entities

// Dataset describes a dataset used by a run, identified within its
// experiment by (name, digest). Schema and Profile are opaque serialized
// payloads; when non-empty they must be well-formed JSON.
type Dataset struct {
	Name       string `validate:"required,max=500"`
	Digest     string `validate:"required,max=36"`
	SourceType string `validate:"max=36"`
	Source     string `validate:"required"`
	Schema     string
	Profile    string
}

// DatasetInput is a lineage edge from a dataset to a run, annotated with
// input tags.
type DatasetInput struct {
	Dataset Dataset    `validate:"required"`
	Tags    []InputTag `validate:"dive"`
}

type InputTag struct {
	Key   string `validate:"required,max=255"`
	Value string `validate:"required,max=500"`
}
