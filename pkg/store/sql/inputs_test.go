package sql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlflow/mlflow-go-backend/pkg/contract"
	"github.com/mlflow/mlflow-go-backend/pkg/entities"
	"github.com/mlflow/mlflow-go-backend/pkg/store/sql/model"
)

func trainingSetInput() *entities.DatasetInput {
	return &entities.DatasetInput{
		Dataset: entities.Dataset{
			Name:       "train",
			Digest:     "abc123",
			SourceType: "s3",
			Source:     `{"uri": "s3://bucket/train"}`,
			Schema:     `{"columns": ["a", "b"]}`,
			Profile:    `{"rows": 1000}`,
		},
		Tags: []entities.InputTag{
			{Key: "context", Value: "training"},
		},
	}
}

func TestLogInputs(t *testing.T) {
	store := newTestStore(t)
	id := createTestExperiment(t, store, "lineage")
	run := createTestRun(t, store, id)

	require.Nil(t, store.LogInputs(run.Info.RunID, []*entities.DatasetInput{trainingSetInput()}))

	updated, contractError := store.GetRun(run.Info.RunID)
	require.Nil(t, contractError)
	require.Len(t, updated.Inputs, 1)
	require.Equal(t, "train", updated.Inputs[0].Dataset.Name)
	require.Equal(t, "abc123", updated.Inputs[0].Dataset.Digest)
	require.Len(t, updated.Inputs[0].Tags, 1)
	require.Equal(t, "training", updated.Inputs[0].Tags[0].Value)
}

// Re-logging the same dataset against the same run leaves a single edge
// and a single dataset row.
func TestLogInputsIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	id := createTestExperiment(t, store, "replay")
	run := createTestRun(t, store, id)

	require.Nil(t, store.LogInputs(run.Info.RunID, []*entities.DatasetInput{trainingSetInput()}))
	require.Nil(t, store.LogInputs(run.Info.RunID, []*entities.DatasetInput{trainingSetInput()}))

	var edges int64
	require.NoError(t, store.db.Model(&model.Input{}).
		Where("destination_id = ?", run.Info.RunID).
		Count(&edges).Error)
	require.Equal(t, int64(1), edges)

	var datasets int64
	require.NoError(t, store.db.Model(&model.Dataset{}).Count(&datasets).Error)
	require.Equal(t, int64(1), datasets)
}

// Two runs of the same experiment consuming the same dataset share the
// dataset row; each run gets its own edge.
func TestLogInputsSharedDataset(t *testing.T) {
	store := newTestStore(t)
	id := createTestExperiment(t, store, "shared")
	first := createTestRun(t, store, id)
	second := createTestRun(t, store, id)

	require.Nil(t, store.LogInputs(first.Info.RunID, []*entities.DatasetInput{trainingSetInput()}))
	require.Nil(t, store.LogInputs(second.Info.RunID, []*entities.DatasetInput{trainingSetInput()}))

	var datasets int64
	require.NoError(t, store.db.Model(&model.Dataset{}).Count(&datasets).Error)
	require.Equal(t, int64(1), datasets)

	var edges int64
	require.NoError(t, store.db.Model(&model.Input{}).Count(&edges).Error)
	require.Equal(t, int64(2), edges)
}

func TestLogInputsMalformedPayload(t *testing.T) {
	store := newTestStore(t)
	id := createTestExperiment(t, store, "bad-payload")
	run := createTestRun(t, store, id)

	input := trainingSetInput()
	input.Dataset.Schema = `{"columns": [unquoted]}`

	contractError := store.LogInputs(run.Info.RunID, []*entities.DatasetInput{input})
	requireErrorCode(t, contractError, contract.ErrorCodeInvalidParameterValue)
}

func TestLogInputsOnDeletedRun(t *testing.T) {
	store := newTestStore(t)
	id := createTestExperiment(t, store, "gone-run")
	run := createTestRun(t, store, id)
	require.Nil(t, store.DeleteRun(run.Info.RunID))

	contractError := store.LogInputs(run.Info.RunID, []*entities.DatasetInput{trainingSetInput()})
	requireErrorCode(t, contractError, contract.ErrorCodeInvalidState)
}
