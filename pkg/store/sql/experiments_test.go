package sql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlflow/mlflow-go-backend/pkg/contract"
	"github.com/mlflow/mlflow-go-backend/pkg/entities"
)

func TestCreateExperimentDuplicateName(t *testing.T) {
	store := newTestStore(t)

	createTestExperiment(t, store, "exp-a")

	_, contractError := store.CreateExperiment(&entities.CreateExperiment{Name: "exp-a"})
	requireErrorCode(t, contractError, contract.ErrorCodeResourceAlreadyExists)
}

func TestDeletedExperimentKeepsItsName(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "exp-a")
	require.Nil(t, store.DeleteExperiment(id))

	// The unique constraint has no stage qualifier: a deleted experiment
	// holds its name until restored or permanently removed.
	_, contractError := store.CreateExperiment(&entities.CreateExperiment{Name: "exp-a"})
	requireErrorCode(t, contractError, contract.ErrorCodeResourceAlreadyExists)
}

func TestCreateExperimentDefaultArtifactLocation(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "artifacts")

	experiment, contractError := store.GetExperiment(id)
	require.Nil(t, contractError)
	require.Equal(t, "file:///tmp/mlflow-artifacts/"+id, experiment.ArtifactLocation)
}

func TestGetExperimentByName(t *testing.T) {
	store := newTestStore(t)

	createTestExperiment(t, store, "named")

	experiment, contractError := store.GetExperimentByName("named")
	require.Nil(t, contractError)
	require.Equal(t, "named", experiment.Name)

	_, contractError = store.GetExperimentByName("missing")
	requireErrorCode(t, contractError, contract.ErrorCodeResourceDoesNotExist)
}

func TestDeleteExperimentSoftDeletesRuns(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "doomed")
	run := createTestRun(t, store, id)

	require.Nil(t, store.DeleteExperiment(id))

	experiment, contractError := store.GetExperiment(id)
	require.Nil(t, contractError)
	require.Equal(t, entities.LifecycleStageDeleted, experiment.LifecycleStage)

	deletedRun, contractError := store.GetRun(run.Info.RunID)
	require.Nil(t, contractError)
	require.Equal(t, entities.LifecycleStageDeleted, deletedRun.Info.LifecycleStage)
	require.NotNil(t, deletedRun.Info.DeletedTime)

	// Deleting twice is not legal: the first delete left the active stage.
	contractError = store.DeleteExperiment(id)
	requireErrorCode(t, contractError, contract.ErrorCodeResourceDoesNotExist)
}

func TestRestoreExperimentRestoresRuns(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "revived")
	run := createTestRun(t, store, id)

	require.Nil(t, store.DeleteExperiment(id))
	require.Nil(t, store.RestoreExperiment(id))

	experiment, contractError := store.GetExperiment(id)
	require.Nil(t, contractError)
	require.Equal(t, entities.LifecycleStageActive, experiment.LifecycleStage)

	restoredRun, contractError := store.GetRun(run.Info.RunID)
	require.Nil(t, contractError)
	require.Equal(t, entities.LifecycleStageActive, restoredRun.Info.LifecycleStage)
	require.Nil(t, restoredRun.Info.DeletedTime)
}

func TestRestoreActiveExperimentFails(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "already-active")

	contractError := store.RestoreExperiment(id)
	requireErrorCode(t, contractError, contract.ErrorCodeResourceDoesNotExist)
}

func TestRenameExperiment(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "before")
	createTestExperiment(t, store, "taken")

	require.Nil(t, store.RenameExperiment(id, "after"))

	experiment, contractError := store.GetExperiment(id)
	require.Nil(t, contractError)
	require.Equal(t, "after", experiment.Name)

	contractError = store.RenameExperiment(id, "taken")
	requireErrorCode(t, contractError, contract.ErrorCodeResourceAlreadyExists)

	require.Nil(t, store.DeleteExperiment(id))
	contractError = store.RenameExperiment(id, "post-delete")
	requireErrorCode(t, contractError, contract.ErrorCodeInvalidState)
}

func TestSetExperimentTag(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "tagged")

	require.Nil(t, store.SetExperimentTag(id, "team", "ml-platform"))
	require.Nil(t, store.SetExperimentTag(id, "team", "ml-infra"))

	experiment, contractError := store.GetExperiment(id)
	require.Nil(t, contractError)
	require.Len(t, experiment.Tags, 1)
	require.Equal(t, "ml-infra", experiment.Tags[0].Value)

	require.Nil(t, store.DeleteExperiment(id))
	contractError = store.SetExperimentTag(id, "team", "ghosts")
	requireErrorCode(t, contractError, contract.ErrorCodeInvalidState)
}

func TestListExperimentsPagination(t *testing.T) {
	store := newTestStore(t)

	createTestExperiment(t, store, "list-1")
	createTestExperiment(t, store, "list-2")
	id3 := createTestExperiment(t, store, "list-3")
	require.Nil(t, store.DeleteExperiment(id3))

	page, contractError := store.ListExperiments(entities.ViewTypeActiveOnly, 1, "")
	require.Nil(t, contractError)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.NextPageToken)

	page, contractError = store.ListExperiments(entities.ViewTypeActiveOnly, 1, *page.NextPageToken)
	require.Nil(t, contractError)
	require.Len(t, page.Items, 1)

	deleted, contractError := store.ListExperiments(entities.ViewTypeDeletedOnly, 10, "")
	require.Nil(t, contractError)
	require.Len(t, deleted.Items, 1)
	require.Equal(t, "list-3", deleted.Items[0].Name)

	all, contractError := store.ListExperiments(entities.ViewTypeAll, 10, "")
	require.Nil(t, contractError)
	require.Len(t, all.Items, 3)
}
