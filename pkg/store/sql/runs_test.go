package sql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlflow/mlflow-go-backend/pkg/contract"
	"github.com/mlflow/mlflow-go-backend/pkg/entities"
	"github.com/mlflow/mlflow-go-backend/pkg/utils"
)

func TestCreateRun(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "runs")

	run, contractError := store.CreateRun(&entities.CreateRun{
		ExperimentID: id,
		RunName:      "first",
		UserID:       "tester",
		SourceType:   entities.SourceTypeLocal,
		StartTime:    1700000000000,
	})
	require.Nil(t, contractError)
	require.Len(t, run.Info.RunID, 36)
	require.Equal(t, entities.RunStatusRunning, run.Info.Status)
	require.Equal(t, entities.LifecycleStageActive, run.Info.LifecycleStage)
	require.Contains(t, run.Info.ArtifactURI, run.Info.RunID)
}

func TestCreateRunUnknownExperiment(t *testing.T) {
	store := newTestStore(t)

	_, contractError := store.CreateRun(&entities.CreateRun{ExperimentID: "999"})
	requireErrorCode(t, contractError, contract.ErrorCodeResourceDoesNotExist)
}

func TestCreateRunOnDeletedExperiment(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "gone")
	require.Nil(t, store.DeleteExperiment(id))

	_, contractError := store.CreateRun(&entities.CreateRun{ExperimentID: id})
	requireErrorCode(t, contractError, contract.ErrorCodeInvalidState)
}

func TestUpdateRunTerminalStatusDoesNotRevert(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "statuses")
	run := createTestRun(t, store, id)

	contractError := store.UpdateRun(&entities.UpdateRun{
		RunID:   run.Info.RunID,
		Status:  entities.RunStatusFinished,
		EndTime: utils.PtrTo(int64(1700000001000)),
	})
	require.Nil(t, contractError)

	updated, contractError := store.GetRun(run.Info.RunID)
	require.Nil(t, contractError)
	require.Equal(t, entities.RunStatusFinished, updated.Info.Status)
	require.NotNil(t, updated.Info.EndTime)

	contractError = store.UpdateRun(&entities.UpdateRun{
		RunID:  run.Info.RunID,
		Status: entities.RunStatusRunning,
	})
	requireErrorCode(t, contractError, contract.ErrorCodeInvalidState)

	// Re-asserting the same terminal status is a no-op, not a transition.
	contractError = store.UpdateRun(&entities.UpdateRun{
		RunID:  run.Info.RunID,
		Status: entities.RunStatusFinished,
	})
	require.Nil(t, contractError)
}

func TestDeleteAndRestoreRun(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "lifecycle")
	run := createTestRun(t, store, id)

	require.Nil(t, store.DeleteRun(run.Info.RunID))

	deleted, contractError := store.GetRun(run.Info.RunID)
	require.Nil(t, contractError)
	require.Equal(t, entities.LifecycleStageDeleted, deleted.Info.LifecycleStage)
	require.NotNil(t, deleted.Info.DeletedTime)

	// A deleted run rejects writes.
	contractError = store.LogMetric(run.Info.RunID, &entities.Metric{Key: "loss", Value: 1})
	requireErrorCode(t, contractError, contract.ErrorCodeInvalidState)

	contractError = store.SetTag(run.Info.RunID, "k", "v")
	requireErrorCode(t, contractError, contract.ErrorCodeInvalidState)

	// Delete is not idempotent: the stage already moved.
	contractError = store.DeleteRun(run.Info.RunID)
	requireErrorCode(t, contractError, contract.ErrorCodeResourceDoesNotExist)

	require.Nil(t, store.RestoreRun(run.Info.RunID))

	restored, contractError := store.GetRun(run.Info.RunID)
	require.Nil(t, contractError)
	require.Equal(t, entities.LifecycleStageActive, restored.Info.LifecycleStage)
	require.Nil(t, restored.Info.DeletedTime)
}

func TestSetTagMirrorsReservedKeys(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "mirrors")
	run := createTestRun(t, store, id)

	require.Nil(t, store.SetTag(run.Info.RunID, "mlflow.runName", "renamed"))
	require.Nil(t, store.SetTag(run.Info.RunID, "mlflow.user", "someone-else"))

	updated, contractError := store.GetRun(run.Info.RunID)
	require.Nil(t, contractError)
	require.Equal(t, "renamed", updated.Info.RunName)
	require.Equal(t, "someone-else", updated.Info.UserID)
	require.Len(t, updated.Data.Tags, 2)
}

func TestSetTagLastWriteWins(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "tag-upsert")
	run := createTestRun(t, store, id)

	require.Nil(t, store.SetTag(run.Info.RunID, "quality", "bad"))
	require.Nil(t, store.SetTag(run.Info.RunID, "quality", "good"))

	updated, contractError := store.GetRun(run.Info.RunID)
	require.Nil(t, contractError)
	require.Len(t, updated.Data.Tags, 1)
	require.Equal(t, "good", updated.Data.Tags[0].Value)
}

func TestDeleteTag(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "tag-delete")
	run := createTestRun(t, store, id)

	require.Nil(t, store.SetTag(run.Info.RunID, "temp", "yes"))
	require.Nil(t, store.DeleteTag(run.Info.RunID, "temp"))

	contractError := store.DeleteTag(run.Info.RunID, "temp")
	requireErrorCode(t, contractError, contract.ErrorCodeResourceDoesNotExist)
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)

	_, contractError := store.GetRun("00000000-0000-0000-0000-000000000000")
	requireErrorCode(t, contractError, contract.ErrorCodeResourceDoesNotExist)
}

func TestSearchRunsLifecycleViews(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "search")
	active := createTestRun(t, store, id)
	doomed := createTestRun(t, store, id)
	require.Nil(t, store.DeleteRun(doomed.Info.RunID))

	activeOnly, contractError := store.SearchRuns(
		[]string{id}, entities.ViewTypeActiveOnly, 10, nil, "",
	)
	require.Nil(t, contractError)
	require.Len(t, activeOnly.Items, 1)
	require.Equal(t, active.Info.RunID, activeOnly.Items[0].Info.RunID)

	deletedOnly, contractError := store.SearchRuns(
		[]string{id}, entities.ViewTypeDeletedOnly, 10, nil, "",
	)
	require.Nil(t, contractError)
	require.Len(t, deletedOnly.Items, 1)
	require.Equal(t, doomed.Info.RunID, deletedOnly.Items[0].Info.RunID)

	all, contractError := store.SearchRuns([]string{id}, entities.ViewTypeAll, 10, nil, "")
	require.Nil(t, contractError)
	require.Len(t, all.Items, 2)
}

func TestSearchRunsOrderByMetric(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "ordering")
	low := createTestRun(t, store, id)
	high := createTestRun(t, store, id)

	require.Nil(t, store.LogMetric(low.Info.RunID, &entities.Metric{Key: "acc", Value: 0.5, Step: 1}))
	require.Nil(t, store.LogMetric(high.Info.RunID, &entities.Metric{Key: "acc", Value: 0.9, Step: 1}))

	page, contractError := store.SearchRuns(
		[]string{id}, entities.ViewTypeActiveOnly, 10, []string{"metrics.acc DESC"}, "",
	)
	require.Nil(t, contractError)
	require.Len(t, page.Items, 2)
	require.Equal(t, high.Info.RunID, page.Items[0].Info.RunID)

	_, contractError = store.SearchRuns(
		[]string{id}, entities.ViewTypeActiveOnly, 10, []string{"nonsense!!"}, "",
	)
	requireErrorCode(t, contractError, contract.ErrorCodeInvalidParameterValue)
}

func TestSearchRunsPagination(t *testing.T) {
	store := newTestStore(t)

	id := createTestExperiment(t, store, "paging")
	for i := 0; i < 3; i++ {
		createTestRun(t, store, id)
	}

	page, contractError := store.SearchRuns([]string{id}, entities.ViewTypeActiveOnly, 2, nil, "")
	require.Nil(t, contractError)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.NextPageToken)

	rest, contractError := store.SearchRuns(
		[]string{id}, entities.ViewTypeActiveOnly, 2, nil, *page.NextPageToken,
	)
	require.Nil(t, contractError)
	require.Len(t, rest.Items, 1)

	_, contractError = store.SearchRuns([]string{id}, entities.ViewTypeActiveOnly, 2, nil, "!!!")
	requireErrorCode(t, contractError, contract.ErrorCodeInvalidParameterValue)
}
