package sql

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mlflow/mlflow-go-backend/pkg/contract"
	"github.com/mlflow/mlflow-go-backend/pkg/entities"
	"github.com/mlflow/mlflow-go-backend/pkg/store"
	"github.com/mlflow/mlflow-go-backend/pkg/store/sql/model"
)

// getActiveRun loads the run row and rejects the operation unless the run
// is in the active lifecycle stage.
func getActiveRun(transaction *gorm.DB, runID string) (*model.Run, *contract.Error) {
	var run model.Run

	err := transaction.Where("run_uuid = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("Run with id=%s not found", runID),
			)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to get run %q", runID),
			err,
		)
	}

	if run.LifecycleStage != entities.LifecycleStageActive {
		return nil, contract.NewError(
			contract.ErrorCodeInvalidState,
			fmt.Sprintf(
				"The run %s must be in the 'active' state.\nCurrent state is %v.",
				runID,
				run.LifecycleStage,
			),
		)
	}

	return &run, nil
}

func checkRunIsActive(transaction *gorm.DB, runID string) *contract.Error {
	_, contractError := getActiveRun(transaction, runID)

	return contractError
}

func (s *Store) CreateRun(input *entities.CreateRun) (*entities.Run, *contract.Error) {
	if contractError := s.validateInput(input); contractError != nil {
		return nil, contractError
	}

	experimentID, contractError := parseExperimentID(input.ExperimentID)
	if contractError != nil {
		return nil, contractError
	}

	run := model.Run{
		RunID:          uuid.NewString(),
		Name:           input.RunName,
		SourceType:     input.SourceType,
		SourceName:     input.SourceName,
		SourceVersion:  input.SourceVersion,
		EntryPointName: input.EntryPointName,
		UserID:         input.UserID,
		Status:         entities.RunStatusRunning,
		StartTime:      input.StartTime,
		LifecycleStage: entities.LifecycleStageActive,
		ExperimentID:   experimentID,
	}

	if run.SourceType == "" {
		run.SourceType = entities.SourceTypeUnknown
	}

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		var experiment model.Experiment
		if err := transaction.First(&experiment, experimentID).Error; err != nil {
			return err
		}

		if experiment.LifecycleStage != entities.LifecycleStageActive {
			return contract.NewError(
				contract.ErrorCodeInvalidState,
				fmt.Sprintf(
					"Could not create run under non-active experiment with ID %d.",
					experimentID,
				),
			)
		}

		artifactURI, err := url.JoinPath(experiment.ArtifactLocation, run.RunID, "artifacts")
		if err != nil {
			return fmt.Errorf("failed to join artifact uri: %w", err)
		}

		run.ArtifactURI = artifactURI

		if err := transaction.Create(&run).Error; err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		return setRunTags(transaction, run.RunID, input.Tags)
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return nil, contractError
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("No Experiment with id=%d exists", experimentID),
			)
		}

		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to create run", err)
	}

	return s.GetRun(run.RunID)
}

func (s *Store) GetRun(runID string) (*entities.Run, *contract.Error) {
	var run model.Run

	err := s.db.Where("run_uuid = ?", runID).
		Preload("LatestMetrics").
		Preload("Params").
		Preload("Tags").
		Preload("Inputs", "inputs.destination_type = ?", model.InputDestinationTypeRun).
		Preload("Inputs.Dataset").
		Preload("Inputs.Tags").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("Run with id=%s not found", runID),
			)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to get run %q", runID),
			err,
		)
	}

	return run.ToEntity(), nil
}

// UpdateRun updates status, end time and name. A terminal status never
// silently reverts: moving out of FINISHED, FAILED or KILLED is rejected.
func (s *Store) UpdateRun(input *entities.UpdateRun) *contract.Error {
	if contractError := s.validateInput(input); contractError != nil {
		return contractError
	}

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		run, contractError := getActiveRun(transaction, input.RunID)
		if contractError != nil {
			return contractError
		}

		if input.Status != "" && input.Status != run.Status && run.Status.IsTerminal() {
			return contract.NewError(
				contract.ErrorCodeInvalidState,
				fmt.Sprintf(
					"Cannot change status of run %s from terminal status %s to %s.",
					input.RunID,
					run.Status,
					input.Status,
				),
			)
		}

		columns := make(map[string]any)

		if input.Status != "" {
			columns["status"] = input.Status
		}

		if input.EndTime != nil {
			columns["end_time"] = *input.EndTime
		}

		if input.RunName != "" {
			columns["name"] = input.RunName
		}

		if len(columns) == 0 {
			return nil
		}

		if err := transaction.Model(&model.Run{}).
			Where("run_uuid = ?", input.RunID).
			Updates(columns).Error; err != nil {
			return fmt.Errorf("failed to update run %q: %w", input.RunID, err)
		}

		if input.RunName != "" {
			runNameTag := entities.RunTag{Key: runNameTagKey, Value: input.RunName}
			if err := setRunTags(transaction, input.RunID, []entities.RunTag{runNameTag}); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to update run", err)
	}

	return nil
}

func (s *Store) DeleteRun(runID string) *contract.Error {
	return s.setRunLifecycleStage(
		runID,
		entities.LifecycleStageActive,
		entities.LifecycleStageDeleted,
	)
}

func (s *Store) RestoreRun(runID string) *contract.Error {
	return s.setRunLifecycleStage(
		runID,
		entities.LifecycleStageDeleted,
		entities.LifecycleStageActive,
	)
}

// setRunLifecycleStage flips the visibility axis of a run, stamping
// deleted_time on the way down and clearing it on the way back.
func (s *Store) setRunLifecycleStage(runID string, from, to entities.LifecycleStage) *contract.Error {
	columns := map[string]any{
		"lifecycle_stage": to,
		"deleted_time":    nil,
	}
	if to == entities.LifecycleStageDeleted {
		columns["deleted_time"] = time.Now().UnixMilli()
	}

	update := s.db.Model(&model.Run{}).
		Where("run_uuid = ?", runID).
		Where("lifecycle_stage = ?", from).
		Updates(columns)
	if update.Error != nil {
		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to set lifecycle stage for run %q", runID),
			update.Error,
		)
	}

	if update.RowsAffected != 1 {
		return contract.NewError(
			contract.ErrorCodeResourceDoesNotExist,
			fmt.Sprintf("Run with id=%s not found", runID),
		)
	}

	return nil
}

var runOrder = regexp.MustCompile(
	`^(attribute|metric|param|tag)s?\.("[^"]+"|` + "`[^`]+`" + `|[\w\.]+)(?i:\s+(ASC|DESC))?$`,
)

//nolint:cyclop
func applyOrderBy(db, transaction *gorm.DB, orderBy []string) *contract.Error {
	startTimeOrder := false

	for index, orderByClause := range orderBy {
		components := runOrder.FindStringSubmatch(orderByClause)
		//nolint:mnd
		if len(components) < 3 {
			return contract.NewError(
				contract.ErrorCodeInvalidParameterValue,
				"invalid order by clause: "+orderByClause,
			)
		}

		column := strings.Trim(components[2], "`\"")

		var kind any

		switch components[1] {
		case "attribute":
			if column == "start_time" {
				startTimeOrder = true
			}
		case "metric":
			kind = &model.LatestMetric{}
		case "param":
			kind = &model.Param{}
		case "tag":
			kind = &model.Tag{}
		default:
			return contract.NewError(
				contract.ErrorCodeInvalidParameterValue,
				fmt.Sprintf(
					"invalid entity type '%s'. Valid values are ['metric', 'parameter', 'tag', 'attribute']",
					components[1],
				),
			)
		}

		if kind != nil {
			table := fmt.Sprintf("order_%d", index)
			transaction.Joins(
				fmt.Sprintf("LEFT OUTER JOIN (?) AS %s ON runs.run_uuid = %s.run_uuid", table, table),
				db.Select("run_uuid", "value").Where("key = ?", column).Model(kind),
			)

			column = table + ".value"
		}

		transaction.Order(clause.OrderByColumn{
			Column: clause.Column{
				Name: column,
			},
			Desc: len(components) == 4 && strings.ToUpper(components[3]) == "DESC",
		})
	}

	if !startTimeOrder {
		transaction.Order("runs.start_time DESC")
	}

	transaction.Order("runs.run_uuid")

	return nil
}

// SearchRuns lists runs of the given experiments, filtered by lifecycle
// view, ordered and paged. The filter DSL callers use to search runs is
// layered outside this store.
func (s *Store) SearchRuns(
	experimentIDs []string,
	viewType entities.ViewType,
	maxResults int,
	orderBy []string,
	pageToken string,
) (*store.PagedList[*entities.Run], *contract.Error) {
	ids := make([]int32, 0, len(experimentIDs))

	for _, id := range experimentIDs {
		idInt, contractError := parseExperimentID(id)
		if contractError != nil {
			return nil, contractError
		}

		ids = append(ids, idInt)
	}

	offset, contractError := getOffset(pageToken)
	if contractError != nil {
		return nil, contractError
	}

	transaction := s.db.Model(&model.Run{}).
		Where("runs.experiment_id IN ?", ids).
		Where("runs.lifecycle_stage IN ?", lifecycleStagesFor(viewType)).
		Limit(maxResults).
		Offset(offset)

	contractError = applyOrderBy(s.db, transaction, orderBy)
	if contractError != nil {
		return nil, contractError
	}

	var runs []model.Run

	transaction.Preload("LatestMetrics").Preload("Params").Preload("Tags").
		Preload("Inputs", "inputs.destination_type = ?", model.InputDestinationTypeRun).
		Preload("Inputs.Dataset").Preload("Inputs.Tags").Find(&runs)

	if transaction.Error != nil {
		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			"failed to query search runs",
			transaction.Error,
		)
	}

	items := make([]*entities.Run, 0, len(runs))
	for _, run := range runs {
		items = append(items, run.ToEntity())
	}

	nextPageToken, contractError := mkNextPageToken(len(runs), maxResults, offset)
	if contractError != nil {
		return nil, contractError
	}

	return &store.PagedList[*entities.Run]{
		Items:         items,
		NextPageToken: nextPageToken,
	}, nil
}
