package sql

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mlflow/mlflow-go-backend/pkg/contract"
	"github.com/mlflow/mlflow-go-backend/pkg/entities"
	"github.com/mlflow/mlflow-go-backend/pkg/utils"
)

// PageToken is the decoded form of the opaque pagination cursor handed to
// callers: a base64-wrapped JSON offset.
type PageToken struct {
	Offset int32 `json:"offset"`
}

func getOffset(pageToken string) (int, *contract.Error) {
	if pageToken == "" {
		return 0, nil
	}

	var token PageToken
	if err := json.NewDecoder(
		base64.NewDecoder(
			base64.StdEncoding,
			strings.NewReader(pageToken),
		),
	).Decode(&token); err != nil {
		return 0, contract.NewErrorWith(
			contract.ErrorCodeInvalidParameterValue,
			fmt.Sprintf("invalid page_token: %q", pageToken),
			err,
		)
	}

	return int(token.Offset), nil
}

func mkNextPageToken(resultLength, maxResults, offset int) (*string, *contract.Error) {
	var nextPageToken *string

	if resultLength == maxResults {
		var token strings.Builder
		if err := json.NewEncoder(
			base64.NewEncoder(base64.StdEncoding, &token),
		).Encode(PageToken{
			Offset: int32(offset + maxResults),
		}); err != nil {
			return nil, contract.NewErrorWith(
				contract.ErrorCodeInternalError,
				"error encoding 'nextPageToken' value",
				err,
			)
		}

		nextPageToken = utils.PtrTo(token.String())
	}

	return nextPageToken, nil
}

func lifecycleStagesFor(viewType entities.ViewType) []entities.LifecycleStage {
	switch viewType {
	case entities.ViewTypeActiveOnly:
		return []entities.LifecycleStage{entities.LifecycleStageActive}
	case entities.ViewTypeDeletedOnly:
		return []entities.LifecycleStage{entities.LifecycleStageDeleted}
	case entities.ViewTypeAll:
		return []entities.LifecycleStage{
			entities.LifecycleStageActive,
			entities.LifecycleStageDeleted,
		}
	}

	return []entities.LifecycleStage{entities.LifecycleStageActive}
}
