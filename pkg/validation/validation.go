package validation

import (
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mlflow/mlflow-go-backend/pkg/entities"
)

// NewValidator returns a validator with the custom validations the entity
// input structs reference. Enumerated values are rejected here, at the API
// boundary, rather than relying on storage-level CHECK constraints.
func NewValidator() (*validator.Validate, error) {
	validate := validator.New()

	// Run ids are 36-byte canonical UUID strings.
	if err := validate.RegisterValidation("runID", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if len(value) != 36 {
			return false
		}

		_, err := uuid.Parse(value)

		return err == nil
	}); err != nil {
		return nil, err
	}

	if err := validate.RegisterValidation("runStatus", func(fl validator.FieldLevel) bool {
		switch entities.RunStatus(fl.Field().String()) {
		case entities.RunStatusScheduled,
			entities.RunStatusRunning,
			entities.RunStatusFinished,
			entities.RunStatusFailed,
			entities.RunStatusKilled:
			return true
		}

		return false
	}); err != nil {
		return nil, err
	}

	if err := validate.RegisterValidation("sourceType", func(fl validator.FieldLevel) bool {
		switch entities.SourceType(fl.Field().String()) {
		case entities.SourceTypeNotebook,
			entities.SourceTypeJob,
			entities.SourceTypeLocal,
			entities.SourceTypeProject,
			entities.SourceTypeUnknown:
			return true
		}

		return false
	}); err != nil {
		return nil, err
	}

	// Artifact locations are URIs without a fragment part.
	if err := validate.RegisterValidation("uriWithoutFragment", func(fl validator.FieldLevel) bool {
		parsed, err := url.Parse(fl.Field().String())

		return err == nil && parsed.Fragment == ""
	}); err != nil {
		return nil, err
	}

	return validate, nil
}
