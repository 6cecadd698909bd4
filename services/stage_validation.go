package services

import (
	"fmt"
	"strings"

	"sustain_score_app_go/models"
)

// Validation error codes surfaced to the view layer
const (
	CodeMissingField         = "missing_field"
	CodeInvalidStage         = "invalid_stage"
	CodeTenderExists         = "tender_exists"
	CodeActiveRequiresTender = "active_requires_tender"
	CodeCompleteExists       = "complete_exists"
	CodeReadOnlyCategory     = "read_only_category"
	CodeScoreOutOfRange      = "score_out_of_range"
	CodeUnknownIdentifier    = "unknown_identifier"
	CodeResponseNotAllowed   = "response_not_allowed"
)

// ValidationError is a user-correctable problem with an input.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failed check of an input.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Codes returns the error codes in order.
func (v ValidationErrors) Codes() []string {
	out := make([]string, 0, len(v))
	for _, e := range v {
		out = append(out, e.Code)
	}
	return out
}

// OrNil returns nil for an empty collection so callers can return it as error.
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// ProjectIdentity is the identity part of an assessment.
type ProjectIdentity struct {
	ProjectNumber string              `json:"project_number" yaml:"project_number"`
	ProjectName   string              `json:"project_name" yaml:"project_name"`
	ProjectOwner  string              `json:"project_owner" yaml:"project_owner"`
	Department    string              `json:"department" yaml:"department"`
	CreatedByName string              `json:"created_by_name" yaml:"created_by_name"`
	ProjectStage  models.ProjectStage `json:"project_stage" yaml:"project_stage"`
}

// Normalize trims whitespace from every field
func (p ProjectIdentity) Normalize() ProjectIdentity {
	p.ProjectNumber = strings.TrimSpace(p.ProjectNumber)
	p.ProjectName = strings.TrimSpace(p.ProjectName)
	p.ProjectOwner = strings.TrimSpace(p.ProjectOwner)
	p.Department = strings.TrimSpace(p.Department)
	p.CreatedByName = strings.TrimSpace(p.CreatedByName)
	return p
}

// ValidateProjectIdentity checks the required identity fields
func ValidateProjectIdentity(id ProjectIdentity) ValidationErrors {
	id = id.Normalize()
	var errs ValidationErrors

	required := []struct{ field, value, label string }{
		{"project_number", id.ProjectNumber, "Project number"},
		{"project_name", id.ProjectName, "Project name"},
		{"project_owner", id.ProjectOwner, "Project owner"},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, &ValidationError{Code: CodeMissingField, Field: r.field, Message: r.label + " is required"})
		}
	}
	if !id.ProjectStage.IsValid() {
		errs = append(errs, &ValidationError{
			Code: CodeInvalidStage, Field: "project_stage",
			Message: fmt.Sprintf("Project stage must be Tender, Active or Complete, got %q", id.ProjectStage),
		})
	}
	return errs
}

// ValidateStageSelection checks a stage choice against the existing records
// for the project number. excludeID skips the record being edited.
func ValidateStageSelection(existing []models.Project, projectNumber string, stage models.ProjectStage, excludeID string) *ValidationError {
	if !stage.IsValid() {
		return &ValidationError{Code: CodeInvalidStage, Field: "project_stage", Message: fmt.Sprintf("Unknown project stage %q", stage)}
	}

	switch stage {
	case models.StageTender:
		if CountStageRecords(existing, projectNumber, models.StageTender, excludeID) > 0 {
			return &ValidationError{
				Code: CodeTenderExists, Field: "project_stage",
				Message: fmt.Sprintf("A Tender assessment already exists for project %s", projectNumber),
			}
		}
	case models.StageActive:
		if CountStageRecords(existing, projectNumber, models.StageTender, excludeID) == 0 {
			return &ValidationError{
				Code: CodeActiveRequiresTender, Field: "project_stage",
				Message: fmt.Sprintf("Project %s needs a Tender assessment before an Active one", projectNumber),
			}
		}
	case models.StageComplete:
		if CountStageRecords(existing, projectNumber, models.StageComplete, excludeID) > 0 {
			return &ValidationError{
				Code: CodeCompleteExists, Field: "project_stage",
				Message: fmt.Sprintf("A Complete assessment already exists for project %s", projectNumber),
			}
		}
	}
	return nil
}
