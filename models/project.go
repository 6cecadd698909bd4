package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectStage is the lifecycle phase an assessment was taken in.
type ProjectStage string

const (
	StageTender   ProjectStage = "Tender"
	StageActive   ProjectStage = "Active"
	StageComplete ProjectStage = "Complete"
)

// ProjectStages lists the stages in lifecycle order.
var ProjectStages = []ProjectStage{StageTender, StageActive, StageComplete}

// IsValid reports whether s is a known stage.
func (s ProjectStage) IsValid() bool {
	switch s {
	case StageTender, StageActive, StageComplete:
		return true
	}
	return false
}

// Prefix returns the single letter used in references.
func (s ProjectStage) Prefix() string {
	switch s {
	case StageTender:
		return "T"
	case StageActive:
		return "A"
	case StageComplete:
		return "C"
	}
	return ""
}

// Order is the position of the stage in the lifecycle, starting at 0.
func (s ProjectStage) Order() int {
	for i, st := range ProjectStages {
		if st == s {
			return i
		}
	}
	return len(ProjectStages)
}

// ParseProjectStage accepts the stage name or its reference prefix.
func ParseProjectStage(v string) (ProjectStage, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "tender", "t":
		return StageTender, nil
	case "active", "a":
		return StageActive, nil
	case "complete", "c":
		return StageComplete, nil
	}
	return "", fmt.Errorf("invalid project stage: %q", v)
}

// Project status constants
const (
	ProjectStatusInProgress = "in_progress"
	ProjectStatusSubmitted  = "submitted"
)

// Project is a persisted assessment of one project at one stage. Edits
// overwrite the row in place and deletes are permanent, so a reference is
// freed as soon as its record is removed.
type Project struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Identity
	Reference     string       `gorm:"not null;uniqueIndex" json:"reference"`
	ProjectNumber string       `gorm:"not null;index:idx_project_number_stage" json:"project_number"`
	ProjectStage  ProjectStage `gorm:"not null;index:idx_project_number_stage" json:"project_stage"`
	ProjectName   string       `gorm:"not null" json:"project_name"`
	ProjectOwner  string       `gorm:"not null" json:"project_owner"`
	Department    string       `gorm:"index" json:"department"`
	CreatedByName string       `json:"created_by_name"`

	// Content: category id -> sub-category id -> 0-100 value
	SubCategoryScores map[string]map[string]float64 `gorm:"serializer:json;type:text" json:"sub_category_scores"`
	CategoryComments  map[string]string             `gorm:"serializer:json;type:text" json:"category_comments"`
	TotalScore        float64                       `gorm:"index" json:"total_score"`
	Status            string                        `gorm:"not null;default:in_progress" json:"status"`
	TaxonomyVersion   int                           `json:"taxonomy_version"`

	// Checklist answers and admin priority overrides, kept so a saved
	// assessment can be reopened for editing
	ChecklistResponses map[string]string `gorm:"serializer:json;type:text" json:"checklist_responses,omitempty"`
	PriorityOverrides  map[string]int    `gorm:"serializer:json;type:text" json:"priority_overrides,omitempty"`
}

// BeforeCreate hook to generate UUID
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Project model
func (Project) TableName() string {
	return "projects"
}
