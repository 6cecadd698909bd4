package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sustain_score_app_go/models"

	"gorm.io/gorm"
)

var (
	ErrProjectNotFound   = errors.New("project not found")
	ErrReferenceConflict = errors.New("reference already exists")
)

// Sortable project columns
var projectSortColumns = map[string]string{
	"reference":      "reference",
	"project_number": "project_number",
	"project_name":   "project_name",
	"project_stage":  "project_stage",
	"department":     "department",
	"total_score":    "total_score",
	"created_at":     "created_at",
	"updated_at":     "updated_at",
}

// SortSpec orders a project listing. Unknown fields fall back to created_at.
type SortSpec struct {
	Field string
	Desc  bool
}

func (s SortSpec) orderClause() string {
	col, ok := projectSortColumns[s.Field]
	if !ok {
		col = "created_at"
	}
	if s.Desc {
		return col + " DESC"
	}
	return col + " ASC"
}

// ProjectFilter narrows a listing. Empty fields match everything.
type ProjectFilter struct {
	ProjectNumber string
	Stage         models.ProjectStage
	Department    string
	Status        string
	Sort          SortSpec
}

// ProjectStore is the record store the lifecycle rules read and write through.
type ProjectStore interface {
	List(ctx context.Context, sort SortSpec) ([]models.Project, error)
	Filter(ctx context.Context, filter ProjectFilter) ([]models.Project, error)
	Get(ctx context.Context, id string) (*models.Project, error)
	Create(ctx context.Context, p *models.Project) error
	Update(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, id string) error
}

// GormProjectStore implements ProjectStore on gorm.
type GormProjectStore struct {
	db *gorm.DB
}

// NewGormProjectStore creates a store over db
func NewGormProjectStore(db *gorm.DB) *GormProjectStore {
	return &GormProjectStore{db: db}
}

// List returns every project ordered by sort
func (s *GormProjectStore) List(ctx context.Context, sort SortSpec) ([]models.Project, error) {
	var projects []models.Project
	if err := s.db.WithContext(ctx).Order(sort.orderClause()).Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Filter returns the projects matching filter
func (s *GormProjectStore) Filter(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	query := s.db.WithContext(ctx).Model(&models.Project{})
	if v := strings.TrimSpace(filter.ProjectNumber); v != "" {
		query = query.Where("project_number = ?", v)
	}
	if filter.Stage != "" {
		query = query.Where("project_stage = ?", filter.Stage)
	}
	if v := strings.TrimSpace(filter.Department); v != "" {
		query = query.Where("department = ?", v)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var projects []models.Project
	if err := query.Order(filter.Sort.orderClause()).Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to filter projects: %w", err)
	}
	return projects, nil
}

// Get returns one project by id
func (s *GormProjectStore) Get(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project: %w", err)
	}
	return &p, nil
}

// Create inserts p. A duplicate reference is reported as ErrReferenceConflict.
func (s *GormProjectStore) Create(ctx context.Context, p *models.Project) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrReferenceConflict, p.Reference)
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Update overwrites every column of p in place
func (s *GormProjectStore) Update(ctx context.Context, p *models.Project) error {
	res := s.db.WithContext(ctx).Select("*").Omit("created_at").Updates(p)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return fmt.Errorf("%w: %s", ErrReferenceConflict, p.Reference)
		}
		return fmt.Errorf("failed to update project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// Delete removes the project permanently
func (s *GormProjectStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Project{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// isUniqueViolation covers both translated gorm errors and raw driver messages
// from drivers gorm does not translate.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
