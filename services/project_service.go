package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"sustain_score_app_go/models"
	"sustain_score_app_go/services/scoring"

	"gorm.io/gorm"
)

// ProjectInput is the writable content of a project record
type ProjectInput struct {
	ProjectIdentity
	SubCategoryScores scoring.SubCategoryValues `json:"sub_category_scores"`
	CategoryComments  map[string]string         `json:"category_comments"`
	Status            string                    `json:"status"`
	// TaxonomyVersion selects the snapshot the values were scored with; 0 means current
	TaxonomyVersion int `json:"taxonomy_version,omitempty"`
	// Responses and Priorities are the checklist state behind the values
	Responses  scoring.Responses  `json:"responses,omitempty"`
	Priorities scoring.Priorities `json:"priorities,omitempty"`
}

// ProjectService applies the lifecycle rules around the record store
type ProjectService struct {
	Store    ProjectStore
	Taxonomy *TaxonomyService
	Notifier Notifier
	// AuditDB receives audit entries; nil disables auditing
	AuditDB *gorm.DB
}

// NewProjectService wires a service with no notifier
func NewProjectService(store ProjectStore, taxonomy *TaxonomyService, auditDB *gorm.DB) *ProjectService {
	return &ProjectService{Store: store, Taxonomy: taxonomy, AuditDB: auditDB}
}

// CreateProject validates identity and stage, generates the reference and
// stores the record. The application check reads the current records first;
// the unique reference index is the final guard against concurrent writers.
func (s *ProjectService) CreateProject(ctx context.Context, audit AuditContext, in ProjectInput) (*models.Project, error) {
	in.ProjectIdentity = in.ProjectIdentity.Normalize()
	if errs := ValidateProjectIdentity(in.ProjectIdentity); len(errs) > 0 {
		return nil, errs
	}

	existing, err := s.Store.Filter(ctx, ProjectFilter{ProjectNumber: in.ProjectNumber})
	if err != nil {
		return nil, err
	}
	if verr := ValidateStageSelection(existing, in.ProjectNumber, in.ProjectStage, ""); verr != nil {
		return nil, ValidationErrors{verr}
	}

	tax := s.taxonomyFor(ctx, in.TaxonomyVersion)
	if errs := ValidateScores(tax, in.SubCategoryScores); len(errs) > 0 {
		return nil, errs
	}

	reference, err := GenerateReference(existing, in.ProjectNumber, in.ProjectStage, "")
	if err != nil {
		return nil, err
	}

	p := &models.Project{Reference: reference}
	applyProjectInput(p, tax, in)

	if err := s.Store.Create(ctx, p); err != nil {
		return nil, err
	}

	log.Printf("[PROJECT] Created %s (total %.2f)", p.Reference, p.TotalScore)
	LogAuditEvent(s.AuditDB, audit, models.AuditActionCreate, models.AuditResourceProject, p.ID, p.Reference,
		"Project assessment created", nil, auditSnapshot(p))
	s.notify(p, true)
	return p, nil
}

// UpdateProject overwrites a record in place. A change of project number or
// stage is validated against the other records and regenerates the reference.
func (s *ProjectService) UpdateProject(ctx context.Context, audit AuditContext, id string, in ProjectInput) (*models.Project, error) {
	p, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := auditSnapshot(p)

	in.ProjectIdentity = in.ProjectIdentity.Normalize()
	if errs := ValidateProjectIdentity(in.ProjectIdentity); len(errs) > 0 {
		return nil, errs
	}

	tax := s.taxonomyFor(ctx, in.TaxonomyVersion)
	if errs := ValidateScores(tax, in.SubCategoryScores); len(errs) > 0 {
		return nil, errs
	}

	if in.ProjectNumber != p.ProjectNumber || in.ProjectStage != p.ProjectStage {
		existing, err := s.Store.Filter(ctx, ProjectFilter{ProjectNumber: in.ProjectNumber})
		if err != nil {
			return nil, err
		}
		if verr := ValidateStageSelection(existing, in.ProjectNumber, in.ProjectStage, p.ID); verr != nil {
			return nil, ValidationErrors{verr}
		}
		reference, err := GenerateReference(existing, in.ProjectNumber, in.ProjectStage, p.ID)
		if err != nil {
			return nil, err
		}
		log.Printf("[PROJECT] Reference %s becomes %s", p.Reference, reference)
		p.Reference = reference
	}

	applyProjectInput(p, tax, in)
	if err := s.Store.Update(ctx, p); err != nil {
		return nil, err
	}

	LogAuditEvent(s.AuditDB, audit, models.AuditActionUpdate, models.AuditResourceProject, p.ID, p.Reference,
		"Project assessment updated", before, auditSnapshot(p))
	s.notify(p, false)
	return p, nil
}

// DeleteProject removes a record permanently
func (s *ProjectService) DeleteProject(ctx context.Context, audit AuditContext, id string) error {
	p, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("[PROJECT] Deleted %s", p.Reference)
	LogAuditEvent(s.AuditDB, audit, models.AuditActionDelete, models.AuditResourceProject, p.ID, p.Reference,
		"Project assessment deleted", auditSnapshot(p), nil)
	return nil
}

// GetProject returns a record with its score breakdown re-derived from the
// stored sub-category values, using the taxonomy version it was scored with
// when still available.
func (s *ProjectService) GetProject(ctx context.Context, id string) (*models.Project, *scoring.ScoreResult, error) {
	p, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return p, s.Breakdown(ctx, p), nil
}

// Breakdown re-aggregates a stored project
func (s *ProjectService) Breakdown(ctx context.Context, p *models.Project) *scoring.ScoreResult {
	tax, err := s.Taxonomy.Version(ctx, p.TaxonomyVersion)
	if err != nil {
		tax = s.Taxonomy.Current()
	}
	return scoring.AggregateStored(tax, p.SubCategoryScores)
}

// ListProjects returns the records matching filter
func (s *ProjectService) ListProjects(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	return s.Store.Filter(ctx, filter)
}

// PreviewReference reports the reference a new record would get, or the
// validation error that would block it.
func (s *ProjectService) PreviewReference(ctx context.Context, projectNumber string, stage models.ProjectStage) (string, *ValidationError, error) {
	projectNumber = strings.TrimSpace(projectNumber)
	if projectNumber == "" {
		return "", &ValidationError{Code: CodeMissingField, Field: "project_number", Message: "Project number is required"}, nil
	}
	existing, err := s.Store.Filter(ctx, ProjectFilter{ProjectNumber: projectNumber})
	if err != nil {
		return "", nil, err
	}
	if verr := ValidateStageSelection(existing, projectNumber, stage, ""); verr != nil {
		return "", verr, nil
	}
	ref, err := GenerateReference(existing, projectNumber, stage, "")
	return ref, nil, err
}

// CheckStage validates a stage choice for a project number without writing
func (s *ProjectService) CheckStage(ctx context.Context, projectNumber string, stage models.ProjectStage, excludeID string) (*ValidationError, error) {
	existing, err := s.Store.Filter(ctx, ProjectFilter{ProjectNumber: strings.TrimSpace(projectNumber)})
	if err != nil {
		return nil, err
	}
	return ValidateStageSelection(existing, strings.TrimSpace(projectNumber), stage, excludeID), nil
}

// ValidateScores checks stored values against the taxonomy: ids must exist
// and values must lie in [0,100].
func ValidateScores(tax *scoring.Taxonomy, values scoring.SubCategoryValues) ValidationErrors {
	var errs ValidationErrors
	catIDs := make([]string, 0, len(values))
	for catID := range values {
		catIDs = append(catIDs, catID)
	}
	sort.Strings(catIDs)

	for _, catID := range catIDs {
		subs := values[catID]
		cat, ok := tax.Category(catID)
		if !ok {
			errs = append(errs, &ValidationError{Code: CodeUnknownIdentifier, Field: catID, Message: "Unknown category"})
			continue
		}
		subIDs := make([]string, 0, len(subs))
		for subID := range subs {
			subIDs = append(subIDs, subID)
		}
		sort.Strings(subIDs)
		for _, subID := range subIDs {
			v := subs[subID]
			field := catID + "." + subID
			if _, ok := cat.SubCategory(subID); !ok {
				errs = append(errs, &ValidationError{Code: CodeUnknownIdentifier, Field: field, Message: "Unknown sub-category"})
				continue
			}
			if math.IsNaN(v) || v < 0 || v > 100 {
				errs = append(errs, &ValidationError{
					Code: CodeScoreOutOfRange, Field: field,
					Message: fmt.Sprintf("Score must be between 0 and 100, got %v", v),
				})
			}
		}
	}
	return errs
}

// ValidateResponses checks checklist answers against the taxonomy: items must
// exist and the answer must be one the item's checklist offers.
func ValidateResponses(tax *scoring.Taxonomy, responses scoring.Responses) ValidationErrors {
	var errs ValidationErrors
	for itemID, r := range responses {
		cat, _, _, ok := tax.FindItem(itemID)
		switch {
		case !ok:
			errs = append(errs, &ValidationError{Code: CodeUnknownIdentifier, Field: itemID, Message: "Unknown item"})
		case !r.IsValid():
			errs = append(errs, &ValidationError{Code: CodeUnknownIdentifier, Field: itemID, Message: fmt.Sprintf("Invalid response %q", r)})
		case !cat.AllowsResponse(r):
			errs = append(errs, &ValidationError{
				Code: CodeResponseNotAllowed, Field: itemID,
				Message: fmt.Sprintf("%s items are checkboxes and cannot be marked not applicable", cat.Name),
			})
		}
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}

func applyProjectInput(p *models.Project, tax *scoring.Taxonomy, in ProjectInput) {
	p.ProjectNumber = in.ProjectNumber
	p.ProjectStage = in.ProjectStage
	p.ProjectName = in.ProjectName
	p.ProjectOwner = in.ProjectOwner
	p.Department = in.Department
	if in.CreatedByName != "" || p.CreatedByName == "" {
		p.CreatedByName = in.CreatedByName
	}

	result := scoring.AggregateStored(tax, in.SubCategoryScores)
	p.SubCategoryScores = result.SubCategoryValues()
	p.TotalScore = result.TotalScore
	p.TaxonomyVersion = tax.Version

	comments := map[string]string{}
	for catID, text := range SanitizeComments(in.CategoryComments) {
		if _, ok := tax.Category(catID); ok {
			comments[catID] = text
		}
	}
	p.CategoryComments = comments

	p.ChecklistResponses = map[string]string{}
	for itemID, r := range in.Responses {
		if cat, _, _, ok := tax.FindItem(itemID); ok && cat.AllowsResponse(r) {
			p.ChecklistResponses[itemID] = string(r)
		}
	}
	p.PriorityOverrides = map[string]int{}
	for itemID, pr := range in.Priorities {
		if _, _, _, ok := tax.FindItem(itemID); ok && pr.IsValid() {
			p.PriorityOverrides[itemID] = int(pr)
		}
	}

	p.Status = in.Status
	if p.Status != models.ProjectStatusInProgress {
		p.Status = models.ProjectStatusSubmitted
	}
}

func (s *ProjectService) taxonomyFor(ctx context.Context, version int) *scoring.Taxonomy {
	if version > 0 {
		if tax, err := s.Taxonomy.Version(ctx, version); err == nil {
			return tax
		}
	}
	return s.Taxonomy.Current()
}

func (s *ProjectService) notify(p *models.Project, created bool) {
	if s.Notifier != nil {
		s.Notifier.ProjectSaved(p, created)
	}
}

func auditSnapshot(p *models.Project) map[string]interface{} {
	return map[string]interface{}{
		"reference":      p.Reference,
		"project_number": p.ProjectNumber,
		"project_stage":  p.ProjectStage,
		"project_name":   p.ProjectName,
		"project_owner":  p.ProjectOwner,
		"department":     p.Department,
		"total_score":    p.TotalScore,
		"status":         p.Status,
	}
}

// ApplyIdentity validates a session's identity, including the stage rules
// against stored records, before recording it on the session.
func (s *ProjectService) ApplyIdentity(ctx context.Context, sess *AssessmentSession, id ProjectIdentity, now time.Time) error {
	id = id.Normalize()
	if errs := ValidateProjectIdentity(id); len(errs) > 0 {
		return errs
	}
	verr, err := s.CheckStage(ctx, id.ProjectNumber, id.ProjectStage, sess.ProjectID())
	if err != nil {
		return err
	}
	if verr != nil {
		return ValidationErrors{verr}
	}
	return sess.SetIdentity(id, now)
}

// LoadAssessment opens a stored record in a new session on the taxonomy
// version it was scored with. Saving the session overwrites the record.
func (s *ProjectService) LoadAssessment(ctx context.Context, registry *SessionRegistry, projectID string) (*AssessmentSession, error) {
	p, err := s.Store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tax := s.taxonomyFor(ctx, p.TaxonomyVersion)
	sess := registry.Open(tax, p)
	log.Printf("[PROJECT] Opened %s for editing in session %s", p.Reference, sess.ID())
	return sess, nil
}

// SaveAssessment writes a calculated session as a new record, or over the
// record it saved before.
func (s *ProjectService) SaveAssessment(ctx context.Context, audit AuditContext, sess *AssessmentSession, now time.Time) (*models.Project, error) {
	overrides := sess.GateOverrides()
	p, err := sess.Save(now, func(in ProjectInput, projectID string) (*models.Project, error) {
		if projectID != "" {
			return s.UpdateProject(ctx, audit, projectID, in)
		}
		return s.CreateProject(ctx, audit, in)
	})
	if err != nil {
		return nil, err
	}

	for catID, reason := range overrides {
		LogAuditEvent(s.AuditDB, audit, models.AuditActionGateOverride, models.AuditResourceProject, p.ID, p.Reference,
			fmt.Sprintf("Completeness warning for %s confirmed", catID), nil, map[string]string{"category": catID, "reason": reason})
	}
	return p, nil
}
