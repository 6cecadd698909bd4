package services

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"sustain_score_app_go/models"
	"sustain_score_app_go/services/scoring"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of an assessment being filled in
type SessionState string

const (
	SessionEmpty      SessionState = "empty"
	SessionInProgress SessionState = "in_progress"
	SessionCalculated SessionState = "calculated"
	SessionSaved      SessionState = "saved"
)

var (
	ErrSessionNotFound   = errors.New("assessment session not found")
	ErrAdminRequired     = errors.New("admin role required")
	ErrResetNotConfirmed = errors.New("reset must be confirmed")
)

// TransitionError reports an action that is not allowed in the current state
type TransitionError struct {
	From   SessionState
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while assessment is %s", e.Action, e.From)
}

// AssessmentSession is one user's in-memory assessment. Nothing is persisted
// until Save. The taxonomy snapshot is fixed for the life of the session so
// admin edits published meanwhile do not change scores under the user.
type AssessmentSession struct {
	mu sync.Mutex

	id        string
	state     SessionState
	taxonomy  *scoring.Taxonomy
	identity  ProjectIdentity
	projectID string

	responses  scoring.Responses
	priorities scoring.Priorities
	manual     scoring.SubCategoryValues
	comments   map[string]string
	overrides  map[string]string // category id -> gate override reason

	result    *scoring.ScoreResult
	createdAt time.Time
	touchedAt time.Time
}

// SessionView is the serialisable state of a session
type SessionView struct {
	ID              string                    `json:"id"`
	State           SessionState              `json:"state"`
	ProjectID       string                    `json:"project_id,omitempty"`
	Identity        ProjectIdentity           `json:"identity"`
	Responses       scoring.Responses         `json:"responses"`
	Priorities      scoring.Priorities        `json:"priorities"`
	SummaryValues   scoring.SubCategoryValues `json:"summary_values"`
	Comments        map[string]string         `json:"comments"`
	GateOverrides   map[string]string         `json:"gate_overrides"`
	Score           *scoring.ScoreResult      `json:"score"`
	TaxonomyVersion int                       `json:"taxonomy_version"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

func newAssessmentSession(tax *scoring.Taxonomy, now time.Time) *AssessmentSession {
	s := &AssessmentSession{id: uuid.New().String(), createdAt: now}
	s.resetLocked(tax, now)
	return s
}

func (s *AssessmentSession) resetLocked(tax *scoring.Taxonomy, now time.Time) {
	s.state = SessionEmpty
	s.taxonomy = tax
	s.identity = ProjectIdentity{}
	s.projectID = ""
	s.responses = scoring.Responses{}
	s.priorities = scoring.Priorities{}
	s.manual = scoring.SubCategoryValues{}
	s.comments = map[string]string{}
	s.overrides = map[string]string{}
	s.touchedAt = now
	s.recomputeLocked()
}

// ID returns the session id
func (s *AssessmentSession) ID() string {
	return s.id
}

// State returns the current state
func (s *AssessmentSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Taxonomy returns the snapshot the session scores against
func (s *AssessmentSession) Taxonomy() *scoring.Taxonomy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taxonomy
}

// ProjectID returns the stored record id once the session has been saved
func (s *AssessmentSession) ProjectID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectID
}

// View returns a copy of the session state
func (s *AssessmentSession) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := SessionView{
		ID:              s.id,
		State:           s.state,
		ProjectID:       s.projectID,
		Identity:        s.identity,
		Responses:       scoring.Responses{},
		Priorities:      scoring.Priorities{},
		SummaryValues:   scoring.SubCategoryValues{},
		Comments:        map[string]string{},
		GateOverrides:   map[string]string{},
		Score:           s.result,
		TaxonomyVersion: s.taxonomy.Version,
		UpdatedAt:       s.touchedAt,
	}
	for k, r := range s.responses {
		v.Responses[k] = r
	}
	for k, p := range s.priorities {
		v.Priorities[k] = p
	}
	for cat, subs := range s.manual {
		for sub, val := range subs {
			v.SummaryValues.Set(cat, sub, val)
		}
	}
	for k, c := range s.comments {
		v.Comments[k] = c
	}
	for k, r := range s.overrides {
		v.GateOverrides[k] = r
	}
	return v
}

// Score returns the result of the last recomputation
func (s *AssessmentSession) Score() *scoring.ScoreResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// SetIdentity records the project identity. Stage rules against stored
// records are checked by ProjectService.ApplyIdentity before this is called.
func (s *AssessmentSession) SetIdentity(id ProjectIdentity, now time.Time) error {
	id = id.Normalize()
	if errs := ValidateProjectIdentity(id); len(errs) > 0 {
		return errs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
	s.editedLocked(now)
	return nil
}

// SetResponses merges item responses. Unknown item ids are rejected. A
// manual summary value for an answered item's sub-category is dropped so the
// most recent edit decides the stored value.
func (s *AssessmentSession) SetResponses(responses map[string]scoring.Response, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireIdentityLocked("record responses"); err != nil {
		return err
	}

	if errs := ValidateResponses(s.taxonomy, responses); len(errs) > 0 {
		return errs
	}

	for itemID, r := range responses {
		s.responses[itemID] = r
		// the checklist tab now drives this sub-category again
		cat, sub, _, _ := s.taxonomy.FindItem(itemID)
		delete(s.manual[cat.ID], sub.ID)
		if len(s.manual[cat.ID]) == 0 {
			delete(s.manual, cat.ID)
		}
	}
	s.editedLocked(now)
	return nil
}

// SetPriorities overrides item priorities. Only admins may change them.
func (s *AssessmentSession) SetPriorities(priorities map[string]scoring.Priority, isAdmin bool, now time.Time) error {
	if !isAdmin {
		return ErrAdminRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireIdentityLocked("change priorities"); err != nil {
		return err
	}

	var errs ValidationErrors
	for itemID, p := range priorities {
		if _, _, _, ok := s.taxonomy.FindItem(itemID); !ok {
			errs = append(errs, &ValidationError{Code: CodeUnknownIdentifier, Field: itemID, Message: "Unknown item"})
		} else if !p.IsValid() {
			errs = append(errs, &ValidationError{Code: CodeUnknownIdentifier, Field: itemID, Message: fmt.Sprintf("Invalid priority %d", p)})
		}
	}
	if len(errs) > 0 {
		sortValidationErrors(errs)
		return errs
	}

	for itemID, p := range priorities {
		s.priorities[itemID] = p
	}
	s.editedLocked(now)
	return nil
}

// SummaryUpdate maps category id to sub-category id to a directly entered
// score. A nil score removes the manual entry so the checklist drives that
// sub-category again.
type SummaryUpdate map[string]map[string]*float64

// SetSummaryValues records directly entered sub-category scores
func (s *AssessmentSession) SetSummaryValues(values scoring.SubCategoryValues, now time.Time) error {
	update := SummaryUpdate{}
	for catID, subs := range values {
		update[catID] = map[string]*float64{}
		for subID, v := range subs {
			update[catID][subID] = &v
		}
	}
	return s.UpdateSummary(update, now)
}

// UpdateSummary applies summary-view edits. Categories that are populated
// from their checklist reject manual values. The latest edit wins: a value
// entered here replaces the checklist-derived score until the sub-category's
// checklist is answered again.
func (s *AssessmentSession) UpdateSummary(update SummaryUpdate, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireIdentityLocked("enter summary scores"); err != nil {
		return err
	}

	set, cleared := scoring.SubCategoryValues{}, scoring.SubCategoryValues{}
	for catID, subs := range update {
		for subID, v := range subs {
			if v == nil {
				cleared.Set(catID, subID, 0)
				continue
			}
			set.Set(catID, subID, *v)
		}
	}

	errs := ValidateScores(s.taxonomy, set)
	errs = append(errs, ValidateScores(s.taxonomy, cleared)...)
	for catID := range update {
		if cat, ok := s.taxonomy.Category(catID); ok && !cat.SummaryEditable {
			errs = append(errs, &ValidationError{
				Code: CodeReadOnlyCategory, Field: catID,
				Message: fmt.Sprintf("%s is populated from its checklist and cannot be edited in the summary", cat.Name),
			})
		}
	}
	if len(errs) > 0 {
		sortValidationErrors(errs)
		return errs
	}

	for catID, subs := range set {
		for subID, v := range subs {
			s.manual.Set(catID, subID, v)
		}
	}
	for catID, subs := range cleared {
		for subID := range subs {
			delete(s.manual[catID], subID)
		}
		if len(s.manual[catID]) == 0 {
			delete(s.manual, catID)
		}
	}
	s.editedLocked(now)
	return nil
}

// SetComments replaces the comments of the given categories
func (s *AssessmentSession) SetComments(comments map[string]string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireIdentityLocked("edit comments"); err != nil {
		return err
	}

	var errs ValidationErrors
	for catID := range comments {
		if _, ok := s.taxonomy.Category(catID); !ok {
			errs = append(errs, &ValidationError{Code: CodeUnknownIdentifier, Field: catID, Message: "Unknown category"})
		}
	}
	if len(errs) > 0 {
		sortValidationErrors(errs)
		return errs
	}

	for catID, text := range comments {
		if clean := SanitizeText(text); clean != "" {
			s.comments[catID] = clean
		} else {
			delete(s.comments, catID)
		}
	}
	s.editedLocked(now)
	return nil
}

// CheckGate evaluates the completeness gate for leaving a category tab
func (s *AssessmentSession) CheckGate(categoryID string) (*scoring.GateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scoring.CheckCompleteness(s.taxonomy, categoryID, s.responses, s.priorities)
}

// ConfirmGate records the decision to proceed despite warnings. The reason
// is optional.
func (s *AssessmentSession) ConfirmGate(categoryID, reason string, now time.Time) (*scoring.GateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := scoring.CheckCompleteness(s.taxonomy, categoryID, s.responses, s.priorities)
	if err != nil {
		return nil, err
	}
	if !g.Passed {
		s.overrides[categoryID] = SanitizeText(reason)
		s.touchedAt = now
	}
	return g, nil
}

// Calculate moves the session to Calculated and returns the summary
func (s *AssessmentSession) Calculate(now time.Time) (*scoring.ScoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireIdentityLocked("calculate"); err != nil {
		return nil, err
	}
	s.recomputeLocked()
	s.state = SessionCalculated
	s.touchedAt = now
	return s.result, nil
}

// Save persists the session through write while holding the session lock.
// write receives the project input and the id of the record saved earlier
// by this session, if any. Saving requires a calculated summary.
func (s *AssessmentSession) Save(now time.Time, write func(in ProjectInput, projectID string) (*models.Project, error)) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionCalculated {
		return nil, &TransitionError{From: s.state, Action: "save"}
	}

	in := ProjectInput{
		ProjectIdentity:   s.identity,
		SubCategoryScores: s.result.SubCategoryValues(),
		CategoryComments:  map[string]string{},
		Status:            models.ProjectStatusSubmitted,
		TaxonomyVersion:   s.taxonomy.Version,
		Responses:         scoring.Responses{},
		Priorities:        scoring.Priorities{},
	}
	for k, v := range s.comments {
		in.CategoryComments[k] = v
	}
	for k, v := range s.responses {
		in.Responses[k] = v
	}
	for k, v := range s.priorities {
		in.Priorities[k] = v
	}

	p, err := write(in, s.projectID)
	if err != nil {
		return nil, err
	}
	s.projectID = p.ID
	s.state = SessionSaved
	s.touchedAt = now
	return p, nil
}

// Reset clears the session back to Empty with a fresh taxonomy snapshot.
// The destructive step must be confirmed.
func (s *AssessmentSession) Reset(confirm bool, tax *scoring.Taxonomy, now time.Time) error {
	if !confirm {
		return ErrResetNotConfirmed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(tax, now)
	return nil
}

// GateOverrides returns the recorded override reasons by category
func (s *AssessmentSession) GateOverrides() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.overrides))
	for k, v := range s.overrides {
		out[k] = v
	}
	return out
}

func (s *AssessmentSession) requireIdentityLocked(action string) error {
	if s.state == SessionEmpty {
		return &TransitionError{From: s.state, Action: action}
	}
	return nil
}

// editedLocked recomputes scores; any edit returns the session to InProgress.
func (s *AssessmentSession) editedLocked(now time.Time) {
	s.state = SessionInProgress
	s.touchedAt = now
	s.recomputeLocked()
}

func (s *AssessmentSession) recomputeLocked() {
	s.result = scoring.ComputeScore(s.taxonomy, scoring.Input{
		Responses:  s.responses,
		Priorities: s.priorities,
		Manual:     s.manual,
	})
}

// answeredLocked reports whether any item of sub has a recorded response
func (s *AssessmentSession) answeredLocked(sub scoring.SubCategory) bool {
	for _, item := range sub.Items {
		if _, ok := s.responses[item.ID]; ok {
			return true
		}
	}
	return false
}

func (s *AssessmentSession) lastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

func sortValidationErrors(errs ValidationErrors) {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
}

// SessionRegistry keeps assessment sessions for the HTTP layer
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*AssessmentSession
	now      func() time.Time
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry() *SessionRegistry {
	return NewSessionRegistryWithClock(time.Now)
}

// NewSessionRegistryWithClock creates an empty registry stamping sessions with now
func NewSessionRegistryWithClock(now func() time.Time) *SessionRegistry {
	return &SessionRegistry{sessions: map[string]*AssessmentSession{}, now: now}
}

// Now is the registry clock, exposed so callers stamp edits consistently
func (r *SessionRegistry) Now() time.Time {
	return r.now()
}

// Create starts an Empty session scoring against tax
func (r *SessionRegistry) Create(tax *scoring.Taxonomy) *AssessmentSession {
	s := newAssessmentSession(tax, r.now())
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	return s
}

// Open starts an InProgress session editing the stored record p. Checklist
// answers and priority overrides are restored; stored values of
// summary-editable sub-categories whose items were never answered come back
// as manual entries.
func (r *SessionRegistry) Open(tax *scoring.Taxonomy, p *models.Project) *AssessmentSession {
	now := r.now()
	s := newAssessmentSession(tax, now)
	s.projectID = p.ID
	s.identity = ProjectIdentity{
		ProjectNumber: p.ProjectNumber,
		ProjectName:   p.ProjectName,
		ProjectOwner:  p.ProjectOwner,
		Department:    p.Department,
		CreatedByName: p.CreatedByName,
		ProjectStage:  p.ProjectStage,
	}

	for itemID, v := range p.ChecklistResponses {
		if resp := scoring.Response(v); resp.IsValid() {
			if _, _, _, ok := tax.FindItem(itemID); ok {
				s.responses[itemID] = resp
			}
		}
	}
	for itemID, v := range p.PriorityOverrides {
		if prio := scoring.Priority(v); prio.IsValid() {
			if _, _, _, ok := tax.FindItem(itemID); ok {
				s.priorities[itemID] = prio
			}
		}
	}
	for _, cat := range tax.Categories {
		if !cat.SummaryEditable {
			continue
		}
		for _, sub := range cat.SubCategories {
			v, ok := scoring.SubCategoryValues(p.SubCategoryScores).Get(cat.ID, sub.ID)
			if ok && !s.answeredLocked(sub) {
				s.manual.Set(cat.ID, sub.ID, v)
			}
		}
	}
	for catID, text := range p.CategoryComments {
		s.comments[catID] = text
	}
	s.editedLocked(now)

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	return s
}

// Get returns a session by id
func (r *SessionRegistry) Get(id string) (*AssessmentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete drops a session
func (r *SessionRegistry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of live sessions
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Prune removes sessions untouched for longer than idle and returns how
// many were removed.
func (r *SessionRegistry) Prune(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.lastTouched().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
