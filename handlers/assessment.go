package handlers

import (
	"net/http"

	"sustain_score_app_go/middleware"
	"sustain_score_app_go/models"
	"sustain_score_app_go/services"

	"github.com/labstack/echo/v4"
)

func (a *App) session(c echo.Context) (*services.AssessmentSession, error) {
	return a.Sessions.Get(c.Param("id"))
}

// sessionResponse renders the session view after an edit
func (a *App) sessionResponse(c echo.Context, sess *services.AssessmentSession, status int) error {
	return c.JSON(status, sess.View())
}

// CreateAssessmentHandler starts an Empty assessment on the current taxonomy
func (a *App) CreateAssessmentHandler(c echo.Context) error {
	sess := a.Sessions.Create(a.Taxonomy.Current())
	return a.sessionResponse(c, sess, http.StatusCreated)
}

// GetAssessmentHandler returns the session state and live score
func (a *App) GetAssessmentHandler(c echo.Context) error {
	sess, err := a.session(c)
	if err != nil {
		return respondError(c, err)
	}
	return a.sessionResponse(c, sess, http.StatusOK)
}

// LoadAssessmentHandler opens a stored record for editing. Saving the
// session overwrites that record.
func (a *App) LoadAssessmentHandler(c echo.Context) error {
	sess, err := a.Projects.LoadAssessment(c.Request().Context(), a.Sessions, c.Param("projectId"))
	if err != nil {
		return respondError(c, err)
	}
	return a.sessionResponse(c, sess, http.StatusCreated)
}

// SetAssessmentIdentityHandler records the project identity. Stage rules
// are checked against the stored records.
func (a *App) SetAssessmentIdentityHandler(c echo.Context) error {
	sess, err := a.session(c)
	if err != nil {
		return respondError(c, err)
	}
	var id services.ProjectIdentity
	if err := bindJSON(c, &id); err != nil {
		return err
	}
	if id.CreatedByName == "" {
		id.CreatedByName = middleware.UserName(c)
	}
	if err := a.Projects.ApplyIdentity(c.Request().Context(), sess, id, a.Sessions.Now()); err != nil {
		return respondError(c, err)
	}
	return a.sessionResponse(c, sess, http.StatusOK)
}

// SetAssessmentResponsesHandler merges checklist answers
func (a *App) SetAssessmentResponsesHandler(c echo.Context) error {
	sess, err := a.session(c)
	if err != nil {
		return respondError(c, err)
	}
	var raw map[string]string
	if err := bindJSON(c, &raw); err != nil {
		return err
	}
	responses, errs := parseResponses(raw)
	if len(errs) > 0 {
		return respondError(c, errs)
	}
	if err := sess.SetResponses(responses, a.Sessions.Now()); err != nil {
		return respondError(c, err)
	}
	return a.sessionResponse(c, sess, http.StatusOK)
}

// SetAssessmentPrioritiesHandler overrides item priorities (admin only)
func (a *App) SetAssessmentPrioritiesHandler(c echo.Context) error {
	sess, err := a.session(c)
	if err != nil {
		return respondError(c, err)
	}
	var raw map[string]int
	if err := bindJSON(c, &raw); err != nil {
		return err
	}
	if err := sess.SetPriorities(toPriorities(raw), middleware.IsAdmin(c), a.Sessions.Now()); err != nil {
		return respondError(c, err)
	}
	return a.sessionResponse(c, sess, http.StatusOK)
}

// SetAssessmentSummaryHandler records directly entered sub-category scores.
// A null score clears the entry.
func (a *App) SetAssessmentSummaryHandler(c echo.Context) error {
	sess, err := a.session(c)
	if err != nil {
		return respondError(c, err)
	}
	var update services.SummaryUpdate
	if err := bindJSON(c, &update); err != nil {
		return err
	}
	if err := sess.UpdateSummary(update, a.Sessions.Now()); err != nil {
		return respondError(c, err)
	}
	return a.sessionResponse(c, sess, http.StatusOK)
}

// SetAssessmentCommentsHandler replaces category comments
func (a *App) SetAssessmentCommentsHandler(c echo.Context) error {
	sess, err := a.session(c)
	if err != nil {
		return respondError(c, err)
	}
	var comments map[string]string
	if err := bindJSON(c, &comments); err != nil {
		return err
	}
	if err := sess.SetComments(comments, a.Sessions.Now()); err != nil {
		return respondError(c, err)
	}
	return a.sessionResponse(c, sess, http.StatusOK)
}

// CheckAssessmentGateHandler evaluates the gate for leaving a category tab
func (a *App) CheckAssessmentGateHandler(c echo.Context) error {
	sess, err := a.session(c)
	if err != nil {
		return respondError(c, err)
	}
	g, err := sess.CheckGate(c.Param("categoryId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, gateResponse(g))
}

// ConfirmAssessmentGateHandler proceeds past a failed gate, recording the reason
func (a *App) ConfirmAssessmentGateHandler(c echo.Context) error {
	sess, err := a.session(c)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	g, err := sess.ConfirmGate(c.Param("categoryId"), req.Reason, a.Sessions.Now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, gateResponse(g))
}

// CalculateAssessmentHandler moves the session to Calculated and returns the summary
func (a *App) CalculateAssessmentHandler(c echo.Context) error {
	sess, err := a.session(c)
	if err != nil {
		return respondError(c, err)
	}
	if _, err := sess.Calculate(a.Sessions.Now()); err != nil {
		return respondError(c, err)
	}
	return a.sessionResponse(c, sess, http.StatusOK)
}

// SaveAssessmentHandler persists a calculated session
func (a *App) SaveAssessmentHandler(c echo.Context) error {
	sess, err := a.session(c)
	if err != nil {
		return respondError(c, err)
	}
	p, err := a.Projects.SaveAssessment(c.Request().Context(), middleware.GetAuditContext(c), sess, a.Sessions.Now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"project":    p,
		"assessment": sess.View(),
	})
}

// ResetAssessmentHandler clears the session. The body must carry {"confirm": true}.
func (a *App) ResetAssessmentHandler(c echo.Context) error {
	sess, err := a.session(c)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := sess.Reset(req.Confirm, a.Taxonomy.Current(), a.Sessions.Now()); err != nil {
		return respondError(c, err)
	}
	services.LogAuditEvent(a.Projects.AuditDB, middleware.GetAuditContext(c), models.AuditActionDelete,
		models.AuditResourceSession, sess.ID(), "", "Assessment session reset", nil, nil)
	return a.sessionResponse(c, sess, http.StatusOK)
}

// DeleteAssessmentHandler discards a session without saving
func (a *App) DeleteAssessmentHandler(c echo.Context) error {
	if _, err := a.session(c); err != nil {
		return respondError(c, err)
	}
	a.Sessions.Delete(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}
