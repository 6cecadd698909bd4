package handlers

import (
	"net/http"
	"strings"

	"sustain_score_app_go/middleware"
	"sustain_score_app_go/models"
	"sustain_score_app_go/services"
	"sustain_score_app_go/services/scoring"

	"github.com/labstack/echo/v4"
)

// ProjectResponse is a stored record with its re-derived score breakdown
type ProjectResponse struct {
	*models.Project
	Score *scoring.ScoreResult `json:"score"`
}

// projectFilterFromQuery reads ?project_number=&stage=&department=&status=&sort=&order=
func projectFilterFromQuery(c echo.Context) (services.ProjectFilter, error) {
	filter := services.ProjectFilter{
		ProjectNumber: c.QueryParam("project_number"),
		Department:    c.QueryParam("department"),
		Status:        c.QueryParam("status"),
		Sort: services.SortSpec{
			Field: c.QueryParam("sort"),
			Desc:  strings.EqualFold(c.QueryParam("order"), "desc"),
		},
	}
	if v := c.QueryParam("stage"); v != "" {
		stage, err := models.ParseProjectStage(v)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		filter.Stage = stage
	}
	return filter, nil
}

// ListProjectsHandler lists stored records with filtering and sorting
func (a *App) ListProjectsHandler(c echo.Context) error {
	filter, err := projectFilterFromQuery(c)
	if err != nil {
		return err
	}
	projects, err := a.Projects.ListProjects(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"projects": projects,
		"total":    len(projects),
	})
}

// GetProjectHandler returns one record and its score breakdown
func (a *App) GetProjectHandler(c echo.Context) error {
	p, score, err := a.Projects.GetProject(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ProjectResponse{Project: p, Score: score})
}

// CreateProjectHandler stores a record directly, without a session
func (a *App) CreateProjectHandler(c echo.Context) error {
	var in services.ProjectInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if in.CreatedByName == "" {
		in.CreatedByName = middleware.UserName(c)
	}

	p, err := a.Projects.CreateProject(c.Request().Context(), middleware.GetAuditContext(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, ProjectResponse{Project: p, Score: a.Projects.Breakdown(c.Request().Context(), p)})
}

// UpdateProjectHandler overwrites a record in place
func (a *App) UpdateProjectHandler(c echo.Context) error {
	var in services.ProjectInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}

	p, err := a.Projects.UpdateProject(c.Request().Context(), middleware.GetAuditContext(c), c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ProjectResponse{Project: p, Score: a.Projects.Breakdown(c.Request().Context(), p)})
}

// DeleteProjectHandler removes a record permanently
func (a *App) DeleteProjectHandler(c echo.Context) error {
	if err := a.Projects.DeleteProject(c.Request().Context(), middleware.GetAuditContext(c), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ReferencePreviewHandler shows the reference a new record would receive
func (a *App) ReferencePreviewHandler(c echo.Context) error {
	stage, err := models.ParseProjectStage(c.QueryParam("stage"))
	if err != nil {
		return respondError(c, &services.ValidationError{Code: services.CodeInvalidStage, Field: "project_stage", Message: err.Error()})
	}

	ref, verr, err := a.Projects.PreviewReference(c.Request().Context(), c.QueryParam("project_number"), stage)
	if err != nil {
		return respondError(c, err)
	}
	if verr != nil {
		return respondError(c, verr)
	}
	return c.JSON(http.StatusOK, map[string]string{"reference": ref})
}

// ProjectHistoryHandler returns the audit trail of one record
func (a *App) ProjectHistoryHandler(c echo.Context) error {
	p, err := a.Projects.Store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if a.Projects.AuditDB == nil {
		return c.JSON(http.StatusOK, []models.AuditLog{})
	}
	logs, err := services.GetResourceAuditHistory(a.Projects.AuditDB.WithContext(c.Request().Context()), models.AuditResourceProject, p.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}
