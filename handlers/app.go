package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"sustain_score_app_go/config"
	"sustain_score_app_go/services"
	"sustain_score_app_go/services/scoring"

	"github.com/labstack/echo/v4"
)

// PDFRenderer turns report HTML into a PDF document
type PDFRenderer func(ctx context.Context, html string, opts services.PDFOptions) ([]byte, error)

// App holds the services the HTTP handlers call into. Handlers stay thin:
// they bind input, call the core and map errors to status codes.
type App struct {
	Config   *config.Config
	Projects *services.ProjectService
	Taxonomy *services.TaxonomyService
	Sessions *services.SessionRegistry
	Storage  services.StorageProvider
	PDF      PDFRenderer
}

// NewApp wires handlers over the given services with the chromedp renderer
func NewApp(cfg *config.Config, projects *services.ProjectService, sessions *services.SessionRegistry, storage services.StorageProvider) *App {
	return &App{
		Config:   cfg,
		Projects: projects,
		Taxonomy: projects.Taxonomy,
		Sessions: sessions,
		Storage:  storage,
		PDF:      services.GeneratePDF,
	}
}

// ValidationResponse is the 422 body listing every failed rule
type ValidationResponse struct {
	Error  string                       `json:"error"`
	Errors []*services.ValidationError `json:"errors"`
}

// respondError maps core errors onto HTTP responses
func respondError(c echo.Context, err error) error {
	var verrs services.ValidationErrors
	if errors.As(err, &verrs) {
		return c.JSON(http.StatusUnprocessableEntity, ValidationResponse{Error: "validation_failed", Errors: verrs})
	}
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, ValidationResponse{Error: "validation_failed", Errors: []*services.ValidationError{verr}})
	}
	var terr *services.TransitionError
	if errors.As(err, &terr) {
		return echo.NewHTTPError(http.StatusConflict, terr.Error())
	}

	switch {
	case errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrTaxonomyVersionNotFound),
		errors.Is(err, scoring.ErrCategoryNotFound),
		errors.Is(err, scoring.ErrSubCategoryNotFound),
		errors.Is(err, scoring.ErrItemNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrReferenceConflict), errors.Is(err, scoring.ErrDuplicateItem):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrAdminRequired):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrResetNotConfirmed):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	log.Printf("[HTTP] %s %s failed: %v", c.Request().Method, c.Path(), err)
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}

// bindJSON binds the request body or returns a 400. Path and query params
// are not bound, so map targets only ever see body keys.
func bindJSON(c echo.Context, v interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return nil
}

// HealthHandler reports liveness and the current taxonomy version
func (a *App) HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"taxonomy_version": a.Taxonomy.Current().Version,
		"sessions":         a.Sessions.Len(),
	})
}
