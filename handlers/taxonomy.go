package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"sustain_score_app_go/middleware"
	"sustain_score_app_go/models"
	"sustain_score_app_go/services"
	"sustain_score_app_go/services/scoring"

	"github.com/labstack/echo/v4"
)

// TaxonomyItemRequest is the body of the item endpoints. CategoryID and
// SubCategoryID are only read when adding.
type TaxonomyItemRequest struct {
	CategoryID         string `json:"category_id"`
	SubCategoryID      string `json:"sub_category_id"`
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	RecommendedActions string `json:"recommended_actions"`
	DefaultPriority    int    `json:"default_priority"`
}

func (r TaxonomyItemRequest) item() scoring.Item {
	return scoring.Item{
		ID:                 strings.TrimSpace(r.ID),
		Name:               services.SanitizeText(r.Name),
		Description:        services.SanitizeText(r.Description),
		RecommendedActions: services.SanitizeText(r.RecommendedActions),
		DefaultPriority:    scoring.Priority(r.DefaultPriority),
	}
}

// GetTaxonomyHandler returns the current taxonomy snapshot, or a historical
// one with ?version=
func (a *App) GetTaxonomyHandler(c echo.Context) error {
	version := 0
	if v := c.QueryParam("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid version")
		}
		version = n
	}
	tax, err := a.Taxonomy.Version(c.Request().Context(), version)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tax)
}

// ListTaxonomyVersionsHandler lists published versions without their documents
func (a *App) ListTaxonomyVersionsHandler(c echo.Context) error {
	versions, err := a.Taxonomy.Versions(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	type versionSummary struct {
		Version     int    `json:"version"`
		ChangeNote  string `json:"change_note"`
		PublishedBy string `json:"published_by"`
		CreatedAt   string `json:"created_at"`
	}
	out := make([]versionSummary, 0, len(versions))
	for _, v := range versions {
		s := versionSummary{Version: v.Version, ChangeNote: v.ChangeNote, PublishedBy: v.PublishedBy}
		if !v.CreatedAt.IsZero() {
			s.CreatedAt = v.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")
		}
		out = append(out, s)
	}
	return c.JSON(http.StatusOK, out)
}

// AddTaxonomyItemHandler publishes a version with a new checklist item
func (a *App) AddTaxonomyItemHandler(c echo.Context) error {
	var req TaxonomyItemRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.ID == "" || req.CategoryID == "" || req.SubCategoryID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "category_id, sub_category_id and id are required")
	}

	tax, err := a.Taxonomy.AddItem(c.Request().Context(), req.CategoryID, req.SubCategoryID, req.item(), middleware.UserName(c))
	if err != nil {
		return respondTaxonomyError(c, err)
	}
	a.auditPublish(c, tax, fmt.Sprintf("Added checklist item %s", req.ID), nil, req.item())
	return c.JSON(http.StatusCreated, tax)
}

// UpdateTaxonomyItemHandler publishes a version with an item's fields replaced
func (a *App) UpdateTaxonomyItemHandler(c echo.Context) error {
	var req TaxonomyItemRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	req.ID = c.Param("itemId")

	_, _, old, found := a.Taxonomy.Current().FindItem(req.ID)
	if !found {
		return respondError(c, fmt.Errorf("%w: %s", scoring.ErrItemNotFound, req.ID))
	}
	before := *old

	tax, err := a.Taxonomy.UpdateItem(c.Request().Context(), req.item(), middleware.UserName(c))
	if err != nil {
		return respondTaxonomyError(c, err)
	}
	a.auditPublish(c, tax, fmt.Sprintf("Updated checklist item %s", req.ID), before, req.item())
	return c.JSON(http.StatusOK, tax)
}

// DeleteTaxonomyItemHandler publishes a version without the item
func (a *App) DeleteTaxonomyItemHandler(c echo.Context) error {
	itemID := c.Param("itemId")
	tax, err := a.Taxonomy.RemoveItem(c.Request().Context(), itemID, middleware.UserName(c))
	if err != nil {
		return respondTaxonomyError(c, err)
	}
	a.auditPublish(c, tax, fmt.Sprintf("Removed checklist item %s", itemID), map[string]string{"id": itemID}, nil)
	return c.JSON(http.StatusOK, tax)
}

func (a *App) auditPublish(c echo.Context, tax *scoring.Taxonomy, desc string, oldValues, newValues interface{}) {
	services.LogAuditEvent(a.Projects.AuditDB, middleware.GetAuditContext(c), models.AuditActionPublish,
		models.AuditResourceTaxonomy, strconv.Itoa(tax.Version), fmt.Sprintf("v%d", tax.Version), desc, oldValues, newValues)
}

// respondTaxonomyError treats malformed items as bad requests
func respondTaxonomyError(c echo.Context, err error) error {
	if errors.Is(err, scoring.ErrInvalidItem) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return respondError(c, err)
}
