package handlers

import (
	"net/http"
	"strconv"
	"time"

	"sustain_score_app_go/services"

	"github.com/labstack/echo/v4"
)

// ListAuditLogsHandler pages through the audit trail (admin only)
func (a *App) ListAuditLogsHandler(c echo.Context) error {
	if a.Projects.AuditDB == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Audit logging is disabled")
	}

	filters := services.AuditLogFilters{
		UserName:     c.QueryParam("user"),
		ResourceType: c.QueryParam("resource_type"),
		Action:       c.QueryParam("action"),
	}
	if v := c.QueryParam("date_from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filters.DateFrom = t
		}
	}
	if v := c.QueryParam("date_to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			// include the whole day
			filters.DateTo = t.Add(24*time.Hour - time.Nanosecond)
		}
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if pageSize > 200 {
		pageSize = 200
	}

	logs, total, err := services.ListAuditLogs(a.Projects.AuditDB.WithContext(c.Request().Context()), filters, page, pageSize)
	if err != nil {
		return respondError(c, err)
	}

	type entry struct {
		ID           string      `json:"id"`
		CreatedAt    time.Time   `json:"created_at"`
		UserName     string      `json:"user_name"`
		IsAdmin      bool        `json:"is_admin"`
		ResourceType string      `json:"resource_type"`
		ResourceID   string      `json:"resource_id"`
		ResourceName string      `json:"resource_name,omitempty"`
		Action       string      `json:"action"`
		Description  string      `json:"description,omitempty"`
		Changes      interface{} `json:"changes,omitempty"`
	}
	out := make([]entry, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		out = append(out, entry{
			ID: l.ID, CreatedAt: l.CreatedAt, UserName: l.UserName, IsAdmin: l.IsAdmin,
			ResourceType: l.ResourceType, ResourceID: l.ResourceID, ResourceName: l.ResourceName,
			Action: string(l.Action), Description: l.Description, Changes: l.Changes(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"logs": out, "total": total})
}
