package handlers

import (
	"sustain_score_app_go/middleware"

	"github.com/labstack/echo/v4"
)

// Register mounts the API on e. exports limits the download routes; pass
// nil to leave them unthrottled.
func Register(e *echo.Echo, a *App, exports *middleware.RateLimiter) {
	e.GET("/healthz", a.HealthHandler)

	api := e.Group("/api")
	api.Use(middleware.LoadUser(a.Config))
	api.Use(middleware.AuditContext())
	{
		// Taxonomy
		api.GET("/taxonomy", a.GetTaxonomyHandler)
		api.GET("/taxonomy/versions", a.ListTaxonomyVersionsHandler)

		// Stateless scoring
		api.POST("/score", a.ComputeScoreHandler)
		api.POST("/score/gate/:categoryId", a.CheckGateHandler)

		// Stored records
		api.GET("/projects", a.ListProjectsHandler)
		api.GET("/projects/reference-preview", a.ReferencePreviewHandler)
		api.GET("/projects/:id", a.GetProjectHandler)
		api.GET("/projects/:id/history", a.ProjectHistoryHandler)
		api.POST("/projects", a.CreateProjectHandler)
		api.PUT("/projects/:id", a.UpdateProjectHandler)
		api.DELETE("/projects/:id", a.DeleteProjectHandler)

		// Assessment sessions
		api.POST("/assessments", a.CreateAssessmentHandler)
		api.POST("/assessments/from-project/:projectId", a.LoadAssessmentHandler)
		api.GET("/assessments/:id", a.GetAssessmentHandler)
		api.DELETE("/assessments/:id", a.DeleteAssessmentHandler)
		api.PUT("/assessments/:id/identity", a.SetAssessmentIdentityHandler)
		api.PUT("/assessments/:id/responses", a.SetAssessmentResponsesHandler)
		api.PUT("/assessments/:id/priorities", a.SetAssessmentPrioritiesHandler)
		api.PUT("/assessments/:id/summary", a.SetAssessmentSummaryHandler)
		api.PUT("/assessments/:id/comments", a.SetAssessmentCommentsHandler)
		api.POST("/assessments/:id/gate/:categoryId", a.CheckAssessmentGateHandler)
		api.POST("/assessments/:id/gate/:categoryId/confirm", a.ConfirmAssessmentGateHandler)
		api.POST("/assessments/:id/calculate", a.CalculateAssessmentHandler)
		api.POST("/assessments/:id/save", a.SaveAssessmentHandler)
		api.POST("/assessments/:id/reset", a.ResetAssessmentHandler)

		// Reports
		api.GET("/reports/comparison", a.ComparisonReportHandler)
		api.GET("/reports/comparison.html", a.ComparisonHTMLHandler)
		api.GET("/reports/progression/:projectNumber", a.ProgressionReportHandler)
		api.GET("/reports/archive", a.ListArchivedReportsHandler)

		downloads := api.Group("")
		if exports != nil {
			downloads.Use(exports.Middleware())
		}
		downloads.GET("/reports/comparison.xlsx", a.ComparisonExcelHandler)
		downloads.GET("/reports/comparison.pdf", a.ComparisonPDFHandler)
		downloads.GET("/reports/archive/*", a.DownloadArchivedReportHandler)

		// Admin-only routes
		admin := api.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/taxonomy/items", a.AddTaxonomyItemHandler)
			admin.PUT("/taxonomy/items/:itemId", a.UpdateTaxonomyItemHandler)
			admin.DELETE("/taxonomy/items/:itemId", a.DeleteTaxonomyItemHandler)
			admin.POST("/reports/archive", a.ArchiveReportHandler)
			admin.GET("/audit-logs", a.ListAuditLogsHandler)
		}
	}
}
