package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"sustain_score_app_go/middleware"
	"sustain_score_app_go/models"
	"sustain_score_app_go/services"
	"sustain_score_app_go/templates/reports"

	"github.com/labstack/echo/v4"
)

// archiveURLExpiry bounds the life of signed archive download links
const archiveURLExpiry = 15 * time.Minute

func (a *App) comparisonReport(c echo.Context) (*services.ComparisonReport, error) {
	filter, err := projectFilterFromQuery(c)
	if err != nil {
		return nil, err
	}
	return a.Projects.ComparisonReport(c.Request().Context(), filter, time.Now())
}

// auditExport records a report download
func (a *App) auditExport(c echo.Context, format string, r *services.ComparisonReport) {
	services.LogAuditEvent(a.Projects.AuditDB, middleware.GetAuditContext(c), models.AuditActionExport,
		models.AuditResourceReport, "comparison", "comparison."+format,
		fmt.Sprintf("Comparison report downloaded as %s", format), nil,
		map[string]interface{}{"format": format, "projects": len(r.Rows), "taxonomy_version": r.TaxonomyVersion})
}

func attachmentName(r *services.ComparisonReport, ext string) string {
	return fmt.Sprintf("attachment; filename=comparison_%s.%s", r.GeneratedAt.Format("20060102_150405"), ext)
}

// ComparisonReportHandler returns the comparison table as JSON. It accepts
// the same filters as the project list.
func (a *App) ComparisonReportHandler(c echo.Context) error {
	r, err := a.comparisonReport(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// ComparisonHTMLHandler renders the printable comparison page
func (a *App) ComparisonHTMLHandler(c echo.Context) error {
	r, err := a.comparisonReport(c)
	if err != nil {
		return respondError(c, err)
	}
	html, err := reports.RenderHTML(c.Request().Context(), reports.ComparisonPage(r))
	if err != nil {
		return respondError(c, err)
	}
	return c.HTML(http.StatusOK, html)
}

// ComparisonExcelHandler downloads the comparison as an xlsx workbook
func (a *App) ComparisonExcelHandler(c echo.Context) error {
	r, err := a.comparisonReport(c)
	if err != nil {
		return respondError(c, err)
	}
	buf, err := services.WriteComparisonWorkbook(r)
	if err != nil {
		return respondError(c, err)
	}
	a.auditExport(c, "xlsx", r)

	c.Response().Header().Set("Content-Disposition", attachmentName(r, "xlsx"))
	return c.Blob(http.StatusOK, services.ContentTypeXLSX, buf.Bytes())
}

// ComparisonPDFHandler prints the comparison page through headless Chrome
func (a *App) ComparisonPDFHandler(c echo.Context) error {
	r, err := a.comparisonReport(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx := c.Request().Context()
	html, err := reports.RenderHTML(ctx, reports.ComparisonPage(r))
	if err != nil {
		return respondError(c, err)
	}
	pdf, err := a.PDF(ctx, html, services.DefaultPDFOptions(a.Config.ChromePath))
	if err != nil {
		return respondError(c, err)
	}
	a.auditExport(c, "pdf", r)

	c.Response().Header().Set("Content-Disposition", attachmentName(r, "pdf"))
	return c.Blob(http.StatusOK, services.ContentTypePDF, pdf)
}

// ProgressionReportHandler shows how one project's scores moved between
// stages. ?format=html renders the printable page.
func (a *App) ProgressionReportHandler(c echo.Context) error {
	r, err := a.Projects.Progression(c.Request().Context(), c.Param("projectNumber"))
	if err != nil {
		return respondError(c, err)
	}
	if c.QueryParam("format") != "html" {
		return c.JSON(http.StatusOK, r)
	}
	html, err := reports.RenderHTML(c.Request().Context(), reports.ProgressionPage(a.Taxonomy.Current(), r))
	if err != nil {
		return respondError(c, err)
	}
	return c.HTML(http.StatusOK, html)
}

// ListArchivedReportsHandler lists workbooks written by the nightly archive
func (a *App) ListArchivedReportsHandler(c echo.Context) error {
	objs, err := a.Storage.List(c.Request().Context(), services.ReportArchivePrefix)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"reports": objs,
		"total":   len(objs),
	})
}

// ArchiveReportHandler archives the current comparison immediately
func (a *App) ArchiveReportHandler(c echo.Context) error {
	r, err := a.Projects.ComparisonReport(c.Request().Context(), services.ProjectFilter{}, time.Now())
	if err != nil {
		return respondError(c, err)
	}
	result, err := services.ArchiveComparisonReport(c.Request().Context(), a.Storage, r)
	if err != nil {
		return respondError(c, err)
	}
	services.LogAuditEvent(a.Projects.AuditDB, middleware.GetAuditContext(c), models.AuditActionExport,
		models.AuditResourceReport, result.Key, result.Key, "Comparison report archived", nil,
		map[string]interface{}{"projects": len(r.Rows), "size": result.FileSize})
	return c.JSON(http.StatusCreated, result)
}

// DownloadArchivedReportHandler streams one archived workbook, or redirects
// to a short-lived signed URL when the storage provider issues one.
func (a *App) DownloadArchivedReportHandler(c echo.Context) error {
	key := strings.TrimPrefix(c.Param("*"), "/")
	if !strings.HasPrefix(key, services.ReportArchivePrefix+"/") || strings.Contains(key, "..") {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	signed, err := a.Storage.GetSignedURL(c.Request().Context(), key, archiveURLExpiry)
	if err != nil {
		log.Printf("[REPORT] Failed to sign %s, streaming instead: %v", key, err)
	} else if signed != "" {
		return c.Redirect(http.StatusFound, signed)
	}
	reader, contentType, err := a.Storage.Get(c.Request().Context(), key)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	defer reader.Close()

	name := key[strings.LastIndex(key, "/")+1:]
	c.Response().Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
	return c.Stream(http.StatusOK, contentType, reader)
}
