package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"sustain_score_app_go/models"
	"sustain_score_app_go/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestComparisonReportHandlers(t *testing.T) {
	app, testDB, e := setupTestApp(t)
	createProject(t, e, "P100", models.StageTender)
	createProject(t, e, "P100", models.StageActive)
	createProject(t, e, "P200", models.StageTender)

	t.Run("JSON", func(t *testing.T) {
		rec := do(e, asUser, http.MethodGet, "/api/reports/comparison", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var r services.ComparisonReport
		decode(t, rec, &r)
		assert.Len(t, r.Rows, 3)
		assert.Len(t, r.Categories, 8)
		assert.Equal(t, app.Taxonomy.Current().Version, r.TaxonomyVersion)

		rec = do(e, asUser, http.MethodGet, "/api/reports/comparison?project_number=P200", nil)
		decode(t, rec, &r)
		require.Len(t, r.Rows, 1)
		assert.Equal(t, "P200_T_001", r.Rows[0].Reference)
	})

	t.Run("HTML", func(t *testing.T) {
		rec := do(e, asUser, http.MethodGet, "/api/reports/comparison.html", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "P100_A_001")
		assert.Contains(t, rec.Body.String(), "Sustainability Comparison")
	})

	t.Run("Excel", func(t *testing.T) {
		rec := do(e, asUser, http.MethodGet, "/api/reports/comparison.xlsx", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, services.ContentTypeXLSX, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows(services.SheetComparison)
		require.NoError(t, err)
		assert.Len(t, rows, 4)
		assert.Equal(t, "Reference", rows[0][0])
	})

	t.Run("PDF", func(t *testing.T) {
		var html string
		app.PDF = func(ctx context.Context, h string, opts services.PDFOptions) ([]byte, error) {
			html = h
			return []byte("%PDF-1.4 stub"), nil
		}
		rec := do(e, asUser, http.MethodGet, "/api/reports/comparison.pdf", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, services.ContentTypePDF, rec.Header().Get("Content-Type"))
		assert.Equal(t, "%PDF-1.4 stub", rec.Body.String())
		assert.Contains(t, html, "P200_T_001")

		app.PDF = func(ctx context.Context, h string, opts services.PDFOptions) ([]byte, error) {
			return nil, errors.New("chrome not found")
		}
		rec = do(e, asUser, http.MethodGet, "/api/reports/comparison.pdf", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("Downloads Are Audited", func(t *testing.T) {
		assert.Eventually(t, func() bool {
			var count int64
			testDB.Model(&models.AuditLog{}).Where("action = ? AND resource_type = ?",
				models.AuditActionExport, models.AuditResourceReport).Count(&count)
			return count == 2
		}, time.Second, 20*time.Millisecond)
	})
}

func TestProgressionReportHandler(t *testing.T) {
	_, _, e := setupTestApp(t)
	createProject(t, e, "P100", models.StageTender)
	createProject(t, e, "P100", models.StageActive)

	rec := do(e, asUser, http.MethodGet, "/api/reports/progression/P100", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var r services.ProgressionReport
	decode(t, rec, &r)
	require.Len(t, r.Steps, 2)
	assert.Equal(t, models.StageTender, r.Steps[0].Stage)

	rec = do(e, asUser, http.MethodGet, "/api/reports/progression/P100?format=html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "progression-data")

	rec = do(e, asUser, http.MethodGet, "/api/reports/progression/P999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// signingStorage hands out signed URLs the way remote object storage does
type signingStorage struct {
	*services.LocalStorage
}

func (signingStorage) GetSignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	return "https://bucket.example.com/" + key + "?X-Amz-Expires=" + fmt.Sprint(int(expiration.Seconds())), nil
}

func TestReportArchiveHandlers(t *testing.T) {
	app, _, e := setupTestApp(t)
	createProject(t, e, "P100", models.StageTender)

	rec := do(e, asUser, http.MethodPost, "/api/reports/archive", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, asAdmin, http.MethodPost, "/api/reports/archive", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result services.StorageResult
	decode(t, rec, &result)
	assert.Contains(t, result.Key, services.ReportArchivePrefix+"/")

	rec = do(e, asUser, http.MethodGet, "/api/reports/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Reports []services.StoredObject `json:"reports"`
		Total   int                     `json:"total"`
	}
	decode(t, rec, &list)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, result.Key, list.Reports[0].Key)

	rec = do(e, asUser, http.MethodGet, "/api/reports/archive/"+result.Key, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Equal(t, result.FileSize, int64(rec.Body.Len()))

	rec = do(e, asUser, http.MethodGet, "/api/reports/archive/reports/other.xlsx", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	t.Run("Signed URL Redirect", func(t *testing.T) {
		app.Storage = signingStorage{services.NewLocalStorage(app.Config.ReportDir)}
		rec := do(e, asUser, http.MethodGet, "/api/reports/archive/"+result.Key, nil)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://bucket.example.com/"+result.Key+"?X-Amz-Expires=900", rec.Header().Get("Location"))
	})
}

func TestExportRateLimit(t *testing.T) {
	app, _, _ := setupTestApp(t)
	e := newLimitedRouter(app)
	for i := 0; i < 10; i++ {
		rec := do(e, asUser, http.MethodGet, "/api/reports/comparison.xlsx", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(e, asUser, http.MethodGet, "/api/reports/comparison.xlsx", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// other callers have their own bucket
	rec = do(e, caller{name: "bob"}, http.MethodGet, "/api/reports/comparison.xlsx", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
