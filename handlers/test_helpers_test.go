package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"sustain_score_app_go/config"
	"sustain_score_app_go/middleware"
	"sustain_score_app_go/models"
	"sustain_score_app_go/services"
	"sustain_score_app_go/services/scoring"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testAdminGroup = "sustainability-admins"

func setupTestDB(t *testing.T) *gorm.DB {
	// Use unique shared memory name to isolate tests while allowing shared cache for async tasks
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(&models.Project{}, &models.TaxonomyVersion{}, &models.AuditLog{}))

	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return testDB
}

// setupTestApp wires the full router over a fresh database. PDF rendering
// is stubbed so tests never start Chrome.
func setupTestApp(t *testing.T) (*App, *gorm.DB, *echo.Echo) {
	testDB := setupTestDB(t)
	cfg := &config.Config{
		AdminGroups: []string{testAdminGroup},
		ReportDir:   t.TempDir(),
	}

	tax := services.NewTaxonomyService(testDB)
	require.NoError(t, tax.Load(context.Background(), scoring.DefaultTaxonomy()))
	projects := services.NewProjectService(services.NewGormProjectStore(testDB), tax, testDB)

	app := NewApp(cfg, projects, services.NewSessionRegistry(), services.NewLocalStorage(cfg.ReportDir))
	app.PDF = func(ctx context.Context, html string, opts services.PDFOptions) ([]byte, error) {
		return []byte("%PDF-1.4 stub"), nil
	}

	e := echo.New()
	Register(e, app, nil)
	return app, testDB, e
}

type caller struct {
	name   string
	groups string
}

var (
	asUser  = caller{name: "alice"}
	asAdmin = caller{name: "root", groups: testAdminGroup}
	asNone  = caller{}
)

// do sends body as JSON through the router with the proxy headers of who
func do(e *echo.Echo, who caller, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if who.name != "" {
		req.Header.Set(middleware.HeaderForwardedUser, who.name)
	}
	if who.groups != "" {
		req.Header.Set(middleware.HeaderForwardedGroups, who.groups)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// validationCodes extracts the codes of a 422 body
func validationCodes(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	var body ValidationResponse
	decode(t, rec, &body)
	require.Equal(t, "validation_failed", body.Error)
	codes := make([]string, 0, len(body.Errors))
	for _, e := range body.Errors {
		codes = append(codes, e.Code)
	}
	return codes
}

func projectBody(number string, stage models.ProjectStage) map[string]interface{} {
	return map[string]interface{}{
		"project_number":  number,
		"project_name":    "Harbour Bridge Upgrade",
		"project_owner":   "J. Ortiz",
		"department":      "Transport",
		"created_by_name": "tester",
		"project_stage":   stage,
		"sub_category_scores": map[string]map[string]float64{
			"energy_carbon": {"energy_efficiency": 80, "renewable_energy": 50, "carbon_reduction": 100},
			"social_impact": {"community_engagement": 60},
		},
		"category_comments": map[string]string{"energy_carbon": "Solar on depot roof"},
	}
}

// createProject stores a record through the API and returns it
func createProject(t *testing.T, e *echo.Echo, number string, stage models.ProjectStage) ProjectResponse {
	t.Helper()
	rec := do(e, asUser, http.MethodPost, "/api/projects", projectBody(number, stage))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p ProjectResponse
	decode(t, rec, &p)
	return p
}

// newLimitedRouter mounts app behind the export rate limiter
func newLimitedRouter(app *App) *echo.Echo {
	e := echo.New()
	Register(e, app, middleware.NewExportRateLimiter())
	return e
}
