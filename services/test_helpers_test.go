package services

import (
	"context"
	"testing"
	"time"

	"sustain_score_app_go/models"
	"sustain_score_app_go/services/scoring"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an isolated shared in-memory database so async audit
// writes land in the same schema as the test.
func setupTestDB(t *testing.T) *gorm.DB {
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

// setupProjectService wires a service over a fresh database with the
// default taxonomy loaded.
func setupProjectService(t *testing.T) (*ProjectService, *gorm.DB) {
	testDB := setupTestDB(t)
	tax := NewTaxonomyService(testDB)
	require.NoError(t, tax.Load(context.Background(), scoring.DefaultTaxonomy()))
	return NewProjectService(NewGormProjectStore(testDB), tax, testDB), testDB
}

func identity(number string, stage models.ProjectStage) ProjectIdentity {
	return ProjectIdentity{
		ProjectNumber: number,
		ProjectName:   "Harbour Bridge Upgrade",
		ProjectOwner:  "J. Ortiz",
		Department:    "Transport",
		CreatedByName: "tester",
		ProjectStage:  stage,
	}
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) ProjectSaved(p *models.Project, created bool) {
	m.Called(p.Reference, created)
}

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
