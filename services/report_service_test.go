package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sustain_score_app_go/models"
	"sustain_score_app_go/services/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func reportTaxonomy() *scoring.Taxonomy {
	return &scoring.Taxonomy{
		Version: 2,
		Categories: []scoring.Category{
			{ID: "energy", Name: "Energy", Weight: 60, Mode: scoring.ModeMandatorySplit, SubCategories: []scoring.SubCategory{
				{ID: "efficiency", Weight: 60}, {ID: "renewables", Weight: 40},
			}},
			{ID: "social", Name: "Social", Weight: 40, Mode: scoring.ModeMandatorySplit, SubCategories: []scoring.SubCategory{
				{ID: "community", Weight: 50}, {ID: "wellbeing", Weight: 50},
			}},
		},
	}
}

func reportProjects() []models.Project {
	return []models.Project{
		{
			ID: "b", Reference: "P100_A_001", ProjectNumber: "P100", ProjectName: "Harbour", ProjectStage: models.StageActive,
			SubCategoryScores: map[string]map[string]float64{
				"energy": {"efficiency": 100, "renewables": 100},
				"social": {"community": 60, "wellbeing": 80},
			},
		},
		{
			ID: "a", Reference: "P100_T_001", ProjectNumber: "P100", ProjectName: "Harbour", ProjectStage: models.StageTender,
			SubCategoryScores: map[string]map[string]float64{
				"energy": {"efficiency": 80, "renewables": 50},
				"social": {"community": 40, "wellbeing": 70},
			},
		},
		{ID: "c", Reference: "P200_T_001", ProjectNumber: "P200", ProjectName: "Depot", ProjectStage: models.StageTender},
	}
}

func TestBuildComparisonReport(t *testing.T) {
	now := time.Date(2026, 3, 9, 2, 0, 0, 0, time.UTC)
	r := BuildComparisonReport(reportTaxonomy(), reportProjects(), now)

	assert.Equal(t, 2, r.TaxonomyVersion)
	assert.Equal(t, now, r.GeneratedAt)
	require.Len(t, r.Categories, 2)
	require.Len(t, r.Rows, 3)

	tender := r.Rows[1]
	assert.Equal(t, "P100_T_001", tender.Reference)
	assert.InDelta(t, 68.0, tender.CategoryScores["energy"], 1e-9)
	assert.InDelta(t, 55.0, tender.CategoryScores["social"], 1e-9)
	assert.InDelta(t, 62.8, tender.TotalScore, 1e-9)
	assert.Equal(t, scoring.RatingGood, tender.Rating)

	assert.InDelta(t, 88.0, r.Rows[0].TotalScore, 1e-9)
	assert.Equal(t, 0.0, r.Rows[2].TotalScore)

	assert.InDelta(t, 56.0, r.CategoryAverages["energy"], 1e-9)
	assert.InDelta(t, 41.67, r.CategoryAverages["social"], 1e-9)
	assert.InDelta(t, 50.27, r.AverageTotal, 1e-9)
	assert.InDelta(t, 31.4, r.StageAverages["Tender"], 1e-9)
	assert.InDelta(t, 88.0, r.StageAverages["Active"], 1e-9)
	_, hasComplete := r.StageAverages["Complete"]
	assert.False(t, hasComplete)

	t.Run("Empty", func(t *testing.T) {
		r := BuildComparisonReport(reportTaxonomy(), nil, now)
		assert.Empty(t, r.Rows)
		assert.Equal(t, 0.0, r.AverageTotal)
	})
}

func TestBuildProjectProgression(t *testing.T) {
	r, err := BuildProjectProgression(reportTaxonomy(), reportProjects(), "P100")
	require.NoError(t, err)
	assert.Equal(t, "Harbour", r.ProjectName)
	require.Len(t, r.Steps, 2)

	assert.Equal(t, models.StageTender, r.Steps[0].Stage)
	assert.Equal(t, 0.0, r.Steps[0].Delta)
	assert.Empty(t, r.Steps[0].CategoryDeltas)

	assert.Equal(t, models.StageActive, r.Steps[1].Stage)
	assert.InDelta(t, 25.2, r.Steps[1].Delta, 1e-9)
	assert.InDelta(t, 32.0, r.Steps[1].CategoryDeltas["energy"], 1e-9)
	assert.InDelta(t, 15.0, r.Steps[1].CategoryDeltas["social"], 1e-9)

	_, err = BuildProjectProgression(reportTaxonomy(), reportProjects(), "P999")
	assert.True(t, errors.Is(err, ErrProjectNotFound))
}

func TestBuildProjectProgressionOrdersBySequence(t *testing.T) {
	projects := []models.Project{
		{ID: "x", Reference: "P7_T_1000", ProjectNumber: "P7", ProjectStage: models.StageTender},
		{ID: "y", Reference: "P7_T_999", ProjectNumber: "P7", ProjectStage: models.StageTender},
		{ID: "z", Reference: "P7_A_001", ProjectNumber: "P7", ProjectStage: models.StageActive},
	}
	r, err := BuildProjectProgression(reportTaxonomy(), projects, "P7")
	require.NoError(t, err)
	require.Len(t, r.Steps, 3)
	assert.Equal(t, "P7_T_999", r.Steps[0].Reference)
	assert.Equal(t, "P7_T_1000", r.Steps[1].Reference)
	assert.Equal(t, "P7_A_001", r.Steps[2].Reference)
}

func TestWriteComparisonWorkbook(t *testing.T) {
	r := BuildComparisonReport(reportTaxonomy(), reportProjects(), testNow)
	buf, err := WriteComparisonWorkbook(r)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetComparison, SheetAverages}, f.GetSheetList())

	rows, err := f.GetRows(SheetComparison)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{
		"Reference", "Project Number", "Project Name", "Department", "Stage",
		"Energy (60%)", "Social (40%)", "Total Score", "Rating",
	}, rows[0])
	assert.Equal(t, "P100_A_001", rows[1][0])
	assert.Equal(t, "Excellent", rows[1][8])

	averages, err := f.GetRows(SheetAverages)
	require.NoError(t, err)
	assert.Equal(t, []string{"Category", "Average Score"}, averages[0])
	assert.Equal(t, "Energy", averages[1][0])
	require.Len(t, averages, 8)
	assert.Equal(t, []string{"Stage", "Average Total"}, averages[4])
	assert.Equal(t, "Tender", averages[5][0])
	assert.Equal(t, "All projects", averages[7][0])

	headerStyle, err := f.GetCellStyle(SheetAverages, "A1")
	require.NoError(t, err)
	stageStyle, err := f.GetCellStyle(SheetAverages, "A5")
	require.NoError(t, err)
	assert.NotZero(t, stageStyle)
	assert.Equal(t, headerStyle, stageStyle)
}

func TestArchiveComparisonReport(t *testing.T) {
	storage := NewLocalStorage(t.TempDir())
	r := BuildComparisonReport(reportTaxonomy(), reportProjects(), testNow)

	result, err := ArchiveComparisonReport(context.Background(), storage, r)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeXLSX, result.MimeType)
	assert.Greater(t, result.FileSize, int64(0))

	objs, err := storage.List(context.Background(), ReportArchivePrefix)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, result.Key, objs[0].Key)
}

func TestPruneArchivedReports(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	storage := NewLocalStorage(dir)

	old := GenerateReportKey(testNow.AddDate(0, 0, -100), ".xlsx")
	recent := GenerateReportKey(testNow, ".xlsx")
	for _, key := range []string{old, recent} {
		_, err := storage.UploadReader(ctx, strings.NewReader("x"), key, ContentTypeXLSX, 1)
		require.NoError(t, err)
	}
	past := testNow.AddDate(0, 0, -100)
	require.NoError(t, os.Chtimes(filepath.Join(dir, old), past, past))
	require.NoError(t, os.Chtimes(filepath.Join(dir, recent), testNow, testNow))

	deleted, err := PruneArchivedReports(ctx, storage, testNow.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, []string{old}, deleted)

	objs, err := storage.List(ctx, ReportArchivePrefix)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, recent, objs[0].Key)
}

func TestProjectServiceReports(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, AuditContext{}, createInput("P100", models.StageTender))
	require.NoError(t, err)
	_, err = svc.CreateProject(ctx, AuditContext{}, createInput("P100", models.StageActive))
	require.NoError(t, err)
	_, err = svc.CreateProject(ctx, AuditContext{}, createInput("P300", models.StageTender))
	require.NoError(t, err)

	r, err := svc.ComparisonReport(ctx, ProjectFilter{Stage: models.StageTender}, testNow)
	require.NoError(t, err)
	assert.Len(t, r.Rows, 2)
	assert.Len(t, r.Categories, 8)

	prog, err := svc.Progression(ctx, "P100")
	require.NoError(t, err)
	require.Len(t, prog.Steps, 2)
	assert.Equal(t, "P100_T_001", prog.Steps[0].Reference)
	assert.Equal(t, "P100_A_001", prog.Steps[1].Reference)
	assert.Equal(t, 0.0, prog.Steps[1].Delta)
}
