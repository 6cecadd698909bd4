package reports

import (
	"context"
	"strings"
	"testing"
	"time"

	"sustain_score_app_go/models"
	"sustain_score_app_go/services"
	"sustain_score_app_go/services/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTaxonomy() *scoring.Taxonomy {
	return &scoring.Taxonomy{
		Version: 1,
		Categories: []scoring.Category{
			{ID: "energy", Name: "Energy & Carbon", Weight: 100, SubCategories: []scoring.SubCategory{{ID: "efficiency", Weight: 100}}},
		},
	}
}

func sampleProjects() []models.Project {
	return []models.Project{
		{Reference: "P100_T_001", ProjectNumber: "P100", ProjectName: "<b>Depot</b>", ProjectStage: models.StageTender,
			SubCategoryScores: map[string]map[string]float64{"energy": {"efficiency": 40}}},
		{Reference: "P100_A_001", ProjectNumber: "P100", ProjectName: "<b>Depot</b>", ProjectStage: models.StageActive,
			SubCategoryScores: map[string]map[string]float64{"energy": {"efficiency": 85}}},
	}
}

func TestComparisonPage(t *testing.T) {
	r := services.BuildComparisonReport(sampleTaxonomy(), sampleProjects(), time.Date(2026, 3, 9, 2, 0, 0, 0, time.UTC))
	html, err := RenderHTML(context.Background(), ComparisonPage(r))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "Energy &amp; Carbon (100%)")
	assert.Contains(t, html, "&lt;b&gt;Depot&lt;/b&gt;")
	assert.NotContains(t, html, "<b>Depot</b>")
	assert.Contains(t, html, `<td class="rating-excellent">Excellent</td>`)
	assert.Contains(t, html, "09 Mar 2026 02:00")
	assert.Contains(t, html, "62.50")
}

func TestComparisonTableEmpty(t *testing.T) {
	r := services.BuildComparisonReport(sampleTaxonomy(), nil, time.Now())
	html, err := RenderHTML(context.Background(), ComparisonTable(r))
	require.NoError(t, err)
	assert.Contains(t, html, "No project records match this report.")
}

func TestProgressionPage(t *testing.T) {
	tax := sampleTaxonomy()
	r, err := services.BuildProjectProgression(tax, sampleProjects(), "P100")
	require.NoError(t, err)

	html, err := RenderHTML(context.Background(), ProgressionPage(tax, r))
	require.NoError(t, err)
	assert.Contains(t, html, "+45.00")
	assert.Contains(t, html, `id="progression-data"`)
	assert.NotContains(t, html, "<b>Depot</b>")
}

func TestFormatDelta(t *testing.T) {
	assert.Equal(t, "+1.50", formatDelta(1.5))
	assert.Equal(t, "-2.00", formatDelta(-2))
	assert.Equal(t, "–", formatDelta(0))
}
