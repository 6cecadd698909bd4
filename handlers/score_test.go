package handlers

import (
	"net/http"
	"testing"

	"sustain_score_app_go/services/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeScoreHandler(t *testing.T) {
	app, _, e := setupTestApp(t)

	t.Run("Scores Responses", func(t *testing.T) {
		rec := do(e, asUser, http.MethodPost, "/api/score", map[string]interface{}{
			"responses": map[string]string{
				"energy_efficiency_01": "yes",
				"energy_efficiency_03": "Yes",
			},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res scoring.ScoreResult
		decode(t, rec, &res)
		assert.Equal(t, app.Taxonomy.Current().Version, res.TaxonomyVersion)
		energy, ok := res.Category("energy_carbon")
		require.True(t, ok)
		assert.InDelta(t, 68.42, scoring.Round2(energy.SubCategories[0].Score), 1e-9)
		assert.GreaterOrEqual(t, res.TotalScore, 0.0)
		assert.LessOrEqual(t, res.TotalScore, 100.0)
	})

	t.Run("Priority Overrides Ignored For Users", func(t *testing.T) {
		body := map[string]interface{}{
			"responses":  map[string]string{"energy_efficiency_01": "yes"},
			"priorities": map[string]int{"energy_efficiency_01": 3},
		}
		var asUserRes, asAdminRes scoring.ScoreResult
		decode(t, do(e, asUser, http.MethodPost, "/api/score", body), &asUserRes)
		decode(t, do(e, asAdmin, http.MethodPost, "/api/score", body), &asAdminRes)
		assert.NotEqual(t, asUserRes.TotalScore, asAdminRes.TotalScore)

		var plain scoring.ScoreResult
		decode(t, do(e, asUser, http.MethodPost, "/api/score", map[string]interface{}{
			"responses": map[string]string{"energy_efficiency_01": "yes"},
		}), &plain)
		assert.Equal(t, plain.TotalScore, asUserRes.TotalScore)
	})

	t.Run("Invalid Response", func(t *testing.T) {
		rec := do(e, asUser, http.MethodPost, "/api/score", map[string]interface{}{
			"responses": map[string]string{"energy_efficiency_01": "maybe"},
		})
		assert.Equal(t, []string{"unknown_identifier"}, validationCodes(t, rec))
	})

	t.Run("Checkbox Item Not Applicable", func(t *testing.T) {
		rec := do(e, asUser, http.MethodPost, "/api/score", map[string]interface{}{
			"responses": map[string]string{"energy_efficiency_01": "n/a", "water_efficiency_01": "n/a"},
		})
		assert.Equal(t, []string{"response_not_allowed"}, validationCodes(t, rec))
	})

	t.Run("Summary Value Out Of Range", func(t *testing.T) {
		rec := do(e, asUser, http.MethodPost, "/api/score", map[string]interface{}{
			"summary_values": map[string]map[string]float64{"social_impact": {"community_engagement": 140}},
		})
		assert.Contains(t, validationCodes(t, rec), "score_out_of_range")
	})

	t.Run("Unknown Taxonomy Version", func(t *testing.T) {
		rec := do(e, asUser, http.MethodPost, "/api/score", map[string]interface{}{"taxonomy_version": 99})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Malformed Body", func(t *testing.T) {
		rec := do(e, asUser, http.MethodPost, "/api/score", "not an object")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCheckGateHandler(t *testing.T) {
	_, _, e := setupTestApp(t)

	rec := do(e, asUser, http.MethodPost, "/api/score/gate/energy_carbon", map[string]interface{}{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var g GateResponse
	decode(t, rec, &g)
	assert.False(t, g.Passed)
	assert.NotEmpty(t, g.MissingMandatory)
	assert.NotEmpty(t, g.Warnings)

	rec = do(e, asUser, http.MethodPost, "/api/score/gate/nope", map[string]interface{}{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	_, _, e := setupTestApp(t)
	rec := do(e, asNone, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["sessions"])
}
