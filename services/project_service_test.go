package services

import (
	"context"
	"errors"
	"testing"

	"sustain_score_app_go/models"
	"sustain_score_app_go/services/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createInput(number string, stage models.ProjectStage) ProjectInput {
	return ProjectInput{
		ProjectIdentity: identity(number, stage),
		SubCategoryScores: scoring.SubCategoryValues{
			"energy_carbon": {"energy_efficiency": 80, "renewable_energy": 50, "carbon_reduction": 100},
			"social_impact": {"community_engagement": 60},
		},
		CategoryComments: map[string]string{
			"energy_carbon": "<script>alert(1)</script>Solar on depot roof",
			"unknown":       "dropped",
		},
	}
}

func validationCodes(t *testing.T, err error) []string {
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected validation errors, got %v", err)
	return verrs.Codes()
}

func TestCreateProjectLifecycle(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	notifier := &mockNotifier{}
	notifier.On("ProjectSaved", "P100_T_001", true).Return().Once()
	notifier.On("ProjectSaved", "P100_A_001", true).Return().Once()
	svc.Notifier = notifier

	// Active without Tender
	_, err := svc.CreateProject(ctx, AuditContext{}, createInput("P100", models.StageActive))
	assert.Equal(t, []string{CodeActiveRequiresTender}, validationCodes(t, err))

	tender, err := svc.CreateProject(ctx, AuditContext{UserName: "tester"}, createInput("P100", models.StageTender))
	require.NoError(t, err)
	assert.Equal(t, "P100_T_001", tender.Reference)
	assert.Equal(t, models.ProjectStatusSubmitted, tender.Status)
	assert.Equal(t, map[string]string{"energy_carbon": "Solar on depot roof"}, tender.CategoryComments)

	expected := scoring.AggregateStored(svc.Taxonomy.Current(), createInput("P100", models.StageTender).SubCategoryScores)
	assert.Equal(t, expected.TotalScore, tender.TotalScore)
	assert.Greater(t, tender.TotalScore, 0.0)

	// second Tender is rejected, not numbered
	_, err = svc.CreateProject(ctx, AuditContext{}, createInput("P100", models.StageTender))
	assert.Equal(t, []string{CodeTenderExists}, validationCodes(t, err))

	active, err := svc.CreateProject(ctx, AuditContext{}, createInput("P100", models.StageActive))
	require.NoError(t, err)
	assert.Equal(t, "P100_A_001", active.Reference)

	notifier.AssertExpectations(t)
}

func TestCreateProjectValidation(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	in := createInput("", models.StageTender)
	in.ProjectOwner = ""
	_, err := svc.CreateProject(ctx, AuditContext{}, in)
	assert.Equal(t, []string{CodeMissingField, CodeMissingField}, validationCodes(t, err))

	in = createInput("P1", models.StageTender)
	in.SubCategoryScores = scoring.SubCategoryValues{
		"energy_carbon": {"energy_efficiency": 101},
		"made_up":       {"x": 1},
	}
	_, err = svc.CreateProject(ctx, AuditContext{}, in)
	assert.ElementsMatch(t, []string{CodeScoreOutOfRange, CodeUnknownIdentifier}, validationCodes(t, err))

	projects, err := svc.ListProjects(ctx, ProjectFilter{})
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestCompleteStageOnce(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	c, err := svc.CreateProject(ctx, AuditContext{}, createInput("P7", models.StageComplete))
	require.NoError(t, err)
	assert.Equal(t, "P7_C_001", c.Reference)

	_, err = svc.CreateProject(ctx, AuditContext{}, createInput("P7", models.StageComplete))
	assert.Equal(t, []string{CodeCompleteExists}, validationCodes(t, err))
}

func TestUpdateProject(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	tender, err := svc.CreateProject(ctx, AuditContext{}, createInput("P100", models.StageTender))
	require.NoError(t, err)
	second, err := svc.CreateProject(ctx, AuditContext{}, createInput("P200", models.StageTender))
	require.NoError(t, err)

	t.Run("Edit In Place", func(t *testing.T) {
		in := createInput("P100", models.StageTender)
		in.ProjectName = "Renamed"
		in.SubCategoryScores = scoring.SubCategoryValues{"water_management": {"water_efficiency": 100}}
		updated, err := svc.UpdateProject(ctx, AuditContext{}, tender.ID, in)
		require.NoError(t, err)
		assert.Equal(t, tender.ID, updated.ID)
		assert.Equal(t, "P100_T_001", updated.Reference)

		stored, breakdown, err := svc.GetProject(ctx, tender.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", stored.ProjectName)
		assert.Equal(t, updated.TotalScore, stored.TotalScore)
		assert.Equal(t, stored.TotalScore, breakdown.TotalScore)
		v, _ := scoring.SubCategoryValues(stored.SubCategoryScores).Get("energy_carbon", "energy_efficiency")
		assert.Equal(t, 0.0, v)
	})

	t.Run("Stage Change Regenerates Reference", func(t *testing.T) {
		in := createInput("P100", models.StageActive)
		// the only tender cannot become the active record
		_, err := svc.UpdateProject(ctx, AuditContext{}, tender.ID, in)
		assert.Equal(t, []string{CodeActiveRequiresTender}, validationCodes(t, err))

		in = createInput("P100", models.StageActive)
		moved, err := svc.UpdateProject(ctx, AuditContext{}, second.ID, in)
		require.NoError(t, err)
		assert.Equal(t, "P100_A_001", moved.Reference)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := svc.UpdateProject(ctx, AuditContext{}, "nope", createInput("P1", models.StageTender))
		assert.ErrorIs(t, err, ErrProjectNotFound)
	})
}

func TestDeleteProject(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, AuditContext{}, createInput("P5", models.StageTender))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteProject(ctx, AuditContext{}, p.ID))

	_, _, err = svc.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.ErrorIs(t, svc.DeleteProject(ctx, AuditContext{}, p.ID), ErrProjectNotFound)

	// the reference is free again
	again, err := svc.CreateProject(ctx, AuditContext{}, createInput("P5", models.StageTender))
	require.NoError(t, err)
	assert.Equal(t, "P5_T_001", again.Reference)
}

func TestPreviewReference(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	ref, verr, err := svc.PreviewReference(ctx, "P100", models.StageTender)
	require.NoError(t, err)
	assert.Nil(t, verr)
	assert.Equal(t, "P100_T_001", ref)

	_, verr, err = svc.PreviewReference(ctx, "P100", models.StageActive)
	require.NoError(t, err)
	require.NotNil(t, verr)
	assert.Equal(t, CodeActiveRequiresTender, verr.Code)

	_, verr, _ = svc.PreviewReference(ctx, "", models.StageActive)
	require.NotNil(t, verr)
	assert.Equal(t, CodeMissingField, verr.Code)
}

func TestReferenceUniqueIndex(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, AuditContext{}, createInput("P9", models.StageTender))
	require.NoError(t, err)

	// a concurrent writer that validated against a stale read
	dup := &models.Project{
		Reference: p.Reference, ProjectNumber: "P9", ProjectStage: models.StageTender,
		ProjectName: "x", ProjectOwner: "y", Status: models.ProjectStatusSubmitted,
	}
	err = svc.Store.Create(ctx, dup)
	assert.ErrorIs(t, err, ErrReferenceConflict)
}

func TestListProjectsFilterAndSort(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	for _, in := range []ProjectInput{
		createInput("P1", models.StageTender),
		createInput("P2", models.StageTender),
		createInput("P1", models.StageActive),
	} {
		_, err := svc.CreateProject(ctx, AuditContext{}, in)
		require.NoError(t, err)
	}

	all, err := svc.Store.List(ctx, SortSpec{Field: "reference", Desc: true})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "P2_T_001", all[0].Reference)
	assert.Equal(t, "P1_A_001", all[2].Reference)

	p1, err := svc.ListProjects(ctx, ProjectFilter{ProjectNumber: "P1", Sort: SortSpec{Field: "reference"}})
	require.NoError(t, err)
	require.Len(t, p1, 2)
	assert.Equal(t, "P1_A_001", p1[0].Reference)

	tenders, err := svc.ListProjects(ctx, ProjectFilter{Stage: models.StageTender, Department: "Transport"})
	require.NoError(t, err)
	assert.Len(t, tenders, 2)

	// unknown sort fields fall back to created_at
	_, err = svc.Store.List(ctx, SortSpec{Field: "1; DROP TABLE projects"})
	assert.NoError(t, err)
}
