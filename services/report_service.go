package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"sustain_score_app_go/models"
	"sustain_score_app_go/services/scoring"

	"github.com/xuri/excelize/v2"
)

// ReportCategory is a column of the comparison report
type ReportCategory struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// ComparisonRow is one project in the comparison report
type ComparisonRow struct {
	ProjectID      string              `json:"project_id"`
	Reference      string              `json:"reference"`
	ProjectNumber  string              `json:"project_number"`
	ProjectName    string              `json:"project_name"`
	Department     string              `json:"department"`
	Stage          models.ProjectStage `json:"project_stage"`
	CategoryScores map[string]float64  `json:"category_scores"`
	TotalScore     float64             `json:"total_score"`
	Rating         scoring.Rating      `json:"rating"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// ComparisonReport compares stored projects category by category. Scores are
// re-derived from the stored sub-category values.
type ComparisonReport struct {
	GeneratedAt      time.Time          `json:"generated_at"`
	TaxonomyVersion  int                `json:"taxonomy_version"`
	Categories       []ReportCategory   `json:"categories"`
	Rows             []ComparisonRow    `json:"rows"`
	CategoryAverages map[string]float64 `json:"category_averages"`
	StageAverages    map[string]float64 `json:"stage_averages"`
	AverageTotal     float64            `json:"average_total"`
}

// BuildComparisonReport aggregates projects against t
func BuildComparisonReport(t *scoring.Taxonomy, projects []models.Project, now time.Time) *ComparisonReport {
	r := &ComparisonReport{
		GeneratedAt:      now,
		TaxonomyVersion:  t.Version,
		Rows:             make([]ComparisonRow, 0, len(projects)),
		CategoryAverages: map[string]float64{},
		StageAverages:    map[string]float64{},
	}
	for _, c := range t.Categories {
		r.Categories = append(r.Categories, ReportCategory{ID: c.ID, Name: c.Name, Weight: c.Weight})
	}

	catSums := map[string]float64{}
	stageSums := map[models.ProjectStage]float64{}
	stageCounts := map[models.ProjectStage]int{}
	var totalSum float64

	for _, p := range projects {
		res := scoring.AggregateStored(t, p.SubCategoryScores)
		row := ComparisonRow{
			ProjectID:      p.ID,
			Reference:      p.Reference,
			ProjectNumber:  p.ProjectNumber,
			ProjectName:    p.ProjectName,
			Department:     p.Department,
			Stage:          p.ProjectStage,
			CategoryScores: map[string]float64{},
			TotalScore:     res.TotalScore,
			Rating:         res.Rating,
			UpdatedAt:      p.UpdatedAt,
		}
		for _, c := range res.Categories {
			row.CategoryScores[c.ID] = scoring.Round2(c.Score)
			catSums[c.ID] += c.Score
		}
		stageSums[p.ProjectStage] += res.TotalScore
		stageCounts[p.ProjectStage]++
		totalSum += res.TotalScore
		r.Rows = append(r.Rows, row)
	}

	if n := float64(len(projects)); n > 0 {
		for _, c := range t.Categories {
			r.CategoryAverages[c.ID] = scoring.Round2(catSums[c.ID] / n)
		}
		r.AverageTotal = scoring.Round2(totalSum / n)
	}
	for stage, count := range stageCounts {
		r.StageAverages[string(stage)] = scoring.Round2(stageSums[stage] / float64(count))
	}
	return r
}

// ProgressionStep is one stage of a project's assessments
type ProgressionStep struct {
	Reference      string              `json:"reference"`
	Stage          models.ProjectStage `json:"project_stage"`
	TotalScore     float64             `json:"total_score"`
	Delta          float64             `json:"delta"`
	CategoryScores map[string]float64  `json:"category_scores"`
	CategoryDeltas map[string]float64  `json:"category_deltas"`
}

// ProgressionReport follows one project number through its stages
type ProgressionReport struct {
	ProjectNumber string            `json:"project_number"`
	ProjectName   string            `json:"project_name"`
	Steps         []ProgressionStep `json:"steps"`
}

// BuildProjectProgression orders the records of projectNumber Tender, Active,
// Complete and computes the change between consecutive records.
func BuildProjectProgression(t *scoring.Taxonomy, projects []models.Project, projectNumber string) (*ProgressionReport, error) {
	var matched []models.Project
	for _, p := range projects {
		if p.ProjectNumber == projectNumber {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: no records for project %s", ErrProjectNotFound, projectNumber)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		oi, oj := matched[i].ProjectStage.Order(), matched[j].ProjectStage.Order()
		if oi != oj {
			return oi < oj
		}
		return referenceSequence(matched[i].Reference) < referenceSequence(matched[j].Reference)
	})

	r := &ProgressionReport{ProjectNumber: projectNumber, ProjectName: matched[len(matched)-1].ProjectName}
	var prev *ProgressionStep
	for _, p := range matched {
		res := scoring.AggregateStored(t, p.SubCategoryScores)
		step := ProgressionStep{
			Reference:      p.Reference,
			Stage:          p.ProjectStage,
			TotalScore:     res.TotalScore,
			CategoryScores: map[string]float64{},
			CategoryDeltas: map[string]float64{},
		}
		for _, c := range res.Categories {
			step.CategoryScores[c.ID] = scoring.Round2(c.Score)
		}
		if prev != nil {
			step.Delta = scoring.Round2(step.TotalScore - prev.TotalScore)
			for id, v := range step.CategoryScores {
				step.CategoryDeltas[id] = scoring.Round2(v - prev.CategoryScores[id])
			}
		}
		r.Steps = append(r.Steps, step)
		prev = &r.Steps[len(r.Steps)-1]
	}
	return r, nil
}

// referenceSequence orders references of one stage; unparseable ones sort first
func referenceSequence(reference string) int {
	c, err := ParseReference(reference)
	if err != nil {
		return 0
	}
	return c.Sequence
}

// Comparison workbook sheet names
const (
	SheetComparison = "Comparison"
	SheetAverages   = "Averages"
)

// ComparisonHeaders returns the header row of the comparison sheet
func ComparisonHeaders(r *ComparisonReport) []string {
	headers := []string{"Reference", "Project Number", "Project Name", "Department", "Stage"}
	for _, c := range r.Categories {
		headers = append(headers, fmt.Sprintf("%s (%.0f%%)", c.Name, c.Weight))
	}
	return append(headers, "Total Score", "Rating")
}

// WriteComparisonWorkbook renders the report as an xlsx workbook
func WriteComparisonWorkbook(r *ComparisonReport) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetComparison); err != nil {
		return nil, fmt.Errorf("failed to name comparison sheet: %w", err)
	}

	headers := ComparisonHeaders(r)
	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := setSheetRow(f, SheetComparison, 1, headerRow); err != nil {
		return nil, err
	}

	for rowIdx, row := range r.Rows {
		values := []interface{}{row.Reference, row.ProjectNumber, row.ProjectName, row.Department, string(row.Stage)}
		for _, c := range r.Categories {
			values = append(values, row.CategoryScores[c.ID])
		}
		values = append(values, row.TotalScore, string(row.Rating))
		if err := setSheetRow(f, SheetComparison, rowIdx+2, values); err != nil {
			return nil, err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, fmt.Errorf("failed to size comparison sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(SheetComparison, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style comparison header: %w", err)
	}
	if err := f.SetColWidth(SheetComparison, "A", lastCol, 18); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetPanes(SheetComparison, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("failed to freeze header row: %w", err)
	}

	if _, err := f.NewSheet(SheetAverages); err != nil {
		return nil, fmt.Errorf("failed to add averages sheet: %w", err)
	}
	rows := [][]interface{}{{"Category", "Average Score"}}
	for _, c := range r.Categories {
		rows = append(rows, []interface{}{c.Name, r.CategoryAverages[c.ID]})
	}
	rows = append(rows, nil)
	stageHeader := len(rows) + 1
	rows = append(rows, []interface{}{"Stage", "Average Total"})
	for _, stage := range models.ProjectStages {
		if avg, ok := r.StageAverages[string(stage)]; ok {
			rows = append(rows, []interface{}{string(stage), avg})
		}
	}
	rows = append(rows, []interface{}{"All projects", r.AverageTotal})
	for i, values := range rows {
		if err := setSheetRow(f, SheetAverages, i+1, values); err != nil {
			return nil, err
		}
	}
	for _, line := range []int{1, stageHeader} {
		if err := f.SetCellStyle(SheetAverages, fmt.Sprintf("A%d", line), fmt.Sprintf("B%d", line), headerStyle); err != nil {
			return nil, fmt.Errorf("failed to style averages header: %w", err)
		}
	}
	if err := f.SetColWidth(SheetAverages, "A", "A", 40); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

// setSheetRow writes values into row (1-based) starting at column A
func setSheetRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	if len(values) == 0 {
		return nil
	}
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// ArchiveComparisonReport writes the workbook for r into storage
func ArchiveComparisonReport(ctx context.Context, storage StorageProvider, r *ComparisonReport) (*StorageResult, error) {
	buf, err := WriteComparisonWorkbook(r)
	if err != nil {
		return nil, err
	}
	key := GenerateReportKey(r.GeneratedAt, ".xlsx")
	size := int64(buf.Len())
	result, err := storage.UploadReader(ctx, buf, key, ContentTypeXLSX, size)
	if err != nil {
		return nil, fmt.Errorf("failed to archive comparison report: %w", err)
	}
	log.Printf("[REPORT] Archived comparison report %s (%d projects, %d bytes)", key, len(r.Rows), size)
	return result, nil
}

// PruneArchivedReports deletes archived workbooks last modified before
// cutoff and returns the deleted keys. Deletion stops at the first failure.
func PruneArchivedReports(ctx context.Context, storage StorageProvider, cutoff time.Time) ([]string, error) {
	objs, err := storage.List(ctx, ReportArchivePrefix)
	if err != nil {
		return nil, err
	}
	var deleted []string
	for _, obj := range objs {
		if !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := storage.Delete(ctx, obj.Key); err != nil {
			return deleted, err
		}
		deleted = append(deleted, obj.Key)
	}
	if len(deleted) > 0 {
		log.Printf("[REPORT] Deleted %d archived report(s) older than %s", len(deleted), cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

// ComparisonReport builds the comparison over the stored records matching
// filter, aggregated against the current taxonomy so every row shares the
// same category weights.
func (s *ProjectService) ComparisonReport(ctx context.Context, filter ProjectFilter, now time.Time) (*ComparisonReport, error) {
	projects, err := s.Store.Filter(ctx, filter)
	if err != nil {
		return nil, err
	}
	return BuildComparisonReport(s.Taxonomy.Current(), projects, now), nil
}

// Progression builds the stage progression of one project number
func (s *ProjectService) Progression(ctx context.Context, projectNumber string) (*ProgressionReport, error) {
	projects, err := s.Store.Filter(ctx, ProjectFilter{ProjectNumber: projectNumber})
	if err != nil {
		return nil, err
	}
	return BuildProjectProgression(s.Taxonomy.Current(), projects, projectNumber)
}
