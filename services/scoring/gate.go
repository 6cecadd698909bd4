package scoring

import "fmt"

// MinimumAverageScore is the lowest average sub-category score a checklist
// tab may have before leaving it requires confirmation.
const MinimumAverageScore = 40.0

// MissingItem is a mandatory item that is neither "yes" nor, where the
// checklist allows it, "not applicable".
type MissingItem struct {
	SubCategoryID string `json:"sub_category_id"`
	ItemID        string `json:"item_id"`
	ItemName      string `json:"item_name"`
}

// GateResult is a soft completeness warning for a checklist category.
type GateResult struct {
	CategoryID       string        `json:"category_id"`
	MissingMandatory []MissingItem `json:"missing_mandatory"`
	AverageScore     float64       `json:"average_score"`
	BelowThreshold   bool          `json:"below_threshold"`
	Passed           bool          `json:"passed"`
}

// Warnings lists the failed checks in display order.
func (g *GateResult) Warnings() []string {
	var out []string
	if len(g.MissingMandatory) > 0 {
		out = append(out, fmt.Sprintf("%d mandatory item(s) not addressed", len(g.MissingMandatory)))
	}
	if g.BelowThreshold {
		out = append(out, fmt.Sprintf("average score %.2f is below %.0f", g.AverageScore, MinimumAverageScore))
	}
	return out
}

// CheckCompleteness evaluates the navigation gate for one category tab.
func CheckCompleteness(t *Taxonomy, categoryID string, responses Responses, priorities Priorities) (*GateResult, error) {
	cat, ok := t.Category(categoryID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}

	g := &GateResult{CategoryID: cat.ID, MissingMandatory: []MissingItem{}}
	var sum float64
	var scored int

	for _, sub := range cat.SubCategories {
		if len(sub.Items) == 0 {
			continue
		}
		entries := Entries(sub, responses, priorities)
		for i, e := range entries {
			if !e.Priority.IsMandatory() {
				continue
			}
			satisfied := e.Response == ResponseYes ||
				(e.Response == ResponseNotApplicable && cat.AllowsResponse(ResponseNotApplicable))
			if !satisfied {
				g.MissingMandatory = append(g.MissingMandatory, MissingItem{
					SubCategoryID: sub.ID,
					ItemID:        e.ItemID,
					ItemName:      sub.Items[i].Name,
				})
			}
		}
		sum += ChecklistScore(cat.Mode, entries)
		scored++
	}

	if scored == 0 {
		// no checklist on this tab
		g.Passed = true
		return g, nil
	}

	g.AverageScore = Round2(sum / float64(scored))
	g.BelowThreshold = g.AverageScore < MinimumAverageScore
	g.Passed = len(g.MissingMandatory) == 0 && !g.BelowThreshold
	return g, nil
}
