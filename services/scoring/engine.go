package scoring

// Responses maps item id to the recorded answer.
type Responses map[string]Response

// Priorities maps item id to its effective priority.
type Priorities map[string]Priority

// SubCategoryValues maps category id to sub-category id to a 0-100 score.
// It is the shape persisted on project records.
type SubCategoryValues map[string]map[string]float64

// Get returns the stored value, or false if none was recorded.
func (v SubCategoryValues) Get(categoryID, subCategoryID string) (float64, bool) {
	subs, ok := v[categoryID]
	if !ok {
		return 0, false
	}
	val, ok := subs[subCategoryID]
	return val, ok
}

// Set records a value, allocating the inner map as needed.
func (v SubCategoryValues) Set(categoryID, subCategoryID string, value float64) {
	if v[categoryID] == nil {
		v[categoryID] = map[string]float64{}
	}
	v[categoryID][subCategoryID] = value
}

// Input is everything the engine needs beyond the taxonomy.
type Input struct {
	Responses  Responses
	Priorities Priorities
	// Manual holds directly entered sub-category scores from the summary view.
	Manual SubCategoryValues
}

// ValueSource records where a sub-category's value came from.
type ValueSource string

const (
	SourceManual    ValueSource = "manual"
	SourceChecklist ValueSource = "checklist"
	SourceDefault   ValueSource = "default"
	SourceStored    ValueSource = "stored"
)

// SubCategoryResult is the computed score of one sub-category.
type SubCategoryResult struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Weight float64         `json:"weight"`
	Score  float64         `json:"score"`
	Source ValueSource     `json:"source"`
	Tally  *ChecklistTally `json:"tally,omitempty"`
}

// CategoryResult is the computed score of one category.
type CategoryResult struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Weight        float64             `json:"weight"`
	Mode          ScoringMode         `json:"mode"`
	Score         float64             `json:"score"`
	SubCategories []SubCategoryResult `json:"sub_categories"`
}

// ScoreResult is the full bottom-up computation for an assessment.
type ScoreResult struct {
	TaxonomyVersion int              `json:"taxonomy_version"`
	Categories      []CategoryResult `json:"categories"`
	TotalScore      float64          `json:"total_score"`
	Rating          Rating           `json:"rating"`
}

// Category returns the result for the given category id.
func (r *ScoreResult) Category(id string) (*CategoryResult, bool) {
	for i := range r.Categories {
		if r.Categories[i].ID == id {
			return &r.Categories[i], true
		}
	}
	return nil, false
}

// SubCategoryValues flattens the result into the persisted shape.
func (r *ScoreResult) SubCategoryValues() SubCategoryValues {
	out := SubCategoryValues{}
	for _, c := range r.Categories {
		for _, s := range c.SubCategories {
			out.Set(c.ID, s.ID, s.Score)
		}
	}
	return out
}

// CategoryScores returns category id to score.
func (r *ScoreResult) CategoryScores() map[string]float64 {
	out := make(map[string]float64, len(r.Categories))
	for _, c := range r.Categories {
		out[c.ID] = c.Score
	}
	return out
}

// ComputeScore runs the engine over a taxonomy snapshot. It never mutates its
// arguments and is safe to call on every response change.
func ComputeScore(t *Taxonomy, in Input) *ScoreResult {
	result := &ScoreResult{TaxonomyVersion: t.Version}
	totals := make([]WeightedValue, 0, len(t.Categories))

	for _, cat := range t.Categories {
		cr := CategoryResult{ID: cat.ID, Name: cat.Name, Weight: cat.Weight, Mode: cat.Mode}
		subValues := make([]WeightedValue, 0, len(cat.SubCategories))

		for _, sub := range cat.SubCategories {
			sr := scoreSubCategory(cat, sub, in)
			cr.SubCategories = append(cr.SubCategories, sr)
			subValues = append(subValues, WeightedValue{Value: sr.Score, Weight: sub.Weight})
		}

		cr.Score = CategoryScore(subValues)
		result.Categories = append(result.Categories, cr)
		totals = append(totals, WeightedValue{Value: cr.Score, Weight: cat.Weight})
	}

	result.TotalScore = TotalScore(totals)
	result.Rating = RatingFor(result.TotalScore)
	return result
}

func scoreSubCategory(cat Category, sub SubCategory, in Input) SubCategoryResult {
	sr := SubCategoryResult{ID: sub.ID, Name: sub.Name, Weight: sub.Weight}
	manual, hasManual := in.Manual.Get(cat.ID, sub.ID)

	switch {
	case cat.SummaryEditable && hasManual:
		sr.Score = clamp(manual)
		sr.Source = SourceManual
	case len(sub.Items) > 0:
		entries := Entries(sub, in.Responses, in.Priorities)
		sr.Score = ChecklistScore(cat.Mode, entries)
		sr.Source = SourceChecklist
		if cat.Mode != ModePriorityWeighted {
			tally := Tally(entries)
			sr.Tally = &tally
		}
	case hasManual:
		sr.Score = clamp(manual)
		sr.Source = SourceManual
	default:
		sr.Source = SourceDefault
	}
	return sr
}

// Entries resolves each item of sub to its effective priority and response.
// Unanswered items default to "no"; missing priorities fall back to the
// item's default.
func Entries(sub SubCategory, responses Responses, priorities Priorities) []ChecklistEntry {
	entries := make([]ChecklistEntry, 0, len(sub.Items))
	for _, item := range sub.Items {
		resp, ok := responses[item.ID]
		if !ok || !resp.IsValid() {
			resp = ResponseNo
		}
		prio, ok := priorities[item.ID]
		if !ok || !prio.IsValid() {
			prio = item.DefaultPriority
		}
		entries = append(entries, ChecklistEntry{ItemID: item.ID, Priority: prio, Response: resp})
	}
	return entries
}

// AggregateStored re-derives category and total scores from persisted
// sub-category values. Missing values count as 0.
func AggregateStored(t *Taxonomy, stored SubCategoryValues) *ScoreResult {
	result := &ScoreResult{TaxonomyVersion: t.Version}
	totals := make([]WeightedValue, 0, len(t.Categories))

	for _, cat := range t.Categories {
		cr := CategoryResult{ID: cat.ID, Name: cat.Name, Weight: cat.Weight, Mode: cat.Mode}
		subValues := make([]WeightedValue, 0, len(cat.SubCategories))
		for _, sub := range cat.SubCategories {
			v, ok := stored.Get(cat.ID, sub.ID)
			src := SourceStored
			if !ok {
				src = SourceDefault
			}
			v = clamp(v)
			cr.SubCategories = append(cr.SubCategories, SubCategoryResult{
				ID: sub.ID, Name: sub.Name, Weight: sub.Weight, Score: v, Source: src,
			})
			subValues = append(subValues, WeightedValue{Value: v, Weight: sub.Weight})
		}
		cr.Score = CategoryScore(subValues)
		result.Categories = append(result.Categories, cr)
		totals = append(totals, WeightedValue{Value: cr.Score, Weight: cat.Weight})
	}

	result.TotalScore = TotalScore(totals)
	result.Rating = RatingFor(result.TotalScore)
	return result
}

// EffectivePriorities seeds every item with its default priority and applies
// overrides only for admins. Non-admin priorities stay locked to defaults.
func EffectivePriorities(t *Taxonomy, overrides Priorities, isAdmin bool) Priorities {
	out := Priorities{}
	for _, cat := range t.Categories {
		for _, sub := range cat.SubCategories {
			for _, item := range sub.Items {
				out[item.ID] = item.DefaultPriority
				if !isAdmin {
					continue
				}
				if p, ok := overrides[item.ID]; ok && p.IsValid() {
					out[item.ID] = p
				}
			}
		}
	}
	return out
}
