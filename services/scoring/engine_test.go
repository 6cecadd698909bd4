package scoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoCategoryTaxonomy is a small tree exercising both checklist modes and a
// summary-editable category.
func twoCategoryTaxonomy() *Taxonomy {
	return &Taxonomy{
		Version: 3,
		Categories: []Category{
			{
				ID: "energy", Name: "Energy", Weight: 60, Mode: ModePriorityWeighted,
				SubCategories: []SubCategory{
					{ID: "efficiency", Weight: 60, Items: []Item{
						{ID: "e1", DefaultPriority: PriorityMandatory},
						{ID: "e2", DefaultPriority: PriorityBestPractice},
						{ID: "e3", DefaultPriority: PriorityStretchGoal},
					}},
					{ID: "renewables", Weight: 40, Items: []Item{
						{ID: "r1", DefaultPriority: PriorityMandatory},
					}},
				},
			},
			{
				ID: "social", Name: "Social", Weight: 40, Mode: ModeMandatorySplit, SummaryEditable: true,
				SubCategories: []SubCategory{
					{ID: "community", Weight: 50, Items: []Item{
						{ID: "c1", DefaultPriority: PriorityMandatory},
						{ID: "c2", DefaultPriority: PriorityBestPractice},
					}},
					{ID: "wellbeing", Weight: 50},
				},
			},
		},
	}
}

func TestCategoryScore(t *testing.T) {
	score := CategoryScore([]WeightedValue{{Value: 80, Weight: 60}, {Value: 50, Weight: 40}})
	assert.InDelta(t, 68.0, score, 1e-9)
}

func TestTotalScore(t *testing.T) {
	weights := []float64{10, 20, 15, 10, 15, 10, 10, 10}
	scores := []float64{72.5, 64.1, 90, 33.3, 48.75, 100, 0, 55.55}

	var values []WeightedValue
	var expected float64
	for i := range weights {
		values = append(values, WeightedValue{Value: scores[i], Weight: weights[i]})
		expected += scores[i] * weights[i] / 100
	}
	total := TotalScore(values)
	assert.InDelta(t, Round2(expected), total, 1e-9)

	t.Run("Order Independent", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 20; i++ {
			shuffled := append([]WeightedValue(nil), values...)
			rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
			assert.InDelta(t, total, TotalScore(shuffled), 1e-9)
		}
	})
}

func TestComputeScore(t *testing.T) {
	tax := twoCategoryTaxonomy()

	t.Run("Checklist And Manual Sources", func(t *testing.T) {
		in := Input{
			Responses: Responses{"e1": ResponseYes, "e3": ResponseYes, "r1": ResponseYes, "c1": ResponseYes},
			Manual:    SubCategoryValues{"social": {"wellbeing": 70}},
		}
		res := ComputeScore(tax, in)
		require.Len(t, res.Categories, 2)
		assert.Equal(t, 3, res.TaxonomyVersion)

		energy, ok := res.Category("energy")
		require.True(t, ok)
		assert.InDelta(t, 68.42, Round2(energy.SubCategories[0].Score), 1e-9)
		assert.Equal(t, SourceChecklist, energy.SubCategories[0].Source)
		assert.Nil(t, energy.SubCategories[0].Tally)
		assert.InDelta(t, 100.0, energy.SubCategories[1].Score, 1e-9)

		social, _ := res.Category("social")
		// c1 yes, c2 no: 40 + 0
		assert.InDelta(t, 40.0, social.SubCategories[0].Score, 1e-9)
		require.NotNil(t, social.SubCategories[0].Tally)
		assert.Equal(t, 1, social.SubCategories[0].Tally.MandatoryYes)
		assert.Equal(t, SourceManual, social.SubCategories[1].Source)
		assert.InDelta(t, 55.0, social.Score, 1e-9)

		expected := Round2(energy.Score*0.6 + social.Score*0.4)
		assert.InDelta(t, expected, res.TotalScore, 1e-9)
		assert.Equal(t, RatingFor(res.TotalScore), res.Rating)
	})

	t.Run("Manual Overrides Checklist Only When Editable", func(t *testing.T) {
		in := Input{
			Responses: Responses{"c1": ResponseYes, "c2": ResponseYes},
			Manual: SubCategoryValues{
				"social": {"community": 10},
				"energy": {"efficiency": 99},
			},
		}
		res := ComputeScore(tax, in)
		social, _ := res.Category("social")
		assert.InDelta(t, 10.0, social.SubCategories[0].Score, 1e-9)
		assert.Equal(t, SourceManual, social.SubCategories[0].Source)

		energy, _ := res.Category("energy")
		assert.InDelta(t, 0.0, energy.SubCategories[0].Score, 1e-9)
		assert.Equal(t, SourceChecklist, energy.SubCategories[0].Source)
	})

	t.Run("Missing Values Default To Zero", func(t *testing.T) {
		res := ComputeScore(tax, Input{})
		assert.Equal(t, 0.0, res.TotalScore)
		social, _ := res.Category("social")
		assert.Equal(t, SourceDefault, social.SubCategories[1].Source)
		assert.Equal(t, RatingPoor, res.Rating)
	})

	t.Run("Manual Values Are Clamped", func(t *testing.T) {
		res := ComputeScore(tax, Input{Manual: SubCategoryValues{"social": {"wellbeing": 250, "community": -4}}})
		social, _ := res.Category("social")
		assert.Equal(t, 0.0, social.SubCategories[0].Score)
		assert.Equal(t, 100.0, social.SubCategories[1].Score)
	})

	t.Run("Does Not Mutate Input", func(t *testing.T) {
		manual := SubCategoryValues{"social": {"wellbeing": 70}}
		ComputeScore(tax, Input{Manual: manual})
		assert.Len(t, manual, 1)
		assert.Len(t, manual["social"], 1)
	})
}

func TestComputeScoreBounds(t *testing.T) {
	tax := DefaultTaxonomy()
	rng := rand.New(rand.NewSource(42))
	responses := []Response{ResponseYes, ResponseNo, ResponseNotApplicable}

	for run := 0; run < 50; run++ {
		in := Input{Responses: Responses{}, Manual: SubCategoryValues{}}
		for _, cat := range tax.Categories {
			for _, sub := range cat.SubCategories {
				for _, item := range sub.Items {
					in.Responses[item.ID] = responses[rng.Intn(len(responses))]
				}
				if rng.Intn(2) == 0 {
					in.Manual.Set(cat.ID, sub.ID, rng.Float64()*100)
				}
			}
		}

		res := ComputeScore(tax, in)
		assert.GreaterOrEqual(t, res.TotalScore, 0.0)
		assert.LessOrEqual(t, res.TotalScore, 100.0)
		for _, c := range res.Categories {
			assert.GreaterOrEqual(t, c.Score, 0.0)
			assert.LessOrEqual(t, c.Score, 100.0)
			for _, s := range c.SubCategories {
				assert.GreaterOrEqual(t, s.Score, 0.0)
				assert.LessOrEqual(t, s.Score, 100.0)
			}
		}
	}
}

func TestAggregateStored(t *testing.T) {
	tax := twoCategoryTaxonomy()
	live := ComputeScore(tax, Input{
		Responses: Responses{"e1": ResponseYes, "e2": ResponseYes, "c2": ResponseYes},
		Manual:    SubCategoryValues{"social": {"wellbeing": 35}},
	})

	stored := AggregateStored(tax, live.SubCategoryValues())
	assert.InDelta(t, live.TotalScore, stored.TotalScore, 1e-9)
	for i := range live.Categories {
		assert.InDelta(t, live.Categories[i].Score, stored.Categories[i].Score, 1e-9)
	}

	t.Run("Missing Sub Categories", func(t *testing.T) {
		res := AggregateStored(tax, SubCategoryValues{"energy": {"efficiency": 80, "renewables": 50}})
		energy, _ := res.Category("energy")
		assert.InDelta(t, 68.0, energy.Score, 1e-9)
		social, _ := res.Category("social")
		assert.Equal(t, SourceDefault, social.SubCategories[0].Source)
		assert.InDelta(t, Round2(68.0*0.6), res.TotalScore, 1e-9)
	})
}

func TestEffectivePriorities(t *testing.T) {
	tax := twoCategoryTaxonomy()
	overrides := Priorities{"e2": PriorityMandatory, "c1": Priority(9)}

	t.Run("Non Admin Locked To Defaults", func(t *testing.T) {
		p := EffectivePriorities(tax, overrides, false)
		assert.Equal(t, PriorityBestPractice, p["e2"])
		assert.Len(t, p, 6)
	})

	t.Run("Admin Overrides Applied", func(t *testing.T) {
		p := EffectivePriorities(tax, overrides, true)
		assert.Equal(t, PriorityMandatory, p["e2"])
		// invalid overrides are ignored
		assert.Equal(t, PriorityMandatory, p["c1"])
	})
}

func TestRatingFor(t *testing.T) {
	assert.Equal(t, RatingExcellent, RatingFor(80))
	assert.Equal(t, RatingGood, RatingFor(79.99))
	assert.Equal(t, RatingFair, RatingFor(40))
	assert.Equal(t, RatingPoor, RatingFor(39.99))
}
