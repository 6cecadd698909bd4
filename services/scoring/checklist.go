package scoring

const (
	// MandatoryShare and NonMandatoryShare split a mandatory-split sub-category
	// score regardless of how many items each group holds.
	MandatoryShare    = 40.0
	NonMandatoryShare = 60.0
)

// ChecklistEntry is an item's effective priority together with its response.
type ChecklistEntry struct {
	ItemID   string
	Priority Priority
	Response Response
}

// ChecklistTally counts the answered items of a mandatory-split checklist.
// Items marked not applicable are excluded from every count.
type ChecklistTally struct {
	MandatoryTotal    int `json:"mandatory_total"`
	MandatoryYes      int `json:"mandatory_yes"`
	NonMandatoryTotal int `json:"non_mandatory_total"`
	NonMandatoryYes   int `json:"non_mandatory_yes"`
	NotApplicable     int `json:"not_applicable"`
}

// Tally partitions entries into mandatory and non-mandatory groups.
func Tally(entries []ChecklistEntry) ChecklistTally {
	var t ChecklistTally
	for _, e := range entries {
		if e.Response == ResponseNotApplicable {
			t.NotApplicable++
			continue
		}
		yes := e.Response == ResponseYes
		if e.Priority.IsMandatory() {
			t.MandatoryTotal++
			if yes {
				t.MandatoryYes++
			}
			continue
		}
		t.NonMandatoryTotal++
		if yes {
			t.NonMandatoryYes++
		}
	}
	return t
}

// Score applies the 40/60 policy to the tally.
func (t ChecklistTally) Score() float64 {
	hasMandatory := t.MandatoryTotal > 0
	hasOther := t.NonMandatoryTotal > 0

	switch {
	case hasMandatory && hasOther:
		return t.mandatoryRatio()*MandatoryShare + t.nonMandatoryRatio()*NonMandatoryShare
	case hasMandatory:
		return t.mandatoryRatio() * 100
	case hasOther:
		return t.nonMandatoryRatio() * 100
	default:
		return 0
	}
}

func (t ChecklistTally) mandatoryRatio() float64 {
	return float64(t.MandatoryYes) / float64(t.MandatoryTotal)
}

func (t ChecklistTally) nonMandatoryRatio() float64 {
	return float64(t.NonMandatoryYes) / float64(t.NonMandatoryTotal)
}

// MandatorySplitScore scores a yes/no/not-applicable checklist.
func MandatorySplitScore(entries []ChecklistEntry) float64 {
	return clamp(Tally(entries).Score())
}

// PriorityWeightedScore scores a checkbox checklist: each checked item earns
// its priority weight, and the sum is divided by the weight of all items.
// Only a "yes" response counts as checked.
func PriorityWeightedScore(entries []ChecklistEntry) float64 {
	var earned, possible float64
	for _, e := range entries {
		w := e.Priority.Weight()
		possible += w
		if e.Response == ResponseYes {
			earned += w
		}
	}
	if possible == 0 {
		return 0
	}
	return clamp(earned / possible * 100)
}

// ChecklistScore dispatches to the algorithm selected by mode.
func ChecklistScore(mode ScoringMode, entries []ChecklistEntry) float64 {
	if mode == ModePriorityWeighted {
		return PriorityWeightedScore(entries)
	}
	return MandatorySplitScore(entries)
}
