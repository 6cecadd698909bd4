// Package scoring implements the hierarchical sustainability scoring engine.
//
// Scores are computed bottom-up: item responses produce sub-category scores,
// sub-category scores are weighted into category scores, and category scores
// are weighted into the project total. Every function in this package is pure;
// callers pass a taxonomy snapshot and the current responses and get a fresh
// result back.
package scoring

import (
	"fmt"
	"strconv"
	"strings"
)

// Priority is the importance level of a checklist item.
type Priority int

const (
	PriorityMandatory    Priority = 1
	PriorityBestPractice Priority = 2
	PriorityStretchGoal  Priority = 3
)

// IsValid reports whether p is one of the three known priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityMandatory, PriorityBestPractice, PriorityStretchGoal:
		return true
	}
	return false
}

// IsMandatory reports whether the item must be satisfied.
func (p Priority) IsMandatory() bool {
	return p == PriorityMandatory
}

// Weight is the contribution of a checked item in priority-weighted checklists.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityMandatory:
		return 1.0
	case PriorityBestPractice:
		return 0.6
	case PriorityStretchGoal:
		return 0.3
	}
	return 0
}

// Label returns the human-readable priority name.
func (p Priority) Label() string {
	switch p {
	case PriorityMandatory:
		return "Mandatory"
	case PriorityBestPractice:
		return "Best Practice"
	case PriorityStretchGoal:
		return "Stretch Goal"
	}
	return "Unknown"
}

// ParsePriority accepts either the numeric level or the label.
func ParsePriority(s string) (Priority, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "mandatory":
		return PriorityMandatory, nil
	case "best practice", "best_practice":
		return PriorityBestPractice, nil
	case "stretch goal", "stretch_goal":
		return PriorityStretchGoal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || !Priority(n).IsValid() {
		return 0, fmt.Errorf("invalid priority: %q", s)
	}
	return Priority(n), nil
}

// Response is the answer recorded against a checklist item.
type Response string

const (
	ResponseYes           Response = "yes"
	ResponseNo            Response = "no"
	ResponseNotApplicable Response = "not_applicable"
)

// IsValid reports whether r is one of the three known responses.
func (r Response) IsValid() bool {
	switch r {
	case ResponseYes, ResponseNo, ResponseNotApplicable:
		return true
	}
	return false
}

// ParseResponse normalises user input into a Response.
func ParseResponse(s string) (Response, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true":
		return ResponseYes, nil
	case "no", "n", "false", "":
		return ResponseNo, nil
	case "not_applicable", "not applicable", "n/a", "na":
		return ResponseNotApplicable, nil
	}
	return "", fmt.Errorf("invalid response: %q", s)
}

// ScoringMode selects the checklist algorithm used for a category's items.
type ScoringMode string

const (
	// ModeMandatorySplit weights mandatory items as 40% and the rest as 60%.
	ModeMandatorySplit ScoringMode = "mandatory_split"
	// ModePriorityWeighted divides checked priority weights by the total possible.
	ModePriorityWeighted ScoringMode = "priority_weighted"
)

// IsValid reports whether m is a known scoring mode.
func (m ScoringMode) IsValid() bool {
	return m == ModeMandatorySplit || m == ModePriorityWeighted
}

// Item is a single checklist question.
type Item struct {
	ID                 string   `yaml:"id" json:"id"`
	Name               string   `yaml:"name" json:"name"`
	Description        string   `yaml:"description,omitempty" json:"description,omitempty"`
	RecommendedActions string   `yaml:"recommended_actions,omitempty" json:"recommended_actions,omitempty"`
	DefaultPriority    Priority `yaml:"default_priority" json:"default_priority"`
}

// SubCategory is a weighted component of a category.
type SubCategory struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Weight      float64 `yaml:"weight" json:"weight"`
	Items       []Item  `yaml:"items,omitempty" json:"items,omitempty"`
}

// Category is a top-level weighted sustainability dimension.
type Category struct {
	ID     string      `yaml:"id" json:"id"`
	Name   string      `yaml:"name" json:"name"`
	Weight float64     `yaml:"weight" json:"weight"`
	Mode   ScoringMode `yaml:"mode" json:"mode"`
	// SummaryEditable categories accept direct sub-category scores in the
	// summary view. The others are populated only from their checklist.
	SummaryEditable bool          `yaml:"summary_editable" json:"summary_editable"`
	SubCategories   []SubCategory `yaml:"sub_categories" json:"sub_categories"`
}

// Taxonomy is an immutable snapshot of the category tree used for scoring.
type Taxonomy struct {
	Version    int        `yaml:"version" json:"version"`
	Categories []Category `yaml:"categories" json:"categories"`
}

// Category returns the category with the given id.
func (t *Taxonomy) Category(id string) (*Category, bool) {
	for i := range t.Categories {
		if t.Categories[i].ID == id {
			return &t.Categories[i], true
		}
	}
	return nil, false
}

// FindItem locates an item anywhere in the tree.
func (t *Taxonomy) FindItem(itemID string) (cat *Category, sub *SubCategory, item *Item, ok bool) {
	for ci := range t.Categories {
		c := &t.Categories[ci]
		for si := range c.SubCategories {
			s := &c.SubCategories[si]
			for ii := range s.Items {
				if s.Items[ii].ID == itemID {
					return c, s, &s.Items[ii], true
				}
			}
		}
	}
	return nil, nil, nil, false
}

// SubCategory returns the sub-category with the given id.
func (c *Category) SubCategory(id string) (*SubCategory, bool) {
	for i := range c.SubCategories {
		if c.SubCategories[i].ID == id {
			return &c.SubCategories[i], true
		}
	}
	return nil, false
}

// AllowsResponse reports whether r is a valid answer for items of c.
// Priority-weighted checklists are checkboxes and have no not-applicable option.
func (c *Category) AllowsResponse(r Response) bool {
	if !r.IsValid() {
		return false
	}
	return r != ResponseNotApplicable || c.Mode != ModePriorityWeighted
}

// HasChecklist reports whether any sub-category carries items.
func (c *Category) HasChecklist() bool {
	for _, s := range c.SubCategories {
		if len(s.Items) > 0 {
			return true
		}
	}
	return false
}
