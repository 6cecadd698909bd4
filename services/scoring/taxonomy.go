package scoring

import (
	_ "embed"
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

//go:embed default_taxonomy.yaml
var defaultTaxonomyYAML []byte

var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrSubCategoryNotFound = errors.New("sub-category not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrDuplicateItem       = errors.New("item id already exists")
	ErrInvalidItem         = errors.New("invalid item")
)

// weightTolerance absorbs float noise when weights are authored as decimals.
const weightTolerance = 0.01

// DefaultTaxonomy returns a fresh copy of the published category tree.
func DefaultTaxonomy() *Taxonomy {
	t, err := ParseTaxonomyYAML(defaultTaxonomyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
	}
	return t
}

// ParseTaxonomyYAML decodes a taxonomy document.
func ParseTaxonomyYAML(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing taxonomy: %w", err)
	}
	if len(t.Categories) == 0 {
		return nil, fmt.Errorf("parsing taxonomy: no categories defined")
	}
	for i := range t.Categories {
		if t.Categories[i].Mode == "" {
			t.Categories[i].Mode = ModeMandatorySplit
		}
	}
	return &t, nil
}

// MarshalYAMLDocument encodes the taxonomy as a YAML document.
func (t *Taxonomy) MarshalYAMLDocument() ([]byte, error) {
	out, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding taxonomy: %w", err)
	}
	return out, nil
}

// Validate reports authoring errors: weights that do not sum to 100,
// duplicate ids, and unknown priorities or modes. Scoring does not depend on
// a valid taxonomy; this is a check for document authors.
func (t *Taxonomy) Validate() []string {
	var problems []string
	var catWeights float64
	catIDs := map[string]bool{}
	itemIDs := map[string]bool{}

	for _, cat := range t.Categories {
		catWeights += cat.Weight
		if cat.ID == "" {
			problems = append(problems, fmt.Sprintf("category %q has no id", cat.Name))
		}
		if catIDs[cat.ID] {
			problems = append(problems, fmt.Sprintf("duplicate category id %q", cat.ID))
		}
		catIDs[cat.ID] = true
		if !cat.Mode.IsValid() {
			problems = append(problems, fmt.Sprintf("category %q has unknown mode %q", cat.ID, cat.Mode))
		}

		var subWeights float64
		subIDs := map[string]bool{}
		for _, sub := range cat.SubCategories {
			subWeights += sub.Weight
			if subIDs[sub.ID] {
				problems = append(problems, fmt.Sprintf("duplicate sub-category id %q in %q", sub.ID, cat.ID))
			}
			subIDs[sub.ID] = true
			for _, item := range sub.Items {
				if itemIDs[item.ID] {
					problems = append(problems, fmt.Sprintf("duplicate item id %q", item.ID))
				}
				itemIDs[item.ID] = true
				if !item.DefaultPriority.IsValid() {
					problems = append(problems, fmt.Sprintf("item %q has invalid priority %d", item.ID, item.DefaultPriority))
				}
			}
		}
		if math.Abs(subWeights-100) > weightTolerance {
			problems = append(problems, fmt.Sprintf("sub-category weights of %q sum to %.2f, expected 100", cat.ID, subWeights))
		}
	}
	if math.Abs(catWeights-100) > weightTolerance {
		problems = append(problems, fmt.Sprintf("category weights sum to %.2f, expected 100", catWeights))
	}
	return problems
}

// Clone returns a deep copy so edits never leak into other sessions.
func (t *Taxonomy) Clone() *Taxonomy {
	out := &Taxonomy{Version: t.Version, Categories: make([]Category, len(t.Categories))}
	for ci, cat := range t.Categories {
		c := cat
		c.SubCategories = make([]SubCategory, len(cat.SubCategories))
		for si, sub := range cat.SubCategories {
			s := sub
			s.Items = append([]Item(nil), sub.Items...)
			c.SubCategories[si] = s
		}
		out.Categories[ci] = c
	}
	return out
}

// WithItemAdded returns a copy of t with item appended to the sub-category.
func (t *Taxonomy) WithItemAdded(categoryID, subCategoryID string, item Item) (*Taxonomy, error) {
	if item.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidItem)
	}
	if !item.DefaultPriority.IsValid() {
		return nil, fmt.Errorf("%w: invalid priority %d", ErrInvalidItem, item.DefaultPriority)
	}
	if _, _, _, exists := t.FindItem(item.ID); exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
	}

	out := t.Clone()
	cat, ok := out.Category(categoryID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}
	sub, ok := cat.SubCategory(subCategoryID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSubCategoryNotFound, subCategoryID)
	}
	sub.Items = append(sub.Items, item)
	return out, nil
}

// WithItemUpdated returns a copy of t with the item's fields replaced.
// The item id cannot change.
func (t *Taxonomy) WithItemUpdated(item Item) (*Taxonomy, error) {
	if !item.DefaultPriority.IsValid() {
		return nil, fmt.Errorf("%w: invalid priority %d", ErrInvalidItem, item.DefaultPriority)
	}
	out := t.Clone()
	_, _, existing, ok := out.FindItem(item.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, item.ID)
	}
	*existing = item
	return out, nil
}

// WithItemRemoved returns a copy of t without the item.
func (t *Taxonomy) WithItemRemoved(itemID string) (*Taxonomy, error) {
	out := t.Clone()
	_, sub, _, ok := out.FindItem(itemID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	kept := sub.Items[:0]
	for _, it := range sub.Items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	sub.Items = kept
	return out, nil
}
