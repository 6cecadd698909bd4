package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"sustain_score_app_go/models"
	"sustain_score_app_go/services/scoring"

	"gorm.io/gorm"
)

// ErrTaxonomyVersionNotFound is returned for unknown historical versions
var ErrTaxonomyVersionNotFound = errors.New("taxonomy version not found")

// TaxonomyService holds the current taxonomy snapshot and publishes admin
// edits as new versions. Published snapshots are never modified; callers may
// share them freely.
type TaxonomyService struct {
	db *gorm.DB

	mu      sync.RWMutex
	current *scoring.Taxonomy
}

// NewTaxonomyService creates a service over db. With a nil db versions live
// in memory only.
func NewTaxonomyService(db *gorm.DB) *TaxonomyService {
	return &TaxonomyService{db: db}
}

// LoadTaxonomySeed reads a YAML document from path, or the built-in default
// when path is empty.
func LoadTaxonomySeed(path string) (*scoring.Taxonomy, error) {
	if path == "" {
		return scoring.DefaultTaxonomy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy %s: %w", path, err)
	}
	return scoring.ParseTaxonomyYAML(data)
}

// Load makes the latest stored version current, storing seed as the first
// version when nothing has been published yet.
func (s *TaxonomyService) Load(ctx context.Context, seed *scoring.Taxonomy) error {
	if problems := seed.Validate(); len(problems) > 0 {
		log.Printf("[TAXONOMY] Seed document has %d authoring problem(s): %v", len(problems), problems)
	}

	if s.db == nil {
		snap := seed.Clone()
		if snap.Version < 1 {
			snap.Version = 1
		}
		s.setCurrent(snap)
		return nil
	}

	var latest models.TaxonomyVersion
	err := s.db.WithContext(ctx).Order("version DESC").First(&latest).Error
	switch {
	case err == nil:
		snap, err := decodeVersion(&latest)
		if err != nil {
			return err
		}
		s.setCurrent(snap)
		log.Printf("[TAXONOMY] Loaded version %d", snap.Version)
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		snap := seed.Clone()
		snap.Version = 1
		if err := s.store(ctx, snap, "initial taxonomy", "system"); err != nil {
			return err
		}
		s.setCurrent(snap)
		log.Printf("[TAXONOMY] Seeded version 1")
		return nil
	default:
		return fmt.Errorf("failed to load taxonomy: %w", err)
	}
}

// Current returns the published snapshot
func (s *TaxonomyService) Current() *scoring.Taxonomy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *TaxonomyService) setCurrent(t *scoring.Taxonomy) {
	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
}

// Version returns a historical snapshot. The current version is served
// from memory.
func (s *TaxonomyService) Version(ctx context.Context, version int) (*scoring.Taxonomy, error) {
	if cur := s.Current(); cur != nil && (version == cur.Version || version == 0) {
		return cur, nil
	}
	if s.db == nil {
		return nil, fmt.Errorf("%w: %d", ErrTaxonomyVersionNotFound, version)
	}

	var row models.TaxonomyVersion
	err := s.db.WithContext(ctx).First(&row, "version = ?", version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrTaxonomyVersionNotFound, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch taxonomy version: %w", err)
	}
	return decodeVersion(&row)
}

// Versions lists published versions, newest first
func (s *TaxonomyService) Versions(ctx context.Context) ([]models.TaxonomyVersion, error) {
	if s.db == nil {
		cur := s.Current()
		if cur == nil {
			return nil, nil
		}
		return []models.TaxonomyVersion{{Version: cur.Version}}, nil
	}
	var rows []models.TaxonomyVersion
	if err := s.db.WithContext(ctx).Order("version DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list taxonomy versions: %w", err)
	}
	return rows, nil
}

// Publish stores next as the new current version
func (s *TaxonomyService) Publish(ctx context.Context, next *scoring.Taxonomy, note, publishedBy string) (*scoring.Taxonomy, error) {
	return s.edit(ctx, note, publishedBy, func(*scoring.Taxonomy) (*scoring.Taxonomy, error) {
		return next, nil
	})
}

// AddItem publishes a version with item added to the sub-category
func (s *TaxonomyService) AddItem(ctx context.Context, categoryID, subCategoryID string, item scoring.Item, by string) (*scoring.Taxonomy, error) {
	return s.edit(ctx, fmt.Sprintf("added item %s", item.ID), by, func(cur *scoring.Taxonomy) (*scoring.Taxonomy, error) {
		return cur.WithItemAdded(categoryID, subCategoryID, item)
	})
}

// UpdateItem publishes a version with the item replaced
func (s *TaxonomyService) UpdateItem(ctx context.Context, item scoring.Item, by string) (*scoring.Taxonomy, error) {
	return s.edit(ctx, fmt.Sprintf("updated item %s", item.ID), by, func(cur *scoring.Taxonomy) (*scoring.Taxonomy, error) {
		return cur.WithItemUpdated(item)
	})
}

// RemoveItem publishes a version without the item
func (s *TaxonomyService) RemoveItem(ctx context.Context, itemID, by string) (*scoring.Taxonomy, error) {
	return s.edit(ctx, fmt.Sprintf("removed item %s", itemID), by, func(cur *scoring.Taxonomy) (*scoring.Taxonomy, error) {
		return cur.WithItemRemoved(itemID)
	})
}

// edit derives the next version from the current one under the write lock so
// concurrent admin edits cannot drop each other's changes.
func (s *TaxonomyService) edit(ctx context.Context, note, by string, fn func(cur *scoring.Taxonomy) (*scoring.Taxonomy, error)) (*scoring.Taxonomy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, fmt.Errorf("taxonomy not loaded")
	}
	next, err := fn(s.current)
	if err != nil {
		return nil, err
	}

	snap := next.Clone()
	snap.Version = s.current.Version + 1
	if err := s.store(ctx, snap, note, by); err != nil {
		return nil, err
	}
	s.current = snap
	log.Printf("[TAXONOMY] Published version %d by %s: %s", snap.Version, by, note)
	return snap, nil
}

func (s *TaxonomyService) store(ctx context.Context, t *scoring.Taxonomy, note, by string) error {
	if s.db == nil {
		return nil
	}
	doc, err := t.MarshalYAMLDocument()
	if err != nil {
		return err
	}
	row := models.TaxonomyVersion{
		Version:     t.Version,
		Document:    string(doc),
		ChangeNote:  note,
		PublishedBy: by,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to store taxonomy version %d: %w", t.Version, err)
	}
	return nil
}

func decodeVersion(row *models.TaxonomyVersion) (*scoring.Taxonomy, error) {
	t, err := scoring.ParseTaxonomyYAML([]byte(row.Document))
	if err != nil {
		return nil, fmt.Errorf("taxonomy version %d: %w", row.Version, err)
	}
	t.Version = row.Version
	return t, nil
}
