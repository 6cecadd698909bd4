package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaxonomyVersion stores a published taxonomy document. The highest version
// is the current snapshot; older rows are kept so stored projects can be
// re-aggregated against the tree they were scored with.
type TaxonomyVersion struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Version     int    `gorm:"not null;uniqueIndex" json:"version"`
	Document    string `gorm:"type:text;not null" json:"-"` // YAML
	ChangeNote  string `json:"change_note,omitempty"`
	PublishedBy string `json:"published_by,omitempty"`
}

// BeforeCreate hook to generate UUID
func (t *TaxonomyVersion) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for TaxonomyVersion model
func (TaxonomyVersion) TableName() string {
	return "taxonomy_versions"
}
