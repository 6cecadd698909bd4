package models

import (
	"encoding/json"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction is the kind of change recorded.
type AuditAction string

const (
	AuditActionCreate       AuditAction = "CREATE"
	AuditActionUpdate       AuditAction = "UPDATE"
	AuditActionDelete       AuditAction = "DELETE"
	AuditActionPublish      AuditAction = "PUBLISH"       // taxonomy version published
	AuditActionGateOverride AuditAction = "GATE_OVERRIDE" // completeness warning confirmed
	AuditActionExport       AuditAction = "EXPORT"        // report archived or downloaded
)

// Audited resource types
const (
	AuditResourceProject  = "Project"
	AuditResourceTaxonomy = "Taxonomy"
	AuditResourceSession  = "AssessmentSession"
	AuditResourceReport   = "Report"
)

// AuditLog is an append-only record of a change to projects or the taxonomy.
type AuditLog struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_audit_created_at" json:"created_at"`

	// Actor, as reported by the fronting proxy
	UserName string `gorm:"not null" json:"user_name"`
	IsAdmin  bool   `json:"is_admin"`

	ResourceType string `gorm:"not null;index:idx_audit_resource" json:"resource_type"`
	ResourceID   string `gorm:"not null;index:idx_audit_resource" json:"resource_id"`
	ResourceName string `json:"resource_name,omitempty"` // reference or taxonomy version

	Action      AuditAction `gorm:"not null;index:idx_audit_action" json:"action"`
	Description string      `gorm:"type:text" json:"description,omitempty"`

	OldValues string `gorm:"type:text" json:"old_values,omitempty"` // JSON encoded
	NewValues string `gorm:"type:text" json:"new_values,omitempty"` // JSON encoded

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// AuditChange is a single field difference between OldValues and NewValues.
type AuditChange struct {
	Field string      `json:"field"`
	Old   interface{} `json:"old"`
	New   interface{} `json:"new"`
}

// Changes diffs OldValues against NewValues, sorted by field name.
func (a *AuditLog) Changes() []AuditChange {
	oldMap := map[string]interface{}{}
	newMap := map[string]interface{}{}
	if a.OldValues != "" {
		_ = json.Unmarshal([]byte(a.OldValues), &oldMap)
	}
	if a.NewValues != "" {
		_ = json.Unmarshal([]byte(a.NewValues), &newMap)
	}

	keys := map[string]struct{}{}
	for k := range oldMap {
		keys[k] = struct{}{}
	}
	for k := range newMap {
		keys[k] = struct{}{}
	}

	var changes []AuditChange
	for k := range keys {
		if !reflect.DeepEqual(oldMap[k], newMap[k]) {
			changes = append(changes, AuditChange{Field: k, Old: oldMap[k], New: newMap[k]})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}

// BeforeCreate generates the UUID
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate keeps audit rows immutable
func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// BeforeDelete keeps audit rows immutable
func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// TableName specifies the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}
