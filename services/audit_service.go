package services

import (
	"encoding/json"
	"log"
	"time"

	"sustain_score_app_go/models"

	"gorm.io/gorm"
)

// AuditContext identifies who made a change and from where
type AuditContext struct {
	UserName  string
	IsAdmin   bool
	IPAddress string
	UserAgent string
}

// LogAuditEvent writes an audit log entry asynchronously
func LogAuditEvent(
	db *gorm.DB,
	ctx AuditContext,
	action models.AuditAction,
	resourceType string,
	resourceID string,
	resourceName string,
	description string,
	oldValues interface{},
	newValues interface{},
) {
	if db == nil {
		return
	}
	entry := buildAuditLog(ctx, action, resourceType, resourceID, resourceName, description, oldValues, newValues)

	go func() {
		if err := db.Create(&entry).Error; err != nil {
			log.Printf("[AUDIT] Failed to create audit log: %v", err)
		}
	}()
}

func buildAuditLog(
	ctx AuditContext,
	action models.AuditAction,
	resourceType, resourceID, resourceName, description string,
	oldValues, newValues interface{},
) models.AuditLog {
	userName := ctx.UserName
	if userName == "" {
		userName = "anonymous"
	}
	return models.AuditLog{
		UserName:     userName,
		IsAdmin:      ctx.IsAdmin,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ResourceName: resourceName,
		Action:       action,
		Description:  description,
		OldValues:    marshalAuditValues(oldValues),
		NewValues:    marshalAuditValues(newValues),
		IPAddress:    ctx.IPAddress,
		UserAgent:    ctx.UserAgent,
	}
}

func marshalAuditValues(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// GetResourceAuditHistory retrieves the audit history for a resource, newest first
func GetResourceAuditHistory(db *gorm.DB, resourceType, resourceID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := db.Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

// AuditLogFilters contains filter options for audit log queries
type AuditLogFilters struct {
	UserName     string
	ResourceType string
	Action       string
	DateFrom     time.Time
	DateTo       time.Time
}

// ListAuditLogs returns a page of audit entries and the total match count
func ListAuditLogs(db *gorm.DB, filters AuditLogFilters, page, pageSize int) ([]models.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	query := db.Model(&models.AuditLog{})
	if filters.UserName != "" {
		query = query.Where("user_name = ?", filters.UserName)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AuditLog
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	return logs, total, err
}
