package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is an append-only record of a security or business action.
type AuditLog struct {
	ID          string         `json:"id" gorm:"primaryKey;size:36"`
	Action      string         `json:"action" gorm:"size:64;not null;index"`
	EntityType  string         `json:"entityType" gorm:"size:64;not null;index:idx_audit_entity,priority:1"`
	EntityID    *string        `json:"entityId" gorm:"size:36;index:idx_audit_entity,priority:2"`
	PerformedBy *string        `json:"performedBy" gorm:"size:255"`
	UserID      *string        `json:"userId" gorm:"size:36;index"`
	Metadata    datatypes.JSON `json:"metadata"`
	CreatedAt   time.Time      `json:"createdAt" gorm:"index"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return
}
