package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	UserID   uint   `gorm:"index" json:"userId"`
	UserName string `gorm:"size:100" json:"userName"` // denormalize

	// "property", "client", "viewing"
	EntityType string `gorm:"size:50;index:idx_audit_entity" json:"entityType"`
	EntityID   uint   `gorm:"index:idx_audit_entity" json:"entityId"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	BeforeData datatypes.JSON `gorm:"type:jsonb" json:"beforeData"`
	AfterData  datatypes.JSON `gorm:"type:jsonb" json:"afterData"`
}
