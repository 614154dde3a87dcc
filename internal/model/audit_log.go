package model

import "time"

// DataClassification tags an audit entry with the sensitivity of the
// payload it describes.
type DataClassification string

const (
	ClassificationInternal   DataClassification = "internal"
	ClassificationRestricted DataClassification = "restricted"
)

// AuditAction names the mutating operation an audit entry records.
type AuditAction string

const (
	AuditActionCreate   AuditAction = "version.create"
	AuditActionPublish  AuditAction = "version.publish"
	AuditActionRevert   AuditAction = "version.revert"
	AuditActionDelete   AuditAction = "version.delete"
	AuditActionAutoSave AuditAction = "version.auto_save"
)

// AuditLogEntry is append-only; one row per mutating operation.
type AuditLogEntry struct {
	ID        string      `gorm:"primaryKey;uuid;not null"`
	TenantID  string      `gorm:"uuid;not null;index"`
	VersionID string      `gorm:"uuid;index"`
	ActorID   string      `gorm:"not null"`
	Action    AuditAction `gorm:"not null"`

	IPAddress string
	UserAgent string
	Details   string // free-form JSON document

	DataClassification DataClassification `gorm:"not null;default:internal"`
	CreatedAt          time.Time
}

func (AuditLogEntry) TableName() string {
	return "audit_log_entries"
}
