package model

import (
	"encoding/json"
	"time"
)

// VersionType classifies how a version entered the system.
type VersionType string

const (
	VersionTypeDraft     VersionType = "draft"
	VersionTypePublished VersionType = "published"
	VersionTypeAutoSave  VersionType = "auto_save"
)

// ContentType is the closed set of versionable content kinds.
type ContentType string

const (
	ContentTypePost ContentType = "post"
	ContentTypePage ContentType = "page"
)

// Scope identifies the logical content item a version belongs to.
// Version numbers and current pointers are unique within a scope.
type Scope struct {
	TenantID    string      `json:"tenant_id"`
	ContentType ContentType `json:"content_type"`
	ContentID   string      `json:"content_id"`
}

// ContentVersion is an immutable snapshot of a content item. After insert
// only the current-pointer flags and the publish stamps are ever updated.
type ContentVersion struct {
	ID          string      `gorm:"primaryKey;uuid;not null"`
	TenantID    string      `gorm:"uuid;not null;index:idx_version_scope;uniqueIndex:idx_version_scope_number"`
	ContentType ContentType `gorm:"not null;index:idx_version_scope;uniqueIndex:idx_version_scope_number"`
	ContentID   string      `gorm:"uuid;not null;index:idx_version_scope;uniqueIndex:idx_version_scope_number"`

	// the unique scope+number index is the backstop for the allocator:
	// a double allocation fails the insert instead of committing twins
	VersionNumber int `gorm:"not null;uniqueIndex:idx_version_scope_number"`

	Title          string
	Slug           string
	Body           string
	Excerpt        string
	StructuredData string // JSON document, opaque beyond the diff whitelist
	Metadata       string // JSON document, SEO and provenance fields

	VersionType        VersionType `gorm:"not null;default:draft"`
	IsCurrentDraft     bool        `gorm:"not null;default:false"`
	IsCurrentPublished bool        `gorm:"not null;default:false"`

	ChangeSummary string
	ChangedFields string // JSON array of field names, ordered
	ContentHash   string `gorm:"index"`

	CreatedBy   string `gorm:"not null"`
	CreatedAt   time.Time
	PublishedBy *string
	PublishedAt *time.Time
}

func (ContentVersion) TableName() string {
	return "content_versions"
}

// Scope returns the version's scope triple.
func (v *ContentVersion) Scope() Scope {
	return Scope{
		TenantID:    v.TenantID,
		ContentType: v.ContentType,
		ContentID:   v.ContentID,
	}
}

// ChangedFieldList decodes the stored changed-fields document.
func (v *ContentVersion) ChangedFieldList() []string {
	fields := make([]string, 0)
	if v.ChangedFields == "" {
		return fields
	}
	if err := json.Unmarshal([]byte(v.ChangedFields), &fields); err != nil {
		return []string{}
	}
	return fields
}

func (v *ContentVersion) MarshalBinary() ([]byte, error) {
	return json.Marshal(v)
}

// EncodeFieldList encodes an ordered field-name list for storage.
func EncodeFieldList(fields []string) string {
	data, err := json.Marshal(fields)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// DecodeDocument parses an opaque JSON key-value document. An empty
// string decodes to an empty map.
func DecodeDocument(doc string) map[string]any {
	out := make(map[string]any)
	if doc == "" {
		return out
	}
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return map[string]any{}
	}
	return out
}

// ApplyPublish stamps the version as the current published one.
func (v *ContentVersion) ApplyPublish(actorID string, at time.Time) {
	v.VersionType = VersionTypePublished
	v.IsCurrentPublished = true
	v.IsCurrentDraft = false
	v.PublishedBy = &actorID
	v.PublishedAt = &at
}
