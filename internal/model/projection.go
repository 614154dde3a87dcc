package model

import "time"

// Post is the denormalized live view of a published post version.
// It is a copy-out owned by the wider system; the engine only writes
// it when a version is published.
type Post struct {
	ID             string      `gorm:"primaryKey;uuid;not null"`
	TenantID       string      `gorm:"uuid;not null;index"`
	Title          string
	Slug           string
	Body           string
	Excerpt        string
	StructuredData string
	Metadata       string
	VersionID      string      `gorm:"uuid"`
	VersionNumber  int
	PublishedBy    string
	PublishedAt    time.Time
	UpdatedAt      time.Time
}

func (Post) TableName() string {
	return "posts"
}

// Page is the live view of a published page version.
type Page struct {
	ID             string `gorm:"primaryKey;uuid;not null"`
	TenantID       string `gorm:"uuid;not null;index"`
	Title          string
	Slug           string
	Body           string
	Excerpt        string
	StructuredData string
	Metadata       string
	VersionID      string `gorm:"uuid"`
	VersionNumber  int
	PublishedBy    string
	PublishedAt    time.Time
	UpdatedAt      time.Time
}

func (Page) TableName() string {
	return "pages"
}
