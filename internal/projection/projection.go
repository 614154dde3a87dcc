package projection

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emrgen/revision/internal/model"
)

// Projection synchronizes the denormalized live view of a content item
// when one of its versions is published.
type Projection interface {
	// SyncToMainTable copies the published version out to the live
	// posts/pages table.
	SyncToMainTable(ctx context.Context, version *model.ContentVersion) error
}

var _ Projection = (*GormProjection)(nil)

type GormProjection struct {
	db *gorm.DB
}

func NewGormProjection(db *gorm.DB) *GormProjection {
	return &GormProjection{db: db}
}

func (p *GormProjection) SyncToMainTable(ctx context.Context, version *model.ContentVersion) error {
	publishedBy := ""
	if version.PublishedBy != nil {
		publishedBy = *version.PublishedBy
	}
	publishedAt := time.Now()
	if version.PublishedAt != nil {
		publishedAt = *version.PublishedAt
	}

	upsert := clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "slug", "body", "excerpt", "structured_data", "metadata",
			"version_id", "version_number", "published_by", "published_at", "updated_at",
		}),
	}

	switch version.ContentType {
	case model.ContentTypePost:
		post := &model.Post{
			ID:             version.ContentID,
			TenantID:       version.TenantID,
			Title:          version.Title,
			Slug:           version.Slug,
			Body:           version.Body,
			Excerpt:        version.Excerpt,
			StructuredData: version.StructuredData,
			Metadata:       version.Metadata,
			VersionID:      version.ID,
			VersionNumber:  version.VersionNumber,
			PublishedBy:    publishedBy,
			PublishedAt:    publishedAt,
			UpdatedAt:      time.Now(),
		}
		return p.db.WithContext(ctx).Clauses(upsert).Create(post).Error
	case model.ContentTypePage:
		page := &model.Page{
			ID:             version.ContentID,
			TenantID:       version.TenantID,
			Title:          version.Title,
			Slug:           version.Slug,
			Body:           version.Body,
			Excerpt:        version.Excerpt,
			StructuredData: version.StructuredData,
			Metadata:       version.Metadata,
			VersionID:      version.ID,
			VersionNumber:  version.VersionNumber,
			PublishedBy:    publishedBy,
			PublishedAt:    publishedAt,
			UpdatedAt:      time.Now(),
		}
		return p.db.WithContext(ctx).Clauses(upsert).Create(page).Error
	}

	return fmt.Errorf("unknown content type %q", version.ContentType)
}

var _ Projection = (*Nop)(nil)

// Nop skips the live-table sync, for deployments that project
// elsewhere.
type Nop struct{}

func NewNop() *Nop {
	return &Nop{}
}

func (n *Nop) SyncToMainTable(ctx context.Context, version *model.ContentVersion) error {
	return nil
}
