package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emrgen/revision/internal/model"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func scoped(db *gorm.DB, scope model.Scope) *gorm.DB {
	return db.Where("tenant_id = ? AND content_type = ? AND content_id = ?",
		scope.TenantID, scope.ContentType, scope.ContentID)
}

func (g *GormStore) CreateVersion(ctx context.Context, version *model.ContentVersion) error {
	return g.db.WithContext(ctx).Create(version).Error
}

func (g *GormStore) GetVersion(ctx context.Context, id uuid.UUID) (*model.ContentVersion, error) {
	var version model.ContentVersion
	err := g.db.WithContext(ctx).Where("id = ?", id.String()).First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (g *GormStore) GetLatestVersion(ctx context.Context, scope model.Scope) (*model.ContentVersion, error) {
	var version model.ContentVersion
	err := scoped(g.db.WithContext(ctx), scope).
		Order("version_number desc").
		First(&version).Error
	return optional(&version, err)
}

func (g *GormStore) GetLatestHashedVersion(ctx context.Context, scope model.Scope) (*model.ContentVersion, error) {
	var version model.ContentVersion
	err := scoped(g.db.WithContext(ctx), scope).
		Where("content_hash <> ''").
		Order("created_at desc").
		First(&version).Error
	return optional(&version, err)
}

func (g *GormStore) GetLatestNonAutoSave(ctx context.Context, scope model.Scope) (*model.ContentVersion, error) {
	var version model.ContentVersion
	err := scoped(g.db.WithContext(ctx), scope).
		Where("version_type <> ?", model.VersionTypeAutoSave).
		Order("version_number desc").
		First(&version).Error
	return optional(&version, err)
}

func (g *GormStore) GetCurrentDraft(ctx context.Context, scope model.Scope) (*model.ContentVersion, error) {
	var version model.ContentVersion
	err := scoped(g.db.WithContext(ctx), scope).
		Where("is_current_draft = ?", true).
		First(&version).Error
	return optional(&version, err)
}

func (g *GormStore) GetCurrentPublished(ctx context.Context, scope model.Scope) (*model.ContentVersion, error) {
	var version model.ContentVersion
	err := scoped(g.db.WithContext(ctx), scope).
		Where("is_current_published = ?", true).
		First(&version).Error
	return optional(&version, err)
}

func (g *GormStore) ListVersions(ctx context.Context, scope model.Scope) ([]*model.ContentVersion, error) {
	var versions []*model.ContentVersion
	err := scoped(g.db.WithContext(ctx), scope).
		Order("version_number desc").
		Find(&versions).Error
	return versions, err
}

func (g *GormStore) CountVersions(ctx context.Context, scope model.Scope) (int64, error) {
	var count int64
	err := scoped(g.db.WithContext(ctx).Model(&model.ContentVersion{}), scope).
		Count(&count).Error
	return count, err
}

// NextVersionNumber locks the latest row in the scope before reading
// its number, so two concurrent transactions cannot both see the same
// maximum.
func (g *GormStore) NextVersionNumber(ctx context.Context, scope model.Scope) (int, error) {
	var version model.ContentVersion
	err := scoped(g.db.WithContext(ctx), scope).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("version_number desc").
		First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}

	return version.VersionNumber + 1, nil
}

func (g *GormStore) UpdateVersion(ctx context.Context, version *model.ContentVersion) error {
	return g.db.WithContext(ctx).Save(version).Error
}

func (g *GormStore) ClearCurrentPublished(ctx context.Context, scope model.Scope) error {
	return scoped(g.db.WithContext(ctx).Model(&model.ContentVersion{}), scope).
		Where("is_current_published = ?", true).
		Update("is_current_published", false).Error
}

func (g *GormStore) ClearCurrentDraft(ctx context.Context, scope model.Scope) error {
	return scoped(g.db.WithContext(ctx).Model(&model.ContentVersion{}), scope).
		Where("is_current_draft = ?", true).
		Update("is_current_draft", false).Error
}

func (g *GormStore) DeleteVersion(ctx context.Context, id uuid.UUID) error {
	return g.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&model.ContentVersion{}).Error
}

func (g *GormStore) ListAutoSavesBeyond(ctx context.Context, scope model.Scope, keep int) ([]*model.ContentVersion, error) {
	var versions []*model.ContentVersion
	// sqlite rejects OFFSET without LIMIT, so prune in bounded batches
	err := scoped(g.db.WithContext(ctx), scope).
		Where("version_type = ?", model.VersionTypeAutoSave).
		Order("created_at desc").
		Limit(200).
		Offset(keep).
		Find(&versions).Error
	return versions, err
}

func (g *GormStore) ListStaleAutoSaves(ctx context.Context, before time.Time) ([]*model.ContentVersion, error) {
	var versions []*model.ContentVersion
	err := g.db.WithContext(ctx).
		Where("version_type = ? AND created_at < ?", model.VersionTypeAutoSave, before).
		Find(&versions).Error
	return versions, err
}

func (g *GormStore) DeleteVersionsByID(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Where("id in (?)", ids).Delete(&model.ContentVersion{}).Error
}

func (g *GormStore) CreateAuditEntry(ctx context.Context, entry *model.AuditLogEntry) error {
	return g.db.WithContext(ctx).Create(entry).Error
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, isolation sql.IsolationLevel, f func(tx Store) error) error {
	// sqlite transactions are always serializable and its driver
	// rejects the intermediate levels
	if g.db.Dialector.Name() == "sqlite" {
		isolation = sql.LevelDefault
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	}, &sql.TxOptions{Isolation: isolation})
}

// optional converts a record-not-found error into a (nil, nil) result
// for lookups where an empty scope is not a failure.
func optional(version *model.ContentVersion, err error) (*model.ContentVersion, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return version, nil
}
