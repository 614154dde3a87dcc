package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/emrgen/revision/internal/model"
)

type Store interface {
	VersionStore
	AuditStore
	// Transaction runs f inside a transaction at the given isolation
	// level. The nested store shares the transaction handle.
	Transaction(ctx context.Context, isolation sql.IsolationLevel, f func(tx Store) error) error
	Migrate() error
}

type VersionStore interface {
	// CreateVersion inserts a new version row.
	CreateVersion(ctx context.Context, version *model.ContentVersion) error
	// GetVersion retrieves a version by ID.
	GetVersion(ctx context.Context, id uuid.UUID) (*model.ContentVersion, error)
	// GetLatestVersion retrieves the highest-numbered version in a scope,
	// of any type. Returns (nil, nil) when the scope is empty.
	GetLatestVersion(ctx context.Context, scope model.Scope) (*model.ContentVersion, error)
	// GetLatestHashedVersion retrieves the most recent version in a scope
	// that carries a content hash. Returns (nil, nil) when none exists.
	GetLatestHashedVersion(ctx context.Context, scope model.Scope) (*model.ContentVersion, error)
	// GetLatestNonAutoSave retrieves the highest-numbered draft or
	// published version in a scope. Returns (nil, nil) when none exists.
	GetLatestNonAutoSave(ctx context.Context, scope model.Scope) (*model.ContentVersion, error)
	// GetCurrentDraft retrieves the version holding the current-draft
	// pointer. Returns (nil, nil) when no draft exists.
	GetCurrentDraft(ctx context.Context, scope model.Scope) (*model.ContentVersion, error)
	// GetCurrentPublished retrieves the version holding the
	// current-published pointer. Returns (nil, nil) when none exists.
	GetCurrentPublished(ctx context.Context, scope model.Scope) (*model.ContentVersion, error)
	// ListVersions retrieves all versions in a scope, newest first.
	ListVersions(ctx context.Context, scope model.Scope) ([]*model.ContentVersion, error)
	// CountVersions counts the versions in a scope.
	CountVersions(ctx context.Context, scope model.Scope) (int64, error)
	// NextVersionNumber allocates the next version number for a scope
	// with a locking read. Must run inside a transaction.
	NextVersionNumber(ctx context.Context, scope model.Scope) (int, error)
	// UpdateVersion persists lifecycle-flag and publish-stamp changes.
	UpdateVersion(ctx context.Context, version *model.ContentVersion) error
	// ClearCurrentPublished drops the current-published pointer in a scope.
	ClearCurrentPublished(ctx context.Context, scope model.Scope) error
	// ClearCurrentDraft drops the current-draft pointer in a scope.
	ClearCurrentDraft(ctx context.Context, scope model.Scope) error
	// DeleteVersion hard-deletes a version row.
	DeleteVersion(ctx context.Context, id uuid.UUID) error
	// ListAutoSavesBeyond lists auto-save rows in a scope after skipping
	// the keep most recent ones, newest first.
	ListAutoSavesBeyond(ctx context.Context, scope model.Scope, keep int) ([]*model.ContentVersion, error)
	// ListStaleAutoSaves lists auto-save rows created before the cutoff,
	// across all scopes.
	ListStaleAutoSaves(ctx context.Context, before time.Time) ([]*model.ContentVersion, error)
	// DeleteVersionsByID hard-deletes a batch of version rows.
	DeleteVersionsByID(ctx context.Context, ids []string) error
}

type AuditStore interface {
	// CreateAuditEntry appends an audit log row.
	CreateAuditEntry(ctx context.Context, entry *model.AuditLogEntry) error
}
