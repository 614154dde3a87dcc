package cache

import (
	"context"

	"github.com/emrgen/revision/internal/model"
)

// VersionCache is an advisory read cache for latest-version lookups.
// It is never authoritative; correctness-sensitive reads bypass it and
// hit the store inside a transaction.
type VersionCache interface {
	// GetLatest gets the cached latest version for a scope.
	// A miss returns (nil, nil).
	GetLatest(ctx context.Context, scope model.Scope) (*model.ContentVersion, error)
	// SetLatest caches the latest version for a scope.
	SetLatest(ctx context.Context, scope model.Scope, version *model.ContentVersion) error
	// Invalidate drops all cached entries for a scope. Called on every
	// mutation to the scope.
	Invalidate(ctx context.Context, scope model.Scope) error
}

func latestKey(scope model.Scope) string {
	return "version:latest:" + scope.TenantID + ":" + string(scope.ContentType) + ":" + scope.ContentID
}
