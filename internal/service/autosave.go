package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/revision/internal/diff"
	"github.com/emrgen/revision/internal/metrics"
	"github.com/emrgen/revision/internal/model"
	"github.com/emrgen/revision/internal/store"
)

const (
	// DefaultAutoSaveKeep is how many auto-save rows survive the
	// keep-N prune per scope.
	DefaultAutoSaveKeep = 5
	// DefaultAutoSaveRetention is the age past which the time sweep
	// removes auto-save rows.
	DefaultAutoSaveRetention = 30 * 24 * time.Hour

	pruneTimeout = 30 * time.Second
)

// AutoSaveResult reports either the stored snapshot or that the call
// was skipped because nothing changed. A skip is a benign outcome.
type AutoSaveResult struct {
	Version *model.ContentVersion `json:"version,omitempty"`
	Skipped bool                  `json:"skipped"`
}

// NewAutosaveService creates a new AutosaveService on top of the
// version lifecycle. Zero keep or retention selects the defaults.
func NewAutosaveService(versions *VersionService, versionStore store.Store, keep int, retention time.Duration) *AutosaveService {
	if keep <= 0 {
		keep = DefaultAutoSaveKeep
	}
	if retention <= 0 {
		retention = DefaultAutoSaveRetention
	}

	return &AutosaveService{
		versions:  versions,
		store:     versionStore,
		keep:      keep,
		retention: retention,
	}
}

// AutosaveService intercepts high-frequency save requests, skipping
// no-op writes by content hash and pruning old snapshots.
type AutosaveService struct {
	versions  *VersionService
	store     store.Store
	keep      int
	retention time.Duration
}

// AutoSave stores a new auto-save snapshot unless its content hash
// matches the most recent hashed version in scope.
func (a *AutosaveService) AutoSave(ctx context.Context, scope model.Scope, input PayloadInput, actor Actor) (*AutoSaveResult, error) {
	if err := a.versions.checkAccess(ctx, scope.TenantID, actor); err != nil {
		return nil, err
	}

	hash := input.ContentHash
	if hash == "" {
		computed, err := a.computeHash(ctx, scope, input)
		if err != nil {
			return nil, err
		}
		hash = computed
	}

	latest, err := a.store.GetLatestHashedVersion(ctx, scope)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.ContentHash == hash {
		metrics.AutoSaveSkips.Inc()
		return &AutoSaveResult{Skipped: true, Version: latest}, nil
	}

	input.VersionType = model.VersionTypeAutoSave
	input.ContentHash = hash

	version, err := a.versions.CreateVersion(ctx, scope, input, actor)
	if err != nil {
		return nil, err
	}

	// pruning is best-effort and must not affect the reported save
	go func() {
		pruneCtx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
		defer cancel()

		if _, err := a.PruneScope(pruneCtx, scope); err != nil {
			logrus.Errorf("auto-save prune failed for %s/%s: %v", scope.TenantID, scope.ContentID, err)
		}
	}()

	return &AutoSaveResult{Version: version}, nil
}

// HasUnsavedChanges reports whether the supplied hash differs from the
// latest draft or published version. No baseline means unsaved by
// definition.
func (a *AutosaveService) HasUnsavedChanges(ctx context.Context, scope model.Scope, hash string) (bool, error) {
	latest, err := a.store.GetLatestNonAutoSave(ctx, scope)
	if err != nil {
		return false, err
	}
	if latest == nil {
		return true, nil
	}

	return latest.ContentHash != hash, nil
}

// PruneScope deletes every auto-save row in the scope beyond the most
// recent keep, newest first. Returns the number of rows removed.
func (a *AutosaveService) PruneScope(ctx context.Context, scope model.Scope) (int, error) {
	stale, err := a.store.ListAutoSavesBeyond(ctx, scope, a.keep)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(stale))
	for _, version := range stale {
		ids = append(ids, version.ID)
	}

	if err := a.store.DeleteVersionsByID(ctx, ids); err != nil {
		return 0, err
	}

	metrics.AutoSavesPruned.Add(float64(len(ids)))
	return len(ids), nil
}

// SweepStale removes auto-save rows older than the retention window,
// across all scopes. Used by the periodic cleanup job.
func (a *AutosaveService) SweepStale(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-a.retention)

	stale, err := a.store.ListStaleAutoSaves(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(stale))
	for _, version := range stale {
		ids = append(ids, version.ID)
	}

	if err := a.store.DeleteVersionsByID(ctx, ids); err != nil {
		return 0, err
	}

	metrics.AutoSavesPruned.Add(float64(len(ids)))
	logrus.Infof("auto-save sweep removed %d rows older than %s", len(ids), cutoff.Format(time.RFC3339))
	return len(ids), nil
}

// computeHash digests the payload the same way CreateVersion would
// store it, sanitizing first, so caller-side and engine-side hashes
// agree.
func (a *AutosaveService) computeHash(ctx context.Context, scope model.Scope, input PayloadInput) (string, error) {
	prior, err := a.store.GetLatestVersion(ctx, scope)
	if err != nil {
		return "", err
	}

	snapshot := buildSnapshot(scope, prior, a.versions.sanitizeInput(input), Actor{})
	return diff.ContentHash(diff.FromVersion(snapshot)), nil
}
