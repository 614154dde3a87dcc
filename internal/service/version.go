package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/revision/internal/audit"
	"github.com/emrgen/revision/internal/cache"
	"github.com/emrgen/revision/internal/diff"
	"github.com/emrgen/revision/internal/metrics"
	"github.com/emrgen/revision/internal/model"
	"github.com/emrgen/revision/internal/projection"
	"github.com/emrgen/revision/internal/queue"
	"github.com/emrgen/revision/internal/sanitize"
	"github.com/emrgen/revision/internal/store"
)

const (
	// MaxVersionsPerContent is the hard per-scope version ceiling the
	// engine enforces, independent of tenant-level quotas.
	MaxVersionsPerContent = 100

	maxTitleLength     = 500
	maxConflictRetries = 3
)

// PayloadInput is a partial content payload. Nil fields mean "not
// provided" and inherit the prior version's value; empty values clear.
type PayloadInput struct {
	Title          *string
	Slug           *string
	Body           *string
	Excerpt        *string
	StructuredData map[string]any
	Metadata       map[string]any

	ChangeSummary string
	VersionType   model.VersionType
	// ContentHash lets the caller supply a precomputed digest, as the
	// auto-save path does. Computed from the payload when empty.
	ContentHash string
}

// NewVersionService creates a new VersionService.
func NewVersionService(versionStore store.Store, versionCache cache.VersionCache, eventQueue queue.Queue,
	auditLogger *audit.Logger, sanitizer sanitize.Sanitizer, access AccessChecker,
	liveView projection.Projection, quota QuotaReporter) *VersionService {
	return &VersionService{
		store:     versionStore,
		cache:     versionCache,
		queue:     eventQueue,
		audit:     auditLogger,
		sanitizer: sanitizer,
		access:    access,
		liveView:  liveView,
		quota:     quota,
	}
}

// VersionService orchestrates the create/publish/revert/delete
// lifecycle of content versions.
type VersionService struct {
	store     store.Store
	cache     cache.VersionCache
	queue     queue.Queue
	audit     *audit.Logger
	sanitizer sanitize.Sanitizer
	access    AccessChecker
	liveView  projection.Projection
	quota     QuotaReporter
}

// CreateVersion validates, allocates the next version number, diffs
// against the latest version in scope and inserts the new row, all in
// one repeatable-read transaction.
func (s *VersionService) CreateVersion(ctx context.Context, scope model.Scope, input PayloadInput, actor Actor) (*model.ContentVersion, error) {
	if err := s.checkAccess(ctx, scope.TenantID, actor); err != nil {
		return nil, err
	}

	input = s.sanitizeInput(input)
	if input.Title != nil {
		if *input.Title == "" {
			return nil, NewError(CodeValidationFailed, "title must not be empty")
		}
		if len(*input.Title) > maxTitleLength {
			return nil, NewError(CodeValidationFailed, "title exceeds %d characters", maxTitleLength)
		}
	}

	var version *model.ContentVersion
	var versionCount int64

	err := s.withRetry(ctx, sql.LevelRepeatableRead, func(tx store.Store) error {
		version = nil

		count, err := tx.CountVersions(ctx, scope)
		if err != nil {
			return err
		}
		if count >= MaxVersionsPerContent {
			return NewError(CodeLimitExceeded, "content has reached the maximum of %d versions", MaxVersionsPerContent)
		}
		versionCount = count + 1

		number, err := tx.NextVersionNumber(ctx, scope)
		if err != nil {
			return err
		}

		prior, err := tx.GetLatestVersion(ctx, scope)
		if err != nil {
			return err
		}

		changes := diff.Diff(prior, diff.Payload{
			Title:          input.Title,
			Slug:           input.Slug,
			Body:           input.Body,
			Excerpt:        input.Excerpt,
			StructuredData: input.StructuredData,
			Metadata:       input.Metadata,
		})

		version = buildSnapshot(scope, prior, input, actor)
		version.VersionNumber = number
		version.ChangedFields = model.EncodeFieldList(diff.FieldNames(changes))

		if version.Title == "" {
			return NewError(CodeValidationFailed, "title must not be empty")
		}

		if version.ContentHash == "" {
			version.ContentHash = diff.ContentHash(diff.FromVersion(version))
		}

		if version.VersionType == model.VersionTypeDraft {
			// the new draft takes over the current-draft pointer
			if err := tx.ClearCurrentDraft(ctx, scope); err != nil {
				return err
			}
			version.IsCurrentDraft = true
		}

		return tx.CreateVersion(ctx, version)
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, scope, version)
	s.quota.ReportVersionCount(ctx, scope.TenantID, versionCount)
	metrics.VersionsCreated.WithLabelValues(string(version.VersionType)).Inc()

	s.audit.Record(ctx, audit.Entry{
		TenantID:     scope.TenantID,
		VersionID:    version.ID,
		ActorID:      actor.ID,
		Action:       auditActionForCreate(version.VersionType),
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
		Details:      map[string]any{"version_number": version.VersionNumber, "changed_fields": version.ChangedFieldList()},
		PayloadTexts: []string{version.Title, version.Body, version.Excerpt, version.StructuredData, version.Metadata},
	})

	s.emit(ctx, queue.EventVersionCreated, version, actor)

	return version, nil
}

// PublishVersion moves the current-published pointer to the target
// version inside a serializable transaction, so two concurrent
// publishes in a scope cannot both win.
func (s *VersionService) PublishVersion(ctx context.Context, versionID uuid.UUID, actor Actor) (*model.ContentVersion, error) {
	loaded, err := s.loadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAccess(ctx, loaded.TenantID, actor); err != nil {
		return nil, err
	}
	if loaded.VersionType == model.VersionTypeAutoSave {
		return nil, NewError(CodeInvalidState, "auto-save snapshots cannot be published")
	}

	scope := loaded.Scope()
	var version *model.ContentVersion

	err = s.withRetry(ctx, sql.LevelSerializable, func(tx store.Store) error {
		// re-read inside the transaction; the cached copy is advisory
		version, err = tx.GetVersion(ctx, versionID)
		if err != nil {
			if store.IsNotFound(err) {
				return NewError(CodeNotFound, "version %s not found", versionID)
			}
			return err
		}

		if err := tx.ClearCurrentPublished(ctx, scope); err != nil {
			return err
		}

		version.ApplyPublish(actor.ID, time.Now())
		if err := tx.UpdateVersion(ctx, version); err != nil {
			return err
		}

		// copy-out to the live posts/pages view; a failure here rolls
		// back the pointer move
		return s.liveView.SyncToMainTable(ctx, version)
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, scope, version)
	metrics.VersionsPublished.Inc()

	s.audit.Record(ctx, audit.Entry{
		TenantID:     scope.TenantID,
		VersionID:    version.ID,
		ActorID:      actor.ID,
		Action:       model.AuditActionPublish,
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
		Details:      map[string]any{"version_number": version.VersionNumber},
		PayloadTexts: []string{version.Title, version.Body, version.Excerpt},
	})

	s.emit(ctx, queue.EventVersionPublished, version, actor)

	return version, nil
}

// RevertToVersion clones an older version into a brand-new one and
// immediately publishes it. The old version row is never resurrected.
func (s *VersionService) RevertToVersion(ctx context.Context, versionID uuid.UUID, actor Actor) (*model.ContentVersion, error) {
	target, err := s.loadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAccess(ctx, target.TenantID, actor); err != nil {
		return nil, err
	}

	input := PayloadInput{
		Title:          &target.Title,
		Slug:           &target.Slug,
		Body:           &target.Body,
		Excerpt:        &target.Excerpt,
		StructuredData: model.DecodeDocument(target.StructuredData),
		Metadata:       model.DecodeDocument(target.Metadata),
		ChangeSummary:  fmt.Sprintf("Reverted to version %d", target.VersionNumber),
		VersionType:    model.VersionTypeDraft,
	}

	created, err := s.CreateVersion(ctx, target.Scope(), input, actor)
	if err != nil {
		return nil, err
	}

	published, err := s.PublishVersion(ctx, uuid.MustParse(created.ID), actor)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		TenantID:  target.TenantID,
		VersionID: published.ID,
		ActorID:   actor.ID,
		Action:    model.AuditActionRevert,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
		Details:   map[string]any{"reverted_to": target.VersionNumber, "new_version": published.VersionNumber},
	})

	return published, nil
}

// DeleteVersion hard-deletes a version. Published versions are
// immutable and can only be superseded, never deleted.
func (s *VersionService) DeleteVersion(ctx context.Context, versionID uuid.UUID, actor Actor) error {
	version, err := s.loadVersion(ctx, versionID)
	if err != nil {
		return err
	}
	if err := s.checkAccess(ctx, version.TenantID, actor); err != nil {
		return err
	}
	err = s.withRetry(ctx, sql.LevelSerializable, func(tx store.Store) error {
		version, err = tx.GetVersion(ctx, versionID)
		if err != nil {
			if store.IsNotFound(err) {
				return NewError(CodeNotFound, "version %s not found", versionID)
			}
			return err
		}
		if version.IsCurrentPublished || version.VersionType == model.VersionTypePublished {
			return NewError(CodeInvalidState, "published versions cannot be deleted")
		}

		return tx.DeleteVersion(ctx, versionID)
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, version.Scope(), nil)

	s.audit.Record(ctx, audit.Entry{
		TenantID:  version.TenantID,
		VersionID: version.ID,
		ActorID:   actor.ID,
		Action:    model.AuditActionDelete,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
		Details:   map[string]any{"version_number": version.VersionNumber},
	})

	s.emit(ctx, queue.EventVersionDeleted, version, actor)

	return nil
}

// VersionComparison is the outcome of diffing two stored versions.
type VersionComparison struct {
	VersionA      int                `json:"version_a"`
	VersionB      int                `json:"version_b"`
	Changes       []diff.FieldChange `json:"changes"`
	FieldsChanged int                `json:"fields_changed"`
}

// CompareVersions diffs two stored versions field by field.
func (s *VersionService) CompareVersions(ctx context.Context, idA, idB uuid.UUID) (*VersionComparison, error) {
	first, err := s.store.GetVersion(ctx, idA)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, NewError(CodeNotFound, "first version %s not found", idA)
		}
		return nil, err
	}

	second, err := s.store.GetVersion(ctx, idB)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, NewError(CodeNotFound, "second version %s not found", idB)
		}
		return nil, err
	}

	changes := diff.Diff(first, diff.FromVersion(second))

	return &VersionComparison{
		VersionA:      first.VersionNumber,
		VersionB:      second.VersionNumber,
		Changes:       changes,
		FieldsChanged: len(changes),
	}, nil
}

// GetVersion retrieves a single version by ID.
func (s *VersionService) GetVersion(ctx context.Context, versionID uuid.UUID) (*model.ContentVersion, error) {
	return s.loadVersion(ctx, versionID)
}

// GetLatestVersion retrieves the newest version in scope, consulting
// the advisory cache first.
func (s *VersionService) GetLatestVersion(ctx context.Context, scope model.Scope) (*model.ContentVersion, error) {
	if cached, err := s.cache.GetLatest(ctx, scope); err == nil && cached != nil {
		return cached, nil
	}

	version, err := s.store.GetLatestVersion(ctx, scope)
	if err != nil {
		return nil, err
	}

	if version != nil {
		if err := s.cache.SetLatest(ctx, scope, version); err != nil {
			logrus.Errorf("failed to cache latest version for %s/%s: %v", scope.TenantID, scope.ContentID, err)
		}
	}

	return version, nil
}

// GetLatestDraft returns the version holding the current-draft
// pointer, or nil when no draft exists. An empty scope is not an
// error.
func (s *VersionService) GetLatestDraft(ctx context.Context, scope model.Scope) (*model.ContentVersion, error) {
	return s.store.GetCurrentDraft(ctx, scope)
}

// GetPublishedVersion returns the version holding the
// current-published pointer, or nil when nothing is published.
func (s *VersionService) GetPublishedVersion(ctx context.Context, scope model.Scope) (*model.ContentVersion, error) {
	return s.store.GetCurrentPublished(ctx, scope)
}

// ListVersions returns the scope's version history, newest first.
func (s *VersionService) ListVersions(ctx context.Context, scope model.Scope) ([]*model.ContentVersion, error) {
	return s.store.ListVersions(ctx, scope)
}

func (s *VersionService) loadVersion(ctx context.Context, versionID uuid.UUID) (*model.ContentVersion, error) {
	version, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, NewError(CodeNotFound, "version %s not found", versionID)
		}
		return nil, err
	}
	return version, nil
}

func (s *VersionService) checkAccess(ctx context.Context, tenantID string, actor Actor) error {
	ok, err := s.access.HasAccess(ctx, tenantID, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return NewError(CodeAccessDenied, "actor does not have access to this tenant")
	}
	return nil
}

// sanitizeInput cleans the free-text fields. Title, slug and summary
// carry no formatting and lose all markup; body and excerpt keep the
// allowed formatting tags.
func (s *VersionService) sanitizeInput(input PayloadInput) PayloadInput {
	clean := func(text *string, f func(string) string) *string {
		if text == nil {
			return nil
		}
		cleaned := f(*text)
		return &cleaned
	}

	input.Title = clean(input.Title, s.sanitizer.CleanPlain)
	input.Slug = clean(input.Slug, s.sanitizer.CleanPlain)
	input.Body = clean(input.Body, s.sanitizer.Clean)
	input.Excerpt = clean(input.Excerpt, s.sanitizer.Clean)
	input.ChangeSummary = s.sanitizer.CleanPlain(input.ChangeSummary)

	return input
}

// withRetry reruns the transaction a bounded number of times when the
// store reports a serialization conflict or a unique-index collision.
// An empty scope gives the allocator's locking read nothing to lock,
// so a concurrent first create surfaces as a unique violation on the
// scope+number index rather than a serialization failure.
func (s *VersionService) withRetry(ctx context.Context, isolation sql.IsolationLevel, f func(tx store.Store) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.store.Transaction(ctx, isolation, f)
		if err == nil || !(store.IsSerializationFailure(err) || store.IsUniqueViolation(err)) {
			return err
		}

		metrics.ConflictRetries.Inc()
		logrus.Warnf("transaction conflict, retrying (%d/%d): %v", attempt+1, maxConflictRetries, err)
	}

	return NewError(CodeConflictRetryable, "the operation conflicted with a concurrent change, please retry")
}

// afterMutation invalidates the scope's cache entries and, when a new
// latest version is known, refreshes them.
func (s *VersionService) afterMutation(ctx context.Context, scope model.Scope, latest *model.ContentVersion) {
	if err := s.cache.Invalidate(ctx, scope); err != nil {
		logrus.Errorf("cache invalidation failed for %s/%s: %v", scope.TenantID, scope.ContentID, err)
	}

	if latest != nil {
		if err := s.cache.SetLatest(ctx, scope, latest); err != nil {
			logrus.Errorf("cache refresh failed for %s/%s: %v", scope.TenantID, scope.ContentID, err)
		}
	}
}

func (s *VersionService) emit(ctx context.Context, name string, version *model.ContentVersion, actor Actor) {
	err := s.queue.Publish(ctx, &queue.Event{
		Name:          name,
		Scope:         version.Scope(),
		VersionID:     version.ID,
		VersionNumber: version.VersionNumber,
		ActorID:       actor.ID,
		OccurredAt:    time.Now(),
	})
	if err != nil {
		logrus.Errorf("failed to publish %s event for version %s: %v", name, version.ID, err)
	}
}

// buildSnapshot merges the prior version's payload with the provided
// fields into a full new snapshot row.
func buildSnapshot(scope model.Scope, prior *model.ContentVersion, input PayloadInput, actor Actor) *model.ContentVersion {
	version := &model.ContentVersion{
		ID:          uuid.New().String(),
		TenantID:    scope.TenantID,
		ContentType: scope.ContentType,
		ContentID:   scope.ContentID,
		VersionType: input.VersionType,

		ChangeSummary: input.ChangeSummary,
		ContentHash:   input.ContentHash,
		CreatedBy:     actor.ID,
		CreatedAt:     time.Now(),
	}

	if version.VersionType == "" {
		version.VersionType = model.VersionTypeDraft
	}

	if prior != nil {
		version.Title = prior.Title
		version.Slug = prior.Slug
		version.Body = prior.Body
		version.Excerpt = prior.Excerpt
		version.StructuredData = prior.StructuredData
		version.Metadata = prior.Metadata
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&version.Title, input.Title)
	apply(&version.Slug, input.Slug)
	apply(&version.Body, input.Body)
	apply(&version.Excerpt, input.Excerpt)

	if input.StructuredData != nil {
		version.StructuredData = encodeDocument(input.StructuredData)
	}
	if input.Metadata != nil {
		version.Metadata = encodeDocument(input.Metadata)
	}

	return version
}

func encodeDocument(doc map[string]any) string {
	data, err := json.Marshal(doc)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func auditActionForCreate(versionType model.VersionType) model.AuditAction {
	if versionType == model.VersionTypeAutoSave {
		return model.AuditActionAutoSave
	}
	return model.AuditActionCreate
}
