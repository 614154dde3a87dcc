package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/revision/internal/audit"
	"github.com/emrgen/revision/internal/cache"
	"github.com/emrgen/revision/internal/model"
	"github.com/emrgen/revision/internal/projection"
	"github.com/emrgen/revision/internal/queue"
	"github.com/emrgen/revision/internal/sanitize"
	"github.com/emrgen/revision/internal/store"
	"github.com/emrgen/revision/internal/tester"
)

func strPtr(s string) *string {
	return &s
}

func newTestEngine() (*VersionService, *AutosaveService, store.Store) {
	tester.RemoveDBFile()
	tester.Setup()

	db := tester.TestDB()
	gormStore := store.NewGormStore(db)

	versions := NewVersionService(
		gormStore,
		cache.NewNop(),
		queue.NewMemoryQueue(64),
		audit.NewLogger(gormStore),
		sanitize.NewNop(),
		AllowAll{},
		projection.NewGormProjection(db),
		NopQuotaReporter{},
	)

	return versions, NewAutosaveService(versions, gormStore, 0, 0), gormStore
}

func newScope() model.Scope {
	return model.Scope{
		TenantID:    uuid.New().String(),
		ContentType: model.ContentTypePost,
		ContentID:   uuid.New().String(),
	}
}

var actor = Actor{ID: "editor-1", IPAddress: "127.0.0.1", UserAgent: "test"}

type denyAll struct{}

func (denyAll) HasAccess(ctx context.Context, tenantID, actorID string) (bool, error) {
	return false, nil
}

func TestVersionService_CreateFirstVersion(t *testing.T) {
	versions, _, _ := newTestEngine()
	scope := newScope()

	created, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{
		Title: strPtr("Hello"),
		Body:  strPtr("first body"),
	}, actor)
	require.NoError(t, err)

	assert.Equal(t, 1, created.VersionNumber)
	assert.Equal(t, []string{"initial_version"}, created.ChangedFieldList())
	assert.Equal(t, model.VersionTypeDraft, created.VersionType)
	assert.True(t, created.IsCurrentDraft)
	assert.False(t, created.IsCurrentPublished)
	assert.NotEmpty(t, created.ContentHash)
}

func TestVersionService_CreateSecondVersion_TitleOnly(t *testing.T) {
	versions, _, _ := newTestEngine()
	scope := newScope()

	_, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{
		Title: strPtr("Hello"),
		Body:  strPtr("body"),
	}, actor)
	require.NoError(t, err)

	second, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{
		Title: strPtr("Hello again"),
	}, actor)
	require.NoError(t, err)

	assert.Equal(t, 2, second.VersionNumber)
	assert.Equal(t, []string{"title"}, second.ChangedFieldList())
	// unchanged fields carry over into the new snapshot
	assert.Equal(t, "body", second.Body)
}

func TestVersionService_CreateValidation(t *testing.T) {
	versions, _, _ := newTestEngine()
	scope := newScope()

	tests := []struct {
		name  string
		input PayloadInput
		code  Code
	}{
		{
			name:  "empty title",
			input: PayloadInput{Title: strPtr("")},
			code:  CodeValidationFailed,
		},
		{
			name:  "missing title on first version",
			input: PayloadInput{Body: strPtr("body without title")},
			code:  CodeValidationFailed,
		},
		{
			name:  "oversized title",
			input: PayloadInput{Title: strPtr(string(make([]byte, maxTitleLength+1)))},
			code:  CodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := versions.CreateVersion(context.TODO(), scope, tt.input, actor)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestVersionService_CreateAccessDenied(t *testing.T) {
	versions, _, _ := newTestEngine()
	versions.access = denyAll{}

	_, err := versions.CreateVersion(context.TODO(), newScope(), PayloadInput{Title: strPtr("Hello")}, actor)
	require.Error(t, err)
	assert.Equal(t, CodeAccessDenied, CodeOf(err))
}

func TestVersionService_VersionLimit(t *testing.T) {
	versions, _, gormStore := newTestEngine()
	scope := newScope()

	// fill the scope to the ceiling directly
	for i := 1; i <= MaxVersionsPerContent; i++ {
		err := gormStore.CreateVersion(context.TODO(), &model.ContentVersion{
			ID:            uuid.New().String(),
			TenantID:      scope.TenantID,
			ContentType:   scope.ContentType,
			ContentID:     scope.ContentID,
			VersionNumber: i,
			Title:         "filler",
			VersionType:   model.VersionTypeDraft,
			CreatedBy:     actor.ID,
		})
		require.NoError(t, err)
	}

	_, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: strPtr("one too many")}, actor)
	require.Error(t, err)
	assert.Equal(t, CodeLimitExceeded, CodeOf(err))
}

func TestVersionService_PublishMovesCurrentPointer(t *testing.T) {
	versions, _, gormStore := newTestEngine()
	scope := newScope()

	first, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: strPtr("v1")}, actor)
	require.NoError(t, err)

	published, err := versions.PublishVersion(context.TODO(), uuid.MustParse(first.ID), actor)
	require.NoError(t, err)
	assert.True(t, published.IsCurrentPublished)
	assert.False(t, published.IsCurrentDraft)
	assert.Equal(t, model.VersionTypePublished, published.VersionType)
	require.NotNil(t, published.PublishedBy)
	assert.Equal(t, actor.ID, *published.PublishedBy)

	second, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: strPtr("v2")}, actor)
	require.NoError(t, err)

	_, err = versions.PublishVersion(context.TODO(), uuid.MustParse(second.ID), actor)
	require.NoError(t, err)

	// the old published version lost the pointer
	old, err := gormStore.GetVersion(context.TODO(), uuid.MustParse(first.ID))
	require.NoError(t, err)
	assert.False(t, old.IsCurrentPublished)

	current, err := versions.GetPublishedVersion(context.TODO(), scope)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)
}

func TestVersionService_PublishSyncsLiveTable(t *testing.T) {
	versions, _, _ := newTestEngine()
	scope := newScope()

	created, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{
		Title: strPtr("Live title"),
		Slug:  strPtr("live-title"),
		Body:  strPtr("live body"),
	}, actor)
	require.NoError(t, err)

	_, err = versions.PublishVersion(context.TODO(), uuid.MustParse(created.ID), actor)
	require.NoError(t, err)

	var post model.Post
	err = tester.TestDB().Where("id = ?", scope.ContentID).First(&post).Error
	require.NoError(t, err)
	assert.Equal(t, "Live title", post.Title)
	assert.Equal(t, created.ID, post.VersionID)
}

func TestVersionService_PublishNotFound(t *testing.T) {
	versions, _, _ := newTestEngine()

	_, err := versions.PublishVersion(context.TODO(), uuid.New(), actor)
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestVersionService_PublishAutoSaveRejected(t *testing.T) {
	versions, _, _ := newTestEngine()
	scope := newScope()

	snapshot, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{
		Title:       strPtr("draft"),
		VersionType: model.VersionTypeAutoSave,
	}, actor)
	require.NoError(t, err)

	_, err = versions.PublishVersion(context.TODO(), uuid.MustParse(snapshot.ID), actor)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidState, CodeOf(err))
}

func TestVersionService_Revert(t *testing.T) {
	versions, _, gormStore := newTestEngine()
	scope := newScope()

	first, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: strPtr("v1"), Body: strPtr("original body")}, actor)
	require.NoError(t, err)

	_, err = versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: strPtr("v2")}, actor)
	require.NoError(t, err)

	third, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: strPtr("v3"), Body: strPtr("newer body")}, actor)
	require.NoError(t, err)

	_, err = versions.PublishVersion(context.TODO(), uuid.MustParse(third.ID), actor)
	require.NoError(t, err)

	reverted, err := versions.RevertToVersion(context.TODO(), uuid.MustParse(first.ID), actor)
	require.NoError(t, err)

	// revert creates a brand-new version and publishes it
	assert.Equal(t, 4, reverted.VersionNumber)
	assert.Equal(t, "Reverted to version 1", reverted.ChangeSummary)
	assert.True(t, reverted.IsCurrentPublished)
	assert.Equal(t, "v1", reverted.Title)
	assert.Equal(t, "original body", reverted.Body)
	assert.NotEqual(t, first.ID, reverted.ID)

	previous, err := gormStore.GetVersion(context.TODO(), uuid.MustParse(third.ID))
	require.NoError(t, err)
	assert.False(t, previous.IsCurrentPublished)
}

func TestVersionService_DeletePublishedRejected(t *testing.T) {
	versions, _, gormStore := newTestEngine()
	scope := newScope()

	created, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: strPtr("v1")}, actor)
	require.NoError(t, err)

	_, err = versions.PublishVersion(context.TODO(), uuid.MustParse(created.ID), actor)
	require.NoError(t, err)

	before, err := gormStore.CountVersions(context.TODO(), scope)
	require.NoError(t, err)

	err = versions.DeleteVersion(context.TODO(), uuid.MustParse(created.ID), actor)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidState, CodeOf(err))

	after, err := gormStore.CountVersions(context.TODO(), scope)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// the row itself is untouched
	row, err := gormStore.GetVersion(context.TODO(), uuid.MustParse(created.ID))
	require.NoError(t, err)
	assert.True(t, row.IsCurrentPublished)
}

func TestVersionService_DeleteDraft(t *testing.T) {
	versions, _, gormStore := newTestEngine()
	scope := newScope()

	created, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: strPtr("v1")}, actor)
	require.NoError(t, err)

	err = versions.DeleteVersion(context.TODO(), uuid.MustParse(created.ID), actor)
	require.NoError(t, err)

	_, err = gormStore.GetVersion(context.TODO(), uuid.MustParse(created.ID))
	assert.True(t, store.IsNotFound(err))
}

func TestVersionService_DeleteNotFound(t *testing.T) {
	versions, _, _ := newTestEngine()

	err := versions.DeleteVersion(context.TODO(), uuid.New(), actor)
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestVersionService_CompareVersions(t *testing.T) {
	versions, _, _ := newTestEngine()
	scope := newScope()

	first, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: strPtr("v1"), Body: strPtr("body one")}, actor)
	require.NoError(t, err)

	second, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: strPtr("v2"), Body: strPtr("body two")}, actor)
	require.NoError(t, err)

	comparison, err := versions.CompareVersions(context.TODO(), uuid.MustParse(first.ID), uuid.MustParse(second.ID))
	require.NoError(t, err)

	assert.Equal(t, 1, comparison.VersionA)
	assert.Equal(t, 2, comparison.VersionB)
	assert.Equal(t, 2, comparison.FieldsChanged)

	_, err = versions.CompareVersions(context.TODO(), uuid.New(), uuid.MustParse(second.ID))
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.Contains(t, err.Error(), "first version")

	_, err = versions.CompareVersions(context.TODO(), uuid.MustParse(first.ID), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second version")
}

func TestVersionService_GetLatestDraftEmptyScope(t *testing.T) {
	versions, _, _ := newTestEngine()

	draft, err := versions.GetLatestDraft(context.TODO(), newScope())
	require.NoError(t, err)
	assert.Nil(t, draft)

	published, err := versions.GetPublishedVersion(context.TODO(), newScope())
	require.NoError(t, err)
	assert.Nil(t, published)
}

func TestVersionService_NewDraftTakesPointer(t *testing.T) {
	versions, _, gormStore := newTestEngine()
	scope := newScope()

	first, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: strPtr("v1")}, actor)
	require.NoError(t, err)

	second, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: strPtr("v2")}, actor)
	require.NoError(t, err)
	assert.True(t, second.IsCurrentDraft)

	old, err := gormStore.GetVersion(context.TODO(), uuid.MustParse(first.ID))
	require.NoError(t, err)
	assert.False(t, old.IsCurrentDraft)
}

func TestVersionService_ConcurrentCreatesUniqueNumbers(t *testing.T) {
	versions, _, _ := newTestEngine()
	scope := newScope()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := fmt.Sprintf("Draft %d", i)
			_, errs[i] = versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: &title}, actor)
		}(i)
	}
	wg.Wait()

	// a loser may surface a retryable conflict, but never a duplicate
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	require.GreaterOrEqual(t, succeeded, 1)

	rows, err := versions.ListVersions(context.TODO(), scope)
	require.NoError(t, err)
	require.Len(t, rows, succeeded)

	seen := make(map[int]bool)
	for _, row := range rows {
		assert.False(t, seen[row.VersionNumber], "version number %d committed twice", row.VersionNumber)
		seen[row.VersionNumber] = true
	}
}

func TestVersionService_ConcurrentPublishesSingleCurrent(t *testing.T) {
	versions, _, _ := newTestEngine()
	scope := newScope()

	first, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: strPtr("One")}, actor)
	require.NoError(t, err)
	second, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{Title: strPtr("Two")}, actor)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = versions.PublishVersion(context.TODO(), uuid.MustParse(id), actor)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	require.GreaterOrEqual(t, succeeded, 1)

	rows, err := versions.ListVersions(context.TODO(), scope)
	require.NoError(t, err)

	published := 0
	for _, row := range rows {
		if row.IsCurrentPublished {
			published++
		}
	}
	assert.Equal(t, 1, published)
}

func TestVersionService_SanitizesInput(t *testing.T) {
	versions, _, _ := newTestEngine()
	versions.sanitizer = sanitize.NewHTMLSanitizer()
	scope := newScope()

	created, err := versions.CreateVersion(context.TODO(), scope, PayloadInput{
		Title: strPtr("<b>Hello</b>"),
		Body:  strPtr(`hello <script>alert(1)</script> world`),
	}, actor)
	require.NoError(t, err)

	// titles lose all markup, bodies lose the dangerous parts
	assert.Equal(t, "Hello", created.Title)
	assert.NotContains(t, created.Body, "<script>")
	assert.Contains(t, created.Body, "hello")
}

func TestAsResult(t *testing.T) {
	okResult := AsResult("data", nil)
	assert.True(t, okResult.Success)
	assert.Equal(t, "data", okResult.Data)

	failed := AsResult[string]("", NewError(CodeNotFound, "version missing"))
	assert.False(t, failed.Success)
	assert.Equal(t, CodeNotFound, failed.ErrorCode)
	assert.Equal(t, "version missing", failed.Error)

	infra := AsResult[string]("", context.DeadlineExceeded)
	assert.False(t, infra.Success)
	assert.Equal(t, CodeStoreUnavailable, infra.ErrorCode)
	assert.NotContains(t, infra.Error, "deadline")
}
