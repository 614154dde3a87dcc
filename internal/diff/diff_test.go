package diff

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emrgen/revision/internal/model"
)

func strPtr(s string) *string {
	return &s
}

func version(title, slug, body, excerpt, structured, metadata string) *model.ContentVersion {
	return &model.ContentVersion{
		Title:          title,
		Slug:           slug,
		Body:           body,
		Excerpt:        excerpt,
		StructuredData: structured,
		Metadata:       metadata,
	}
}

func TestDiff_InitialVersion(t *testing.T) {
	changes := Diff(nil, Payload{Title: strPtr("Hello")})

	assert.Len(t, changes, 1)
	assert.Equal(t, InitialVersionField, changes[0].Field)
	assert.Equal(t, ChangeAdded, changes[0].ChangeType)
}

func TestDiff_TitleOnly(t *testing.T) {
	prior := version("Hello", "hello", "body", "", "", "")

	changes := Diff(prior, Payload{Title: strPtr("Hello again")})

	assert.Len(t, changes, 1)
	assert.Equal(t, "title", changes[0].Field)
	assert.Equal(t, ChangeModified, changes[0].ChangeType)
	assert.Equal(t, "Hello", changes[0].OldValue)
	assert.Equal(t, "Hello again", changes[0].NewValue)
}

func TestDiff_NotProvidedIsNotCleared(t *testing.T) {
	prior := version("Hello", "hello", "body", "short", "", "")

	// nil body means "not provided", empty excerpt means "cleared"
	changes := Diff(prior, Payload{Excerpt: strPtr("")})

	assert.Len(t, changes, 1)
	assert.Equal(t, "excerpt", changes[0].Field)
	assert.Equal(t, ChangeDeleted, changes[0].ChangeType)
}

func TestDiff_AddedField(t *testing.T) {
	prior := version("Hello", "", "body", "", "", "")

	changes := Diff(prior, Payload{Slug: strPtr("hello-world")})

	assert.Len(t, changes, 1)
	assert.Equal(t, "slug", changes[0].Field)
	assert.Equal(t, ChangeAdded, changes[0].ChangeType)
	assert.Nil(t, changes[0].OldValue)
}

func TestDiff_StructuredDataWhitelist(t *testing.T) {
	prior := version("Hello", "", "", "", `{"layout":"wide","custom_key":"x"}`, "")

	changes := Diff(prior, Payload{
		StructuredData: map[string]any{"layout": "narrow", "custom_key": "y", "template": "landing"},
	})

	names := FieldNames(changes)
	sort.Strings(names)
	// custom_key is outside the whitelist and passes through opaquely
	assert.Equal(t, []string{"structured_data.layout", "structured_data.template"}, names)
}

func TestDiff_MetadataKeys(t *testing.T) {
	prior := version("Hello", "", "", "", "", `{"seo_title":"old"}`)

	changes := Diff(prior, Payload{Metadata: map[string]any{"seo_description": "desc"}})

	names := FieldNames(changes)
	sort.Strings(names)
	assert.Equal(t, []string{"metadata.seo_description", "metadata.seo_title"}, names)
}

func TestDiff_NoChanges(t *testing.T) {
	prior := version("Hello", "hello", "body", "", "", "")

	changes := Diff(prior, Payload{Title: strPtr("Hello"), Body: strPtr("body")})

	assert.Empty(t, changes)
}

// compareVersions(A, B) and compareVersions(B, A) must report the same
// changed field names with old/new swapped.
func TestDiff_SymmetryFloor(t *testing.T) {
	a := version("One", "one", "body a", "", `{"layout":"wide"}`, "")
	b := version("Two", "one", "body b", "teaser", "", "")

	forward := FieldNames(Diff(a, FromVersion(b)))
	backward := FieldNames(Diff(b, FromVersion(a)))

	sort.Strings(forward)
	sort.Strings(backward)
	assert.Equal(t, forward, backward)
}

func TestContentHash_Stable(t *testing.T) {
	p1 := Payload{
		Title:          strPtr("Hello"),
		Body:           strPtr("body"),
		StructuredData: map[string]any{"layout": "wide", "template": "post"},
	}
	p2 := Payload{
		Title:          strPtr("Hello"),
		Body:           strPtr("body"),
		StructuredData: map[string]any{"template": "post", "layout": "wide"},
	}

	assert.Equal(t, ContentHash(p1), ContentHash(p2))
}

func TestContentHash_ChangesWithPayload(t *testing.T) {
	p1 := Payload{Title: strPtr("Hello")}
	p2 := Payload{Title: strPtr("Hello again")}

	assert.NotEqual(t, ContentHash(p1), ContentHash(p2))
}
