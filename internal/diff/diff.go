package diff

import (
	"github.com/emrgen/revision/internal/model"
)

// ChangeType classifies a single field change between two snapshots.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// InitialVersionField is the sentinel changed-fields entry for the
// first version in a scope, where there is no prior snapshot to diff.
const InitialVersionField = "initial_version"

// FieldChange records one field's transition between two versions.
type FieldChange struct {
	Field      string     `json:"field"`
	ChangeType ChangeType `json:"change_type"`
	OldValue   any        `json:"old_value,omitempty"`
	NewValue   any        `json:"new_value,omitempty"`
}

// Payload is the comparable slice of a version. Pointer fields
// distinguish "not provided" from "cleared": a nil field is ignored,
// an empty string clears the value.
type Payload struct {
	Title          *string
	Slug           *string
	Body           *string
	Excerpt        *string
	StructuredData map[string]any
	Metadata       map[string]any
}

// scalarFields is the fixed, ordered list of top-level comparable fields.
var scalarFields = []string{"title", "slug", "body", "excerpt"}

// structuredKeys and metadataKeys are the whitelists of document keys
// the engine diffs; unrecognized keys pass through opaquely.
var structuredKeys = []string{"layout", "template", "blocks", "featured_image"}

var metadataKeys = []string{"seo_title", "seo_description", "canonical_url", "og_image"}

// FromVersion builds a comparable payload out of a stored version.
func FromVersion(v *model.ContentVersion) Payload {
	return Payload{
		Title:          &v.Title,
		Slug:           &v.Slug,
		Body:           &v.Body,
		Excerpt:        &v.Excerpt,
		StructuredData: model.DecodeDocument(v.StructuredData),
		Metadata:       model.DecodeDocument(v.Metadata),
	}
}

func (p Payload) scalar(name string) *string {
	switch name {
	case "title":
		return p.Title
	case "slug":
		return p.Slug
	case "body":
		return p.Body
	case "excerpt":
		return p.Excerpt
	}
	return nil
}

// Diff compares a prior version snapshot against a new payload and
// returns the ordered list of field changes. A nil prior yields the
// single initial-version sentinel entry. The function is pure; it
// never touches a store.
func Diff(prior *model.ContentVersion, next Payload) []FieldChange {
	if prior == nil {
		return []FieldChange{{Field: InitialVersionField, ChangeType: ChangeAdded}}
	}

	old := FromVersion(prior)
	changes := make([]FieldChange, 0)

	for _, name := range scalarFields {
		newVal := next.scalar(name)
		if newVal == nil {
			// not provided, not cleared
			continue
		}
		oldVal := old.scalar(name)
		if change, ok := compareScalar(name, *oldVal, *newVal); ok {
			changes = append(changes, change)
		}
	}

	changes = append(changes, diffDocument("structured_data", old.StructuredData, next.StructuredData, structuredKeys)...)
	changes = append(changes, diffDocument("metadata", old.Metadata, next.Metadata, metadataKeys)...)

	return changes
}

func compareScalar(name, oldVal, newVal string) (FieldChange, bool) {
	if oldVal == newVal {
		return FieldChange{}, false
	}

	change := FieldChange{Field: name, OldValue: oldVal, NewValue: newVal}
	switch {
	case oldVal == "":
		change.ChangeType = ChangeAdded
		change.OldValue = nil
	case newVal == "":
		change.ChangeType = ChangeDeleted
		change.NewValue = nil
	default:
		change.ChangeType = ChangeModified
	}

	return change, true
}

func diffDocument(prefix string, old, next map[string]any, whitelist []string) []FieldChange {
	if next == nil {
		// document not provided at all
		return nil
	}

	changes := make([]FieldChange, 0)
	for _, key := range whitelist {
		oldVal, oldOk := old[key]
		newVal, newOk := next[key]

		field := prefix + "." + key
		switch {
		case !oldOk && newOk:
			changes = append(changes, FieldChange{Field: field, ChangeType: ChangeAdded, NewValue: newVal})
		case oldOk && !newOk:
			changes = append(changes, FieldChange{Field: field, ChangeType: ChangeDeleted, OldValue: oldVal})
		case oldOk && newOk && !equalValue(oldVal, newVal):
			changes = append(changes, FieldChange{Field: field, ChangeType: ChangeModified, OldValue: oldVal, NewValue: newVal})
		}
	}

	return changes
}

func equalValue(a, b any) bool {
	// documents come out of json.Unmarshal, so a re-encode gives a
	// stable comparison for nested values
	return encodeValue(a) == encodeValue(b)
}

// FieldNames projects a change list to its ordered field names.
func FieldNames(changes []FieldChange) []string {
	names := make([]string, 0, len(changes))
	for _, c := range changes {
		names = append(names, c.Field)
	}
	return names
}
