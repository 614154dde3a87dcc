package audit

import (
	"regexp"

	"github.com/emrgen/revision/internal/model"
)

// PII-shaped patterns. The scan is a cheap heuristic over the raw
// text, not a validator; false positives only upgrade the tag.
var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	taxIDPattern = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b|\b\d{2}-\d{7}\b`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`)
)

// Classify scans the concatenated text payload and returns restricted
// when any PII-shaped pattern matches, internal otherwise.
func Classify(texts ...string) model.DataClassification {
	for _, text := range texts {
		if text == "" {
			continue
		}
		if emailPattern.MatchString(text) ||
			taxIDPattern.MatchString(text) ||
			cardPattern.MatchString(text) {
			return model.ClassificationRestricted
		}
	}

	return model.ClassificationInternal
}
