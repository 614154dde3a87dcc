package sanitize

import (
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips unsafe markup from free-text fields before storage.
// Clean is for fields that may carry formatting, CleanPlain for fields
// that must not carry any markup at all.
type Sanitizer interface {
	Clean(text string) string
	CleanPlain(text string) string
}

var _ Sanitizer = (*HTMLSanitizer)(nil)

// HTMLSanitizer keeps common formatting tags in body text and strips
// everything else, scripts included.
type HTMLSanitizer struct {
	body  *bluemonday.Policy
	plain *bluemonday.Policy
}

func NewHTMLSanitizer() *HTMLSanitizer {
	return &HTMLSanitizer{
		body:  bluemonday.UGCPolicy(),
		plain: bluemonday.StrictPolicy(),
	}
}

func (s *HTMLSanitizer) Clean(text string) string {
	return s.body.Sanitize(text)
}

// CleanPlain strips all markup, for fields that carry no formatting
// such as titles and slugs.
func (s *HTMLSanitizer) CleanPlain(text string) string {
	return s.plain.Sanitize(text)
}

var _ Sanitizer = (*Nop)(nil)

// Nop passes text through unchanged.
type Nop struct{}

func NewNop() *Nop {
	return &Nop{}
}

func (n *Nop) Clean(text string) string {
	return text
}

func (n *Nop) CleanPlain(text string) string {
	return text
}
