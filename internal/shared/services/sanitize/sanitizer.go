// Package sanitize strips markup from operator supplied free text such as
// refund reasons and manual review notes before it is stored or mailed.
package sanitize

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxTextLength bounds stored free text in bytes.
const MaxTextLength = 1000

type Sanitizer interface {
	Text(input string) string
}

type strictSanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer returns a sanitizer that removes every HTML element.
func NewSanitizer() Sanitizer {
	return &strictSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *strictSanitizer) Text(input string) string {
	out := strings.TrimSpace(s.policy.Sanitize(input))
	if len(out) <= MaxTextLength {
		return out
	}
	out = out[:MaxTextLength]
	for !utf8.ValidString(out) {
		out = out[:len(out)-1]
	}
	return out
}
