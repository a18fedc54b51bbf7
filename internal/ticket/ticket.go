// Package ticket finds ticket identifiers such as CHE-42 in branch names and
// commit messages.
package ticket

import (
	"fmt"
	"regexp"
)

var prefixPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*$`)

// Pattern matches the identifiers of one ticket project.
type Pattern struct {
	prefix string
	find   *regexp.Regexp
	full   *regexp.Regexp
}

// New returns the Pattern for the project prefix, e.g. "CHE".
func New(prefix string) (*Pattern, error) {
	if !prefixPattern.MatchString(prefix) {
		return nil, fmt.Errorf("invalid ticket prefix %q: expected upper-case letters and digits", prefix)
	}
	expr := regexp.QuoteMeta(prefix) + `-[0-9]+`
	return &Pattern{
		prefix: prefix,
		find:   regexp.MustCompile(expr),
		full:   regexp.MustCompile(`^` + expr + `$`),
	}, nil
}

// Prefix returns the project prefix.
func (p *Pattern) Prefix() string {
	return p.prefix
}

// Extract returns the leftmost ticket id in text, or nil.
func (p *Pattern) Extract(text string) *string {
	id := p.find.FindString(text)
	if id == "" {
		return nil
	}
	return &id
}

// Validate reports whether id is exactly one ticket id and nothing else.
// Ids must pass it before they go into an outbound query.
func (p *Pattern) Validate(id string) bool {
	return p.full.MatchString(id)
}
