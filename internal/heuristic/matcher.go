// Package heuristic decides whether text looks reward-related.
package heuristic

import "regexp"

// DefaultPatterns is the reward keyword set used when the config does
// not override it.
var DefaultPatterns = []string{
	`free spins`,
	`free coins`,
	`coin master`,
	`claim`,
	`reward`,
	`spin`,
}

// Matcher evaluates a list of compiled case-insensitive patterns
// against arbitrary text blobs.
type Matcher struct {
	patterns []*regexp.Regexp
}

// NewMatcher compiles the given patterns. Invalid patterns are
// rejected so misconfiguration surfaces at startup.
func NewMatcher(patterns []string) (*Matcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}

	return &Matcher{patterns: compiled}, nil
}

// Match reports whether blob matches at least one pattern.
func (m *Matcher) Match(blob string) bool {
	for _, re := range m.patterns {
		if re.MatchString(blob) {
			return true
		}
	}
	return false
}
