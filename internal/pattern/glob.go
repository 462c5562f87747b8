// Package pattern matches device names against glob patterns.
//
// Supported wildcards are `*` (any sequence, including empty), `?` (exactly
// one character) and `[...]` character classes, following path.Match. Device
// names never contain '/', so the separator rule of path.Match does not apply
// in practice.
package pattern

import (
	"fmt"
	"path"
	"strings"
)

// ErrBadPattern is wrapped by Compile for malformed patterns.
var ErrBadPattern = path.ErrBadPattern

// Matcher is a compiled, validated glob pattern.
type Matcher struct {
	pattern       string
	caseSensitive bool
}

// Compile validates pattern and returns a Matcher. An empty pattern is
// treated as "*".
func Compile(pattern string, caseSensitive bool) (*Matcher, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !caseSensitive {
		pattern = strings.ToLower(pattern)
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return &Matcher{pattern: pattern, caseSensitive: caseSensitive}, nil
}

// MustCompile is like Compile but panics on an invalid pattern.
func MustCompile(pattern string, caseSensitive bool) *Matcher {
	m, err := Compile(pattern, caseSensitive)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether name matches the pattern.
func (m *Matcher) Match(name string) bool {
	if !m.caseSensitive {
		name = strings.ToLower(name)
	}
	ok, err := path.Match(m.pattern, name)
	return err == nil && ok
}

// String returns the pattern as compiled.
func (m *Matcher) String() string {
	return m.pattern
}

// CaseSensitive reports whether matching distinguishes letter case.
func (m *Matcher) CaseSensitive() bool {
	return m.caseSensitive
}

// Match is a one-shot helper; invalid patterns never match.
func Match(pattern, name string, caseSensitive bool) bool {
	m, err := Compile(pattern, caseSensitive)
	if err != nil {
		return false
	}
	return m.Match(name)
}
