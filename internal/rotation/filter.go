package rotation

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// Filter decides which names take part in rotation. A name must match one of
// the include patterns, when any are given, and must not match an exclude
// pattern or an ignore rule. Exclusion always wins over inclusion.
type Filter struct {
	include []string
	exclude []string
	ignore  *ignore.GitIgnore
}

// NewFilter validates the shell-style patterns and ignore rules. The ignore
// rules use .gitignore syntax and may be empty.
func NewFilter(include, exclude, ignoreRules []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range include {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: p, Err: doublestar.ErrBadPattern}
		}
		f.include = append(f.include, p)
	}
	for _, p := range exclude {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: p, Err: doublestar.ErrBadPattern}
		}
		f.exclude = append(f.exclude, p)
	}
	if len(ignoreRules) > 0 {
		f.ignore = ignore.CompileIgnoreLines(ignoreRules...)
	}
	return f, nil
}

// Allows reports whether name takes part in rotation. When it does not, the
// second value explains why.
func (f *Filter) Allows(name string) (bool, string) {
	if f == nil {
		return true, ""
	}
	subject := strings.TrimSuffix(name, "/")

	for _, p := range f.exclude {
		if matchExclude(p, subject) {
			return false, "matched exclude pattern " + p
		}
	}
	if f.ignore != nil && f.ignore.MatchesPath(name) {
		return false, "matched ignore rules"
	}
	if len(f.include) == 0 {
		return true, ""
	}
	for _, p := range f.include {
		if matchPattern(p, subject) {
			return true, ""
		}
	}
	return false, "did not match include list"
}

// matchExclude also tries name with trailing dot-suffixes removed, so that
// "*.tmp" excludes "db.tmp.20240101" as well as "db.tmp". Include patterns
// always match the full name.
func matchExclude(pattern, name string) bool {
	for {
		if matchPattern(pattern, name) {
			return true
		}
		dot := strings.LastIndexByte(name, '.')
		if dot <= 0 {
			return false
		}
		name = name[:dot]
	}
}

func matchPattern(pattern, name string) bool {
	// Patterns are validated up front, so Match cannot fail here.
	ok, _ := doublestar.Match(pattern, name)
	return ok
}
