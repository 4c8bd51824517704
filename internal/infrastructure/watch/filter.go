package watch

import (
	"path/filepath"
	"strings"
)

// DefaultExclude skips files the parser writes next to the designs and
// editor or atomic-write temp files.
var DefaultExclude = []string{
	"*_assets",
	"*.mmd",
	".*",
	"*.tmp",
	"*~",
	"*.swp",
}

// Filter decides which base names in a design folder count as changes.
type Filter struct {
	Include []string
	Exclude []string
}

// DesignFilter accepts every design document except the parser's own output.
func DesignFilter() Filter {
	return Filter{Exclude: DefaultExclude}
}

// Matches reports whether path should trigger a re-run. Patterns are
// matched against the base name; an empty Include accepts everything that
// is not excluded. Malformed patterns never match.
func (f Filter) Matches(path string) bool {
	name := filepath.Base(path)
	for _, pat := range f.Exclude {
		if match(pat, name) {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pat := range f.Include {
		if match(pat, name) {
			return true
		}
	}
	return false
}

func match(pattern, name string) bool {
	ok, err := filepath.Match(strings.ToLower(pattern), strings.ToLower(name))
	return err == nil && ok
}
