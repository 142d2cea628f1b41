package deps

import (
	"slices"
	"strings"
)

// Dependency is one declared runtime requirement of a [Source].
type Dependency struct {
	Name    string `json:"name"`              // Required module name, never empty
	Version string `json:"version,omitempty"` // Version constraint; empty means any version
	Path    string `json:"path,omitempty"`    // File or directory the requirement was declared in
}

// Source is the canonical record of one package description found in a
// directory. A directory may yield several corroborating sources (for example
// a generated MYMETA.json next to the cpanfile's own listing).
type Source struct {
	Name         string       `json:"name,omitempty"`    // Package name; empty when derived from tool output
	Version      string       `json:"version,omitempty"` // Package version; empty when unknown
	Path         string       `json:"path"`              // Directory the record was derived from
	Origin       string       `json:"origin"`            // File the record was derived from
	Kind         string       `json:"kind"`              // Kind of the origin file (e.g. "cpanfile", "meta-json")
	Dependencies []Dependency `json:"dependencies"`      // Runtime requirements in declaration order
	Files        []string     `json:"files,omitempty"`   // Associated module/script files under Path
}

// Clone returns a deep copy of s. Records handed to callers are never mutated
// afterwards; transformations work on clones.
func (s Source) Clone() Source {
	c := s
	c.Dependencies = slices.Clone(s.Dependencies)
	c.Files = slices.Clone(s.Files)
	if c.Dependencies == nil {
		c.Dependencies = []Dependency{}
	}
	return c
}

// DependencyNames returns the dependency names of s in declaration order.
func (s Source) DependencyNames() []string {
	names := make([]string, len(s.Dependencies))
	for i, d := range s.Dependencies {
		names[i] = d.Name
	}
	return names
}

// NormalizeVersion canonicalizes a version constraint. A literal zero is the
// CPAN convention for "any version" and becomes the empty string.
func NormalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "0" {
		return ""
	}
	return v
}
