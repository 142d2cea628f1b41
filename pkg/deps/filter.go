package deps

import "slices"

// DefaultIgnored lists modules that are artifacts of the configuration
// process rather than runtime requirements: the interpreter itself and the
// build tooling that generated the metadata.
var DefaultIgnored = []string{
	"perl",
	"ExtUtils::MakeMaker",
	"CPAN::Meta",
	"Module::Build",
	"Module::Build::Tiny",
}

// IgnoreSet is a set of dependency names removed by [FilterIgnored].
// It is a plain value threaded through each call; there is no global list.
type IgnoreSet map[string]struct{}

// NewIgnoreSet returns [DefaultIgnored] plus any extra names.
func NewIgnoreSet(extra ...string) IgnoreSet {
	s := make(IgnoreSet, len(DefaultIgnored)+len(extra))
	for _, n := range DefaultIgnored {
		s[n] = struct{}{}
	}
	for _, n := range extra {
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Contains reports whether name is ignored.
func (s IgnoreSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the ignored names in sorted order.
func (s IgnoreSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// FilterIgnored returns a copy of src without the dependencies named in
// ignored. src itself is left untouched.
func FilterIgnored(src Source, ignored IgnoreSet) Source {
	out := src.Clone()
	out.Dependencies = slices.DeleteFunc(out.Dependencies, func(d Dependency) bool {
		return ignored.Contains(d.Name)
	})
	return out
}

// Merge concatenates the contributions of every resolution source for a
// directory. Within each record, dependencies are deduplicated by name with
// the first declaration winning. Records are not deduplicated against each
// other: different sources may legitimately report different subsets.
func Merge(contributions ...[]Source) []Source {
	var out []Source
	for _, c := range contributions {
		for _, s := range c {
			out = append(out, dedupe(s))
		}
	}
	return out
}

func dedupe(src Source) Source {
	out := src.Clone()
	seen := make(map[string]bool, len(out.Dependencies))
	out.Dependencies = slices.DeleteFunc(out.Dependencies, func(d Dependency) bool {
		if seen[d.Name] {
			return true
		}
		seen[d.Name] = true
		return false
	})
	return out
}

// Reduce collapses the records of one directory into a single record. The
// identity comes from the first record that declares a name; dependencies
// are the ordered union by name. It reports false for an empty input.
func Reduce(sources []Source) (Source, bool) {
	if len(sources) == 0 {
		return Source{}, false
	}

	out := sources[0].Clone()
	for _, s := range sources {
		if s.Name != "" {
			out.Name, out.Version, out.Origin, out.Kind = s.Name, s.Version, s.Origin, s.Kind
			break
		}
	}

	out.Dependencies = []Dependency{}
	seenDep := make(map[string]bool)
	seenFile := make(map[string]bool)
	out.Files = nil
	for _, s := range sources {
		for _, d := range s.Dependencies {
			if !seenDep[d.Name] {
				seenDep[d.Name] = true
				out.Dependencies = append(out.Dependencies, d)
			}
		}
		for _, f := range s.Files {
			if !seenFile[f] {
				seenFile[f] = true
				out.Files = append(out.Files, f)
			}
		}
	}
	return out, true
}
