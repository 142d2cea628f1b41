package perl

import (
	"strings"
	"unicode"

	"github.com/matzehuels/cpanmeta/pkg/deps"
	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
)

const (
	listingSeparator = "~"
	listingExcluded  = "!"
)

// ParseListing parses the output of `cpanm --showdeps`: one `Name` or
// `Name~version` per line. origin is recorded on every dependency.
//
// Blank lines and lines starting with "!" (recommendations the tool will not
// install) are skipped. A line with more than one "~" or an empty name is
// malformed: it is skipped and reported in the returned slice, and the rest
// of the listing is still parsed.
func ParseListing(raw, origin string) ([]deps.Dependency, []error) {
	out := []deps.Dependency{}
	var warnings []error
	for i, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, listingExcluded) {
			continue
		}

		fields := strings.Split(line, listingSeparator)
		name := strings.TrimSpace(fields[0])
		if len(fields) > 2 || name == "" {
			warnings = append(warnings, cerrors.WrapPath(cerrors.ErrCodeMalformedLine, nil, origin,
				"line %d: %q", i+1, line))
			continue
		}

		var version string
		if len(fields) == 2 {
			version = listedVersion(fields[1])
		}
		out = append(out, deps.Dependency{Name: name, Version: version, Path: origin})
	}
	return out, warnings
}

// listedVersion strips all whitespace and a leading "v" (v1.2 becomes 1.2),
// then applies [deps.NormalizeVersion].
func listedVersion(v string) string {
	v = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, v)
	if len(v) > 1 && v[0] == 'v' && v[1] >= '0' && v[1] <= '9' {
		v = v[1:]
	}
	return deps.NormalizeVersion(v)
}
