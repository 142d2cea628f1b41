package perl

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
)

// DiscoverOptions controls [Discover].
type DiscoverOptions struct {
	// Recursive searches the whole subtree instead of the top level only.
	Recursive bool

	// Ignore drops every file whose lowercased relative path contains one of
	// these substrings. Entries are lowercased before matching.
	Ignore []string
}

// skipDirs are never descended into: VCS metadata and ExtUtils::MakeMaker
// build output hold no authored build files.
var skipDirs = map[string]bool{
	".git": true,
	".svn": true,
	".hg":  true,
	"blib": true,
}

// Discover lists the build-description files under dir.
//
// Paths are relative to dir, slash-separated and sorted; in top-level mode
// they are bare basenames. A dir that does not exist yields an empty result
// and no error. A dir that exists but cannot be read fails with
// DISCOVERY_FAILED. Unreadable subdirectories are skipped.
func Discover(dir string, opts DiscoverOptions) ([]string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, cerrors.WrapPath(cerrors.ErrCodeDiscovery, err, dir, "cannot read directory")
	}
	if !info.IsDir() {
		return nil, cerrors.WrapPath(cerrors.ErrCodeDiscovery, nil, dir, "not a directory")
	}

	var found []string
	if opts.Recursive {
		found, err = walk(dir)
	} else {
		found, err = list(dir)
	}
	if err != nil {
		return nil, err
	}

	ignore := lowerAll(opts.Ignore)
	found = slices.DeleteFunc(found, func(rel string) bool {
		return ignored(rel, ignore)
	})
	slices.Sort(found)
	return found, nil
}

func list(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, cerrors.WrapPath(cerrors.ErrCodeDiscovery, err, dir, "cannot list directory")
	}
	found := []string{}
	for _, e := range entries {
		if !e.IsDir() && Classify(e.Name()) != KindUnrecognized {
			found = append(found, e.Name())
		}
	}
	return found, nil
}

func walk(dir string) ([]string, error) {
	found := []string{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return cerrors.WrapPath(cerrors.ErrCodeDiscovery, err, dir, "cannot list directory")
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if Classify(d.Name()) == KindUnrecognized {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil
		}
		found = append(found, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func lowerAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func ignored(rel string, ignore []string) bool {
	lower := strings.ToLower(rel)
	for _, s := range ignore {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
