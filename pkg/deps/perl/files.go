package perl

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// AssociatedFiles lists the Perl modules (*.pm) and scripts (*.pl) under dir,
// relative to dir, slash-separated and sorted. The extension match is
// case-sensitive, so Makefile.PL and Build.PL are not included.
// Unreadable subdirectories are skipped.
func AssociatedFiles(dir string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
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
		if !strings.HasSuffix(d.Name(), ".pm") && !strings.HasSuffix(d.Name(), ".pl") {
			return nil
		}
		if rel, err := filepath.Rel(dir, p); err == nil {
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}
