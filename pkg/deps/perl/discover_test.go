package perl

import (
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
)

func discoverFixture(t *testing.T) string {
	return writeTree(t, map[string]string{
		"cpanfile":              "requires 'Moo';",
		"Makefile.PL":           "",
		"META.json":             "{}",
		"README":                "",
		"lib/Foo.pm":            "",
		"sub/Build.PL":          "",
		"sub/MYMETA.yml":        "",
		"t/fixtures/META.yml":   "",
		".git/META.json":        "",
		"blib/lib/META.json":    "",
		"deep/er/path/Cpanfile": "",
	})
}

func TestDiscoverTopLevel(t *testing.T) {
	dir := discoverFixture(t)

	got, err := Discover(dir, DiscoverOptions{})
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	want := []string{"META.json", "Makefile.PL", "cpanfile"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverRecursive(t *testing.T) {
	dir := discoverFixture(t)

	got, err := Discover(dir, DiscoverOptions{Recursive: true})
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	want := []string{
		"META.json",
		"Makefile.PL",
		"cpanfile",
		"deep/er/path/Cpanfile",
		"sub/Build.PL",
		"sub/MYMETA.yml",
		"t/fixtures/META.yml",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverIgnore(t *testing.T) {
	dir := discoverFixture(t)

	got, err := Discover(dir, DiscoverOptions{Recursive: true, Ignore: []string{"T/FIXTURES", "makefile"}})
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	want := []string{"META.json", "cpanfile", "deep/er/path/Cpanfile", "sub/Build.PL", "sub/MYMETA.yml"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverIgnoreProperty(t *testing.T) {
	dir := discoverFixture(t)
	all, err := Discover(dir, DiscoverOptions{Recursive: true})
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range []string{"meta", "sub", ".pl", "cpan", "yml", "json", "e"} {
		got, err := Discover(dir, DiscoverOptions{Recursive: true, Ignore: []string{s}})
		if err != nil {
			t.Fatal(err)
		}
		for _, f := range got {
			if strings.Contains(strings.ToLower(f), s) {
				t.Errorf("ignore %q: %q was not excluded", s, f)
			}
		}
		for _, f := range all {
			if !strings.Contains(strings.ToLower(f), s) && !slices.Contains(got, f) {
				t.Errorf("ignore %q: %q was wrongly excluded", s, f)
			}
		}
	}
}

func TestDiscoverMissingDir(t *testing.T) {
	got, err := Discover(filepath.Join(t.TempDir(), "nope"), DiscoverOptions{Recursive: true})
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Discover() = %#v, want empty non-nil slice", got)
	}
}

func TestDiscoverNotADirectory(t *testing.T) {
	dir := writeTree(t, map[string]string{"file": ""})

	_, err := Discover(filepath.Join(dir, "file"), DiscoverOptions{})
	if !cerrors.Is(err, cerrors.ErrCodeDiscovery) {
		t.Fatalf("Discover() error = %v, want %s", err, cerrors.ErrCodeDiscovery)
	}
}

func TestDiscoverDeterministic(t *testing.T) {
	dir := discoverFixture(t)
	first, _ := Discover(dir, DiscoverOptions{Recursive: true})
	for range 5 {
		again, _ := Discover(dir, DiscoverOptions{Recursive: true})
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("Discover() not deterministic (-first +again):\n%s", diff)
		}
	}
}
