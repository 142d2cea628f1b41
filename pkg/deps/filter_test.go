package deps

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewIgnoreSet(t *testing.T) {
	s := NewIgnoreSet("Test::More", "")

	for _, n := range DefaultIgnored {
		if !s.Contains(n) {
			t.Errorf("default %q missing from set", n)
		}
	}
	if !s.Contains("Test::More") {
		t.Error("extra name missing from set")
	}
	if s.Contains("") {
		t.Error("empty name should not be added")
	}
	if got, want := len(s.Names()), len(DefaultIgnored)+1; got != want {
		t.Errorf("len(Names()) = %d, want %d", got, want)
	}
}

func TestFilterIgnored(t *testing.T) {
	src := Source{
		Name: "Foo",
		Dependencies: []Dependency{
			{Name: "perl", Version: "5.008"},
			{Name: "Moo", Version: "2.0"},
			{Name: "ExtUtils::MakeMaker"},
			{Name: "Try::Tiny"},
			{Name: "Module::Build::Tiny", Version: "0.034"},
		},
	}

	got := FilterIgnored(src, NewIgnoreSet())

	want := []Dependency{{Name: "Moo", Version: "2.0"}, {Name: "Try::Tiny"}}
	if diff := cmp.Diff(want, got.Dependencies); diff != "" {
		t.Errorf("FilterIgnored mismatch (-want +got):\n%s", diff)
	}
	if len(src.Dependencies) != 5 || src.Dependencies[0].Name != "perl" {
		t.Error("FilterIgnored mutated its input")
	}
}

func TestFilterIgnoredProperty(t *testing.T) {
	ignored := NewIgnoreSet("Carp")
	sources := []Source{
		{Dependencies: []Dependency{{Name: "perl"}, {Name: "Carp"}}},
		{Dependencies: []Dependency{{Name: "CPAN::Meta"}, {Name: "JSON::PP"}, {Name: "Carp"}}},
		{},
	}

	for i, s := range sources {
		for _, d := range FilterIgnored(s, ignored).Dependencies {
			if ignored.Contains(d.Name) {
				t.Errorf("source %d: ignored dependency %q survived filtering", i, d.Name)
			}
		}
	}
}

func TestMerge(t *testing.T) {
	listing := []Source{{
		Origin: "cpanfile",
		Dependencies: []Dependency{
			{Name: "Moo"},
			{Name: "Try::Tiny"},
			{Name: "Moo", Version: "2.0"},
		},
	}}
	manifest := []Source{{
		Name:         "Foo",
		Origin:       "META.yml",
		Dependencies: []Dependency{{Name: "Moo", Version: "1.0"}, {Name: "JSON::PP"}},
	}}

	got := Merge(listing, manifest)

	if len(got) != 2 {
		t.Fatalf("Merge returned %d records, want 2", len(got))
	}
	if diff := cmp.Diff([]string{"Moo", "Try::Tiny"}, got[0].DependencyNames()); diff != "" {
		t.Errorf("first record mismatch (-want +got):\n%s", diff)
	}
	if got[0].Dependencies[0].Version != "" {
		t.Errorf("first declaration should win, got version %q", got[0].Dependencies[0].Version)
	}
	// No cross-record deduplication: Moo appears in both records.
	if diff := cmp.Diff([]string{"Moo", "JSON::PP"}, got[1].DependencyNames()); diff != "" {
		t.Errorf("second record mismatch (-want +got):\n%s", diff)
	}
	if len(listing[0].Dependencies) != 3 {
		t.Error("Merge mutated its input")
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(); len(got) != 0 {
		t.Errorf("Merge() = %v, want empty", got)
	}
	if got := Merge(nil, []Source{}); len(got) != 0 {
		t.Errorf("Merge(nil, empty) = %v, want empty", got)
	}
}

func TestReduce(t *testing.T) {
	sources := []Source{
		{
			Path:         "dist",
			Origin:       "cpanfile",
			Kind:         "cpanfile",
			Dependencies: []Dependency{{Name: "Moo"}, {Name: "Try::Tiny"}},
			Files:        []string{"lib/Foo.pm"},
		},
		{
			Name:         "Foo",
			Version:      "1.0",
			Path:         "dist",
			Origin:       "META.yml",
			Kind:         "meta-yaml",
			Dependencies: []Dependency{{Name: "Moo", Version: "2.0"}, {Name: "JSON::PP"}},
			Files:        []string{"lib/Foo.pm"},
		},
	}

	got, ok := Reduce(sources)
	if !ok {
		t.Fatal("Reduce reported false for non-empty input")
	}

	want := Source{
		Name:         "Foo",
		Version:      "1.0",
		Path:         "dist",
		Origin:       "META.yml",
		Kind:         "meta-yaml",
		Dependencies: []Dependency{{Name: "Moo"}, {Name: "Try::Tiny"}, {Name: "JSON::PP"}},
		Files:        []string{"lib/Foo.pm"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Reduce mismatch (-want +got):\n%s", diff)
	}
}

func TestReduceEmpty(t *testing.T) {
	if _, ok := Reduce(nil); ok {
		t.Error("Reduce(nil) reported true")
	}
}
