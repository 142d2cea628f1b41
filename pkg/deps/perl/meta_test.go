package perl

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/cpanmeta/pkg/deps"
	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
)

func TestParseMetaJSON(t *testing.T) {
	data := `{
  "name": "Foo",
  "version": "1.0",
  "prereqs": {
    "build": {"requires": {"Test::More": "0.88"}},
    "runtime": {
      "requires": {"Bar": "2.1", "Baz": "0"},
      "recommends": {"JSON::XS": "3"}
    }
  }
}`
	got, err := ParseMetaJSON([]byte(data), "/d/META.json")
	if err != nil {
		t.Fatalf("ParseMetaJSON() error: %v", err)
	}
	want := deps.Source{
		Name:    "Foo",
		Version: "1.0",
		Path:    "/d",
		Origin:  "/d/META.json",
		Kind:    "meta-json",
		Dependencies: []deps.Dependency{
			{Name: "Bar", Version: "2.1", Path: "/d/META.json"},
			{Name: "Baz", Version: "", Path: "/d/META.json"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseMetaJSON() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMetaJSONKeepsOrderAndLiterals(t *testing.T) {
	data := `{"name":"Z","version":1.10,"prereqs":{"runtime":{"requires":{
		"Zeta":"1","Alpha":1.50,"Mid":0,"Range":">= 1.2, < 2","Nil":null}}}}`
	got, err := ParseMetaJSON([]byte(data), "META.json")
	if err != nil {
		t.Fatalf("ParseMetaJSON() error: %v", err)
	}
	if got.Version != "1.10" {
		t.Errorf("Version = %q, want %q", got.Version, "1.10")
	}
	want := []deps.Dependency{
		{Name: "Zeta", Version: "1", Path: "META.json"},
		{Name: "Alpha", Version: "1.50", Path: "META.json"},
		{Name: "Mid", Version: "", Path: "META.json"},
		{Name: "Range", Version: ">= 1.2, < 2", Path: "META.json"},
		{Name: "Nil", Version: "", Path: "META.json"},
	}
	if diff := cmp.Diff(want, got.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMetaJSONSections(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{"no prereqs", `{"name":"A"}`, []string{}},
		{"empty runtime", `{"prereqs":{"runtime":{}}}`, []string{}},
		{"null prereqs", `{"prereqs":null,"requires":{"Ignored":"1"}}`, []string{}},
		{"only build", `{"prereqs":{"build":{"requires":{"X":"1"}}}}`, []string{}},
		{"v1 requires", `{"requires":{"Old":"1","Style":"0"}}`, []string{"Old", "Style"}},
		{"prereqs wins over v1", `{"requires":{"Old":"1"},"prereqs":{"runtime":{"requires":{"New":"1"}}}}`, []string{"New"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMetaJSON([]byte(tt.data), "META.json")
			if err != nil {
				t.Fatalf("ParseMetaJSON() error: %v", err)
			}
			if got.Dependencies == nil {
				t.Error("Dependencies is nil, want empty slice")
			}
			if diff := cmp.Diff(tt.want, got.DependencyNames()); diff != "" {
				t.Errorf("names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseMetaJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"name": "Foo",`},
		{"not an object", `["Foo"]`},
		{"trailing garbage", `{"name":"Foo"} x`},
		{"requires is a list", `{"prereqs":{"runtime":{"requires":["Bar"]}}}`},
		{"runtime is a string", `{"prereqs":{"runtime":"Bar"}}`},
		{"version is an object", `{"name":"Foo","version":{"v":1}}`},
		{"requirement is a list", `{"prereqs":{"runtime":{"requires":{"Bar":[1]}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMetaJSON([]byte(tt.data), "/x/META.json")
			if !cerrors.Is(err, cerrors.ErrCodeManifestParse) {
				t.Fatalf("error = %v, want %s", err, cerrors.ErrCodeManifestParse)
			}
			if cerrors.GetPath(err) != "/x/META.json" {
				t.Errorf("GetPath() = %q, want the manifest path", cerrors.GetPath(err))
			}
		})
	}
}

func TestParseMetaYAML(t *testing.T) {
	data := `---
abstract: 'A module'
build_requires:
  Test::More: 0.88
name: Foo-Bar
requires:
  perl: 5.008001
  Moo: 2.0
  Try::Tiny: 0
  JSON::PP: '4.02'
version: 1.10
`
	got, err := ParseMetaYAML([]byte(data), "/d/META.yml")
	if err != nil {
		t.Fatalf("ParseMetaYAML() error: %v", err)
	}
	want := deps.Source{
		Name:    "Foo-Bar",
		Version: "1.10",
		Path:    "/d",
		Origin:  "/d/META.yml",
		Kind:    "meta-yaml",
		Dependencies: []deps.Dependency{
			{Name: "perl", Version: "5.008001", Path: "/d/META.yml"},
			{Name: "Moo", Version: "2.0", Path: "/d/META.yml"},
			{Name: "Try::Tiny", Version: "", Path: "/d/META.yml"},
			{Name: "JSON::PP", Version: "4.02", Path: "/d/META.yml"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseMetaYAML() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMetaYAMLPrereqs(t *testing.T) {
	data := `name: Foo
version: '0.01'
prereqs:
  runtime:
    requires:
      Bar: '2.1'
      Baz: '0'
  test:
    requires:
      Test::Deep: 0
`
	got, err := ParseMetaYAML([]byte(data), "MYMETA.yml")
	if err != nil {
		t.Fatalf("ParseMetaYAML() error: %v", err)
	}
	want := []deps.Dependency{
		{Name: "Bar", Version: "2.1", Path: "MYMETA.yml"},
		{Name: "Baz", Version: "", Path: "MYMETA.yml"},
	}
	if diff := cmp.Diff(want, got.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMetaYAMLEmptySections(t *testing.T) {
	for _, data := range []string{"name: Foo\n", "name: Foo\nrequires:\n", "name: Foo\nrequires: {}\n", "prereqs:\n  runtime: ~\n"} {
		got, err := ParseMetaYAML([]byte(data), "META.yml")
		if err != nil {
			t.Fatalf("ParseMetaYAML(%q) error: %v", data, err)
		}
		if len(got.Dependencies) != 0 {
			t.Errorf("ParseMetaYAML(%q) deps = %v, want none", data, got.Dependencies)
		}
	}
}

func TestParseMetaYAMLErrors(t *testing.T) {
	for _, data := range []string{
		"",
		"name: [unclosed",
		"- just\n- a list\n",
		"requires:\n  - Moo\n",
		"requires:\n  Moo: {min: 1}\n",
	} {
		_, err := ParseMetaYAML([]byte(data), "META.yml")
		if !cerrors.Is(err, cerrors.ErrCodeManifestParse) {
			t.Errorf("ParseMetaYAML(%q) error = %v, want %s", data, err, cerrors.ErrCodeManifestParse)
		}
	}
}

func TestParseManifest(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"META.json":   `{"name":"J","version":"1"}`,
		"MYMETA.yml":  "name: Y\nversion: 2\n",
		"META.yaml":   "name: YA\n",
		"META.txt":    "name: T\n",
		"broken.json": `{`,
	})

	tests := []struct {
		file     string
		wantName string
		wantCode cerrors.Code
	}{
		{"META.json", "J", ""},
		{"MYMETA.yml", "Y", ""},
		{"META.yaml", "YA", ""},
		{"META.txt", "", cerrors.ErrCodeUnsupported},
		{"broken.json", "", cerrors.ErrCodeManifestParse},
		{"missing.json", "", cerrors.ErrCodeFileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, err := ParseManifest(filepath.Join(dir, tt.file))
			if tt.wantCode != "" {
				if !cerrors.Is(err, tt.wantCode) {
					t.Fatalf("error = %v, want %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseManifest() error: %v", err)
			}
			if got.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", got.Name, tt.wantName)
			}
			if got.Path != dir {
				t.Errorf("Path = %q, want %q", got.Path, dir)
			}
		})
	}
}

func TestManifestZeroVersionProperty(t *testing.T) {
	inputs := []struct {
		parse func([]byte, string) (deps.Source, error)
		data  string
	}{
		{ParseMetaJSON, `{"prereqs":{"runtime":{"requires":{"A":0,"B":"0","C":" 0 "}}}}`},
		{ParseMetaYAML, "requires:\n  A: 0\n  B: '0'\n  C: \" 0 \"\n"},
		{ParseMetaYAML, "prereqs:\n  runtime:\n    requires:\n      A: 0\n"},
	}
	for _, in := range inputs {
		src, err := in.parse([]byte(in.data), "m")
		if err != nil {
			t.Fatalf("parse(%q) error: %v", in.data, err)
		}
		for _, d := range src.Dependencies {
			if d.Version != "" {
				t.Errorf("parse(%q): %s version = %q, want empty", in.data, d.Name, d.Version)
			}
		}
	}
}
