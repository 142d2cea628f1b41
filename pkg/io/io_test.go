package io

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/cpanmeta/pkg/deps"
	"github.com/matzehuels/cpanmeta/pkg/pipeline"
)

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		ID:    "0b7c3f5e-3c1a-4a52-9f53-2f0f3d4e7a10",
		Dir:   "/src/Foo",
		Files: []string{"META.json", "cpanfile"},
		Sources: []deps.Source{{
			Name:    "Foo",
			Version: "1.10",
			Path:    "/src/Foo",
			Origin:  "/src/Foo/META.json",
			Kind:    "meta-json",
			Dependencies: []deps.Dependency{
				{Name: "Bar", Version: "2.1", Path: "/src/Foo/META.json"},
				{Name: "Baz", Path: "/src/Foo/META.json"},
			},
			Files: []string{"lib/Foo.pm"},
		}},
		Failures:   []pipeline.Failure{{File: "Makefile.PL", Kind: "makefile-pl", Code: "NO_METADATA_PRODUCED", Message: "no manifest"}},
		ResolvedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Stats:      pipeline.Stats{FileCount: 2, SourceCount: 1, DependencyCount: 2, Duration: time.Second},
	}
}

func TestRoundTrip(t *testing.T) {
	rep := NewReport("cpanmeta test", sampleResult())

	var buf bytes.Buffer
	if err := WriteJSON(rep, &buf); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	if diff := cmp.Diff(rep, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteJSONIndented(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(NewReport(""), &buf); err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"schema\": 1,\n  \"results\": []\n}\n"
	if buf.String() != want {
		t.Errorf("WriteJSON() = %q, want %q", buf.String(), want)
	}
}

func TestReadJSONErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"malformed", `{"schema":`, "decode"},
		{"missing schema", `{"results":[]}`, "schema version 0"},
		{"future schema", `{"schema":99,"results":[]}`, "schema version 99"},
		{"null result", `{"schema":1,"results":[null]}`, "null"},
		{"nameless dependency", `{"schema":1,"results":[{"sources":[{"origin":"x","dependencies":[{"version":"1"}]}]}]}`, "without name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.input))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ReadJSON() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestExportImportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	rep := NewReport("x", sampleResult())

	if err := ExportJSON(rep, path); err != nil {
		t.Fatalf("ExportJSON() error: %v", err)
	}
	got, err := ImportJSON(path)
	if err != nil {
		t.Fatalf("ImportJSON() error: %v", err)
	}
	if diff := cmp.Diff(rep, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := ImportJSON(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ImportJSON() of a missing file should fail")
	}
}
