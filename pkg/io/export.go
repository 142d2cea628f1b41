package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/cpanmeta/pkg/pipeline"
)

// SchemaVersion is the report format version written by [WriteJSON].
const SchemaVersion = 1

// Report is the serialized form of one or more resolutions.
type Report struct {
	Schema    int                `json:"schema"`
	Generator string             `json:"generator,omitempty"`
	Results   []*pipeline.Result `json:"results"`
}

// NewReport wraps results in a report of the current schema version.
func NewReport(generator string, results ...*pipeline.Result) *Report {
	if results == nil {
		results = []*pipeline.Result{}
	}
	return &Report{Schema: SchemaVersion, Generator: generator, Results: results}
}

// WriteJSON encodes a report as indented JSON and writes it to w.
func WriteJSON(r *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a report to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(r *Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(r, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
