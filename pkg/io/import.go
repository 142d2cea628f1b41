package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/cpanmeta/pkg/pipeline"
)

// ReadJSON decodes a report from r.
//
// ReadJSON returns an error if:
//   - The JSON is malformed
//   - The schema version is missing or newer than [SchemaVersion]
//   - A result is null or a dependency has an empty name
//
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Report, error) {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if rep.Schema < 1 || rep.Schema > SchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d", rep.Schema)
	}
	for i, res := range rep.Results {
		if res == nil {
			return nil, fmt.Errorf("result %d: null", i)
		}
		for _, src := range res.Sources {
			for _, d := range src.Dependencies {
				if d.Name == "" {
					return nil, fmt.Errorf("result %d: %s: dependency without name", i, src.Origin)
				}
			}
		}
	}
	if rep.Results == nil {
		rep.Results = []*pipeline.Result{}
	}
	return &rep, nil
}

// ImportJSON reads a report file at path.
func ImportJSON(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
