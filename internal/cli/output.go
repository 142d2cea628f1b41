package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/cpanmeta/pkg/buildinfo"
	"github.com/matzehuels/cpanmeta/pkg/deps"
	pkgio "github.com/matzehuels/cpanmeta/pkg/io"
	"github.com/matzehuels/cpanmeta/pkg/pipeline"
	"github.com/matzehuels/cpanmeta/pkg/render/nodelink"
)

// generator identifies this build in JSON reports.
func generator() string {
	return appName + " " + buildinfo.Version
}

// writeResults writes results in the given format.
func writeResults(ctx context.Context, w io.Writer, format string, results []*pipeline.Result, detailed bool) error {
	switch format {
	case pipeline.FormatJSON:
		return pkgio.WriteJSON(pkgio.NewReport(generator(), results...), w)
	case pipeline.FormatText:
		return writeText(w, results)
	case pipeline.FormatDOT:
		_, err := io.WriteString(w, nodelink.ToDOT(allSources(results), nodelink.Options{Detailed: detailed}))
		return err
	case pipeline.FormatSVG:
		svg, err := nodelink.RenderSVG(ctx, nodelink.ToDOT(allSources(results), nodelink.Options{Detailed: detailed}))
		if err != nil {
			return err
		}
		_, err = w.Write(svg)
		return err
	}
	return pipeline.ValidateFormat(format)
}

// writeOutput writes results to path, or to stdout when path is empty.
func writeOutput(ctx context.Context, path, format string, results []*pipeline.Result, detailed bool) error {
	if path == "" {
		return writeResults(ctx, os.Stdout, format, results, detailed)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeResults(ctx, f, format, results, detailed); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	printFile(path)
	return nil
}

func allSources(results []*pipeline.Result) []deps.Source {
	var out []deps.Source
	for _, r := range results {
		out = append(out, r.Sources...)
	}
	return out
}

// writeText prints a human-readable summary per directory:
//
//	/work/Foo-Bar
//	  Foo-Bar 1.02  meta-json  MYMETA.json
//	    Moo  2.0
//	    JSON::PP
func writeText(w io.Writer, results []*pipeline.Result) error {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(StyleTitle.Render(r.Dir))
		b.WriteString("\n")
		if len(r.Sources) == 0 {
			b.WriteString("  " + StyleDim.Render("no records") + "\n")
		}
		for _, s := range r.Sources {
			b.WriteString("  " + textSourceHeader(r.Dir, s) + "\n")
			for _, d := range s.Dependencies {
				line := "    " + StyleValue.Render(d.Name)
				if d.Version != "" {
					line += "  " + styleVersion.Render(d.Version)
				}
				b.WriteString(line + "\n")
			}
			for _, f := range s.Files {
				b.WriteString("    " + StyleDim.Render(iconArrow+" "+f) + "\n")
			}
		}
		for _, f := range r.Failures {
			b.WriteString("  " + styleIconWarning.Render(iconWarning) + " " +
				StyleWarning.Render(fmt.Sprintf("%s: %s", f.File, f.Message)) + "\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func textSourceHeader(dir string, s deps.Source) string {
	name := s.Name
	if name == "" {
		name = "(unnamed)"
	}
	header := StyleHighlight.Render(name)
	if s.Version != "" {
		header += " " + styleVersion.Render(s.Version)
	}
	origin := s.Origin
	if rel, err := filepath.Rel(dir, s.Origin); err == nil && !strings.HasPrefix(rel, "..") {
		origin = rel
	}
	return header + "  " + styleKind.Render(s.Kind) + "  " + StyleDim.Render(origin)
}
