package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/cpanmeta/pkg/deps"
	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds versions to labels and edges and shows the origin file
	// of every record.
	Detailed bool
}

// ToDOT converts resolved records to Graphviz DOT. Each record is a node
// pointing at one node per required module; modules required by several
// records are shared. The result can be rendered with [RenderSVG].
//
// Records without a name (tool output) are drawn dashed and labelled with
// their kind.
func ToDOT(sources []deps.Source, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=1.0;\n")
	buf.WriteString("  nodesep=0.2;\n")
	buf.WriteString("\n")

	modules := make(map[string]bool)
	var order []string
	for _, s := range sources {
		fmt.Fprintf(&buf, "  %q [%s];\n", sourceID(s), strings.Join(sourceAttrs(s, opts.Detailed), ", "))
		for _, d := range s.Dependencies {
			if !modules[d.Name] {
				modules[d.Name] = true
				order = append(order, d.Name)
			}
		}
	}

	buf.WriteString("\n")
	for _, m := range order {
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=\"#f0f0f0\"];\n", moduleID(m), m)
	}

	buf.WriteString("\n")
	for _, s := range sources {
		for _, d := range s.Dependencies {
			if opts.Detailed && d.Version != "" {
				fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", sourceID(s), moduleID(d.Name), d.Version)
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q;\n", sourceID(s), moduleID(d.Name))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func sourceID(s deps.Source) string {
	return "src:" + s.Origin
}

func moduleID(name string) string {
	return "mod:" + name
}

func sourceLabel(s deps.Source, detailed bool) string {
	label := s.Name
	if label == "" {
		label = "(" + s.Kind + ")"
	}
	if s.Version != "" {
		label += " " + s.Version
	}
	if detailed {
		label += "\n" + s.Origin
	}
	return label
}

func sourceAttrs(s deps.Source, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", sourceLabel(s, detailed))}
	if s.Name == "" {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	} else {
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using the embedded Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeRenderFailure, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeRenderFailure, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeRenderFailure, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales to its
// container instead of using Graphviz's point-based size.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
