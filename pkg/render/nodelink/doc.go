// Package nodelink renders resolved records as node-link diagrams.
//
// # Overview
//
// Every [deps.Source] becomes a box with an arrow to each module it
// requires. Modules required by several records are drawn once, which makes
// disagreements between a cpanfile listing and a generated MYMETA easy to
// spot.
//
// # Usage
//
//	dot := nodelink.ToDOT(result.Sources, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # DOT Format
//
// [ToDOT] produces plain Graphviz DOT with left-to-right layout. It can be
// rendered in-process via [RenderSVG] or saved and processed with external
// Graphviz tools.
//
// # Dependencies
//
// [RenderSVG] uses [github.com/goccy/go-graphviz], a WebAssembly build of
// Graphviz, so no system installation is required.
//
// [deps.Source]: github.com/matzehuels/cpanmeta/pkg/deps.Source
package nodelink
