// Package perl resolves the runtime dependencies of Perl/CPAN source trees.
//
// # Overview
//
// A CPAN distribution describes itself in one or more of several formats:
//
//   - cpanfile: a Perl DSL evaluated by the cpanm dependency lister
//   - Makefile.PL / Build.PL: build scripts that write MYMETA.json and
//     MYMETA.yml when run
//   - META.json / META.yml / MYMETA.json / MYMETA.yml: structured manifests
//
// Resolution runs in fixed stages per directory: [Discover] finds the files,
// [Classify] tags each with a [FileKind], the [Dispatcher] picks the
// extraction strategy for each kind, the parsers ([ParseManifest],
// [ParseListing]) turn raw output into [deps.Source] records, and the
// [Resolver] filters and merges everything.
//
// # Usage
//
//	runner := integrations.NewRunner(0, logger)
//	r := &perl.Resolver{
//		Toolchain: perltool.NewClient(runner, "", nil),
//		Lister:    cpanm.NewClient(runner, ""),
//		Options:   perl.Options{Recursive: true},
//	}
//	sources, err := r.Determine(ctx, "./My-Dist")
//
// # Failure Policy
//
// Only a directory that cannot be listed at all fails the call. Tool
// timeouts, missing tools, failed scripts, unparseable manifests and
// malformed listing lines are recorded on the [Contribution] of the file
// that caused them and logged; the rest of the directory still resolves.
//
// # Known Limitation
//
// Build scripts write MYMETA files into the directory they run in. Two
// concurrent resolutions of the same directory race on those files and the
// last writer wins.
//
// [deps.Source]: github.com/matzehuels/cpanmeta/pkg/deps.Source
package perl
