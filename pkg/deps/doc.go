// Package deps defines the canonical records produced by metadata resolution
// and the merge/filter stage applied to them.
//
// # Overview
//
// Whatever build-description format a directory uses, resolution ends in
// the same two types:
//
//   - [Source]: the identity (name, version) of one package description and
//     its runtime requirements, plus the file it came from
//   - [Dependency]: one runtime requirement with an optional version
//     constraint
//
// Ecosystem packages (see [perl]) produce raw records; this package cleans
// them up.
//
// # Filtering
//
// Build tooling shows up as a "requirement" in generated metadata even
// though it is only needed to configure the distribution. [FilterIgnored]
// removes those names:
//
//	ignored := deps.NewIgnoreSet("Test::More")
//	clean := deps.FilterIgnored(src, ignored)
//
// [DefaultIgnored] is always part of the set returned by [NewIgnoreSet].
//
// # Merging
//
// [Merge] concatenates the contributions of several resolution sources and
// removes duplicate names inside each record. It deliberately does not merge
// records with each other. Callers that want one record per directory use
// [Reduce].
//
// # Immutability
//
// Every function here returns new values. A [Source] handed to a caller is
// never modified afterwards, so results of concurrent resolutions can be
// shared freely.
//
// [perl]: github.com/matzehuels/cpanmeta/pkg/deps/perl
package deps
