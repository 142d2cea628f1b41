// Package cpanm invokes the cpanminus dependency lister.
//
// `cpanm --showdeps` evaluates a cpanfile (or build script) and prints one
// `Name~version` line per runtime requirement. This package only runs the
// tool and hands back raw stdout; parsing lives in
// [github.com/matzehuels/cpanmeta/pkg/deps/perl.ParseListing].
package cpanm
