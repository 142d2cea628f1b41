// Package integrations provides clients for the external Perl toolchain.
//
// # Overview
//
// cpanmeta never interprets Perl itself. Whenever metadata has to be
// materialized it shells out to an external tool, and each tool has its own
// subpackage:
//
//   - [cpanm]: the dependency lister (`cpanm --showdeps`)
//   - [perl]: the build-script runner (`perl Makefile.PL`, `perl Build.PL`)
//
// # Client Pattern
//
// All tool clients embed the shared [Runner], which owns the subprocess
// policy:
//
//	runner := integrations.NewRunner(60*time.Second, logger)
//	lister := cpanm.NewClient(runner, "")
//	out, err := lister.ListDependencies(ctx, dir)
//
// # Failure Taxonomy
//
// [Runner.Run] classifies every failure with a code from [errors]:
//
//   - TOOL_TIMEOUT: the per-invocation wall-clock limit expired and the
//     process was killed
//   - TOOL_NOT_FOUND: the binary is not installed; surfaced separately so
//     callers can report a missing prerequisite
//   - TOOL_NONZERO_EXIT: the tool ran but failed; [Output] is still returned
//     because tools often print useful output while complaining
//
// None of these abort a directory resolution; the caller decides how much of
// a partial result to keep. Caller cancellation is different: the process is
// killed and the context error is returned unchanged.
//
// [cpanm]: github.com/matzehuels/cpanmeta/pkg/integrations/cpanm
// [perl]: github.com/matzehuels/cpanmeta/pkg/integrations/perl
// [errors]: github.com/matzehuels/cpanmeta/pkg/errors
package integrations
