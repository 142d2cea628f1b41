// Package perl runs Perl build scripts (Makefile.PL, Build.PL).
//
// Running a build script is how a checkout produces its MYMETA.json and
// MYMETA.yml files. The script's own stdout is advisory only; callers read
// the generated manifests afterwards.
//
// Scripts run non-interactively: stdin is empty, PERL_MM_USE_DEFAULT makes
// ExtUtils::MakeMaker accept every prompt default, and AUTOMATED_TESTING
// suppresses the questions Module::Build asks. Configured library
// directories (by default the local::lib tree under ~/perl5) are added both
// with -I and through PERL5LIB so helper modules loaded by the script are
// found.
package perl
