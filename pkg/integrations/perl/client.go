package perl

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/cpanmeta/pkg/integrations"
)

// DefaultBinary is the interpreter looked up on PATH.
const DefaultBinary = "perl"

// DefaultLibDirs returns the local::lib module directory of the current user,
// or nil when the home directory cannot be determined.
func DefaultLibDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return nil
	}
	return []string{filepath.Join(home, "perl5", "lib", "perl5")}
}

// Client runs build scripts through the perl interpreter.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Runner
	binary  string
	libDirs []string
}

// NewClient creates a build-script runner. An empty binary selects
// [DefaultBinary]; nil libDirs selects [DefaultLibDirs]. Pass an empty,
// non-nil slice to add no library directories.
func NewClient(runner *integrations.Runner, binary string, libDirs []string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	if libDirs == nil {
		libDirs = DefaultLibDirs()
	}
	return &Client{Runner: runner, binary: binary, libDirs: libDirs}
}

// Binary returns the interpreter this client invokes.
func (c *Client) Binary() string { return c.binary }

// LibDirs returns the extra module directories passed to every script.
func (c *Client) LibDirs() []string { return c.libDirs }

// Args returns the interpreter arguments for running script.
func (c *Client) Args(script string) []string {
	args := make([]string, 0, 2*len(c.libDirs)+3)
	for _, d := range c.libDirs {
		args = append(args, "-I", d)
	}
	return append(args, "-I", ".", script)
}

// Env returns the extra environment for a script run.
func (c *Client) Env() []string {
	env := []string{"PERL_MM_USE_DEFAULT=1", "AUTOMATED_TESTING=1"}
	if len(c.libDirs) == 0 {
		return env
	}
	lib := strings.Join(c.libDirs, string(os.PathListSeparator))
	if cur := os.Getenv("PERL5LIB"); cur != "" {
		lib += string(os.PathListSeparator) + cur
	}
	return append(env, "PERL5LIB="+lib)
}

// RunScript runs script (a path relative to dir, usually a bare basename)
// with dir as the working directory and returns the script's stdout.
//
// The stdout is returned even alongside a TOOL_NONZERO_EXIT error; a failed
// script may still have written its MYMETA files.
func (c *Client) RunScript(ctx context.Context, script, dir string) (string, error) {
	out, err := c.Run(ctx, integrations.Command{
		Name: c.binary,
		Args: c.Args(script),
		Dir:  dir,
		Env:  c.Env(),
	})
	if out == nil {
		return "", err
	}
	if err != nil && out.Stderr != "" {
		c.Logger().Debug("build script stderr", "script", script, "dir", dir, "stderr", out.Stderr)
	}
	return out.Stdout, err
}
