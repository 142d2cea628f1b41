package cpanm

import (
	"context"

	"github.com/matzehuels/cpanmeta/pkg/integrations"
)

// DefaultBinary is the lister executable looked up on PATH.
const DefaultBinary = "cpanm"

// Client runs `cpanm --showdeps` against a directory.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Runner
	binary string
}

// NewClient creates a lister client. An empty binary selects [DefaultBinary].
func NewClient(runner *integrations.Runner, binary string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{Runner: runner, binary: binary}
}

// Binary returns the executable this client invokes.
func (c *Client) Binary() string { return c.binary }

// Args returns the lister arguments for a directory.
func Args() []string {
	return []string{"--showdeps", "--quiet", "."}
}

// ListDependencies runs the lister in dir and returns its stdout.
//
// On a non-zero exit the captured stdout is returned together with the
// TOOL_NONZERO_EXIT error, since cpanm often prints a usable listing before
// complaining about an unsatisfiable requirement. Timeouts and a missing
// binary return an empty string.
func (c *Client) ListDependencies(ctx context.Context, dir string) (string, error) {
	out, err := c.Run(ctx, integrations.Command{
		Name: c.binary,
		Args: Args(),
		Dir:  dir,
	})
	if out == nil {
		return "", err
	}
	if err != nil && out.Stderr != "" {
		c.Logger().Debug("cpanm stderr", "dir", dir, "stderr", out.Stderr)
	}
	return out.Stdout, err
}
