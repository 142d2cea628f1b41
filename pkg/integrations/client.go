package integrations

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
	"github.com/matzehuels/cpanmeta/pkg/observability"
)

const (
	// DefaultTimeout bounds every tool invocation. Some build scripts hang or
	// wait for input forever.
	DefaultTimeout = 60 * time.Second

	// defaultWaitDelay bounds how long Run waits for output pipes after the
	// process was killed (grandchildren may keep them open).
	defaultWaitDelay = 2 * time.Second
)

// Command describes one subprocess invocation.
type Command struct {
	Name    string        // Binary name or path
	Args    []string      // Arguments
	Dir     string        // Working directory
	Env     []string      // Extra KEY=VALUE pairs appended to the inherited environment
	Timeout time.Duration // Overrides the runner timeout when positive
}

// Output is what a finished (or killed) subprocess produced.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int // -1 when the process never started or was killed
	Duration time.Duration
}

// Runner executes external tools with a hard timeout and a uniform failure
// taxonomy. It is safe for concurrent use; every Run call gets its own
// deadline.
type Runner struct {
	timeout   time.Duration
	waitDelay time.Duration
	logger    *log.Logger
}

// NewRunner creates a Runner. A non-positive timeout selects [DefaultTimeout];
// a nil logger selects log.Default().
func NewRunner(timeout time.Duration, logger *log.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{timeout: timeout, waitDelay: defaultWaitDelay, logger: logger}
}

// Timeout returns the default per-invocation timeout.
func (r *Runner) Timeout() time.Duration { return r.timeout }

// Logger returns the runner's logger.
func (r *Runner) Logger() *log.Logger { return r.logger }

// Run executes cmd and waits for it to exit.
//
// Returns:
//   - Output and nil on exit status 0
//   - Output and a TOOL_NONZERO_EXIT error on other exit statuses
//   - partial Output and a TOOL_TIMEOUT error when the timeout expired
//   - nil Output and a TOOL_NOT_FOUND error when the binary is missing
//   - nil Output and an INVALID_PATH error when cmd.Dir does not exist
//   - partial Output and ctx.Err() when ctx was cancelled
//
// Stdin is the null device so prompting tools read EOF instead of blocking.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Output, error) {
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(runCtx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.WaitDelay = r.waitDelay

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	tool := filepath.Base(cmd.Name)
	hooks := observability.Tools()
	hooks.OnToolStart(ctx, tool, cmd.Dir)
	r.logger.Debug("running tool", "tool", tool, "args", cmd.Args, "dir", cmd.Dir, "timeout", timeout)

	start := time.Now()
	runErr := c.Run()
	out := &Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if c.ProcessState != nil {
		out.ExitCode = c.ProcessState.ExitCode()
	}

	err := classify(ctx, runCtx, cmd, tool, timeout, out, runErr)
	hooks.OnToolComplete(ctx, tool, cmd.Dir, out.ExitCode, out.Duration, err)
	if cerrors.Is(err, cerrors.ErrCodeToolNotFound) || cerrors.Is(err, cerrors.ErrCodeInvalidPath) {
		return nil, err
	}
	return out, err
}

func classify(ctx, runCtx context.Context, cmd Command, tool string, timeout time.Duration, out *Output, err error) error {
	if err == nil || errors.Is(err, exec.ErrWaitDelay) && out.ExitCode == 0 {
		return nil
	}
	// os.StartProcess stats Dir before forking and reports it as a chdir error.
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && pathErr.Op == "chdir" {
		return cerrors.WrapPath(cerrors.ErrCodeInvalidPath, err, cmd.Dir,
			"cannot run %s: working directory is not accessible", tool)
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) {
		return cerrors.WrapPath(cerrors.ErrCodeToolNotFound, err, cmd.Dir,
			"%s is not installed or not on PATH", tool)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return cerrors.WrapPath(cerrors.ErrCodeToolTimeout, err, cmd.Dir,
			"%s did not finish within %s", tool, timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return cerrors.WrapPath(cerrors.ErrCodeToolNonZero, err, cmd.Dir,
			"%s exited with status %d", tool, out.ExitCode)
	}
	return cerrors.WrapPath(cerrors.ErrCodeInternal, err, cmd.Dir, "run %s", tool)
}
