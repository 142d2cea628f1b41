package perl

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cpanmeta/pkg/deps"
	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
)

// ScriptRunner runs a build script inside dir so it can write its MYMETA
// files. The returned stdout is advisory.
type ScriptRunner interface {
	RunScript(ctx context.Context, script, dir string) (string, error)
}

// Lister prints the dependency listing of the distribution in dir.
// Implementations return whatever stdout was produced even when they also
// return an error.
type Lister interface {
	ListDependencies(ctx context.Context, dir string) (string, error)
}

// Contribution is what resolving one discovered file produced.
type Contribution struct {
	File     string        // Path of the file, relative to the resolved root
	Kind     FileKind      // Classification of File
	Sources  []deps.Source // Raw records, primary first; unfiltered
	Err      error         // Why the file yielded less than it could; never aborts the directory
	Warnings []error       // Soft problems that did not prevent a result
}

// manifestPreference is the order in which generated and shipped manifests
// are tried. MYMETA files reflect the local configuration and win.
var manifestPreference = []string{"mymeta.json", "mymeta.yml", "meta.json", "meta.yml"}

// Dispatcher picks and runs the extraction strategy for each file kind.
type Dispatcher struct {
	Toolchain ScriptRunner
	Lister    Lister
	Logger    *log.Logger
}

func (d *Dispatcher) logger() *log.Logger {
	if d.Logger == nil {
		return log.Default()
	}
	return d.Logger
}

// Resolve extracts records from file, a path relative to root.
//
// Strategies by kind:
//   - manifests are parsed directly
//   - cpanfile: the lister output becomes a nameless record, followed by the
//     preferred manifest of the directory if one parses
//   - build scripts are run, then the preferred manifest of the directory is
//     read; if none parses, Err is NO_METADATA_PRODUCED
//   - anything else yields an empty contribution
//
// If ctx is cancelled while a tool runs, Err is the context error.
func (d *Dispatcher) Resolve(ctx context.Context, root, file string) Contribution {
	c := Contribution{File: file, Kind: Classify(file)}
	dir := filepath.Join(root, filepath.FromSlash(path.Dir(file)))
	origin := filepath.Join(root, filepath.FromSlash(file))

	switch c.Kind {
	case KindMetaJSON, KindMetaYAML:
		src, err := ParseManifest(origin)
		if err != nil {
			c.Err = err
			return c
		}
		c.Sources = append(c.Sources, src)

	case KindCpanfile:
		d.resolveCpanfile(ctx, &c, dir, origin)

	case KindMakefilePL, KindBuildPL:
		d.resolveScript(ctx, &c, dir, origin)
	}
	return c
}

func (d *Dispatcher) resolveCpanfile(ctx context.Context, c *Contribution, dir, origin string) {
	var (
		out string
		err error
	)
	if d.Lister == nil {
		err = cerrors.WrapPath(cerrors.ErrCodeToolNotFound, nil, dir, "no dependency lister configured")
	} else {
		out, err = d.Lister.ListDependencies(ctx, dir)
	}
	if ctx.Err() != nil {
		c.Err = ctx.Err()
		return
	}

	switch {
	case err == nil, cerrors.Is(err, cerrors.ErrCodeToolNonZero) && strings.TrimSpace(out) != "":
		if err != nil {
			d.logger().Warn("dependency lister failed, using partial output", "dir", dir, "err", err)
			c.Warnings = append(c.Warnings, err)
		}
		listed, warnings := ParseListing(out, origin)
		for _, w := range warnings {
			d.logger().Warn("skipping dependency line", "err", w)
		}
		c.Warnings = append(c.Warnings, warnings...)
		c.Sources = append(c.Sources, deps.Source{
			Path:         dir,
			Origin:       origin,
			Kind:         KindCpanfile.String(),
			Dependencies: listed,
		})
	default:
		d.logger().Warn("dependency lister failed", "dir", dir, "err", err)
		c.Err = err
	}

	if src, ok := d.lookupManifest(c, dir); ok {
		c.Sources = append(c.Sources, src)
	}
}

func (d *Dispatcher) resolveScript(ctx context.Context, c *Contribution, dir, origin string) {
	script := filepath.Base(origin)
	var err error
	if d.Toolchain == nil {
		err = cerrors.WrapPath(cerrors.ErrCodeToolNotFound, nil, dir, "no build-script runner configured")
	} else {
		_, err = d.Toolchain.RunScript(ctx, script, dir)
	}
	if ctx.Err() != nil {
		c.Err = ctx.Err()
		return
	}
	if err != nil {
		d.logger().Warn("build script failed", "script", origin, "err", err)
		c.Warnings = append(c.Warnings, err)
	}

	src, ok := d.lookupManifest(c, dir)
	if !ok {
		c.Err = cerrors.WrapPath(cerrors.ErrCodeNoMetadata, err, origin, "no manifest after running %s", script)
		return
	}
	c.Sources = append(c.Sources, src)
}

// lookupManifest returns the first manifest in dir, in preference order,
// that parses. Parse failures are recorded as warnings on c.
func (d *Dispatcher) lookupManifest(c *Contribution, dir string) (deps.Source, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		c.Warnings = append(c.Warnings, cerrors.WrapPath(cerrors.ErrCodeDiscovery, err, dir, "cannot list directory"))
		return deps.Source{}, false
	}
	present := make(map[string]string, len(entries))
	for _, e := range entries {
		lower := strings.ToLower(e.Name())
		if _, dup := present[lower]; !dup && !e.IsDir() {
			present[lower] = e.Name()
		}
	}

	for _, want := range manifestPreference {
		name, ok := present[want]
		if !ok {
			continue
		}
		src, err := ParseManifest(filepath.Join(dir, name))
		if err != nil {
			d.logger().Warn("skipping unparseable manifest", "err", err)
			c.Warnings = append(c.Warnings, err)
			continue
		}
		return src, true
	}
	return deps.Source{}, false
}
