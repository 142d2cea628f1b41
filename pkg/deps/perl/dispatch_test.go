package perl

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
)

const metaJSON = `{"name":"Foo","version":"1.0","prereqs":{"runtime":{"requires":{"Bar":"2.1","Baz":"0"}}}}`

func TestDispatchManifest(t *testing.T) {
	dir := writeTree(t, map[string]string{"META.json": metaJSON})
	d := &Dispatcher{}

	c := d.Resolve(context.Background(), dir, "META.json")
	if c.Err != nil {
		t.Fatalf("Err = %v", c.Err)
	}
	if c.Kind != KindMetaJSON {
		t.Errorf("Kind = %v, want %v", c.Kind, KindMetaJSON)
	}
	if len(c.Sources) != 1 || c.Sources[0].Name != "Foo" {
		t.Errorf("Sources = %+v, want one record named Foo", c.Sources)
	}
}

func TestDispatchBrokenManifest(t *testing.T) {
	dir := writeTree(t, map[string]string{"META.yml": "requires: [\n"})

	c := (&Dispatcher{}).Resolve(context.Background(), dir, "META.yml")
	if !cerrors.Is(c.Err, cerrors.ErrCodeManifestParse) {
		t.Fatalf("Err = %v, want %s", c.Err, cerrors.ErrCodeManifestParse)
	}
	if len(c.Sources) != 0 {
		t.Errorf("Sources = %+v, want none", c.Sources)
	}
}

func TestDispatchUnrecognized(t *testing.T) {
	lister := &fakeLister{}
	toolchain := &fakeToolchain{}
	d := &Dispatcher{Toolchain: toolchain, Lister: lister}

	c := d.Resolve(context.Background(), t.TempDir(), "README")
	if c.Kind != KindUnrecognized || c.Err != nil || len(c.Sources) != 0 {
		t.Errorf("Resolve(README) = %+v, want empty contribution", c)
	}
	if len(lister.calls)+len(toolchain.calls) != 0 {
		t.Error("unrecognized file triggered a tool")
	}
}

func TestDispatchCpanfile(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"cpanfile": "requires 'Moo';",
		"META.yml": "name: Foo\nrequires:\n  Moo: 1\n",
	})
	lister := &fakeLister{out: "Moo~v2.0\nBad~1~2\n"}
	d := &Dispatcher{Lister: lister}

	c := d.Resolve(context.Background(), dir, "cpanfile")
	if c.Err != nil {
		t.Fatalf("Err = %v", c.Err)
	}
	if diff := cmp.Diff([]string{dir}, lister.calls); diff != "" {
		t.Errorf("lister calls mismatch (-want +got):\n%s", diff)
	}
	if len(c.Sources) != 2 {
		t.Fatalf("got %d sources, want listing + manifest", len(c.Sources))
	}

	listing, manifest := c.Sources[0], c.Sources[1]
	if listing.Name != "" || listing.Kind != "cpanfile" || listing.Origin != filepath.Join(dir, "cpanfile") {
		t.Errorf("listing record = %+v", listing)
	}
	if listing.Dependencies[0].Version != "2.0" {
		t.Errorf("listing version = %q, want 2.0", listing.Dependencies[0].Version)
	}
	if manifest.Name != "Foo" || manifest.Kind != "meta-yaml" {
		t.Errorf("manifest record = %+v", manifest)
	}
	if len(c.Warnings) != 1 || !cerrors.Is(c.Warnings[0], cerrors.ErrCodeMalformedLine) {
		t.Errorf("Warnings = %v, want one malformed line", c.Warnings)
	}
}

func TestDispatchCpanfileListerFailures(t *testing.T) {
	tests := []struct {
		name        string
		out         string
		err         error
		wantListing bool
		wantErr     cerrors.Code
	}{
		{"non-zero with output", "Moo\n", cerrors.New(cerrors.ErrCodeToolNonZero, "exit 1"), true, ""},
		{"non-zero without output", "  \n", cerrors.New(cerrors.ErrCodeToolNonZero, "exit 1"), false, cerrors.ErrCodeToolNonZero},
		{"timeout", "", cerrors.New(cerrors.ErrCodeToolTimeout, "slow"), false, cerrors.ErrCodeToolTimeout},
		{"not found", "", cerrors.New(cerrors.ErrCodeToolNotFound, "missing"), false, cerrors.ErrCodeToolNotFound},
		{"success with empty output", "", nil, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeTree(t, map[string]string{"cpanfile": ""})
			d := &Dispatcher{Lister: &fakeLister{out: tt.out, err: tt.err}}

			c := d.Resolve(context.Background(), dir, "cpanfile")
			if got := len(c.Sources) == 1; got != tt.wantListing {
				t.Errorf("listing emitted = %v, want %v (sources %+v)", got, tt.wantListing, c.Sources)
			}
			if tt.wantErr == "" && c.Err != nil {
				t.Errorf("Err = %v, want nil", c.Err)
			}
			if tt.wantErr != "" && !cerrors.Is(c.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %s", c.Err, tt.wantErr)
			}
		})
	}
}

func TestDispatchCpanfileWithoutLister(t *testing.T) {
	dir := writeTree(t, map[string]string{"cpanfile": "", "META.json": metaJSON})

	c := (&Dispatcher{}).Resolve(context.Background(), dir, "cpanfile")
	if !cerrors.Is(c.Err, cerrors.ErrCodeToolNotFound) {
		t.Errorf("Err = %v, want %s", c.Err, cerrors.ErrCodeToolNotFound)
	}
	if len(c.Sources) != 1 || c.Sources[0].Name != "Foo" {
		t.Errorf("Sources = %+v, want the manifest record", c.Sources)
	}
}

func TestDispatchBuildScriptGeneratesManifest(t *testing.T) {
	dir := writeTree(t, map[string]string{"Makefile.PL": "", "META.yml": "name: Shipped\n"})
	toolchain := &fakeToolchain{writes: map[string]string{"MYMETA.json": metaJSON}}
	d := &Dispatcher{Toolchain: toolchain}

	c := d.Resolve(context.Background(), dir, "Makefile.PL")
	if c.Err != nil {
		t.Fatalf("Err = %v", c.Err)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "Makefile.PL")}, toolchain.calls); diff != "" {
		t.Errorf("toolchain calls mismatch (-want +got):\n%s", diff)
	}
	if len(c.Sources) != 1 || c.Sources[0].Origin != filepath.Join(dir, "MYMETA.json") {
		t.Errorf("Sources = %+v, want the generated MYMETA.json", c.Sources)
	}
}

func TestDispatchBuildScriptFallsBackOnBrokenManifest(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"Build.PL":    "",
		"MYMETA.json": "{broken",
		"MYMETA.yml":  "name: FromYAML\n",
	})

	c := (&Dispatcher{Toolchain: &fakeToolchain{}}).Resolve(context.Background(), dir, "Build.PL")
	if c.Err != nil {
		t.Fatalf("Err = %v", c.Err)
	}
	if len(c.Sources) != 1 || c.Sources[0].Name != "FromYAML" {
		t.Errorf("Sources = %+v, want MYMETA.yml record", c.Sources)
	}
	if len(c.Warnings) != 1 || !cerrors.Is(c.Warnings[0], cerrors.ErrCodeManifestParse) {
		t.Errorf("Warnings = %v, want the MYMETA.json parse failure", c.Warnings)
	}
}

func TestDispatchBuildScriptTimeoutNoMetadata(t *testing.T) {
	dir := writeTree(t, map[string]string{"Makefile.PL": ""})
	toolchain := &fakeToolchain{err: cerrors.New(cerrors.ErrCodeToolTimeout, "timed out")}

	c := (&Dispatcher{Toolchain: toolchain}).Resolve(context.Background(), dir, "Makefile.PL")
	if !cerrors.Is(c.Err, cerrors.ErrCodeNoMetadata) {
		t.Fatalf("Err = %v, want %s", c.Err, cerrors.ErrCodeNoMetadata)
	}
	if len(c.Sources) != 0 {
		t.Errorf("Sources = %+v, want none", c.Sources)
	}
}

func TestDispatchSubdirectory(t *testing.T) {
	dir := writeTree(t, map[string]string{"sub/Build.PL": "", "sub/META.json": metaJSON})

	c := (&Dispatcher{Toolchain: &fakeToolchain{}}).Resolve(context.Background(), dir, "sub/Build.PL")
	if c.Err != nil {
		t.Fatalf("Err = %v", c.Err)
	}
	if got := c.Sources[0].Path; got != filepath.Join(dir, "sub") {
		t.Errorf("Path = %q, want %q", got, filepath.Join(dir, "sub"))
	}
}

func TestDispatchCancelled(t *testing.T) {
	dir := writeTree(t, map[string]string{"Makefile.PL": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := (&Dispatcher{Toolchain: &fakeToolchain{block: true}}).Resolve(ctx, dir, "Makefile.PL")
	if c.Err != context.Canceled {
		t.Errorf("Err = %v, want context.Canceled", c.Err)
	}
}
