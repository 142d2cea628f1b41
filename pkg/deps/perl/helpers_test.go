package perl

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// writeTree creates files (slash-separated relative paths) under a new temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

type fakeLister struct {
	mu    sync.Mutex
	out   string
	err   error
	calls []string
}

func (f *fakeLister) ListDependencies(_ context.Context, dir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dir)
	return f.out, f.err
}

// fakeToolchain optionally writes files into the script's directory,
// mimicking a build script that generates MYMETA files.
type fakeToolchain struct {
	mu     sync.Mutex
	writes map[string]string
	err    error
	block  bool
	calls  []string
}

func (f *fakeToolchain) RunScript(ctx context.Context, script, dir string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, filepath.Join(dir, script))
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	for name, content := range f.writes {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return "", err
		}
	}
	return "Writing MYMETA.yml and MYMETA.json\n", f.err
}
