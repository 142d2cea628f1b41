package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
	"github.com/matzehuels/cpanmeta/pkg/pipeline"
)

// FileStore is a file-based result store for CLI use.
// Results are stored as JSON files named after their run ID.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based result store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "store directory cannot be empty")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, cerrors.WrapPath(cerrors.ErrCodeStoreFailure, err, baseDir, "create store dir")
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) resultPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Save(ctx context.Context, res *pipeline.Result) error {
	if res == nil {
		return cerrors.New(cerrors.ErrCodeInvalidInput, "result cannot be nil")
	}
	if err := validateID(res.ID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return cerrors.Wrap(cerrors.ErrCodeStoreFailure, err, "marshal result")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.resultPath(res.ID)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return cerrors.WrapPath(cerrors.ErrCodeStoreFailure, err, path, "write result")
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*pipeline.Result, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.resultPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cerrors.WrapPath(cerrors.ErrCodeStoreFailure, err, path, "read result")
	}

	var res pipeline.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, cerrors.WrapPath(cerrors.ErrCodeStoreFailure, err, path, "parse result")
	}
	return &res, nil
}

func (s *FileStore) List(ctx context.Context, dir string, limit int) ([]*pipeline.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, cerrors.WrapPath(cerrors.ErrCodeStoreFailure, err, s.baseDir, "read store dir")
	}

	var out []*pipeline.Result
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var res pipeline.Result
		if err := json.Unmarshal(data, &res); err != nil {
			continue
		}
		if dir != "" && res.Dir != dir {
			continue
		}
		out = append(out, &res)
	}

	slices.SortStableFunc(out, func(a, b *pipeline.Result) int {
		if c := b.ResolvedAt.Compare(a.ResolvedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if n := listLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.resultPath(id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return cerrors.WrapPath(cerrors.ErrCodeStoreFailure, err, path, "remove result")
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory for result files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
