// Package store persists resolution results beyond the lifetime of the cache.
//
// The cache answers "what did this directory resolve to last time"; the store
// keeps a history of runs addressable by run ID, so reports can be compared
// or re-rendered later. Two backends exist:
//   - [FileStore]: one JSON file per run, for single-user CLI use
//   - [Mongo]: a MongoDB collection, for the HTTP server and shared setups
//
// # Usage
//
//	st, err := store.NewMongo(ctx, store.MongoConfig{URI: "mongodb://localhost:27017"})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	if err := st.Save(ctx, result); err != nil {
//	    return err
//	}
//	history, err := st.List(ctx, result.Dir, 10)
package store

import (
	"context"

	"github.com/google/uuid"

	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
	"github.com/matzehuels/cpanmeta/pkg/pipeline"
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Store is the interface for result storage backends.
type Store interface {
	// Save stores a result under its ID, replacing any previous copy.
	Save(ctx context.Context, res *pipeline.Result) error

	// Get retrieves a result by ID.
	// Returns nil, nil if the result doesn't exist.
	Get(ctx context.Context, id string) (*pipeline.Result, error)

	// List returns the results recorded for dir, newest first.
	// An empty dir lists all results.
	List(ctx context.Context, dir string, limit int) ([]*pipeline.Result, error)

	// Delete removes a result. Deleting a missing result is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// validateID rejects anything that is not a run ID issued by the pipeline.
func validateID(id string) error {
	if id == "" {
		return cerrors.New(cerrors.ErrCodeInvalidInput, "result ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "invalid result ID %q", id)
	}
	return nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
