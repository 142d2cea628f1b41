// Package server exposes the resolution pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz          liveness probe
//	GET  /version          build information
//	GET  /v1/discover      build files of a directory (?dir=&recursive=&ignore=)
//	POST /v1/resolve       resolve a directory (JSON body, see ResolveRequest)
//	GET  /v1/results/{id}  a result saved by an earlier resolve with "save": true
//
// Directories are always given relative to the configured root; absolute
// paths and ".." segments are rejected so callers cannot leave the root.
package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
	"github.com/matzehuels/cpanmeta/pkg/pipeline"
	"github.com/matzehuels/cpanmeta/pkg/store"
)

const (
	shutdownTimeout = 10 * time.Second

	// maxBodyBytes bounds resolve request bodies.
	maxBodyBytes = 1 << 20
)

// Config configures a Server.
type Config struct {
	Addr string
	Root string // directory requests are resolved against

	Runner *pipeline.Runner
	Store  store.Store // optional; saving and /v1/results need it
	Logger *log.Logger
}

// Server is the HTTP API server.
type Server struct {
	root       string
	runner     *pipeline.Runner
	store      store.Store
	logger     *log.Logger
	httpServer *http.Server
}

// New creates a server. The root is made absolute once so every request is
// resolved against the same directory.
func New(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "server needs a pipeline runner")
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, cerrors.WrapPath(cerrors.ErrCodeInvalidPath, err, cfg.Root, "resolve server root")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		root:   root,
		runner: cfg.Runner,
		store:  cfg.Store,
		logger: logger,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Root returns the absolute directory requests are resolved against.
func (s *Server) Root() string { return s.root }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "addr", s.httpServer.Addr, "root", s.root)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
