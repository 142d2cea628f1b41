package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/cpanmeta/pkg/buildinfo"
	"github.com/matzehuels/cpanmeta/pkg/deps/perl"
	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
	"github.com/matzehuels/cpanmeta/pkg/pipeline"
)

// ResolveRequest is the body of POST /v1/resolve.
type ResolveRequest struct {
	Dir             string   `json:"dir"` // relative to the server root; empty means the root
	Recursive       bool     `json:"recursive,omitempty"`
	IgnoreFiles     []string `json:"ignore_files,omitempty"`
	IgnoreDeps      []string `json:"ignore_deps,omitempty"`
	AssociatedFiles bool     `json:"associated_files,omitempty"`
	Reduce          bool     `json:"reduce,omitempty"`
	Refresh         bool     `json:"refresh,omitempty"`
	Save            bool     `json:"save,omitempty"`
}

// DiscoverResponse is the body returned by GET /v1/discover.
type DiscoverResponse struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string       `json:"error"`
	Code  cerrors.Code `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
		"date":    buildinfo.Date,
	})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dir, err := s.resolveDir(q.Get("dir"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	recursive, _ := strconv.ParseBool(q.Get("recursive"))
	ignore := q["ignore"]
	for _, p := range ignore {
		if err := cerrors.ValidateIgnorePattern(p); err != nil {
			s.writeError(w, err)
			return
		}
	}

	files, err := perl.Discover(dir, perl.DiscoverOptions{Recursive: recursive, Ignore: ignore})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DiscoverResponse{Dir: dir, Files: files})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "invalid request body: %v", err))
		return
	}
	if req.Save && s.store == nil {
		s.writeError(w, cerrors.New(cerrors.ErrCodeUnsupported, "result storage is not configured"))
		return
	}

	dir, err := s.resolveDir(req.Dir)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.runner.Resolve(r.Context(), pipeline.Options{
		Dir:             dir,
		Recursive:       req.Recursive,
		IgnoreFiles:     req.IgnoreFiles,
		IgnoreDeps:      req.IgnoreDeps,
		AssociatedFiles: req.AssociatedFiles,
		Reduce:          req.Reduce,
		Refresh:         req.Refresh,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.Save {
		if err := s.store.Save(r.Context(), res); err != nil {
			s.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, cerrors.New(cerrors.ErrCodeUnsupported, "result storage is not configured"))
		return
	}
	id := chi.URLParam(r, "id")
	res, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if res == nil {
		s.writeError(w, cerrors.New(cerrors.ErrCodeFileNotFound, "no result with ID %s", id))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// resolveDir maps a request directory onto the server root.
func (s *Server) resolveDir(rel string) (string, error) {
	if rel == "" || rel == "." {
		return s.root, nil
	}
	if err := cerrors.ValidatePath(rel); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

func statusFor(err error) int {
	if errors.Is(err, context.Canceled) {
		return 499
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch cerrors.GetCode(err) {
	case cerrors.ErrCodeInvalidInput, cerrors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case cerrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case cerrors.ErrCodeDiscovery:
		return http.StatusUnprocessableEntity
	case cerrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{
		Error: cerrors.UserMessage(err),
		Code:  cerrors.GetCode(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
