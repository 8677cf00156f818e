// SPDX-License-Identifier: MPL-2.0

package catalogserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"barkmods-cli/internal/catalog"
)

const (
	// DefaultMaxUploadBytes caps request bodies when Options leaves it zero.
	DefaultMaxUploadBytes int64 = 100 << 20

	// multipartMemory is kept in memory before multipart parts spill to disk.
	multipartMemory = 8 << 20
)

// ErrAlreadyRunning is returned by Start on a running server.
var ErrAlreadyRunning = errors.New("catalog server already running")

type (
	// Options configures a Server.
	Options struct {
		Service *catalog.Service
		// Addr is the listen address, e.g. "127.0.0.1:5000". Port 0 picks a
		// free port.
		Addr           string
		MaxUploadBytes int64
		Logger         *log.Logger
	}

	// Server serves the catalog over HTTP with JSON responses.
	Server struct {
		service        *catalog.Service
		addr           string
		maxUploadBytes int64
		logger         *log.Logger
		handler        http.Handler

		mu         sync.Mutex
		httpServer *http.Server
		listener   net.Listener
		errCh      chan error
	}

	errorResponse struct {
		Error string `json:"error"`
	}

	deleteResponse struct {
		Deleted int64 `json:"deleted"`
	}
)

// New creates a Server. Nothing listens until Start.
func New(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, errors.New("catalog service is required")
	}
	maxBytes := opts.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Server{
		service:        opts.Service,
		addr:           opts.Addr,
		maxUploadBytes: maxBytes,
		logger:         logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/mods", s.handleList)
	mux.HandleFunc("POST /api/mods", s.handleUpload)
	mux.HandleFunc("GET /api/mods/{id}", s.handleGet)
	mux.HandleFunc("POST /api/mods/{id}/delete", s.handleDelete)
	mux.HandleFunc("GET /files/{filename}", s.handleFile)
	mux.HandleFunc("GET /screenshots/{filename}", s.handleScreenshot)
	s.handler = s.limitBody(mux)

	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins accepting connections. This is non-blocking.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return ErrAlreadyRunning
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	s.listener = listener
	s.errCh = make(chan error, 1)
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	srv, errCh := s.httpServer, s.errCh
	go func() {
		err := srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.Info("catalog listening", "addr", listener.Addr().String())
	return nil
}

// Wait blocks until the server stops or ctx is done, then shuts it down.
func (s *Server) Wait(ctx context.Context) error {
	s.mu.Lock()
	errCh := s.errCh
	s.mu.Unlock()
	if errCh == nil {
		return nil
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Address returns the bound address once started, else the configured one.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// URL returns the base URL, e.g. "http://127.0.0.1:5000".
func (s *Server) URL() string {
	return "http://" + s.Address()
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	mods, err := s.service.List(r.Context())
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	if mods == nil {
		mods = []catalog.Mod{}
	}
	s.sendJSON(w, http.StatusOK, mods)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	mod, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, mod)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.sendError(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.sendError(w, "malformed upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req := catalog.UploadRequest{
		Name:         r.FormValue("mod_name"),
		Author:       r.FormValue("author"),
		Version:      r.FormValue("version"),
		Description:  r.FormValue("description"),
		Dependencies: r.FormValue("dependencies"),
	}

	file, header, err := r.FormFile("mod_file")
	if err == nil {
		defer func() { _ = file.Close() }()
		req.File = file
		req.FileName = header.Filename
	}

	shot, shotHeader, err := r.FormFile("screenshot")
	if err == nil {
		defer func() { _ = shot.Close() }()
		req.Screenshot = shot
		req.ScreenshotName = shotHeader.Filename
	}

	mod, err := s.service.Upload(r.Context(), req)
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, mod)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.service.Delete(r.Context(), id, r.FormValue("password")); err != nil {
		s.sendFailure(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, deleteResponse{Deleted: id})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	s.serveStored(w, r, s.service.FilePath, true)
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	s.serveStored(w, r, s.service.ScreenshotPath, false)
}

func (s *Server) serveStored(w http.ResponseWriter, r *http.Request, resolve func(string) (string, error), attachment bool) {
	name := r.PathValue("filename")
	path, err := resolve(name)
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	http.ServeFile(w, r, path)
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.sendError(w, "invalid mod id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// sendFailure maps a service error to a status code.
func (s *Server) sendFailure(w http.ResponseWriter, err error) {
	var (
		missing  *catalog.MissingFieldError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &missing), errors.Is(err, catalog.ErrInvalidFileName):
		s.sendError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &tooLarge):
		// Streaming the file part can still hit the cap after the form parsed.
		s.sendError(w, "upload too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, catalog.ErrNotFound):
		s.sendError(w, "mod not found", http.StatusNotFound)
	case errors.Is(err, catalog.ErrWrongPassword):
		s.sendError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, catalog.ErrDeleteDisabled):
		s.sendError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, catalog.ErrBusy):
		s.sendError(w, "catalog busy, retry later", http.StatusServiceUnavailable)
	default:
		s.logger.Error("catalog request failed", "err", err)
		s.sendError(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) sendError(w http.ResponseWriter, msg string, statusCode int) {
	s.sendJSON(w, statusCode, errorResponse{Error: msg})
}

func (s *Server) sendJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
