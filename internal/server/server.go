// Package server implements the preview server: it serves project files out
// of the virtual filesystem, renders an index shell for browsing, injects a
// live-reload script into HTML responses, and pushes reload notifications to
// connected browsers over websocket.
package server

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/conneroisu/sandcastle/internal/build"
	"github.com/conneroisu/sandcastle/internal/config"
	"github.com/conneroisu/sandcastle/internal/errors"
	"github.com/conneroisu/sandcastle/internal/logging"
	"github.com/conneroisu/sandcastle/internal/vfs"
)

// Server is the preview server over one project filesystem.
type Server struct {
	config  *config.Config
	fs      vfs.FileSystem
	driver  *build.Driver
	logger  logging.Logger
	hub     *ReloadHub
	httpSrv *http.Server
}

// New creates a preview server. The driver is optional; without one the
// server only serves files and never rebuilds.
func New(cfg *config.Config, fs vfs.FileSystem, driver *build.Driver, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		config: cfg,
		fs:     fs,
		driver: driver,
		logger: logger.WithComponent("server"),
		hub:    NewReloadHub(cfg, logger),
	}
	s.httpSrv = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, fmt.Sprintf("%d", cfg.Server.Port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's HTTP handler, exposed separately so tests can
// drive it without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.ServeHTTP)
	mux.HandleFunc("/", s.handleRequest)
	return mux
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "preview server listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.CloseAll()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

// NotifyReload broadcasts a reload message to every connected browser.
func (s *Server) NotifyReload(ctx context.Context) {
	s.hub.Broadcast(ctx)
}

// Rebuild runs a full project build and notifies clients on success.
func (s *Server) Rebuild(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	report, err := s.driver.BuildProject(ctx, s.config.Build.Root)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "rebuild complete",
		"built", report.Built, "cached", report.Cached, "warnings", len(report.Warnings))
	s.hub.Broadcast(ctx)
	return nil
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path == "/" {
		s.handleIndex(w, r)
		return
	}
	s.handleFile(w, r)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	files, err := s.listFiles(r.Context(), "/")
	if err != nil {
		s.logger.Error(r.Context(), err, "index listing failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	page, err := renderIndex(r.Context(), s.config, files)
	if err != nil {
		s.logger.Error(r.Context(), err, "index render failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(InjectReloadScript(page))
}

// handleFile serves a project file, preferring the compiled artifact under
// /build over the raw source at the same relative path.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	path := vfs.Normalize(r.URL.Path)
	if !vfs.IsSafe(path) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	data, err := s.fs.ReadFile(ctx, vfs.Join(build.OutputDir, path))
	if err != nil {
		data, err = s.fs.ReadFile(ctx, path)
	}
	if err != nil {
		if errors.IsNotExist(err) || errors.IsDir(err) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error(ctx, err, "file read failed", "path", path)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	contentType := contentTypeFor(path)
	w.Header().Set("Content-Type", contentType)
	if strings.HasPrefix(contentType, "text/html") {
		data = InjectReloadScript(data)
	}
	w.Write(data)
}

func (s *Server) listFiles(ctx context.Context, root string) ([]string, error) {
	var files []string
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := s.fs.ReadDirWithTypes(ctx, dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			path := vfs.Join(dir, entry.Name)
			if path == build.OutputDir || path == build.ModulesDir {
				continue
			}
			if entry.IsDirectory {
				if err := walk(path); err != nil {
					return err
				}
				continue
			}
			files = append(files, path)
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return files, nil
}

func contentTypeFor(path string) string {
	ext := vfs.Ext(path)
	switch ext {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js", ".mjs":
		return "text/javascript; charset=utf-8"
	case ".json":
		return "application/json"
	case ".svg":
		return "image/svg+xml"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
