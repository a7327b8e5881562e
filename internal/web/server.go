// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package web exposes the comparison service over HTTP: upload, compare,
// status polling, websocket push, result retrieval and export download.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"twinscan/internal/document"
	"twinscan/internal/export"
	"twinscan/internal/observability"
	"twinscan/internal/task"
	"twinscan/internal/version"

	// Import formatters to register them
	_ "twinscan/internal/export/csv"
	_ "twinscan/internal/export/json"
	_ "twinscan/internal/export/pdfreport"
	_ "twinscan/internal/export/text"
)

// Config holds the server settings.
type Config struct {
	Port        int
	UploadDir   string
	MaxUploadMB int64
}

// Server is the HTTP front for the task controller.
type Server struct {
	cfg        Config
	controller *task.Controller
	observer   *observability.Observer
	server     *http.Server
	startedAt  time.Time
}

// NewServer wires the HTTP routes around a running controller.
func NewServer(cfg Config, controller *task.Controller, observer *observability.Observer) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(os.TempDir(), "twinscan-uploads")
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 100
	}
	s := &Server{
		cfg:        cfg,
		controller: controller,
		observer:   observer,
		startedAt:  time.Now(),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// No global write timeout: websocket connections outlive any
		// sensible request deadline.
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/upload", s.handleUpload)
	mux.HandleFunc("POST /api/v1/compare", s.handleCompare)
	mux.HandleFunc("GET /api/v1/task/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/task/{id}/result", s.handleResult)
	mux.HandleFunc("POST /api/v1/task/{id}/cancel", s.handleCancel)
	mux.HandleFunc("DELETE /api/v1/task/{id}", s.handleDelete)
	mux.HandleFunc("GET /api/v1/task/{id}/export", s.handleExport)
	mux.HandleFunc("GET /api/v1/formats", s.handleFormats)
	mux.Handle("GET /api/v1/task/{id}/ws", websocket.Handler(s.handleWebsocket))
	return mux
}

// Start runs the server until Shutdown or a listen error.
func (s *Server) Start() error {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o750); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	fmt.Printf("twinscan server listening on port %d\n", s.cfg.Port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes the server immediately.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// handleIndex describes the service and its endpoints.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "twinscan",
		"version": version.Short(),
		"endpoints": []string{
			"GET /health",
			"POST /api/v1/upload",
			"POST /api/v1/compare",
			"GET /api/v1/task/{id}/status",
			"GET /api/v1/task/{id}/result",
			"POST /api/v1/task/{id}/cancel",
			"DELETE /api/v1/task/{id}",
			"GET /api/v1/task/{id}/export",
			"GET /api/v1/task/{id}/ws",
			"GET /api/v1/formats",
		},
	})
}

// handleHealth reports liveness and build information.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"service":       "twinscan",
		"version":       version.Short(),
		"uptimeSeconds": time.Since(s.startedAt).Seconds(),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

// uploadResponse names the stored handle a later compare request refers to.
type uploadResponse struct {
	FileID   string `json:"fileId"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// handleUpload stores one multipart file and returns its handle.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	finish := s.observer.StartTiming("web", "upload", "")
	defer func() { finish(true, nil) }()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	stored, size, err := s.saveUpload(file, header)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		FileID:   filepath.Base(stored),
		Filename: header.Filename,
		Size:     size,
	})
}

// saveUpload writes the upload under a random name, keeping only the original
// extension. Uploads never keep a client-supplied path.
func (s *Server) saveUpload(file multipart.File, header *multipart.FileHeader) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	name := uuid.NewString() + ext
	dst := filepath.Join(s.cfg.UploadDir, name)
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", 0, err
	}
	defer out.Close()
	n, err := io.Copy(out, file)
	if err != nil {
		os.Remove(dst)
		return "", 0, err
	}
	return dst, n, nil
}

// compareRequest starts a comparison between two previously uploaded files.
type compareRequest struct {
	File1ID    string      `json:"file1Id"`
	File2ID    string      `json:"file2Id"`
	Params     task.Params `json:"params"`
	PageRange1 string      `json:"pageRange1,omitempty"`
	PageRange2 string      `json:"pageRange2,omitempty"`
}

type compareResponse struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	// Pre-fill the API defaults so only fields absent from the request body
	// fall back to them. An explicit zero (contextChars, minLineLength) is a
	// value, not an omission.
	req := compareRequest{Params: task.DefaultParams()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.File1ID == "" || req.File2ID == "" {
		writeError(w, http.StatusBadRequest, "file1Id and file2Id are required")
		return
	}

	path1, err := s.resolveUpload(req.File1ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	path2, err := s.resolveUpload(req.File2ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := req.Params
	if req.PageRange1 != "" {
		pr, err := document.ParsePageRange(req.PageRange1)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		params.PageRange1 = pr
	}
	if req.PageRange2 != "" {
		pr, err := document.ParsePageRange(req.PageRange2)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		params.PageRange2 = pr
	}

	finish := s.observer.StartTiming("web", "compare", "")
	id, err := s.controller.Submit(params, path1, path2)
	if err != nil {
		finish(false, nil)
		writeStatusError(w, err)
		return
	}
	finish(true, map[string]interface{}{"taskId": id})
	writeJSON(w, http.StatusAccepted, compareResponse{TaskID: id, Status: "pending"})
}

// resolveUpload maps a file handle back to its stored path. Handles are the
// base names saveUpload produced; anything with a path separator is rejected.
func (s *Server) resolveUpload(fileID string) (string, error) {
	if fileID != filepath.Base(fileID) || strings.Contains(fileID, "..") {
		return "", fmt.Errorf("invalid file id %q", fileID)
	}
	path := filepath.Join(s.cfg.UploadDir, fileID)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("unknown file id %q", fileID)
	}
	return path, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.controller.Status(r.PathValue("id"))
	if err != nil {
		writeStatusError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.controller.Result(r.PathValue("id"))
	if err != nil {
		writeStatusError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.controller.Cancel(id); err != nil {
		writeStatusError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"taskId": id, "status": "cancelling"})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.controller.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	result, err := s.controller.Result(r.PathValue("id"))
	if err != nil {
		writeStatusError(w, err)
		return
	}
	content, mimeType, filename, err := export.ExportForWeb(format, result, export.Options{
		NoColor: true,
		Verbose: r.URL.Query().Get("verbose") == "true",
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"formats": export.List()})
}

// handleWebsocket streams progress updates until the task reaches a terminal
// state or the client goes away.
func (s *Server) handleWebsocket(ws *websocket.Conn) {
	defer ws.Close()
	id := ws.Request().PathValue("id")

	updates, cancel, err := s.controller.Subscribe(id)
	if err != nil {
		websocket.JSON.Send(ws, map[string]string{"error": "task not found"})
		return
	}
	defer cancel()

	for u := range updates {
		if err := websocket.JSON.Send(ws, u); err != nil {
			return
		}
		if u.Terminal {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeStatusError maps the error taxonomy onto HTTP status codes.
func writeStatusError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, document.ErrNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, document.ErrNotReady), errors.Is(err, document.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case document.IsUsageError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
