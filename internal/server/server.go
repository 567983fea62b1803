// Package server exposes the local HTTP API the dashboard talks to:
// health, project snapshot, chat, and a websocket feed of live changes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/umbra-dev/umbra/internal/mermaid"
	"github.com/umbra-dev/umbra/internal/scan"
)

// Answerer answers a single question about the project. Satisfied by
// chat.Session.
type Answerer interface {
	Ask(ctx context.Context, question string) (string, error)
}

// ProjectFile is one file entry in the project snapshot.
type ProjectFile struct {
	Path    string `json:"path"`
	Lines   int    `json:"lines"`
	Preview string `json:"preview"`
}

// ProjectData is the snapshot served to the dashboard.
type ProjectData struct {
	Name    string        `json:"name"`
	Path    string        `json:"path"`
	Diagram string        `json:"diagram"`
	Summary string        `json:"summary"`
	Files   []ProjectFile `json:"files"`
}

const previewBytes = 500

// Config wires a server to one project.
type Config struct {
	Root     string
	ArchFile string
	Chat     Answerer
}

// Server is the dashboard API server.
type Server struct {
	root     string
	archFile string
	chat     Answerer
	hub      *hub

	mu     sync.Mutex
	cached *ProjectData

	httpSrv *http.Server
}

// New creates a server for the given project.
func New(cfg Config) *Server {
	return &Server{
		root:     cfg.Root,
		archFile: cfg.ArchFile,
		chat:     cfg.Chat,
		hub:      newHub(),
	}
}

// Handler returns the routed handler, exported for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/project", s.handleProject)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/ws", s.hub.handleWS)
	return withCORS(mux)
}

// Start serves on localhost:port and blocks until Shutdown.
func (s *Server) Start(port int) error {
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("chat server listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// NotifyChange pushes a change event to websocket clients and drops the
// cached snapshot so the next /project reflects the new state.
func (s *Server) NotifyChange(event any) {
	s.InvalidateCache()
	s.hub.broadcast(event)
}

// InvalidateCache drops the cached project snapshot.
func (s *Server) InvalidateCache() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.projectData())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if s.chat == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "chat is not configured"})
		return
	}
	answer, err := s.chat.Ask(r.Context(), req.Question)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) projectData() *ProjectData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return s.cached
	}

	abs, err := filepath.Abs(s.root)
	if err != nil {
		abs = s.root
	}
	data := &ProjectData{
		Name:  filepath.Base(abs),
		Path:  abs,
		Files: []ProjectFile{},
	}

	if raw, err := os.ReadFile(s.archFile); err == nil {
		content := string(raw)
		data.Diagram = mermaid.ExtractFromMarkdown(content)
		data.Summary = extractSummary(content)
	}

	files, err := scan.Load(s.root)
	if err != nil {
		slog.Warn("project snapshot scan failed", "error", err)
	}
	for _, f := range files {
		preview := f.Content
		if len(preview) > previewBytes {
			preview = preview[:previewBytes]
		}
		data.Files = append(data.Files, ProjectFile{Path: f.Rel, Lines: f.Lines, Preview: preview})
	}

	s.cached = data
	return data
}

func extractSummary(content string) string {
	start := strings.Index(content, "## Project Summary")
	if start < 0 {
		return ""
	}
	start += len("## Project Summary")
	rest := content[start:]
	if end := strings.Index(rest, "## System Overview"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
