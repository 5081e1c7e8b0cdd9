// Package mockserver hosts a stub of the DataMate ingestion API for local
// development and demos. It accepts upload batches, logs what it sees,
// and can inject failures to exercise the uploader's partial-failure
// tolerance.
package mockserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config holds mock server configuration.
type Config struct {
	// FailEvery injects a 500 on every Nth upload request (0 disables).
	FailEvery int
	// Logger is the structured logger (discard if nil).
	Logger *slog.Logger
}

// Server is the stub ingestion backend.
type Server struct {
	logger    *slog.Logger
	failEvery int

	mu       sync.Mutex
	requests int
	accepted int
}

// New creates a mock server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{logger: logger, failEvery: cfg.FailEvery}
}

// Accepted returns the total number of file records accepted so far.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewMux()
	r.Use(middleware.Recoverer)
	r.Post("/api/data-management/datasets/{dataset}/files/upload/add", s.handleUploadAdd)
	return r
}

type uploadPayload struct {
	Files []struct {
		FilePath string            `json:"filePath"`
		Metadata map[string]string `json:"metadata"`
	} `json:"files"`
}

func (s *Server) handleUploadAdd(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")

	s.mu.Lock()
	s.requests++
	fail := s.failEvery > 0 && s.requests%s.failEvery == 0
	s.mu.Unlock()

	if fail {
		s.logger.Warn("injecting upload failure", "dataset", dataset)
		http.Error(w, "injected failure", http.StatusInternalServerError)
		return
	}

	var payload uploadPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logger.Error("failed to decode upload payload", "dataset", dataset, "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.accepted += len(payload.Files)
	s.mu.Unlock()

	s.logger.Info("accepted upload batch", "dataset", dataset, "files", len(payload.Files))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"accepted": len(payload.Files)})
}
