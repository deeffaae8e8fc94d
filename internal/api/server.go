// ABOUTME: HTTP server wiring for the keepsake REST API
// ABOUTME: Registers routes and auth gates on a ServeMux and shapes JSON responses

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/moiaimertoi/keepsake/internal/auth"
	"github.com/moiaimertoi/keepsake/internal/config"
	"github.com/moiaimertoi/keepsake/internal/store"
	"github.com/moiaimertoi/keepsake/internal/uploads"
)

// SuccessResponse is the envelope for mutation endpoints
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse is the JSON response for GET /api/health
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
}

// Server holds the handlers' shared dependencies
type Server struct {
	store  store.Store
	files  *uploads.Files
	tokens *auth.JWTVerifier
	chain  *auth.Chain
	cfg    *config.Config
	logger *slog.Logger
}

// NewServer creates the API server and its credential chain
func NewServer(st store.Store, files *uploads.Files, cfg *config.Config) *Server {
	tokens := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	chain := auth.NewChain(
		auth.NewBearerVerifier(tokens),
		auth.NewAPIKeyVerifier(cfg.Auth.APIKey),
	)

	return &Server{
		store:  st,
		files:  files,
		tokens: tokens,
		chain:  chain,
		cfg:    cfg,
		logger: slog.Default().With("component", "api"),
	}
}

// Routes returns the fully wired handler. Read endpoints are public;
// create/update/delete go through the credential chain before the
// handler runs.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	protected := auth.Require(s.chain)

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /uploads/{filename}", s.files)

	mux.HandleFunc("GET /api/couple-data", s.handleGetCoupleData)
	mux.HandleFunc("PUT /api/couple-data/start-date", protected(s.handleUpdateStartDate))
	mux.HandleFunc("PUT /api/couple-data/home-message", protected(s.handleUpdateHomeMessage))
	mux.HandleFunc("PUT /api/couple-data/intro", protected(s.handleUpdateIntro))

	mux.HandleFunc("GET /api/memories", s.handleListMemories)
	mux.HandleFunc("GET /api/memories/{id}", s.handleGetMemory)
	mux.HandleFunc("POST /api/memories", protected(s.handleCreateMemory))
	mux.HandleFunc("PUT /api/memories/{id}", protected(s.handleUpdateMemory))
	mux.HandleFunc("DELETE /api/memories/{id}", protected(s.handleDeleteMemory))

	mux.HandleFunc("GET /api/perspectives", s.handleListPerspectives)
	mux.HandleFunc("GET /api/perspectives/{number}", s.handleGetPerspective)
	mux.HandleFunc("POST /api/perspectives", protected(s.handleUpsertPerspective))
	mux.HandleFunc("PUT /api/perspectives/{number}", protected(s.handleUpdatePerspective))

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	return s.recovery(s.requestLog(s.cors(mux)))
}

// handleHealth handles GET /api/health requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "Backend is running!",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Database:  "SQLite",
	})
}

// writeJSON writes a JSON response with the given status
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// sendSuccess writes the success envelope mutation endpoints return
func (s *Server) sendSuccess(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: message})
}
