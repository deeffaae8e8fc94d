// ABOUTME: Login handler exchanging admin credentials for a bearer token
// ABOUTME: Compares against the configured admin user and issues HS256 JWTs

package api

import (
	"net/http"
)

// LoginRequest is the JSON request body for POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the JSON response for a successful login
type LoginResponse struct {
	Token string `json:"token"`
}

// handleLogin handles POST /api/auth/login.
// On mismatch the response never says which field was wrong.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Username != s.cfg.Auth.AdminUser || req.Password != s.cfg.Auth.AdminPass {
		s.sendJSONError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.tokens.Generate(req.Username, s.cfg.Auth.TokenTTL)
	if err != nil {
		s.logger.Error("failed to generate token", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}
