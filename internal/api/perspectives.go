// ABOUTME: Handlers for the numbered perspective resource
// ABOUTME: POST is a validated upsert; GET for a missing number returns a placeholder

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/moiaimertoi/keepsake/internal/store"
)

// PerspectiveResponse is the JSON shape of a perspective. For the
// missing-number placeholder only perspective_number and content are set.
type PerspectiveResponse struct {
	ID                int64  `json:"id,omitempty"`
	PerspectiveNumber int    `json:"perspective_number"`
	Content           string `json:"content"`
	CreatedAt         string `json:"created_at,omitempty"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

func perspectiveResponse(p *store.Perspective) PerspectiveResponse {
	return PerspectiveResponse{
		ID:                p.ID,
		PerspectiveNumber: p.PerspectiveNumber,
		Content:           p.Content,
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         p.UpdatedAt.Format(time.RFC3339),
	}
}

// perspectiveNumber parses the {number} path value
func perspectiveNumber(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("number"))
}

// handleListPerspectives handles GET /api/perspectives, ordered by number
func (s *Server) handleListPerspectives(w http.ResponseWriter, r *http.Request) {
	perspectives, err := s.store.ListPerspectives(r.Context())
	if err != nil {
		s.logger.Error("failed to list perspectives", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]PerspectiveResponse, len(perspectives))
	for i, p := range perspectives {
		response[i] = perspectiveResponse(p)
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleGetPerspective handles GET /api/perspectives/{number}.
// A number with no row yields an empty placeholder with status 200, never
// a 404; the front-end renders unwritten perspectives as blank pages.
func (s *Server) handleGetPerspective(w http.ResponseWriter, r *http.Request) {
	number, err := perspectiveNumber(r)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid perspective number")
		return
	}

	p, err := s.store.GetPerspective(r.Context(), number)
	if errors.Is(err, store.ErrNotFound) {
		s.writeJSON(w, http.StatusOK, PerspectiveResponse{
			PerspectiveNumber: number,
			Content:           "",
		})
		return
	}
	if err != nil {
		s.logger.Error("failed to get perspective", "error", err, "number", number)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, perspectiveResponse(p))
}

// handleUpsertPerspective handles POST /api/perspectives.
// This is the sole creation path; it inserts or updates keyed on
// perspective_number.
func (s *Server) handleUpsertPerspective(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PerspectiveNumber int    `json:"perspective_number"`
		Content           string `json:"content"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.PerspectiveNumber <= 0 || req.Content == "" {
		s.sendJSONError(w, http.StatusBadRequest, "perspective_number and content are required")
		return
	}

	if err := s.store.UpsertPerspective(r.Context(), req.PerspectiveNumber, req.Content); err != nil {
		s.logger.Error("failed to upsert perspective", "error", err, "number", req.PerspectiveNumber)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendSuccess(w, "Perspective saved")
}

// handleUpdatePerspective handles PUT /api/perspectives/{number}.
// No validation and no existence check: an unknown number updates zero
// rows and still reports success, without creating a row.
func (s *Server) handleUpdatePerspective(w http.ResponseWriter, r *http.Request) {
	number, err := perspectiveNumber(r)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid perspective number")
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdatePerspective(r.Context(), number, req.Content); err != nil {
		s.logger.Error("failed to update perspective", "error", err, "number", number)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendSuccess(w, "Perspective updated")
}
