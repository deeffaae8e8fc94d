// ABOUTME: Handlers for the singleton couple profile resource
// ABOUTME: GET is public; the three per-field updates are auth-gated

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/moiaimertoi/keepsake/internal/store"
)

// CoupleProfileResponse is the JSON shape of the couple profile
type CoupleProfileResponse struct {
	ID          int64  `json:"id"`
	StartDate   string `json:"start_date"`
	HomeMessage string `json:"home_message"`
	IntroText   string `json:"intro_text"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// handleGetCoupleData handles GET /api/couple-data.
// An empty table yields an empty object, never an error.
func (s *Server) handleGetCoupleData(w http.ResponseWriter, r *http.Request) {
	profile, err := s.store.GetCoupleProfile(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		s.writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	if err != nil {
		s.logger.Error("failed to get couple profile", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, CoupleProfileResponse{
		ID:          profile.ID,
		StartDate:   profile.StartDate,
		HomeMessage: profile.HomeMessage,
		IntroText:   profile.IntroText,
		CreatedAt:   profile.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   profile.UpdatedAt.Format(time.RFC3339),
	})
}

// decodeJSONBody decodes a JSON body into v. An empty body is allowed
// and leaves v untouched, matching the original API's tolerance.
func decodeJSONBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON body")
	}
	return nil
}

// handleUpdateStartDate handles PUT /api/couple-data/start-date.
// start_date is the one couple field that is validated as non-empty.
func (s *Server) handleUpdateStartDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDate string `json:"start_date"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.StartDate == "" {
		s.sendJSONError(w, http.StatusBadRequest, "start_date is required")
		return
	}

	if err := s.store.SetStartDate(r.Context(), req.StartDate); err != nil {
		s.logger.Error("failed to update start date", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendSuccess(w, "Start date updated")
}

// handleUpdateHomeMessage handles PUT /api/couple-data/home-message.
// An absent field clears the message; no validation.
func (s *Server) handleUpdateHomeMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HomeMessage string `json:"home_message"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.SetHomeMessage(r.Context(), req.HomeMessage); err != nil {
		s.logger.Error("failed to update home message", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendSuccess(w, "Home message updated")
}

// handleUpdateIntro handles PUT /api/couple-data/intro.
// An absent field clears the text; no validation.
func (s *Server) handleUpdateIntro(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IntroText string `json:"intro_text"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.SetIntroText(r.Context(), req.IntroText); err != nil {
		s.logger.Error("failed to update intro text", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendSuccess(w, "Intro text updated")
}
