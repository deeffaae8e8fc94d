// ABOUTME: Handlers for the memory resource, including photo attachments
// ABOUTME: Create and update accept either a JSON or a multipart body

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/moiaimertoi/keepsake/internal/store"
)

// maxUploadBytes bounds the in-memory portion of multipart parsing
const maxUploadBytes = 32 << 20

// MemoryResponse is the JSON shape of a memory. PhotoURL is the servable
// /uploads path derived from the stored filename, or null.
type MemoryResponse struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	PhotoFilename *string `json:"photo_filename"`
	PhotoURL      *string `json:"photo_url"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func memoryResponse(m *store.Memory) MemoryResponse {
	resp := MemoryResponse{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   m.UpdatedAt.Format(time.RFC3339),
	}

	if m.PhotoFilename != "" {
		filename := m.PhotoFilename
		url := "/uploads/" + m.PhotoFilename
		resp.PhotoFilename = &filename
		resp.PhotoURL = &url
	}

	return resp
}

// memoryInput is the transport-agnostic create/update payload. The JSON
// and multipart front-ends both produce it, so the handlers never care
// which body format the client sent.
type memoryInput struct {
	Title       string
	Description string

	photo     io.ReadCloser
	photoName string
}

func (in *memoryInput) close() {
	if in.photo != nil {
		in.photo.Close()
	}
}

// parseMemoryInput decodes either a multipart form (fields title and
// description plus an optional "photo" file part) or a JSON body with
// the same fields. An empty JSON body yields an empty input.
func parseMemoryInput(r *http.Request) (*memoryInput, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, errors.New("invalid multipart body")
		}

		in := &memoryInput{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
		}

		file, header, err := r.FormFile("photo")
		if err == nil {
			in.photo = file
			in.photoName = header.Filename
		} else if !errors.Is(err, http.ErrMissingFile) {
			return nil, errors.New("invalid photo part")
		}

		return in, nil
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		return nil, err
	}

	return &memoryInput{Title: req.Title, Description: req.Description}, nil
}

// memoryID parses the {id} path value
func memoryID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// handleListMemories handles GET /api/memories, newest first
func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	memories, err := s.store.ListMemories(r.Context())
	if err != nil {
		s.logger.Error("failed to list memories", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]MemoryResponse, len(memories))
	for i, m := range memories {
		response[i] = memoryResponse(m)
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleGetMemory handles GET /api/memories/{id}
func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	id, err := memoryID(r)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	memory, err := s.store.GetMemory(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "Memory not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get memory", "error", err, "id", id)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, memoryResponse(memory))
}

// handleCreateMemory handles POST /api/memories.
// The photo file, if any, is written before the record is inserted, so a
// stored filename always points at an existing file.
func (s *Server) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	in, err := parseMemoryInput(r)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer in.close()

	if in.Title == "" || in.Description == "" {
		s.sendJSONError(w, http.StatusBadRequest, "Title and description are required")
		return
	}

	memory := &store.Memory{
		Title:       in.Title,
		Description: in.Description,
	}

	if in.photo != nil {
		stored, err := s.files.Save(in.photoName, in.photo)
		if err != nil {
			s.logger.Error("failed to save photo", "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		memory.PhotoFilename = stored
	}

	if err := s.store.CreateMemory(r.Context(), memory); err != nil {
		s.logger.Error("failed to create memory", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusCreated, memoryResponse(memory))
}

// handleUpdateMemory handles PUT /api/memories/{id}.
// Fields are not validated and an unknown id is a silent no-op success.
// A new photo replaces the stored filename; the previous file is left in
// place as an accepted orphan.
func (s *Server) handleUpdateMemory(w http.ResponseWriter, r *http.Request) {
	id, err := memoryID(r)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	in, err := parseMemoryInput(r)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer in.close()

	var photoFilename *string
	if in.photo != nil {
		stored, err := s.files.Save(in.photoName, in.photo)
		if err != nil {
			s.logger.Error("failed to save photo", "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		photoFilename = &stored
	}

	if err := s.store.UpdateMemory(r.Context(), id, in.Title, in.Description, photoFilename); err != nil {
		s.logger.Error("failed to update memory", "error", err, "id", id)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendSuccess(w, "Memory updated")
}

// handleDeleteMemory handles DELETE /api/memories/{id}.
// The attached file is removed best-effort before the row; a file
// removal failure is logged and never blocks the record deletion.
func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	id, err := memoryID(r)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	memory, err := s.store.GetMemory(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("failed to look up memory", "error", err, "id", id)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if memory != nil && memory.PhotoFilename != "" {
		if err := s.files.Remove(memory.PhotoFilename); err != nil {
			s.logger.Warn("could not remove photo file", "filename", memory.PhotoFilename, "error", err)
		}
	}

	if err := s.store.DeleteMemory(r.Context(), id); err != nil {
		s.logger.Error("failed to delete memory", "error", err, "id", id)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendSuccess(w, "Memory deleted")
}
