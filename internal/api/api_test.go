// ABOUTME: End-to-end handler tests over the full route table
// ABOUTME: Exercises auth gating, both body transports, and the API quirks

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moiaimertoi/keepsake/internal/config"
	"github.com/moiaimertoi/keepsake/internal/store"
	"github.com/moiaimertoi/keepsake/internal/uploads"
)

type testServer struct {
	handler http.Handler
	files   *uploads.Files
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()

	st, err := store.NewSQLiteStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	files, err := uploads.New(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	cfg := &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "localhost:0"},
		Database: config.DatabaseConfig{Path: filepath.Join(dir, "test.db")},
		Uploads:  config.UploadsConfig{Dir: files.Dir()},
		Auth: config.AuthConfig{
			JWTSecret: "test-jwt-secret",
			APIKey:    "dev-key",
			AdminUser: "admin",
			AdminPass: "password",
			TokenTTL:  time.Hour,
		},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}

	srv := NewServer(st, files, cfg)

	return &testServer{handler: srv.Routes(), files: files}
}

// do runs a request through the full middleware-wrapped handler
func (ts *testServer) do(method, target string, body io.Reader, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, body)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(r)
	}

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	return w
}

func withAPIKey(r *http.Request) {
	r.Header.Set("X-API-KEY", "dev-key")
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	decodeBody(t, w, &body)
	return body["error"]
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health HealthResponse
	decodeBody(t, w, &health)
	assert.Equal(t, "Backend is running!", health.Status)
	assert.Equal(t, "SQLite", health.Database)
	assert.NotEmpty(t, health.Timestamp)
}

func TestCORS_HeadersOnEveryResponse(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("GET", "/api/couple-data", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightForMutatingRoute(t *testing.T) {
	ts := newTestServer(t)

	// A cross-origin PUT triggers a preflight; it must be answered
	// without auth and without reaching a handler.
	w := ts.do("OPTIONS", "/api/memories/1", nil, func(r *http.Request) {
		r.Header.Set("Origin", "http://localhost:3000")
		r.Header.Set("Access-Control-Request-Method", "PUT")
		r.Header.Set("Access-Control-Request-Headers", "authorization, content-type")
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	allowHeaders := w.Header().Get("Access-Control-Allow-Headers")
	assert.Contains(t, allowHeaders, "Authorization")
	assert.Contains(t, allowHeaders, "X-API-KEY")
}

func TestLogin_Success(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("POST", "/api/auth/login", jsonBody(t, LoginRequest{
		Username: "admin",
		Password: "password",
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	decodeBody(t, w, &resp)
	assert.NotEmpty(t, resp.Token)
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("POST", "/api/auth/login", jsonBody(t, LoginRequest{
		Username: "admin",
		Password: "wrong",
	}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", errorMessage(t, w))
}

func TestProtectedEndpoint_NoCredentials(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("POST", "/api/memories", jsonBody(t, map[string]string{
		"title":       "Paris",
		"description": "Our trip",
	}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", errorMessage(t, w))
}

func TestProtectedEndpoint_BadBearerDoesNotFallBack(t *testing.T) {
	ts := newTestServer(t)

	// An invalid bearer token is terminal even with a valid api_key in
	// the query string.
	w := ts.do("POST", "/api/memories?api_key=dev-key", jsonBody(t, map[string]string{
		"title":       "Paris",
		"description": "Our trip",
	}), withBearer("not-a-token"))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token", errorMessage(t, w))
}

func TestProtectedEndpoint_BearerFromLogin(t *testing.T) {
	ts := newTestServer(t)

	login := ts.do("POST", "/api/auth/login", jsonBody(t, LoginRequest{
		Username: "admin",
		Password: "password",
	}))
	require.Equal(t, http.StatusOK, login.Code)

	var resp LoginResponse
	decodeBody(t, login, &resp)

	w := ts.do("PUT", "/api/couple-data/home-message", jsonBody(t, map[string]string{
		"home_message": "hello",
	}), withBearer(resp.Token))
	require.Equal(t, http.StatusOK, w.Code)

	var success SuccessResponse
	decodeBody(t, w, &success)
	assert.True(t, success.Success)
	assert.Equal(t, "Home message updated", success.Message)
}

func TestCoupleData_GetSeededProfile(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("GET", "/api/couple-data", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var profile CoupleProfileResponse
	decodeBody(t, w, &profile)
	assert.Equal(t, int64(1), profile.ID)
	assert.Equal(t, "2023-11-10", profile.StartDate)
	assert.Equal(t, "Default home message", profile.HomeMessage)
	assert.Equal(t, "Default intro text", profile.IntroText)
}

func TestCoupleData_UpdateStartDate(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("PUT", "/api/couple-data/start-date", jsonBody(t, map[string]string{
		"start_date": "2020-06-15",
	}), withAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	var success SuccessResponse
	decodeBody(t, w, &success)
	assert.Equal(t, "Start date updated", success.Message)

	get := ts.do("GET", "/api/couple-data", nil)
	var profile CoupleProfileResponse
	decodeBody(t, get, &profile)
	assert.Equal(t, "2020-06-15", profile.StartDate)
}

func TestCoupleData_EmptyStartDateRejected(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("PUT", "/api/couple-data/start-date", jsonBody(t, map[string]string{
		"start_date": "",
	}), withAPIKey)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "start_date is required", errorMessage(t, w))
}

func TestCoupleData_UpdateIntro(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("PUT", "/api/couple-data/intro", jsonBody(t, map[string]string{
		"intro_text": "our story",
	}), withAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	get := ts.do("GET", "/api/couple-data", nil)
	var profile CoupleProfileResponse
	decodeBody(t, get, &profile)
	assert.Equal(t, "our story", profile.IntroText)
}

func TestMemories_CreateJSON(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("POST", "/api/memories", jsonBody(t, map[string]string{
		"title":       "Paris",
		"description": "Our trip",
	}), withAPIKey)
	require.Equal(t, http.StatusCreated, w.Code)

	var memory MemoryResponse
	decodeBody(t, w, &memory)
	assert.NotZero(t, memory.ID)
	assert.Equal(t, "Paris", memory.Title)
	assert.Equal(t, "Our trip", memory.Description)
	assert.Nil(t, memory.PhotoFilename)
	assert.Nil(t, memory.PhotoURL)
}

func TestMemories_CreateMissingFields(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("POST", "/api/memories", jsonBody(t, map[string]string{
		"title": "Paris",
	}), withAPIKey)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Title and description are required", errorMessage(t, w))
}

// multipartMemory builds a multipart body with title, description and an
// optional photo part.
func multipartMemory(t *testing.T, title, description, photoName, photoData string) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	require.NoError(t, mw.WriteField("title", title))
	require.NoError(t, mw.WriteField("description", description))

	if photoName != "" {
		part, err := mw.CreateFormFile("photo", photoName)
		require.NoError(t, err)
		_, err = part.Write([]byte(photoData))
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestMemories_CreateMultipartWithPhoto(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartMemory(t, "Beach day", "Sand everywhere", "beach.jpg", "jpeg bytes")

	w := ts.do("POST", "/api/memories", body, withAPIKey, func(r *http.Request) {
		r.Header.Set("Content-Type", contentType)
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var memory MemoryResponse
	decodeBody(t, w, &memory)
	require.NotNil(t, memory.PhotoFilename)
	require.NotNil(t, memory.PhotoURL)
	assert.True(t, strings.HasSuffix(*memory.PhotoFilename, "-beach.jpg"))
	assert.Equal(t, "/uploads/"+*memory.PhotoFilename, *memory.PhotoURL)

	// The stored file is immediately servable
	get := ts.do("GET", *memory.PhotoURL, nil)
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "jpeg bytes", get.Body.String())
}

func TestMemories_CreateMultipartWithoutPhoto(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartMemory(t, "Quiet evening", "No pictures taken", "", "")

	w := ts.do("POST", "/api/memories", body, withAPIKey, func(r *http.Request) {
		r.Header.Set("Content-Type", contentType)
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var memory MemoryResponse
	decodeBody(t, w, &memory)
	assert.Nil(t, memory.PhotoURL)
}

func TestMemories_ListNewestFirst(t *testing.T) {
	ts := newTestServer(t)

	for _, title := range []string{"first", "second"} {
		w := ts.do("POST", "/api/memories", jsonBody(t, map[string]string{
			"title":       title,
			"description": "d",
		}), withAPIKey)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := ts.do("GET", "/api/memories", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var memories []MemoryResponse
	decodeBody(t, w, &memories)
	require.Len(t, memories, 2)
	assert.Equal(t, "second", memories[0].Title)
	assert.Equal(t, "first", memories[1].Title)
}

func TestMemories_GetUnknown404(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("GET", "/api/memories/9999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Memory not found", errorMessage(t, w))
}

func TestMemories_UpdateUnknownIDStillSucceeds(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("PUT", "/api/memories/9999", jsonBody(t, map[string]string{
		"title":       "t",
		"description": "d",
	}), withAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	var success SuccessResponse
	decodeBody(t, w, &success)
	assert.True(t, success.Success)
	assert.Equal(t, "Memory updated", success.Message)
}

func TestMemories_DeleteRemovesRowAndFile(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartMemory(t, "To delete", "Gone soon", "gone.jpg", "x")
	create := ts.do("POST", "/api/memories", body, withAPIKey, func(r *http.Request) {
		r.Header.Set("Content-Type", contentType)
	})
	require.Equal(t, http.StatusCreated, create.Code)

	var memory MemoryResponse
	decodeBody(t, create, &memory)
	require.NotNil(t, memory.PhotoFilename)

	storedPath := filepath.Join(ts.files.Dir(), *memory.PhotoFilename)
	require.FileExists(t, storedPath)

	w := ts.do("DELETE", fmt.Sprintf("/api/memories/%d", memory.ID), nil, withAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	var success SuccessResponse
	decodeBody(t, w, &success)
	assert.Equal(t, "Memory deleted", success.Message)

	get := ts.do("GET", fmt.Sprintf("/api/memories/%d", memory.ID), nil)
	assert.Equal(t, http.StatusNotFound, get.Code)

	_, err := os.Stat(storedPath)
	assert.True(t, os.IsNotExist(err), "photo file should have been removed")
}

func TestMemories_DeleteUnknownIDStillSucceeds(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("DELETE", "/api/memories/9999", nil, withAPIKey)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPerspectives_GetMissingReturnsPlaceholder(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("GET", "/api/perspectives/99", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Placeholder carries only the number and an empty content string
	assert.JSONEq(t, `{"perspective_number":99,"content":""}`, w.Body.String())
}

func TestPerspectives_UpsertAndGet(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do("POST", "/api/perspectives", jsonBody(t, map[string]any{
		"perspective_number": 2,
		"content":            "how I remember it",
	}), withAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	var success SuccessResponse
	decodeBody(t, w, &success)
	assert.Equal(t, "Perspective saved", success.Message)

	get := ts.do("GET", "/api/perspectives/2", nil)
	require.Equal(t, http.StatusOK, get.Code)

	var p PerspectiveResponse
	decodeBody(t, get, &p)
	assert.Equal(t, 2, p.PerspectiveNumber)
	assert.Equal(t, "how I remember it", p.Content)
	assert.NotZero(t, p.ID)
}

func TestPerspectives_UpsertValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "missing content",
			body: map[string]any{"perspective_number": 1},
		},
		{
			name: "zero number",
			body: map[string]any{"perspective_number": 0, "content": "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do("POST", "/api/perspectives", jsonBody(t, tt.body), withAPIKey)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "perspective_number and content are required", errorMessage(t, w))
		})
	}
}

func TestPerspectives_ListOrderedByNumber(t *testing.T) {
	ts := newTestServer(t)

	for _, n := range []int{3, 1} {
		w := ts.do("POST", "/api/perspectives", jsonBody(t, map[string]any{
			"perspective_number": n,
			"content":            "c",
		}), withAPIKey)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := ts.do("GET", "/api/perspectives", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var perspectives []PerspectiveResponse
	decodeBody(t, w, &perspectives)
	require.Len(t, perspectives, 2)
	assert.Equal(t, 1, perspectives[0].PerspectiveNumber)
	assert.Equal(t, 3, perspectives[1].PerspectiveNumber)
}

func TestPerspectives_UpdateUnknownNumberNeverCreates(t *testing.T) {
	ts := newTestServer(t)

	// PUT on a number with no row reports success without creating one
	w := ts.do("PUT", "/api/perspectives/5", jsonBody(t, map[string]string{
		"content": "ghost",
	}), withAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	var success SuccessResponse
	decodeBody(t, w, &success)
	assert.True(t, success.Success)

	get := ts.do("GET", "/api/perspectives/5", nil)
	assert.JSONEq(t, `{"perspective_number":5,"content":""}`, get.Body.String())
}

func TestPerspectives_UpdateExisting(t *testing.T) {
	ts := newTestServer(t)

	create := ts.do("POST", "/api/perspectives", jsonBody(t, map[string]any{
		"perspective_number": 1,
		"content":            "draft",
	}), withAPIKey)
	require.Equal(t, http.StatusOK, create.Code)

	w := ts.do("PUT", "/api/perspectives/1", jsonBody(t, map[string]string{
		"content": "final",
	}), withAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	get := ts.do("GET", "/api/perspectives/1", nil)
	var p PerspectiveResponse
	decodeBody(t, get, &p)
	assert.Equal(t, "final", p.Content)
}
