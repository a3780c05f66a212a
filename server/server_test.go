package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentia-ai/ragbot/internal/models"
	"github.com/sentia-ai/ragbot/pkg/channels"
)

type stubResponder struct {
	reply    models.Reply
	err      error
	sessions []string
}

func (s *stubResponder) Respond(_ context.Context, sessionID, _ string) (models.Reply, error) {
	s.sessions = append(s.sessions, sessionID)
	return s.reply, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(responder *stubResponder) *Server {
	return New(Config{Port: "0"}, responder, nil, discardLogger())
}

func TestChatOK(t *testing.T) {
	responder := &stubResponder{reply: models.Reply{
		Text: "Học phí là 100 triệu.",
		Sources: []models.Source{
			{Title: "Học phí (Trang 3)", URL: "https://sentia.edu.vn/hoc-phi"},
		},
		TotalChunks: 5,
	}}
	srv := newTestServer(responder)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"học phí?"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Response    string          `json:"response"`
		Sources     []models.Source `json:"sources"`
		TotalChunks int             `json:"total_chunks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Học phí là 100 triệu.", body.Response)
	assert.Equal(t, 5, body.TotalChunks)
	require.Len(t, body.Sources, 1)
	assert.Equal(t, "https://sentia.edu.vn/hoc-phi", body.Sources[0].URL)

	require.Len(t, responder.sessions, 1)
	assert.Equal(t, "web", responder.sessions[0])
}

func TestChatEmptyMessage(t *testing.T) {
	srv := newTestServer(&stubResponder{})

	for _, payload := range []string{`{}`, `{"message":""}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "payload %q", payload)
		assert.Contains(t, rec.Body.String(), "No message provided")
	}
}

func TestChatResponderError(t *testing.T) {
	srv := newTestServer(&stubResponder{err: errors.New("provider down")})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"q"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "provider down", body.Error)
}

func TestChatEmptySourcesIsArray(t *testing.T) {
	srv := newTestServer(&stubResponder{reply: models.Reply{Text: "ok", TotalChunks: 1}})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"q"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sources":[]`)
}

func TestChatMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&stubResponder{})

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&stubResponder{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestWebhookRoutes(t *testing.T) {
	messenger := channels.NewMessengerBot(channels.MessengerConfig{
		VerifyToken:   "verify-me",
		AllowUnsigned: true,
	}, &stubResponder{}, discardLogger())
	srv := New(Config{Port: "0"}, &stubResponder{}, messenger, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=abc", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"object":"page","entry":[]}`))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EVENT_RECEIVED", rec.Body.String())
}

func TestWebhookAbsentWithoutMessenger(t *testing.T) {
	srv := newTestServer(&stubResponder{})

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
