package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sentia-ai/ragbot/internal/models"
	"github.com/sentia-ai/ragbot/internal/types"
	"github.com/sentia-ai/ragbot/pkg/channels"
)

// Config configures the HTTP front of the chatbot.
type Config struct {
	Port      string
	StaticDir string
}

// Server exposes the web chat endpoint, the Messenger webhook routes, a
// health check, and the static frontend.
type Server struct {
	config    Config
	responder types.Responder
	messenger *channels.MessengerBot
	logger    *slog.Logger
	http      *http.Server
}

func New(config Config, responder types.Responder, messenger *channels.MessengerBot, logger *slog.Logger) *Server {
	if config.Port == "" {
		config.Port = "5000"
	}

	s := &Server{
		config:    config,
		responder: responder,
		messenger: messenger,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /health", s.handleHealth)
	if messenger != nil {
		mux.HandleFunc("GET /webhook", messenger.HandleVerification)
		mux.HandleFunc("POST /webhook", messenger.HandleWebhook)
	}
	if config.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(config.StaticDir)))
	}

	s.http = &http.Server{
		Addr:              ":" + config.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "port", s.config.Port)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response    string          `json:"response"`
	Sources     []models.Source `json:"sources"`
	TotalChunks int             `json:"total_chunks"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleChat serves the web widget: one session shared per web client
// cookie-less deployment, keyed "web". Missing or empty message is a 400;
// provider failures surface as 500 with a structured error.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No message provided"})
		return
	}

	reply, err := s.responder.Respond(r.Context(), "web", req.Message)
	if err != nil {
		s.logger.Error("chat request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	sources := reply.Sources
	if sources == nil {
		sources = []models.Source{}
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Response:    reply.Text,
		Sources:     sources,
		TotalChunks: reply.TotalChunks,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
