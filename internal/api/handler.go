// Package api serves a read-only HTTP view of the client state.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/chatline/internal/domain"
	"github.com/ashureev/chatline/internal/middleware"
	"github.com/ashureev/chatline/internal/router"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// State is the part of the client exposed over HTTP.
type State interface {
	Connected() bool
	Session() *domain.Session
	Threads() []domain.Thread
	Messages(threadID string) ([]domain.Message, error)
	Contacts() []domain.Contact
}

// Handler serves client state.
type Handler struct {
	state  State
	db     Pinger
	logger *slog.Logger
}

// NewHandler creates a new Handler. db may be nil when nothing is persisted.
func NewHandler(state State, db Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{state: state, db: db, logger: logger}
}

// NewRouter builds the status router with its middleware stack.
func NewRouter(state State, db Pinger, allowedOrigins []string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(middleware.CORS(allowedOrigins))
	}

	h := NewHandler(state, db, logger)
	h.RegisterHealth(r)
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the status routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.GetSession)
		r.Get("/threads", h.ListThreads)
		r.Get("/threads/{id}/messages", h.ListMessages)
		r.Get("/contacts", h.ListContacts)
	})
}

type sessionResponse struct {
	Connected bool            `json:"connected"`
	Session   *domain.Session `json:"session"`
}

// GetSession reports the connection state and the logged-in identity.
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, sessionResponse{
		Connected: h.state.Connected(),
		Session:   h.state.Session(),
	})
}

// ListThreads returns open threads in the order they were opened.
func (h *Handler) ListThreads(w http.ResponseWriter, _ *http.Request) {
	threads := h.state.Threads()
	if threads == nil {
		threads = []domain.Thread{}
	}
	JSON(w, http.StatusOK, threads)
}

// ListMessages returns one thread's messages.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msgs, err := h.state.Messages(id)
	if errors.Is(err, router.ErrThreadNotFound) {
		Error(w, http.StatusNotFound, "thread not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to list messages", "thread_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	JSON(w, http.StatusOK, msgs)
}

// ListContacts returns online contacts.
func (h *Handler) ListContacts(w http.ResponseWriter, _ *http.Request) {
	contacts := h.state.Contacts()
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	JSON(w, http.StatusOK, contacts)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
