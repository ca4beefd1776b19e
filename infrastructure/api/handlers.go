package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/woutermans/searchllama/chatrelay"
	"github.com/woutermans/searchllama/infrastructure/api/middleware"
	"github.com/woutermans/searchllama/orchestrator"
	"github.com/woutermans/searchllama/transport"
)

var (
	errEmptyQuery   = errors.New("query must not be empty")
	errEmptyMessage = errors.New("message must not be empty")
)

// Searcher runs a query through the search orchestrator.
type Searcher interface {
	Search(ctx context.Context, query string) (<-chan orchestrator.Message, error)
}

// Chatter relays a chat message through the generative model.
type Chatter interface {
	Chat(ctx context.Context, message string, priorContext []int64) <-chan chatrelay.Fragment
}

// Handlers holds the two HTTP endpoints searchllama exposes (spec §6).
type Handlers struct {
	search Searcher
	chat   Chatter
	logger *slog.Logger
}

// NewHandlers creates Handlers wired to the given search and chat backends.
func NewHandlers(search Searcher, chat Chatter, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{search: search, chat: chat, logger: logger}
}

// Mount registers /search and /chat on router.
func (h *Handlers) Mount(router chi.Router) {
	router.Post("/search", h.Search)
	router.Post("/chat", h.Chat)
}

type searchRequest struct {
	Query string `json:"query"`
}

// Search handles POST /search, streaming tab-delimited orchestrator.Message
// frames (spec §6).
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}
	if body.Query == "" {
		middleware.WriteError(w, r, errEmptyQuery, h.logger)
		return
	}

	messages, err := h.search.Search(r.Context(), body.Query)
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}

	if err := transport.WriteStream(w, messages); err != nil {
		h.logger.Warn("search stream write failed", "error", err)
	}
}

type chatRequest struct {
	Message string  `json:"message"`
	Context []int64 `json:"context"`
}

// Chat handles POST /chat, streaming tab-delimited chatrelay.Fragment
// frames (spec §6).
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}
	if body.Message == "" {
		middleware.WriteError(w, r, errEmptyMessage, h.logger)
		return
	}

	fragments := h.chat.Chat(r.Context(), body.Message, body.Context)

	if err := transport.WriteStream(w, fragments); err != nil {
		h.logger.Warn("chat stream write failed", "error", err)
	}
}
