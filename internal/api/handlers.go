package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starkad/ordna/internal/apperr"
	"github.com/starkad/ordna/internal/engine"
	"github.com/starkad/ordna/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	eng *engine.Engine
}

// NewHandler creates a new Handler.
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{eng: eng}
}

// CreateConversation handles POST /conversations.
func (h *Handler) CreateConversation(w http.ResponseWriter, _ *http.Request) {
	conv := h.eng.StartConversation()
	writeJSON(w, http.StatusCreated, conv)
}

// ListConversations handles GET /conversations.
func (h *Handler) ListConversations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": h.eng.Conversations(),
	})
}

// GetConversation handles GET /conversations/{id}.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, err := h.eng.Conversation(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, ConversationResponse{
		Conversation: *conv,
		Active:       h.eng.ActiveSuggestion(id),
	})
}

// AppendMessage handles POST /conversations/{id}/messages.
func (h *Handler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")

	var req AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	role := models.Role(req.Role)
	switch role {
	case models.RoleUser, models.RoleAssistant, models.RoleSystem:
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("role must be user, assistant, or system"))
		return
	}

	if err := h.eng.AppendMessage(id, role, req.Content, req.KnowledgeRefs); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("append message failed", slog.String("conversation_id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Analyze handles POST /conversations/{id}/analyze (manual trigger).
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	insight, err := h.eng.Analyze(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("analyze failed", slog.String("conversation_id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, insight)
}

// RespondSuggestion handles POST /conversations/{id}/suggestion.
func (h *Handler) RespondSuggestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RespondSuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.SuggestionID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("suggestion_id is required"))
		return
	}

	result, err := h.eng.RespondSuggestion(id, req.SuggestionID, req.Accept)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("no such active suggestion"))
			return
		}
		slog.Error("respond suggestion failed", slog.String("conversation_id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// MoveConversation handles POST /conversations/{id}/move.
func (h *Handler) MoveConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req MoveConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.ProjectID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("project_id is required"))
		return
	}

	if err := h.eng.MoveConversationToProject(id, req.ProjectID, true, "user move"); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
			return
		}
		slog.Error("move conversation failed", slog.String("conversation_id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IngestFile handles POST /items.
func (h *Handler) IngestFile(w http.ResponseWriter, r *http.Request) {
	var req IngestFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	item, err := h.eng.IngestFile(req.Path, req.ProjectID, req.ProjectLevel, req.ChatID)
	if err != nil {
		slog.Error("ingest failed", slog.String("path", req.Path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody("ingest failed"))
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// ListItems handles GET /items.
func (h *Handler) ListItems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": h.eng.Items(),
	})
}

// GetItem handles GET /items/{id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := h.eng.Item(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item":               item,
		"ambient_suggestion": h.eng.AmbientSuggestion(id),
	})
}

// ReferenceItem handles POST /items/{id}/reference.
func (h *Handler) ReferenceItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	chatID := r.URL.Query().Get("chat_id")
	if err := h.eng.ReferenceItem(id, chatID); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GraduateItem handles POST /items/{id}/graduate.
func (h *Handler) GraduateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req GraduateItemRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}

	item, err := h.eng.ConfirmGraduation(id, req.ProjectID)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("already project-level"))
		default:
			slog.Error("graduate failed", slog.String("item_id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DismissGraduation handles DELETE /items/{id}/graduate.
func (h *Handler) DismissGraduation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.eng.DismissGraduation(id); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("no pending suggestion"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	chatID := r.URL.Query().Get("chat_id")
	writeJSON(w, http.StatusOK, map[string]any{
		"results": h.eng.SearchKnowledge(q, chatID),
	})
}

// ListProjects handles GET /projects.
func (h *Handler) ListProjects(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"projects": h.eng.Projects(),
	})
}

// CreateProject handles POST /projects.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	proj, err := h.eng.CreateProject(req.Title, req.Description)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, proj)
}

// GetProject handles GET /projects/{id}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	proj, err := h.eng.Project(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

// Patterns handles GET /patterns.
func (h *Handler) Patterns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.Patterns())
}
