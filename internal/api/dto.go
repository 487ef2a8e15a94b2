package api

import "github.com/starkad/ordna/internal/models"

// AppendMessageRequest is the request body for posting a chat message.
type AppendMessageRequest struct {
	Role          string   `json:"role"`
	Content       string   `json:"content"`
	KnowledgeRefs []string `json:"knowledge_refs,omitempty"`
}

// RespondSuggestionRequest resolves a surfaced suggestion.
type RespondSuggestionRequest struct {
	SuggestionID string `json:"suggestion_id"`
	Accept       bool   `json:"accept"`
}

// MoveConversationRequest targets an existing project.
type MoveConversationRequest struct {
	ProjectID string `json:"project_id"`
}

// IngestFileRequest points the engine at a file to ingest.
type IngestFileRequest struct {
	Path         string `json:"path"`
	ProjectID    string `json:"project_id,omitempty"`
	ProjectLevel bool   `json:"project_level,omitempty"`
	ChatID       string `json:"chat_id,omitempty"`
}

// GraduateItemRequest confirms promotion of an item.
type GraduateItemRequest struct {
	ProjectID string `json:"project_id,omitempty"`
}

// CreateProjectRequest creates a project explicitly.
type CreateProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ConversationResponse wraps a conversation with its active suggestion.
type ConversationResponse struct {
	Conversation models.Conversation `json:"conversation"`
	Active       *models.Suggestion  `json:"active_suggestion,omitempty"`
}
