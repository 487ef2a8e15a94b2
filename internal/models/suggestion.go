package models

import "time"

// SuggestionType enumerates the organization actions Ordna can propose.
type SuggestionType string

const (
	SuggestCreateProject     SuggestionType = "create_project"
	SuggestAddToProject      SuggestionType = "add_to_existing_project"
	SuggestSplitConversation SuggestionType = "split_conversation"
	SuggestGraduateToProject SuggestionType = "graduate_to_project"
	SuggestTagConversation   SuggestionType = "tag_conversation"
)

// Timing controls when a surfaced suggestion should be shown to the user.
type Timing string

const (
	TimingImmediate    Timing = "immediate"
	TimingNextPause    Timing = "next_pause"
	TimingEndOfSession Timing = "end_of_session"
	TimingManual       Timing = "manual"
)

// Suggestion is a proposed organization action with a confidence and timing
// policy. It is created by the generator, surfaced by the scheduler, and
// terminated by accept, dismiss, or timeout.
type Suggestion struct {
	ID            string         `json:"id"`
	Type          SuggestionType `json:"type"`
	Message       string         `json:"message"`
	SuggestedName string         `json:"suggested_name,omitempty"`
	ProjectID     string         `json:"project_id,omitempty"`
	Confidence    float64        `json:"confidence"`
	Timing        Timing         `json:"timing"`
	Actionable    bool           `json:"actionable"`
	CreatedAt     time.Time      `json:"created_at"`
}
