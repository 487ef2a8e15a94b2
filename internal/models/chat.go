// Package models defines the domain types for Ordna.
package models

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single chat message. Immutable once appended to a conversation.
type Message struct {
	Role          Role      `json:"role"`
	Content       string    `json:"content"`
	Timestamp     time.Time `json:"timestamp"`
	KnowledgeRefs []string  `json:"knowledge_refs,omitempty"`
}

// ChatMode is the organizational state of a conversation.
type ChatMode string

const (
	ModeQuickChat      ChatMode = "quick_chat"
	ModeProjectChat    ChatMode = "project_chat"
	ModeGraduatingChat ChatMode = "graduating_chat"
)

// ModeTransition records a conversation moving between chat modes.
type ModeTransition struct {
	From          ChatMode  `json:"from"`
	To            ChatMode  `json:"to"`
	ProjectID     string    `json:"project_id,omitempty"`
	Reason        string    `json:"reason"`
	UserInitiated bool      `json:"user_initiated"`
	At            time.Time `json:"at"`
}

// Conversation is an ordered message stream with an organizational mode.
// Once Organized is set, automatic suggestion generation stops permanently
// for this conversation; a manual analysis trigger remains possible.
type Conversation struct {
	ID          string           `json:"id"`
	Mode        ChatMode         `json:"mode"`
	ProjectID   string           `json:"project_id,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	Organized   bool             `json:"organized"`
	Messages    []Message        `json:"messages"`
	Pending     []Suggestion     `json:"pending,omitempty"`
	Transitions []ModeTransition `json:"transitions,omitempty"`
}

// ComplexityBucket classifies how project-worthy a conversation has become.
type ComplexityBucket string

const (
	ComplexitySimple        ComplexityBucket = "simple"
	ComplexityDeveloping    ComplexityBucket = "developing"
	ComplexitySubstantial   ComplexityBucket = "substantial"
	ComplexityProjectWorthy ComplexityBucket = "project_worthy"
)

// Insight is the ephemeral result of one analysis pass over a conversation.
// Recomputed wholesale each time; never persisted.
type Insight struct {
	Topic         string           `json:"topic"`
	Confidence    float64          `json:"confidence"`
	SuggestedName string           `json:"suggested_name,omitempty"`
	Keywords      []string         `json:"keywords"`
	Complexity    ComplexityBucket `json:"complexity"`
	Suggestion    *Suggestion      `json:"suggestion,omitempty"`
	Shift         *ContextShift    `json:"shift,omitempty"`
}

// ContextShift signals that a conversation may be drifting to a new subject.
type ContextShift struct {
	FromTopic  string  `json:"from_topic"`
	ToTopic    string  `json:"to_topic"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
}
