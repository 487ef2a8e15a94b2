package models

import "time"

// NamingStyle is the inferred preference for generated project names.
type NamingStyle string

const (
	StyleDescriptive NamingStyle = "descriptive"
	StyleTechnical   NamingStyle = "technical"
	StyleCreative    NamingStyle = "creative"
	StyleMinimal     NamingStyle = "minimal"
)

// DismissedSuggestion records one dismissal for pattern learning.
type DismissedSuggestion struct {
	Type  SuggestionType `json:"type"`
	Topic string         `json:"topic,omitempty"`
	At    time.Time      `json:"at"`
}

// UserPatterns is the long-lived, process-wide record of how the user
// responds to suggestions. Weights start at 0.5 and move by 0.1 per
// accept or dismiss; they are intentionally unbounded.
type UserPatterns struct {
	Weights     map[SuggestionType]float64 `json:"weights"`
	NamingStyle NamingStyle                `json:"naming_style"`
	Dismissed   []DismissedSuggestion      `json:"dismissed,omitempty"`
}

// NewUserPatterns returns patterns with default weights and style.
func NewUserPatterns() UserPatterns {
	return UserPatterns{
		Weights:     make(map[SuggestionType]float64),
		NamingStyle: StyleDescriptive,
	}
}

// Weight returns the acceptance weight for a suggestion type, defaulting
// to 0.5 when no feedback has been recorded yet.
func (p UserPatterns) Weight(t SuggestionType) float64 {
	if w, ok := p.Weights[t]; ok {
		return w
	}
	return 0.5
}
