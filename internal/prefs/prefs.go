// Package prefs adjusts user preference patterns from suggestion feedback.
package prefs

import (
	"strings"
	"time"
	"unicode"

	"github.com/starkad/ordna/internal/models"
)

// weightStep is how far an acceptance weight moves per piece of feedback.
// Weights are intentionally left unbounded.
const weightStep = 0.1

// RecordAccept raises the acceptance weight for a suggestion type.
func RecordAccept(p *models.UserPatterns, t models.SuggestionType) {
	if p.Weights == nil {
		p.Weights = make(map[models.SuggestionType]float64)
	}
	p.Weights[t] = p.Weight(t) + weightStep
}

// RecordDismiss lowers the acceptance weight and appends to the dismissal
// history. Implicit timeouts must not call this.
func RecordDismiss(p *models.UserPatterns, t models.SuggestionType, topic string, now time.Time) {
	if p.Weights == nil {
		p.Weights = make(map[models.SuggestionType]float64)
	}
	p.Weights[t] = p.Weight(t) - weightStep
	p.Dismissed = append(p.Dismissed, models.DismissedSuggestion{
		Type:  t,
		Topic: topic,
		At:    now,
	})
}

// InferNamingStyle updates the naming-style preference from a project name
// the user actually chose. Checked in order: a single word with no
// punctuation reads as minimal; digits or dash/underscore read as technical;
// more than two words read as descriptive; anything else leaves the
// preference unchanged.
func InferNamingStyle(p *models.UserPatterns, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	words := strings.Fields(name)

	switch {
	case len(words) == 1 && !hasPunctuation(name):
		p.NamingStyle = models.StyleMinimal
	case hasDigit(name) || strings.ContainsAny(name, "-_"):
		p.NamingStyle = models.StyleTechnical
	case len(words) > 2:
		p.NamingStyle = models.StyleDescriptive
	}
}

func hasPunctuation(s string) bool {
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
