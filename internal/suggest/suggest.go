// Package suggest decides whether and what kind of organization suggestion
// a conversation warrants, based on extracted signals and the existing
// project list.
package suggest

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/starkad/ordna/internal/models"
	"github.com/starkad/ordna/internal/signal"
)

// Per-bucket suggestion confidence.
var bucketConfidence = map[models.ComplexityBucket]float64{
	models.ComplexitySimple:        0.2,
	models.ComplexityDeveloping:    0.5,
	models.ComplexitySubstantial:   0.8,
	models.ComplexityProjectWorthy: 0.95,
}

const (
	contextShiftConfidence = 0.8
	projectWordOverlapMin  = 5
)

// Input bundles everything the generator reads for one decision.
type Input struct {
	Signals    signal.Result
	RecentText string
	Projects   []models.Project
	Patterns   models.UserPatterns
	Now        time.Time
}

// Generate produces at most one organization suggestion. Conversations that
// are still simple produce none.
func Generate(in Input) *models.Suggestion {
	if in.Signals.Complexity == models.ComplexitySimple {
		return nil
	}

	conf := bucketConfidence[in.Signals.Complexity]

	if p := matchProject(in.Signals, in.RecentText, in.Projects); p != nil {
		return &models.Suggestion{
			ID:         uuid.NewString(),
			Type:       models.SuggestAddToProject,
			Message:    fmt.Sprintf("This conversation looks related to your project %q. Add it there?", p.Title),
			ProjectID:  p.ID,
			Confidence: conf,
			Timing:     models.TimingNextPause,
			Actionable: true,
			CreatedAt:  in.Now,
		}
	}

	switch in.Signals.Complexity {
	case models.ComplexityDeveloping:
		return &models.Suggestion{
			ID:         uuid.NewString(),
			Type:       models.SuggestGraduateToProject,
			Message:    "This chat is developing into something bigger. Want to graduate it to a project?",
			Confidence: conf,
			Timing:     models.TimingNextPause,
			Actionable: true,
			CreatedAt:  in.Now,
		}
	default: // substantial, project_worthy
		name := ProjectName(in.Signals.Topic, in.Signals.Keywords, in.RecentText, in.Patterns.NamingStyle, in.Now)
		return &models.Suggestion{
			ID:            uuid.NewString(),
			Type:          models.SuggestCreateProject,
			Message:       fmt.Sprintf("This looks like substantial work. Create a project %q for it?", name),
			SuggestedName: name,
			Confidence:    conf,
			Timing:        models.TimingImmediate,
			Actionable:    true,
			CreatedAt:     in.Now,
		}
	}
}

// matchProject finds the first existing project whose title and description
// mention any significant topic word or extracted keyword, or that shares at
// least five recent-content words with the conversation. First match wins.
func matchProject(sig signal.Result, recentText string, projects []models.Project) *models.Project {
	recentWords := wordSet(recentText)
	for i := range projects {
		p := &projects[i]
		haystack := strings.ToLower(p.Title + " " + p.Description)

		if !signal.IsFallbackTopic(sig.Topic) {
			for _, w := range strings.Fields(strings.ToLower(sig.Topic)) {
				if len(w) > 3 && strings.Contains(haystack, w) {
					return p
				}
			}
		}
		for _, kw := range sig.Keywords {
			if strings.Contains(haystack, kw) {
				return p
			}
		}

		overlap := 0
		for w := range wordSet(p.Title + " " + p.Description) {
			if _, ok := recentWords[w]; ok {
				overlap++
				if overlap >= projectWordOverlapMin {
					return p
				}
			}
		}
	}
	return nil
}

func wordSet(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) > 3 {
			out[w] = struct{}{}
		}
	}
	return out
}

// DetectShift compares the topic of the last four messages against the topic
// of everything before the last two. A differing, non-fallback recent topic
// signals the conversation drifting to a new subject.
func DetectShift(messages []models.Message) *models.ContextShift {
	if len(messages) < 5 {
		return nil
	}

	recentTopic := signal.DetectTopic(signal.RecentText(messages))
	earlier := messages[:len(messages)-2]
	var b strings.Builder
	for _, m := range earlier {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(m.Content)
	}
	earlierTopic := signal.DetectTopic(b.String())

	if recentTopic == earlierTopic || signal.IsFallbackTopic(recentTopic) {
		return nil
	}
	return &models.ContextShift{
		FromTopic:  earlierTopic,
		ToTopic:    recentTopic,
		Confidence: contextShiftConfidence,
		Message:    fmt.Sprintf("Looks like the conversation moved from %s to %s. Split it off?", earlierTopic, recentTopic),
	}
}

// ShiftSuggestion wraps a detected context shift as a split-conversation
// suggestion.
func ShiftSuggestion(shift *models.ContextShift, now time.Time) *models.Suggestion {
	return &models.Suggestion{
		ID:         uuid.NewString(),
		Type:       models.SuggestSplitConversation,
		Message:    shift.Message,
		Confidence: shift.Confidence,
		Timing:     models.TimingNextPause,
		Actionable: true,
		CreatedAt:  now,
	}
}
