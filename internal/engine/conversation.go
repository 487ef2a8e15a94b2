package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/starkad/ordna/internal/apperr"
	"github.com/starkad/ordna/internal/models"
	"github.com/starkad/ordna/internal/prefs"
	"github.com/starkad/ordna/internal/schedule"
	"github.com/starkad/ordna/internal/signal"
	"github.com/starkad/ordna/internal/suggest"
)

// StartConversation opens a new quick chat session.
func (e *Engine) StartConversation() *models.Conversation {
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		Mode:      models.ModeQuickChat,
		StartedAt: e.sched.Now(),
	}
	e.mu.Lock()
	e.conversations[conv.ID] = conv
	e.mu.Unlock()

	out := *conv
	return &out
}

// Conversation returns a copy of one conversation.
func (e *Engine) Conversation(id string) (*models.Conversation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	conv, ok := e.conversations[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	out := *conv
	return &out, nil
}

// Conversations lists all conversations, newest first.
func (e *Engine) Conversations() []models.Conversation {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Conversation, 0, len(e.conversations))
	for _, c := range e.conversations {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// AppendMessage adds a message to a conversation and arms the debounced
// analysis pass. Repeated arrivals inside the debounce window collapse into
// one pass. Organized conversations are never analyzed automatically.
func (e *Engine) AppendMessage(convID string, role models.Role, content string, knowledgeRefs []string) error {
	now := e.sched.Now()

	e.mu.Lock()
	conv, ok := e.conversations[convID]
	if !ok {
		e.mu.Unlock()
		return apperr.ErrNotFound
	}
	conv.Messages = append(conv.Messages, models.Message{
		Role:          role,
		Content:       content,
		Timestamp:     now,
		KnowledgeRefs: knowledgeRefs,
	})
	organized := conv.Organized
	deb, exists := e.debouncers[convID]
	if !exists && !organized {
		deb = schedule.NewDebouncer(e.sched, e.cfg.Debounce)
		e.debouncers[convID] = deb
	}
	e.mu.Unlock()

	for _, ref := range knowledgeRefs {
		if err := e.ReferenceItem(ref, convID); err != nil {
			e.logger.Debug("knowledge ref not found",
				slog.String("item_id", ref), slog.String("conversation_id", convID))
		}
	}

	if organized {
		return nil
	}
	deb.Trigger(func() { e.runAnalysis(convID, false) })
	return nil
}

// Analyze runs an analysis pass immediately, bypassing debounce. Manual
// triggers also bypass the organized flag.
func (e *Engine) Analyze(convID string) (*models.Insight, error) {
	return e.runAnalysis(convID, true)
}

// runAnalysis extracts signals from a conversation snapshot and surfaces at
// most one new suggestion. An already-active suggestion suppresses the new
// one silently.
func (e *Engine) runAnalysis(convID string, manual bool) (*models.Insight, error) {
	e.mu.Lock()
	conv, ok := e.conversations[convID]
	if !ok {
		e.mu.Unlock()
		return nil, apperr.ErrNotFound
	}
	if conv.Organized && !manual {
		e.mu.Unlock()
		return nil, nil
	}
	messages := make([]models.Message, len(conv.Messages))
	copy(messages, conv.Messages)
	projects := make([]models.Project, len(e.projects))
	copy(projects, e.projects)
	patterns := e.patterns
	suppressed := e.active[convID] != nil
	e.mu.Unlock()

	sig := signal.AnalyzeConversation(messages)
	shift := suggest.DetectShift(messages)

	insight := &models.Insight{
		Topic:      sig.Topic,
		Confidence: sig.Confidence,
		Keywords:   sig.Keywords,
		Complexity: sig.Complexity,
		Shift:      shift,
	}

	sugg := suggest.Generate(suggest.Input{
		Signals:    sig,
		RecentText: signal.RecentText(messages),
		Projects:   projects,
		Patterns:   patterns,
		Now:        e.sched.Now(),
	})
	if sugg == nil && shift != nil {
		sugg = suggest.ShiftSuggestion(shift, e.sched.Now())
	}
	if sugg != nil {
		insight.SuggestedName = sugg.SuggestedName
		insight.Suggestion = sugg
	}

	if sugg == nil || suppressed {
		return insight, nil
	}

	if !e.surface(convID, *sugg) {
		return insight, nil
	}

	e.logger.Info("suggestion surfaced",
		slog.String("conversation_id", convID),
		slog.String("type", string(sugg.Type)),
		slog.Float64("confidence", sugg.Confidence))
	e.publish("suggestion.surfaced", map[string]string{
		"conversation_id": convID,
		"suggestion_id":   sugg.ID,
		"type":            string(sugg.Type),
	})
	return insight, nil
}

// surface installs a suggestion as the conversation's active one and arms
// its expiry timer. Returns false when another suggestion won the race.
func (e *Engine) surface(convID string, sugg models.Suggestion) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	conv, ok := e.conversations[convID]
	if !ok || e.active[convID] != nil {
		return false
	}
	entry := &activeSuggestion{sugg: sugg}
	entry.expiry = e.sched.After(e.cfg.SuggestionTTL, func() {
		e.expireSuggestion(convID, sugg.ID)
	})
	e.active[convID] = entry
	conv.Pending = append(conv.Pending, sugg)
	return true
}

// expireSuggestion clears a timed-out suggestion. Expiry is an implicit
// dismissal: no preference update. A suggestion the user already acted on
// is left alone.
func (e *Engine) expireSuggestion(convID, suggID string) {
	e.mu.Lock()
	entry := e.active[convID]
	if entry == nil || entry.sugg.ID != suggID {
		e.mu.Unlock()
		return
	}
	delete(e.active, convID)
	e.clearPendingLocked(convID, suggID)
	e.mu.Unlock()

	e.publish("suggestion.expired", map[string]string{
		"conversation_id": convID,
		"suggestion_id":   suggID,
	})
}

func (e *Engine) clearPendingLocked(convID, suggID string) {
	conv, ok := e.conversations[convID]
	if !ok {
		return
	}
	kept := conv.Pending[:0]
	for _, s := range conv.Pending {
		if s.ID != suggID {
			kept = append(kept, s)
		}
	}
	conv.Pending = kept
}

// ActiveSuggestion returns the currently surfaced suggestion for a
// conversation, if any.
func (e *Engine) ActiveSuggestion(convID string) *models.Suggestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	if entry := e.active[convID]; entry != nil {
		s := entry.sugg
		return &s
	}
	return nil
}

// RespondResult reports what accepting a suggestion did.
type RespondResult struct {
	Suggestion     models.Suggestion `json:"suggestion"`
	Accepted       bool              `json:"accepted"`
	ProjectID      string            `json:"project_id,omitempty"`
	ConversationID string            `json:"conversation_id,omitempty"`
}

// RespondSuggestion resolves the active suggestion with explicit user
// feedback. Feedback always reaches the preference learner before the
// suggestion is cleared; the expiry timer is cancelled by the act of
// responding.
func (e *Engine) RespondSuggestion(convID, suggID string, accept bool) (*RespondResult, error) {
	now := e.sched.Now()

	e.mu.Lock()
	conv, ok := e.conversations[convID]
	if !ok {
		e.mu.Unlock()
		return nil, apperr.ErrNotFound
	}
	entry := e.active[convID]
	if entry == nil || entry.sugg.ID != suggID {
		e.mu.Unlock()
		return nil, apperr.ErrNotFound
	}
	entry.expiry.Stop()
	delete(e.active, convID)
	e.clearPendingLocked(convID, suggID)
	sugg := entry.sugg

	topic := signal.DetectTopic(signal.RecentText(conv.Messages))
	if accept {
		prefs.RecordAccept(&e.patterns, sugg.Type)
	} else {
		prefs.RecordDismiss(&e.patterns, sugg.Type, topic, now)
	}
	e.mu.Unlock()

	result := &RespondResult{Suggestion: sugg, Accepted: accept}
	event := "suggestion.dismissed"
	if accept {
		event = "suggestion.accepted"
		if err := e.applyAccepted(conv.ID, sugg, result); err != nil {
			return nil, err
		}
	}

	e.persistPatterns()
	e.publish(event, map[string]string{
		"conversation_id": convID,
		"suggestion_id":   suggID,
		"type":            string(sugg.Type),
	})
	return result, nil
}

// applyAccepted performs the organizational action behind an accepted
// suggestion.
func (e *Engine) applyAccepted(convID string, sugg models.Suggestion, result *RespondResult) error {
	switch sugg.Type {
	case models.SuggestCreateProject, models.SuggestGraduateToProject:
		title := sugg.SuggestedName
		if title == "" {
			title = "Chat Session - " + e.sched.Now().Format("2006-01-02")
		}
		proj, err := e.CreateProject(title, "Created from a graduated conversation")
		if err != nil {
			return err
		}
		if err := e.MoveConversationToProject(convID, proj.ID, false, string(sugg.Type)+" accepted"); err != nil {
			return err
		}
		result.ProjectID = proj.ID

	case models.SuggestAddToProject:
		if err := e.MoveConversationToProject(convID, sugg.ProjectID, false, "add_to_existing_project accepted"); err != nil {
			return err
		}
		result.ProjectID = sugg.ProjectID

	case models.SuggestSplitConversation:
		split := e.splitConversation(convID)
		if split != "" {
			result.ConversationID = split
		}

	case models.SuggestTagConversation:
		// Tagging has no structural effect on the engine's collections.
	}
	return nil
}

// splitConversation starts a new quick chat seeded with the drifting tail
// of the original conversation.
func (e *Engine) splitConversation(convID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	conv, ok := e.conversations[convID]
	if !ok || len(conv.Messages) < 3 {
		return ""
	}
	start := len(conv.Messages) - 4
	if start < 0 {
		start = 0
	}
	tail := conv.Messages[start:]
	split := &models.Conversation{
		ID:        uuid.NewString(),
		Mode:      models.ModeQuickChat,
		StartedAt: e.sched.Now(),
		Messages:  append([]models.Message(nil), tail...),
	}
	e.conversations[split.ID] = split
	return split.ID
}

// MoveConversationToProject graduates a conversation into a project. This is
// one of the two terminal mode transitions; it sets the organized flag,
// permanently silencing automatic suggestions for this conversation.
func (e *Engine) MoveConversationToProject(convID, projectID string, userInitiated bool, reason string) error {
	now := e.sched.Now()

	e.mu.Lock()
	conv, ok := e.conversations[convID]
	if !ok {
		e.mu.Unlock()
		return apperr.ErrNotFound
	}
	proj := e.findProjectLocked(projectID)
	if proj == nil {
		e.mu.Unlock()
		return apperr.NotFoundf("project %s", projectID)
	}

	// A manual move cancels whatever suggestion was pending.
	if entry := e.active[convID]; entry != nil {
		entry.expiry.Stop()
		delete(e.active, convID)
		conv.Pending = nil
	}

	conv.Transitions = append(conv.Transitions, models.ModeTransition{
		From:          conv.Mode,
		To:            models.ModeProjectChat,
		ProjectID:     projectID,
		Reason:        reason,
		UserInitiated: userInitiated,
		At:            now,
	})
	conv.Mode = models.ModeProjectChat
	conv.ProjectID = projectID
	conv.Organized = true
	proj.Messages = append(proj.Messages, conv.Messages...)
	e.mu.Unlock()

	e.persistProjects()
	e.publish("conversation.organized", map[string]string{
		"conversation_id": convID,
		"project_id":      projectID,
	})
	return nil
}

// Project returns a copy of one project.
func (e *Engine) Project(id string) (*models.Project, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	proj := e.findProjectLocked(id)
	if proj == nil {
		return nil, apperr.NotFoundf("project %s", id)
	}
	out := *proj
	return &out, nil
}

// Projects returns a copy of the project list.
func (e *Engine) Projects() []models.Project {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Project, len(e.projects))
	copy(out, e.projects)
	return out
}

// CreateProject adds a project and learns the user's naming style from the
// chosen title.
func (e *Engine) CreateProject(title, description string) (*models.Project, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("project title is required")
	}
	proj := models.Project{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		CreatedAt:   e.sched.Now(),
	}

	e.mu.Lock()
	e.projects = append(e.projects, proj)
	prefs.InferNamingStyle(&e.patterns, title)
	e.mu.Unlock()

	e.persistProjects()
	e.persistPatterns()
	return &proj, nil
}

func (e *Engine) findProjectLocked(id string) *models.Project {
	for i := range e.projects {
		if e.projects[i].ID == id {
			return &e.projects[i]
		}
	}
	return nil
}
