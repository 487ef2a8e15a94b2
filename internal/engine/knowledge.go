package engine

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/starkad/ordna/internal/apperr"
	"github.com/starkad/ordna/internal/models"
	"github.com/starkad/ordna/internal/prefs"
	"github.com/starkad/ordna/internal/relate"
	"github.com/starkad/ordna/internal/score"
	"github.com/starkad/ordna/internal/signal"
)

// Graduation eligibility thresholds.
const (
	graduationUsageMin     = 3
	graduationRelevanceMin = 0.7
)

// IngestFile copies a source file into the managed uploads tree, extracts
// its signals, and compares it against every existing item in the same scope
// for relationships. Unreadable content degrades to empty metadata rather
// than failing the ingestion.
func (e *Engine) IngestFile(sourcePath, projectID string, projectLevel bool, chatID string) (*models.KnowledgeItem, error) {
	now := e.sched.Now()

	rec, err := e.files.Ingest(sourcePath, projectID, projectLevel, chatID)
	if err != nil {
		return nil, err
	}

	text, readable := e.files.ReadText(rec)
	item := &models.KnowledgeItem{
		ID:             uuid.NewString(),
		Name:           rec.Name,
		OriginalName:   rec.OriginalName,
		Extension:      rec.Extension,
		Size:           rec.Size,
		LocalPath:      rec.LocalPath,
		ProjectLevel:   projectLevel,
		ProjectID:      projectID,
		ChatID:         chatID,
		ContentType:    contentType(rec.Extension, readable),
		LastReferenced: now,
		AddedAt:        now,
	}
	if readable {
		sig := signal.AnalyzeDocument(text)
		item.WordCount = len(strings.Fields(text))
		item.Topics = signal.Topics(text)
		item.Complexity = sig.Complexity
	} else {
		item.Complexity = models.ComplexitySimple
		e.logger.Info("content not extractable, ingesting with empty metadata",
			slog.String("name", rec.Name))
	}

	// Snapshot the same-scope peers, detect outside the lock.
	e.mu.Lock()
	peers := make([]relate.Content, 0, len(e.items))
	for _, other := range e.items {
		if !sameScope(item, other) {
			continue
		}
		peers = append(peers, relate.Content{
			ID:     other.ID,
			Name:   other.Name,
			Topics: other.Topics,
			Text:   e.texts[other.ID],
		})
	}
	e.mu.Unlock()

	self := relate.Content{ID: item.ID, Name: item.Name, Topics: item.Topics, Text: text}
	type discovered struct {
		peerID string
		pairs  []relate.Pair
	}
	var found []discovered
	for _, peer := range peers {
		if pairs := relate.Detect(self, peer, now); len(pairs) > 0 {
			found = append(found, discovered{peerID: peer.ID, pairs: pairs})
		}
	}

	e.mu.Lock()
	for _, d := range found {
		peer, ok := e.items[d.peerID]
		if !ok {
			continue
		}
		for _, p := range d.pairs {
			item.Relationships = append(item.Relationships, p.Forward)
			peer.Relationships = append(peer.Relationships, p.Backward)
		}
	}
	item.RelevanceScore = score.Dynamic(item.UsageCount, item.LastReferenced,
		item.StrongRelationshipCount(score.StrongEdgeThreshold), now)
	e.items[item.ID] = item
	if readable {
		e.texts[item.ID] = text
	}
	out := *item
	e.mu.Unlock()

	e.persistItems()

	e.logger.Info("file ingested",
		slog.String("item_id", item.ID),
		slog.String("name", item.Name),
		slog.Int("relationships", len(out.Relationships)))
	e.publish("item.ingested", map[string]string{
		"item_id": item.ID,
		"name":    item.Name,
	})
	if len(out.Relationships) > 0 {
		e.publish("item.relationships", map[string]string{
			"item_id": item.ID,
		})
	}
	return &out, nil
}

// sameScope reports whether two items live in the same comparison scope:
// project-level items form one shared scope, chat-scoped items are grouped
// by their owning chat.
func sameScope(a, b *models.KnowledgeItem) bool {
	if a.ProjectLevel && b.ProjectLevel {
		return true
	}
	if !a.ProjectLevel && !b.ProjectLevel {
		return a.ChatID == b.ChatID
	}
	return false
}

func contentType(ext string, readable bool) string {
	if !readable {
		return "binary"
	}
	switch ext {
	case ".md", ".markdown":
		return "markdown"
	case ".csv":
		return "table"
	case ".json", ".yaml", ".yml", ".xml":
		return "structured"
	case ".go", ".py", ".js", ".ts", ".swift", ".rs", ".java", ".c", ".h", ".sh", ".sql":
		return "code"
	default:
		return "text"
	}
}

// Item returns a copy of one knowledge item.
func (e *Engine) Item(id string) (*models.KnowledgeItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	item, ok := e.items[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	out := *item
	return &out, nil
}

// Items lists all knowledge items, newest first.
func (e *Engine) Items() []models.KnowledgeItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.KnowledgeItem, 0, len(e.items))
	for _, item := range e.items {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return out
}

// ReferenceItem records a usage of an item from a chat, refreshes its
// relevance, and checks graduation eligibility.
func (e *Engine) ReferenceItem(itemID, chatID string) error {
	now := e.sched.Now()

	e.mu.Lock()
	item, ok := e.items[itemID]
	if !ok {
		e.mu.Unlock()
		return apperr.ErrNotFound
	}
	item.UsageCount++
	item.LastReferenced = now
	if chatID != "" && !containsString(item.ReferencedChats, chatID) {
		item.ReferencedChats = append(item.ReferencedChats, chatID)
	}
	item.RelevanceScore = score.Dynamic(item.UsageCount, item.LastReferenced,
		item.StrongRelationshipCount(score.StrongEdgeThreshold), now)
	eligible := e.eligibleLocked(item)
	e.mu.Unlock()

	e.persistItems()
	if eligible {
		e.scheduleAmbient(itemID)
	}
	return nil
}

// eligibleLocked applies the file graduation rule. Eligibility produces an
// ambient suggestion, never an automatic promotion.
func (e *Engine) eligibleLocked(item *models.KnowledgeItem) bool {
	return !item.ProjectLevel &&
		item.UsageCount >= graduationUsageMin &&
		item.RelevanceScore > graduationRelevanceMin &&
		e.ambient[item.ID] == nil
}

// scheduleAmbient arms the show-delay and display-duration timers for a
// graduation suggestion on an item.
func (e *Engine) scheduleAmbient(itemID string) {
	now := e.sched.Now()
	sugg := models.Suggestion{
		ID:         uuid.NewString(),
		Type:       models.SuggestGraduateToProject,
		Message:    "This file keeps coming up. Promote it to project scope?",
		Confidence: 0.8,
		Timing:     models.TimingNextPause,
		Actionable: true,
		CreatedAt:  now,
	}

	e.mu.Lock()
	item, ok := e.items[itemID]
	if !ok || e.ambient[itemID] != nil {
		e.mu.Unlock()
		return
	}
	entry := &ambientSuggestion{sugg: sugg}
	entry.show = e.sched.After(e.cfg.AmbientShowDelay, func() {
		e.surfaceAmbient(itemID, sugg.ID)
	})
	entry.expire = e.sched.After(e.cfg.AmbientShowDelay+e.cfg.AmbientDuration, func() {
		e.expireAmbient(itemID, sugg.ID)
	})
	e.ambient[itemID] = entry
	name := item.Name
	e.mu.Unlock()

	e.logger.Info("item eligible for graduation",
		slog.String("item_id", itemID), slog.String("name", name))
	e.publish("item.graduation_eligible", map[string]string{
		"item_id":       itemID,
		"suggestion_id": sugg.ID,
	})
}

func (e *Engine) surfaceAmbient(itemID, suggID string) {
	e.mu.Lock()
	entry := e.ambient[itemID]
	if entry == nil || entry.sugg.ID != suggID {
		e.mu.Unlock()
		return
	}
	entry.surfaced = true
	e.mu.Unlock()

	e.publish("suggestion.surfaced", map[string]string{
		"item_id":       itemID,
		"suggestion_id": suggID,
		"type":          string(models.SuggestGraduateToProject),
	})
}

func (e *Engine) expireAmbient(itemID, suggID string) {
	e.mu.Lock()
	entry := e.ambient[itemID]
	if entry == nil || entry.sugg.ID != suggID {
		e.mu.Unlock()
		return
	}
	delete(e.ambient, itemID)
	e.mu.Unlock()

	e.publish("suggestion.expired", map[string]string{
		"item_id":       itemID,
		"suggestion_id": suggID,
	})
}

// AmbientSuggestion returns the pending graduation suggestion for an item,
// if one has been surfaced.
func (e *Engine) AmbientSuggestion(itemID string) *models.Suggestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	if entry := e.ambient[itemID]; entry != nil && entry.surfaced {
		s := entry.sugg
		return &s
	}
	return nil
}

// ConfirmGraduation promotes a chat-scoped item to project scope. Promotion
// only ever happens here, on explicit confirmation: it appends a graduation
// event with a metrics snapshot and clears the owning chat reference.
func (e *Engine) ConfirmGraduation(itemID, projectID string) (*models.KnowledgeItem, error) {
	now := e.sched.Now()

	e.mu.Lock()
	item, ok := e.items[itemID]
	if !ok {
		e.mu.Unlock()
		return nil, apperr.ErrNotFound
	}
	if item.ProjectLevel {
		e.mu.Unlock()
		return nil, apperr.ErrAlreadyExists
	}
	if projectID != "" && e.findProjectLocked(projectID) == nil {
		e.mu.Unlock()
		return nil, apperr.NotFoundf("project %s", projectID)
	}

	entry := e.ambient[itemID]
	viaSuggestion := entry != nil
	if entry != nil {
		entry.show.Stop()
		entry.expire.Stop()
		delete(e.ambient, itemID)
	}

	sourceChat := item.ChatID
	event := models.GraduationEvent{
		At:           now,
		SourceChatID: sourceChat,
		Reason:       graduationReason(item, viaSuggestion),
		Metrics: models.GraduationMetrics{
			UsageCount:       item.UsageCount,
			ReferencingChats: len(item.ReferencedChats),
			AvgRelevance:     item.RelevanceScore,
			DaysSinceLastUse: now.Sub(item.LastReferenced).Hours() / 24,
			CrossProjectRefs: e.crossProjectRefsLocked(item),
		},
		UserConfirmed: true,
	}
	item.Graduations = append(item.Graduations, event)
	item.ProjectLevel = true
	item.ProjectID = projectID
	item.ChatID = ""

	rec := models.FileRecord{Name: item.Name, Extension: item.Extension, LocalPath: item.LocalPath}
	out := *item
	e.mu.Unlock()

	if viaSuggestion {
		e.mu.Lock()
		prefs.RecordAccept(&e.patterns, models.SuggestGraduateToProject)
		e.mu.Unlock()
		e.persistPatterns()
	}

	if projectID != "" {
		if newPath, err := e.files.Relocate(rec, projectID); err == nil {
			e.mu.Lock()
			if it, ok := e.items[itemID]; ok {
				it.LocalPath = newPath
				out.LocalPath = newPath
			}
			e.mu.Unlock()
		} else {
			e.logger.Warn("relocate failed", slog.String("item_id", itemID),
				slog.String("error", err.Error()))
		}
	}

	e.persistItems()
	e.logger.Info("item graduated",
		slog.String("item_id", itemID),
		slog.String("reason", string(event.Reason)))
	e.publish("item.graduated", map[string]string{
		"item_id": itemID,
		"reason":  string(event.Reason),
	})
	return &out, nil
}

// DismissGraduation rejects the pending graduation suggestion on an item.
func (e *Engine) DismissGraduation(itemID string) error {
	now := e.sched.Now()

	e.mu.Lock()
	entry := e.ambient[itemID]
	if entry == nil {
		e.mu.Unlock()
		return apperr.ErrNotFound
	}
	entry.show.Stop()
	entry.expire.Stop()
	delete(e.ambient, itemID)
	var topic string
	if item, ok := e.items[itemID]; ok && len(item.Topics) > 0 {
		topic = item.Topics[0]
	}
	prefs.RecordDismiss(&e.patterns, models.SuggestGraduateToProject, topic, now)
	suggID := entry.sugg.ID
	e.mu.Unlock()

	e.persistPatterns()
	e.publish("suggestion.dismissed", map[string]string{
		"item_id":       itemID,
		"suggestion_id": suggID,
	})
	return nil
}

func graduationReason(item *models.KnowledgeItem, viaSuggestion bool) models.GraduationReason {
	if !viaSuggestion {
		return models.GraduateUserPromotion
	}
	switch {
	case len(item.ReferencedChats) >= 2:
		return models.GraduateCrossChatRef
	case item.RelevanceScore > 0.9:
		return models.GraduateProjectRelevance
	default:
		return models.GraduateHighUsage
	}
}

func (e *Engine) crossProjectRefsLocked(item *models.KnowledgeItem) int {
	n := 0
	for _, rel := range item.Relationships {
		if other, ok := e.items[rel.ItemID]; ok && other.ProjectLevel {
			n++
		}
	}
	return n
}

// ScoredItem is one search hit with its query relevance.
type ScoredItem struct {
	Item  models.KnowledgeItem `json:"item"`
	Score float64              `json:"score"`
}

// SearchKnowledge ranks items by query relevance. When chatID is non-empty,
// chat-scoped items belonging to other chats are excluded.
func (e *Engine) SearchKnowledge(query, chatID string) []ScoredItem {
	now := e.sched.Now()

	e.mu.Lock()
	type candidate struct {
		item    models.KnowledgeItem
		text    string
		hasRels bool
	}
	cands := make([]candidate, 0, len(e.items))
	for _, item := range e.items {
		if chatID != "" && !item.ProjectLevel && item.ChatID != chatID {
			continue
		}
		cands = append(cands, candidate{
			item:    *item,
			text:    e.texts[item.ID],
			hasRels: len(item.Relationships) > 0,
		})
	}
	e.mu.Unlock()

	var out []ScoredItem
	for _, c := range cands {
		s := score.Query(c.text, query, c.item.LastReferenced, c.hasRels, now)
		if s > 0 {
			out = append(out, ScoredItem{Item: c.item, Score: s})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
