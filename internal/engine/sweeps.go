package engine

import (
	"log/slog"
	"time"

	"github.com/starkad/ordna/internal/models"
	"github.com/starkad/ordna/internal/relate"
	"github.com/starkad/ordna/internal/score"
)

// RelevanceSweep recomputes the dynamic relevance of every item. It works
// against a snapshot so ingestion never waits on scoring, and applies the
// results through the serialized mutation point.
func (e *Engine) RelevanceSweep() {
	now := e.sched.Now()

	e.mu.Lock()
	type measure struct {
		id      string
		usage   int
		lastRef time.Time
		strong  int
	}
	snapshot := make([]measure, 0, len(e.items))
	for _, item := range e.items {
		snapshot = append(snapshot, measure{
			id:      item.ID,
			usage:   item.UsageCount,
			lastRef: item.LastReferenced,
			strong:  item.StrongRelationshipCount(score.StrongEdgeThreshold),
		})
	}
	e.mu.Unlock()

	scores := make(map[string]float64, len(snapshot))
	for _, m := range snapshot {
		scores[m.id] = score.Dynamic(m.usage, m.lastRef, m.strong, now)
	}

	var eligible []string
	e.mu.Lock()
	for id, s := range scores {
		item, ok := e.items[id]
		if !ok {
			continue
		}
		item.RelevanceScore = s
		if e.eligibleLocked(item) {
			eligible = append(eligible, id)
		}
	}
	e.mu.Unlock()

	e.persistItems()
	for _, id := range eligible {
		e.scheduleAmbient(id)
	}
	e.logger.Debug("relevance sweep complete", slog.Int("items", len(snapshot)))
}

// RelationshipSweep runs pairwise detection over every unordered item pair
// that has no relationship yet. The comparison is O(n²) over the in-memory
// collection; detection runs against a snapshot and only the write-back
// holds the lock.
func (e *Engine) RelationshipSweep() {
	now := e.sched.Now()

	e.mu.Lock()
	contents := make([]relate.Content, 0, len(e.items))
	scoped := make(map[string]*models.KnowledgeItem, len(e.items))
	for _, item := range e.items {
		contents = append(contents, relate.Content{
			ID:     item.ID,
			Name:   item.Name,
			Topics: item.Topics,
			Text:   e.texts[item.ID],
		})
		scoped[item.ID] = item
	}
	linked := make(map[[2]string]bool)
	for _, item := range e.items {
		for _, rel := range item.Relationships {
			linked[pairKey(item.ID, rel.ItemID)] = true
		}
	}
	sameScopePairs := make(map[[2]string]bool)
	for i := range contents {
		for j := i + 1; j < len(contents); j++ {
			a, b := scoped[contents[i].ID], scoped[contents[j].ID]
			if sameScope(a, b) {
				sameScopePairs[pairKey(a.ID, b.ID)] = true
			}
		}
	}
	e.mu.Unlock()

	type hit struct {
		aID, bID string
		pairs    []relate.Pair
	}
	var hits []hit
	for i := range contents {
		for j := i + 1; j < len(contents); j++ {
			a, b := contents[i], contents[j]
			key := pairKey(a.ID, b.ID)
			if linked[key] || !sameScopePairs[key] {
				continue
			}
			if pairs := relate.Detect(a, b, now); len(pairs) > 0 {
				hits = append(hits, hit{aID: a.ID, bID: b.ID, pairs: pairs})
			}
		}
	}

	if len(hits) == 0 {
		e.logger.Debug("relationship sweep complete", slog.Int("discovered", 0))
		return
	}

	discovered := 0
	e.mu.Lock()
	for _, h := range hits {
		a, okA := e.items[h.aID]
		b, okB := e.items[h.bID]
		if !okA || !okB || a.HasRelationshipWith(b.ID) {
			continue
		}
		for _, p := range h.pairs {
			a.Relationships = append(a.Relationships, p.Forward)
			b.Relationships = append(b.Relationships, p.Backward)
			discovered++
		}
	}
	e.mu.Unlock()

	e.persistItems()
	e.logger.Info("relationship sweep complete", slog.Int("discovered", discovered))
	e.publish("item.relationships", map[string]string{})
}

func pairKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}
