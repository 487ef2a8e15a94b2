// Package score computes relevance scores for knowledge items. All scores
// are bounded to [0,1].
package score

import (
	"strings"
	"time"

	"github.com/starkad/ordna/internal/relate"
)

const (
	recentReferenceBoost = 0.2
	relationshipBoost    = 0.1
	recentWindow         = 24 * time.Hour

	usageCap      = 0.4
	recencyCap    = 0.3
	relationCap   = 0.3
	decayDays     = 30.0
	strongEdgeMin = 0.7
)

// StrongEdgeThreshold is the strength above which a relationship counts as
// strong for dynamic relevance.
const StrongEdgeThreshold = strongEdgeMin

// Query scores how relevant an item's text is to a free-text query: token
// Jaccard, plus a flat boost for a reference within the last 24 hours, plus
// a smaller boost when the item has any relationships.
func Query(text, query string, lastReferenced time.Time, hasRelationships bool, now time.Time) float64 {
	s := relate.Jaccard(strings.Fields(strings.ToLower(text)), strings.Fields(strings.ToLower(query)))
	if !lastReferenced.IsZero() && now.Sub(lastReferenced) < recentWindow {
		s += recentReferenceBoost
	}
	if hasRelationships {
		s += relationshipBoost
	}
	return clamp(s)
}

// Dynamic recomputes an item's background relevance from usage frequency,
// recency, and strong-relationship density:
//
//	min(0.4, usage/10) + max(0, 0.3 - days/30) + min(0.3, strong/5)
//
// capped at 1.0. Recency decays to zero at 30 days.
func Dynamic(usageCount int, lastReferenced time.Time, strongRelationships int, now time.Time) float64 {
	usage := float64(usageCount) / 10
	if usage > usageCap {
		usage = usageCap
	}

	recency := 0.0
	if !lastReferenced.IsZero() {
		days := now.Sub(lastReferenced).Hours() / 24
		recency = recencyCap - days/decayDays
		if recency < 0 {
			recency = 0
		}
	}

	relation := float64(strongRelationships) / 5
	if relation > relationCap {
		relation = relationCap
	}

	return clamp(usage + recency + relation)
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
