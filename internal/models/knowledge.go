package models

import "time"

// RelationType enumerates how two knowledge items can be connected.
type RelationType string

const (
	RelReferences   RelationType = "references"
	RelBuildsOn     RelationType = "builds_on"
	RelSimilarTopic RelationType = "similar_topic"
	RelSameProject  RelationType = "same_project"
	RelVersionOf    RelationType = "version_of"
	RelSupplements  RelationType = "supplements"
	RelContradicts  RelationType = "contradicts"
	RelImplements   RelationType = "implements"
)

// Reverse returns the relationship type carried by the reciprocal entry.
//
// Every type currently reverses to itself. For directional types such as
// references or builds_on this loses the direction, but reciprocal entries
// have always been recorded with the same type and callers depend on that.
func (t RelationType) Reverse() RelationType {
	return t
}

// Relationship is a typed, strength-scored edge from the owning item to
// ItemID. Relationships always exist in reciprocal pairs: when item A gains
// an edge to B with type T and strength s, B simultaneously gains an edge to
// A with type T.Reverse() and the same strength.
type Relationship struct {
	ItemID       string       `json:"item_id"`
	Type         RelationType `json:"type"`
	Strength     float64      `json:"strength"`
	DiscoveredAt time.Time    `json:"discovered_at"`
	Evidence     []string     `json:"evidence,omitempty"`
}

// GraduationReason explains why a chat-scoped item was promoted.
type GraduationReason string

const (
	GraduateHighUsage        GraduationReason = "high_usage"
	GraduateCrossChatRef     GraduationReason = "cross_chat_reference"
	GraduateAISuggestion     GraduationReason = "ai_suggestion"
	GraduateUserPromotion    GraduationReason = "user_promotion"
	GraduateProjectRelevance GraduationReason = "project_relevance"
)

// GraduationMetrics is the usage snapshot captured at promotion time.
type GraduationMetrics struct {
	UsageCount       int     `json:"usage_count"`
	ReferencingChats int     `json:"referencing_chats"`
	AvgRelevance     float64 `json:"avg_relevance"`
	DaysSinceLastUse float64 `json:"days_since_last_use"`
	CrossProjectRefs int     `json:"cross_project_refs"`
}

// GraduationEvent records one promotion of an item to project scope.
// Append-only history on the promoted item.
type GraduationEvent struct {
	At            time.Time         `json:"at"`
	SourceChatID  string            `json:"source_chat_id,omitempty"`
	Reason        GraduationReason  `json:"reason"`
	Metrics       GraduationMetrics `json:"metrics"`
	UserConfirmed bool              `json:"user_confirmed"`
}

// KnowledgeItem is an ingested file tracked by the organization engine.
// Extracted text is kept out of the persisted record; it is re-read from
// LocalPath when needed.
type KnowledgeItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	Extension    string `json:"extension"`
	Size         int64  `json:"size"`
	LocalPath    string `json:"local_path"`

	// Scope: project-level items are visible everywhere; chat-scoped items
	// belong to the chat identified by ChatID until they graduate.
	ProjectLevel bool   `json:"project_level"`
	ProjectID    string `json:"project_id,omitempty"`
	ChatID       string `json:"chat_id,omitempty"`

	ContentType string           `json:"content_type"`
	WordCount   int              `json:"word_count"`
	Topics      []string         `json:"topics,omitempty"`
	Complexity  ComplexityBucket `json:"complexity"`

	Relationships []Relationship `json:"relationships,omitempty"`

	UsageCount      int       `json:"usage_count"`
	RelevanceScore  float64   `json:"relevance_score"`
	LastReferenced  time.Time `json:"last_referenced"`
	ReferencedChats []string  `json:"referenced_chats,omitempty"`
	AddedAt         time.Time `json:"added_at"`

	Graduations []GraduationEvent `json:"graduations,omitempty"`
}

// HasRelationshipWith reports whether the item already carries an edge to other.
func (k *KnowledgeItem) HasRelationshipWith(other string) bool {
	for _, r := range k.Relationships {
		if r.ItemID == other {
			return true
		}
	}
	return false
}

// StrongRelationshipCount counts relationships with strength above the
// given threshold.
func (k *KnowledgeItem) StrongRelationshipCount(threshold float64) int {
	n := 0
	for _, r := range k.Relationships {
		if r.Strength > threshold {
			n++
		}
	}
	return n
}

// FileRecord is what the file store returns after ingesting a source file.
type FileRecord struct {
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	Extension    string `json:"extension"`
	Size         int64  `json:"size"`
	LocalPath    string `json:"local_path"`
}
