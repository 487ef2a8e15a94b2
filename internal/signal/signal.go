// Package signal turns raw message and file text into primitive signals:
// topic label, keyword set, technical-term count, and complexity bucket.
//
// Topic detection is an ordered rule cascade, not a statistical model. The
// first matching rule wins and there is no scoring across rules.
package signal

import (
	"sort"
	"strings"

	"github.com/starkad/ordna/internal/models"
)

const (
	// recentWindow is how many trailing messages an analysis pass reads.
	recentWindow = 4
	// maxKeywords caps the extracted keyword set.
	maxKeywords = 10
)

// DetectTopic assigns a topic label to text via the rule cascade, falling
// back to a length-based label when no rule matches.
func DetectTopic(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range topicRules {
		matched := true
		for _, kw := range rule.Keywords {
			if !strings.Contains(lower, kw) {
				matched = false
				break
			}
		}
		if matched {
			return rule.Topic
		}
	}
	if len(text) > 100 {
		return TopicDetailed
	}
	return TopicGeneral
}

// DetectDocumentTopic is DetectTopic with the document-flavoured fallback.
func DetectDocumentTopic(text string) string {
	topic := DetectTopic(text)
	if topic == TopicGeneral {
		return TopicGeneralAlt
	}
	return topic
}

// IsFallbackTopic reports whether a label came from the length-based
// fallback rather than a matched rule.
func IsFallbackTopic(topic string) bool {
	return topic == TopicDetailed || topic == TopicGeneral || topic == TopicGeneralAlt
}

// Keywords tokenizes text on whitespace, drops tokens of three characters or
// fewer, intersects with the domain vocabulary, dedupes, and caps the result.
func Keywords(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?;:()[]{}\"'`")
		if len(tok) <= 3 {
			continue
		}
		if _, ok := domainKeywords[tok]; !ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// TechnicalTermCount sums case-insensitive substring occurrences of the
// fixed term list across text.
func TechnicalTermCount(text string) int {
	lower := strings.ToLower(text)
	total := 0
	for _, term := range technicalTerms {
		total += strings.Count(lower, term)
	}
	return total
}

// Stats are the raw conversation measurements feeding the complexity score.
type Stats struct {
	MessageCount   int
	AvgLength      int
	TechnicalTerms int
	HasCodeBlock   bool
}

// ConversationStats measures a message list.
func ConversationStats(messages []models.Message) Stats {
	s := Stats{MessageCount: len(messages)}
	if len(messages) == 0 {
		return s
	}
	total := 0
	for _, m := range messages {
		total += len(m.Content)
		if strings.Contains(m.Content, "```") {
			s.HasCodeBlock = true
		}
		s.TechnicalTerms += TechnicalTermCount(m.Content)
	}
	s.AvgLength = total / len(messages)
	return s
}

// ComplexityScore sums four independent contributions. Each contribution is
// monotonic in its input, so adding any positive signal can never lower the
// resulting bucket.
func ComplexityScore(s Stats) int {
	score := 0
	switch {
	case s.MessageCount > 10:
		score += 2
	case s.MessageCount > 5:
		score++
	}
	switch {
	case s.AvgLength > 200:
		score += 2
	case s.AvgLength > 100:
		score++
	}
	switch {
	case s.TechnicalTerms > 5:
		score += 2
	case s.TechnicalTerms > 2:
		score++
	}
	if s.HasCodeBlock {
		score += 2
	}
	return score
}

// BucketFor maps a complexity score to its bucket.
func BucketFor(score int) models.ComplexityBucket {
	switch {
	case score <= 2:
		return models.ComplexitySimple
	case score <= 4:
		return models.ComplexityDeveloping
	case score <= 6:
		return models.ComplexitySubstantial
	default:
		return models.ComplexityProjectWorthy
	}
}

// TopicConfidence scales with how much evidence the extractor saw: more
// matched keywords and longer text step the confidence through the fixed
// 0.3 / 0.5 / 0.7 / 0.9 thresholds.
func TopicConfidence(keywordCount, textLen int) float64 {
	switch {
	case keywordCount >= 5 && textLen > 400:
		return 0.9
	case keywordCount >= 3 && textLen > 200:
		return 0.7
	case keywordCount >= 1:
		return 0.5
	default:
		return 0.3
	}
}

// RecentText concatenates the content of the last few messages, which is the
// span an analysis pass extracts signals from.
func RecentText(messages []models.Message) string {
	start := len(messages) - recentWindow
	if start < 0 {
		start = 0
	}
	var b strings.Builder
	for i := start; i < len(messages); i++ {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(messages[i].Content)
	}
	return b.String()
}

// Result is the signal bundle for one span of text.
type Result struct {
	Topic      string
	Confidence float64
	Keywords   []string
	Complexity models.ComplexityBucket
	Score      int
	Stats      Stats
}

// AnalyzeConversation extracts all conversation signals in one pass.
func AnalyzeConversation(messages []models.Message) Result {
	recent := RecentText(messages)
	stats := ConversationStats(messages)
	score := ComplexityScore(stats)
	kws := Keywords(recent)
	return Result{
		Topic:      DetectTopic(recent),
		Confidence: TopicConfidence(len(kws), len(recent)),
		Keywords:   kws,
		Complexity: BucketFor(score),
		Score:      score,
		Stats:      stats,
	}
}

// AnalyzeDocument extracts signals from a standalone document.
func AnalyzeDocument(text string) Result {
	kws := Keywords(text)
	// Documents reuse the term and length contributions only; message count
	// does not apply.
	stats := Stats{
		MessageCount:   1,
		AvgLength:      len(text),
		TechnicalTerms: TechnicalTermCount(text),
		HasCodeBlock:   strings.Contains(text, "```"),
	}
	score := ComplexityScore(stats)
	return Result{
		Topic:      DetectDocumentTopic(text),
		Confidence: TopicConfidence(len(kws), len(text)),
		Keywords:   kws,
		Complexity: BucketFor(score),
		Score:      score,
		Stats:      stats,
	}
}

// Topics returns the topic-keyword set of a document: its keywords plus the
// significant words of its topic label. Used for similar-topic comparison.
func Topics(text string) []string {
	kws := Keywords(text)
	topic := DetectDocumentTopic(text)
	if !IsFallbackTopic(topic) {
		for _, w := range strings.Fields(strings.ToLower(topic)) {
			if len(w) > 3 {
				kws = append(kws, w)
			}
		}
	}
	sort.Strings(kws)
	return dedupe(kws)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
