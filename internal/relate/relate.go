// Package relate performs pairwise relationship detection between knowledge
// items. Detected relationships are always produced as reciprocal pairs with
// the same strength on both sides.
package relate

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/starkad/ordna/internal/models"
)

// Detection thresholds and fixed strengths.
const (
	similarTopicThreshold = 0.6
	versionOfThreshold    = 0.8
	referencesStrength    = 0.9
	implementsStrength    = 0.8
)

// implementationKeywords mark text that implements or derives from another
// document.
var implementationKeywords = []string{
	"implements", "extends", "based on", "according to", "following",
}

// Content is the detector's view of one knowledge item.
type Content struct {
	ID     string
	Name   string
	Topics []string
	Text   string
}

// Pair is one detected relationship in both directions. Forward belongs to
// the first item and points at the second; Backward is the reciprocal entry
// with the reversed type and identical strength.
type Pair struct {
	Forward  models.Relationship
	Backward models.Relationship
}

// Detect compares two items and returns zero or more relationship pairs.
// Items without extracted text produce nothing.
func Detect(a, b Content, now time.Time) []Pair {
	if a.Text == "" || b.Text == "" {
		return nil
	}

	var pairs []Pair
	add := func(t models.RelationType, strength float64, evidence string) {
		pairs = append(pairs, Pair{
			Forward: models.Relationship{
				ItemID:       b.ID,
				Type:         t,
				Strength:     strength,
				DiscoveredAt: now,
				Evidence:     []string{evidence},
			},
			Backward: models.Relationship{
				ItemID:       a.ID,
				Type:         t.Reverse(),
				Strength:     strength,
				DiscoveredAt: now,
				Evidence:     []string{evidence},
			},
		})
	}

	if sim := Jaccard(a.Topics, b.Topics); sim > similarTopicThreshold {
		add(models.RelSimilarTopic, sim,
			fmt.Sprintf("topic overlap %.2f", sim))
	}

	aLower := strings.ToLower(a.Text)
	bLower := strings.ToLower(b.Text)
	if nameMentioned(aLower, b.Name) || nameMentioned(bLower, a.Name) {
		add(models.RelReferences, referencesStrength, "file name mentioned")
	}

	if sim := Jaccard(Tokenize(a.Text), Tokenize(b.Text)); sim > versionOfThreshold {
		add(models.RelVersionOf, sim,
			fmt.Sprintf("content overlap %.2f", sim))
	}

	combined := aLower + " " + bLower
	for _, kw := range implementationKeywords {
		if strings.Contains(combined, kw) {
			add(models.RelImplements, implementsStrength, "implementation keyword: "+kw)
			break
		}
	}

	return pairs
}

func nameMentioned(lowerText, name string) bool {
	if name == "" {
		return false
	}
	return strings.Contains(lowerText, strings.ToLower(name))
}

// Tokenize splits text on whitespace and punctuation with no length filter,
// lowercasing every token.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Jaccard computes set similarity of two token slices. The empty-union case
// is defined as 0.
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func toSet(in []string) map[string]struct{} {
	s := make(map[string]struct{}, len(in))
	for _, t := range in {
		s[t] = struct{}{}
	}
	return s
}
