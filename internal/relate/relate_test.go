package relate

import (
	"testing"
	"time"

	"github.com/starkad/ordna/internal/models"
)

var now = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func TestDetect_References(t *testing.T) {
	a := Content{ID: "a", Name: "design-notes.md", Text: "general words here"}
	b := Content{ID: "b", Name: "other.md", Text: "see design-notes.md for details"}

	pairs := Detect(a, b, now)
	if len(pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(pairs))
	}
	p := pairs[0]
	if p.Forward.Type != models.RelReferences {
		t.Errorf("type = %q, want references", p.Forward.Type)
	}
	if p.Forward.Strength != 0.9 || p.Backward.Strength != 0.9 {
		t.Errorf("strengths = %v / %v, want 0.9 both", p.Forward.Strength, p.Backward.Strength)
	}
	if p.Forward.ItemID != "b" || p.Backward.ItemID != "a" {
		t.Errorf("ids = %q / %q", p.Forward.ItemID, p.Backward.ItemID)
	}
}

func TestDetect_Reciprocal(t *testing.T) {
	a := Content{ID: "a", Name: "one.txt", Topics: []string{"react", "component", "layout", "design"},
		Text: "react component layout"}
	b := Content{ID: "b", Name: "two.txt", Topics: []string{"react", "component", "design"},
		Text: "react component design"}

	pairs := Detect(a, b, now)
	if len(pairs) == 0 {
		t.Fatal("expected at least one pair")
	}
	for _, p := range pairs {
		if p.Forward.Strength != p.Backward.Strength {
			t.Errorf("asymmetric strength: %v vs %v", p.Forward.Strength, p.Backward.Strength)
		}
		if p.Forward.Type != p.Backward.Type.Reverse() {
			t.Errorf("types not reciprocal: %q vs %q", p.Forward.Type, p.Backward.Type)
		}
		if len(p.Forward.Evidence) == 0 || p.Forward.Evidence[0] != p.Backward.Evidence[0] {
			t.Errorf("evidence differs: %v vs %v", p.Forward.Evidence, p.Backward.Evidence)
		}
	}
}

func TestDetect_SimilarTopicThreshold(t *testing.T) {
	a := Content{ID: "a", Name: "doc-one", Topics: []string{"x", "y", "z"}, Text: "alpha beta"}
	b := Content{ID: "b", Name: "doc-two", Topics: []string{"x", "y", "w"}, Text: "gamma delta"}
	// Jaccard = 2/4 = 0.5, at or below 0.6, no similar_topic.
	for _, p := range Detect(a, b, now) {
		if p.Forward.Type == models.RelSimilarTopic {
			t.Errorf("similar_topic emitted at 0.5 overlap")
		}
	}

	b.Topics = []string{"x", "y", "z", "w"}
	// Jaccard = 3/4 = 0.75 > 0.6.
	found := false
	for _, p := range Detect(a, b, now) {
		if p.Forward.Type == models.RelSimilarTopic {
			found = true
			if p.Forward.Strength != 0.75 {
				t.Errorf("strength = %v, want 0.75", p.Forward.Strength)
			}
		}
	}
	if !found {
		t.Error("similar_topic missing at 0.75 overlap")
	}
}

func TestDetect_Implements(t *testing.T) {
	a := Content{ID: "a", Name: "plan", Text: "the widget plan"}
	b := Content{ID: "b", Name: "impl", Text: "this code implements the widget plan idea"}
	found := false
	for _, p := range Detect(a, b, now) {
		if p.Forward.Type == models.RelImplements {
			found = true
			if p.Forward.Strength != 0.8 {
				t.Errorf("strength = %v, want 0.8", p.Forward.Strength)
			}
		}
	}
	if !found {
		t.Error("implements relationship missing")
	}
}

func TestDetect_NoTextNoPairs(t *testing.T) {
	a := Content{ID: "a", Name: "a", Topics: []string{"x"}}
	b := Content{ID: "b", Name: "b", Topics: []string{"x"}, Text: "something"}
	if pairs := Detect(a, b, now); pairs != nil {
		t.Errorf("expected nil for empty text, got %v", pairs)
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		a, b []string
		want float64
	}{
		{nil, nil, 0},
		{[]string{"x"}, nil, 0},
		{[]string{"x"}, []string{"x"}, 1},
		{[]string{"x", "y"}, []string{"y", "z"}, 1.0 / 3.0},
		{[]string{"x", "x", "y"}, []string{"x", "y"}, 1}, // duplicates collapse
	}
	for _, tt := range tests {
		if got := Jaccard(tt.a, tt.b); got != tt.want {
			t.Errorf("Jaccard(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	toks := Tokenize("Hello, World! v2.0")
	want := []string{"hello", "world", "v2", "0"}
	if len(toks) != len(want) {
		t.Fatalf("tokens = %v, want %v", toks, want)
	}
	for i := range want {
		if toks[i] != want[i] {
			t.Errorf("tokens[%d] = %q, want %q", i, toks[i], want[i])
		}
	}
}
