package prefs

import (
	"math"
	"testing"
	"time"

	"github.com/starkad/ordna/internal/models"
)

var now = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRecordAccept_FromDefault(t *testing.T) {
	p := models.NewUserPatterns()
	RecordAccept(&p, models.SuggestCreateProject)
	if w := p.Weight(models.SuggestCreateProject); !almost(w, 0.6) {
		t.Errorf("weight = %v, want 0.6", w)
	}
	// An untouched type still reads the neutral default.
	if w := p.Weight(models.SuggestTagConversation); !almost(w, 0.5) {
		t.Errorf("default weight = %v, want 0.5", w)
	}
}

func TestRecordDismiss(t *testing.T) {
	p := models.NewUserPatterns()
	RecordDismiss(&p, models.SuggestCreateProject, "React Development", now)
	if w := p.Weight(models.SuggestCreateProject); !almost(w, 0.4) {
		t.Errorf("weight = %v, want 0.4", w)
	}
	if len(p.Dismissed) != 1 {
		t.Fatalf("dismissed history = %d entries, want 1", len(p.Dismissed))
	}
	d := p.Dismissed[0]
	if d.Type != models.SuggestCreateProject || d.Topic != "React Development" || !d.At.Equal(now) {
		t.Errorf("dismissal = %+v", d)
	}
}

func TestWeights_Unbounded(t *testing.T) {
	p := models.NewUserPatterns()
	for i := 0; i < 10; i++ {
		RecordDismiss(&p, models.SuggestSplitConversation, "", now)
	}
	if w := p.Weight(models.SuggestSplitConversation); !almost(w, -0.5) {
		t.Errorf("weight = %v, want -0.5 (no floor)", w)
	}
	for i := 0; i < 20; i++ {
		RecordAccept(&p, models.SuggestSplitConversation)
	}
	if w := p.Weight(models.SuggestSplitConversation); !almost(w, 1.5) {
		t.Errorf("weight = %v, want 1.5 (no ceiling)", w)
	}
}

func TestInferNamingStyle(t *testing.T) {
	tests := []struct {
		name string
		want models.NamingStyle
	}{
		{"Notes", models.StyleMinimal},
		{"api-v2", models.StyleTechnical},
		{"Project 2026", models.StyleTechnical},
		{"My Summer Travel Plans", models.StyleDescriptive},
		{"Two Words", ""}, // ambiguous, leaves preference alone
	}
	for _, tt := range tests {
		p := &models.UserPatterns{}
		InferNamingStyle(p, tt.name)
		if p.NamingStyle != tt.want {
			t.Errorf("InferNamingStyle(%q) = %q, want %q", tt.name, p.NamingStyle, tt.want)
		}
	}
}

func TestInferNamingStyle_OrderMinimalFirst(t *testing.T) {
	// "v2" has a digit, but it is also a single word without punctuation
	// and the minimal case is checked first.
	p := &models.UserPatterns{}
	InferNamingStyle(p, "v2")
	if p.NamingStyle != models.StyleMinimal {
		t.Errorf("style = %q, want minimal (first matching case wins)", p.NamingStyle)
	}
}
