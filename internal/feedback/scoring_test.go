package feedback

import (
	"math"
	"testing"
	"time"
)

func TestComputeScoreDefault(t *testing.T) {
	score := ComputeScore(7, nil, time.Now())
	if score.Score != 0.5 || score.Confidence != 0 || score.NumFeedback != 0 {
		t.Fatalf("unexpected default score %+v", score)
	}
}

func TestComputeScoreTagEffects(t *testing.T) {
	now := time.Now()
	base := ComputeScore(1, []Entry{{Rating: 3, CreatedAt: now}}, now)
	lit := ComputeScore(1, []Entry{{Rating: 3, Tags: []string{"welllit"}, CreatedAt: now}}, now)
	dark := ComputeScore(1, []Entry{{Rating: 3, Tags: []string{"dark"}, CreatedAt: now}}, now)

	if base.Score != 0.6 {
		t.Fatalf("3 stars should normalize to 0.6, got %v", base.Score)
	}
	if lit.Score != 0.75 {
		t.Fatalf("welllit should add 0.15, got %v", lit.Score)
	}
	if dark.Score != 0.4 {
		t.Fatalf("dark should subtract 0.2, got %v", dark.Score)
	}
}

func TestComputeScorePersonaAdjust(t *testing.T) {
	now := time.Now()
	walker := ComputeScore(1, []Entry{{Rating: 3, Tags: []string{"harassment"}, Persona: "walker", CreatedAt: now}}, now)
	woman := ComputeScore(1, []Entry{{Rating: 3, Tags: []string{"harassment"}, Persona: "woman", CreatedAt: now}}, now)

	if math.Abs(walker.Score-0.25) > 1e-9 {
		t.Fatalf("harassment should subtract 0.35, got %v", walker.Score)
	}
	if math.Abs(woman.Score-0.15) > 1e-9 {
		t.Fatalf("woman+harassment should subtract a further 0.1, got %v", woman.Score)
	}
}

func TestComputeScoreClamps(t *testing.T) {
	now := time.Now()
	high := ComputeScore(1, []Entry{{Rating: 5, Tags: []string{"safe", "welllit", "cameras"}, CreatedAt: now}}, now)
	low := ComputeScore(1, []Entry{{Rating: 1, Tags: []string{"harassment", "nolight", "dark"}, CreatedAt: now}}, now)

	if high.Score != 1 {
		t.Fatalf("score must clamp at 1, got %v", high.Score)
	}
	if low.Score != 0 {
		t.Fatalf("score must clamp at 0, got %v", low.Score)
	}
}

func TestComputeScoreRecencyWeighting(t *testing.T) {
	now := time.Now()
	entries := []Entry{
		{Rating: 1, CreatedAt: now.AddDate(0, 0, -60)},
		{Rating: 5, CreatedAt: now},
	}
	score := ComputeScore(1, entries, now)
	// The fresh 5-star outweighs the stale 1-star.
	if score.Score <= 0.85 {
		t.Fatalf("recent feedback must dominate, got %v", score.Score)
	}
	if score.NumFeedback != 2 {
		t.Fatalf("both entries still count, got %d", score.NumFeedback)
	}
}

func TestComputeScoreConfidenceGrowsWithVolume(t *testing.T) {
	now := time.Now()
	one := ComputeScore(1, []Entry{{Rating: 4, CreatedAt: now}}, now)
	var many []Entry
	for i := 0; i < 8; i++ {
		many = append(many, Entry{Rating: 4, CreatedAt: now})
	}
	eight := ComputeScore(1, many, now)

	if one.Confidence >= eight.Confidence {
		t.Fatalf("confidence must grow with volume: %v vs %v", one.Confidence, eight.Confidence)
	}
	expected := math.Round((1-math.Exp(-8.0/4))*1000) / 1000
	if eight.Confidence != expected {
		t.Fatalf("expected confidence %v, got %v", expected, eight.Confidence)
	}
}

func TestScoreToColor(t *testing.T) {
	green, orange, red := 0.85, 0.5, 0.2
	if scoreToColor(nil) != "#666666" {
		t.Fatalf("unscored segments are grey")
	}
	if scoreToColor(&green) != "#00ff00" {
		t.Fatalf("high scores are green")
	}
	if scoreToColor(&orange) != "#ffaa00" {
		t.Fatalf("middling scores are orange")
	}
	if scoreToColor(&red) != "#ff0066" {
		t.Fatalf("low scores are red")
	}
}
