package feedback

import (
	"math"
	"strings"
	"time"
)

const (
	defaultScore = 0.5
	decayPerDay  = 0.08
)

func tagAdjust(tags []string) float64 {
	var adj float64
	for _, tag := range tags {
		adj += tagEffects[strings.ToLower(tag)]
	}
	return adj
}

func personaAdjust(persona string, tags []string) float64 {
	if persona != "woman" {
		return 0
	}
	for _, tag := range tags {
		if strings.ToLower(tag) == "harassment" {
			return -0.10
		}
	}
	return 0
}

func timeDecay(age time.Duration) float64 {
	days := age.Hours() / 24
	return math.Exp(-decayPerDay * days)
}

// ComputeScore folds a segment's feedback into one [0,1] safety score.
// Each entry contributes its normalized rating adjusted by tags and
// persona, weighted by recency and trust. No feedback scores 0.5 with
// zero confidence.
func ComputeScore(segmentID int64, entries []Entry, now time.Time) Score {
	if len(entries) == 0 {
		return Score{SegmentID: segmentID, Score: defaultScore}
	}

	var weightedSum, totalWeight float64
	for _, e := range entries {
		adj := float64(e.Rating)/5 + tagAdjust(e.Tags) + personaAdjust(e.Persona, e.Tags)
		adj = math.Max(0, math.Min(1, adj))

		trust := e.TrustWeight
		if trust == 0 {
			trust = 1
		}
		w := timeDecay(now.Sub(e.CreatedAt)) * trust

		weightedSum += adj * w
		totalWeight += w
	}

	score := defaultScore
	if totalWeight > 0 {
		score = weightedSum / totalWeight
	}
	return Score{
		SegmentID:   segmentID,
		Score:       math.Round(score*1000) / 1000,
		Confidence:  math.Round((1-math.Exp(-float64(len(entries))/4))*1000) / 1000,
		NumFeedback: len(entries),
	}
}

func scoreToColor(score *float64) string {
	switch {
	case score == nil:
		return "#666666"
	case *score >= 0.8:
		return "#00ff00"
	case *score >= 0.5:
		return "#ffaa00"
	default:
		return "#ff0066"
	}
}
