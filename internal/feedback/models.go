package feedback

import "time"

// Per-tag score adjustments applied on top of the normalized star rating.
var tagEffects = map[string]float64{
	"dark":       -0.20,
	"isolated":   -0.15,
	"harassment": -0.35,
	"dogs":       -0.10,
	"nolight":    -0.25,
	"crowd":      +0.05,
	"welllit":    +0.15,
	"busy":       +0.10,
	"safe":       +0.20,
	"cameras":    +0.10,
}

var (
	NegativeTags = []string{"dark", "isolated", "harassment", "dogs", "nolight"}
	PositiveTags = []string{"crowd", "welllit", "busy", "safe", "cameras"}
)

type Entry struct {
	SegmentID   int64     `json:"segment_id"`
	Rating      int       `json:"rating"`
	Tags        []string  `json:"tags"`
	Persona     string    `json:"persona"`
	TrustWeight float64   `json:"trust_weight"`
	CreatedAt   time.Time `json:"created_at"`
}

type Score struct {
	SegmentID   int64   `json:"segment_id"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	NumFeedback int     `json:"num_feedback"`
}

type SubmitRequest struct {
	SegmentID int64    `json:"segment_id"`
	Rating    int      `json:"rating"`
	Tags      []string `json:"tags"`
	Persona   string   `json:"persona"`
}

type SubmitResponse struct {
	Success   bool    `json:"success"`
	SegmentID int64   `json:"segment_id"`
	NewScore  float64 `json:"new_score"`
	Message   string  `json:"message"`
}

type BulkRequest struct {
	SegmentIDs []int64  `json:"segment_ids"`
	Rating     int      `json:"rating"`
	Tags       []string `json:"tags"`
	Persona    string   `json:"persona"`
}

type BulkResponse struct {
	Success         bool   `json:"success"`
	SegmentsUpdated int    `json:"segments_updated"`
	Message         string `json:"message"`
}
