package emergency

import "time"

const (
	StatusLive  = "live"
	StatusEnded = "ended"
)

type Grant struct {
	Token       string `json:"token"`
	GuardianURL string `json:"guardian_url"`
}

type Snapshot struct {
	Status       string    `json:"status"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	IsStationary bool      `json:"is_stationary"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LocationPing is the payload fanned out to guardian watchers on every
// location update.
type LocationPing struct {
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	IsStationary bool      `json:"is_stationary"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ActivateRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type UpdateRequest struct {
	Token        string  `json:"token"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	IsStationary bool    `json:"is_stationary"`
}

type DeactivateRequest struct {
	Token string `json:"token"`
}
