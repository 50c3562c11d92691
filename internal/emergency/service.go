// Package emergency owns the server side of an SOS session: token
// minting, live location updates fanned out to guardians, and the
// terminal deactivation that invalidates the token.
package emergency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saaj376/StreetSafe/internal/db"
	"github.com/saaj376/StreetSafe/internal/stream"
)

var (
	ErrNotFound = errors.New("sos session not found")
	ErrEnded    = errors.New("sos session ended")
)

type Service struct {
	db     db.Querier
	hub    *stream.Hub
	origin string
}

// NewService wires the SOS store. origin is the public base URL used to
// build shareable guardian links.
func NewService(database db.Querier, hub *stream.Hub, origin string) *Service {
	return &Service{db: database, hub: hub, origin: origin}
}

// Activate mints a fresh token for the caller. Tokens are never reused;
// a reactivated session always gets a new one.
func (s *Service) Activate(ctx context.Context, userID string, lat, lng float64) (Grant, error) {
	token := uuid.NewString()
	row := s.db.QueryRow(ctx, `
		INSERT INTO sos_sessions (token, user_id, status, location, is_stationary)
		VALUES ($1, $2, 'live', ST_SetSRID(ST_MakePoint($3,$4), 4326)::geography, false)
		RETURNING created_at
	`, token, userID, lng, lat)
	var createdAt time.Time
	if err := row.Scan(&createdAt); err != nil {
		return Grant{}, err
	}
	return Grant{
		Token:       token,
		GuardianURL: s.origin + "/guardian/" + token,
	}, nil
}

// UpdateLocation records a ping against a live session and fans it out
// to any connected guardians. Updates against an ended token fail with
// ErrEnded so the sender stops broadcasting.
func (s *Service) UpdateLocation(ctx context.Context, token string, lat, lng float64, stationary bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE sos_sessions
		SET location = ST_SetSRID(ST_MakePoint($2,$3), 4326)::geography,
		    is_stationary = $4,
		    updated_at = NOW()
		WHERE token = $1 AND status = 'live'
	`, token, lng, lat, stationary)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.classifyMiss(ctx, token)
	}

	if s.hub != nil {
		payload, _ := json.Marshal(LocationPing{
			Lat:          lat,
			Lng:          lng,
			IsStationary: stationary,
			UpdatedAt:    time.Now().UTC(),
		})
		s.hub.Broadcast(token, payload)
	}
	return nil
}

// Status resolves a token for the guardian view. Ended sessions still
// resolve, with their final position and an ended status.
func (s *Service) Status(ctx context.Context, token string) (Snapshot, error) {
	row := s.db.QueryRow(ctx, `
		SELECT status, ST_Y(location::geometry), ST_X(location::geometry), is_stationary, updated_at
		FROM sos_sessions WHERE token = $1
	`, token)
	var snap Snapshot
	if err := row.Scan(&snap.Status, &snap.Lat, &snap.Lng, &snap.IsStationary, &snap.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	return snap, nil
}

// Deactivate ends a live session. The transition is terminal: the token
// stays resolvable but can never go live again.
func (s *Service) Deactivate(ctx context.Context, token string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE sos_sessions
		SET status = 'ended', ended_at = NOW(), updated_at = NOW()
		WHERE token = $1 AND status = 'live'
	`, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.classifyMiss(ctx, token)
	}

	if s.hub != nil {
		s.hub.Broadcast(token, []byte(`{"status":"ended"}`))
	}
	return nil
}

// classifyMiss distinguishes an unknown token from one whose session
// already ended.
func (s *Service) classifyMiss(ctx context.Context, token string) error {
	var status string
	err := s.db.QueryRow(ctx, `SELECT status FROM sos_sessions WHERE token = $1`, token).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status == StatusEnded {
		return ErrEnded
	}
	return ErrNotFound
}
