// Package feedback stores per-segment safety feedback, folds it into
// decayed safety scores, and serves the heatmap overlay built from them.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/saaj376/StreetSafe/internal/db"
)

var ErrSegmentNotFound = errors.New("segment not found")

const (
	heatmapCacheKey = "heatmap:geojson"
	heatmapCacheTTL = 5 * time.Minute
)

type Service struct {
	db    db.Querier
	cache *redis.Client
	log   *logrus.Entry
}

func NewService(database db.Querier, cache *redis.Client) *Service {
	return &Service{
		db:    database,
		cache: cache,
		log:   logrus.WithField("component", "feedback"),
	}
}

// Submit records one rating against a segment and recomputes its score.
func (s *Service) Submit(ctx context.Context, userID string, req SubmitRequest) (Score, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return Score{}, errors.New("rating must be between 1 and 5")
	}
	known, err := s.segmentExists(ctx, req.SegmentID)
	if err != nil {
		return Score{}, err
	}
	if !known {
		return Score{}, ErrSegmentNotFound
	}

	if err := s.insert(ctx, userID, req.SegmentID, req.Rating, req.Tags, req.Persona); err != nil {
		return Score{}, err
	}
	score, err := s.recompute(ctx, req.SegmentID)
	if err != nil {
		return Score{}, err
	}
	s.invalidateHeatmap(ctx)
	return score, nil
}

// SubmitBulk rates every listed segment with one call, for journey-end
// rating. Unknown segments are skipped, not failed.
func (s *Service) SubmitBulk(ctx context.Context, userID string, req BulkRequest) (int, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return 0, errors.New("rating must be between 1 and 5")
	}
	if len(req.SegmentIDs) == 0 {
		return 0, errors.New("must provide at least one segment_id")
	}

	updated := 0
	for _, id := range req.SegmentIDs {
		known, err := s.segmentExists(ctx, id)
		if err != nil {
			return updated, err
		}
		if !known {
			continue
		}
		if err := s.insert(ctx, userID, id, req.Rating, req.Tags, req.Persona); err != nil {
			return updated, err
		}
		if _, err := s.recompute(ctx, id); err != nil {
			return updated, err
		}
		updated++
	}

	s.invalidateHeatmap(ctx)
	s.log.WithFields(logrus.Fields{"segments": updated, "rating": req.Rating}).Info("bulk feedback applied")
	return updated, nil
}

// SegmentScore reads the stored score, defaulting to 0.5 for segments
// nobody has rated.
func (s *Service) SegmentScore(ctx context.Context, segmentID int64) (Score, error) {
	row := s.db.QueryRow(ctx, `
		SELECT score, confidence, num_feedback
		FROM segment_scores WHERE segment_id = $1
	`, segmentID)
	score := Score{SegmentID: segmentID, Score: defaultScore}
	if err := row.Scan(&score.Score, &score.Confidence, &score.NumFeedback); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return score, nil
		}
		return Score{}, err
	}
	return score, nil
}

type heatmapFeature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type heatmapCollection struct {
	Type     string           `json:"type"`
	Features []heatmapFeature `json:"features"`
}

// Heatmap assembles the safety overlay as GeoJSON, colored by score.
// Cached in redis between feedback writes.
func (s *Service) Heatmap(ctx context.Context) ([]byte, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, heatmapCacheKey).Bytes(); err == nil {
			return cached, nil
		}
	}

	rows, err := s.db.Query(ctx, `
		SELECT s.segment_id, ST_AsGeoJSON(s.geom::geometry), sc.score
		FROM segments s
		LEFT JOIN segment_scores sc ON sc.segment_id = s.segment_id
		ORDER BY s.segment_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	collection := heatmapCollection{Type: "FeatureCollection", Features: []heatmapFeature{}}
	for rows.Next() {
		var (
			id       int64
			geometry string
			score    *float64
		)
		if err := rows.Scan(&id, &geometry, &score); err != nil {
			return nil, err
		}
		collection.Features = append(collection.Features, heatmapFeature{
			Type: "Feature",
			Properties: map[string]any{
				"segment_id": id,
				"score":      score,
				"color":      scoreToColor(score),
			},
			Geometry: json.RawMessage(geometry),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(collection)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, heatmapCacheKey, payload, heatmapCacheTTL).Err(); err != nil {
			s.log.WithError(err).Warn("heatmap cache write failed")
		}
	}
	return payload, nil
}

// Counts reports store totals for the health endpoint.
func (s *Service) Counts(ctx context.Context) (scored, total int, err error) {
	if err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM segment_scores`).Scan(&scored); err != nil {
		return 0, 0, err
	}
	if err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM segment_feedback`).Scan(&total); err != nil {
		return 0, 0, err
	}
	return scored, total, nil
}

func (s *Service) segmentExists(ctx context.Context, segmentID int64) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM segments WHERE segment_id = $1)`, segmentID).Scan(&ok)
	return ok, err
}

func (s *Service) insert(ctx context.Context, userID string, segmentID int64, rating int, tags []string, persona string) error {
	if persona == "" {
		persona = "walker"
	}
	if tags == nil {
		tags = []string{}
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO segment_feedback (segment_id, user_id, rating, tags, persona, trust_weight)
		VALUES ($1, $2, $3, $4, $5, 1.0)
	`, segmentID, userID, rating, tags, persona)
	return err
}

// recompute reloads a segment's feedback, folds it into a fresh score,
// and upserts the stored row plus the redis copy.
func (s *Service) recompute(ctx context.Context, segmentID int64) (Score, error) {
	rows, err := s.db.Query(ctx, `
		SELECT rating, tags, persona, trust_weight, created_at
		FROM segment_feedback WHERE segment_id = $1
	`, segmentID)
	if err != nil {
		return Score{}, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e := Entry{SegmentID: segmentID}
		if err := rows.Scan(&e.Rating, &e.Tags, &e.Persona, &e.TrustWeight, &e.CreatedAt); err != nil {
			return Score{}, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return Score{}, err
	}

	score := ComputeScore(segmentID, entries, time.Now())
	_, err = s.db.Exec(ctx, `
		INSERT INTO segment_scores (segment_id, score, confidence, num_feedback, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (segment_id) DO UPDATE
		SET score=EXCLUDED.score, confidence=EXCLUDED.confidence,
		    num_feedback=EXCLUDED.num_feedback, updated_at=EXCLUDED.updated_at
	`, segmentID, score.Score, score.Confidence, score.NumFeedback)
	if err != nil {
		return Score{}, err
	}

	if s.cache != nil {
		payload, _ := json.Marshal(score)
		key := "segment:score:" + strconv.FormatInt(segmentID, 10)
		if err := s.cache.Set(ctx, key, payload, 0).Err(); err != nil {
			s.log.WithError(err).Warn("score cache write failed")
		}
	}
	return score, nil
}

func (s *Service) invalidateHeatmap(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, heatmapCacheKey).Err(); err != nil {
		s.log.WithError(err).Warn("heatmap cache invalidation failed")
	}
}

// message formatting kept close to the original service responses.
func scoreMessage(segmentID int64, score float64) string {
	return fmt.Sprintf("Thanks! Segment %d safety score updated to %g", segmentID, score)
}
