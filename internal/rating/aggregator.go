// Package rating batches one star rating across every road segment
// traversed during a completed journey. Submissions run sequentially to
// bound load on the scoring service, and earlier successes are never
// rolled back when a later one fails.
package rating

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/saaj376/StreetSafe/internal/client"
	"github.com/saaj376/StreetSafe/internal/fault"
)

// FeedbackAPI is the segment feedback write path. *client.Client satisfies it.
type FeedbackAPI interface {
	SubmitFeedback(ctx context.Context, segmentID int64, rating int, tags []string, persona string) error
}

type Aggregator struct {
	api       FeedbackAPI
	persona   string
	onRefresh func()
	log       *logrus.Entry
}

// NewAggregator builds an aggregator. onRefresh, when non-nil, is invoked
// after a fully successful batch so the heatmap consumer re-fetches.
func NewAggregator(api FeedbackAPI, persona string, onRefresh func()) *Aggregator {
	return &Aggregator{
		api:       api,
		persona:   persona,
		onRefresh: onRefresh,
		log:       logrus.WithField("component", "rating"),
	}
}

// Submit rates every segment in order. On the first failure it stops and
// reports how many segments were rated; partial application stands.
func (a *Aggregator) Submit(ctx context.Context, segments []client.SegmentRef, stars int, tags []string) (int, error) {
	if stars < 1 || stars > 5 {
		return 0, fault.New(fault.Validation, "rating must be between 1 and 5")
	}
	if len(segments) == 0 {
		return 0, fault.New(fault.Validation, "no segments to rate")
	}

	for i, seg := range segments {
		if err := a.api.SubmitFeedback(ctx, seg.SegmentID, stars, tags, a.persona); err != nil {
			a.log.WithError(err).WithFields(logrus.Fields{
				"segment_id": seg.SegmentID,
				"succeeded":  i,
				"total":      len(segments),
			}).Warn("rating batch stopped")
			return i, fault.Partial(i, err)
		}
	}

	a.log.WithFields(logrus.Fields{
		"segments": len(segments),
		"stars":    stars,
	}).Info("journey rated")
	if a.onRefresh != nil {
		a.onRefresh()
	}
	return len(segments), nil
}
