package rating

import (
	"context"
	"errors"
	"testing"

	"github.com/saaj376/StreetSafe/internal/client"
	"github.com/saaj376/StreetSafe/internal/fault"
)

type scriptedFeedback struct {
	failAt int // 1-based index of the submission that fails; 0 never fails
	calls  []int64
}

func (s *scriptedFeedback) SubmitFeedback(_ context.Context, segmentID int64, _ int, _ []string, _ string) error {
	s.calls = append(s.calls, segmentID)
	if s.failAt > 0 && len(s.calls) == s.failAt {
		return fault.New(fault.Connectivity, "backend unreachable")
	}
	return nil
}

func segments(n int) []client.SegmentRef {
	out := make([]client.SegmentRef, n)
	for i := range out {
		out[i] = client.SegmentRef{SegmentID: int64(i + 1), LengthM: 100}
	}
	return out
}

func TestSubmitAll(t *testing.T) {
	api := &scriptedFeedback{}
	refreshed := false
	agg := NewAggregator(api, "walker", func() { refreshed = true })

	n, err := agg.Submit(context.Background(), segments(4), 5, []string{"welllit"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if n != 4 || len(api.calls) != 4 {
		t.Fatalf("expected 4 sequential submissions, got %d (%v)", n, api.calls)
	}
	for i, id := range api.calls {
		if id != int64(i+1) {
			t.Fatalf("submissions out of order: %v", api.calls)
		}
	}
	if !refreshed {
		t.Fatalf("full success must signal a heatmap refresh")
	}
}

func TestPartialFailureCountsSuccesses(t *testing.T) {
	for _, k := range []int{1, 3, 5} {
		api := &scriptedFeedback{failAt: k}
		refreshed := false
		agg := NewAggregator(api, "walker", func() { refreshed = true })

		n, err := agg.Submit(context.Background(), segments(5), 3, nil)
		if !fault.IsPartialBatch(err) {
			t.Fatalf("failAt=%d: expected partial batch, got %v", k, err)
		}
		if n != k-1 || fault.SucceededCount(err) != k-1 {
			t.Fatalf("failAt=%d: expected %d successes, got n=%d count=%d", k, k-1, n, fault.SucceededCount(err))
		}
		if len(api.calls) != k {
			t.Fatalf("failAt=%d: batch must stop at first failure, got %d calls", k, len(api.calls))
		}
		if refreshed {
			t.Fatalf("failAt=%d: partial batch must not signal refresh", k)
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	agg := NewAggregator(&scriptedFeedback{}, "walker", nil)

	if _, err := agg.Submit(context.Background(), segments(2), 0, nil); !fault.IsValidation(err) {
		t.Fatalf("expected validation error for rating 0, got %v", err)
	}
	if _, err := agg.Submit(context.Background(), segments(2), 6, nil); !fault.IsValidation(err) {
		t.Fatalf("expected validation error for rating 6, got %v", err)
	}
	if _, err := agg.Submit(context.Background(), nil, 4, nil); !fault.IsValidation(err) {
		t.Fatalf("expected validation error for empty batch, got %v", err)
	}
}

func TestPartialErrorChainKeepsCause(t *testing.T) {
	api := &scriptedFeedback{failAt: 2}
	agg := NewAggregator(api, "walker", nil)

	_, err := agg.Submit(context.Background(), segments(3), 4, nil)
	if !fault.IsPartialBatch(err) {
		t.Fatalf("expected partial batch, got %v", err)
	}
	var fe *fault.Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected fault error")
	}
	if !fault.IsConnectivity(errors.Unwrap(fe)) {
		t.Fatalf("expected connectivity cause, got %v", errors.Unwrap(fe))
	}
}
