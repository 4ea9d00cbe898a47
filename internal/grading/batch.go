package grading

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/lingograde/internal/cache"
	"github.com/MrWong99/lingograde/internal/observe"
)

// BatchItem is one entry of a [Service.GradeBatch] call. Answer holds the
// hypothesis for the pronunciation track. Vocabulary is only used by the
// pronunciation track.
type BatchItem struct {
	Track          cache.Track `json:"track"`
	Reference      string      `json:"reference"`
	Answer         string      `json:"answer"`
	AllowSubstring *bool       `json:"allow_substring,omitempty"`
	Accuracy       *float64    `json:"accuracy,omitempty"`
	Vocabulary     []string    `json:"vocabulary,omitempty"`
}

// BatchResult is the outcome of one [BatchItem]. Exactly one of the track
// results or Error is set.
type BatchResult struct {
	Index         int                  `json:"index"`
	Track         cache.Track          `json:"track"`
	Korean        *KoreanResult        `json:"korean,omitempty"`
	French        *FrenchResult        `json:"french,omitempty"`
	Pronunciation *PronunciationResult `json:"pronunciation,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// GradeBatch grades items concurrently, at most grading.batch_concurrency at
// a time, and returns one result per item in input order. A failing item is
// reported in its result; only cancellation of ctx fails the whole batch.
func (s *Service) GradeBatch(ctx context.Context, items []BatchItem) (_ []BatchResult, err error) {
	ctx, span := observe.StartSpan(ctx, "grading.batch")
	defer func() { observe.EndSpan(span, err) }()
	span.SetAttributes(attribute.Int("grading.items", len(items)))

	if len(items) > MaxBatchItems {
		err = fmt.Errorf("%w: %d items, limit is %d", ErrInvalidInput, len(items), MaxBatchItems)
		return nil, err
	}

	results := make([]BatchResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.Settings().BatchConcurrency))
	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := s.gradeItem(gctx, item)
			if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return err
			}
			res.Index = i
			res.Track = item.Track
			if err != nil {
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		err = fmt.Errorf("grading: batch: %w", err)
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		err = fmt.Errorf("grading: batch: %w", err)
		return nil, err
	}
	return results, nil
}

func (s *Service) gradeItem(ctx context.Context, item BatchItem) (BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return BatchResult{}, err
	}

	var (
		res BatchResult
		err error
	)
	switch item.Track {
	case cache.TrackKorean:
		res.Korean, err = s.GradeKorean(ctx, KoreanRequest{
			Reference:      item.Reference,
			Answer:         item.Answer,
			AllowSubstring: item.AllowSubstring,
		})
	case cache.TrackFrench:
		res.French, err = s.GradeFrench(ctx, FrenchRequest{
			Reference: item.Reference,
			Answer:    item.Answer,
		})
	case cache.TrackPronunciation:
		res.Pronunciation, err = s.Pronunciation(ctx, PronunciationRequest{
			Reference:  item.Reference,
			Hypothesis: item.Answer,
			Accuracy:   item.Accuracy,
			Vocabulary: item.Vocabulary,
		})
	default:
		err = fmt.Errorf("%w: unknown track %q", ErrInvalidInput, item.Track)
	}
	return res, err
}
