// Package grading composes the judge, the phonetic scorer, the hypothesis
// pre-pass and the result cache into the operations exposed by the HTTP API,
// the MCP tools and the CLI.
//
// Every Korean track applies the same numeral normalization to the reference
// and to the learner's text, so the two sides are always compared in the
// same spelling. Vocabulary snapping only rewrites recognized speech on the
// pronunciation track; written answers reach the judge unchanged apart from
// numerals.
package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/MrWong99/lingograde/internal/cache"
	"github.com/MrWong99/lingograde/internal/config"
	"github.com/MrWong99/lingograde/internal/judge"
	"github.com/MrWong99/lingograde/internal/numeral"
	"github.com/MrWong99/lingograde/internal/observe"
	"github.com/MrWong99/lingograde/internal/phonetic"
	"github.com/MrWong99/lingograde/internal/transcript"
	"github.com/MrWong99/lingograde/internal/transcript/vocab"
)

const (
	// MaxInputRunes bounds every text field. Alignment is quadratic in the
	// input length.
	MaxInputRunes = 1000

	// MaxBatchItems bounds the size of a [Service.GradeBatch] call.
	MaxBatchItems = 500

	// MaxVocabulary bounds the number of vocabulary terms per request.
	MaxVocabulary = 200
)

// ErrInvalidInput is wrapped by every error caused by a malformed request.
var ErrInvalidInput = errors.New("grading: invalid input")

// Option is a functional option for configuring a [Service].
type Option func(*Service)

// WithCache memoizes results in c. Without it nothing is cached.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithMetrics records to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithVocabularyMatcher replaces the default [vocab.Matcher] used by the
// vocabulary stage.
func WithVocabularyMatcher(m transcript.VocabularyMatcher) Option {
	return func(s *Service) {
		s.matcher = m
	}
}

// WithNumerals replaces the default [numeral.Normalizer].
func WithNumerals(n *numeral.Normalizer) Option {
	return func(s *Service) {
		s.numerals = n
	}
}

// Service grades learner answers. It is safe for concurrent use, including
// concurrent calls to [Service.UpdateSettings].
type Service struct {
	cache    cache.Cache
	metrics  *observe.Metrics
	matcher  transcript.VocabularyMatcher
	numerals *numeral.Normalizer

	state atomic.Pointer[state]
}

// state is an immutable snapshot built from one [config.GradingConfig].
type state struct {
	settings config.GradingConfig
	judge    *judge.Judge
	scorer   *phonetic.Scorer
	written  transcript.Pipeline
	french   transcript.Pipeline
	spoken   transcript.Pipeline

	// options is the cache key fragment shared by every request graded
	// under these settings.
	options string
}

// New returns a [Service] using settings.
func New(settings config.GradingConfig, opts ...Option) *Service {
	s := &Service{
		metrics:  observe.DefaultMetrics(),
		matcher:  vocab.New(),
		numerals: numeral.New(),
	}
	for _, o := range opts {
		o(s)
	}
	s.UpdateSettings(settings)
	return s
}

// Settings returns the settings currently in effect.
func (s *Service) Settings() config.GradingConfig {
	return s.state.Load().settings
}

// UpdateSettings swaps in new settings. Requests already running finish with
// the settings they started with.
func (s *Service) UpdateSettings(g config.GradingConfig) {
	var written, spoken []transcript.PipelineOption
	if g.NormalizeNumerals {
		written = append(written, transcript.WithNumerals(s.numerals))
		spoken = append(spoken, transcript.WithNumerals(s.numerals))
	}
	if g.SnapVocabulary {
		spoken = append(spoken, transcript.WithVocabularyMatcher(s.matcher))
	}

	s.state.Store(&state{
		settings: g,
		judge: judge.New(
			judge.WithJaccardThreshold(g.JaccardThreshold),
			judge.WithFrenchPassRate(g.FrenchPassRate),
			judge.WithKeywordScore(g.KeywordScore),
		),
		scorer:  phonetic.New(phonetic.WithPenaltyCap(g.PenaltyCap)),
		written: transcript.NewPipeline(written...),
		french:  transcript.NewPipeline(),
		spoken:  transcript.NewPipeline(spoken...),
		options: fmt.Sprintf("jaccard=%g;pass_rate=%g;keyword=%d;cap=%g;numerals=%t;vocabulary=%t",
			g.JaccardThreshold, g.FrenchPassRate, g.KeywordScore, g.PenaltyCap,
			g.NormalizeNumerals, g.SnapVocabulary),
	})
}

// normalizeReference applies the numeral stage to a Korean reference so it
// is spelled like the corrected learner text.
func (s *Service) normalizeReference(st *state, reference string) string {
	if !st.settings.NormalizeNumerals {
		return reference
	}
	out, _ := s.numerals.NormalizeWithChanges(reference)
	return out
}

func (s *Service) recordCorrections(ctx context.Context, cs []transcript.Correction) {
	for _, c := range cs {
		s.metrics.RecordCorrection(ctx, c.Method)
	}
}

// finish records the outcome of one graded item.
func (s *Service) finish(ctx context.Context, track cache.Track, start time.Time, outcome string, err error) {
	if err != nil {
		outcome = observe.OutcomeError
	}
	s.metrics.RecordGrade(ctx, string(track), outcome, time.Since(start))
}

func passFail(ok bool) string {
	if ok {
		return observe.OutcomePass
	}
	return observe.OutcomeFail
}

// memo returns the cached value for key, or computes and stores it. Cache
// failures are logged and never fail the request.
func memo[T any](ctx context.Context, s *Service, key cache.Key, compute func(context.Context) (*T, error)) (*T, bool, error) {
	if s.cache == nil {
		v, err := compute(ctx)
		return v, false, err
	}

	log := observe.Logger(ctx)
	payload, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(payload, &v); err == nil {
			s.metrics.RecordCacheLookup(ctx, "hit")
			return &v, true, nil
		}
		s.metrics.RecordCacheLookup(ctx, "error")
		log.Warn("grading: discarding undecodable cache entry", "track", key.Track, "err", err)
	case errors.Is(err, cache.ErrMiss):
		s.metrics.RecordCacheLookup(ctx, "miss")
	default:
		s.metrics.RecordCacheLookup(ctx, "error")
		log.Warn("grading: cache lookup failed", "track", key.Track, "err", err)
	}

	v, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}
	if payload, err = json.Marshal(v); err == nil {
		err = s.cache.Put(ctx, key, payload)
	}
	if err != nil {
		log.Warn("grading: cache store failed", "track", key.Track, "err", err)
	}
	return v, false, nil
}

// checkText validates one text field.
func checkText(field, text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidInput, field)
	}
	if n := utf8.RuneCountInString(text); n > MaxInputRunes {
		return fmt.Errorf("%w: %s has %d characters, limit is %d", ErrInvalidInput, field, n, MaxInputRunes)
	}
	return nil
}

func checkVocabulary(terms []string) error {
	if len(terms) > MaxVocabulary {
		return fmt.Errorf("%w: %d vocabulary terms, limit is %d", ErrInvalidInput, len(terms), MaxVocabulary)
	}
	for _, t := range terms {
		if err := checkText("vocabulary term", t); err != nil {
			return err
		}
	}
	return nil
}

func vocabularyKey(terms []string) string {
	return strings.Join(terms, "\x1f")
}
