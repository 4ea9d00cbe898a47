package grading

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/lingograde/internal/cache"
	"github.com/MrWong99/lingograde/internal/judge"
	"github.com/MrWong99/lingograde/internal/numeral"
	"github.com/MrWong99/lingograde/internal/observe"
	"github.com/MrWong99/lingograde/internal/phonetic"
	"github.com/MrWong99/lingograde/internal/transcript"
)

// KoreanRequest asks for a Korean answer to be judged.
type KoreanRequest struct {
	Reference string `json:"reference"`
	Answer    string `json:"answer"`

	// AllowSubstring overrides grading.allow_substring when set.
	AllowSubstring *bool `json:"allow_substring,omitempty"`
}

// KoreanResult is the verdict on a Korean answer.
type KoreanResult struct {
	judge.Verdict

	// Register is advisory and never changes the verdict.
	Register judge.Register `json:"register"`

	// Answer is the learner's text after the pre-pass.
	Answer      string                  `json:"answer"`
	Corrections []transcript.Correction `json:"corrections"`
	Cached      bool                    `json:"cached"`
}

// FrenchRequest asks for a French answer to be judged.
type FrenchRequest struct {
	Reference string `json:"reference"`
	Answer    string `json:"answer"`
}

// FrenchResult is the verdict on a French answer.
type FrenchResult struct {
	judge.Verdict
	Answer      string                  `json:"answer"`
	Corrections []transcript.Correction `json:"corrections"`
	Cached      bool                    `json:"cached"`
}

// PronunciationRequest asks for a recognized utterance to be compared with
// the reference syllable by syllable.
type PronunciationRequest struct {
	Reference  string `json:"reference"`
	Hypothesis string `json:"hypothesis"`

	// Accuracy is an optional accuracy figure in [0, 100] from an external
	// assessor. When set, the result carries it adjusted by the penalty.
	Accuracy *float64 `json:"accuracy,omitempty"`

	// Vocabulary lists lesson terms a misheard word may be snapped onto.
	Vocabulary []string `json:"vocabulary,omitempty"`
}

// PronunciationResult is the phonetic diff of a hypothesis.
type PronunciationResult struct {
	phonetic.Result
	Highlight phonetic.Highlight `json:"highlight"`

	// Reference and Hypothesis are the texts that were compared.
	Reference  string `json:"reference"`
	Hypothesis string `json:"hypothesis"`

	// Accuracy is the request's accuracy multiplied by (1 - Penalty).
	Accuracy *float64 `json:"accuracy,omitempty"`

	Corrections []transcript.Correction `json:"corrections"`
	Cached      bool                    `json:"cached"`
}

// NumeralResult is the output of [Service.Normalize].
type NumeralResult struct {
	Text    string           `json:"text"`
	Changes []numeral.Change `json:"changes"`
}

// GradeKorean judges a Korean answer against its reference.
func (s *Service) GradeKorean(ctx context.Context, req KoreanRequest) (_ *KoreanResult, err error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "grading.korean")
	outcome := observe.OutcomeFail
	defer func() {
		s.finish(ctx, cache.TrackKorean, start, outcome, err)
		observe.EndSpan(span, err)
	}()

	if err = validate(req.Reference, req.Answer, nil); err != nil {
		return nil, err
	}

	st := s.state.Load()
	allow := st.settings.AllowSubstring
	if req.AllowSubstring != nil {
		allow = *req.AllowSubstring
	}
	key := cache.Key{
		Track:      cache.TrackKorean,
		Reference:  req.Reference,
		Hypothesis: req.Answer,
		Options:    fmt.Sprintf("%s;substring=%t", st.options, allow),
	}

	res, hit, err := memo(ctx, s, key, func(ctx context.Context) (*KoreanResult, error) {
		corrected, err := st.written.Correct(ctx, req.Answer, nil)
		if err != nil {
			return nil, fmt.Errorf("grading: korean: %w", err)
		}
		s.recordCorrections(ctx, corrected.Corrections)
		return &KoreanResult{
			Verdict:     st.judge.GradeKorean(s.normalizeReference(st, req.Reference), corrected.Corrected, allow),
			Register:    judge.CheckRegister(corrected.Corrected),
			Answer:      corrected.Corrected,
			Corrections: corrected.Corrections,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	res.Cached = hit
	outcome = passFail(res.IsCorrect)
	annotate(span, hit, res.Score, res.IsCorrect)
	return res, nil
}

// GradeFrench judges a French answer against its reference.
func (s *Service) GradeFrench(ctx context.Context, req FrenchRequest) (_ *FrenchResult, err error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "grading.french")
	outcome := observe.OutcomeFail
	defer func() {
		s.finish(ctx, cache.TrackFrench, start, outcome, err)
		observe.EndSpan(span, err)
	}()

	if err = validate(req.Reference, req.Answer, nil); err != nil {
		return nil, err
	}

	st := s.state.Load()
	key := cache.Key{
		Track:      cache.TrackFrench,
		Reference:  req.Reference,
		Hypothesis: req.Answer,
		Options:    st.options,
	}

	res, hit, err := memo(ctx, s, key, func(ctx context.Context) (*FrenchResult, error) {
		corrected, err := st.french.Correct(ctx, req.Answer, nil)
		if err != nil {
			return nil, fmt.Errorf("grading: french: %w", err)
		}
		s.recordCorrections(ctx, corrected.Corrections)
		return &FrenchResult{
			Verdict:     st.judge.GradeFrench(req.Reference, corrected.Corrected),
			Answer:      corrected.Corrected,
			Corrections: corrected.Corrections,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	res.Cached = hit
	outcome = passFail(res.IsCorrect)
	annotate(span, hit, res.Score, res.IsCorrect)
	return res, nil
}

// Pronunciation scores a recognized Korean utterance against its reference
// and highlights the characters that were pronounced correctly.
func (s *Service) Pronunciation(ctx context.Context, req PronunciationRequest) (_ *PronunciationResult, err error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "grading.pronunciation")
	defer func() {
		s.finish(ctx, cache.TrackPronunciation, start, observe.OutcomeScored, err)
		observe.EndSpan(span, err)
	}()

	if err = validate(req.Reference, req.Hypothesis, req.Vocabulary); err != nil {
		return nil, err
	}
	if a := req.Accuracy; a != nil && (*a < 0 || *a > 100) {
		err = fmt.Errorf("%w: accuracy %g is out of range [0, 100]", ErrInvalidInput, *a)
		return nil, err
	}

	st := s.state.Load()
	key := cache.Key{
		Track:      cache.TrackPronunciation,
		Reference:  req.Reference,
		Hypothesis: req.Hypothesis,
		Options:    st.options + ";terms=" + vocabularyKey(req.Vocabulary),
	}

	res, hit, err := memo(ctx, s, key, func(ctx context.Context) (*PronunciationResult, error) {
		corrected, err := st.spoken.Correct(ctx, req.Hypothesis, req.Vocabulary)
		if err != nil {
			return nil, fmt.Errorf("grading: pronunciation: %w", err)
		}
		s.recordCorrections(ctx, corrected.Corrections)

		reference := s.normalizeReference(st, req.Reference)
		return &PronunciationResult{
			Result:      st.scorer.Score(reference, corrected.Corrected),
			Highlight:   st.scorer.Highlight(reference, corrected.Corrected),
			Reference:   reference,
			Hypothesis:  corrected.Corrected,
			Corrections: corrected.Corrections,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	res.Cached = hit
	if req.Accuracy != nil {
		adjusted := phonetic.AdjustAccuracy(*req.Accuracy, res.Result)
		res.Accuracy = &adjusted
	}
	s.metrics.RecordPenalty(ctx, res.Penalty)
	span.SetAttributes(
		attribute.Bool("grading.cached", hit),
		attribute.Float64("grading.penalty", res.Penalty),
	)
	return res, nil
}

// Normalize spells the digits of text as Korean numerals and applies the
// counter forms, reporting every rewrite. It ignores
// grading.normalize_numerals.
func (s *Service) Normalize(ctx context.Context, text string) (_ *NumeralResult, err error) {
	_, span := observe.StartSpan(ctx, "grading.normalize")
	defer func() { observe.EndSpan(span, err) }()

	if err = checkText("text", text); err != nil {
		return nil, err
	}
	out, changes := s.numerals.NormalizeWithChanges(text)
	if changes == nil {
		changes = []numeral.Change{}
	}
	span.SetAttributes(attribute.Int("grading.changes", len(changes)))
	return &NumeralResult{Text: out, Changes: changes}, nil
}

func validate(reference, answer string, vocabulary []string) error {
	if err := checkText("reference", reference); err != nil {
		return err
	}
	if err := checkText("answer", answer); err != nil {
		return err
	}
	return checkVocabulary(vocabulary)
}

func annotate(span trace.Span, cached bool, score int, correct bool) {
	span.SetAttributes(
		attribute.Bool("grading.cached", cached),
		attribute.Int("grading.score", score),
		attribute.Bool("grading.correct", correct),
	)
}
