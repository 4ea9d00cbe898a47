package grading_test

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/lingograde/internal/cache"
	"github.com/MrWong99/lingograde/internal/config"
	"github.com/MrWong99/lingograde/internal/grading"
	"github.com/MrWong99/lingograde/internal/judge"
	"github.com/MrWong99/lingograde/internal/observe"
	"github.com/MrWong99/lingograde/internal/transcript"
)

func newService(t *testing.T, opts ...grading.Option) (*grading.Service, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	opts = append([]grading.Option{grading.WithMetrics(m)}, opts...)
	return grading.New(config.Defaults().Grading, opts...), reader
}

// countGrades sums lingograde.grade.requests data points with the given
// outcome.
func countGrades(t *testing.T, reader *sdkmetric.ManualReader, outcome string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var n int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "lingograde.grade.requests" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				if v, _ := dp.Attributes.Value("outcome"); v.AsString() == outcome {
					n += dp.Value
				}
			}
		}
	}
	return n
}

func ptr[T any](v T) *T { return &v }

func TestGradeKorean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		req      grading.KoreanRequest
		want     judge.Verdict
		answer   string
		nChanges int
	}{
		{
			name:   "identical",
			req:    grading.KoreanRequest{Reference: "안녕하세요", Answer: "안녕하세요"},
			want:   judge.Verdict{Score: 100, IsCorrect: true, Note: judge.NoteSubstring},
			answer: "안녕하세요",
		},
		{
			name:   "substring override",
			req:    grading.KoreanRequest{Reference: "안녕하세요", Answer: "안녕하세요", AllowSubstring: ptr(false)},
			want:   judge.Verdict{Score: 100, IsCorrect: true, Note: judge.NoteExactMatch},
			answer: "안녕하세요",
		},
		{
			name:     "digits in the answer",
			req:      grading.KoreanRequest{Reference: "커피 두 잔 주세요", Answer: "커피 2잔 주세요"},
			want:     judge.Verdict{Score: 100, IsCorrect: true, Note: judge.NoteSubstring},
			answer:   "커피 두잔 주세요",
			nChanges: 2,
		},
		{
			name:   "vowel error",
			req:    grading.KoreanRequest{Reference: "김치찌개 먹어요", Answer: "김치찌게 먹어요"},
			want:   judge.Verdict{Score: 0, Note: judge.NoteVowelError},
			answer: "김치찌게 먹어요",
		},
	}

	svc, _ := newService(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := svc.GradeKorean(context.Background(), tc.req)
			if err != nil {
				t.Fatalf("GradeKorean: %v", err)
			}
			if got.Verdict != tc.want {
				t.Errorf("Verdict = %+v, want %+v", got.Verdict, tc.want)
			}
			if got.Answer != tc.answer {
				t.Errorf("Answer = %q, want %q", got.Answer, tc.answer)
			}
			if len(got.Corrections) != tc.nChanges {
				t.Errorf("Corrections = %+v, want %d", got.Corrections, tc.nChanges)
			}
			if got.Cached {
				t.Error("Cached = true without a cache")
			}
		})
	}
}

func TestGradeKorean_Register(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	got, err := svc.GradeKorean(context.Background(), grading.KoreanRequest{
		Reference: "저는 학생이에요",
		Answer:    "저는 학생이야",
	})
	if err != nil {
		t.Fatalf("GradeKorean: %v", err)
	}
	if got.IsCorrect {
		t.Error("IsCorrect = true for a different ending")
	}
	if got.Register.Consistent || got.Register.Advice == "" {
		t.Errorf("Register = %+v, want an inconsistency with advice", got.Register)
	}
}

func TestGradeFrench(t *testing.T) {
	t.Parallel()

	svc, reader := newService(t)
	ctx := context.Background()

	got, err := svc.GradeFrench(ctx, grading.FrenchRequest{Reference: "bonjour madame", Answer: "bonjour madam"})
	if err != nil {
		t.Fatalf("GradeFrench: %v", err)
	}
	if got.Score != 93 || !got.IsCorrect {
		t.Errorf("close answer = %+v, want 93 and correct", got.Verdict)
	}

	got, err = svc.GradeFrench(ctx, grading.FrenchRequest{Reference: "chien", Answer: "chat"})
	if err != nil {
		t.Fatalf("GradeFrench: %v", err)
	}
	if got.IsCorrect {
		t.Errorf("different word = %+v, want incorrect", got.Verdict)
	}

	if n := countGrades(t, reader, observe.OutcomePass); n != 1 {
		t.Errorf("pass count = %d, want 1", n)
	}
	if n := countGrades(t, reader, observe.OutcomeFail); n != 1 {
		t.Errorf("fail count = %d, want 1", n)
	}
}

type stubMatcher map[string]string

func (s stubMatcher) Match(word string, _ []string) (string, float64, bool) {
	if term, ok := s[word]; ok {
		return term, 0.9, true
	}
	return word, 0, false
}

func TestGradeFrench_DigitsKept(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	got, err := svc.GradeFrench(context.Background(), grading.FrenchRequest{
		Reference: "j'ai 2 chats",
		Answer:    "j'ai 2 chats",
	})
	if err != nil {
		t.Fatalf("GradeFrench: %v", err)
	}
	// Digits are never spelled out in French answers.
	if got.Answer != "j'ai 2 chats" || len(got.Corrections) != 0 {
		t.Errorf("Answer = %q, Corrections = %+v", got.Answer, got.Corrections)
	}
	if got.Score != 100 || !got.IsCorrect {
		t.Errorf("Verdict = %+v, want exact match", got.Verdict)
	}
}

func TestVocabulary_OnlySnapsSpokenText(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, grading.WithVocabularyMatcher(stubMatcher{"주세오": "주세요"}))
	ctx := context.Background()

	results, err := svc.GradeBatch(ctx, []grading.BatchItem{
		{Track: cache.TrackKorean, Reference: "요리해 주세요", Answer: "요리해 주세오", AllowSubstring: ptr(false), Vocabulary: []string{"주세요"}},
		{Track: cache.TrackFrench, Reference: "le chien", Answer: "le chat", Vocabulary: []string{"chien"}},
		{Track: cache.TrackPronunciation, Reference: "요리해 주세요", Answer: "요리해 주세오", Vocabulary: []string{"주세요"}},
	})
	if err != nil {
		t.Fatalf("GradeBatch: %v", err)
	}

	korean := results[0].Korean
	if korean == nil {
		t.Fatalf("korean result missing: %+v", results[0])
	}
	if want := (judge.Verdict{Score: 0, Note: judge.NoteVowelError}); korean.Verdict != want {
		t.Errorf("korean Verdict = %+v, want %+v", korean.Verdict, want)
	}
	if korean.Answer != "요리해 주세오" || len(korean.Corrections) != 0 {
		t.Errorf("korean answer rewritten: %q, %+v", korean.Answer, korean.Corrections)
	}

	if french := results[1].French; french == nil || french.IsCorrect || len(french.Corrections) != 0 {
		t.Errorf("french result = %+v, want an uncorrected failing verdict", french)
	}

	spoken := results[2].Pronunciation
	if spoken == nil {
		t.Fatalf("pronunciation result missing: %+v", results[2])
	}
	if spoken.Hypothesis != "요리해 주세요" || spoken.Penalty != 0 {
		t.Errorf("pronunciation = %q with penalty %v, want the snapped hypothesis", spoken.Hypothesis, spoken.Penalty)
	}
	if len(spoken.Corrections) != 1 || spoken.Corrections[0].Method != transcript.MethodVocabulary {
		t.Errorf("Corrections = %+v", spoken.Corrections)
	}
}

func TestPronunciation(t *testing.T) {
	t.Parallel()

	svc, reader := newService(t)
	got, err := svc.Pronunciation(context.Background(), grading.PronunciationRequest{
		Reference:  "주세요",
		Hypothesis: "주세오",
		Accuracy:   ptr(90.0),
	})
	if err != nil {
		t.Fatalf("Pronunciation: %v", err)
	}
	if math.Abs(got.Penalty-0.08) > 1e-9 {
		t.Errorf("Penalty = %v, want 0.08", got.Penalty)
	}
	if got.Counts.Vowel != 1 {
		t.Errorf("Counts = %+v, want one vowel mismatch", got.Counts)
	}
	if got.Accuracy == nil || math.Abs(*got.Accuracy-82.8) > 1e-9 {
		t.Errorf("Accuracy = %v, want 82.8", got.Accuracy)
	}
	if len(got.Highlight.ReferenceSpans) == 0 || len(got.Highlight.HypothesisSpans) == 0 {
		t.Errorf("Highlight = %+v, want spans on both sides", got.Highlight)
	}
	if n := countGrades(t, reader, observe.OutcomeScored); n != 1 {
		t.Errorf("scored count = %d, want 1", n)
	}

	noBase, err := svc.Pronunciation(context.Background(), grading.PronunciationRequest{Reference: "주세요", Hypothesis: "주세요"})
	if err != nil {
		t.Fatalf("Pronunciation: %v", err)
	}
	if noBase.Accuracy != nil || noBase.Penalty != 0 {
		t.Errorf("identical without accuracy = %+v", noBase)
	}
}

func TestPronunciation_NumeralsOnBothSides(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	got, err := svc.Pronunciation(context.Background(), grading.PronunciationRequest{
		Reference:  "사과 두개 주세요",
		Hypothesis: "사과 2개 주세요",
	})
	if err != nil {
		t.Fatalf("Pronunciation: %v", err)
	}
	if got.Penalty != 0 {
		t.Errorf("Penalty = %v, want 0 (units %+v)", got.Penalty, got.Units)
	}
	if got.Reference != got.Hypothesis {
		t.Errorf("compared %q with %q, want equal spellings", got.Reference, got.Hypothesis)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	got, err := svc.Normalize(context.Background(), "사과 2개")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Text != "네과 두개" {
		t.Errorf("Text = %q, want %q", got.Text, "네과 두개")
	}
	if len(got.Changes) != 3 {
		t.Errorf("Changes = %+v, want 3", got.Changes)
	}

	got, err = svc.Normalize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Changes == nil || len(got.Changes) != 0 {
		t.Errorf("Changes = %#v, want empty non-nil", got.Changes)
	}
}

func TestInvalidInput(t *testing.T) {
	t.Parallel()

	svc, reader := newService(t)
	ctx := context.Background()
	long := strings.Repeat("가", grading.MaxInputRunes+1)

	_, err := svc.GradeKorean(ctx, grading.KoreanRequest{Reference: long, Answer: "가"})
	if !errors.Is(err, grading.ErrInvalidInput) {
		t.Errorf("long reference err = %v, want ErrInvalidInput", err)
	}
	_, err = svc.GradeFrench(ctx, grading.FrenchRequest{Reference: "a", Answer: "\xff"})
	if !errors.Is(err, grading.ErrInvalidInput) {
		t.Errorf("invalid UTF-8 err = %v, want ErrInvalidInput", err)
	}
	_, err = svc.Pronunciation(ctx, grading.PronunciationRequest{Reference: "가", Hypothesis: "가", Accuracy: ptr(101.0)})
	if !errors.Is(err, grading.ErrInvalidInput) {
		t.Errorf("accuracy err = %v, want ErrInvalidInput", err)
	}
	_, err = svc.Normalize(ctx, long)
	if !errors.Is(err, grading.ErrInvalidInput) {
		t.Errorf("normalize err = %v, want ErrInvalidInput", err)
	}
	if n := countGrades(t, reader, observe.OutcomeError); n != 3 {
		t.Errorf("error count = %d, want 3", n)
	}
}

func TestUpdateSettings(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	req := grading.KoreanRequest{Reference: "안녕", Answer: "안녕하세요"}

	got, err := svc.GradeKorean(context.Background(), req)
	if err != nil || !got.IsCorrect {
		t.Fatalf("with substring: %+v, %v", got, err)
	}

	settings := svc.Settings()
	settings.AllowSubstring = false
	svc.UpdateSettings(settings)
	if svc.Settings().AllowSubstring {
		t.Fatal("Settings() did not reflect the update")
	}

	got, err = svc.GradeKorean(context.Background(), req)
	if err != nil {
		t.Fatalf("GradeKorean: %v", err)
	}
	if got.IsCorrect {
		t.Errorf("without substring: %+v, want incorrect", got.Verdict)
	}
}

func TestCache(t *testing.T) {
	t.Parallel()

	mem := cache.NewMemCache(10)
	svc, _ := newService(t, grading.WithCache(mem))
	ctx := context.Background()
	req := grading.KoreanRequest{Reference: "커피 두 잔", Answer: "커피 2잔"}

	first, err := svc.GradeKorean(ctx, req)
	if err != nil {
		t.Fatalf("GradeKorean: %v", err)
	}
	second, err := svc.GradeKorean(ctx, req)
	if err != nil {
		t.Fatalf("GradeKorean: %v", err)
	}
	if first.Cached || !second.Cached {
		t.Errorf("Cached = %v then %v, want false then true", first.Cached, second.Cached)
	}
	if first.Verdict != second.Verdict || first.Answer != second.Answer || len(second.Corrections) != 2 {
		t.Errorf("cached result %+v differs from %+v", second, first)
	}

	// A settings change is part of the key.
	settings := svc.Settings()
	settings.AllowSubstring = false
	svc.UpdateSettings(settings)
	third, err := svc.GradeKorean(ctx, req)
	if err != nil {
		t.Fatalf("GradeKorean: %v", err)
	}
	if third.Cached {
		t.Error("result cached across a settings change")
	}
	if mem.Len() != 2 {
		t.Errorf("cache holds %d entries, want 2", mem.Len())
	}
}

// brokenCache fails every call.
type brokenCache struct {
	mu   sync.Mutex
	puts int
}

func (c *brokenCache) Get(context.Context, cache.Key) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (c *brokenCache) Put(context.Context, cache.Key, []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	return errors.New("connection refused")
}

func TestCache_PronunciationKeepsMarks(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, grading.WithCache(cache.NewMemCache(10)))
	ctx := context.Background()
	req := grading.PronunciationRequest{Reference: "안녕하세요!", Hypothesis: "안녕 하세오"}

	first, err := svc.Pronunciation(ctx, req)
	if err != nil {
		t.Fatalf("Pronunciation: %v", err)
	}
	second, err := svc.Pronunciation(ctx, req)
	if err != nil {
		t.Fatalf("Pronunciation: %v", err)
	}
	if !second.Cached {
		t.Fatal("second call was not served from the cache")
	}
	if len(second.Highlight.Reference) != len([]rune(req.Reference)) {
		t.Fatalf("cached Reference marks = %v", second.Highlight.Reference)
	}
	if !slices.Equal(first.Highlight.Reference, second.Highlight.Reference) ||
		!slices.Equal(first.Highlight.Hypothesis, second.Highlight.Hypothesis) {
		t.Errorf("cached marks %+v differ from %+v", second.Highlight, first.Highlight)
	}
}

func TestCache_FailuresDoNotFailGrading(t *testing.T) {
	t.Parallel()

	bc := &brokenCache{}
	svc, _ := newService(t, grading.WithCache(bc))
	got, err := svc.GradeFrench(context.Background(), grading.FrenchRequest{Reference: "merci", Answer: "merci"})
	if err != nil {
		t.Fatalf("GradeFrench: %v", err)
	}
	if !got.IsCorrect || got.Cached {
		t.Errorf("result = %+v", got)
	}
	if bc.puts != 1 {
		t.Errorf("puts = %d, want 1", bc.puts)
	}
}
