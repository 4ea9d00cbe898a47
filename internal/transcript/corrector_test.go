package transcript_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/MrWong99/lingograde/internal/numeral"
	"github.com/MrWong99/lingograde/internal/transcript"
	"github.com/MrWong99/lingograde/internal/transcript/vocab"
)

// stubMatcher implements transcript.VocabularyMatcher with a fixed lookup.
type stubMatcher struct {
	answers map[string]string
}

func (s stubMatcher) Match(word string, _ []string) (string, float64, bool) {
	if term, ok := s.answers[word]; ok {
		return term, 0.8, true
	}
	return word, 0, false
}

func TestCorrectionPipeline_NumeralsOnly(t *testing.T) {
	t.Parallel()

	p := transcript.NewPipeline(transcript.WithNumerals(numeral.New()))
	got, err := p.Correct(context.Background(), "커피 2잔 주세요", nil)
	if err != nil {
		t.Fatalf("Correct returned error: %v", err)
	}
	if got.Corrected != "커피 두잔 주세요" {
		t.Errorf("Corrected = %q, want %q", got.Corrected, "커피 두잔 주세요")
	}
	want := []transcript.Correction{
		{Original: "2", Corrected: "이", Confidence: 1, Method: transcript.MethodNumeral},
		{Original: "이", Corrected: "두", Confidence: 0.6, Method: transcript.MethodCounter},
	}
	if !slices.Equal(got.Corrections, want) {
		t.Errorf("Corrections = %+v, want %+v", got.Corrections, want)
	}
	if !got.Changed() {
		t.Error("Changed() = false, want true")
	}
}

func TestCorrectionPipeline_VocabularyOnly(t *testing.T) {
	t.Parallel()

	p := transcript.NewPipeline(transcript.WithVocabularyMatcher(vocab.New()))

	got, err := p.Correct(context.Background(), "수진 씨 김치찌게 먹어요", []string{"김치찌개"})
	if err != nil {
		t.Fatalf("Correct returned error: %v", err)
	}
	if got.Corrected != "수진 씨 김치찌개 먹어요" {
		t.Errorf("Corrected = %q", got.Corrected)
	}
	if len(got.Corrections) != 1 || got.Corrections[0].Method != transcript.MethodVocabulary {
		t.Fatalf("Corrections = %+v, want one vocabulary correction", got.Corrections)
	}
	if c := got.Corrections[0]; c.Original != "김치찌게" || c.Corrected != "김치찌개" || c.Confidence < 0.9 {
		t.Errorf("correction = %+v", c)
	}

	got, err = p.Correct(context.Background(), "je parle avec eloise", []string{"Éloïse"})
	if err != nil {
		t.Fatalf("Correct returned error: %v", err)
	}
	if got.Corrected != "je parle avec Éloïse" {
		t.Errorf("Corrected = %q, want %q", got.Corrected, "je parle avec Éloïse")
	}
}

func TestCorrectionPipeline_BothStages(t *testing.T) {
	t.Parallel()

	p := transcript.NewPipeline(
		transcript.WithNumerals(numeral.New()),
		transcript.WithVocabularyMatcher(stubMatcher{answers: map[string]string{"수잔": "수진"}}),
	)
	got, err := p.Correct(context.Background(), "수잔 3살", []string{"수진"})
	if err != nil {
		t.Fatalf("Correct returned error: %v", err)
	}
	if got.Corrected != "수진 세살" {
		t.Errorf("Corrected = %q, want %q", got.Corrected, "수진 세살")
	}
	methods := make([]string, 0, len(got.Corrections))
	for _, c := range got.Corrections {
		methods = append(methods, c.Method)
	}
	want := []string{transcript.MethodNumeral, transcript.MethodCounter, transcript.MethodVocabulary}
	if !slices.Equal(methods, want) {
		t.Errorf("methods = %v, want %v", methods, want)
	}
}

func TestCorrectionPipeline_MultiWordTerm(t *testing.T) {
	t.Parallel()

	p := transcript.NewPipeline(transcript.WithVocabularyMatcher(stubMatcher{answers: map[string]string{
		"tour eifel": "Tour Eiffel",
		"tour":       "wrong",
	}}))
	got, err := p.Correct(context.Background(), "la tour eifel", []string{"Tour Eiffel"})
	if err != nil {
		t.Fatalf("Correct returned error: %v", err)
	}
	if got.Corrected != "la Tour Eiffel" {
		t.Errorf("Corrected = %q, want the two-word window to win", got.Corrected)
	}
}

func TestCorrectionPipeline_NoStages(t *testing.T) {
	t.Parallel()

	p := transcript.NewPipeline()
	got, err := p.Correct(context.Background(), "2개 주세요", []string{"개"})
	if err != nil {
		t.Fatalf("Correct returned error: %v", err)
	}
	if got.Corrected != "2개 주세요" || got.Changed() {
		t.Errorf("Corrected = %q, want input unchanged", got.Corrected)
	}
	if got.Corrections == nil || len(got.Corrections) != 0 {
		t.Errorf("Corrections = %#v, want empty non-nil slice", got.Corrections)
	}
}

func TestCorrectionPipeline_VocabularySkippedWithoutTerms(t *testing.T) {
	t.Parallel()

	p := transcript.NewPipeline(transcript.WithVocabularyMatcher(stubMatcher{answers: map[string]string{"a": "b"}}))
	got, err := p.Correct(context.Background(), "a", nil)
	if err != nil {
		t.Fatalf("Correct returned error: %v", err)
	}
	if got.Corrected != "a" {
		t.Errorf("Corrected = %q, want unchanged without vocabulary", got.Corrected)
	}
}

func TestCorrectionPipeline_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := transcript.NewPipeline(transcript.WithNumerals(numeral.New()))
	if _, err := p.Correct(ctx, "2개", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
