// Package gradingtool exposes the grading service as MCP tools, so that an
// LLM tutor can grade learner answers and pronunciation attempts itself.
//
// Tools:
//
//	grade_korean         judge a Korean answer
//	grade_french         judge a French answer
//	score_pronunciation  compare a recognized utterance with its reference
//	normalize_numerals   spell digits as Korean numerals
package gradingtool

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/lingograde/internal/grading"
	"github.com/MrWong99/lingograde/internal/phonetic"
	"github.com/MrWong99/lingograde/internal/transcript"
)

// Grader is the subset of [grading.Service] the tools call.
type Grader interface {
	GradeKorean(ctx context.Context, req grading.KoreanRequest) (*grading.KoreanResult, error)
	GradeFrench(ctx context.Context, req grading.FrenchRequest) (*grading.FrenchResult, error)
	Pronunciation(ctx context.Context, req grading.PronunciationRequest) (*grading.PronunciationResult, error)
	Normalize(ctx context.Context, text string) (*grading.NumeralResult, error)
}

var _ Grader = (*grading.Service)(nil)

// MetadataGradeKorean describes the grade_korean tool.
var MetadataGradeKorean = &mcp.Tool{
	Name: "grade_korean",
	Description: "Grade a learner's Korean answer against the reference sentence. " +
		"Digits are spelled out before comparison, so '2잔' and '두 잔' are equivalent. " +
		"Returns a score from 0 to 100, whether the answer counts as correct, a short note " +
		"(for example 'vowel error') and advisory feedback on politeness register.",
}

// MetadataGradeFrench describes the grade_french tool.
var MetadataGradeFrench = &mcp.Tool{
	Name: "grade_french",
	Description: "Grade a learner's French answer against the reference sentence. " +
		"Accents, case and punctuation are ignored. Small spelling slips still pass " +
		"with a reduced score.",
}

// MetadataScorePronunciation describes the score_pronunciation tool.
var MetadataScorePronunciation = &mcp.Tool{
	Name: "score_pronunciation",
	Description: "Compare what a speech recognizer heard with the Korean sentence the learner " +
		"was asked to say. Returns a penalty between 0 and 0.3, counts of vowel and consonant " +
		"errors, feedback tips and the reference split into correctly and wrongly pronounced spans. " +
		"When an accuracy from an external assessor is supplied it is returned adjusted by the penalty.",
}

// MetadataNormalizeNumerals describes the normalize_numerals tool.
var MetadataNormalizeNumerals = &mcp.Tool{
	Name: "normalize_numerals",
	Description: "Spell the digits of a Korean text as Sino-Korean numerals and apply the native " +
		"counter forms (for example '3개' becomes '세개'). Returns the rewritten text and every change.",
}

// InputGradeKorean is the input for the grade_korean tool.
type InputGradeKorean struct {
	Reference      string `json:"reference" jsonschema:"the expected Korean sentence"`
	Answer         string `json:"answer" jsonschema:"the learner's answer"`
	AllowSubstring *bool  `json:"allow_substring,omitempty" jsonschema:"accept answers that contain the reference; defaults to the server setting"`
}

// InputGradeFrench is the input for the grade_french tool.
type InputGradeFrench struct {
	Reference string `json:"reference" jsonschema:"the expected French sentence"`
	Answer    string `json:"answer" jsonschema:"the learner's answer"`
}

// InputScorePronunciation is the input for the score_pronunciation tool.
type InputScorePronunciation struct {
	Reference  string   `json:"reference" jsonschema:"the Korean sentence the learner was asked to say"`
	Hypothesis string   `json:"hypothesis" jsonschema:"what the speech recognizer heard"`
	Accuracy   *float64 `json:"accuracy,omitempty" jsonschema:"optional accuracy from 0 to 100 reported by a pronunciation assessor"`
	Vocabulary []string `json:"vocabulary,omitempty" jsonschema:"lesson terms a misheard hypothesis may be snapped onto"`
}

// InputNormalizeNumerals is the input for the normalize_numerals tool.
type InputNormalizeNumerals struct {
	Text string `json:"text" jsonschema:"the Korean text to rewrite"`
}

// Correction is one substitution made to the learner's text before grading.
type Correction struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Method    string `json:"method"`
}

// OutputGrade is the output of the grade_korean and grade_french tools.
type OutputGrade struct {
	Score     int    `json:"score"`
	IsCorrect bool   `json:"is_correct"`
	Note      string `json:"note,omitempty"`
	// Answer is the learner's text as it was graded.
	Answer      string       `json:"answer"`
	Corrections []Correction `json:"corrections"`
	// RegisterAdvice is set when a Korean answer mixes polite and plain speech.
	RegisterAdvice string `json:"register_advice,omitempty"`
}

// Span is a run of reference characters that share a mark: "correct",
// "wrong" or "none" for characters that are not Hangul.
type Span struct {
	Text string `json:"text"`
	Mark string `json:"mark"`
}

// OutputScorePronunciation is the output of the score_pronunciation tool.
type OutputScorePronunciation struct {
	Penalty          float64      `json:"penalty"`
	Exact            int          `json:"exact"`
	VowelErrors      int          `json:"vowel_errors"`
	ConsonantErrors  int          `json:"consonant_errors"`
	Deletions        int          `json:"deletions"`
	Insertions       int          `json:"insertions"`
	Tips             []string     `json:"tips"`
	Spans            []Span       `json:"spans"`
	Hypothesis       string       `json:"hypothesis"`
	AdjustedAccuracy *float64     `json:"adjusted_accuracy,omitempty"`
	Corrections      []Correction `json:"corrections"`
}

// Change is one rewrite made by normalize_numerals.
type Change struct {
	Rule string `json:"rule"`
	From string `json:"from"`
	To   string `json:"to"`
}

// OutputNormalizeNumerals is the output of the normalize_numerals tool.
type OutputNormalizeNumerals struct {
	Text    string   `json:"text"`
	Changes []Change `json:"changes"`
}

// Tools holds the tool handlers bound to a [Grader].
type Tools struct {
	grader Grader
}

// New returns the tool handlers backed by g.
func New(g Grader) *Tools {
	return &Tools{grader: g}
}

// Register adds every grading tool to s.
func (t *Tools) Register(s *mcp.Server) {
	mcp.AddTool(s, MetadataGradeKorean, t.GradeKorean)
	mcp.AddTool(s, MetadataGradeFrench, t.GradeFrench)
	mcp.AddTool(s, MetadataScorePronunciation, t.ScorePronunciation)
	mcp.AddTool(s, MetadataNormalizeNumerals, t.NormalizeNumerals)
}

// NewServer returns an MCP server named lingograde with every grading tool
// registered.
func NewServer(g Grader, version string) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{Name: "lingograde", Version: version}, nil)
	New(g).Register(s)
	return s
}

// GradeKorean judges a Korean answer.
func (t *Tools) GradeKorean(ctx context.Context, _ *mcp.CallToolRequest, input InputGradeKorean) (*mcp.CallToolResult, OutputGrade, error) {
	if err := requireReference(input.Reference); err != nil {
		return nil, OutputGrade{}, err
	}
	res, err := t.grader.GradeKorean(ctx, grading.KoreanRequest{
		Reference:      input.Reference,
		Answer:         input.Answer,
		AllowSubstring: input.AllowSubstring,
	})
	if err != nil {
		return nil, OutputGrade{}, err
	}
	out := OutputGrade{
		Score:       res.Score,
		IsCorrect:   res.IsCorrect,
		Note:        res.Note,
		Answer:      res.Answer,
		Corrections: corrections(res.Corrections),
	}
	if !res.Register.Consistent {
		out.RegisterAdvice = res.Register.Advice
	}
	return nil, out, nil
}

// GradeFrench judges a French answer.
func (t *Tools) GradeFrench(ctx context.Context, _ *mcp.CallToolRequest, input InputGradeFrench) (*mcp.CallToolResult, OutputGrade, error) {
	if err := requireReference(input.Reference); err != nil {
		return nil, OutputGrade{}, err
	}
	res, err := t.grader.GradeFrench(ctx, grading.FrenchRequest{
		Reference: input.Reference,
		Answer:    input.Answer,
	})
	if err != nil {
		return nil, OutputGrade{}, err
	}
	return nil, OutputGrade{
		Score:       res.Score,
		IsCorrect:   res.IsCorrect,
		Note:        res.Note,
		Answer:      res.Answer,
		Corrections: corrections(res.Corrections),
	}, nil
}

// ScorePronunciation diffs a recognized utterance against its reference.
func (t *Tools) ScorePronunciation(ctx context.Context, _ *mcp.CallToolRequest, input InputScorePronunciation) (*mcp.CallToolResult, OutputScorePronunciation, error) {
	if err := requireReference(input.Reference); err != nil {
		return nil, OutputScorePronunciation{}, err
	}
	res, err := t.grader.Pronunciation(ctx, grading.PronunciationRequest{
		Reference:  input.Reference,
		Hypothesis: input.Hypothesis,
		Accuracy:   input.Accuracy,
		Vocabulary: input.Vocabulary,
	})
	if err != nil {
		return nil, OutputScorePronunciation{}, err
	}

	out := OutputScorePronunciation{
		Penalty:          res.Penalty,
		Exact:            res.Counts.Exact,
		VowelErrors:      res.Counts.Vowel,
		ConsonantErrors:  res.Counts.Complex,
		Deletions:        res.Counts.Deletions,
		Insertions:       res.Counts.Insertions,
		Tips:             make([]string, 0, len(res.Tips)),
		Spans:            spans(res.Highlight.ReferenceSpans),
		Hypothesis:       res.Hypothesis,
		AdjustedAccuracy: res.Accuracy,
		Corrections:      corrections(res.Corrections),
	}
	for _, tip := range res.Tips {
		out.Tips = append(out.Tips, tip.Message)
	}
	return nil, out, nil
}

// NormalizeNumerals spells the digits of a Korean text.
func (t *Tools) NormalizeNumerals(ctx context.Context, _ *mcp.CallToolRequest, input InputNormalizeNumerals) (*mcp.CallToolResult, OutputNormalizeNumerals, error) {
	res, err := t.grader.Normalize(ctx, input.Text)
	if err != nil {
		return nil, OutputNormalizeNumerals{}, err
	}
	out := OutputNormalizeNumerals{
		Text:    res.Text,
		Changes: make([]Change, 0, len(res.Changes)),
	}
	for _, c := range res.Changes {
		out.Changes = append(out.Changes, Change{Rule: c.Rule, From: c.From, To: c.To})
	}
	return nil, out, nil
}

func requireReference(reference string) error {
	if reference == "" {
		return errors.New("reference is required")
	}
	return nil
}

func corrections(in []transcript.Correction) []Correction {
	out := make([]Correction, 0, len(in))
	for _, c := range in {
		out = append(out, Correction{Original: c.Original, Corrected: c.Corrected, Method: c.Method})
	}
	return out
}

func spans(in []phonetic.Span) []Span {
	out := make([]Span, 0, len(in))
	for _, s := range in {
		out = append(out, Span{Text: s.Text, Mark: s.Mark.String()})
	}
	return out
}
