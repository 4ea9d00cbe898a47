// Package judge decides whether a learner's written answer is acceptable.
//
// Korean and French answers are graded by two independent tracks that never
// influence each other:
//
//   - [Judge.GradeKorean] is binary: the answer either matches the reference
//     after normalization or it fails. A vowel difference fails immediately.
//   - [Judge.GradeFrench] is tiered: exact or substring match, then a token-set
//     keyword match, then a normalized Levenshtein rate.
//
// [CheckRegister] is an advisory pass over Korean answers. It never changes a
// [Verdict].
//
// A [Judge] is read-only after construction and safe for concurrent use.
package judge

const (
	defaultJaccardThreshold = 0.8
	defaultFrenchPassRate   = 0.15
	defaultKeywordScore     = 95
)

// Verdict notes. Callers may compare against these to render localized
// messages.
const (
	NoteReferenceEmpty   = "reference empty"
	NoteSubstring        = "substring accepted"
	NoteVowelError       = "vowel error"
	NoteExactMatch       = "exact match"
	NoteSpellingMismatch = "spelling mismatch including final/batchim consonants"

	NoteEmptyReference = "empty reference"
	NoteEmptyAnswer    = "empty answer"
	NoteKeywordMatch   = "keyword match"
	NoteCloseMatch     = "close match"
	NoteTooDifferent   = "too different from the reference"
)

// Verdict is the outcome of grading one answer.
type Verdict struct {
	// Score is in [0, 100].
	Score int `json:"score"`

	// IsCorrect reports whether the answer passes.
	IsCorrect bool `json:"is_correct"`

	// Note explains which rule decided the verdict.
	Note string `json:"note,omitempty"`
}

// Option is a functional option for configuring a [Judge].
type Option func(*Judge)

// WithJaccardThreshold sets the minimum token-set similarity for the French
// keyword tier. Default: 0.8.
func WithJaccardThreshold(t float64) Option {
	return func(j *Judge) {
		j.jaccardThreshold = t
	}
}

// WithFrenchPassRate sets the maximum Levenshtein rate (distance divided by
// reference length) that still passes the French track. Default: 0.15.
func WithFrenchPassRate(rate float64) Option {
	return func(j *Judge) {
		j.passRate = rate
	}
}

// WithKeywordScore sets the score awarded by the French keyword tier.
// Default: 95.
func WithKeywordScore(score int) Option {
	return func(j *Judge) {
		j.keywordScore = score
	}
}

// Judge grades Korean and French answers. Construct one with [New]; the
// package-level functions use a Judge with default settings.
type Judge struct {
	jaccardThreshold float64
	passRate         float64
	keywordScore     int
}

// New returns a [Judge] configured with the supplied options.
func New(opts ...Option) *Judge {
	j := &Judge{
		jaccardThreshold: defaultJaccardThreshold,
		passRate:         defaultFrenchPassRate,
		keywordScore:     defaultKeywordScore,
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

var defaultJudge = New()

// GradeKorean grades answer against reference with default settings.
func GradeKorean(reference, answer string, allowSubstring bool) Verdict {
	return defaultJudge.GradeKorean(reference, answer, allowSubstring)
}

// GradeFrench grades answer against reference with default settings.
func GradeFrench(reference, answer string) Verdict {
	return defaultJudge.GradeFrench(reference, answer)
}

func pass(score int, note string) Verdict {
	return Verdict{Score: score, IsCorrect: true, Note: note}
}

func fail(score int, note string) Verdict {
	return Verdict{Score: score, Note: note}
}
