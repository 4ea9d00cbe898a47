package judge

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/MrWong99/lingograde/pkg/hangul"
)

// Level is a speech level detected in a Korean sentence.
type Level string

const (
	LevelUnknown Level = ""
	LevelPolite  Level = "polite"
	LevelPlain   Level = "plain"
)

// Register is the advisory outcome of [CheckRegister].
type Register struct {
	// Pronoun is the level implied by the first-person pronoun, if any.
	Pronoun Level `json:"pronoun,omitempty"`

	// Ending is the level implied by the sentence-final ending, if any.
	Ending Level `json:"ending,omitempty"`

	// Consistent is false only when both levels are known and disagree.
	Consistent bool `json:"consistent"`

	// Advice is a human-readable hint, empty when Consistent.
	Advice string `json:"advice,omitempty"`
}

var (
	humblePronouns = []string{"저", "저는", "저도", "저를", "저의", "저한테", "저랑", "제", "제가", "제게"}
	plainPronouns  = []string{"나", "나는", "나도", "나를", "나의", "나한테", "나랑", "내", "내가", "내게"}
	politeEndings  = []string{"요", "니다", "니까"}
)

// CheckRegister looks for a humble (저/제) or plain (나/내) first-person
// pronoun and compares it with the politeness of the sentence-final ending.
// The result is informational and never affects a [Verdict].
func CheckRegister(answer string) Register {
	words := strings.FieldsFunc(norm.NFC.String(answer), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})

	var reg Register
	for _, w := range words {
		if reg.Pronoun = pronounLevel(w); reg.Pronoun != LevelUnknown {
			break
		}
	}
	if len(words) > 0 {
		reg.Ending = endingLevel(words[len(words)-1])
	}

	reg.Consistent = reg.Pronoun == LevelUnknown || reg.Ending == LevelUnknown || reg.Pronoun == reg.Ending
	switch {
	case reg.Consistent:
	case reg.Pronoun == LevelPolite:
		reg.Advice = "The humble pronoun 저/제 is used with a plain ending. Finish the sentence politely (-요 or -니다)."
	default:
		reg.Advice = "The plain pronoun 나/내 is used with a polite ending. Use 저/제 when speaking politely."
	}
	return reg
}

func pronounLevel(word string) Level {
	for _, p := range humblePronouns {
		if word == p {
			return LevelPolite
		}
	}
	for _, p := range plainPronouns {
		if word == p {
			return LevelPlain
		}
	}
	return LevelUnknown
}

func endingLevel(word string) Level {
	word = hangul.Filter(word)
	if word == "" {
		return LevelUnknown
	}
	for _, e := range politeEndings {
		if strings.HasSuffix(word, e) {
			return LevelPolite
		}
	}
	return LevelPlain
}
