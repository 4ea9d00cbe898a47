// Command lingograde-grade grades a single answer from the command line and
// prints the result as JSON. It runs the same pipeline as the server, without
// a cache.
//
//	lingograde-grade --track korean --reference "커피 두 잔 주세요" --answer "커피 2잔 주세요"
//	lingograde-grade --track pronunciation --reference 주세요 --answer 주세오 --accuracy 90
//	lingograde-grade --track numerals --answer "사과 3개"
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/MrWong99/lingograde/internal/config"
	"github.com/MrWong99/lingograde/internal/grading"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, ff.ErrHelp) {
			slog.Error("fatal", "error", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := ff.NewFlagSet("lingograde-grade")

	var (
		track      = fs.StringEnumLong("track", "what to grade", "korean", "french", "pronunciation", "numerals")
		reference  = fs.StringLong("reference", "", "expected sentence")
		answer     = fs.StringLong("answer", "", "learner answer, recognized utterance or text to normalize")
		accuracy   = fs.StringLong("accuracy", "", "external pronunciation accuracy in [0, 100] to adjust")
		vocabulary = fs.StringLong("vocabulary", "", "comma-separated lesson terms to snap misheard words onto (pronunciation only)")
		configPath = fs.StringLong("config", "", "optional server config file whose grading section is used")
		verbose    = fs.BoolLong("verbose", "log at debug level")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVars()); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		return err
	}
	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	settings := config.Defaults().Grading
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		settings = cfg.Grading
	}
	svc := grading.New(settings)

	var terms []string
	for t := range strings.SplitSeq(*vocabulary, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) > 0 && *track != "pronunciation" {
		return errors.New("--vocabulary only applies to the pronunciation track")
	}

	var (
		result any
		err    error
	)
	switch *track {
	case "korean":
		result, err = svc.GradeKorean(ctx, grading.KoreanRequest{Reference: *reference, Answer: *answer})
	case "french":
		result, err = svc.GradeFrench(ctx, grading.FrenchRequest{Reference: *reference, Answer: *answer})
	case "pronunciation":
		req := grading.PronunciationRequest{Reference: *reference, Hypothesis: *answer, Vocabulary: terms}
		if *accuracy != "" {
			a, perr := strconv.ParseFloat(*accuracy, 64)
			if perr != nil {
				return fmt.Errorf("parse accuracy: %w", perr)
			}
			req.Accuracy = &a
		}
		result, err = svc.Pronunciation(ctx, req)
	case "numerals":
		result, err = svc.Normalize(ctx, *answer)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}
