// Package pipeline runs one tokenizer build: resolve the token set, load
// the corpus, train, and persist the artifacts.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/artifacts"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/common"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/tokenset"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/trainer"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Request is the input of one run.
type Request struct {
	Variant tokenset.Variant
	// TokensText is the raw comma separated list of the inline variant.
	TokensText string
	// CorpusLines are the training examples. When empty, CorpusPath is read;
	// an inline run with neither trains on the lines of TokensText.
	CorpusLines []string
	CorpusPath  string
	VocabSize   int
	MaxLen      int
	OutputDir   string
}

// Report describes a finished run.
type Report struct {
	RunID      uuid.UUID
	Variant    tokenset.Variant
	Tokens     tokenset.TokenSet
	VocabSize  int
	MergeCount int
	Files      []string
	Started    time.Time
	Duration   time.Duration
}

// Deps are the collaborators of a run.
type Deps struct {
	Trainer trainer.Trainer
	// Fs is used for the corpus and the artifacts. Nil means the OS filesystem.
	Fs     afero.Fs
	Logger zerolog.Logger
}

// Validate rejects requests that are missing a required input. It runs
// before anything touches the disk.
func (r Request) Validate() error {
	switch r.Variant {
	case tokenset.VariantInline:
		if strings.TrimSpace(r.TokensText) == "" {
			return common.EmptyInput(common.StageValidate, "no tokens provided")
		}
	case tokenset.VariantFixedDefault:
		if r.CorpusPath == "" && len(r.CorpusLines) == 0 {
			return common.EmptyInput(common.StageValidate, "corpus file is required")
		}
	default:
		return common.EmptyInput(common.StageValidate, fmt.Sprintf("unknown token set variant %q", r.Variant))
	}
	if strings.TrimSpace(r.OutputDir) == "" {
		return common.EmptyInput(common.StageValidate, "output directory is required")
	}
	if r.MaxLen <= 0 {
		return common.EmptyInput(common.StageValidate, "max_len must be positive")
	}
	return nil
}

// Run executes the four steps strictly in order and blocks until the last
// artifact is written. Every error is a *common.StageError.
func Run(ctx context.Context, req Request, deps Deps) (*Report, error) {
	started := time.Now()
	log := deps.Logger.With().Str("variant", string(req.Variant)).Logger()

	if err := req.Validate(); err != nil {
		log.Debug().Str("stage", string(common.StageValidate)).Err(err).Msg("request rejected")
		return nil, err
	}
	if deps.Trainer == nil {
		return nil, common.TrainingFailed(fmt.Errorf("no trainer configured"))
	}

	tokens, err := tokenset.Resolve(req.Variant, req.TokensText)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("stage", string(common.StageResolve)).Int("tokens", len(tokens)).Msg("token set resolved")

	lines := req.CorpusLines
	switch {
	case len(lines) > 0:
	case req.CorpusPath != "":
		lines, err = ReadCorpus(deps.Fs, req.CorpusPath)
		if err != nil {
			return nil, err
		}
	default:
		lines = strings.Split(req.TokensText, "\n")
	}
	log.Debug().Str("stage", string(common.StageCorpus)).Int("lines", len(lines)).Msg("corpus loaded")

	if err := ctx.Err(); err != nil {
		return nil, common.TrainingFailed(err)
	}

	res, err := deps.Trainer.Train(trainer.Request{
		Tokens:      tokens,
		VocabSize:   req.VocabSize,
		MaxLen:      req.MaxLen,
		CorpusLines: lines,
	})
	if err != nil {
		if common.KindOf(err) == nil {
			err = common.TrainingFailed(err)
		}
		log.Error().Str("stage", string(common.StageTrain)).Err(err).Msg("training failed")
		return nil, err
	}
	if res == nil {
		return nil, common.TrainingFailed(fmt.Errorf("trainer returned no result"))
	}
	if len(res.Vocabulary) < req.VocabSize {
		log.Warn().
			Int("requested", req.VocabSize).
			Int("actual", len(res.Vocabulary)).
			Msg("vocabulary smaller than requested")
	}
	log.Debug().Str("stage", string(common.StageTrain)).Int("vocab", len(res.Vocabulary)).Int("merges", len(res.Merges)).Msg("training finished")

	// a trained result is always persisted; cancellation only stops a run
	// that has not started training

	p := artifacts.NewPersister(deps.Fs, log)
	files, err := p.Persist(req.OutputDir, res, tokenset.SpecialTokens(req.Variant), artifacts.NewTokenizerConfig(req.MaxLen))
	if err != nil {
		log.Error().Str("stage", string(common.StagePersist)).Strs("written", files).Err(err).Msg("persistence failed")
		return nil, err
	}

	rep := &Report{
		RunID:      uuid.New(),
		Variant:    req.Variant,
		Tokens:     tokens,
		VocabSize:  len(res.Vocabulary),
		MergeCount: len(res.Merges),
		Files:      files,
		Started:    started,
		Duration:   time.Since(started),
	}
	log.Info().
		Str("stage", string(common.StagePersist)).
		Str("run", rep.RunID.String()).
		Str("dir", req.OutputDir).
		Int("vocab", rep.VocabSize).
		Dur("took", rep.Duration).
		Msg("tokenizer saved")
	return rep, nil
}
