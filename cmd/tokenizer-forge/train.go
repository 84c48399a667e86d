package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/history"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/pipeline"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/tokenset"

	"github.com/urfave/cli/v3"
)

type trainFlags struct {
	out       string
	vocabSize int
	maxLen    int
}

func (f *trainFlags) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "output directory for the artifacts",
			Destination: &f.out,
		},
		&cli.IntFlag{
			Name:        "vocab-size",
			Usage:       "upper bound on the vocabulary size (default from config)",
			Destination: &f.vocabSize,
		},
		&cli.IntFlag{
			Name:        "max-len",
			Usage:       "max sequence length written to tokenizer_config.json (default from config)",
			Destination: &f.maxLen,
		},
	}
}

// apply fills req from the flags, falling back to config for unset ones.
func (f *trainFlags) apply(cmd *cli.Command, e *env, req *pipeline.Request) {
	req.OutputDir = f.out
	if !cmd.IsSet("out") {
		req.OutputDir = e.cfg.Output.Dir
	}
	req.VocabSize = e.cfg.Trainer.VocabSize
	if cmd.IsSet("vocab-size") {
		req.VocabSize = f.vocabSize
	}
	req.MaxLen = e.cfg.Trainer.MaxLen
	if cmd.IsSet("max-len") {
		req.MaxLen = f.maxLen
	}
}

func inlineCmd() *cli.Command {
	var (
		tf       trainFlags
		tokens   string
		text     string
		textFile string
	)

	return &cli.Command{
		Name:  "inline",
		Usage: "Train from a comma separated token list",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "tokens",
				Aliases:     []string{"t"},
				Usage:       "comma separated special/seed tokens",
				Value:       tokenset.DefaultInlineText(),
				Destination: &tokens,
			},
			&cli.StringFlag{
				Name:        "text",
				Usage:       "training text, one example per line (default: the token list itself)",
				Destination: &text,
			},
			&cli.StringFlag{
				Name:        "text-file",
				Usage:       "read training text from a UTF-8 file",
				Destination: &textFile,
			},
		}, tf.flags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			req := pipeline.Request{
				Variant:    tokenset.VariantInline,
				TokensText: tokens,
				CorpusPath: textFile,
			}
			if text != "" {
				req.CorpusLines = strings.Split(text, "\n")
			}
			tf.apply(cmd, e, &req)
			return e.train(ctx, req)
		},
	}
}

func fileCmd() *cli.Command {
	var (
		tf     trainFlags
		corpus string
	)

	return &cli.Command{
		Name:  "file",
		Usage: "Train from a corpus file with the fixed default token set",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "corpus",
				Aliases:     []string{"c"},
				Usage:       "UTF-8 corpus file, one example per line",
				Destination: &corpus,
			},
		}, tf.flags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			req := pipeline.Request{Variant: tokenset.VariantFixedDefault, CorpusPath: corpus}
			tf.apply(cmd, e, &req)
			return e.train(ctx, req)
		},
	}
}

func (e *env) deps() pipeline.Deps {
	return pipeline.Deps{Trainer: newTrainer(e.cfg, e.log), Logger: e.log}
}

// train runs req on a background worker, records it, and prints a summary.
func (e *env) train(ctx context.Context, req pipeline.Request) error {
	store := e.openHistory()
	defer store.Close()

	runner := pipeline.NewRunner(ctx, e.deps(), 0)
	defer runner.Close()

	started := time.Now()
	out := <-runner.Submit(req)
	e.record(ctx, store, out, started)
	if out.Err != nil {
		return out.Err
	}
	printReport(e, req, out.Report)
	return nil
}

func (e *env) record(ctx context.Context, store history.Store, out pipeline.Outcome, started time.Time) {
	run := history.NewRun(out.Request, out.Report, out.Err, started)
	if err := store.Record(ctx, run); err != nil {
		e.log.Warn().Err(err).Msg("failed to record run")
	}
}

func printReport(e *env, req pipeline.Request, rep *pipeline.Report) {
	fmt.Fprintf(e.out, "Tokenizer saved to %s\n", req.OutputDir)
	fmt.Fprintf(e.out, "  run:        %s\n", rep.RunID)
	fmt.Fprintf(e.out, "  tokens:     %d\n", len(rep.Tokens))
	fmt.Fprintf(e.out, "  vocabulary: %d (requested %d)\n", rep.VocabSize, req.VocabSize)
	fmt.Fprintf(e.out, "  merges:     %d\n", rep.MergeCount)
	fmt.Fprintf(e.out, "  took:       %s\n", rep.Duration.Round(time.Millisecond))
}
