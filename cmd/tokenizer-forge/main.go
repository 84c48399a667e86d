package main

import (
	"context"
	"fmt"
	"io"
	"os"

	internal "github.com/ZanzyTHEbar/tokenizer-forge/forge"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/common"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/config"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/history"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/trainer"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

// newTrainer is swapped out in tests.
var newTrainer = func(cfg *config.Config, logger zerolog.Logger) trainer.Trainer {
	return trainer.NewByteLevelBPE(cfg.Trainer.MinFrequency, logger)
}

// env is what every command needs once flags are parsed.
type env struct {
	cfg *config.Config
	log zerolog.Logger
	out io.Writer
}

func setup(cmd *cli.Command) (*env, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	level, format := cfg.Log.Level, cfg.Log.Format
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	errOut := cmd.Root().ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	return &env{cfg: cfg, log: internal.NewLogger(errOut, level, format), out: out}, nil
}

// openHistory returns the configured store. History never blocks a run: if
// the database cannot be opened the run is kept in memory only.
func (e *env) openHistory() history.Store {
	if !e.cfg.History.Enabled {
		return history.NewMemoryStore()
	}
	s, err := history.Open(e.cfg.History.DSN, e.log)
	if err != nil {
		e.log.Warn().Err(err).Msg("run history unavailable")
		return history.NewMemoryStore()
	}
	return s
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  internal.DefaultAppName,
		Usage: "Train byte-level BPE tokenizers and write Hugging Face artifacts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to config.yaml",
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Destination: &logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "log format (pretty, json)",
				Destination: &logFormat,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			inlineCmd(),
			fileCmd(),
			verifyCmd(),
			inspectCmd(),
			historyCmd(),
			watchCmd(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, common.UserMessage(err))
		os.Exit(1)
	}
}
