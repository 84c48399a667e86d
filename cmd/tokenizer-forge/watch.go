package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/common"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/pipeline"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/tokenset"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/watch"

	"github.com/urfave/cli/v3"
)

func watchCmd() *cli.Command {
	var (
		tf     trainFlags
		corpus string
	)

	return &cli.Command{
		Name:  "watch",
		Usage: "Rebuild the file pipeline every time the corpus file changes",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "corpus",
				Aliases:     []string{"c"},
				Usage:       "UTF-8 corpus file to watch",
				Destination: &corpus,
				Required:    true,
			},
		}, tf.flags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			req := pipeline.Request{Variant: tokenset.VariantFixedDefault, CorpusPath: corpus}
			tf.apply(cmd, e, &req)
			if err := req.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := watch.New(corpus, watch.Config{
				DebounceDelay:    time.Duration(e.cfg.Watch.DebounceMillis) * time.Millisecond,
				MaxDebounceDelay: time.Duration(e.cfg.Watch.MaxDebounceMillis) * time.Millisecond,
				QueueCapacity:    1,
			}, e.log)
			if err != nil {
				return err
			}
			defer w.Close()

			store := e.openHistory()
			defer store.Close()
			runner := pipeline.NewRunner(ctx, e.deps(), 1)
			defer runner.Close()

			started := time.Now()
			done := func(out pipeline.Outcome) {
				e.record(ctx, store, out, started)
				if out.Err != nil {
					e.log.Error().Str("kind", common.KindName(common.KindOf(out.Err))).Msg(common.UserMessage(out.Err))
				} else {
					printReport(e, out.Request, out.Report)
				}
				started = time.Now()
			}

			done(<-runner.Submit(req))
			watch.Rebuild(ctx, w.Changes(), runner, req, done)
			e.log.Info().Msg("watch stopped")
			return nil
		},
	}
}
