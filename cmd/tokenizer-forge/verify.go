package main

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/artifacts"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/tokenset"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/trainer"

	"github.com/urfave/cli/v3"
)

func verifyCmd() *cli.Command {
	var (
		dir     string
		variant string
		load    bool
	)

	return &cli.Command{
		Name:  "verify",
		Usage: "Check that an artifact directory is internally consistent",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "artifact directory",
				Destination: &dir,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "variant",
				Usage:       "expected special token map (inline, fixed-default)",
				Destination: &variant,
			},
			&cli.BoolFlag{
				Name:        "load",
				Usage:       "also load tokenizer.json with the tokenizer library",
				Destination: &load,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}

			opts := artifacts.VerifyOptions{}
			if variant != "" {
				if opts.Variant, err = tokenset.ParseVariant(variant); err != nil {
					return err
				}
			}
			if load {
				opts.Load = trainer.CheckLoadable
			}

			rep, err := artifacts.Verify(nil, dir, opts)
			if err != nil {
				return err
			}
			for _, w := range rep.Warnings {
				fmt.Fprintf(e.out, "warning: %s\n", w)
			}
			for _, p := range rep.Problems {
				fmt.Fprintf(e.out, "problem: %s\n", p)
			}
			if !rep.OK() {
				return fmt.Errorf("%s: %d problem(s) found", dir, len(rep.Problems))
			}
			fmt.Fprintf(e.out, "%s: ok (%d tokens, %d merges)\n", dir, rep.VocabSize, rep.MergeCount)
			return nil
		},
	}
}
