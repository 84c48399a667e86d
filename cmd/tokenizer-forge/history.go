package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func historyCmd() *cli.Command {
	var (
		limit  int
		format string
	)

	return &cli.Command{
		Name:  "history",
		Usage: "List recorded runs, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "max runs to list (0 for all)",
				Value:       20,
				Destination: &limit,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (table, yaml)",
				Value:       "table",
				Destination: &format,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			store := e.openHistory()
			defer store.Close()

			runs, err := store.List(ctx, limit)
			if err != nil {
				return err
			}

			if format == "yaml" {
				enc := yaml.NewEncoder(e.out)
				enc.SetIndent(2)
				if err := enc.Encode(runs); err != nil {
					return err
				}
				return enc.Close()
			}

			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tVARIANT\tSTATUS\tVOCAB\tMERGES\tOUTPUT\tERROR")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\n",
					r.StartedAt.Local().Format(time.DateTime), r.Variant, r.Status,
					r.ActualVocab, r.VocabSize, r.MergeCount, r.OutputDir, r.ErrorMessage)
			}
			return tw.Flush()
		},
	}
}
