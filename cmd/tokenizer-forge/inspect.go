package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/inspect"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func inspectCmd() *cli.Command {
	var (
		dir    string
		prefix string
		limit  int
		format string
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Summarise a saved vocabulary and list tokens by prefix",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "artifact directory",
				Destination: &dir,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "prefix",
				Aliases:     []string{"p"},
				Usage:       "list tokens starting with this prefix",
				Destination: &prefix,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "max tokens to list (0 for all)",
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

			idx, err := inspect.Load(nil, dir)
			if err != nil {
				return err
			}
			stats := idx.Stats()
			entries := idx.Prefix(prefix, limit)

			if format == "yaml" {
				type token struct {
					Token string `yaml:"token"`
					ID    int    `yaml:"id"`
				}
				doc := struct {
					Stats  inspect.Stats `yaml:"stats"`
					Tokens []token       `yaml:"tokens"`
				}{Stats: stats}
				for _, en := range entries {
					doc.Tokens = append(doc.Tokens, token{Token: en.Token, ID: en.ID})
				}
				enc := yaml.NewEncoder(e.out)
				enc.SetIndent(2)
				if err := enc.Encode(doc); err != nil {
					return err
				}
				return enc.Close()
			}

			fmt.Fprintf(e.out, "tokens: %d  ids: %d..%d  length: %.2f ± %.2f runes  longest: %q\n",
				stats.Count, stats.MinID, stats.MaxID, stats.MeanRunes, stats.StdDevRunes, stats.LongestToken)
			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTOKEN")
			for _, en := range entries {
				fmt.Fprintf(tw, "%d\t%q\n", en.ID, en.Token)
			}
			return tw.Flush()
		},
	}
}
