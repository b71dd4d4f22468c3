package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func searchCommand() *cli.Command {
	var (
		cfg   config
		limit int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of results",
			Value:       3,
			Destination: &limit,
		},
	}
	flags = append(flags, repositoryFlags(&cfg)...)
	flags = append(flags, geminiFlags(&cfg)...)

	return &cli.Command{
		Name:      "search",
		Usage:     "Search the knowledge base",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			query := c.Args().First()
			if query == "" {
				return goerr.New("query argument is required")
			}

			uc, repo, err := cfg.newKnowledgeUseCase(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			results, err := uc.Search(ctx, query, int(limit))
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if len(results) == 0 {
				fmt.Fprintf(w, "No matching documents\n")
				return nil
			}

			for _, r := range results {
				fmt.Fprintf(w, "[%.3f] %s\n", r.Similarity, r.Record.Title)
				if r.Record.Excerpt != "" {
					fmt.Fprintf(w, "        %s\n", r.Record.Excerpt)
				}
				if r.Record.URL != "" {
					fmt.Fprintf(w, "        %s\n", r.Record.URL)
				}
			}
			return nil
		},
	}
}
