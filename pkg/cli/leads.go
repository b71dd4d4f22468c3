package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func leadsCommand() *cli.Command {
	var (
		cfg    config
		offset int64
		limit  int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Number of leads to skip",
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of leads",
			Value:       20,
			Destination: &limit,
		},
	}
	flags = append(flags, repositoryFlags(&cfg)...)

	return &cli.Command{
		Name:  "leads",
		Usage: "List captured leads",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			leads, err := repo.ListLeads(ctx, int(offset), int(limit))
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if len(leads) == 0 {
				fmt.Fprintf(w, "No leads captured yet\n")
				return nil
			}

			deref := func(s *string) string {
				if s == nil {
					return "-"
				}
				return *s
			}

			for _, lead := range leads {
				fmt.Fprintf(w, "%s\t%3d\t%s\t%s\t%s\n",
					lead.SessionID,
					lead.Score,
					deref(lead.Attributes.Email),
					deref(lead.Attributes.Company),
					lead.UpdatedAt.Format("2006-01-02 15:04:05"),
				)
			}
			return nil
		},
	}
}
