package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/boralio/leadbot/pkg/adapter"
	"github.com/boralio/leadbot/pkg/usecase/export"
)

func exportCommand() *cli.Command {
	var (
		cfg       config
		bqProject string
		datasetID string
		tableID   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "bq-project",
			Usage:       "Google Cloud project ID for BigQuery",
			Sources:     cli.EnvVars("BIGQUERY_PROJECT_ID"),
			Destination: &bqProject,
		},
		&cli.StringFlag{
			Name:        "dataset",
			Usage:       "BigQuery dataset ID",
			Required:    true,
			Sources:     cli.EnvVars("LEADBOT_BQ_DATASET"),
			Destination: &datasetID,
		},
		&cli.StringFlag{
			Name:        "table",
			Usage:       "BigQuery table ID",
			Value:       "leads",
			Sources:     cli.EnvVars("LEADBOT_BQ_TABLE"),
			Destination: &tableID,
		},
	}
	flags = append(flags, repositoryFlags(&cfg)...)

	return &cli.Command{
		Name:  "export",
		Usage: "Export captured leads to BigQuery",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if bqProject == "" {
				return goerr.New("bq-project is required")
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			bq, err := adapter.NewBigQuery(ctx, bqProject)
			if err != nil {
				return err
			}

			n, err := export.Export(ctx, repo, bq, datasetID, tableID)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Exported %d leads to %s.%s\n", n, datasetID, tableID)
			return nil
		},
	}
}
