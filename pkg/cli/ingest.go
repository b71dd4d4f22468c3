package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/boralio/leadbot/pkg/repository"
	"github.com/boralio/leadbot/pkg/usecase/knowledge"
)

func ingestCommand() *cli.Command {
	var (
		cfg        config
		corpusPath string
		initSchema bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Path to YAML corpus file",
			Required:    true,
			Destination: &corpusPath,
		},
		&cli.BoolFlag{
			Name:        "init",
			Usage:       "Create tables and indexes before ingesting (postgres only)",
			Destination: &initSchema,
		},
	}
	flags = append(flags, repositoryFlags(&cfg)...)
	flags = append(flags, geminiFlags(&cfg)...)

	return &cli.Command{
		Name:  "ingest",
		Usage: "Embed and index a knowledge base corpus",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			corpus, err := knowledge.LoadCorpus(corpusPath)
			if err != nil {
				return err
			}

			uc, repo, err := cfg.newKnowledgeUseCase(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			if initSchema {
				if pg, ok := repo.(*repository.Postgres); ok {
					if err := pg.InitSchema(ctx); err != nil {
						return err
					}
				}
			}

			n, err := uc.Ingest(ctx, corpus)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Ingested %d documents\n", n)
			return nil
		},
	}
}
