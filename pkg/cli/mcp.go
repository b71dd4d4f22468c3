package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/boralio/leadbot/pkg/service/mcp"
)

func mcpCommand() *cli.Command {
	var cfg config

	flags := repositoryFlags(&cfg)
	flags = append(flags, geminiFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the knowledge base and leads as MCP tools on stdio",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, repo, err := cfg.newKnowledgeUseCase(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			return mcp.New(uc, repo).Run(ctx, version)
		},
	}
}
