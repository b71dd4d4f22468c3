package cli

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/boralio/leadbot/pkg/utils/logging"
)

const version = "0.1.0"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	var (
		logLevel  string
		logFormat string
	)

	cmd := &cli.Command{
		Name:    "leadbot",
		Usage:   "Conversational sales lead qualification agent",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Log level (debug, info, warn, error)",
				Value:       "info",
				Sources:     cli.EnvVars("LEADBOT_LOG_LEVEL"),
				Destination: &logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "Log format (console, json)",
				Value:       "console",
				Sources:     cli.EnvVars("LEADBOT_LOG_FORMAT"),
				Destination: &logFormat,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logging.SetDefault(logging.New(logLevel, logFormat, os.Stderr))
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			chatCommand(),
			ingestCommand(),
			searchCommand(),
			leadsCommand(),
			exportCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		logging.Default().Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
