package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/boralio/leadbot/pkg/server"
	"github.com/boralio/leadbot/pkg/utils/logging"
)

func serveCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       ":8080",
			Sources:     cli.EnvVars("LEADBOT_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, repositoryFlags(&cfg)...)
	flags = append(flags, geminiFlags(&cfg)...)
	flags = append(flags, notificationFlags(&cfg)...)
	flags = append(flags, qualificationFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the chatbot HTTP API",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			uc, err := cfg.newConversationUseCase(ctx, repo, gemini)
			if err != nil {
				return err
			}

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.New(uc),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = httpServer.Shutdown(sctx)
			}()

			logging.From(ctx).Info("starting server", "addr", addr, "backend", cfg.backend)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return goerr.Wrap(err, "server failed")
			}
			return nil
		},
	}
}
