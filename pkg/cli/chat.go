package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/boralio/leadbot/pkg/model"
	"github.com/boralio/leadbot/pkg/usecase/conversation"
)

func chatCommand() *cli.Command {
	var (
		cfg         config
		showSources bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "sources",
			Usage:       "Show retrieved knowledge sources with each reply",
			Destination: &showSources,
		},
	}
	flags = append(flags, repositoryFlags(&cfg)...)
	flags = append(flags, geminiFlags(&cfg)...)
	flags = append(flags, notificationFlags(&cfg)...)
	flags = append(flags, qualificationFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Talk to the chatbot from the terminal",
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

			rl, err := readline.New("you> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize terminal")
			}
			defer rl.Close()

			sessionID := model.NewSessionID()
			var history []model.ConversationTurn

			w := c.Root().Writer
			fmt.Fprintf(w, "Session %s started. Type 'exit' to quit.\n", sessionID)

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}
				if line == "exit" {
					break
				}
				if line == "" {
					continue
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				sp.Suffix = " thinking..."
				sp.Start()

				out, err := uc.Chat(ctx, conversation.ChatInput{
					SessionID: sessionID,
					Message:   line,
					History:   history,
				})
				sp.Stop()
				if err != nil {
					return goerr.Wrap(err, "chat turn failed")
				}

				history = out.History
				fmt.Fprintf(w, "bot> %s\n", out.Reply)

				if showSources && len(out.Sources) > 0 {
					for _, src := range out.Sources {
						fmt.Fprintf(w, "     [%.2f] %s\n", src.Similarity, src.Record.Title)
					}
				}
				if out.Lead != nil {
					fmt.Fprintf(w, "     (lead captured, score %d)\n", out.Lead.Score)
				}
			}

			fmt.Fprintf(w, "\nSession ended.\n")
			return nil
		},
	}
}
