package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/boralio/leadbot/pkg/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.Run(ctx, os.Args); err != nil {
		os.Exit(err.Code)
	}
}
