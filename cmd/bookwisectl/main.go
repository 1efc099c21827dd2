package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookwise/bookwise/internal/cli/bookwisectl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defaults := bookwisectl.Options{
		BaseURL: os.Getenv("BOOKWISE_API_URL"),
		APIKey:  os.Getenv("BOOKWISE_API_KEY"),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	if raw := os.Getenv("BOOKWISE_CLI_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			defaults.Timeout = parsed
		}
	}

	os.Exit(bookwisectl.Run(ctx, os.Args[1:], defaults))
}
