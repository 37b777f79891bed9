package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/inventory/internal/cli/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invctl: failed to load configuration: %v\n", err)
		return 1
	}

	application, err := app.New(ctx, cfg, app.IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invctl: %v\n", err)
		return 1
	}
	defer application.Close()

	err = application.Run(ctx, os.Args[1:])

	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrUsage):
		return 2
	default:
		fmt.Fprintf(os.Stderr, "invctl: %v\n", err)
		return 1
	}
}
