// Package main is the entry point for the supatodo web client and CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"supatodo/internal/backend/supabase"
	"supatodo/internal/cli"
	"supatodo/internal/commands"
	"supatodo/internal/config"
	"supatodo/internal/service"
)

func main() {
	// Cancel on interrupt so serve shuts down gracefully
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	factory := func(ctx context.Context, cfg *config.Config) (service.Backend, error) {
		return supabase.New(cfg)
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
