package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"user-management-api/internal/client/cli"
)

// buildVersion is set with -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx, buildVersion)
}
