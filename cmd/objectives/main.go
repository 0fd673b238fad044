package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	objectivescmd "github.com/louisbranch/okr/internal/cmd/objectives"
	entrypoint "github.com/louisbranch/okr/internal/platform/cmd"
)

func main() {
	cfg, err := objectivescmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceObjectives))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := objectivescmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
