// Package main starts the Baranex HTTP server.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	servercmd "github.com/louisbranch/baranex/internal/cmd/server"
	platformcmd "github.com/louisbranch/baranex/internal/platform/cmd"
)

func main() {
	cfg, err := servercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[SERVER] ")
	ctx, stop := platformcmd.SignalContext(context.Background())
	defer stop()

	if err := servercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
