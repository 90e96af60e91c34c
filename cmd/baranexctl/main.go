// Package main runs the Baranex operator CLI.
package main

import (
	"context"
	"log"
	"os"

	"github.com/louisbranch/baranex/internal/cmd/ctl"
	platformcmd "github.com/louisbranch/baranex/internal/platform/cmd"
	"github.com/louisbranch/baranex/internal/platform/config"
)

func main() {
	log.SetPrefix("[BARANEXCTL] ")
	log.SetFlags(0)
	ctx, stop := platformcmd.SignalContext(context.Background())

	err := ctl.Execute(ctx, os.Stdout, os.Args[1:])
	stop()
	if err != nil {
		config.Exitf("baranexctl: %v", err)
	}
}
