// Package main provides calsync, a command-line front end for the daybook sync layer.
//
// Usage:
//
//	calsync [config flags] <command> [command flags]
//
// Every command loads the offline cache, probes the backend and refreshes
// before it runs, the same way an app does on launch.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/daybookapp/daybook/internal/config"
	"github.com/daybookapp/daybook/internal/di"
	"github.com/daybookapp/daybook/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, args, err := config.Load("calsync", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "calsync: %v\n", err)
		return 2
	}
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	injector := di.NewClientContainer(cfg, os.Stderr)
	defer func() {
		if report := injector.Shutdown(); !report.Succeed {
			fmt.Fprintf(os.Stderr, "calsync: shutdown: %s\n", report.Error())
		}
	}()

	cal, err := di.Calendar(injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "calsync: %v\n", err)
		return 1
	}
	log := do.MustInvoke[*logger.Logger](injector)

	if err := runCommand(ctx, cal.Store, args, os.Stdout); err != nil {
		log.WithError(err).Debug("command failed", "command", args[0])
		fmt.Fprintf(os.Stderr, "calsync: %v\n", err)
		return 1
	}
	return 0
}
