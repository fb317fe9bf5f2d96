// Main package for the jamf-rings command line tool.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/macdeacon99/jamf-rings/cmd/jamf-rings/commands"
	"github.com/macdeacon99/jamf-rings/internal/constants"
)

func main() {
	slog.SetLogLoggerLevel(constants.DefaultLogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a, err := commands.New(commands.WithContext(ctx))
	if err != nil {
		stop()
		os.Exit(1)
	}

	rc := run(a)
	stop()
	os.Exit(rc)
}

type app interface {
	Run() error
	UsageError() bool
}

func run(a app) int {
	if err := a.Run(); err != nil {
		slog.Error(err.Error())

		if a.UsageError() {
			return 2
		}
		return 1
	}

	return 0
}
