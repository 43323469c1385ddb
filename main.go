package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/skyarchive/cmd"
	"github.com/tphakala/skyarchive/internal/app"
	"github.com/tphakala/skyarchive/internal/buildinfo"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/logger"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   = "dev"
	buildDate = ""
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.NewContext(buildinfo.NewContext(version, buildDate))
	defer func() { _ = a.Close() }()

	err := cmd.RootCommand(a).ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	logger.Global().Module("main").Error("command failed",
		logger.String("category", string(errors.CategoryOf(err))),
		logger.Error(err))
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 1
}
