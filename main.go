package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/churnlab/churnprep/cmd"
	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/logger"
)

// Exit codes
const (
	exitError = 1 // configuration, I/O or store failure
	exitGate  = 2 // a gate rejected the data
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := &conf.Context{}
	rootCmd := cmd.RootCommand(appCtx)

	err := rootCmd.ExecuteContext(ctx)
	_ = logger.Global().Close()
	if err == nil {
		return 0
	}

	fmt.Fprintf(os.Stderr, "churnprep: %v\n", err)
	if errors.IsFatalGate(err) {
		return exitGate
	}
	return exitError
}
