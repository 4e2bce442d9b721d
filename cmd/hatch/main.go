// Command hatch renders pages from a SQLite content store with pongo2
// templates.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	hatch "github.com/abigegg/go-hatch"
	"github.com/abigegg/go-hatch/internal/prompt"
	"github.com/abigegg/go-hatch/pkg/content"
	"github.com/abigegg/go-hatch/pkg/session"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitNotFound = 4
	exitConfig   = 7
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(prompt.Survey())
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "hatch: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps command errors to process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, session.ErrConfig), errors.Is(err, hatch.ErrTemplatingUnavailable):
		return exitConfig
	case errors.Is(err, content.ErrNotFound):
		return exitNotFound
	default:
		return exitFailure
	}
}
