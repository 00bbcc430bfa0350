package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/citygen/internal/cli"
	"github.com/matzehuels/citygen/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.Execute(ctx); err != nil {
		if errors.GetCode(err) != errors.ErrCodeCancelled {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(errors.ExitCode(err))
	}
}
