// main package of the unbundler.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bjaus/flatjson/internal/cmd"
)

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}

func execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := cmd.New()
	return cmd.ExecuteContext(ctx)
}
