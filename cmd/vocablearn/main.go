// Command vocablearn learns a vocabulary tree from the descriptors of a scene.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/vocabmatch/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Main(ctx, cli.ToolLearn, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}
