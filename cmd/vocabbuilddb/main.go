// Command vocabbuilddb inserts the images of a scene into a learned vocabulary tree.
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
	code := cli.Main(ctx, cli.ToolBuildDB, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}
