package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/maxviazov/youth-hoops-tracker/internal/cli"
)

// version is set via -ldflags at build time.
var version = "(devel)"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Execute(ctx, version); err != nil {
		fmt.Fprintln(os.Stderr, "scorekeeper:", err)
		stop()
		os.Exit(1)
	}
}
