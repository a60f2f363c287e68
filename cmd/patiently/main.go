// Command patiently uploads medical documents for analysis and shows the
// results in a terminal UI or on the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driven/config/file"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/cli"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/services"
)

// version is set at build time via -ldflags.
var version = ""

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configStore, err := file.NewConfigStore("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cli.SetServices(services.NewSettingsService(configStore), newRuntime)
	cli.SetVersion(version)

	if err := cli.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
