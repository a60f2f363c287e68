package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for Patiently.

The TUI has three views: Upload, History and Results. Drag files onto the
terminal or type their paths in the Upload view and press enter. Results
open automatically once the analysis is ready.

Controls:
  tab      - Next view
  ctrl+t   - Jump to results when ready
  ↑/k, ↓/j - Navigate documents
  Enter    - Upload / Open
  d        - Delete document
  r        - Refresh
  ?        - Toggle help
  q        - Quit (outside the Upload view)`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	return withRuntime(cmd, func(ctx context.Context, rt *Runtime) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		serveMetrics(ctx, rt)

		app, err := tui.NewApp(tui.NewPorts(rt.Orchestrator, settingsService))
		if err != nil {
			return fmt.Errorf("failed to create TUI: %w", err)
		}
		app.WithContext(ctx)

		if err := app.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	})
}
