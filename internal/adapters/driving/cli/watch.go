package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/watch"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Upload documents as they appear in a folder",
	Long: `Watches a folder and uploads every new PDF, JPEG or PNG file once it
has stopped changing. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var watchSettle time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", watch.DefaultSettle, "How long a file must stay unchanged before upload")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	return withRuntime(cmd, func(ctx context.Context, rt *Runtime) error {
		serveMetrics(ctx, rt)

		if err := rt.Orchestrator.Mount(ctx); err != nil {
			cmd.PrintErrf("Warning: could not load documents: %v\n", err)
		}

		onReport := func(path string, report *domain.UploadReport, err error) {
			if report == nil {
				cmd.PrintErrf("  x %s: %v\n", path, err)
				return
			}
			for _, res := range report.Results {
				if res.Err != nil {
					cmd.PrintErrf("  x %s: %v\n", res.Filename, res.Err)
					continue
				}
				cmd.Printf("  + %s uploaded\n", res.Filename)
			}
		}

		cmd.Printf("Watching %s for new documents (ctrl+c to stop)\n", dir)
		return watch.New(dir, rt.Orchestrator, watchSettle, onReport).Run(ctx)
	})
}
