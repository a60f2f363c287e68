// Package cli provides the command-line interface for patiently.
// It implements a driving adapter following hexagonal architecture principles.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driving"
	"github.com/Dev-KrishnaPathak/Patiently/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services used by the commands. Set by SetServices before Execute.
var (
	settingsService driving.SettingsService
	runtimeFactory  RuntimeFactory
)

// Persistent flags.
var (
	verbose bool
	apiURL  string
)

// MetricsServer exposes collected metrics over HTTP.
type MetricsServer interface {
	Serve(ctx context.Context, addr string) error
}

// Runtime is the set of long-lived services a command works with.
type Runtime struct {
	Orchestrator driving.Orchestrator
	Metrics      MetricsServer
	Settings     domain.Settings

	// Close stops outstanding polls and releases storage.
	Close func()
}

// RuntimeFactory builds a Runtime from resolved settings.
type RuntimeFactory func(ctx context.Context, settings domain.Settings) (*Runtime, error)

var rootCmd = &cobra.Command{
	Use:   "patiently",
	Short: "Understand your medical documents",
	Long: `Patiently uploads lab reports and scans to an analysis backend and
shows plain-language results, follow-up questions and trends.

Run without arguments to open the interactive terminal UI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		_ = godotenv.Load()
		logger.SetVerbose(verbose)
		return nil
	},
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Override the backend API URL")
}

// SetServices wires the services used by the commands.
func SetServices(settings driving.SettingsService, factory RuntimeFactory) {
	settingsService = settings
	runtimeFactory = factory
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// resolveSettings reads settings and applies flag overrides.
func resolveSettings() (domain.Settings, error) {
	if settingsService == nil {
		return domain.Settings{}, errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	if apiURL != "" {
		settings.API.BaseURL = apiURL
	}
	if err := settings.Validate(); err != nil {
		return domain.Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

// withRuntime builds a runtime for the duration of fn.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *Runtime) error) error {
	if runtimeFactory == nil {
		return errors.New("document services not configured")
	}
	settings, err := resolveSettings()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := runtimeFactory(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	if rt.Close != nil {
		defer rt.Close()
	}
	return fn(ctx, rt)
}

// serveMetrics exposes metrics in the background when an address is set.
func serveMetrics(ctx context.Context, rt *Runtime) {
	addr := rt.Settings.Metrics.Addr
	if addr == "" || rt.Metrics == nil {
		return
	}
	go func() {
		if err := rt.Metrics.Serve(ctx, addr); err != nil {
			logger.Warn("metrics server stopped: %v", err)
		}
	}()
}
