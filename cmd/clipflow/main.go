// Command clipflow runs the clipboard history daemon and its maintenance
// commands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/clipflow/internal/app"
	"github.com/MrSnakeDoc/clipflow/internal/config"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
	"github.com/MrSnakeDoc/clipflow/internal/version"
	"github.com/MrSnakeDoc/clipflow/internal/watcher"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clipflow",
	Short: "Clipboard history daemon",
	Long: `clipflow watches the system clipboard and keeps a deduplicated,
size-bounded history of what you copy. Pinned entries are never evicted.

Running clipflow without a subcommand starts the daemon and its loopback
control API. Configuration is read from CLIPFLOW_* environment variables.`,
	Version:      version.Version,
	SilenceUsage: true,
	RunE:         runDaemon,
}

func init() {
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)

	a, err := app.New(cmd.Context(), cfg, log, watcher.System{})
	if err != nil {
		log.Error("clipflow failed to start", logger.Error(err))
		return err
	}
	if err := a.Run(); err != nil {
		return fmt.Errorf("clipflow stopped with error: %w", err)
	}
	return nil
}

// openStorage opens the configured history for a maintenance command.
func openStorage(ctx context.Context) (*app.Storage, error) {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)
	return app.OpenStorage(ctx, cfg, log)
}
