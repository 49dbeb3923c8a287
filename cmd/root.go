// Package cmd defines and implements the CLI commands for the coffeemap executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/coffeemap/internal/app"
	"github.com/JakeFAU/coffeemap/internal/config"
	"github.com/JakeFAU/coffeemap/internal/logging"
	"github.com/JakeFAU/coffeemap/internal/progress"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

const shutdownTimeout = 10 * time.Second

// App defines the application interface that commands will use.
// This allows us to inject a mock app during tests.
type App interface {
	Close(ctx context.Context)
	GetLogger() *zap.Logger
	GetConfig() config.Config
	GetProgress() progress.Emitter
}

// newApp is the application factory. It's a variable so we can
// replace it with a mock factory in our tests.
var newApp = func(ctx context.Context, cfg config.Config) (App, error) {
	return app.NewApp(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coffeemap",
		Short: "Builds a map of specialty cafés from a crawl of café pages.",
		Long: `coffeemap crawls café pages, resolves each café to a place through the
place search API (reusing previously resolved places from a KML cache), and
writes the deduplicated result as KML files ready to import into a map.`,
		SilenceUsage: true,

		// Config is read here, after flags are parsed, so the subcommand's
		// flags take part in it. The built app is stored in the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		// PersistentPostRun does not fire when RunE fails, so shutdown is
		// handled by the subcommands through closeApp.
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")

	cmd.AddCommand(newRunCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

func closeApp(appInstance App) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	appInstance.Close(ctx)
}

// Execute is the main entry point.
func Execute() {
	// Initialize the logger once at the very start.
	logging.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
