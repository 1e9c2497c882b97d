// Command facecomm detects facial gestures from a webcam or browser stream and
// turns them into actions.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ayusman/facecomm/internal/config"
	"github.com/ayusman/facecomm/internal/logging"
	"github.com/ayusman/facecomm/internal/plugin"
	"github.com/ayusman/facecomm/internal/store"
)

// dbFile is the SQLite database name inside the data directory.
const dbFile = "facecomm.db"

// env is what every subcommand needs after the config has been loaded.
type env struct {
	config *config.Config
	logger *slog.Logger
	closer func() error
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configDir string
		logLevel  string
		e         env
	)

	root := &cobra.Command{
		Use:           "facecomm",
		Short:         "Facial gesture detection and communication",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configDir)
			if err != nil {
				return err
			}
			opts := cfg.Settings.LogOptions()
			if logLevel != "" {
				opts.Level = logLevel
			}
			rt, err := logging.New(opts)
			if err != nil {
				return fmt.Errorf("logging: %w", err)
			}
			slog.SetDefault(rt.Logger)
			for _, w := range cfg.Warnings {
				rt.Logger.Warn(w.String())
			}

			e = env{config: cfg, logger: rt.Logger, closer: rt.Close}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e.closer != nil {
				return e.closer()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default $FACECOMM_CONFIG or ./config)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level from settings.yaml")

	root.AddCommand(
		newServeCmd(&e),
		newRunCmd(&e),
		newReplayCmd(&e),
	)
	return root
}

// openStore opens the database in the configured data directory.
func (e *env) openStore() (*store.Store, error) {
	dir := e.config.Settings.Data.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s, err := store.New(filepath.Join(dir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	e.logger.Info("store opened", "path", s.Path())
	return s, nil
}

// openPlugins discovers the plugins in the configured directory.
func (e *env) openPlugins() (*plugin.Manager, *plugin.Executor, error) {
	logger := e.logger.With("component", "plugin")
	m := plugin.NewManager(e.config.Settings.Plugins.Dir, logger)
	if err := m.Discover(); err != nil {
		return nil, nil, fmt.Errorf("discover plugins: %w", err)
	}
	e.logger.Info("plugins discovered", "dir", m.PluginDir(), "count", len(m.List()))
	return m, plugin.NewExecutor(e.config.Settings.Plugins.Timeout, logger), nil
}

// findStaticDir returns the first existing directory among the configured
// static dir, "web" and "../web", or "" when none exists.
func findStaticDir(configured string) string {
	candidates := []string{configured, "web", filepath.Join("..", "web")}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
