// Command way renders and previews pages that use way directives.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/way"
	"github.com/vango-dev/way/internal/config"
	"github.com/vango-dev/way/internal/errors"
)

// Version information set at build time.
var (
	version = way.Version
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "way",
		Short: "Render and preview attribute-driven reactive pages",
		Long: `way hydrates HTML pages that declare their behavior with x-* attributes.

Use "way render" to hydrate a page once and print the result, or
"way serve" to open a live preview that replays browser events against
the hydrated page.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		renderCmd(),
		serveCmd(),
		versionCmd(),
	)
	return rootCmd
}

// newLogger builds the CLI logger from the config's log settings.
func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// loadConfig loads the config at path, or the one in the working
// directory, falling back to defaults when there is none.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if config.Exists(".") {
		return config.Load(".")
	}
	cfg := config.New()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// registerForms registers the forms declared in cfg on eng.
func registerForms(eng *way.Engine, cfg *config.Config) error {
	for _, name := range cfg.FormNames() {
		fields, err := cfg.FormFields(name)
		if err != nil {
			return err
		}
		eng.RegisterForm(name, fields)
	}
	return nil
}
