package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ternarystats/internal/logger"
	"ternarystats/pkg/config"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	cfgFile  string
	logLevel string
	logJSON  bool
	envFile  string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "ternarystats",
		Short: "Ternary texture statistics over image patches",
		Long: `ternarystats quantizes images, cuts them into patches and computes
ternary co-occurrence statistics for every patch that is sufficiently covered
by its mask.

Examples:
  ternarystats analyze scan01.png scan02.png --output features.csv
  ternarystats analyze images/*.tif --mask-dir masks --covariance
  ternarystats config init ternarystats.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// the .env file is optional
			if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("loading %s: %w", opts.envFile, err)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is ternarystats.yaml in ., $XDG_CONFIG_HOME/ternarystats, /etc/ternarystats)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&opts.logJSON, "log-json", false, "log JSON lines instead of console output")
	flags.StringVar(&opts.envFile, "env-file", ".env", "environment file loaded before the configuration")

	rootCmd.AddCommand(
		newAnalyzeCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)
	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// loadConfig merges defaults, the config file, the environment and the
// flags of cmd that were set explicitly.
func (o *globalOptions) loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	loader := config.NewLoader()
	bindings["logging.level"] = "log-level"
	bindings["logging.json"] = "log-json"
	for key, name := range bindings {
		if err := loader.BindFlag(key, cmd.Flag(name)); err != nil {
			return nil, err
		}
	}
	return loader.Load(o.cfgFile)
}

// newLogger builds the logger described by cfg, writing to the command's
// error stream.
func newLogger(cmd *cobra.Command, cfg *config.Config) zerolog.Logger {
	level := logger.ParseLevel(cfg.Logging.Level)
	if cfg.Logging.JSON {
		return logger.New(cmd.ErrOrStderr(), level)
	}
	return logger.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}, level)
}
