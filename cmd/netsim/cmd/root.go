// Package cmd provides the command-line interface of netsim.
package cmd

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Version is set at link time.
var Version = "dev"

const envPrefix = "NETSIM"

type app struct {
	config *viper.Viper
	logger *zap.Logger
}

// newRootCommand builds the command tree. Flags are bound to a fresh viper
// store so that NETSIM_* variables, and a .env file in the working
// directory, provide defaults.
func newRootCommand() *cobra.Command {
	a := &app{config: viper.New(), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "netsim",
		Short: "netsim runs discrete-event network simulations.",
		Long: `netsim runs discrete-event network simulations described in ` +
			`YAML scenario files and writes packet traces.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().String("log-level", "warn",
		"Log level: debug, info, warn or error.")

	root.AddCommand(
		a.newRunCommand(),
		a.newRoutesCommand(),
		a.newTraceCommand(),
		newVersionCommand(),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	a.config.SetEnvPrefix(envPrefix)
	a.config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.config.AutomaticEnv()

	if err := a.config.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	a.logger, err = newLogger(a.config.GetString("log-level"))

	return err
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	cfg.DisableStacktrace = true

	return cfg.Build()
}

// Execute runs the command line and exits with status 1 on failure.
func Execute() {
	err := newRootCommand().Execute()
	if err != nil {
		os.Exit(1)
	}
}
