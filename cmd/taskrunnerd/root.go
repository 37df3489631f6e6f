package main

import (
	"github.com/danmuck/taskrunner/internal/logging"
	"github.com/danmuck/taskrunner/internal/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath       string
	socketPath       string
	statusSocketPath string
	maxWorkers       int
	verbose          bool
	version          = "v0.1.0"

	rootCmd = &cobra.Command{
		Use:           "taskrunnerd",
		Short:         "Register tasks sent over a local socket",
		Long:          `taskrunnerd listens on a unix socket and registers every task record clients write to it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.ConfigureRuntime(verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			log.Debug().Interface("config", cfg).Msg("resolved config")
			return runner.NewServiceWithConfig(cfg).Run()
		},
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = version
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	rootCmd.Flags().StringVar(&socketPath, "socket", runner.DefaultSocketPath, "Task socket path")
	rootCmd.Flags().StringVar(&statusSocketPath, "status-socket", "", "Status endpoint socket path (disabled when empty)")
	rootCmd.Flags().IntVar(&maxWorkers, "max-workers", runner.DefaultServiceConfig().MaxWorkers, "Connections decoded at once")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show more information")
}

// resolveConfig layers defaults, then the config file, then explicit flags.
func resolveConfig(cmd *cobra.Command) (runner.ServiceConfig, error) {
	cfg := runner.DefaultServiceConfig()
	if configPath != "" {
		loaded, err := loadServiceConfig(configPath)
		if err != nil {
			return runner.ServiceConfig{}, err
		}
		cfg = loaded
		log.Info().Str("path", configPath).Msg("loaded taskrunner config")
	}
	flags := cmd.Flags()
	if flags.Changed("socket") {
		cfg.SocketPath = socketPath
	}
	if flags.Changed("status-socket") {
		cfg.StatusSocketPath = statusSocketPath
	}
	if flags.Changed("max-workers") {
		cfg.MaxWorkers = maxWorkers
	}
	if err := cfg.Validate(); err != nil {
		return runner.ServiceConfig{}, err
	}
	return cfg, nil
}
