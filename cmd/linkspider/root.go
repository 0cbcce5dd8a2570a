package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"linkspider/internal/config"
	"linkspider/internal/logging"
)

// configEnv names the variable, possibly set through .env, holding the default config path.
const configEnv = "LINKSPIDER_CONFIG"

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "linkspider",
		Short:         "Discover and scope-filter links for a security crawl",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv(configEnv),
		"path to a YAML configuration file (defaults apply when empty; env "+configEnv+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(newCrawlCommand(opts))
	cmd.AddCommand(newInspectCommand(opts))
	return cmd
}

// load reads the configuration and builds the logger it describes.
func (o *rootOptions) load() (config.Config, *slog.Logger, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return config.Config{}, nil, fmt.Errorf("load config: %w", err)
		}
		cfg = *loaded
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
