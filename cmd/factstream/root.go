package main

import (
	"strings"

	"github.com/spf13/cobra"

	"factstream/internal/config"
	"factstream/internal/daemonctl"
)

// commandContext carries the lazily-loaded config and control client shared
// by subcommands.
type commandContext struct {
	configFlag *string
	apiFlag    *string

	cfg *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, _, _, err := config.Load(strings.TrimSpace(*c.configFlag))
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// client returns a control client for the daemon's API address, preferring
// the --api flag over the configured bind address.
func (c *commandContext) client() (*daemonctl.Client, error) {
	if bind := strings.TrimSpace(*c.apiFlag); bind != "" {
		return daemonctl.New(bind), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return daemonctl.New(cfg.Paths.APIBind), nil
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var apiFlag string

	ctx := &commandContext{configFlag: &configFlag, apiFlag: &apiFlag}

	rootCmd := &cobra.Command{
		Use:           "factstream",
		Short:         "Control the factstream fact-checking daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "Daemon API address (host:port)")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newStartCommand(ctx))
	rootCmd.AddCommand(newStopCommand(ctx))
	rootCmd.AddCommand(newRefsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
