package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/kmrl/documind/internal/uploads"
)

type commandContext struct {
	configFlag *string
	serverFlag *string

	once   sync.Once
	config clientConfig
	err    error
}

func (c *commandContext) ensureConfig() (clientConfig, error) {
	c.once.Do(func() {
		c.config, c.err = loadClientConfig(*c.configFlag)
		if c.err == nil && strings.TrimSpace(*c.serverFlag) != "" {
			c.config.ServerURL = strings.TrimRight(strings.TrimSpace(*c.serverFlag), "/")
		}
	})
	return c.config, c.err
}

func (c *commandContext) client() (*uploads.Client, clientConfig, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, cfg, err
	}
	return uploads.NewClient(cfg.ServerURL, cfg.timeout()), cfg, nil
}

func newRootCommand() *cobra.Command {
	var configFlag, serverFlag string
	ctx := &commandContext{configFlag: &configFlag, serverFlag: &serverFlag}

	root := &cobra.Command{
		Use:           "documind",
		Short:         "Process and classify KMRL documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	root.PersistentFlags().StringVar(&serverFlag, "server", "", "DocuMind API base URL")

	root.AddCommand(newUploadCommand(ctx))
	root.AddCommand(newClassifyCommand(ctx))
	root.AddCommand(newLanguagesCommand(ctx))
	root.AddCommand(newShowCommand(ctx))
	return root
}
