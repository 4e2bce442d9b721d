package main

import (
	"github.com/spf13/cobra"

	"github.com/abigegg/go-hatch/internal/prompt"
)

type rootOptions struct {
	configPath string
}

func newRootCmd(driver prompt.Driver) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "hatch",
		Short:         "Render templated pages from a content store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to hatch.yaml (default ./hatch.yaml)")

	cmd.AddCommand(
		newRenderCmd(opts),
		newDumpCmd(opts),
		newServeCmd(opts),
		newSeedCmd(opts),
		newInitCmd(opts, driver),
	)
	return cmd
}
