package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abigegg/go-hatch/pkg/session"
)

func newDumpCmd(root *rootOptions) *cobra.Command {
	var (
		flags  pageFlags
		format string
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the final template context of a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dumpFormat := session.DumpFormat(format)
			if dumpFormat != session.DumpYAML && dumpFormat != session.DumpJSON {
				return fmt.Errorf("--format %q must be yaml or json", format)
			}
			req, err := flags.request()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), root, cmd.ErrOrStderr(), appOptions{cliMode: true})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, s, err := a.prepare(cmd.Context(), req)
			if err != nil {
				return err
			}
			return s.Dump(ctx, cmd.OutOrStdout(), dumpFormat)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", string(session.DumpYAML), "output format: yaml or json")
	return cmd
}
