package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRenderCmd(root *rootOptions) *cobra.Command {
	var (
		flags pageFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template with the context of a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), root, cmd.ErrOrStderr(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, s, err := a.prepare(cmd.Context(), req)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := s.Render(ctx, &buf, args[0], nil); err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Page written to %s\n", out)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (stdout if empty)")
	return cmd
}
