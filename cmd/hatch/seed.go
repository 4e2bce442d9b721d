package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abigegg/go-hatch/internal/config"
	"github.com/abigegg/go-hatch/pkg/content/sqlstore"
	"github.com/abigegg/go-hatch/pkg/session"
)

func newSeedCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file.yaml]",
		Short: "Load posts, terms and attachments from a YAML file into the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			path := cfg.Resolve(cfg.Seed)
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("seed: no file given and no seed configured: %w", session.ErrConfig)
			}
			if cfg.Database == ":memory:" {
				return errors.New("seed: database is :memory:, nothing would persist")
			}

			store, err := sqlstore.Open(cfg.Resolve(cfg.Database), sqlstore.WithLogger(cfg.NewLogger(cmd.ErrOrStderr())))
			if err != nil {
				return err
			}
			defer store.Close()

			counts, err := seedFile(cmd.Context(), store, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s from %s: %d posts, %d terms, %d attachments, %d fields\n",
				cfg.Database, path, counts.Posts, counts.Terms, counts.Attachments, counts.Fields)
			return nil
		},
	}
}
