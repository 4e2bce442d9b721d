package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	hatch "github.com/abigegg/go-hatch"
	"github.com/abigegg/go-hatch/internal/config"
	"github.com/abigegg/go-hatch/internal/prompt"
)

var logFormats = []string{"text", "json"}

func newInitCmd(root *rootOptions, driver prompt.Driver) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create hatch.yaml interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			path := root.configPath
			if path == "" {
				path = config.DefaultFile
			}

			if _, err := os.Stat(path); err == nil {
				overwrite, err := driver.Confirm(ctx, prompt.ConfirmConfig{
					Message: fmt.Sprintf("%s exists. Overwrite?", path),
				})
				if err != nil {
					return err
				}
				if !overwrite {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing written.")
					return nil
				}
			}

			cfg := config.Default()
			notEmpty := func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("a value is required")
				}
				return nil
			}
			answers := []struct {
				target *string
				cfg    prompt.InputConfig
			}{
				{&cfg.Database, prompt.InputConfig{Message: "SQLite database", Default: cfg.Database, Validator: notEmpty}},
				{&cfg.Templates, prompt.InputConfig{Message: "Templates directory", Default: cfg.Templates, Validator: notEmpty}},
				{&cfg.SiteURL, prompt.InputConfig{Message: "Site URL", Default: cfg.SiteURL}},
				{&cfg.UploadsURL, prompt.InputConfig{Message: "Uploads URL", Default: cfg.UploadsURL}},
				{&cfg.Forms, prompt.InputConfig{Message: "Forms catalog (optional)", Help: "YAML file with form definitions"}},
			}
			for _, a := range answers {
				value, err := driver.Input(ctx, a.cfg)
				if err != nil {
					return err
				}
				*a.target = strings.TrimSpace(value)
			}

			idx, err := driver.Select(ctx, prompt.SelectConfig{Message: "Log format", Options: logFormats})
			if err != nil {
				return err
			}
			if idx >= 0 && idx < len(logFormats) {
				cfg.Log.Format = logFormats[idx]
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			copyTheme, err := driver.Confirm(ctx, prompt.ConfirmConfig{
				Message: "Copy the starter theme into the templates directory?",
				Default: true,
			})
			if err != nil {
				return err
			}

			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

			if copyTheme {
				dir := filepath.Join(filepath.Dir(path), cfg.Templates)
				if filepath.IsAbs(cfg.Templates) {
					dir = cfg.Templates
				}
				if err := writeTheme(dir, hatch.StarterTheme()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Starter theme copied to %s\n", dir)
			}
			return nil
		},
	}
}

// writeTheme copies fsys into dir, keeping files that already exist.
func writeTheme(dir string, fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(name))
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if _, err := os.Stat(target); err == nil {
			return nil
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		return nil
	})
}
