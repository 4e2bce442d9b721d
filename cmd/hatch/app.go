package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	hatch "github.com/abigegg/go-hatch"
	"github.com/abigegg/go-hatch/internal/config"
	"github.com/abigegg/go-hatch/internal/logfields"
	"github.com/abigegg/go-hatch/pkg/content/sqlstore"
	"github.com/abigegg/go-hatch/pkg/forms"
	"github.com/abigegg/go-hatch/pkg/render/template/gotemplate"
)

// app holds everything a command needs: configuration, logger, store and the
// wired Hatch instance.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *sqlstore.Store
	hatch  *hatch.Hatch
}

type appOptions struct {
	// cliMode skips the template engine requirement.
	cliMode bool
}

func openApp(ctx context.Context, root *rootOptions, logOut io.Writer, opts appOptions) (*app, error) {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(logOut)

	dsn := cfg.Resolve(cfg.Database)
	store, err := sqlstore.Open(dsn,
		sqlstore.WithUploads(cfg.UploadsURL, cfg.Resolve(cfg.UploadsDir)),
		sqlstore.WithPermalinks(cfg.SiteURL),
		sqlstore.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	logger.Debug("store opened", logfields.Database(dsn))

	if cfg.Seed != "" && dsn == ":memory:" {
		if _, err := seedFile(ctx, store, cfg.Resolve(cfg.Seed)); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	engine, err := newEngine(cfg, logger)
	if err != nil && !opts.cliMode {
		_ = store.Close()
		return nil, err
	}

	hopts := []hatch.Option{
		hatch.WithLogger(logger),
		hatch.WithCLIMode(opts.cliMode),
	}
	if engine != nil {
		hopts = append(hopts, hatch.WithEngine(engine))
		if cfg.Forms != "" {
			catalog := forms.NewCatalog(engine, forms.WithCatalogLogger(logger))
			data, err := os.ReadFile(cfg.Resolve(cfg.Forms))
			if err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("read forms %s: %w", cfg.Forms, err)
			}
			if err := catalog.Load(data); err != nil {
				_ = store.Close()
				return nil, err
			}
			hopts = append(hopts, hatch.WithForms(catalog))
		}
	}

	h, err := hatch.New(store, hopts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: store, hatch: h}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// newEngine loads templates from the configured directory, falling back to
// the embedded starter theme when it does not exist.
func newEngine(cfg *config.Config, logger *slog.Logger) (*gotemplate.Engine, error) {
	globals := map[string]any{"site_url": cfg.SiteURL}
	for key, value := range cfg.Globals {
		globals[key] = value
	}
	opts := []gotemplate.Option{
		gotemplate.WithExtension(cfg.Extension),
		gotemplate.WithGlobalData(globals),
		gotemplate.WithLogger(logger),
	}

	dir := cfg.Resolve(cfg.Templates)
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		opts = append(opts, gotemplate.WithBaseDir(dir))
	case err == nil || errors.Is(err, fs.ErrNotExist):
		logger.Info("templates directory missing, using starter theme", logfields.Path(dir))
		opts = append(opts, gotemplate.WithFS(hatch.StarterTheme()))
	default:
		return nil, fmt.Errorf("templates %s: %w", dir, err)
	}
	return gotemplate.New(opts...)
}

func seedFile(ctx context.Context, store *sqlstore.Store, path string) (sqlstore.SeedCounts, error) {
	f, err := os.Open(path)
	if err != nil {
		return sqlstore.SeedCounts{}, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer f.Close()
	return store.Seed(ctx, f)
}
