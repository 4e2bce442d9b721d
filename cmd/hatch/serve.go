package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	hatch "github.com/abigegg/go-hatch"
	"github.com/abigegg/go-hatch/internal/logfields"
	"github.com/abigegg/go-hatch/pkg/content"
)

type serveOptions struct {
	addr           string
	indexTemplate  string
	singleTemplate string
	listType       string
	filter         string
	fields         []string
	forms          []string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered pages over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), root, cmd.ErrOrStderr(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			// parse once so bad --form values fail at startup
			forms, err := (&pageFlags{forms: opts.forms}).request()
			if err != nil {
				return err
			}
			addr := opts.addr
			if addr == "" {
				addr = a.cfg.Addr
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           a.handler(opts, forms.Forms),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return a.listen(cmd.Context(), srv)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.addr, "addr", "", "listen address (defaults to the configured addr)")
	flags.StringVar(&opts.indexTemplate, "index", "index", "template for the front page")
	flags.StringVar(&opts.singleTemplate, "single", "single", "template for single posts")
	flags.StringVar(&opts.listType, "list", "post", "post type listed on the front page")
	flags.StringVar(&opts.filter, "filter", "", "taxonomy offered as a filter on the front page")
	flags.StringSliceVar(&opts.fields, "field", nil, "custom fields added to single post pages")
	flags.StringArrayVar(&opts.forms, "form", nil, "form embedded in single post pages as key=id")
	return cmd
}

func (a *app) listen(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("serving", logfields.Addr(srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// handler routes "/" to the index template and "/p/{id}" to the single
// template with that post as the current post.
func (a *app) handler(opts serveOptions, forms map[string]int64) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.FileServerFS(hatch.StarterTheme()))
	if prefix := uploadsPrefix(a.cfg.UploadsURL); prefix != "" {
		mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(a.cfg.Resolve(a.cfg.UploadsDir)))))
	}

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		a.servePage(w, r, opts.indexTemplate, pageRequest{
			ListType: opts.listType,
			Filter:   opts.filter,
			Query:    r.URL.Query(),
			Listing:  strings.TrimRight(a.cfg.SiteURL, "/") + "/",
		})
	})
	mux.HandleFunc("GET /p/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil || id <= 0 {
			http.NotFound(w, r)
			return
		}
		a.servePage(w, r, opts.singleTemplate, pageRequest{
			PostID: id,
			Fields: opts.fields,
			Forms:  forms,
			Query:  r.URL.Query(),
		})
	})
	return a.logRequests(mux)
}

func (a *app) servePage(w http.ResponseWriter, r *http.Request, name string, req pageRequest) {
	ctx, s, err := a.prepare(r.Context(), req)
	if err == nil {
		var buf bytes.Buffer
		if err = s.Render(ctx, &buf, name, nil); err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write(buf.Bytes())
			return
		}
	}
	if errors.Is(err, content.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	a.logger.ErrorContext(r.Context(), "render failed", logfields.Template(name), logfields.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (a *app) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.LogAttrs(r.Context(), levelFor(rec.status), "request",
			logfields.Method(r.Method),
			logfields.Path(r.URL.Path),
			logfields.Status(rec.status),
			logfields.DurationMS(float64(time.Since(start).Microseconds())/1000),
		)
	})
}

func uploadsPrefix(uploadsURL string) string {
	if !strings.HasPrefix(uploadsURL, "/") || uploadsURL == "/" {
		return ""
	}
	return strings.TrimRight(uploadsURL, "/") + "/"
}

func levelFor(status int) slog.Level {
	if status >= http.StatusInternalServerError {
		return slog.LevelError
	}
	return slog.LevelDebug
}
