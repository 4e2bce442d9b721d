// Package session accumulates the values a page render needs and performs the
// render. A Session belongs to one request and is not safe for concurrent use.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abigegg/go-hatch/internal/logfields"
	"github.com/abigegg/go-hatch/pkg/content"
	"github.com/abigegg/go-hatch/pkg/entity"
	"github.com/abigegg/go-hatch/pkg/forms"
	"github.com/abigegg/go-hatch/pkg/render/template"
	"github.com/abigegg/go-hatch/pkg/transform"
)

// Mapper rewrites a fetched field value before it is stored.
type Mapper func(ctx context.Context, value any) (any, error)

// ValueFunc produces a context value on demand.
type ValueFunc func(ctx context.Context) (any, error)

// FormIDFunc resolves which form to embed.
type FormIDFunc func(ctx context.Context) (int64, error)

// FieldMapping pairs a custom-field key with the mapper applied to its value.
type FieldMapping struct {
	Key    string
	Mapper Mapper
}

// Option customises a Session.
type Option func(*Session)

// WithEngine sets the template engine pages render through.
func WithEngine(engine template.TemplateRenderer) Option {
	return func(s *Session) { s.engine = engine }
}

// WithContextProvider sets the source of the base context. When unset the
// engine is used if it implements template.ContextProvider.
func WithContextProvider(provider template.ContextProvider) Option {
	return func(s *Session) { s.base = provider }
}

// WithForms sets the forms capability used by AddFormContext.
func WithForms(renderer forms.Renderer) Option {
	return func(s *Session) { s.forms = renderer }
}

// WithFields sets the custom-field reader.
func WithFields(fields *content.Fields) Option {
	return func(s *Session) { s.fields = fields }
}

// WithRegistry sets the registry consulted for the main transformer.
func WithRegistry(registry *transform.Registry) Option {
	return func(s *Session) { s.registry = registry }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session is the per-request context accumulator and renderer.
type Session struct {
	constructor *entity.Constructor
	fields      *content.Fields
	registry    *transform.Registry
	engine      template.TemplateRenderer
	base        template.ContextProvider
	forms       forms.Renderer
	logger      *slog.Logger
	values      *Context
}

// New returns an empty session constructing entities through constructor.
// A nil constructor makes FinalContext and Render fail with ErrConfig.
func New(constructor *entity.Constructor, options ...Option) *Session {
	s := &Session{
		constructor: constructor,
		logger:      slog.Default(),
		values:      NewContext(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.base == nil {
		if provider, ok := s.engine.(template.ContextProvider); ok {
			s.base = provider
		}
	}
	if s.fields == nil && constructor != nil {
		s.fields = content.NewFields(constructor.Store(), nil)
	}
	return s
}

// Context exposes the accumulated values.
func (s *Session) Context() *Context {
	return s.values
}

// AddField stores the current post's custom field under its own name.
func (s *Session) AddField(ctx context.Context, key string) error {
	return s.AddFieldWith(ctx, key, nil)
}

// AddFields stores several custom fields, each under its own name.
func (s *Session) AddFields(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := s.AddField(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// AddFieldWith stores the current post's custom field after passing it through
// mapper. A nil mapper stores the value unchanged.
func (s *Session) AddFieldWith(ctx context.Context, key string, mapper Mapper) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("session: field key is required")
	}
	if s.fields == nil {
		return fmt.Errorf("session: add field %q: %w: no field reader", key, ErrConfig)
	}
	value, err := s.fields.Current(ctx, key)
	if err != nil {
		return fmt.Errorf("session: add field %q: %w", key, err)
	}
	if mapper != nil {
		if value, err = mapper(ctx, value); err != nil {
			return fmt.Errorf("session: map field %q: %w", key, err)
		}
	}
	s.values.Set(key, value)
	return nil
}

// AddMappedFields stores each mapping's field after applying its mapper.
func (s *Session) AddMappedFields(ctx context.Context, mappings ...FieldMapping) error {
	for _, m := range mappings {
		if err := s.AddFieldWith(ctx, m.Key, m.Mapper); err != nil {
			return err
		}
	}
	return nil
}

// AddValue stores a literal value.
func (s *Session) AddValue(key string, value any) {
	s.values.Set(key, value)
}

// AddContext invokes fn and stores its result under key. A nil fn is ignored
// and leaves the context unchanged.
func (s *Session) AddContext(ctx context.Context, key string, fn ValueFunc) error {
	if fn == nil {
		s.logger.WarnContext(ctx, "context value ignored: no value func", logfields.ContextKey(key))
		return nil
	}
	value, err := fn(ctx)
	if err != nil {
		return fmt.Errorf("session: context %q: %w", key, err)
	}
	s.values.Set(key, value)
	return nil
}

// AddContextMap adds every entry as AddContext does, in sorted key order.
func (s *Session) AddContextMap(ctx context.Context, values map[string]ValueFunc) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := s.AddContext(ctx, key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

// AddFormContext renders a form and stores its markup under key. It fails
// with ErrConfig, leaving the context untouched, when idFn is nil or no forms
// capability is configured.
func (s *Session) AddFormContext(ctx context.Context, key string, idFn FormIDFunc, options ...forms.Option) error {
	if idFn == nil {
		return fmt.Errorf("session: form %q: %w: form id callback is required", key, ErrConfig)
	}
	if s.forms == nil {
		return fmt.Errorf("session: form %q: %w: forms capability unavailable", key, ErrConfig)
	}
	opts := forms.Apply(options...)
	opts.Echo = false

	id, err := idFn(ctx)
	if err != nil {
		return fmt.Errorf("session: form %q: resolve id: %w", key, err)
	}
	markup, err := s.forms.RenderForm(ctx, id, opts)
	if err != nil {
		return fmt.Errorf("session: form %q: %w", key, err)
	}
	return s.AddContext(ctx, key, func(context.Context) (any, error) {
		return markup, nil
	})
}

// FinalContext merges, in increasing precedence, the base context (with the
// current post under "post" and the main transformer applied), the
// accumulated values and overrides. The accumulated values are kept.
func (s *Session) FinalContext(ctx context.Context, overrides map[string]any) (map[string]any, error) {
	base := map[string]any{}
	if s.base != nil {
		provided, err := s.base.BaseContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("session: base context: %w", err)
		}
		if provided != nil {
			base = provided
		}
	}

	if s.constructor == nil {
		return nil, fmt.Errorf("session: final context: %w: no entity constructor", ErrConfig)
	}
	post, err := s.constructor.Post(ctx, nil)
	switch {
	case errors.Is(err, content.ErrNoCurrent):
		base["post"] = nil
	case err != nil:
		return nil, fmt.Errorf("session: current post: %w", err)
	default:
		base["post"] = post
	}

	if s.registry != nil && s.registry.Main.Has() {
		if base, err = s.registry.TransformMain(ctx, base); err != nil {
			return nil, fmt.Errorf("session: main transformer: %w", err)
		}
	}

	merged := make(map[string]any, len(base)+s.values.Len()+len(overrides))
	for key, value := range base {
		merged[key] = value
	}
	s.values.MergeInto(merged)
	for key, value := range overrides {
		merged[key] = value
	}
	return merged, nil
}

// Render renders the named template with the final context to w, then empties
// the accumulated context. On error the accumulated values are kept.
func (s *Session) Render(ctx context.Context, w io.Writer, name string, overrides map[string]any) error {
	if s.engine == nil {
		return fmt.Errorf("session: render %q: %w: no template engine", name, ErrConfig)
	}
	data, err := s.FinalContext(ctx, overrides)
	if err != nil {
		return err
	}
	if _, err := s.engine.RenderTemplate(name, data, w); err != nil {
		return fmt.Errorf("session: render %q: %w", name, err)
	}
	s.logger.DebugContext(ctx, "page rendered", logfields.Template(name), slog.Int("context_keys", len(data)))
	s.values.Reset()
	return nil
}

// DumpFormat selects the encoding used by Dump.
type DumpFormat string

const (
	DumpYAML DumpFormat = "yaml"
	DumpJSON DumpFormat = "json"
)

// Dump writes the final context to w for inspection. It does not reset the
// accumulated values.
func (s *Session) Dump(ctx context.Context, w io.Writer, format DumpFormat) error {
	data, err := s.FinalContext(ctx, nil)
	if err != nil {
		return err
	}
	switch format {
	case DumpJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("session: dump json: %w", err)
		}
	case DumpYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("session: dump yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("session: dump yaml: %w", err)
		}
	default:
		return fmt.Errorf("session: unknown dump format %q", format)
	}
	return nil
}
