// Package hatch sits between a content store and a template engine: it wraps
// posts, terms and images in richer values, runs registered transformers over
// them, and renders pages from a per-request accumulated context.
package hatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/abigegg/go-hatch/pkg/content"
	"github.com/abigegg/go-hatch/pkg/entity"
	"github.com/abigegg/go-hatch/pkg/forms"
	"github.com/abigegg/go-hatch/pkg/media"
	"github.com/abigegg/go-hatch/pkg/render/template"
	"github.com/abigegg/go-hatch/pkg/session"
	"github.com/abigegg/go-hatch/pkg/transform"
)

// ErrTemplatingUnavailable is returned by New when no template engine is
// configured outside CLI mode.
var ErrTemplatingUnavailable = errors.New("hatch: a template engine is required")

// FormatPriority is the hook priority Hatch's field formatters run at.
const FormatPriority = 50

// Aliases exported from the root package for convenience.
type (
	Post         = content.Post
	Term         = content.Term
	ID           = content.ID
	Image        = media.Image
	Session      = session.Session
	FilterArgs   = entity.FilterArgs
	FilterOption = entity.FilterOption
)

// Option customises a Hatch instance.
type Option func(*Hatch)

// WithEngine sets the template engine.
func WithEngine(engine template.TemplateRenderer) Option {
	return func(h *Hatch) { h.engine = engine }
}

// WithContextProvider overrides where each render's base context comes from.
func WithContextProvider(provider template.ContextProvider) Option {
	return func(h *Hatch) { h.base = provider }
}

// WithForms sets the forms capability sessions embed forms through.
func WithForms(renderer forms.Renderer) Option {
	return func(h *Hatch) { h.forms = renderer }
}

// WithHooks shares a field-format hook table with other components.
func WithHooks(hooks *content.Hooks) Option {
	return func(h *Hatch) {
		if hooks != nil {
			h.hooks = hooks
		}
	}
}

// WithRegistry shares a transformer registry.
func WithRegistry(registry *transform.Registry) Option {
	return func(h *Hatch) {
		if registry != nil {
			h.registry = registry
		}
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hatch) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithCLIMode relaxes the template engine requirement for command-line tools
// that only construct entities.
func WithCLIMode(enabled bool) Option {
	return func(h *Hatch) { h.cliMode = enabled }
}

// Hatch owns the long-lived pieces shared by every request: the store, the
// transformer registry, the field hooks and the rendering collaborators.
type Hatch struct {
	store       content.Store
	registry    *transform.Registry
	hooks       *content.Hooks
	constructor *entity.Constructor
	fields      *content.Fields
	engine      template.TemplateRenderer
	base        template.ContextProvider
	forms       forms.Renderer
	logger      *slog.Logger
	cliMode     bool
}

// New wires a Hatch instance over store and installs its field formatters.
func New(store content.Store, options ...Option) (*Hatch, error) {
	if store == nil {
		return nil, errors.New("hatch: content store is required")
	}
	h := &Hatch{
		store:    store,
		registry: transform.NewRegistry(),
		hooks:    content.NewHooks(),
		logger:   slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(h)
	}
	if err := CheckPrerequisites(h.engine, h.cliMode); err != nil {
		return nil, err
	}

	h.constructor = entity.New(store, h.registry, entity.WithLogger(h.logger))
	h.fields = content.NewFields(store, h.hooks)
	h.Install(h.hooks)
	return h, nil
}

// CheckPrerequisites fails when no template engine is available and CLI mode
// is off.
func CheckPrerequisites(engine template.TemplateRenderer, cliMode bool) error {
	if engine == nil && !cliMode {
		return ErrTemplatingUnavailable
	}
	return nil
}

// Install registers formatters that upgrade raw field values: post objects to
// posts, relationships to post lists and images to image wrappers.
func (h *Hatch) Install(hooks *content.Hooks) {
	hooks.AddFormatter(content.FieldPostObject, FormatPriority, func(ctx context.Context, value any) (any, error) {
		return h.constructor.Post(ctx, value)
	})
	hooks.AddFormatter(content.FieldRelationship, FormatPriority, func(ctx context.Context, value any) (any, error) {
		return h.constructor.Posts(ctx, value)
	})
	hooks.AddFormatter(content.FieldImage, FormatPriority, func(_ context.Context, value any) (any, error) {
		return h.constructor.Image(value)
	})
}

// NewSession starts a request. Options override the instance defaults.
func (h *Hatch) NewSession(options ...session.Option) *session.Session {
	base := []session.Option{
		session.WithEngine(h.engine),
		session.WithFields(h.fields),
		session.WithRegistry(h.registry),
		session.WithForms(h.forms),
		session.WithLogger(h.logger),
	}
	if h.base != nil {
		base = append(base, session.WithContextProvider(h.base))
	}
	return session.New(h.constructor, append(base, options...)...)
}

// Render is a one-shot helper: a fresh session rendering name with overrides.
func (h *Hatch) Render(ctx context.Context, w io.Writer, name string, overrides map[string]any) error {
	return h.NewSession().Render(ctx, w, name, overrides)
}

// Registry returns the transformer registry.
func (h *Hatch) Registry() *transform.Registry { return h.registry }

// Hooks returns the field-format hook table.
func (h *Hatch) Hooks() *content.Hooks { return h.hooks }

// Fields returns the formatted field reader.
func (h *Hatch) Fields() *content.Fields { return h.fields }

// Constructor returns the entity constructor.
func (h *Hatch) Constructor() *entity.Constructor { return h.constructor }

// Store returns the content store.
func (h *Hatch) Store() content.Store { return h.store }

// RegisterPostTransformer registers fn for posts of postType, replacing any
// previous transformer for that type.
func (h *Hatch) RegisterPostTransformer(postType string, fn func(ctx context.Context, post *Post) (*Post, error)) {
	h.registry.RegisterPost(postType, fn)
}

// RegisterTaxonomyTransformer registers fn for terms of taxonomy.
func (h *Hatch) RegisterTaxonomyTransformer(taxonomy string, fn func(ctx context.Context, term *Term) (*Term, error)) {
	h.registry.RegisterTaxonomy(taxonomy, fn)
}

// RegisterMainTransformer replaces the transformer applied to every render's
// base context.
func (h *Hatch) RegisterMainTransformer(fn func(ctx context.Context, data map[string]any) (map[string]any, error)) {
	h.registry.RegisterMain(fn)
}

// Post constructs a post; see entity.Constructor.Post.
func (h *Hatch) Post(ctx context.Context, ref any) (*Post, error) {
	return h.constructor.Post(ctx, ref)
}

// Posts constructs a list of posts; see entity.Constructor.Posts.
func (h *Hatch) Posts(ctx context.Context, refs any) ([]*Post, error) {
	return h.constructor.Posts(ctx, refs)
}

// Term constructs a term; see entity.Constructor.Term.
func (h *Hatch) Term(ctx context.Context, ref any) (*Term, error) {
	return h.constructor.Term(ctx, ref)
}

// Terms constructs a list of terms; see entity.Constructor.Terms.
func (h *Hatch) Terms(ctx context.Context, refs any) ([]*Term, error) {
	return h.constructor.Terms(ctx, refs)
}

// Image wraps an attachment; see entity.Constructor.Image.
func (h *Hatch) Image(ref any) (*Image, error) {
	return h.constructor.Image(ref)
}

// GetPosts queries and constructs posts.
func (h *Hatch) GetPosts(ctx context.Context, q content.PostQuery) ([]*Post, error) {
	return h.constructor.GetPosts(ctx, q)
}

// GetTerms queries and constructs terms.
func (h *Hatch) GetTerms(ctx context.Context, q content.TermQuery) ([]*Term, error) {
	return h.constructor.GetTerms(ctx, q)
}

// FilterOptions lists a taxonomy's terms as filter links.
func (h *Hatch) FilterOptions(ctx context.Context, args FilterArgs) ([]FilterOption, error) {
	options, err := h.constructor.FilterOptions(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("hatch: filter options: %w", err)
	}
	return options, nil
}
