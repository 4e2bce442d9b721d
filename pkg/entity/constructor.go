// Package entity builds Hatch's enriched posts, terms and images from raw
// identifiers, attaching thumbnails and running registered transformers.
package entity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"github.com/abigegg/go-hatch/internal/logfields"
	"github.com/abigegg/go-hatch/pkg/content"
	"github.com/abigegg/go-hatch/pkg/media"
	"github.com/abigegg/go-hatch/pkg/transform"
)

// Option customises a Constructor.
type Option func(*Constructor)

// WithLogger overrides the logger (slog.Default when unset).
func WithLogger(logger *slog.Logger) Option {
	return func(c *Constructor) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Constructor turns references into enriched entities. A new value is built
// on every call; nothing is cached.
type Constructor struct {
	store    content.Store
	registry *transform.Registry
	logger   *slog.Logger
}

// New returns a Constructor over store. A nil registry behaves as empty.
func New(store content.Store, registry *transform.Registry, options ...Option) *Constructor {
	if registry == nil {
		registry = transform.NewRegistry()
	}
	c := &Constructor{
		store:    store,
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Store returns the underlying host store.
func (c *Constructor) Store() content.Store {
	return c.store
}

// Post resolves ref to a post. ref may be nil or zero (the request's current
// post), a content.Identifier, a content.ID, or any integer-like value.
func (c *Constructor) Post(ctx context.Context, ref any) (*content.Post, error) {
	id, err := resolveID(ref)
	if err != nil {
		return nil, fmt.Errorf("entity: post reference: %w", err)
	}
	if id == 0 {
		if id, err = content.CurrentPost(ctx); err != nil {
			return nil, err
		}
	}

	post, err := c.store.Post(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("entity: load post %d: %w", id, err)
	}

	thumbID, err := c.store.ThumbnailID(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("entity: thumbnail for post %d: %w", post.ID, err)
	}
	if thumbID != 0 {
		post.Thumbnail = media.New(c.store, int64(thumbID))
	}

	if !c.registry.Posts.Has(post.Type) {
		return post, nil
	}
	out, err := c.registry.TransformPost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("entity: transform %s post %d: %w", post.Type, post.ID, err)
	}
	c.logger.DebugContext(ctx, "post transformed", logfields.PostType(post.Type), logfields.PostID(int64(post.ID)))
	return out, nil
}

// Posts constructs every element of v in order. Anything that is not a slice
// or array yields an empty result.
func (c *Constructor) Posts(ctx context.Context, v any) ([]*content.Post, error) {
	items, ok := sequence(v)
	if !ok {
		return []*content.Post{}, nil
	}
	out := make([]*content.Post, 0, len(items))
	for idx, item := range items {
		post, err := c.Post(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("entity: posts[%d]: %w", idx, err)
		}
		out = append(out, post)
	}
	return out, nil
}

// Term resolves ref to a term. A nil or zero ref resolves the request's
// current term, matching Post.
func (c *Constructor) Term(ctx context.Context, ref any) (*content.Term, error) {
	id, err := resolveID(ref)
	if err != nil {
		return nil, fmt.Errorf("entity: term reference: %w", err)
	}
	if id == 0 {
		if id, err = content.CurrentTerm(ctx); err != nil {
			return nil, err
		}
	}

	term, err := c.store.Term(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("entity: load term %d: %w", id, err)
	}
	if !c.registry.Taxonomies.Has(term.Taxonomy) {
		return term, nil
	}
	out, err := c.registry.TransformTerm(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("entity: transform %s term %d: %w", term.Taxonomy, term.ID, err)
	}
	return out, nil
}

// Terms constructs every element of v in order. Non-sequences yield an empty
// result.
func (c *Constructor) Terms(ctx context.Context, v any) ([]*content.Term, error) {
	items, ok := sequence(v)
	if !ok {
		return []*content.Term{}, nil
	}
	out := make([]*content.Term, 0, len(items))
	for idx, item := range items {
		term, err := c.Term(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("entity: terms[%d]: %w", idx, err)
		}
		out = append(out, term)
	}
	return out, nil
}

// Image wraps an attachment. v is either a bare identifier or a map carrying
// an "id" entry.
func (c *Constructor) Image(v any) (*media.Image, error) {
	if m, ok := v.(map[string]any); ok {
		v = m["id"]
	}
	id, err := resolveID(v)
	if err != nil {
		return nil, fmt.Errorf("entity: image reference: %w", err)
	}
	return media.New(c.store, int64(id)), nil
}

// GetPosts queries the store and constructs the results.
func (c *Constructor) GetPosts(ctx context.Context, q content.PostQuery) ([]*content.Post, error) {
	raw, err := c.store.QueryPosts(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("entity: query posts: %w", err)
	}
	refs := make([]any, 0, len(raw))
	for _, post := range raw {
		refs = append(refs, post)
	}
	return c.Posts(ctx, refs)
}

// GetTerms queries the store and constructs the results.
func (c *Constructor) GetTerms(ctx context.Context, q content.TermQuery) ([]*content.Term, error) {
	raw, err := c.store.QueryTerms(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("entity: query terms: %w", err)
	}
	refs := make([]any, 0, len(raw))
	for _, term := range raw {
		refs = append(refs, term)
	}
	return c.Terms(ctx, refs)
}

var errUnsupportedRef = errors.New("unsupported reference")

func resolveID(ref any) (content.ID, error) {
	switch v := ref.(type) {
	case nil:
		return 0, nil
	case content.ID:
		return v, nil
	case content.Identifier:
		if isNilPointer(v) {
			return 0, nil
		}
		return v.EntityID(), nil
	case bool:
		if !v {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", errUnsupportedRef, v)
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
	}
	id, err := cast.ToInt64E(ref)
	if err != nil {
		return 0, fmt.Errorf("%w %T: %v", errUnsupportedRef, ref, err)
	}
	if id < 0 {
		return 0, fmt.Errorf("%w: negative id %d", errUnsupportedRef, id)
	}
	return content.ID(id), nil
}

func sequence(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	default:
		return nil, false
	}
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
