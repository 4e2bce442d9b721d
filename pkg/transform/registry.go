package transform

import (
	"context"

	"github.com/abigegg/go-hatch/pkg/content"
)

// Context is the render context the main transformer rewrites.
type Context = map[string]any

// Registry groups the three transformer tables Hatch consults: posts keyed by
// post type, terms keyed by taxonomy, and the main render context.
type Registry struct {
	Posts      *Table[*content.Post]
	Taxonomies *Table[*content.Term]
	Main       *Slot[Context]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		Posts:      NewTable[*content.Post](),
		Taxonomies: NewTable[*content.Term](),
		Main:       &Slot[Context]{},
	}
}

// RegisterPost registers fn for posts of postType, replacing any earlier one.
// A nil fn removes the registration so those posts pass through unchanged.
func (r *Registry) RegisterPost(postType string, fn func(ctx context.Context, post *content.Post) (*content.Post, error)) {
	if fn == nil {
		r.Posts.Unregister(postType)
		return
	}
	r.Posts.Register(postType, Func[*content.Post](fn))
}

// RegisterTaxonomy registers fn for terms of taxonomy, replacing any earlier
// one. A nil fn removes the registration.
func (r *Registry) RegisterTaxonomy(taxonomy string, fn func(ctx context.Context, term *content.Term) (*content.Term, error)) {
	if fn == nil {
		r.Taxonomies.Unregister(taxonomy)
		return
	}
	r.Taxonomies.Register(taxonomy, Func[*content.Term](fn))
}

// RegisterMain replaces the main context transformer. A nil fn clears it.
func (r *Registry) RegisterMain(fn func(ctx context.Context, data Context) (Context, error)) {
	if fn == nil {
		r.Main.Register(nil)
		return
	}
	r.Main.Register(Func[Context](fn))
}

// TransformPost applies the transformer registered for the post's type.
func (r *Registry) TransformPost(ctx context.Context, post *content.Post) (*content.Post, error) {
	if post == nil {
		return nil, nil
	}
	return r.Posts.Apply(ctx, post.Type, post)
}

// TransformTerm applies the transformer registered for the term's taxonomy.
func (r *Registry) TransformTerm(ctx context.Context, term *content.Term) (*content.Term, error) {
	if term == nil {
		return nil, nil
	}
	return r.Taxonomies.Apply(ctx, term.Taxonomy, term)
}

// TransformMain applies the main transformer, if any.
func (r *Registry) TransformMain(ctx context.Context, data Context) (Context, error) {
	return r.Main.Apply(ctx, data)
}
