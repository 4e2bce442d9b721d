package content

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Formatter rewrites a raw field value of a given kind.
type Formatter func(ctx context.Context, value any) (any, error)

type hook struct {
	priority int
	order    int
	fn       Formatter
}

// Hooks holds field formatters keyed by field kind. Lower priority values run
// first; ties run in registration order. The zero value is ready to use.
type Hooks struct {
	mu    sync.RWMutex
	hooks map[FieldKind][]hook
	seq   int
}

// NewHooks returns an empty hook table.
func NewHooks() *Hooks {
	return &Hooks{}
}

// AddFormatter registers fn for the field kind.
func (h *Hooks) AddFormatter(kind FieldKind, priority int, fn Formatter) {
	if h == nil || fn == nil || strings.TrimSpace(string(kind)) == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.hooks == nil {
		h.hooks = make(map[FieldKind][]hook)
	}
	h.hooks[kind] = append(h.hooks[kind], hook{priority: priority, order: h.seq, fn: fn})
	h.seq++
}

// Has reports whether any formatter is registered for kind.
func (h *Hooks) Has(kind FieldKind) bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.hooks[kind]) > 0
}

// Format runs every formatter registered for kind, feeding each the previous
// output.
func (h *Hooks) Format(ctx context.Context, kind FieldKind, value any) (any, error) {
	if h == nil {
		return value, nil
	}
	h.mu.RLock()
	chain := append([]hook(nil), h.hooks[kind]...)
	h.mu.RUnlock()

	sort.SliceStable(chain, func(i, j int) bool {
		if chain[i].priority == chain[j].priority {
			return chain[i].order < chain[j].order
		}
		return chain[i].priority < chain[j].priority
	})

	for _, entry := range chain {
		out, err := entry.fn(ctx, value)
		if err != nil {
			return nil, fmt.Errorf("content: format %s field: %w", kind, err)
		}
		value = out
	}
	return value, nil
}

// Fields reads custom fields from a store and passes them through hooks.
type Fields struct {
	store Store
	hooks *Hooks
}

// NewFields binds a store to a hook table.
func NewFields(store Store, hooks *Hooks) *Fields {
	return &Fields{store: store, hooks: hooks}
}

// Get returns the formatted value of key on postID.
func (f *Fields) Get(ctx context.Context, postID ID, key string) (any, error) {
	if f == nil || f.store == nil {
		return nil, fmt.Errorf("content: fields have no store")
	}
	raw, kind, err := f.store.Field(ctx, postID, key)
	if err != nil {
		return nil, fmt.Errorf("content: field %q on post %d: %w", key, postID, err)
	}
	if raw == nil {
		return nil, nil
	}
	return f.hooks.Format(ctx, kind, raw)
}

// Current returns the formatted value of key on the request's current post.
func (f *Fields) Current(ctx context.Context, key string) (any, error) {
	id, err := CurrentPost(ctx)
	if err != nil {
		return nil, err
	}
	return f.Get(ctx, id, key)
}
