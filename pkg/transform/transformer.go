// Package transform holds the transformer registry: per-subtype callbacks that
// replace posts and terms as they are constructed, plus a single slot for
// rewriting the whole render context.
package transform

import (
	"context"
	"strings"
	"sync"
)

// Transformer replaces a value of type T. The returned value fully replaces
// the input.
type Transformer[T any] interface {
	Transform(ctx context.Context, in T) (T, error)
}

// Func adapts plain functions to the Transformer interface.
type Func[T any] func(ctx context.Context, in T) (T, error)

// Transform executes the wrapped function when non-nil.
func (fn Func[T]) Transform(ctx context.Context, in T) (T, error) {
	if fn == nil {
		return in, nil
	}
	return fn(ctx, in)
}

type identity[T any] struct{}

func (identity[T]) Transform(_ context.Context, in T) (T, error) {
	return in, nil
}

// Identity returns the transformer used when nothing is registered for a key.
func Identity[T any]() Transformer[T] {
	return identity[T]{}
}

// Table maps subtype keys to transformers. Registering a key again replaces
// the previous transformer.
type Table[T any] struct {
	mu      sync.RWMutex
	entries map[string]Transformer[T]
}

// NewTable returns an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{entries: make(map[string]Transformer[T])}
}

// Register stores t under key. A nil transformer is ignored.
func (tb *Table[T]) Register(key string, t Transformer[T]) {
	key = strings.TrimSpace(key)
	if tb == nil || key == "" || t == nil {
		return
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.entries == nil {
		tb.entries = make(map[string]Transformer[T])
	}
	tb.entries[key] = t
}

// Unregister removes the transformer stored under key, if any.
func (tb *Table[T]) Unregister(key string) {
	if tb == nil {
		return
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	delete(tb.entries, strings.TrimSpace(key))
}

// Has reports whether a transformer is registered for key.
func (tb *Table[T]) Has(key string) bool {
	if tb == nil {
		return false
	}
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	_, ok := tb.entries[strings.TrimSpace(key)]
	return ok
}

// Lookup returns the transformer for key, or Identity when absent.
func (tb *Table[T]) Lookup(key string) Transformer[T] {
	if tb == nil {
		return Identity[T]()
	}
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	if t, ok := tb.entries[strings.TrimSpace(key)]; ok {
		return t
	}
	return Identity[T]()
}

// Apply runs the transformer registered for key against in.
func (tb *Table[T]) Apply(ctx context.Context, key string, in T) (T, error) {
	return tb.Lookup(key).Transform(ctx, in)
}

// Keys returns the registered keys in no particular order.
func (tb *Table[T]) Keys() []string {
	if tb == nil {
		return nil
	}
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	keys := make([]string, 0, len(tb.entries))
	for key := range tb.entries {
		keys = append(keys, key)
	}
	return keys
}

// Slot holds at most one transformer; the last registration wins.
type Slot[T any] struct {
	mu sync.RWMutex
	t  Transformer[T]
}

// Register replaces the slot's transformer. Passing nil clears it.
func (s *Slot[T]) Register(t Transformer[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t = t
}

// Has reports whether the slot is filled.
func (s *Slot[T]) Has() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.t != nil
}

// Apply runs the slot's transformer, or returns in unchanged when empty.
func (s *Slot[T]) Apply(ctx context.Context, in T) (T, error) {
	if s == nil {
		return in, nil
	}
	s.mu.RLock()
	t := s.t
	s.mu.RUnlock()
	if t == nil {
		return in, nil
	}
	return t.Transform(ctx, in)
}
