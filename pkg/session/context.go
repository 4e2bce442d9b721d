package session

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Context is the ordered key/value map accumulated for a render. Setting an
// existing key keeps its original position.
type Context struct {
	values *orderedmap.OrderedMap[string, any]
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{values: orderedmap.New[string, any]()}
}

// Set stores value under key.
func (c *Context) Set(key string, value any) {
	c.values.Set(key, value)
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	return c.values.Get(key)
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.values.Get(key)
	return ok
}

// Len returns the number of keys.
func (c *Context) Len() int {
	return c.values.Len()
}

// Keys returns the keys in insertion order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, c.values.Len())
	for pair := c.values.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Map copies the context into a plain map.
func (c *Context) Map() map[string]any {
	out := make(map[string]any, c.values.Len())
	for pair := c.values.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

// MergeInto writes every entry over dst, returning dst.
func (c *Context) MergeInto(dst map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, c.values.Len())
	}
	for pair := c.values.Oldest(); pair != nil; pair = pair.Next() {
		dst[pair.Key] = pair.Value
	}
	return dst
}

// Reset empties the context.
func (c *Context) Reset() {
	c.values = orderedmap.New[string, any]()
}
