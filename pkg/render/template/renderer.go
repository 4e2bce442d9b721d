package template

import (
	"context"
	"io"
)

// TemplateRenderer mirrors the github.com/goliatone/go-template engine
// contract. Hatch renders every page through it.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}

// ContextProvider supplies the base context a page render starts from.
// Implementations return a fresh map the caller may mutate.
type ContextProvider interface {
	BaseContext(ctx context.Context) (map[string]any, error)
}

// ContextProviderFunc adapts plain functions to ContextProvider.
type ContextProviderFunc func(ctx context.Context) (map[string]any, error)

// BaseContext executes the wrapped function, returning an empty map when nil.
func (fn ContextProviderFunc) BaseContext(ctx context.Context) (map[string]any, error) {
	if fn == nil {
		return map[string]any{}, nil
	}
	return fn(ctx)
}
