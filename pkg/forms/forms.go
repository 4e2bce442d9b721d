// Package forms is the seam onto an external form-rendering capability, plus
// Catalog, a YAML-defined implementation rendered through the template engine.
package forms

import (
	"context"
	"errors"
)

// ErrFormNotFound is returned when a form id is unknown.
var ErrFormNotFound = errors.New("forms: form not found")

// Options control how a form is displayed.
type Options struct {
	DisplayTitle       bool
	DisplayDescription bool
	DisplayInactive    bool
	// FieldValues pre-fills fields by name.
	FieldValues map[string]string
	// Ajax submits the form asynchronously.
	Ajax bool
	// TabIndex is the starting tabindex for the form's controls; 0 leaves
	// tabindex unset.
	TabIndex int
	// Echo asks the capability to write output itself. Hatch always renders to
	// a string and leaves it false.
	Echo bool
}

// DefaultOptions returns the options used when a caller supplies none.
func DefaultOptions() Options {
	return Options{
		DisplayTitle:       true,
		DisplayDescription: true,
	}
}

// Option mutates Options on top of DefaultOptions.
type Option func(*Options)

// Apply returns DefaultOptions with every option applied in order.
func Apply(options ...Option) Options {
	out := DefaultOptions()
	for _, opt := range options {
		if opt != nil {
			opt(&out)
		}
	}
	return out
}

// WithTitle toggles the form title.
func WithTitle(show bool) Option {
	return func(o *Options) { o.DisplayTitle = show }
}

// WithDescription toggles the form description.
func WithDescription(show bool) Option {
	return func(o *Options) { o.DisplayDescription = show }
}

// WithInactive renders forms even when they are marked inactive.
func WithInactive(show bool) Option {
	return func(o *Options) { o.DisplayInactive = show }
}

// WithFieldValues pre-fills fields.
func WithFieldValues(values map[string]string) Option {
	return func(o *Options) { o.FieldValues = values }
}

// WithAjax toggles asynchronous submission.
func WithAjax(enabled bool) Option {
	return func(o *Options) { o.Ajax = enabled }
}

// WithTabIndex sets the starting tabindex.
func WithTabIndex(index int) Option {
	return func(o *Options) { o.TabIndex = index }
}

// Renderer renders a form by id into markup.
type Renderer interface {
	RenderForm(ctx context.Context, id int64, opts Options) (string, error)
}

// RendererFunc adapts plain functions to Renderer.
type RendererFunc func(ctx context.Context, id int64, opts Options) (string, error)

// RenderForm executes the wrapped function.
func (fn RendererFunc) RenderForm(ctx context.Context, id int64, opts Options) (string, error) {
	if fn == nil {
		return "", errors.New("forms: renderer func is nil")
	}
	return fn(ctx, id, opts)
}
