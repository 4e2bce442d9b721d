// Package template defines the templating-engine seam Hatch renders through:
// the go-template style TemplateRenderer and the ContextProvider that supplies
// each render's base context.
package template
