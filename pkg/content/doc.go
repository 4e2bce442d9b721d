// Package content defines the entity records (posts, terms) that Hatch wraps,
// the Store seam onto the host content framework, and the field-formatting
// hooks that upgrade raw custom-field values before callers see them.
package content
