package content

import (
	"context"
	"errors"

	"github.com/abigegg/go-hatch/pkg/media"
)

var (
	// ErrNotFound is returned when a record does not exist in the store.
	ErrNotFound = errors.New("content: not found")
	// ErrNoCurrent is returned when the request carries no current entity.
	ErrNoCurrent = errors.New("content: no current entity")
)

// FieldKind classifies a custom field so formatting hooks can target it.
type FieldKind string

const (
	FieldText         FieldKind = "text"
	FieldPostObject   FieldKind = "post_object"
	FieldRelationship FieldKind = "relationship"
	FieldImage        FieldKind = "image"
)

// Store is the host content framework as seen by Hatch. Field returns the raw
// stored value; callers wanting formatted values go through Fields.
type Store interface {
	media.Library

	Post(ctx context.Context, id ID) (*Post, error)
	Term(ctx context.Context, id ID) (*Term, error)
	// ThumbnailID returns 0 when the post has no featured image.
	ThumbnailID(ctx context.Context, postID ID) (ID, error)
	Field(ctx context.Context, postID ID, key string) (any, FieldKind, error)
	QueryPosts(ctx context.Context, q PostQuery) ([]*Post, error)
	QueryTerms(ctx context.Context, q TermQuery) ([]*Term, error)
}
