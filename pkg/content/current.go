package content

import "context"

type currentPostKey struct{}

type currentTermKey struct{}

// WithCurrentPost marks id as the post being served by the request.
func WithCurrentPost(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, currentPostKey{}, id)
}

// CurrentPost returns the request's current post id.
func CurrentPost(ctx context.Context) (ID, error) {
	if ctx == nil {
		return 0, ErrNoCurrent
	}
	id, ok := ctx.Value(currentPostKey{}).(ID)
	if !ok || id == 0 {
		return 0, ErrNoCurrent
	}
	return id, nil
}

// WithCurrentTerm marks id as the term being served (archive pages).
func WithCurrentTerm(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, currentTermKey{}, id)
}

// CurrentTerm returns the request's current term id.
func CurrentTerm(ctx context.Context) (ID, error) {
	if ctx == nil {
		return 0, ErrNoCurrent
	}
	id, ok := ctx.Value(currentTermKey{}).(ID)
	if !ok || id == 0 {
		return 0, ErrNoCurrent
	}
	return id, nil
}
