package transform_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abigegg/go-hatch/pkg/content"
	"github.com/abigegg/go-hatch/pkg/transform"
)

func TestRegistry_PostTransformerReplacesMatchingType(t *testing.T) {
	reg := transform.NewRegistry()
	replacement := &content.Post{ID: 99, Type: "event", Title: "replaced"}
	reg.RegisterPost("event", func(_ context.Context, _ *content.Post) (*content.Post, error) {
		return replacement, nil
	})

	got, err := reg.TransformPost(context.Background(), &content.Post{ID: 1, Type: "event"})
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if got != replacement {
		t.Fatalf("expected transformer output to replace input, got %+v", got)
	}

	page := &content.Post{ID: 2, Type: "page"}
	got, err = reg.TransformPost(context.Background(), page)
	if err != nil {
		t.Fatalf("transform page: %v", err)
	}
	if got != page {
		t.Fatalf("untransformed type should pass through unchanged")
	}
}

func TestRegistry_OverwriteReplacesPrevious(t *testing.T) {
	reg := transform.NewRegistry()
	oldCalls := 0
	reg.RegisterTaxonomy("genre", func(_ context.Context, term *content.Term) (*content.Term, error) {
		oldCalls++
		return term, nil
	})
	reg.RegisterTaxonomy("genre", func(_ context.Context, term *content.Term) (*content.Term, error) {
		term.Set("new", true)
		return term, nil
	})

	got, err := reg.TransformTerm(context.Background(), &content.Term{ID: 3, Taxonomy: "genre"})
	if err != nil {
		t.Fatalf("transform term: %v", err)
	}
	if oldCalls != 0 {
		t.Fatalf("replaced transformer was invoked %d times", oldCalls)
	}
	if got.Get("new") != true {
		t.Fatalf("new transformer did not run: %+v", got.Attrs)
	}
	if !reg.Taxonomies.Has("genre") || reg.Taxonomies.Has("tag") {
		t.Fatalf("Has returned the wrong answer")
	}
}

func TestRegistry_MainSlot(t *testing.T) {
	reg := transform.NewRegistry()
	if reg.Main.Has() {
		t.Fatalf("main slot should start empty")
	}

	in := transform.Context{"a": 1}
	out, err := reg.TransformMain(context.Background(), in)
	if err != nil {
		t.Fatalf("transform main: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("empty slot should be identity (-want +got):\n%s", diff)
	}

	reg.RegisterMain(func(_ context.Context, data transform.Context) (transform.Context, error) {
		return transform.Context{"first": true}, nil
	})
	reg.RegisterMain(func(_ context.Context, data transform.Context) (transform.Context, error) {
		return transform.Context{"second": data["a"]}, nil
	})
	out, err = reg.TransformMain(context.Background(), in)
	if err != nil {
		t.Fatalf("transform main: %v", err)
	}
	if diff := cmp.Diff(transform.Context{"second": 1}, out); diff != "" {
		t.Fatalf("last registration should win (-want +got):\n%s", diff)
	}

	reg.RegisterMain(nil)
	if reg.Main.Has() {
		t.Fatalf("registering nil should clear the slot")
	}
}

func TestTable_ErrorPropagates(t *testing.T) {
	table := transform.NewTable[int]()
	boom := errors.New("boom")
	table.Register("x", transform.Func[int](func(context.Context, int) (int, error) { return 0, boom }))

	if _, err := table.Apply(context.Background(), "x", 1); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, err := table.Apply(context.Background(), "y", 7)
	if err != nil || got != 7 {
		t.Fatalf("identity fallback = %d, %v", got, err)
	}
	table.Register(" ", transform.Identity[int]())
	if len(table.Keys()) != 1 {
		t.Fatalf("blank key should be ignored, keys=%v", table.Keys())
	}
}

func TestRegistry_NilFuncClearsRegistration(t *testing.T) {
	reg := transform.NewRegistry()
	reg.RegisterPost("event", func(_ context.Context, post *content.Post) (*content.Post, error) {
		return &content.Post{ID: post.ID, Title: "changed"}, nil
	})
	reg.RegisterTaxonomy("genre", func(_ context.Context, term *content.Term) (*content.Term, error) {
		return &content.Term{ID: term.ID, Name: "changed"}, nil
	})
	reg.RegisterMain(func(_ context.Context, _ transform.Context) (transform.Context, error) {
		return transform.Context{}, nil
	})

	reg.RegisterPost("event", nil)
	reg.RegisterTaxonomy("genre", nil)
	reg.RegisterMain(nil)

	if reg.Posts.Has("event") || reg.Taxonomies.Has("genre") || reg.Main.Has() {
		t.Fatalf("nil registration should clear every table and the main slot")
	}
	post := &content.Post{ID: 1, Type: "event", Title: "kept"}
	got, err := reg.TransformPost(context.Background(), post)
	if err != nil || got != post {
		t.Fatalf("cleared post type should pass through, got %+v, %v", got, err)
	}
	term := &content.Term{ID: 2, Taxonomy: "genre", Name: "kept"}
	gotTerm, err := reg.TransformTerm(context.Background(), term)
	if err != nil || gotTerm != term {
		t.Fatalf("cleared taxonomy should pass through, got %+v, %v", gotTerm, err)
	}
}
