package hatch_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	hatch "github.com/abigegg/go-hatch"
	"github.com/abigegg/go-hatch/pkg/content"
	"github.com/abigegg/go-hatch/pkg/content/memory"
	"github.com/abigegg/go-hatch/pkg/forms"
	"github.com/abigegg/go-hatch/pkg/render/template/gotemplate"
	"github.com/abigegg/go-hatch/pkg/session"
)

func newStore() *memory.Store {
	store := memory.New(memory.WithUploads("https://cdn.test/uploads", "/srv/uploads"))
	store.PutPost(content.Post{ID: 1, Type: "page", Title: "Home"})
	store.PutPost(content.Post{ID: 2, Type: "event", Title: "Launch"})
	store.PutPost(content.Post{ID: 3, Type: "post", Title: "News"})
	store.PutAttachment(memory.Attachment{ID: 42, File: "hero.jpg", Alt: "Hero"})
	store.SetThumbnail(2, 42)
	store.SetField(1, "featured", content.FieldPostObject, 2)
	store.SetField(1, "related", content.FieldRelationship, []any{3, 2})
	store.SetField(1, "hero", content.FieldImage, map[string]any{"id": 42})
	return store
}

func newEngine(t *testing.T) *gotemplate.Engine {
	t.Helper()
	engine, err := gotemplate.New(gotemplate.WithFS(fstest.MapFS{
		"home.html": {Data: []byte(
			"{{ post.Title }}|{{ featured.Title }}:{{ featured.Thumbnail.Src() }}|" +
				"{% for p in related %}{{ p.Title }},{% endfor %}|{{ hero.Alt() }}|{{ contact|safe }}",
		)},
	}))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return engine
}

func TestNew_RequiresEngineOutsideCLIMode(t *testing.T) {
	if _, err := hatch.New(newStore()); !errors.Is(err, hatch.ErrTemplatingUnavailable) {
		t.Fatalf("expected ErrTemplatingUnavailable, got %v", err)
	}
	if _, err := hatch.New(newStore(), hatch.WithCLIMode(true)); err != nil {
		t.Fatalf("cli mode should not need an engine: %v", err)
	}
	if _, err := hatch.New(nil, hatch.WithCLIMode(true)); err == nil {
		t.Fatalf("expected error without a store")
	}
}

func TestHatch_FieldFormattersUpgradeValues(t *testing.T) {
	h, err := hatch.New(newStore(), hatch.WithCLIMode(true))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := content.WithCurrentPost(context.Background(), 1)

	featured, err := h.Fields().Current(ctx, "featured")
	if err != nil {
		t.Fatalf("featured: %v", err)
	}
	post, ok := featured.(*hatch.Post)
	if !ok || post.ID != 2 || post.Thumbnail == nil {
		t.Fatalf("post_object should become a post with thumbnail, got %#v", featured)
	}

	related, err := h.Fields().Current(ctx, "related")
	if err != nil {
		t.Fatalf("related: %v", err)
	}
	posts, ok := related.([]*hatch.Post)
	if !ok || len(posts) != 2 || posts[0].ID != 3 || posts[1].ID != 2 {
		t.Fatalf("relationship should become ordered posts, got %#v", related)
	}

	hero, err := h.Fields().Current(ctx, "hero")
	if err != nil {
		t.Fatalf("hero: %v", err)
	}
	img, ok := hero.(*hatch.Image)
	if !ok || img.ID() != 42 {
		t.Fatalf("image field should become an image wrapper, got %#v", hero)
	}
}

func TestHatch_EndToEndRender(t *testing.T) {
	engine := newEngine(t)
	catalog := forms.NewCatalog(engine)
	if err := catalog.Add(forms.Definition{ID: 5, Title: "Contact", Fields: []forms.Field{{Name: "email", Label: "Email"}}}); err != nil {
		t.Fatalf("add form: %v", err)
	}

	h, err := hatch.New(newStore(), hatch.WithEngine(engine), hatch.WithForms(catalog))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	h.RegisterPostTransformer("event", func(_ context.Context, post *hatch.Post) (*hatch.Post, error) {
		out := post.Clone()
		out.Title = strings.ToUpper(post.Title)
		return out, nil
	})

	ctx := content.WithCurrentPost(context.Background(), 1)
	s := h.NewSession()
	if err := s.AddFields(ctx, "featured", "related", "hero"); err != nil {
		t.Fatalf("add fields: %v", err)
	}
	err = s.AddFormContext(ctx, "contact", func(context.Context) (int64, error) { return 5, nil }, forms.WithDescription(false))
	if err != nil {
		t.Fatalf("add form context: %v", err)
	}

	var buf bytes.Buffer
	if err := s.Render(ctx, &buf, "home", nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	wantPrefix := "Home|LAUNCH:https://cdn.test/uploads/hero.jpg|News,LAUNCH,|Hero|"
	if !strings.HasPrefix(out, wantPrefix) {
		t.Fatalf("unexpected output\nwant prefix: %s\n got: %s", wantPrefix, out)
	}
	if !strings.Contains(out, `name="email"`) {
		t.Fatalf("form markup missing:\n%s", out)
	}
	if s.Context().Len() != 0 {
		t.Fatalf("session should be empty after render")
	}
}

func TestHatch_SessionsAreIndependent(t *testing.T) {
	h, err := hatch.New(newStore(), hatch.WithEngine(newEngine(t)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a := h.NewSession()
	b := h.NewSession()
	a.AddValue("only_a", true)
	if b.Context().Has("only_a") {
		t.Fatalf("sessions must not share accumulated values")
	}

	err = b.AddFormContext(context.Background(), "form", func(context.Context) (int64, error) { return 1, nil })
	if !errors.Is(err, session.ErrConfig) {
		t.Fatalf("expected ErrConfig without forms, got %v", err)
	}
}

func TestStarterTheme_RendersCurrentPost(t *testing.T) {
	store := newStore()
	store.PutPost(content.Post{ID: 7, Type: "post", Title: "Notes", Content: "Some **bold** text"})
	store.SetThumbnail(7, 42)

	engine, err := gotemplate.New(gotemplate.WithFS(hatch.StarterTheme()), gotemplate.WithGlobalData(map[string]any{
		"site_name": "Example",
	}))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	h, err := hatch.New(store, hatch.WithEngine(engine))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx := content.WithCurrentPost(context.Background(), 7)
	var buf bytes.Buffer
	if err := h.Render(ctx, &buf, "single", nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"<title>Notes | Example</title>",
		"<h1>Notes</h1>",
		"<strong>bold</strong>",
		`src="https://cdn.test/uploads/hero.jpg"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
