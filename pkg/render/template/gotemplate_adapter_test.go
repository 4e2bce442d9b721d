package template_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/abigegg/go-hatch/pkg/media"
	"github.com/abigegg/go-hatch/pkg/render/template/gotemplate"
)

type sizedLibrary struct{}

func (sizedLibrary) AttachmentSource(id int64, size string) (media.Source, error) {
	return media.Source{URL: fmt.Sprintf("/u/%d-%s.jpg", id, size)}, nil
}

func (sizedLibrary) AttachedFile(id int64, size string) (string, error) {
	return fmt.Sprintf("/srv/%d-%s.jpg", id, size), nil
}

func (sizedLibrary) AttachmentAlt(int64) (string, error) { return "alt", nil }

type page struct {
	Title string
	Image *media.Image
}

func newEngine(t *testing.T, options ...gotemplate.Option) *gotemplate.Engine {
	t.Helper()
	files := fstest.MapFS{
		"hello.html":      {Data: []byte("Hello {{ name }}!")},
		"use-global.html": {Data: []byte("env={{ settings.env }}")},
		"page.html":       {Data: []byte("{{ page.Title }}|{{ page.Image.Src() }}|{{ page.Image.Src(\"large\") }}")},
		"body.html":       {Data: []byte("{{ body|markdown }}")},
	}
	opts := append([]gotemplate.Option{gotemplate.WithFS(files)}, options...)
	engine, err := gotemplate.New(opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestGoTemplateEngine_RenderTemplate(t *testing.T) {
	engine := newEngine(t)

	var buf bytes.Buffer
	result, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, &buf)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "Hello Ada!" || buf.String() != result {
		t.Fatalf("render mismatch: result=%q writer=%q", result, buf.String())
	}
}

func TestGoTemplateEngine_GlobalContextAndBaseContext(t *testing.T) {
	engine := newEngine(t,
		gotemplate.WithGlobalData(map[string]any{"site": map[string]any{"name": "Egg"}}),
		gotemplate.WithTemplateFunc(map[string]any{"shout": strings.ToUpper}),
	)
	if err := engine.GlobalContext(map[string]any{
		"settings": map[string]any{"env": "staging"},
	}); err != nil {
		t.Fatalf("global context: %v", err)
	}

	result, err := engine.RenderTemplate("use-global", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "env=staging" {
		t.Fatalf("unexpected output %q", result)
	}

	base, err := engine.BaseContext(context.Background())
	if err != nil {
		t.Fatalf("base context: %v", err)
	}
	want := map[string]any{
		"site":     map[string]any{"name": "Egg"},
		"settings": map[string]any{"env": "staging"},
	}
	if diff := cmp.Diff(want, base); diff != "" {
		t.Fatalf("base context mismatch (-want +got):\n%s", diff)
	}
	base["site"] = "mutated"
	again, _ := engine.BaseContext(context.Background())
	if _, ok := again["site"].(map[string]any); !ok {
		t.Fatalf("BaseContext must return a copy")
	}
}

func TestGoTemplateEngine_KeepsMethodsCallable(t *testing.T) {
	engine := newEngine(t)
	data := map[string]any{
		"page": &page{Title: "Home", Image: media.New(sizedLibrary{}, 42)},
	}

	result, err := engine.RenderTemplate("page", data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "Home|/u/42-thumbnail.jpg|/u/42-large.jpg" {
		t.Fatalf("unexpected output %q", result)
	}
}

func TestGoTemplateEngine_MarkdownFilter(t *testing.T) {
	engine := newEngine(t)
	result, err := engine.RenderTemplate("body", map[string]any{
		"body": "# Title\n\nSome *text* <script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(result, "<h1") || !strings.Contains(result, "<em>text</em>") {
		t.Fatalf("markdown not rendered: %q", result)
	}
	if strings.Contains(result, "<script>") {
		t.Fatalf("markdown output not sanitised: %q", result)
	}
}

func TestGoTemplateEngine_RenderString(t *testing.T) {
	engine := newEngine(t)
	result, err := engine.Render("{{ a }}-{{ b.c }}", map[string]any{"a": 1, "b": map[string]any{"c": "d"}})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if result != "1-d" {
		t.Fatalf("unexpected output %q", result)
	}
}

func TestGoTemplateEngine_RegisterFilter(t *testing.T) {
	engine := newEngine(t)
	err := engine.RegisterFilter("hatch_shout", func(input any, _ any) (any, error) {
		return strings.ToUpper(fmt.Sprint(input)), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}
	if err := engine.RegisterFilter("hatch_shout", func(any, any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate filter error")
	}
	result, err := engine.RenderString("{{ v|hatch_shout }}", map[string]any{"v": "hi"})
	if err != nil || result != "HI" {
		t.Fatalf("filter output = %q, %v", result, err)
	}
}

func TestGoTemplateEngine_RequiresSource(t *testing.T) {
	if _, err := gotemplate.New(); err == nil {
		t.Fatalf("expected error without base dir or fs")
	}
}

func TestGoTemplateEngine_GoTemplateOptionsAreNoOp(t *testing.T) {
	engine := newEngine(t, gotemplate.WithGoTemplateOptions())

	result, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "Hello Ada!" {
		t.Fatalf("go-template options changed rendering: %q", result)
	}
}
