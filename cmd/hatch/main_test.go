package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hatch "github.com/abigegg/go-hatch"
	"github.com/abigegg/go-hatch/internal/prompt"
	"github.com/abigegg/go-hatch/pkg/content"
	"github.com/abigegg/go-hatch/pkg/session"
)

const testSeed = `
attachments:
  - {id: 42, file: hero.jpg, alt: Hero}
terms:
  - {id: 5, taxonomy: category, name: News, slug: news}
posts:
  - id: 1
    title: Hello
    slug: hello
    content: Some **markdown**
    date: 2024-05-01T00:00:00Z
    thumbnail: 42
    terms: [5]
    fields:
      subtitle: First post
      related: {kind: relationship, value: [2]}
  - id: 2
    title: Second
    slug: second
    date: 2024-04-01T00:00:00Z
`

const testForms = `
forms:
  - id: 3
    title: Contact
    fields:
      - {name: email, label: Email, type: email}
`

func writeProject(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed.yaml"), []byte(testSeed), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "forms.yaml"), []byte(testForms), 0o644))
	cfg := fmt.Sprintf("database: \":memory:\"\nseed: seed.yaml\ntemplates: theme\nuploads_url: /uploads\nsite_url: https://example.test\nglobals:\n  site_name: Example\nlog:\n  level: error\n%s", extra)
	path := filepath.Join(dir, "hatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func run(t *testing.T, driver prompt.Driver, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(driver)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{fmt.Errorf("wrapped: %w", session.ErrConfig), exitConfig},
		{hatch.ErrTemplatingUnavailable, exitConfig},
		{fmt.Errorf("post 9: %w", content.ErrNotFound), exitNotFound},
		{errors.New("boom"), exitFailure},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, exitCode(tc.err), "error %v", tc.err)
	}
}

func TestRender_StarterThemeWithCurrentPost(t *testing.T) {
	path := writeProject(t, "")
	out, err := run(t, nil, "--config", path, "render", "single", "--post", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "<title>Hello | Example</title>")
	assert.Contains(t, out, "<strong>markdown</strong>")
	assert.Contains(t, out, `src="/uploads/hero.jpg"`)
}

func TestRender_MissingPostIsNotFound(t *testing.T) {
	path := writeProject(t, "")
	_, err := run(t, nil, "--config", path, "render", "single", "--post", "99")
	require.Error(t, err)
	assert.Equal(t, exitNotFound, exitCode(err))
}

func TestRender_FormWithoutCatalogIsConfigError(t *testing.T) {
	path := writeProject(t, "")
	_, err := run(t, nil, "--config", path, "render", "single", "--post", "1", "--form", "contact=3")
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(err))
}

func TestRender_FormFromCatalog(t *testing.T) {
	path := writeProject(t, "forms: forms.yaml\n")
	out, err := run(t, nil, "--config", path, "render", "single", "--post", "1", "--form", "form=3")
	require.NoError(t, err)
	assert.Contains(t, out, "Contact")
	assert.Contains(t, out, `name="email"`)
}

func TestDump_JSONIncludesFieldsAndValues(t *testing.T) {
	path := writeProject(t, "")
	out, err := run(t, nil, "--config", path, "dump", "--format", "json",
		"--post", "1", "--field", "subtitle,related", "--set", "count=3", "--list", "post")
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, "First post", data["subtitle"])
	assert.Equal(t, float64(3), data["count"])
	assert.Equal(t, "Example", data["site_name"])

	post, ok := data["post"].(map[string]any)
	require.True(t, ok, "post should be an object, got %T", data["post"])
	assert.Equal(t, "Hello", post["title"])

	related, ok := data["related"].([]any)
	require.True(t, ok)
	require.Len(t, related, 1)
	assert.Equal(t, "Second", related[0].(map[string]any)["title"])

	posts, ok := data["posts"].([]any)
	require.True(t, ok)
	assert.Len(t, posts, 2)
}

func TestDump_RejectsUnknownFormat(t *testing.T) {
	path := writeProject(t, "")
	_, err := run(t, nil, "--config", path, "dump", "--format", "xml")
	require.Error(t, err)
}

func TestServe_Handler(t *testing.T) {
	path := writeProject(t, "")
	a, err := openApp(context.Background(), &rootOptions{configPath: path}, &bytes.Buffer{}, appOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	srv := httptest.NewServer(a.handler(serveOptions{
		indexTemplate:  "index",
		singleTemplate: "single",
		listType:       "post",
		filter:         "category",
	}, nil))
	t.Cleanup(srv.Close)

	body := get(t, srv.URL+"/", http.StatusOK)
	assert.Contains(t, body, "Hello")
	assert.Contains(t, body, "Second")
	assert.Contains(t, body, "Select an option")

	body = get(t, srv.URL+"/?filter_category=5", http.StatusOK)
	assert.Contains(t, body, "Hello")
	assert.NotContains(t, body, "Second")

	body = get(t, srv.URL+"/p/2", http.StatusOK)
	assert.Contains(t, body, "<h1>Second</h1>")

	get(t, srv.URL+"/p/99", http.StatusNotFound)
	get(t, srv.URL+"/p/abc", http.StatusNotFound)

	body = get(t, srv.URL+"/static/hatch.css", http.StatusOK)
	assert.Contains(t, body, "font-family")
}

func get(t *testing.T, url string, want int) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Equal(t, want, resp.StatusCode, "GET %s: %s", url, buf.String())
	return buf.String()
}

func TestSeed_PersistsToFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed.yaml"), []byte(testSeed), 0o644))
	path := filepath.Join(dir, "hatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: site.db\nseed: seed.yaml\nlog:\n  level: error\n"), 0o644))

	out, err := run(t, nil, "--config", path, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "2 posts, 1 terms, 1 attachments, 2 fields")

	out, err = run(t, nil, "--config", path, "dump", "--post", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "title: Second")
}

type scriptedDriver struct {
	inputs   []string
	confirms []bool
	selects  []int
}

func (d *scriptedDriver) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	if len(d.inputs) == 0 {
		return cfg.Default, nil
	}
	v := d.inputs[0]
	d.inputs = d.inputs[1:]
	if v == "" {
		v = cfg.Default
	}
	if cfg.Validator != nil {
		if err := cfg.Validator(v); err != nil {
			return "", err
		}
	}
	return v, nil
}

func (d *scriptedDriver) Confirm(_ context.Context, cfg prompt.ConfirmConfig) (bool, error) {
	if len(d.confirms) == 0 {
		return cfg.Default, nil
	}
	v := d.confirms[0]
	d.confirms = d.confirms[1:]
	return v, nil
}

func (d *scriptedDriver) Select(_ context.Context, cfg prompt.SelectConfig) (int, error) {
	if len(d.selects) == 0 {
		return cfg.DefaultIndex, nil
	}
	v := d.selects[0]
	d.selects = d.selects[1:]
	return v, nil
}

func TestInit_WritesConfigAndTheme(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hatch.yaml")
	driver := &scriptedDriver{
		inputs:   []string{"content.db", "site", "https://example.test", "", ""},
		selects:  []int{1},
		confirms: []bool{true},
	}

	out, err := run(t, driver, "--config", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "database: content.db")
	assert.Contains(t, string(data), "format: json")

	_, err = os.Stat(filepath.Join(dir, "site", "single.html"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "site", "static", "hatch.css"))
	require.NoError(t, err)
}

func TestInit_KeepsExistingConfigWhenDeclined(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: keep.db\n"), 0o644))

	out, err := run(t, &scriptedDriver{confirms: []bool{false}}, "--config", path, "init")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Nothing written."))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "database: keep.db\n", string(data))
}
