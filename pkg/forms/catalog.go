package forms

import (
	"context"
	_ "embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"

	"github.com/abigegg/go-hatch/internal/logfields"
	"github.com/abigegg/go-hatch/pkg/render/template"
)

//go:embed templates/form.html
var defaultFormTemplate string

// Field describes one input of a catalog form.
type Field struct {
	Name        string   `yaml:"name"`
	Label       string   `yaml:"label"`
	Type        string   `yaml:"type"`
	Required    bool     `yaml:"required"`
	Default     string   `yaml:"default"`
	Placeholder string   `yaml:"placeholder"`
	Choices     []string `yaml:"choices"`
}

// Definition describes a catalog form.
type Definition struct {
	ID          int64   `yaml:"id"`
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	Active      *bool   `yaml:"active"`
	Action      string  `yaml:"action"`
	Submit      string  `yaml:"submit"`
	Fields      []Field `yaml:"fields"`
}

// IsActive reports whether the form accepts submissions. Forms are active
// unless marked otherwise.
func (d Definition) IsActive() bool {
	return d.Active == nil || *d.Active
}

type catalogFile struct {
	Forms []Definition `yaml:"forms"`
}

// CatalogOption customises a Catalog.
type CatalogOption func(*Catalog)

// WithFormTemplate overrides the built-in form markup template.
func WithFormTemplate(tpl string) CatalogOption {
	return func(c *Catalog) {
		if strings.TrimSpace(tpl) != "" {
			c.template = tpl
		}
	}
}

// WithCatalogLogger sets the catalog logger.
func WithCatalogLogger(logger *slog.Logger) CatalogOption {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Catalog renders forms described in YAML through a template engine.
type Catalog struct {
	mu       sync.RWMutex
	forms    map[int64]Definition
	engine   template.TemplateRenderer
	template string
	policy   *bluemonday.Policy
	logger   *slog.Logger
}

var _ Renderer = (*Catalog)(nil)

// NewCatalog returns an empty catalog rendering through engine.
func NewCatalog(engine template.TemplateRenderer, options ...CatalogOption) *Catalog {
	c := &Catalog{
		forms:    make(map[int64]Definition),
		engine:   engine,
		template: defaultFormTemplate,
		policy:   bluemonday.UGCPolicy(),
		logger:   slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Add registers a definition, replacing any form with the same id.
func (c *Catalog) Add(def Definition) error {
	if def.ID <= 0 {
		return fmt.Errorf("forms: definition %q needs a positive id", def.Title)
	}
	names := make(map[string]struct{}, len(def.Fields))
	for idx, field := range def.Fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return fmt.Errorf("forms: form %d field %d has no name", def.ID, idx)
		}
		if _, dup := names[name]; dup {
			return fmt.Errorf("forms: form %d declares field %q twice", def.ID, name)
		}
		names[name] = struct{}{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forms[def.ID] = def
	return nil
}

// Load parses a YAML catalog document ("forms: [...]") and adds every form.
func (c *Catalog) Load(data []byte) error {
	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("forms: parse catalog: %w", err)
	}
	for _, def := range doc.Forms {
		if err := c.Add(def); err != nil {
			return err
		}
	}
	return nil
}

// LoadFS reads and loads a catalog file from fsys.
func (c *Catalog) LoadFS(fsys fs.FS, path string) error {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("forms: read %s: %w", path, err)
	}
	return c.Load(data)
}

// IDs returns the registered form ids in ascending order.
func (c *Catalog) IDs() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int64, 0, len(c.forms))
	for id := range c.forms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type fieldView struct {
	Field
	ID       string
	Value    string
	TabIndex int
	Textarea bool
	Select   bool
}

// RenderForm implements Renderer. Inactive forms render as an empty string
// unless opts.DisplayInactive is set.
func (c *Catalog) RenderForm(ctx context.Context, id int64, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.RLock()
	def, ok := c.forms[id]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("forms: form %d: %w", id, ErrFormNotFound)
	}
	if !def.IsActive() && !opts.DisplayInactive {
		c.logger.DebugContext(ctx, "inactive form skipped", logfields.FormID(id))
		return "", nil
	}
	if c.engine == nil {
		return "", fmt.Errorf("forms: catalog has no template engine")
	}

	fields := make([]fieldView, 0, len(def.Fields))
	for idx, field := range def.Fields {
		view := fieldView{
			Field:    field,
			ID:       fmt.Sprintf("input_%d_%s", def.ID, field.Name),
			Value:    field.Default,
			Textarea: field.Type == "textarea",
			Select:   field.Type == "select",
		}
		if view.Type == "" {
			view.Type = "text"
		}
		if value, ok := opts.FieldValues[field.Name]; ok {
			view.Value = value
		}
		if opts.TabIndex > 0 {
			view.TabIndex = opts.TabIndex + idx
		}
		fields = append(fields, view)
	}

	submit := def.Submit
	if submit == "" {
		submit = "Submit"
	}
	data := map[string]any{
		"form": map[string]any{
			"id":          def.ID,
			"title":       def.Title,
			"description": c.policy.Sanitize(def.Description),
			"action":      def.Action,
			"submit":      submit,
		},
		"fields":           fields,
		"show_title":       opts.DisplayTitle && def.Title != "",
		"show_description": opts.DisplayDescription && def.Description != "",
		"ajax":             opts.Ajax,
		"submit_tabindex":  submitTabIndex(opts.TabIndex, len(fields)),
	}

	markup, err := c.engine.RenderString(c.template, data)
	if err != nil {
		return "", fmt.Errorf("forms: render form %d: %w", id, err)
	}
	return strings.TrimSpace(markup), nil
}

func submitTabIndex(start, fields int) int {
	if start <= 0 {
		return 0
	}
	return start + fields
}
