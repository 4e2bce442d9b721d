package main

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abigegg/go-hatch/pkg/content"
	"github.com/abigegg/go-hatch/pkg/entity"
	"github.com/abigegg/go-hatch/pkg/session"
)

// pageRequest describes what a page needs in its context.
type pageRequest struct {
	PostID int64
	TermID int64
	// Fields are custom fields of the current post copied into the context.
	Fields []string
	Values map[string]any
	// Forms maps context keys to form ids.
	Forms map[string]int64
	// ListType adds published posts of that type under "posts".
	ListType string
	// Filter adds taxonomy filter options under "filters" and narrows
	// "posts" to the selected term.
	Filter  string
	Query   url.Values
	Listing string
}

// prepare builds the request context and a session populated for req.
func (a *app) prepare(ctx context.Context, req pageRequest) (context.Context, *session.Session, error) {
	if req.PostID > 0 {
		ctx = content.WithCurrentPost(ctx, content.ID(req.PostID))
	}
	if req.TermID > 0 {
		ctx = content.WithCurrentTerm(ctx, content.ID(req.TermID))
	}

	s := a.hatch.NewSession()
	if req.PostID > 0 {
		if _, err := a.hatch.Post(ctx, nil); err != nil {
			return ctx, nil, err
		}
		if err := s.AddFields(ctx, req.Fields...); err != nil {
			return ctx, nil, err
		}
	}
	if req.TermID > 0 {
		if err := s.AddContext(ctx, "term", func(ctx context.Context) (any, error) {
			return a.hatch.Term(ctx, nil)
		}); err != nil {
			return ctx, nil, err
		}
	}

	if req.ListType != "" {
		query := content.PostQuery{Type: req.ListType}
		if req.Filter != "" {
			key := "filter_" + req.Filter
			if id, err := strconv.ParseInt(req.Query.Get(key), 10, 64); err == nil && id > 0 {
				query.TermID = content.ID(id)
			}
		}
		if err := s.AddContext(ctx, "posts", func(ctx context.Context) (any, error) {
			return a.hatch.GetPosts(ctx, query)
		}); err != nil {
			return ctx, nil, err
		}
	}
	if req.Filter != "" {
		args := entity.FilterArgs{Taxonomy: req.Filter, Query: req.Query, ListingPage: req.Listing}
		if err := s.AddContext(ctx, "filters", func(ctx context.Context) (any, error) {
			return a.hatch.FilterOptions(ctx, args)
		}); err != nil {
			return ctx, nil, err
		}
	}

	keys := make([]string, 0, len(req.Forms))
	for key := range req.Forms {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		id := req.Forms[key]
		if err := s.AddFormContext(ctx, key, func(context.Context) (int64, error) { return id, nil }); err != nil {
			return ctx, nil, err
		}
	}

	for key, value := range req.Values {
		s.AddValue(key, value)
	}
	return ctx, s, nil
}

// pageFlags are the flags shared by render and dump.
type pageFlags struct {
	post   int64
	term   int64
	fields []string
	set    []string
	forms  []string
	list   string
	filter string
	query  string
}

func (f *pageFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Int64Var(&f.post, "post", 0, "id of the current post")
	flags.Int64Var(&f.term, "term", 0, "id of the current term")
	flags.StringSliceVar(&f.fields, "field", nil, "custom field of the current post to add to the context (repeatable)")
	flags.StringArrayVar(&f.set, "set", nil, "context value as key=value; the value is parsed as YAML (repeatable)")
	flags.StringArrayVar(&f.forms, "form", nil, "embed a form as key=id (repeatable)")
	flags.StringVar(&f.list, "list", "", "add published posts of this type under \"posts\"")
	flags.StringVar(&f.filter, "filter", "", "add filter options for this taxonomy under \"filters\"")
	flags.StringVar(&f.query, "query", "", "query string of the simulated request")
}

func (f *pageFlags) request() (pageRequest, error) {
	req := pageRequest{
		PostID:   f.post,
		TermID:   f.term,
		Fields:   f.fields,
		ListType: f.list,
		Filter:   f.filter,
	}
	query, err := url.ParseQuery(strings.TrimPrefix(f.query, "?"))
	if err != nil {
		return req, fmt.Errorf("--query: %w", err)
	}
	req.Query = query

	if len(f.set) > 0 {
		req.Values = make(map[string]any, len(f.set))
		for _, pair := range f.set {
			key, raw, ok := strings.Cut(pair, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return req, fmt.Errorf("--set %q: expected key=value", pair)
			}
			var value any
			if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
				return req, fmt.Errorf("--set %q: %w", pair, err)
			}
			req.Values[strings.TrimSpace(key)] = value
		}
	}
	if len(f.forms) > 0 {
		req.Forms = make(map[string]int64, len(f.forms))
		for _, pair := range f.forms {
			key, raw, ok := strings.Cut(pair, "=")
			id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if !ok || strings.TrimSpace(key) == "" || err != nil {
				return req, fmt.Errorf("--form %q: expected key=id", pair)
			}
			req.Forms[strings.TrimSpace(key)] = id
		}
	}
	return req, nil
}
