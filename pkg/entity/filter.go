package entity

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/abigegg/go-hatch/pkg/content"
)

// DefaultFilterLabel titles the leading "no filter" option.
const DefaultFilterLabel = "Select an option"

// FilterArgs configures FilterOptions.
type FilterArgs struct {
	Taxonomy string
	// Label titles the leading option; DefaultFilterLabel when empty.
	Label string
	// FilterKey is the query parameter carrying the selected term id;
	// "filter_<taxonomy>" when empty.
	FilterKey string
	// ListingPage is the URL the filter links point at.
	ListingPage string
	// Query holds the current request's query values.
	Query url.Values
}

// FilterOption is one entry of a taxonomy filter list.
type FilterOption struct {
	Title  string     `json:"title" yaml:"title"`
	Value  content.ID `json:"value" yaml:"value"`
	Active bool       `json:"active" yaml:"active"`
	Link   string     `json:"link" yaml:"link"`
}

// FilterOptions lists the terms of a taxonomy as filter links, preceded by an
// option that clears the filter. The option matching the current query value
// is marked active; the leading option is active when no filter is set.
func (c *Constructor) FilterOptions(ctx context.Context, args FilterArgs) ([]FilterOption, error) {
	if strings.TrimSpace(args.Taxonomy) == "" {
		return nil, fmt.Errorf("entity: filter options: taxonomy is required")
	}
	if args.Label == "" {
		args.Label = DefaultFilterLabel
	}
	if args.FilterKey == "" {
		args.FilterKey = "filter_" + args.Taxonomy
	}

	active, _ := strconv.ParseInt(strings.TrimSpace(args.Query.Get(args.FilterKey)), 10, 64)

	terms, err := c.GetTerms(ctx, content.TermQuery{Taxonomy: args.Taxonomy})
	if err != nil {
		return nil, err
	}

	first, err := addQueryArg(args.ListingPage, args.FilterKey, 0)
	if err != nil {
		return nil, err
	}
	out := make([]FilterOption, 0, len(terms)+1)
	out = append(out, FilterOption{
		Title:  args.Label,
		Active: active == 0,
		Link:   first,
	})

	for _, term := range terms {
		link, err := addQueryArg(args.ListingPage, args.FilterKey, term.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, FilterOption{
			Title:  term.Name,
			Value:  term.ID,
			Active: active != 0 && content.ID(active) == term.ID,
			Link:   link,
		})
	}
	return out, nil
}

func addQueryArg(page, key string, value content.ID) (string, error) {
	u, err := url.Parse(page)
	if err != nil {
		return "", fmt.Errorf("entity: listing page %q: %w", page, err)
	}
	q := u.Query()
	q.Set(key, strconv.FormatInt(int64(value), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
