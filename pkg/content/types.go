package content

import (
	"time"

	"github.com/abigegg/go-hatch/pkg/media"
)

// ID identifies a post, term or attachment in the host framework.
type ID int64

// Identifier is implemented by records that expose their identifier.
type Identifier interface {
	EntityID() ID
}

// Post is the host's native post record plus the extras Hatch attaches.
type Post struct {
	ID       ID        `json:"id" yaml:"id"`
	Type     string    `json:"type" yaml:"type"`
	Status   string    `json:"status" yaml:"status"`
	Title    string    `json:"title" yaml:"title"`
	Slug     string    `json:"slug" yaml:"slug"`
	Content  string    `json:"content" yaml:"content"`
	Excerpt  string    `json:"excerpt" yaml:"excerpt"`
	Link     string    `json:"link" yaml:"link"`
	ParentID ID        `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Date     time.Time `json:"date" yaml:"date"`

	// Thumbnail is set when the post has a featured image.
	Thumbnail *media.Image `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`

	// Attrs carries attributes added by transformers.
	Attrs map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// EntityID implements Identifier.
func (p *Post) EntityID() ID {
	if p == nil {
		return 0
	}
	return p.ID
}

// Set stores a custom attribute on the post.
func (p *Post) Set(key string, value any) {
	if p.Attrs == nil {
		p.Attrs = make(map[string]any)
	}
	p.Attrs[key] = value
}

// Get returns a custom attribute previously stored with Set.
func (p *Post) Get(key string) any {
	if p == nil || p.Attrs == nil {
		return nil
	}
	return p.Attrs[key]
}

// Clone returns a shallow copy with its own Attrs map.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	out := *p
	if p.Attrs != nil {
		out.Attrs = make(map[string]any, len(p.Attrs))
		for key, value := range p.Attrs {
			out.Attrs[key] = value
		}
	}
	return &out
}

// Term is the host's native taxonomy term record.
type Term struct {
	ID          ID     `json:"id" yaml:"id"`
	Taxonomy    string `json:"taxonomy" yaml:"taxonomy"`
	Name        string `json:"name" yaml:"name"`
	Slug        string `json:"slug" yaml:"slug"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	ParentID    ID     `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Count       int    `json:"count" yaml:"count"`
	Link        string `json:"link" yaml:"link"`

	Attrs map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// EntityID implements Identifier.
func (t *Term) EntityID() ID {
	if t == nil {
		return 0
	}
	return t.ID
}

// Set stores a custom attribute on the term.
func (t *Term) Set(key string, value any) {
	if t.Attrs == nil {
		t.Attrs = make(map[string]any)
	}
	t.Attrs[key] = value
}

// Get returns a custom attribute previously stored with Set.
func (t *Term) Get(key string) any {
	if t == nil || t.Attrs == nil {
		return nil
	}
	return t.Attrs[key]
}

// Clone returns a shallow copy with its own Attrs map.
func (t *Term) Clone() *Term {
	if t == nil {
		return nil
	}
	out := *t
	if t.Attrs != nil {
		out.Attrs = make(map[string]any, len(t.Attrs))
		for key, value := range t.Attrs {
			out.Attrs[key] = value
		}
	}
	return &out
}

// PostQuery selects posts from the store. Zero values mean "any".
type PostQuery struct {
	Type     string
	Status   string
	Taxonomy string
	TermID   ID
	Limit    int
	Offset   int
	// OrderBy is one of "date" (default, newest first), "title" or "id".
	OrderBy string
}

// TermQuery selects terms from the store.
type TermQuery struct {
	Taxonomy   string
	HideEmpty  bool
	ParentID   ID
	OnlyParent bool
}
