// Package memory implements content.Store over plain maps. It backs tests and
// examples, and is a reasonable host for small static sites.
package memory

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/abigegg/go-hatch/pkg/content"
	"github.com/abigegg/go-hatch/pkg/media"
)

// Field is a stored custom-field value with its kind.
type Field struct {
	Kind  content.FieldKind
	Value any
}

// Attachment is a stored media file with optional resized variants keyed by
// size name.
type Attachment struct {
	ID    content.ID
	File  string
	Alt   string
	Sizes map[string]media.Source
	Files map[string]string
}

// Store is a concurrency-safe in-memory content.Store.
type Store struct {
	mu          sync.RWMutex
	uploadsURL  string
	uploadsDir  string
	posts       map[content.ID]*content.Post
	terms       map[content.ID]*content.Term
	fields      map[content.ID]map[string]Field
	thumbnails  map[content.ID]content.ID
	attachments map[content.ID]Attachment
	postTerms   map[content.ID][]content.ID
}

var _ content.Store = (*Store)(nil)

// Option customises the store.
type Option func(*Store)

// WithUploads sets the base URL and directory attachments resolve against.
func WithUploads(baseURL, dir string) Option {
	return func(s *Store) {
		s.uploadsURL = strings.TrimRight(baseURL, "/")
		s.uploadsDir = dir
	}
}

// New returns an empty store.
func New(options ...Option) *Store {
	s := &Store{
		uploadsURL:  "/uploads",
		uploadsDir:  "uploads",
		posts:       make(map[content.ID]*content.Post),
		terms:       make(map[content.ID]*content.Term),
		fields:      make(map[content.ID]map[string]Field),
		thumbnails:  make(map[content.ID]content.ID),
		attachments: make(map[content.ID]Attachment),
		postTerms:   make(map[content.ID][]content.ID),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// PutPost inserts or replaces a post.
func (s *Store) PutPost(post content.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if post.Status == "" {
		post.Status = "publish"
	}
	s.posts[post.ID] = post.Clone()
}

// PutTerm inserts or replaces a term.
func (s *Store) PutTerm(term content.Term) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms[term.ID] = term.Clone()
}

// SetField stores a custom field on a post.
func (s *Store) SetField(postID content.ID, key string, kind content.FieldKind, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fields[postID] == nil {
		s.fields[postID] = make(map[string]Field)
	}
	s.fields[postID][key] = Field{Kind: kind, Value: value}
}

// SetThumbnail links a featured image to a post.
func (s *Store) SetThumbnail(postID, attachmentID content.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thumbnails[postID] = attachmentID
}

// PutAttachment inserts or replaces an attachment.
func (s *Store) PutAttachment(att Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments[att.ID] = att
}

// AssignTerms attaches terms to a post.
func (s *Store) AssignTerms(postID content.ID, termIDs ...content.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postTerms[postID] = append(s.postTerms[postID], termIDs...)
}

// Post implements content.Store.
func (s *Store) Post(_ context.Context, id content.ID) (*content.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("memory: post %d: %w", id, content.ErrNotFound)
	}
	return post.Clone(), nil
}

// Term implements content.Store.
func (s *Store) Term(_ context.Context, id content.ID) (*content.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	term, ok := s.terms[id]
	if !ok {
		return nil, fmt.Errorf("memory: term %d: %w", id, content.ErrNotFound)
	}
	return term.Clone(), nil
}

// ThumbnailID implements content.Store.
func (s *Store) ThumbnailID(_ context.Context, postID content.ID) (content.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thumbnails[postID], nil
}

// Field implements content.Store. Missing fields yield a nil text value.
func (s *Store) Field(_ context.Context, postID content.ID, key string) (any, content.FieldKind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	field, ok := s.fields[postID][key]
	if !ok {
		return nil, content.FieldText, nil
	}
	return field.Value, field.Kind, nil
}

// QueryPosts implements content.Store.
func (s *Store) QueryPosts(_ context.Context, q content.PostQuery) ([]*content.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := q.Status
	if status == "" {
		status = "publish"
	}

	var out []*content.Post
	for _, post := range s.posts {
		if q.Type != "" && post.Type != q.Type {
			continue
		}
		if status != "any" && post.Status != status {
			continue
		}
		if q.TermID != 0 && !s.hasTerm(post.ID, q.TermID) {
			continue
		}
		if q.Taxonomy != "" && q.TermID == 0 && !s.hasTaxonomy(post.ID, q.Taxonomy) {
			continue
		}
		out = append(out, post.Clone())
	}

	sortPosts(out, q.OrderBy)
	return paginate(out, q.Offset, q.Limit), nil
}

// QueryTerms implements content.Store.
func (s *Store) QueryTerms(_ context.Context, q content.TermQuery) ([]*content.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*content.Term
	for _, term := range s.terms {
		if q.Taxonomy != "" && term.Taxonomy != q.Taxonomy {
			continue
		}
		if q.HideEmpty && term.Count == 0 {
			continue
		}
		if q.OnlyParent && term.ParentID != q.ParentID {
			continue
		}
		out = append(out, term.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// AttachmentSource implements media.Library. Unknown sizes fall back to the
// original upload.
func (s *Store) AttachmentSource(id int64, size string) (media.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	att, ok := s.attachments[content.ID(id)]
	if !ok {
		return media.Source{}, fmt.Errorf("memory: attachment %d: %w", id, content.ErrNotFound)
	}
	if src, ok := att.Sizes[size]; ok {
		src.Resized = size != media.SizeFull
		return src, nil
	}
	if src, ok := att.Sizes[media.SizeFull]; ok {
		return src, nil
	}
	return media.Source{URL: s.uploadsURL + "/" + att.File}, nil
}

// AttachedFile implements media.Library.
func (s *Store) AttachedFile(id int64, size string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	att, ok := s.attachments[content.ID(id)]
	if !ok {
		return "", fmt.Errorf("memory: attachment %d: %w", id, content.ErrNotFound)
	}
	if file, ok := att.Files[size]; ok {
		return path.Join(s.uploadsDir, file), nil
	}
	return path.Join(s.uploadsDir, att.File), nil
}

// AttachmentAlt implements media.Library.
func (s *Store) AttachmentAlt(id int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	att, ok := s.attachments[content.ID(id)]
	if !ok {
		return "", fmt.Errorf("memory: attachment %d: %w", id, content.ErrNotFound)
	}
	return att.Alt, nil
}

func (s *Store) hasTerm(postID, termID content.ID) bool {
	for _, id := range s.postTerms[postID] {
		if id == termID {
			return true
		}
	}
	return false
}

func (s *Store) hasTaxonomy(postID content.ID, taxonomy string) bool {
	for _, id := range s.postTerms[postID] {
		if term, ok := s.terms[id]; ok && term.Taxonomy == taxonomy {
			return true
		}
	}
	return false
}

func sortPosts(posts []*content.Post, orderBy string) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		switch orderBy {
		case "title":
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		case "id":
		default:
			if !a.Date.Equal(b.Date) {
				return a.Date.After(b.Date)
			}
		}
		return a.ID < b.ID
	})
}

func paginate(posts []*content.Post, offset, limit int) []*content.Post {
	if offset > 0 {
		if offset >= len(posts) {
			return nil
		}
		posts = posts[offset:]
	}
	if limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}
	return posts
}
