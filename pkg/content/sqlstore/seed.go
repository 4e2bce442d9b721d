package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abigegg/go-hatch/pkg/content"
)

// SeedFile is the YAML document accepted by Seed.
type SeedFile struct {
	Posts       []SeedPost       `yaml:"posts"`
	Terms       []SeedTerm       `yaml:"terms"`
	Attachments []SeedAttachment `yaml:"attachments"`
}

// SeedPost describes one post and its custom fields.
type SeedPost struct {
	ID        int64                `yaml:"id"`
	Type      string               `yaml:"type"`
	Status    string               `yaml:"status"`
	Title     string               `yaml:"title"`
	Slug      string               `yaml:"slug"`
	Content   string               `yaml:"content"`
	Excerpt   string               `yaml:"excerpt"`
	Parent    int64                `yaml:"parent"`
	Date      time.Time            `yaml:"date"`
	Thumbnail int64                `yaml:"thumbnail"`
	Terms     []int64              `yaml:"terms"`
	Fields    map[string]SeedField `yaml:"fields"`
}

// SeedField is a custom field value. A bare scalar or list is stored as a
// text field; the mapping form names the kind explicitly.
type SeedField struct {
	Kind  content.FieldKind
	Value any
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *SeedField) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode && hasKey(node, "kind") {
		var explicit struct {
			Kind  content.FieldKind `yaml:"kind"`
			Value any               `yaml:"value"`
		}
		if err := node.Decode(&explicit); err != nil {
			return err
		}
		f.Kind = explicit.Kind
		f.Value = explicit.Value
		return nil
	}
	f.Kind = content.FieldText
	return node.Decode(&f.Value)
}

// SeedTerm describes one taxonomy term.
type SeedTerm struct {
	ID          int64  `yaml:"id"`
	Taxonomy    string `yaml:"taxonomy"`
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	Parent      int64  `yaml:"parent"`
}

// SeedAttachment describes an uploaded file and its generated sizes.
type SeedAttachment struct {
	ID     int64               `yaml:"id"`
	File   string              `yaml:"file"`
	Alt    string              `yaml:"alt"`
	Width  int                 `yaml:"width"`
	Height int                 `yaml:"height"`
	Sizes  map[string]SeedSize `yaml:"sizes"`
}

// SeedSize is one generated rendition of an attachment.
type SeedSize struct {
	File   string `yaml:"file"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// SeedCounts reports how many rows Seed wrote.
type SeedCounts struct {
	Posts       int
	Terms       int
	Attachments int
	Fields      int
}

// Seed decodes a YAML seed document from r and upserts it in one transaction.
func (s *Store) Seed(ctx context.Context, r io.Reader) (SeedCounts, error) {
	var doc SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return SeedCounts{}, fmt.Errorf("sqlstore: decode seed: %w", err)
	}
	return s.Apply(ctx, doc)
}

// SeedFS seeds from a file inside fsys.
func (s *Store) SeedFS(ctx context.Context, fsys fs.FS, name string) (SeedCounts, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return SeedCounts{}, fmt.Errorf("sqlstore: open seed %s: %w", name, err)
	}
	defer f.Close()
	return s.Seed(ctx, f)
}

// Apply upserts an already decoded seed document.
func (s *Store) Apply(ctx context.Context, doc SeedFile) (counts SeedCounts, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("sqlstore: begin seed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, att := range doc.Attachments {
		if err = insertAttachment(ctx, tx, att); err != nil {
			return counts, err
		}
		counts.Attachments++
	}
	for _, term := range doc.Terms {
		if err = insertTerm(ctx, tx, term); err != nil {
			return counts, err
		}
		counts.Terms++
	}
	for _, post := range doc.Posts {
		var fields int
		if fields, err = insertPost(ctx, tx, post); err != nil {
			return counts, err
		}
		counts.Posts++
		counts.Fields += fields
	}

	if err = tx.Commit(); err != nil {
		return counts, fmt.Errorf("sqlstore: commit seed: %w", err)
	}
	s.logger.Debug("seeded store",
		"posts", counts.Posts,
		"terms", counts.Terms,
		"attachments", counts.Attachments,
		"fields", counts.Fields,
	)
	return counts, nil
}

func insertAttachment(ctx context.Context, tx *sql.Tx, att SeedAttachment) error {
	if att.ID <= 0 || att.File == "" {
		return fmt.Errorf("sqlstore: attachment needs an id and a file (id=%d)", att.ID)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO attachments (id, file, alt, width, height) VALUES (?, ?, ?, ?, ?)`,
		att.ID, att.File, att.Alt, att.Width, att.Height,
	); err != nil {
		return fmt.Errorf("sqlstore: insert attachment %d: %w", att.ID, err)
	}
	for size, rendition := range att.Sizes {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO attachment_sizes (attachment_id, size, file, width, height) VALUES (?, ?, ?, ?, ?)`,
			att.ID, size, rendition.File, rendition.Width, rendition.Height,
		); err != nil {
			return fmt.Errorf("sqlstore: insert attachment %d size %s: %w", att.ID, size, err)
		}
	}
	return nil
}

func insertTerm(ctx context.Context, tx *sql.Tx, term SeedTerm) error {
	if term.ID <= 0 || term.Taxonomy == "" || term.Name == "" {
		return fmt.Errorf("sqlstore: term needs an id, taxonomy and name (id=%d)", term.ID)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO terms (id, taxonomy, name, slug, description, parent_id) VALUES (?, ?, ?, ?, ?, ?)`,
		term.ID, term.Taxonomy, term.Name, term.Slug, term.Description, term.Parent,
	); err != nil {
		return fmt.Errorf("sqlstore: insert term %d: %w", term.ID, err)
	}
	return nil
}

func insertPost(ctx context.Context, tx *sql.Tx, post SeedPost) (int, error) {
	if post.ID <= 0 {
		return 0, fmt.Errorf("sqlstore: post needs a positive id (id=%d)", post.ID)
	}
	postType := post.Type
	if postType == "" {
		postType = "post"
	}
	status := post.Status
	if status == "" {
		status = "publish"
	}
	var published int64
	if !post.Date.IsZero() {
		published = post.Date.Unix()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO posts (id, type, status, title, slug, content, excerpt, parent_id, published_at, thumbnail_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID, postType, status, post.Title, post.Slug, post.Content, post.Excerpt, post.Parent, published, post.Thumbnail,
	); err != nil {
		return 0, fmt.Errorf("sqlstore: insert post %d: %w", post.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_terms WHERE post_id = ?`, post.ID); err != nil {
		return 0, fmt.Errorf("sqlstore: clear terms of post %d: %w", post.ID, err)
	}
	for _, termID := range post.Terms {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO post_terms (post_id, term_id) VALUES (?, ?)`, post.ID, termID,
		); err != nil {
			return 0, fmt.Errorf("sqlstore: assign term %d to post %d: %w", termID, post.ID, err)
		}
	}

	for key, field := range post.Fields {
		if err := upsertField(ctx, tx, content.ID(post.ID), key, field.Kind, field.Value); err != nil {
			return 0, err
		}
	}
	return len(post.Fields), nil
}

// SetField stores a custom field on a post.
func (s *Store) SetField(ctx context.Context, postID content.ID, key string, kind content.FieldKind, value any) error {
	return upsertField(ctx, s.db, postID, key, kind, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertField(ctx context.Context, db execer, postID content.ID, key string, kind content.FieldKind, value any) error {
	if kind == "" {
		kind = content.FieldText
	}
	var raw any
	if value != nil {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("sqlstore: encode field %q of post %d: %w", key, postID, err)
		}
		raw = string(encoded)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO post_fields (post_id, key, kind, value) VALUES (?, ?, ?, ?)`,
		int64(postID), key, string(kind), raw,
	); err != nil {
		return fmt.Errorf("sqlstore: store field %q of post %d: %w", key, postID, err)
	}
	return nil
}

func hasKey(node *yaml.Node, key string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}
