// Package sqlstore implements content.Store on SQLite. Custom field values
// are stored as JSON; attachments keep one row per generated size.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abigegg/go-hatch/pkg/content"
	"github.com/abigegg/go-hatch/pkg/media"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY,
	type TEXT NOT NULL DEFAULT 'post',
	status TEXT NOT NULL DEFAULT 'publish',
	title TEXT NOT NULL DEFAULT '',
	slug TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	excerpt TEXT NOT NULL DEFAULT '',
	parent_id INTEGER NOT NULL DEFAULT 0,
	published_at INTEGER NOT NULL DEFAULT 0,
	thumbnail_id INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_posts_type ON posts(type, status);

CREATE TABLE IF NOT EXISTS post_fields (
	post_id INTEGER NOT NULL,
	key TEXT NOT NULL,
	kind TEXT NOT NULL DEFAULT 'text',
	value JSON,
	PRIMARY KEY (post_id, key)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS terms (
	id INTEGER PRIMARY KEY,
	taxonomy TEXT NOT NULL,
	name TEXT NOT NULL,
	slug TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	parent_id INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_terms_taxonomy ON terms(taxonomy);

CREATE TABLE IF NOT EXISTS post_terms (
	post_id INTEGER NOT NULL,
	term_id INTEGER NOT NULL,
	PRIMARY KEY (post_id, term_id)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS attachments (
	id INTEGER PRIMARY KEY,
	file TEXT NOT NULL,
	alt TEXT NOT NULL DEFAULT '',
	width INTEGER NOT NULL DEFAULT 0,
	height INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS attachment_sizes (
	attachment_id INTEGER NOT NULL,
	size TEXT NOT NULL,
	file TEXT NOT NULL,
	width INTEGER NOT NULL DEFAULT 0,
	height INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (attachment_id, size)
) WITHOUT ROWID;
`

// Option customises a Store.
type Option func(*Store)

// WithUploads sets the public base URL and on-disk directory of uploads.
func WithUploads(baseURL, dir string) Option {
	return func(s *Store) {
		s.uploadsURL = strings.TrimRight(baseURL, "/")
		s.uploadsDir = dir
	}
}

// WithPermalinks sets the base URL post and term links are built from.
func WithPermalinks(baseURL string) Option {
	return func(s *Store) {
		s.siteURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is a SQLite-backed content.Store.
type Store struct {
	db         *sql.DB
	uploadsURL string
	uploadsDir string
	siteURL    string
	logger     *slog.Logger
}

var _ content.Store = (*Store)(nil)

// Open opens (creating when needed) the database at dsn and ensures the
// schema exists. Use ":memory:" for a throwaway store.
func Open(dsn string, options ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", dsn, err)
	}
	if dsn == ":memory:" {
		// each pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	s, err := New(db, options...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle and ensures the schema exists.
func New(db *sql.DB, options ...Option) (*Store, error) {
	s := &Store{
		db:         db,
		uploadsURL: "/uploads",
		uploadsDir: "uploads",
		logger:     slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlstore: create schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

const postColumns = `id, type, status, title, slug, content, excerpt, parent_id, published_at`

// Post implements content.Store.
func (s *Store) Post(ctx context.Context, id content.ID) (*content.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, int64(id))
	post, err := s.scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlstore: post %d: %w", id, content.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: post %d: %w", id, err)
	}
	return post, nil
}

// Term implements content.Store.
func (s *Store) Term(ctx context.Context, id content.ID) (*content.Term, error) {
	row := s.db.QueryRowContext(ctx, termSelect+` WHERE t.id = ? GROUP BY t.id`, int64(id))
	term, err := s.scanTerm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlstore: term %d: %w", id, content.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: term %d: %w", id, err)
	}
	return term, nil
}

// ThumbnailID implements content.Store.
func (s *Store) ThumbnailID(ctx context.Context, postID content.ID) (content.ID, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT thumbnail_id FROM posts WHERE id = ?`, int64(postID)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlstore: thumbnail of post %d: %w", postID, err)
	}
	return content.ID(id), nil
}

// Field implements content.Store. Missing fields yield a nil text value.
func (s *Store) Field(ctx context.Context, postID content.ID, key string) (any, content.FieldKind, error) {
	var (
		kind string
		raw  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT kind, value FROM post_fields WHERE post_id = ? AND key = ?`,
		int64(postID), key,
	).Scan(&kind, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, content.FieldText, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("sqlstore: field %q of post %d: %w", key, postID, err)
	}
	if !raw.Valid {
		return nil, content.FieldKind(kind), nil
	}
	var value any
	if err := json.Unmarshal([]byte(raw.String), &value); err != nil {
		return nil, "", fmt.Errorf("sqlstore: decode field %q of post %d: %w", key, postID, err)
	}
	return value, content.FieldKind(kind), nil
}

// QueryPosts implements content.Store.
func (s *Store) QueryPosts(ctx context.Context, q content.PostQuery) ([]*content.Post, error) {
	var (
		where []string
		args  []any
	)
	if q.Type != "" {
		where = append(where, "p.type = ?")
		args = append(args, q.Type)
	}
	switch q.Status {
	case "any":
	case "":
		where = append(where, "p.status = 'publish'")
	default:
		where = append(where, "p.status = ?")
		args = append(args, q.Status)
	}
	if q.TermID != 0 {
		where = append(where, "EXISTS (SELECT 1 FROM post_terms pt WHERE pt.post_id = p.id AND pt.term_id = ?)")
		args = append(args, int64(q.TermID))
	} else if q.Taxonomy != "" {
		where = append(where, "EXISTS (SELECT 1 FROM post_terms pt JOIN terms t ON t.id = pt.term_id WHERE pt.post_id = p.id AND t.taxonomy = ?)")
		args = append(args, q.Taxonomy)
	}

	query := `SELECT ` + prefixed("p.", postColumns) + ` FROM posts p`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch q.OrderBy {
	case "title":
		query += " ORDER BY p.title ASC, p.id ASC"
	case "id":
		query += " ORDER BY p.id ASC"
	default:
		query += " ORDER BY p.published_at DESC, p.id ASC"
	}
	if q.Limit > 0 || q.Offset > 0 {
		limit := q.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query posts: %w", err)
	}
	defer rows.Close()

	var out []*content.Post
	for rows.Next() {
		post, err := s.scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan post: %w", err)
		}
		out = append(out, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: query posts: %w", err)
	}
	return out, nil
}

const termSelect = `SELECT t.id, t.taxonomy, t.name, t.slug, t.description, t.parent_id, COUNT(pt.post_id)
FROM terms t LEFT JOIN post_terms pt ON pt.term_id = t.id`

// QueryTerms implements content.Store.
func (s *Store) QueryTerms(ctx context.Context, q content.TermQuery) ([]*content.Term, error) {
	var (
		where []string
		args  []any
	)
	if q.Taxonomy != "" {
		where = append(where, "t.taxonomy = ?")
		args = append(args, q.Taxonomy)
	}
	if q.OnlyParent {
		where = append(where, "t.parent_id = ?")
		args = append(args, int64(q.ParentID))
	}
	query := termSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " GROUP BY t.id"
	if q.HideEmpty {
		query += " HAVING COUNT(pt.post_id) > 0"
	}
	query += " ORDER BY t.name ASC, t.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query terms: %w", err)
	}
	defer rows.Close()

	var out []*content.Term
	for rows.Next() {
		term, err := s.scanTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan term: %w", err)
		}
		out = append(out, term)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: query terms: %w", err)
	}
	return out, nil
}

// AttachmentSource implements media.Library. Sizes without a generated file
// resolve to the original upload.
func (s *Store) AttachmentSource(id int64, size string) (media.Source, error) {
	file, width, height, resized, err := s.attachmentFile(id, size)
	if err != nil {
		return media.Source{}, err
	}
	return media.Source{
		URL:     s.uploadsURL + "/" + file,
		Width:   width,
		Height:  height,
		Resized: resized,
	}, nil
}

// AttachedFile implements media.Library.
func (s *Store) AttachedFile(id int64, size string) (string, error) {
	file, _, _, _, err := s.attachmentFile(id, size)
	if err != nil {
		return "", err
	}
	return path.Join(s.uploadsDir, file), nil
}

// AttachmentAlt implements media.Library.
func (s *Store) AttachmentAlt(id int64) (string, error) {
	var alt string
	err := s.db.QueryRow(`SELECT alt FROM attachments WHERE id = ?`, id).Scan(&alt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("sqlstore: attachment %d: %w", id, content.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("sqlstore: attachment %d: %w", id, err)
	}
	return alt, nil
}

func (s *Store) attachmentFile(id int64, size string) (string, int, int, bool, error) {
	var (
		file          string
		width, height int
	)
	err := s.db.QueryRow(
		`SELECT file, width, height FROM attachment_sizes WHERE attachment_id = ? AND size = ?`, id, size,
	).Scan(&file, &width, &height)
	if err == nil {
		return file, width, height, size != media.SizeFull, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", 0, 0, false, fmt.Errorf("sqlstore: attachment %d size %s: %w", id, size, err)
	}

	err = s.db.QueryRow(`SELECT file, width, height FROM attachments WHERE id = ?`, id).Scan(&file, &width, &height)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, 0, false, fmt.Errorf("sqlstore: attachment %d: %w", id, content.ErrNotFound)
	}
	if err != nil {
		return "", 0, 0, false, fmt.Errorf("sqlstore: attachment %d: %w", id, err)
	}
	return file, width, height, false, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanPost(row scanner) (*content.Post, error) {
	var (
		post      content.Post
		id, pid   int64
		published int64
	)
	if err := row.Scan(&id, &post.Type, &post.Status, &post.Title, &post.Slug, &post.Content, &post.Excerpt, &pid, &published); err != nil {
		return nil, err
	}
	post.ID = content.ID(id)
	post.ParentID = content.ID(pid)
	if published > 0 {
		post.Date = time.Unix(published, 0).UTC()
	}
	post.Link = s.permalink(post.Type, post.Slug, post.ID)
	return &post, nil
}

func (s *Store) scanTerm(row scanner) (*content.Term, error) {
	var (
		term    content.Term
		id, pid int64
	)
	if err := row.Scan(&id, &term.Taxonomy, &term.Name, &term.Slug, &term.Description, &pid, &term.Count); err != nil {
		return nil, err
	}
	term.ID = content.ID(id)
	term.ParentID = content.ID(pid)
	term.Link = s.siteURL + "/" + term.Taxonomy + "/" + term.Slug + "/"
	return &term, nil
}

func (s *Store) permalink(postType, slug string, id content.ID) string {
	if slug == "" {
		return fmt.Sprintf("%s/?p=%d", s.siteURL, id)
	}
	if postType == "page" || postType == "post" {
		return s.siteURL + "/" + slug + "/"
	}
	return s.siteURL + "/" + postType + "/" + slug + "/"
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = prefix + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
