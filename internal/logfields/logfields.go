package logfields

import "log/slog"

// Canonical log field names shared by the hatch packages and the CLI.
const (
	KeyTemplate   = "template"
	KeyPostID     = "post_id"
	KeyPostType   = "post_type"
	KeyTermID     = "term_id"
	KeyTaxonomy   = "taxonomy"
	KeyFormID     = "form_id"
	KeyContextKey = "context_key"
	KeyFieldKey   = "field"
	KeyFieldKind  = "field_kind"
	KeyDatabase   = "database"
	KeyAddr       = "addr"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func Template(name string) slog.Attr { return slog.String(KeyTemplate, name) }
func PostID(id int64) slog.Attr { return slog.Int64(KeyPostID, id) }
func PostType(t string) slog.Attr { return slog.String(KeyPostType, t) }
func TermID(id int64) slog.Attr { return slog.Int64(KeyTermID, id) }
func Taxonomy(name string) slog.Attr { return slog.String(KeyTaxonomy, name) }
func FormID(id int64) slog.Attr { return slog.Int64(KeyFormID, id) }
func ContextKey(key string) slog.Attr { return slog.String(KeyContextKey, key) }
func FieldKey(key string) slog.Attr { return slog.String(KeyFieldKey, key) }
func FieldKind(kind string) slog.Attr { return slog.String(KeyFieldKind, kind) }
func Database(dsn string) slog.Attr { return slog.String(KeyDatabase, dsn) }
func Addr(addr string) slog.Attr { return slog.String(KeyAddr, addr) }
func Method(m string) slog.Attr { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr { return slog.Int(KeyStatus, code) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
