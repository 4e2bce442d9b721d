package media

import (
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"
)

// DefaultSize is the display size used when an accessor is called without one.
const DefaultSize = "thumbnail"

// SizeFull names the original upload.
const SizeFull = "full"

// Source describes a resolved attachment file at a given display size.
type Source struct {
	URL     string
	Width   int
	Height  int
	Resized bool
}

// Library is the host media subsystem. Implementations resolve attachment
// files, URLs and alt text; Image only delegates to it.
type Library interface {
	AttachmentSource(id int64, size string) (Source, error)
	AttachedFile(id int64, size string) (string, error)
	AttachmentAlt(id int64) (string, error)
}

// Image wraps a single attachment identifier. All accessors are computed on
// demand and accept an optional display size (DefaultSize when omitted).
type Image struct {
	id  int64
	lib Library
}

// New wraps the attachment id using the supplied library.
func New(lib Library, id int64) *Image {
	return &Image{id: id, lib: lib}
}

// ID returns the wrapped attachment identifier.
func (i *Image) ID() int64 {
	if i == nil {
		return 0
	}
	return i.id
}

// Src returns the source URL of the image at the requested size.
func (i *Image) Src(size ...string) (string, error) {
	src, err := i.source(pickSize(size))
	if err != nil {
		return "", err
	}
	return src.URL, nil
}

// Path returns the location of the image file on disk.
func (i *Image) Path(size ...string) (string, error) {
	if err := i.check(); err != nil {
		return "", err
	}
	path, err := i.lib.AttachedFile(i.id, pickSize(size))
	if err != nil {
		return "", fmt.Errorf("media: attached file %d: %w", i.id, err)
	}
	return path, nil
}

// Alt returns the alt text stored for the attachment.
func (i *Image) Alt() (string, error) {
	if err := i.check(); err != nil {
		return "", err
	}
	alt, err := i.lib.AttachmentAlt(i.id)
	if err != nil {
		return "", fmt.Errorf("media: alt text %d: %w", i.id, err)
	}
	return alt, nil
}

// Img renders an <img> element for the requested size.
func (i *Image) Img(size ...string) (string, error) {
	return i.ImgWith(pickSize(size), nil)
}

// ImgWith renders an <img> element with extra attributes. Attributes named
// src, width or height are ignored; alt overrides the stored alt text.
func (i *Image) ImgWith(size string, attrs map[string]string) (string, error) {
	size = pickSize([]string{size})
	src, err := i.source(size)
	if err != nil {
		return "", err
	}
	alt, err := i.Alt()
	if err != nil {
		return "", err
	}
	return Tag(src, alt, size, attrs), nil
}

// MarshalJSON exposes the attachment id so dumped contexts stay readable.
func (i *Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int64{"id": i.ID()})
}

// MarshalYAML mirrors MarshalJSON for YAML encoders.
func (i *Image) MarshalYAML() (any, error) {
	return map[string]int64{"id": i.ID()}, nil
}

func (i *Image) String() string {
	return fmt.Sprintf("image(%d)", i.ID())
}

func (i *Image) source(size string) (Source, error) {
	if err := i.check(); err != nil {
		return Source{}, err
	}
	src, err := i.lib.AttachmentSource(i.id, size)
	if err != nil {
		return Source{}, fmt.Errorf("media: attachment source %d (%s): %w", i.id, size, err)
	}
	return src, nil
}

func (i *Image) check() error {
	if i == nil || i.lib == nil {
		return fmt.Errorf("media: image has no library")
	}
	return nil
}

func pickSize(size []string) string {
	if len(size) == 0 {
		return DefaultSize
	}
	if trimmed := strings.TrimSpace(size[0]); trimmed != "" {
		return trimmed
	}
	return DefaultSize
}

// Tag builds the <img> markup for a resolved source. Attribute values are
// HTML-escaped and emitted in a stable order.
func Tag(src Source, alt, size string, attrs map[string]string) string {
	var b strings.Builder
	b.WriteString(`<img src="`)
	b.WriteString(html.EscapeString(src.URL))
	b.WriteString(`"`)
	if src.Width > 0 {
		fmt.Fprintf(&b, ` width="%d"`, src.Width)
	}
	if src.Height > 0 {
		fmt.Fprintf(&b, ` height="%d"`, src.Height)
	}

	merged := map[string]string{
		"alt":   alt,
		"class": "attachment-" + size + " size-" + size,
	}
	for key, value := range attrs {
		key = strings.ToLower(strings.TrimSpace(key))
		switch key {
		case "", "src", "width", "height":
			continue
		}
		merged[key] = value
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.WriteString(" ")
		b.WriteString(html.EscapeString(key))
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(merged[key]))
		b.WriteString(`"`)
	}
	b.WriteString(" />")
	return b.String()
}
