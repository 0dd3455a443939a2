// Package markdown converts Obsidian Markdown notes into Confluence storage
// format using goldmark.
//
// Standard CommonMark/GFM constructs render as XHTML. Code blocks and images
// are rewritten into Confluence macros. Obsidian embeds (![[...]]) are left as
// literal text so storage.ConvertObsidianEmbeds can rewrite them afterwards.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/yourorg/confluencectl/internal/ctxlog"
)

// storageRendererPriority outranks goldmark's HTML renderer (1000).
const storageRendererPriority = 100

// Document is a converted note.
type Document struct {
	FrontMatter FrontMatter
	Storage     string
}

// FrontMatter holds the note metadata the converter understands.
type FrontMatter struct {
	Title  string         `yaml:"title"`
	Tags   []string       `yaml:"tags"`
	Custom map[string]any `yaml:",inline"`
}

// Converter renders Markdown into storage format. It is safe for concurrent use.
type Converter struct {
	engine goldmark.Markdown
}

// NewConverter builds a converter with GFM tables, strikethrough and
// autolinks enabled. Single newlines become <br />, matching Obsidian's
// default reading view. Raw HTML passes through with void tags closed.
func NewConverter() *Converter {
	engine := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			extension.Linkify,
		),
		goldmark.WithRendererOptions(
			gmhtml.WithXHTML(),
			gmhtml.WithHardWraps(),
			gmhtml.WithUnsafe(),
			renderer.WithNodeRenderers(
				util.Prioritized(newStorageRenderer(), storageRendererPriority),
			),
		),
	)
	return &Converter{engine: engine}
}

// Convert strips YAML front matter from source and renders the body. A
// leading block that does not decode as front matter (a note opening with a
// --- rule) is rendered as part of the body.
func (c *Converter) Convert(ctx context.Context, source []byte) (Document, error) {
	var meta FrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("front matter not decoded, rendering it as text", "error", err)
		meta, body = FrontMatter{}, source
	}

	var buf bytes.Buffer
	if err := c.engine.Convert(body, &buf); err != nil {
		return Document{}, fmt.Errorf("render storage format: %w", err)
	}

	meta.Title = strings.TrimSpace(meta.Title)
	return Document{FrontMatter: meta, Storage: buf.String()}, nil
}
