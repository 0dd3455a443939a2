// Package htmlexport renders an Obsidian note into a self-contained HTML page
// for local preview. Embedded images are inlined as data URIs and mermaid
// fences become diagram containers rendered client side.
package htmlexport

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cbroglie/mustache"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/yourorg/confluencectl/internal/textenc"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{title}}</title>
  <script src="https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"></script>
  <script>
    mermaid.initialize({ startOnLoad: true });
  </script>
</head>
<body>
{{{body}}}
</body>
</html>
`

var (
	embedPattern   = regexp.MustCompile(`!\[\[(.*?)\]\]`)
	mermaidPattern = regexp.MustCompile("(?s)```mermaid\\s*\\n(.*?)```")
)

// Result describes a finished export.
type Result struct {
	OutputPath    string
	MissingImages []string
	InlinedImages int
}

// Exporter converts notes to HTML pages.
type Exporter struct {
	engine goldmark.Markdown
	page   *mustache.Template
}

// New builds an Exporter.
func New() (*Exporter, error) {
	page, err := mustache.ParseString(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	engine := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	return &Exporter{engine: engine, page: page}, nil
}

// OutputPath returns the HTML path written for a note.
func OutputPath(mdPath string) string {
	return strings.TrimSuffix(mdPath, filepath.Ext(mdPath)) + ".html"
}

// ExportFile renders mdPath and writes the page next to it.
func (e *Exporter) ExportFile(mdPath string) (Result, error) {
	source, _, err := textenc.ReadFile(mdPath)
	if err != nil {
		return Result{}, err
	}

	html, res, err := e.Render(source, filepath.Dir(mdPath), strings.TrimSuffix(filepath.Base(mdPath), filepath.Ext(mdPath)))
	if err != nil {
		return Result{}, err
	}

	res.OutputPath = OutputPath(mdPath)
	if err := os.WriteFile(res.OutputPath, []byte(html), 0o644); err != nil { //nolint:gosec // preview output is meant to be world readable
		return Result{}, fmt.Errorf("write html: %w", err)
	}
	return res, nil
}

// Render produces the full HTML page for source. Embedded images are
// resolved relative to baseDir.
func (e *Exporter) Render(source, baseDir, title string) (string, Result, error) {
	var res Result

	md := embedPattern.ReplaceAllStringFunc(source, func(match string) string {
		inner := embedPattern.FindStringSubmatch(match)[1]
		tag, ok := inlineImage(baseDir, inner)
		if !ok {
			res.MissingImages = append(res.MissingImages, imageName(inner))
			return fmt.Sprintf("<!-- image %s not found -->", imageName(inner))
		}
		res.InlinedImages++
		return tag
	})
	md = mermaidPattern.ReplaceAllString(md, `<div class="mermaid">$1</div>`)

	var body bytes.Buffer
	if err := e.engine.Convert([]byte(md), &body); err != nil {
		return "", Result{}, fmt.Errorf("render markdown: %w", err)
	}

	page, err := e.page.Render(map[string]string{
		"title": title,
		"body":  body.String(),
	})
	if err != nil {
		return "", Result{}, fmt.Errorf("render page: %w", err)
	}
	return page, res, nil
}

func imageName(inner string) string {
	name, _, _ := strings.Cut(inner, "|")
	return strings.TrimSpace(name)
}

func inlineImage(baseDir, inner string) (string, bool) {
	name, width, hasWidth := strings.Cut(inner, "|")
	name = strings.TrimSpace(name)
	width = strings.TrimSpace(width)

	data, err := os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(name))) // #nosec G304 -- note-relative image
	if err != nil {
		return "", false
	}

	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	widthAttr := ""
	if hasWidth && width != "" {
		widthAttr = fmt.Sprintf(` width="%s"`, width)
	}
	return fmt.Sprintf(
		`<img src="data:image/%s;base64,%s"%s>`,
		ext, base64.StdEncoding.EncodeToString(data), widthAttr,
	), true
}
