package markdown

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// codeLanguages maps fence info strings onto Confluence code macro languages.
// Fences in other languages render without a language parameter.
var codeLanguages = map[string]string{
	"actionscript": "actionscript3",
	"applescript":  "applescript",
	"bash":         "bash",
	"sh":           "bash",
	"shell":        "bash",
	"zsh":          "bash",
	"c":            "cpp",
	"cpp":          "cpp",
	"c++":          "cpp",
	"h":            "cpp",
	"cs":           "c#",
	"csharp":       "c#",
	"c#":           "c#",
	"css":          "css",
	"diff":         "diff",
	"patch":        "diff",
	"erlang":       "erl",
	"go":           "go",
	"golang":       "go",
	"groovy":       "groovy",
	"html":         "xml",
	"xml":          "xml",
	"java":         "java",
	"javascript":   "js",
	"js":           "js",
	"json":         "js",
	"typescript":   "js",
	"ts":           "js",
	"kotlin":       "kotlin",
	"perl":         "perl",
	"php":          "php",
	"powershell":   "powershell",
	"ps1":          "powershell",
	"python":       "py",
	"py":           "py",
	"ruby":         "ruby",
	"rb":           "ruby",
	"sass":         "sass",
	"scss":         "sass",
	"scala":        "scala",
	"sql":          "sql",
	"text":         "text",
	"txt":          "text",
	"vb":           "vb",
	"yaml":         "yml",
	"yml":          "yml",
}

type storageRenderer struct{}

func newStorageRenderer() renderer.NodeRenderer {
	return &storageRenderer{}
}

func (r *storageRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
	reg.Register(ast.KindCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindImage, r.renderImage)
	reg.Register(ast.KindRawHTML, r.renderRawHTML)
	reg.Register(ast.KindHTMLBlock, r.renderHTMLBlock)
}

// voidTag matches HTML void elements, closed or not.
var voidTag = regexp.MustCompile(`(?i)<(br|hr|img|wbr|col|area|source|track|embed)\b([^>]*?)\s*/?>`)

// closeVoidTags rewrites <br> style tags into the <br /> form storage
// format requires.
func closeVoidTags(html string) string {
	return voidTag.ReplaceAllString(html, "<$1$2 />")
}

func (r *storageRenderer) renderRawHTML(
	w util.BufWriter,
	source []byte,
	node ast.Node,
	entering bool,
) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*ast.RawHTML)
	for i := 0; i < n.Segments.Len(); i++ {
		seg := n.Segments.At(i)
		_, _ = w.WriteString(closeVoidTags(string(seg.Value(source))))
	}
	return ast.WalkSkipChildren, nil
}

func (r *storageRenderer) renderHTMLBlock(
	w util.BufWriter,
	source []byte,
	node ast.Node,
	entering bool,
) (ast.WalkStatus, error) {
	n := node.(*ast.HTMLBlock)
	if entering {
		_, _ = w.WriteString(closeVoidTags(linesOf(n, source)))
		return ast.WalkContinue, nil
	}
	if n.HasClosure() {
		_, _ = w.WriteString(closeVoidTags(string(n.ClosureLine.Value(source))))
	}
	return ast.WalkContinue, nil
}

func (r *storageRenderer) renderFencedCodeBlock(
	w util.BufWriter,
	source []byte,
	node ast.Node,
	entering bool,
) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	lang := ""
	if raw := n.Language(source); raw != nil {
		lang = codeLanguages[strings.ToLower(string(raw))]
	}
	writeCodeMacro(w, lang, linesOf(n, source))
	return ast.WalkSkipChildren, nil
}

func (r *storageRenderer) renderCodeBlock(
	w util.BufWriter,
	source []byte,
	node ast.Node,
	entering bool,
) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	writeCodeMacro(w, "", linesOf(node, source))
	return ast.WalkSkipChildren, nil
}

func (r *storageRenderer) renderImage(
	w util.BufWriter,
	source []byte,
	node ast.Node,
	entering bool,
) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.Image)
	dest := string(n.Destination)
	alt := altText(n, source)

	_, _ = w.WriteString("<ac:image")
	if alt != "" {
		_, _ = w.WriteString(` ac:alt="`)
		_, _ = w.Write(util.EscapeHTML([]byte(alt)))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
	if isRemote(dest) {
		_, _ = w.WriteString(`<ri:url ri:value="`)
		_, _ = w.Write(util.EscapeHTML([]byte(dest)))
		_, _ = w.WriteString(`"/>`)
	} else {
		_, _ = w.WriteString(`<ri:attachment ri:filename="`)
		_, _ = w.Write(util.EscapeHTML([]byte(AttachmentName(dest))))
		_, _ = w.WriteString(`"/>`)
	}
	_, _ = w.WriteString("</ac:image>")
	return ast.WalkSkipChildren, nil
}

// AttachmentName reduces a local image destination to the attachment file
// name Confluence stores: the last path segment, percent-decoded.
func AttachmentName(dest string) string {
	dest = strings.ReplaceAll(dest, `\`, "/")
	if unescaped, err := url.PathUnescape(dest); err == nil {
		dest = unescaped
	}
	return path.Base(dest)
}

func isRemote(dest string) bool {
	lower := strings.ToLower(dest)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func writeCodeMacro(w util.BufWriter, lang, body string) {
	_, _ = w.WriteString(`<ac:structured-macro ac:name="code">`)
	if lang != "" {
		_, _ = w.WriteString(`<ac:parameter ac:name="language">`)
		_, _ = w.WriteString(lang)
		_, _ = w.WriteString(`</ac:parameter>`)
	}
	_, _ = w.WriteString(`<ac:plain-text-body><![CDATA[`)
	_, _ = w.WriteString(escapeCDATA(strings.TrimSuffix(body, "\n")))
	_, _ = w.WriteString(`]]></ac:plain-text-body></ac:structured-macro>`)
	_ = w.WriteByte('\n')
}

// escapeCDATA splits any "]]>" so it cannot terminate the section early.
func escapeCDATA(s string) string {
	return strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>")
}

func linesOf(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

func altText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(altText(c, source))
		}
	}
	return b.String()
}
