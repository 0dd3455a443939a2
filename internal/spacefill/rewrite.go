package spacefill

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	markdownImage = regexp.MustCompile(`(?i)(!\[[^\]]*\]\()([^)]+)(\))`)
	wikiLink      = regexp.MustCompile(`(!?\[\[)([^\]|#]+)(#[^\]|]+)?(\|[^\]]+)?(\]\])`)
)

// Rewriter updates image references in note text. Only the final path
// segment of a reference is ever changed.
type Rewriter struct {
	lookup map[string]string
	exts   ExtensionSet
}

// NewRewriter indexes renames by lowercase base name, in both the spaced and
// %20-encoded spellings.
func NewRewriter(renames []Rename, exts ExtensionSet) *Rewriter {
	lookup := make(map[string]string, len(renames)*2)
	for _, r := range renames {
		oldName := filepath.Base(r.From)
		newName := filepath.Base(r.To)
		lookup[strings.ToLower(oldName)] = newName
		lookup[strings.ToLower(strings.ReplaceAll(oldName, " ", "%20"))] = newName
	}
	return &Rewriter{lookup: lookup, exts: exts}
}

// Rewrite returns content with Markdown image links and Obsidian embeds
// pointing at the renamed files. Non-embed wiki links are left alone.
func (rw *Rewriter) Rewrite(content string) string {
	content = markdownImage.ReplaceAllStringFunc(content, func(m string) string {
		g := markdownImage.FindStringSubmatch(m)
		return g[1] + rw.rewriteLinkTarget(g[2]) + g[3]
	})
	return wikiLink.ReplaceAllStringFunc(content, func(m string) string {
		g := wikiLink.FindStringSubmatch(m)
		open, target, anchor, alias, closing := g[1], g[2], g[3], g[4], g[5]
		if !strings.HasPrefix(open, "!") {
			return m
		}
		clean := strings.ReplaceAll(strings.TrimSpace(target), `\`, "/")
		parts := strings.Split(clean, "/")
		name := parts[len(parts)-1]
		_, known := rw.lookup[strings.ToLower(name)]
		if !known && !rw.exts.Has(name) {
			return m
		}
		newName, ok := rw.newName(name)
		if !ok {
			return m
		}
		parts[len(parts)-1] = newName
		return open + strings.Join(parts, "/") + anchor + alias + closing
	})
}

func (rw *Rewriter) rewriteLinkTarget(raw string) string {
	trimmed := strings.TrimSpace(raw)
	quote := ""
	if len(trimmed) >= 2 && strings.ContainsAny(trimmed[:1], `"'`) && strings.ContainsAny(trimmed[len(trimmed)-1:], `"'`) {
		quote = trimmed[:1]
	}
	target := strings.Trim(trimmed, `"'`)

	anchor := ""
	if i := strings.Index(target, "#"); i >= 0 {
		target, anchor = target[:i], target[i:]
	}
	parts := strings.Split(strings.ReplaceAll(target, `\`, "/"), "/")
	name := parts[len(parts)-1]

	newName, ok := rw.newName(name)
	if !ok {
		return raw
	}
	if _, known := rw.lookup[strings.ToLower(name)]; !known && !strings.Contains(name, " ") && !strings.Contains(name, "%20") {
		return raw
	}
	parts[len(parts)-1] = newName
	return quote + strings.Join(parts, "/") + anchor + quote
}

// newName resolves a file name against the rename index, falling back to
// hyphen normalization for image names.
func (rw *Rewriter) newName(name string) (string, bool) {
	if n, ok := rw.lookup[strings.ToLower(name)]; ok {
		return n, n != name
	}
	if !rw.exts.Has(name) {
		return "", false
	}
	n := NormalizeHyphens(name)
	if n == "" || n == name {
		return "", false
	}
	return n, true
}
