package storage

import (
	"fmt"
	"regexp"
)

// embedExtensions lists the file types rewritten into ac:image macros.
const embedExtensions = `png|jpg|jpeg|gif|bmp|svg|pdf`

var (
	embedWithWidth = regexp.MustCompile(`!\[\[([^|\]]+\.(?:` + embedExtensions + `))\|(\d+)\]\]`)
	embedPlain     = regexp.MustCompile(`!\[\[([^|\]]+\.(?:` + embedExtensions + `))\]\]`)
	anyEmbed       = regexp.MustCompile(`!\[\[[^\]]+\]\]`)
	imageMacro     = regexp.MustCompile(`<ac:image[^>]*><ri:attachment[^>]*/></ac:image>`)
)

// ConvertObsidianEmbeds rewrites Obsidian image embeds into storage format
// image macros. Sized embeds are handled first so the width survives.
//
//	![[a.png|680]] -> <ac:image ac:width="680"><ri:attachment ri:filename="a.png"/></ac:image>
//	![[a.png]]     -> <ac:image><ri:attachment ri:filename="a.png"/></ac:image>
func ConvertObsidianEmbeds(csf string) string {
	out := embedWithWidth.ReplaceAllStringFunc(csf, func(match string) string {
		groups := embedWithWidth.FindStringSubmatch(match)
		return fmt.Sprintf(
			`<ac:image ac:width="%s"><ri:attachment ri:filename="%s"/></ac:image>`,
			groups[2], groups[1],
		)
	})
	return embedPlain.ReplaceAllStringFunc(out, func(match string) string {
		groups := embedPlain.FindStringSubmatch(match)
		return fmt.Sprintf(`<ac:image><ri:attachment ri:filename="%s"/></ac:image>`, groups[1])
	})
}

// FindObsidianEmbeds returns every ![[...]] embed in document order,
// including ones ConvertObsidianEmbeds leaves alone.
func FindObsidianEmbeds(csf string) []string {
	return anyEmbed.FindAllString(csf, -1)
}

// CountImageMacros counts attachment-backed ac:image macros.
func CountImageMacros(csf string) int {
	return len(imageMacro.FindAllStringIndex(csf, -1))
}
