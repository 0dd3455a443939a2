package storage

import (
	"regexp"
	"strings"
)

// DjangoTheme is the code macro theme value Confluence expects, casing included.
const DjangoTheme = "DJango"

var (
	codeMacro      = regexp.MustCompile(`(?s)(<ac:structured-macro ac:name="code"[^>]*>)(.*?)(</ac:structured-macro>)`)
	themeParameter = regexp.MustCompile(`<ac:parameter ac:name="theme">[^<]+</ac:parameter>`)
	firstParameter = regexp.MustCompile(`<ac:parameter[^>]*>[^<]*</ac:parameter>`)
	codeMacroOpen  = regexp.MustCompile(`<ac:structured-macro ac:name="code"`)
)

// ApplyCodeTheme sets the theme parameter of every code macro to theme.
// An existing theme is replaced; otherwise the parameter is inserted after
// the macro's first parameter, or at the start of its body.
func ApplyCodeTheme(csf, theme string) string {
	param := `<ac:parameter ac:name="theme">` + theme + `</ac:parameter>`

	return codeMacro.ReplaceAllStringFunc(csf, func(match string) string {
		groups := codeMacro.FindStringSubmatch(match)
		open, body, closing := groups[1], groups[2], groups[3]

		switch {
		case themeParameter.MatchString(body):
			body = themeParameter.ReplaceAllLiteralString(body, param)
		default:
			if loc := firstParameter.FindStringIndex(body); loc != nil {
				body = body[:loc[1]] + param + body[loc[1]:]
			} else {
				body = param + body
			}
		}
		return open + body + closing
	})
}

// CountCodeMacros counts code macro openings.
func CountCodeMacros(csf string) int {
	return len(codeMacroOpen.FindAllStringIndex(csf, -1))
}

// CountThemed counts code theme parameters set to theme.
func CountThemed(csf, theme string) int {
	return strings.Count(csf, `<ac:parameter ac:name="theme">`+theme+`</ac:parameter>`)
}
