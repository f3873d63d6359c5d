// internal/script/quote.go
package script

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Line and paragraph separators are legal in JSON strings but terminate a JS
// string literal in older engines.
var separatorEscaper = strings.NewReplacer("\u2028", `\u2028`, "\u2029", `\u2029`)

// Quote renders s as a double-quoted JS string literal. Every caller that
// interpolates user text into generated script must go through Quote.
func Quote(s string) string {
	out, err := json.MarshalToString(s)
	if err != nil {
		// Marshalling a Go string cannot fail; keep the literal well formed regardless.
		return `""`
	}
	return separatorEscaper.Replace(out)
}

// Regexp renders a JS RegExp constructor for source, with the i flag when
// the match is case-insensitive.
func Regexp(source string, caseInsensitive bool) string {
	flags := ""
	if caseInsensitive {
		flags = "i"
	}
	return "new RegExp(" + Quote(source) + ", " + Quote(flags) + ")"
}
