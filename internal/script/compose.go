// internal/script/compose.go
// Package script builds the self-contained script units sent to the
// scripting host. A unit is the shared helper library followed by an
// immediately-invoked function, so that generated code may use `return`
// even though the host evaluates the text as a top-level program.
package script

import (
	"strings"

	"github.com/xkilldash9x/docdriver/internal/sentinel"
)

// ElementVar is the variable every locator fragment must bind.
const ElementVar = "element"

// Library is injected once at the head of every composed script.
const Library = `function dispatchOnChange(element) {
  var event = element.ownerDocument.createEvent('HTMLEvents');
  event.initEvent('change', true, true);
  element.dispatchEvent(event);
}`

// Fragment is generated script text that binds ElementVar to the located
// node, or to undefined/null when nothing matches.
type Fragment string

// Compose merges a locator fragment and an operation into one script. When
// the fragment leaves `element` unset the script returns the ElementNotFound
// sentinel without running the operation.
//
// The result is final: passing a composed script back through Compose or
// Wrap is not supported.
func Compose(scope Scope, find Fragment, operation string) string {
	var b strings.Builder
	b.WriteString(string(find))
	b.WriteString("\nif (")
	b.WriteString(ElementVar)
	b.WriteString(") {\n")
	b.WriteString(indent(strings.TrimSpace(operation)))
	b.WriteString("\n} else {\n  ")
	b.WriteString(sentinel.Return(sentinel.ElementNotFound))
	b.WriteString("\n}")
	return Wrap(scope, b.String())
}

// Wrap turns a body with no locator into a complete script for scope.
func Wrap(scope Scope, body string) string {
	var b strings.Builder
	b.WriteString(Library)
	b.WriteString("\n(function() {\n")
	b.WriteString(indent(scope.Prelude() + strings.TrimSpace(body)))
	b.WriteString("\n})()")
	return b.String()
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "  " + l
		}
	}
	return strings.Join(lines, "\n")
}
