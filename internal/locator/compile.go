// internal/locator/compile.go
package locator

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/docdriver/internal/script"
)

// compileFunc turns one locator into fragment text for a scope.
type compileFunc func(scope script.Scope, l Locator) (string, error)

// compilers is the dispatch table keyed by strategy. Every Strategy must
// have exactly one entry.
var compilers = map[Strategy]compileFunc{
	ByID:     compileID,
	ByIndex:  compileIndex,
	ByName:   compileName,
	ByValue:  attributeCompiler("value"),
	ByText:   compileText,
	ByURL:    compileURL,
	ByClass:  compileClass,
	ByXPath:  compileXPath,
	ByTitle:  attributeCompiler("title"),
	ByAlt:    attributeCompiler("alt"),
	BySrc:    attributeCompiler("src"),
	ByAction: attributeCompiler("action"),
}

// Compile produces a fragment that binds `element` to the node l selects in
// scope, or to undefined when nothing matches.
func Compile(scope script.Scope, l Locator) (script.Fragment, error) {
	fn, ok := compilers[l.Strategy]
	if !ok {
		return "", unsupported(l, "no compiler registered")
	}
	l.Tag = strings.ToUpper(strings.TrimSpace(l.Tag))
	text, err := fn(scope, l)
	if err != nil {
		return "", err
	}
	return script.Fragment(text), nil
}

func bind(expr string) string {
	return "var element = " + expr + ";"
}

// firstMatch binds element to the first node of collection satisfying cond,
// where cond refers to the candidate as elements[i].
func firstMatch(collection, cond string) string {
	return "var elements = " + collection + ";\n" +
		"var element = undefined;\n" +
		"for (var i = 0; i < elements.length; i++) {\n" +
		"  if (" + cond + ") {\n" +
		"    element = elements[i];\n" +
		"    break;\n" +
		"  }\n" +
		"}"
}

// matchExpr compares a candidate property with the locator's value, as an
// exact string or as a pattern carrying its case sensitivity.
func matchExpr(prop string, v Value) string {
	if v.Pattern != nil {
		return script.Regexp(v.Pattern.Source, v.Pattern.CaseInsensitive) + ".test(" + prop + ")"
	}
	return prop + " == " + script.Quote(v.Text)
}

func requireLiteral(l Locator) error {
	if l.Value.IsPattern() {
		return unsupported(l, "patterns are not supported")
	}
	return nil
}

func requireTag(l Locator) error {
	if l.Tag == "" {
		return unsupported(l, "a tag is required")
	}
	return nil
}

func compileID(scope script.Scope, l Locator) (string, error) {
	if err := requireLiteral(l); err != nil {
		return "", err
	}
	return bind(scope.ByID(l.Value.Text)), nil
}

func compileIndex(scope script.Scope, l Locator) (string, error) {
	if l.Index < 1 {
		return "", unsupported(l, "index must be a positive integer, got %d", l.Index)
	}
	if err := requireTag(l); err != nil {
		return "", err
	}
	return bind(fmt.Sprintf("%s[%d]", scope.ByTag(l.Tag), l.Index-1)), nil
}

func compileName(scope script.Scope, l Locator) (string, error) {
	if err := requireLiteral(l); err != nil {
		return "", err
	}
	if err := requireTag(l); err != nil {
		return "", err
	}
	cond := "elements[i].tagName != 'META' && elements[i].tagName == " + script.Quote(l.Tag)
	if l.ByValue != "" {
		cond += " && elements[i].value == " + script.Quote(l.ByValue)
	}
	return firstMatch(scope.ByName(l.Value.Text), cond), nil
}

func compileClass(scope script.Scope, l Locator) (string, error) {
	if err := requireLiteral(l); err != nil {
		return "", err
	}
	return bind(scope.ByClass(l.Value.Text) + "[0]"), nil
}

func compileText(scope script.Scope, l Locator) (string, error) {
	if l.Tag == "" || l.Tag == "A" {
		return firstMatch(scope.Links(), matchExpr("elements[i].text", l.Value)), nil
	}
	return firstMatch(scope.ByTag(l.Tag), matchExpr("elements[i].innerText", l.Value)), nil
}

func compileURL(scope script.Scope, l Locator) (string, error) {
	if l.Tag != "" && l.Tag != "A" {
		return "", unsupported(l, "only links can be located by url")
	}
	return firstMatch(scope.Links(), matchExpr("elements[i].href", l.Value)), nil
}

func attributeCompiler(attr string) compileFunc {
	return func(scope script.Scope, l Locator) (string, error) {
		if err := requireTag(l); err != nil {
			return "", err
		}
		return firstMatch(scope.ByTag(l.Tag), matchExpr("elements[i]."+attr, l.Value)), nil
	}
}

func compileXPath(scope script.Scope, l Locator) (string, error) {
	if err := requireLiteral(l); err != nil {
		return "", err
	}
	if strings.TrimSpace(l.Value.Text) == "" {
		return "", unsupported(l, "xpath expression is empty")
	}
	return "var result = " + scope.Document() + ".evaluate(" + script.Quote(l.Value.Text) + ", " +
		scope.RootNode() + ", null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);\n" +
		"var element = result ? result.singleNodeValue : null;", nil
}
