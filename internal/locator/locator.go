// internal/locator/locator.go
// Package locator describes how to find one DOM node and compiles that
// description into a script fragment binding `element`.
package locator

import (
	"fmt"
	"strings"
)

// Strategy is the "how" of a locator.
type Strategy int

const (
	ByID Strategy = iota
	ByIndex
	ByName
	ByValue
	ByText
	ByURL
	ByClass
	ByXPath
	ByTitle
	ByAlt
	BySrc
	ByAction
)

// Strategies lists every strategy, in declaration order.
var Strategies = []Strategy{ByID, ByIndex, ByName, ByValue, ByText, ByURL, ByClass, ByXPath, ByTitle, ByAlt, BySrc, ByAction}

var strategyNames = map[Strategy]string{
	ByID:     "id",
	ByIndex:  "index",
	ByName:   "name",
	ByValue:  "value",
	ByText:   "text",
	ByURL:    "url",
	ByClass:  "class",
	ByXPath:  "xpath",
	ByTitle:  "title",
	ByAlt:    "alt",
	BySrc:    "src",
	ByAction: "action",
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy maps a strategy name (as used on the command line) to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown locator strategy %q", name)
}

// Pattern is a regular expression whose source is evaluated by the page's
// script engine, not by Go.
type Pattern struct {
	Source          string
	CaseInsensitive bool
}

// Value is a literal string or, when Pattern is set, a pattern.
type Value struct {
	Text    string
	Pattern *Pattern
}

// Literal wraps a string value.
func Literal(s string) Value { return Value{Text: s} }

// Match wraps a pattern value.
func Match(source string, caseInsensitive bool) Value {
	return Value{Pattern: &Pattern{Source: source, CaseInsensitive: caseInsensitive}}
}

// IsPattern reports whether v is a pattern.
func (v Value) IsPattern() bool { return v.Pattern != nil }

func (v Value) String() string {
	if v.Pattern != nil {
		flags := ""
		if v.Pattern.CaseInsensitive {
			flags = "i"
		}
		return "/" + v.Pattern.Source + "/" + flags
	}
	return v.Text
}

// Locator is an immutable description of how to find one node.
type Locator struct {
	Strategy Strategy
	Value    Value
	// Index is 1-based and only used by ByIndex.
	Index int
	// Tag is the upper-case tag name of the element kind, e.g. "INPUT".
	Tag string
	// ByValue selects among same-named inputs (checkboxes, radios).
	ByValue string
	// Element names the element kind for error messages, e.g. "Link".
	Element string
}

// New builds a locator for an element kind from a strategy and a literal value.
func New(element, tag string, how Strategy, what string) Locator {
	return Locator{Strategy: how, Value: Literal(what), Tag: tag, Element: element}
}

// NewIndex builds a 1-based index locator.
func NewIndex(element, tag string, n int) Locator {
	return Locator{Strategy: ByIndex, Index: n, Tag: tag, Element: element}
}

// NewPattern builds a locator matching a pattern.
func NewPattern(element, tag string, how Strategy, source string, caseInsensitive bool) Locator {
	return Locator{Strategy: how, Value: Match(source, caseInsensitive), Tag: tag, Element: element}
}

// WithValue returns a copy of l that also requires the node's value to equal v.
func (l Locator) WithValue(v string) Locator {
	l.ByValue = v
	return l
}

// What is the human-readable "what" of the locator.
func (l Locator) What() string {
	if l.Strategy == ByIndex {
		return fmt.Sprintf("%d", l.Index)
	}
	return l.Value.String()
}

// ElementName is the element kind, defaulting to "element".
func (l Locator) ElementName() string {
	if l.Element == "" {
		return "element"
	}
	return l.Element
}

func (l Locator) String() string {
	return fmt.Sprintf("%s with %s of %s", l.ElementName(), l.Strategy, l.What())
}
