// internal/script/scope.go
package script

import (
	"strings"

	"github.com/xkilldash9x/docdriver/internal/sentinel"
)

// cellVar holds the resolved table cell when a scope carries a cell rule.
const cellVar = "__cell"

// RuleKind orders rewrite rules. Lower kinds resolve first (outermost).
type RuleKind int

const (
	FrameRule RuleKind = iota
	CellRule
)

// Rule is one reference-rewrite rule in a Scope.
type Rule struct {
	kind  RuleKind
	frame string
	steps []string
	label string
}

// Frame returns a rule that routes window and document references through
// the named child frame of the current window.
func Frame(name string) Rule {
	return Rule{kind: FrameRule, frame: name, label: name}
}

// Cell returns a rule that makes a table cell the lookup root. Steps are
// applied in order to the owning document, the first being a method call
// (for example `getElementById("t")`) and the rest property accessors
// (`rows[0]`, `cells[2]`). label is used in logs and error messages.
func Cell(label string, steps ...string) Rule {
	return Rule{kind: CellRule, steps: append([]string(nil), steps...), label: label}
}

// Kind reports the rule's kind.
func (r Rule) Kind() RuleKind { return r.kind }

// Label is a human readable description of the rule's target.
func (r Rule) Label() string { return r.label }

// Scope is the nested context a script runs in: an immutable stack of
// rewrite rules. Frame rules are always resolved before the cell rule, so a
// frame-qualified document reference is never re-qualified by the cell.
type Scope struct {
	frames []Rule
	cell   *Rule
}

// Top is the scope of the top-level document.
func Top() Scope { return Scope{} }

// With returns a copy of s with r pushed. A scope holds at most one cell
// rule; pushing another replaces it.
func (s Scope) With(r Rule) Scope {
	next := Scope{frames: append([]Rule(nil), s.frames...), cell: s.cell}
	switch r.kind {
	case FrameRule:
		next.frames = append(next.frames, r)
	case CellRule:
		c := r
		next.cell = &c
	}
	return next
}

// Rules returns the rules in resolution order.
func (s Scope) Rules() []Rule {
	out := append([]Rule(nil), s.frames...)
	if s.cell != nil {
		out = append(out, *s.cell)
	}
	return out
}

// InCell reports whether the lookup root is a table cell rather than a document.
func (s Scope) InCell() bool { return s.cell != nil }

// CellLabel describes the scope's cell rule, or "" outside a cell.
func (s Scope) CellLabel() string {
	if s.cell == nil {
		return ""
	}
	return s.cell.label
}

// FrameNames returns the frame chain, outermost first.
func (s Scope) FrameNames() []string {
	names := make([]string, len(s.frames))
	for i, f := range s.frames {
		names[i] = f.frame
	}
	return names
}

// Window is the expression for the scope's window.
func (s Scope) Window() string {
	if len(s.frames) == 0 {
		return "window"
	}
	return frameWindow(s.frames, len(s.frames))
}

func frameWindow(frames []Rule, depth int) string {
	var b strings.Builder
	b.WriteString("parent")
	for _, f := range frames[:depth] {
		b.WriteString("[")
		b.WriteString(Quote(f.frame))
		b.WriteString("]")
	}
	return b.String()
}

// Document is the expression for the owning document. Event construction
// and XPath evaluation always go through it, even inside a cell.
func (s Scope) Document() string {
	if len(s.frames) == 0 {
		return "document"
	}
	return s.Window() + ".document"
}

// Root is the expression node lookups start from.
func (s Scope) Root() string {
	if s.cell != nil {
		return cellVar
	}
	return s.Document()
}

// RootNode is the context node for XPath evaluation.
func (s Scope) RootNode() string {
	if s.cell != nil {
		return cellVar
	}
	return s.Document() + ".documentElement"
}

// ByID looks a node up by identifier under the root.
func (s Scope) ByID(id string) string {
	if s.cell != nil {
		return s.Root() + ".querySelector('[id=' + JSON.stringify(" + Quote(id) + ") + ']')"
	}
	return s.Root() + ".getElementById(" + Quote(id) + ")"
}

// ByName lists nodes with the given name attribute under the root.
func (s Scope) ByName(name string) string {
	if s.cell != nil {
		return s.Root() + ".querySelectorAll('[name=' + JSON.stringify(" + Quote(name) + ") + ']')"
	}
	return s.Root() + ".getElementsByName(" + Quote(name) + ")"
}

// ByTag lists nodes with the given tag under the root.
func (s Scope) ByTag(tag string) string {
	return s.Root() + ".getElementsByTagName(" + Quote(tag) + ")"
}

// Links lists the hyperlinks under the root. A document's links collection
// skips anchors without an href; a cell has no such collection, so every A
// under it is listed.
func (s Scope) Links() string {
	if s.cell != nil {
		return s.ByTag("A")
	}
	return s.Document() + ".links"
}

// ByClass lists nodes carrying the class under the root.
func (s Scope) ByClass(class string) string {
	return s.Root() + ".getElementsByClassName(" + Quote(class) + ")"
}

// Prelude renders the guards and bindings every script in this scope needs
// before it may touch Root, Document or Window.
func (s Scope) Prelude() string {
	var b strings.Builder
	for i := range s.frames {
		b.WriteString("if (")
		b.WriteString(frameWindow(s.frames, i+1))
		b.WriteString(" == undefined) {\n  ")
		b.WriteString(sentinel.Return(sentinel.FrameNotFound))
		b.WriteString("\n}\n")
	}
	if s.cell != nil {
		b.WriteString("var ")
		b.WriteString(cellVar)
		b.WriteString(" = ")
		b.WriteString(s.Document())
		b.WriteString(";\n")
		for _, step := range s.cell.steps {
			b.WriteString(cellVar)
			b.WriteString(" = ")
			b.WriteString(cellVar)
			b.WriteString(" ? ")
			b.WriteString(cellVar)
			b.WriteString(".")
			b.WriteString(step)
			b.WriteString(" : undefined;\n")
		}
		b.WriteString("if (")
		b.WriteString(cellVar)
		b.WriteString(" == undefined) {\n  ")
		b.WriteString(sentinel.Return(sentinel.CellNotFound))
		b.WriteString("\n}\n")
	}
	return b.String()
}
