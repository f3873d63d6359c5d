// internal/script/script_test.go
package script

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/docdriver/internal/sentinel"
)

func TestQuote(t *testing.T) {
	cases := map[string]string{
		"plain":           `"plain"`,
		`it's "quoted"`:   `"it's \"quoted\""`,
		"line\nbreak":     `"line\nbreak"`,
		`back\slash`:      `"back\\slash"`,
		"sep\u2028arator": `"sep\u2028arator"`,
	}
	for in, want := range cases {
		assert.Equal(t, want, Quote(in), "input %q", in)
	}
}

func TestRegexp(t *testing.T) {
	assert.Equal(t, `new RegExp("^Sign in$", "i")`, Regexp("^Sign in$", true))
	assert.Equal(t, `new RegExp("a/b", "")`, Regexp("a/b", false))
}

func TestScope_Top(t *testing.T) {
	s := Top()
	assert.Equal(t, "window", s.Window())
	assert.Equal(t, "document", s.Document())
	assert.Equal(t, "document", s.Root())
	assert.Equal(t, "document.documentElement", s.RootNode())
	assert.Empty(t, s.Prelude())
	assert.False(t, s.InCell())
	assert.Equal(t, `document.getElementById("q")`, s.ByID("q"))
}

func TestScope_Frame(t *testing.T) {
	s := Top().With(Frame("main")).With(Frame("inner"))

	assert.Equal(t, `parent["main"]["inner"]`, s.Window())
	assert.Equal(t, `parent["main"]["inner"].document`, s.Document())
	assert.Equal(t, []string{"main", "inner"}, s.FrameNames())

	prelude := s.Prelude()
	first := strings.Index(prelude, `parent["main"] == undefined`)
	second := strings.Index(prelude, `parent["main"]["inner"] == undefined`)
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first, "outer frame must be guarded before inner frame")
	assert.Contains(t, prelude, sentinel.Literal(sentinel.FrameNotFound))
}

func TestScope_CellInsideFrame(t *testing.T) {
	cell := Cell("cell 2 of row 1", `getElementById("orders")`, "rows[0]", "cells[1]")

	framedFirst := Top().With(Frame("content")).With(cell)
	cellFirst := Top().With(cell).With(Frame("content"))

	// Resolution order is fixed regardless of push order.
	if diff := cmp.Diff(framedFirst.Prelude(), cellFirst.Prelude()); diff != "" {
		t.Fatalf("prelude depends on push order (-frame first +cell first):\n%s", diff)
	}

	prelude := framedFirst.Prelude()
	frameGuard := strings.Index(prelude, `parent["content"] == undefined`)
	cellBind := strings.Index(prelude, `var __cell = parent["content"].document;`)
	require.GreaterOrEqual(t, frameGuard, 0)
	require.Greater(t, cellBind, frameGuard, "cell must resolve inside the frame-qualified document")
	assert.Contains(t, prelude, `__cell = __cell ? __cell.rows[0] : undefined;`)
	assert.Contains(t, prelude, sentinel.Literal(sentinel.CellNotFound))

	assert.Equal(t, "__cell", framedFirst.Root())
	assert.Equal(t, `parent["content"].document`, framedFirst.Document(), "document stays frame-qualified inside a cell")
	assert.Equal(t, []RuleKind{FrameRule, CellRule}, kinds(cellFirst.Rules()))
}

func TestScope_CellLookups(t *testing.T) {
	s := Top().With(Cell("c", `getElementById("c")`))
	assert.Equal(t, `__cell.querySelector('[id=' + JSON.stringify("x") + ']')`, s.ByID("x"))
	assert.Equal(t, `__cell.getElementsByTagName("A")`, s.ByTag("A"))
	assert.Equal(t, `__cell.getElementsByTagName("A")`, s.Links())
	assert.Equal(t, "__cell", s.RootNode())
}

func TestScope_Links(t *testing.T) {
	assert.Equal(t, "document.links", Top().Links())
	assert.Equal(t, `parent["main"].document.links`, Top().With(Frame("main")).Links())
}

func TestScope_WithDoesNotMutate(t *testing.T) {
	base := Top().With(Frame("a"))
	_ = base.With(Frame("b"))
	assert.Equal(t, []string{"a"}, base.FrameNames())
}

func TestCompose(t *testing.T) {
	out := Compose(Top(), Fragment(`var element = document.getElementById("q");`), "return element.value;")

	require.True(t, strings.HasPrefix(out, Library), "library must lead the script")
	assert.Equal(t, 1, strings.Count(out, "function dispatchOnChange"), "library injected once")
	assert.True(t, strings.HasSuffix(out, "})()"), "body must be an immediately-invoked function")

	find := strings.Index(out, `getElementById("q")`)
	guard := strings.Index(out, "if (element) {")
	op := strings.Index(out, "return element.value;")
	notFound := strings.Index(out, sentinel.Return(sentinel.ElementNotFound))
	assert.True(t, find < guard && guard < op && op < notFound, "find, guard, operation, sentinel must appear in order:\n%s", out)
}

func TestWrap_FramePreludeBeforeBody(t *testing.T) {
	out := Wrap(Top().With(Frame("f")), "return document.title;")
	assert.Less(t, strings.Index(out, `parent["f"] == undefined`), strings.Index(out, "return document.title;"))
}

func kinds(rules []Rule) []RuleKind {
	out := make([]RuleKind, len(rules))
	for i, r := range rules {
		out[i] = r.Kind()
	}
	return out
}
