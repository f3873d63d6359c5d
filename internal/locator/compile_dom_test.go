// internal/locator/compile_dom_test.go
package locator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/docdriver/internal/host/jsdom"
	"github.com/xkilldash9x/docdriver/internal/script"
	"github.com/xkilldash9x/docdriver/internal/sentinel"
)

const page = `<html><head><meta name="q" content="keywords"></head><body>
<form action="/search">
  <input name="q" id="first" value="">
  <input name="q" id="second" value="submit">
</form>
<a name="help">Help</a>
<a href="/help" id="help-link">Help</a>
<table id="orders">
  <tr><td>1</td><td><a href="/orders/1" id="order-1">Open</a></td></tr>
  <tr><td>2</td><td><a href="/orders/2" id="order-2">Open</a></td></tr>
</table>
</body></html>`

// runIn composes loc with operation in scope and runs it against page.
func runIn(t *testing.T, scope script.Scope, loc Locator, operation string) any {
	t.Helper()
	h := jsdom.New(zaptest.NewLogger(t))
	require.NoError(t, h.Load("http://example.test/", page))

	frag, err := Compile(scope, loc)
	require.NoError(t, err)
	reply, err := h.RunScript(context.Background(), script.Compose(scope, frag, operation))
	require.NoError(t, err)
	return reply
}

func TestCompiledScripts_RunAgainstDocument(t *testing.T) {
	tests := []struct {
		name  string
		loc   Locator
		want  any
		found bool
	}{
		{name: "index selects one-based", loc: NewIndex("TextField", "INPUT", 2), want: "second", found: true},
		{name: "index past the end", loc: NewIndex("TextField", "INPUT", 3)},
		{name: "name skips meta", loc: New("TextField", "INPUT", ByName, "q"), want: "first", found: true},
		{name: "name with value guard", loc: New("Button", "INPUT", ByName, "q").WithValue("submit"), want: "second", found: true},
		{name: "name with unmatched value", loc: New("Button", "INPUT", ByName, "q").WithValue("go")},
		{name: "link text skips named anchors", loc: New("Link", "A", ByText, "Help"), want: "help-link", found: true},
		{name: "link url pattern", loc: NewPattern("Link", "A", ByURL, `/orders/\d$`, false), want: "order-1", found: true},
		{name: "value attribute", loc: New("Button", "INPUT", ByValue, "submit"), want: "second", found: true},
		{name: "missing id", loc: New("Div", "DIV", ByID, "absent")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := runIn(t, script.Top(), tt.loc, "return element.id;")
			if !tt.found {
				assert.Equal(t, sentinel.ElementNotFound, sentinel.Decode(reply))
				return
			}
			assert.Equal(t, tt.want, reply)
		})
	}
}

func TestCompiledScripts_RunInCell(t *testing.T) {
	row := &Row{Strategy: ByIndex, Index: 2, Table: &Table{Strategy: ByID, ID: "orders"}}
	rule, err := CompileCell(Cell{Strategy: ByIndex, Index: 2, Row: row})
	require.NoError(t, err)
	scope := script.Top().With(rule)

	assert.Equal(t, "order-2", runIn(t, scope, NewIndex("Link", "A", 1), "return element.id;"))
	assert.Equal(t, "order-2", runIn(t, scope, New("Link", "A", ByText, "Open"), "return element.id;"))

	missing, err := CompileCell(Cell{Strategy: ByID, ID: "nowhere"})
	require.NoError(t, err)
	reply := runIn(t, script.Top().With(missing), NewIndex("Link", "A", 1), "return element.id;")
	assert.Equal(t, sentinel.CellNotFound, sentinel.Decode(reply))
}

func TestCompiledScripts_MissingFrame(t *testing.T) {
	reply := runIn(t, script.Top().With(script.Frame("nav")), New("Div", "DIV", ByID, "x"), "return element.id;")
	assert.Equal(t, sentinel.FrameNotFound, sentinel.Decode(reply))
}
