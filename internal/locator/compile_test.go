// internal/locator/compile_test.go
package locator

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/docdriver/internal/script"
)

func TestCompilerTableIsExhaustive(t *testing.T) {
	for _, s := range Strategies {
		_, ok := compilers[s]
		assert.True(t, ok, "strategy %s has no compiler", s)
		assert.NotContains(t, s.String(), "strategy(", "strategy %d has no name", int(s))
	}
	assert.Len(t, compilers, len(Strategies))
}

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies {
		parsed, err := ParseStrategy(strings.ToUpper(s.String()))
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseStrategy("css")
	assert.Error(t, err)
}

func TestCompile_Index(t *testing.T) {
	for _, n := range []int{1, 2, 17} {
		frag, err := Compile(script.Top(), NewIndex("TextField", "input", n))
		require.NoError(t, err)
		assert.Equal(t,
			`var element = document.getElementsByTagName("INPUT")[`+strconv.Itoa(n-1)+`];`,
			string(frag), "1-based index %d must select zero-based %d", n, n-1)
	}

	for _, n := range []int{0, -3} {
		_, err := Compile(script.Top(), NewIndex("TextField", "INPUT", n))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupported))
	}
}

func TestCompile_ID(t *testing.T) {
	frag, err := Compile(script.Top(), New("Div", "DIV", ByID, `it's"here`))
	require.NoError(t, err)
	assert.Equal(t, `var element = document.getElementById("it's\"here");`, string(frag))

	_, err = Compile(script.Top(), NewPattern("Div", "DIV", ByID, "x.*", false))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestCompile_NameWithValueGuard(t *testing.T) {
	// Two inputs share name "q"; only the second carries value "submit".
	loc := New("Checkbox", "INPUT", ByName, "q").WithValue("submit")
	frag, err := Compile(script.Top(), loc)
	require.NoError(t, err)

	text := string(frag)
	assert.Contains(t, text, `var elements = document.getElementsByName("q");`)
	assert.Contains(t, text, `elements[i].tagName != 'META'`)
	assert.Contains(t, text, `elements[i].tagName == "INPUT"`)
	assert.Contains(t, text, `elements[i].value == "submit"`)
	assert.Contains(t, text, "break;", "first match must stop the scan")

	plain, err := Compile(script.Top(), New("TextField", "INPUT", ByName, "q"))
	require.NoError(t, err)
	assert.NotContains(t, string(plain), "elements[i].value ==")
}

func TestCompile_LinkPatterns(t *testing.T) {
	t.Run("case-insensitive text", func(t *testing.T) {
		frag, err := Compile(script.Top(), NewPattern("Link", "A", ByText, "sign in", true))
		require.NoError(t, err)
		assert.Contains(t, string(frag), `new RegExp("sign in", "i").test(elements[i].text)`)
		assert.Contains(t, string(frag), "var elements = document.links;")
	})

	t.Run("case-sensitive url", func(t *testing.T) {
		frag, err := Compile(script.Top(), NewPattern("Link", "A", ByURL, `example\.com/login`, false))
		require.NoError(t, err)
		assert.Contains(t, string(frag), `new RegExp("example\\.com/login", "").test(elements[i].href)`)
	})

	t.Run("literal text", func(t *testing.T) {
		frag, err := Compile(script.Top(), New("Link", "A", ByText, "Home"))
		require.NoError(t, err)
		assert.Contains(t, string(frag), `elements[i].text == "Home"`)
	})

	t.Run("url on a non-link", func(t *testing.T) {
		_, err := Compile(script.Top(), New("Button", "INPUT", ByURL, "x"))
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("text on content element", func(t *testing.T) {
		frag, err := Compile(script.Top(), New("Span", "SPAN", ByText, "Total"))
		require.NoError(t, err)
		assert.Contains(t, string(frag), `elements[i].innerText == "Total"`)
	})
}

func TestCompile_Attributes(t *testing.T) {
	cases := map[Strategy]string{
		ByValue:  "value",
		ByTitle:  "title",
		ByAlt:    "alt",
		BySrc:    "src",
		ByAction: "action",
	}
	for how, attr := range cases {
		t.Run(how.String(), func(t *testing.T) {
			frag, err := Compile(script.Top(), New("Image", "IMG", how, "x"))
			require.NoError(t, err)
			assert.Contains(t, string(frag), `document.getElementsByTagName("IMG")`)
			assert.Contains(t, string(frag), `elements[i].`+attr+` == "x"`)

			_, err = Compile(script.Top(), New("Image", "", how, "x"))
			assert.ErrorIs(t, err, ErrUnsupported, "tag is required")
		})
	}
}

func TestCompile_XPath(t *testing.T) {
	frag, err := Compile(script.Top(), New("Div", "DIV", ByXPath, `//div[@title="a 'b'"]`))
	require.NoError(t, err)
	text := string(frag)
	assert.Contains(t, text, `document.evaluate("//div[@title=\"a 'b'\"]", document.documentElement, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null)`)
	assert.Contains(t, text, "var element = result ? result.singleNodeValue : null;")

	_, err = Compile(script.Top(), New("Div", "DIV", ByXPath, "  "))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestCompile_Class(t *testing.T) {
	frag, err := Compile(script.Top(), New("Div", "DIV", ByClass, "banner"))
	require.NoError(t, err)
	assert.Equal(t, `var element = document.getElementsByClassName("banner")[0];`, string(frag))
}

func TestCompile_InFrame(t *testing.T) {
	scope := script.Top().With(script.Frame("main"))
	frag, err := Compile(scope, New("TextField", "INPUT", ByID, "q"))
	require.NoError(t, err)
	assert.Equal(t, `var element = parent["main"].document.getElementById("q");`, string(frag))
}

func TestCompile_InCell(t *testing.T) {
	rule, err := CompileCell(Cell{Strategy: ByID, ID: "c1"})
	require.NoError(t, err)
	scope := script.Top().With(rule)

	frag, err := Compile(scope, NewIndex("Link", "A", 1))
	require.NoError(t, err)
	assert.Equal(t, `var element = __cell.getElementsByTagName("A")[0];`, string(frag))

	frag, err = Compile(scope, New("Link", "A", ByText, "Next"))
	require.NoError(t, err)
	assert.Contains(t, string(frag), `var elements = __cell.getElementsByTagName("A");`)

	frag, err = Compile(scope, New("Link", "A", ByXPath, ".//a"))
	require.NoError(t, err)
	assert.Contains(t, string(frag), `document.evaluate(".//a", __cell,`)
}

func TestCompile_UnknownStrategy(t *testing.T) {
	_, err := Compile(script.Top(), Locator{Strategy: Strategy(99), Element: "Div"})
	var unsupportedErr *UnsupportedError
	require.ErrorAs(t, err, &unsupportedErr)
	assert.Equal(t, "Div", unsupportedErr.Element)
}

func TestLocatorString(t *testing.T) {
	assert.Equal(t, "Link with text of /next/i", NewPattern("Link", "A", ByText, "next", true).String())
	assert.Equal(t, "element with index of 3", NewIndex("", "P", 3).String())
}
