// internal/session/session_dom_test.go
package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/docdriver/internal/host/jsdom"
	"github.com/xkilldash9x/docdriver/internal/locator"
	"github.com/xkilldash9x/docdriver/internal/pageload"
)

const homeURL = "http://example.test/shop/index.html"

const homePage = `<html><head><title>Shop</title></head><body>
<a href="cart.html" id="cart">Cart</a>
<a href="help.html" target="_top">Help</a>
<input name="q" id="q" value="old">
<table id="orders"><tr><td id="c1"><a href="order.html">Open</a></td></tr></table>
</body></html>`

const plainPage = `<html><head><title>Plain</title></head><body>no table here</body></html>`

func newDOMSession(t *testing.T, markup string) (*Session, *jsdom.Host) {
	t.Helper()
	h := jsdom.New(zaptest.NewLogger(t))
	require.NoError(t, h.Load(homeURL, markup))
	cfg := DefaultConfig()
	cfg.Sleeper = &noSleep{}
	return New(h, cfg, zaptest.NewLogger(t)), h
}

func TestDOM_ClickLinkWithoutTargetNavigatesTop(t *testing.T) {
	s, h := newDOMSession(t, homePage)
	h.Serve("http://example.test/shop/cart.html", plainPage)

	out, err := s.ClickLink(context.Background(), locator.New("Link", "A", locator.ByText, "Cart"))
	require.NoError(t, err)
	assert.Equal(t, pageload.Complete, out.State)
	assert.Equal(t, []string{"http://example.test/shop/cart.html"}, h.Navigations())

	title, err := s.Title(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Plain", title)
}

func TestDOM_ClickLinkTopTarget(t *testing.T) {
	s, h := newDOMSession(t, homePage)

	_, err := s.ClickLink(context.Background(), locator.New("Link", "A", locator.ByURL, "http://example.test/shop/help.html"))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example.test/shop/help.html"}, h.Navigations())
}

func TestDOM_ClickInCellAfterCellIsGone(t *testing.T) {
	s, h := newDOMSession(t, homePage)
	h.Serve("http://example.test/shop/order.html", plainPage)

	cell, err := s.InCell(locator.Cell{Strategy: locator.ByID, ID: "c1"})
	require.NoError(t, err)

	out, err := cell.Click(context.Background(), locator.NewIndex("Link", "A", 1))
	require.NoError(t, err)
	assert.Equal(t, pageload.Complete, out.State)
	assert.Equal(t, []string{"http://example.test/shop/order.html"}, h.Navigations())

	_, err = cell.GetText(context.Background(), locator.NewIndex("Link", "A", 1))
	assert.EqualError(t, err, `unable to locate a table cell: cell "c1"`)
}

func TestDOM_SetTextAndReadBack(t *testing.T) {
	s, h := newDOMSession(t, homePage)
	field := locator.New("TextField", "INPUT", locator.ByID, "q")

	require.NoError(t, s.SetText(context.Background(), field, "shoes"))
	v, err := s.GetValue(context.Background(), field)
	require.NoError(t, err)
	assert.Equal(t, "shoes", v)

	changes := 0
	for _, ev := range h.Events() {
		if ev.Type == "change" && ev.ID == "q" {
			changes++
		}
	}
	assert.Equal(t, 5, changes, "one change event per keystroke")

	exists, err := s.Exists(context.Background(), locator.NewIndex("TextField", "INPUT", 2))
	require.NoError(t, err)
	assert.False(t, exists)
}
