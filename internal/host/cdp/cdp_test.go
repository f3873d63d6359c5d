// internal/host/cdp/cdp_test.go
package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/docdriver/internal/sentinel"
)

// newTestHost returns a Host with no browser behind it. Evaluation goes
// through eval, and protocol actions are counted instead of sent.
func newTestHost(t *testing.T, eval func(ctx context.Context, expr string) (json.RawMessage, error)) (*Host, *int) {
	t.Helper()
	h := newHost(context.Background(), func() {}, Options{}, zaptest.NewLogger(t))
	h.evalFunc = eval
	calls := 0
	h.runActionsFunc = func(ctx context.Context, actions ...chromedp.Action) error {
		calls += len(actions)
		return nil
	}
	return h, &calls
}

func reply(raw string) func(context.Context, string) (json.RawMessage, error) {
	return func(context.Context, string) (json.RawMessage, error) {
		if raw == "" {
			return nil, nil
		}
		return json.RawMessage(raw), nil
	}
}

func TestRunScript(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{raw: `"hello"`, want: "hello"},
		{raw: `7`, want: float64(7)},
		{raw: `false`, want: false},
		{raw: `null`, want: nil},
		{raw: ``, want: nil},
		{raw: `{"a":[1,2]}`, want: map[string]any{"a": []any{float64(1), float64(2)}}},
	}
	for _, tt := range tests {
		h, _ := newTestHost(t, reply(tt.raw))
		got, err := h.RunScript(context.Background(), "1")
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestRunScript_Errors(t *testing.T) {
	boom := errors.New("target closed")
	h, _ := newTestHost(t, func(context.Context, string) (json.RawMessage, error) { return nil, boom })
	_, err := h.RunScript(context.Background(), "1")
	assert.ErrorIs(t, err, boom)

	h, _ = newTestHost(t, reply(`{broken`))
	_, err = h.RunScript(context.Background(), "1")
	assert.Error(t, err)
}

func TestURL(t *testing.T) {
	h, _ := newTestHost(t, reply(`"about:blank"`))
	u, err := h.URL(context.Background())
	require.NoError(t, err)
	assert.Empty(t, u)

	h, _ = newTestHost(t, reply(`"https://example.test/a"`))
	u, err = h.URL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/a", u)
}

func TestSetURL(t *testing.T) {
	var sent string
	h, _ := newTestHost(t, func(_ context.Context, expr string) (json.RawMessage, error) {
		sent = expr
		return nil, nil
	})
	require.NoError(t, h.SetURL(context.Background(), `https://example.test/?q="x"`))
	assert.Equal(t, `window.location.href = "https://example.test/?q=\"x\""; undefined`, sent)
}

func TestPressButton(t *testing.T) {
	h, calls := newTestHost(t, reply(""))

	got, err := h.PressButton(context.Background(), "OK", false)
	require.NoError(t, err)
	assert.Empty(t, got, "no dialog is open")
	assert.Zero(t, *calls)

	h.onEvent(&page.EventJavascriptDialogOpening{Type: page.DialogTypeAlert, Message: "hi"})
	got, err = h.PressButton(context.Background(), "OK", false)
	require.NoError(t, err)
	assert.Equal(t, sentinel.Literal(sentinel.ExtraActionSuccess), got)
	assert.Equal(t, 1, *calls)
	assert.False(t, h.dialogOpen.Load())

	h.onEvent(&page.EventJavascriptDialogOpening{Type: page.DialogTypeConfirm})
	h.onEvent(&page.EventJavascriptDialogClosed{})
	got, err = h.PressButton(context.Background(), "Cancel", false)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestChromium exercises a real browser. It needs Chrome on PATH.
func TestChromium(t *testing.T) {
	if testing.Short() || os.Getenv("DOCDRIVER_CDP_INTEGRATION") != "1" {
		t.Skip("set DOCDRIVER_CDP_INTEGRATION=1 to run against a local Chrome")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	h, err := New(ctx, Options{Headless: true, Timeout: 10 * time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer h.Close(ctx)

	got, err := h.RunScript(ctx, `(function() { return document.readyState; })()`)
	require.NoError(t, err)
	assert.Equal(t, "complete", got)

	got, err = h.RunScript(ctx, `undefined`)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, h.SetURL(ctx, "data:text/html,<title>t</title><p id=x>hi</p>"))
	require.Eventually(t, func() bool {
		v, err := h.RunScript(ctx, `document.title`)
		return err == nil && v == "t"
	}, 10*time.Second, 100*time.Millisecond)
}
