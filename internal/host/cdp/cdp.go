// internal/host/cdp/cdp.go
// Package cdp runs scripts in a Chromium tab over the DevTools protocol. It
// gives the same host contract as the Safari adapter on platforms without
// AppleScript, and lets the core run against a headless browser.
package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/docdriver/internal/host"
	"github.com/xkilldash9x/docdriver/internal/sentinel"
)

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	_ host.Host          = (*Host)(nil)
	_ host.DialogPresser = (*Host)(nil)
)

// Options configures the browser connection.
type Options struct {
	// RemoteURL attaches to an already running browser's DevTools endpoint
	// (ws://...). When empty a local browser is launched.
	RemoteURL string
	Headless  bool
	// Timeout bounds each protocol round trip. Zero means no bound beyond ctx.
	Timeout time.Duration
}

// Host owns one browser tab.
type Host struct {
	ctx    context.Context // tab context, from chromedp.NewContext
	cancel context.CancelFunc
	logger *zap.Logger
	opts   Options

	dialogOpen atomic.Bool

	runActionsFunc func(ctx context.Context, actions ...chromedp.Action) error
	evalFunc       func(ctx context.Context, expression string) (json.RawMessage, error)
}

// New launches or attaches to a browser and opens a tab. The tab lives until
// Close is called or parent is canceled.
func New(parent context.Context, opts Options, logger *zap.Logger) (*Host, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(parent, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.DisableGPU,
			chromedp.Flag("headless", opts.Headless),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(parent, allocOpts...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	h := newHost(tabCtx, func() {
		tabCancel()
		allocCancel()
	}, opts, logger)

	chromedp.ListenTarget(tabCtx, h.onEvent)
	// The first Run starts the browser and attaches to the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		h.cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return h, nil
}

func newHost(ctx context.Context, cancel context.CancelFunc, opts Options, logger *zap.Logger) *Host {
	h := &Host{ctx: ctx, cancel: cancel, opts: opts, logger: logger.Named("cdp")}
	h.runActionsFunc = h.runActions
	h.evalFunc = h.evaluate
	return h
}

// RunScript evaluates script in the tab's main frame and returns its
// completion value by value.
func (h *Host) RunScript(ctx context.Context, script string) (any, error) {
	raw, err := h.evalFunc(ctx, script)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := jsonIter.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode script result: %w (payload: %s)", err, string(raw))
	}
	return v, nil
}

// URL returns the tab's location. A fresh tab's about:blank counts as no URL.
func (h *Host) URL(ctx context.Context) (string, error) {
	v, err := h.RunScript(ctx, "window.location.href")
	if err != nil {
		return "", err
	}
	u, _ := v.(string)
	if u == "about:blank" {
		return "", nil
	}
	return u, nil
}

// SetURL assigns the tab's location and returns without waiting for the load.
func (h *Host) SetURL(ctx context.Context, url string) error {
	quoted, err := jsonIter.MarshalToString(url)
	if err != nil {
		return err
	}
	_, err = h.evalFunc(ctx, "window.location.href = "+quoted+"; undefined")
	return err
}

// PressButton answers a pending JavaScript dialog. Tabs have no sheets, so
// sheet is ignored; a label of "Cancel" dismisses, anything else accepts.
func (h *Host) PressButton(ctx context.Context, label string, sheet bool) (string, error) {
	if !h.dialogOpen.Load() {
		return "", nil
	}
	accept := !strings.EqualFold(label, "Cancel")
	if err := h.runActionsFunc(ctx, page.HandleJavaScriptDialog(accept)); err != nil {
		return "", fmt.Errorf("failed to handle dialog: %w", err)
	}
	h.dialogOpen.Store(false)
	return sentinel.Literal(sentinel.ExtraActionSuccess), nil
}

// Close closes the tab and, when launched locally, the browser.
func (h *Host) Close(ctx context.Context) error {
	h.cancel()
	return nil
}

func (h *Host) onEvent(ev any) {
	switch e := ev.(type) {
	case *page.EventJavascriptDialogOpening:
		h.logger.Debug("JavaScript dialog opened.", zap.String("type", e.Type.String()), zap.String("message", e.Message))
		h.dialogOpen.Store(true)
	case *page.EventJavascriptDialogClosed:
		h.dialogOpen.Store(false)
	}
}

func (h *Host) evaluate(ctx context.Context, expression string) (json.RawMessage, error) {
	var res json.RawMessage
	err := h.runActionsFunc(ctx,
		chromedp.Evaluate(expression, &res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
		}),
	)
	if errors.Is(err, chromedp.ErrJSUndefined) || errors.Is(err, chromedp.ErrJSNull) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// runActions runs actions on the tab, bounded by both ctx and the tab's
// lifetime.
func (h *Host) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if h.opts.Timeout > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(runCtx, h.opts.Timeout)
		defer timeoutCancel()
	}

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
