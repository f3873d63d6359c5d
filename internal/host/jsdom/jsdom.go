// internal/host/jsdom/jsdom.go
// Package jsdom is an in-process scripting host. Scripts run in a goja VM
// against a static document parsed with golang.org/x/net/html. There is no
// layout, network or event loop: a navigation loads the page registered for
// its URL with Serve, and clicks, submits and dispatched events are recorded
// for the caller to inspect.
package jsdom

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Event is a side effect a script had on the document.
type Event struct {
	Type string // "click", "submit", "focus", "blur", "reload" or a dispatched event type
	Tag  string
	ID   string
}

// Host runs scripts against one document at a time. Scripts are serialized.
type Host struct {
	mu     sync.Mutex
	logger *zap.Logger

	pages map[string]string
	url   *url.URL
	root  *html.Node

	vm       *goja.Runtime
	doc      *goja.Object
	wrappers map[*html.Node]*goja.Object
	values   map[*html.Node]string
	selected map[*html.Node]bool
	// pending is a location assigned by the running script. It is applied
	// once the script returns.
	pending string

	navigations []string
	events      []Event
}

// New creates a Host with no document loaded.
func New(logger *zap.Logger) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{
		logger: logger.Named("jsdom"),
		pages:  make(map[string]string),
	}
}

// Serve registers markup as the page a navigation to rawURL loads.
func (h *Host) Serve(rawURL, markup string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pages[rawURL] = markup
}

// Load replaces the current document with markup served from rawURL.
func (h *Host) Load(rawURL, markup string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(rawURL, markup)
}

// Navigations lists every URL the document was sent to, in order.
func (h *Host) Navigations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.navigations...)
}

// Events lists the recorded side effects, in order.
func (h *Host) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// RunScript evaluates script as a program and returns its completion value.
// Integers come back as float64 so replies match the other hosts.
func (h *Host) RunScript(ctx context.Context, script string) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.root == nil {
		return nil, errors.New("no document loaded")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vm := h.vm
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	result, err := vm.RunString(script)
	stop()
	vm.ClearInterrupt()

	if err != nil {
		h.pending = ""
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("script interrupted: %w", context.Cause(ctx))
		}
		return nil, fmt.Errorf("javascript exception: %w", err)
	}

	reply := export(result)
	if target := h.pending; target != "" {
		h.pending = ""
		if err := h.navigate(target); err != nil {
			return nil, err
		}
	}
	return reply, nil
}

// URL returns the document's URL, empty while nothing is loaded.
func (h *Host) URL(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.url == nil {
		return "", nil
	}
	return h.url.String(), nil
}

// SetURL navigates the document to rawURL.
func (h *Host) SetURL(ctx context.Context, rawURL string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.navigate(rawURL)
}

func (h *Host) load(rawURL, markup string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid document url %q: %w", rawURL, err)
	}
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	h.url, h.root = u, root
	h.wrappers = make(map[*html.Node]*goja.Object)
	h.values = make(map[*html.Node]string)
	h.selected = make(map[*html.Node]bool)
	h.vm = goja.New()
	h.install()
	h.logger.Debug("Document loaded.", zap.String("url", u.String()))
	return nil
}

// navigate records target and loads its page when one is served. Otherwise
// the document stays and only the URL moves.
func (h *Host) navigate(target string) error {
	next := h.resolve(target)
	h.navigations = append(h.navigations, next)
	if markup, ok := h.pages[next]; ok {
		return h.load(next, markup)
	}
	u, err := url.Parse(next)
	if err != nil {
		return fmt.Errorf("invalid navigation target %q: %w", target, err)
	}
	h.url = u
	h.logger.Debug("Navigated to an unserved page.", zap.String("url", next))
	return nil
}

func (h *Host) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if h.url == nil {
		return ref
	}
	u, err := h.url.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

func (h *Host) record(kind string, n *html.Node) {
	ev := Event{Type: kind}
	if n != nil {
		ev.Tag = strings.ToUpper(n.Data)
		ev.ID, _ = attr(n, "id")
	}
	h.events = append(h.events, ev)
}

// export converts a completion value to the JSON-scalar shapes hosts reply with.
func export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return normalize(v.Export())
}

func normalize(x any) any {
	switch t := x.(type) {
	case int64:
		return float64(t)
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	case map[string]any:
		for k, v := range t {
			t[k] = normalize(v)
		}
		return t
	default:
		return x
	}
}
