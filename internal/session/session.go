// internal/session/session.go
// Package session is the caller-facing handle on one browser document. A
// Session owns its host, executor and synchronizer explicitly; nothing is
// process-global, so several sessions can drive several hosts side by side.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/docdriver/internal/host"
	"github.com/xkilldash9x/docdriver/internal/locator"
	"github.com/xkilldash9x/docdriver/internal/pageload"
	"github.com/xkilldash9x/docdriver/internal/protocol"
	"github.com/xkilldash9x/docdriver/internal/script"
)

// Config tunes a Session.
type Config struct {
	Sync pageload.Config
	// TypingLag is the pause before each simulated keystroke in SetText.
	TypingLag time.Duration
	// Sleeper overrides the synchronizer's clock, mainly for tests.
	Sleeper pageload.Sleeper
}

// DefaultConfig returns the stock page-load budget and no typing lag.
func DefaultConfig() Config {
	return Config{Sync: pageload.DefaultConfig()}
}

// Session drives the current document of one host. Derived sessions (Frame,
// InCell) share the host, executor and synchronizer but carry their own scope.
type Session struct {
	id     string
	exec   *protocol.Executor
	sync   *pageload.Synchronizer
	typing *rate.Limiter
	scope  script.Scope
	logger *zap.Logger
}

// windowOpener is implemented by hosts that can create their own window.
type windowOpener interface {
	EnsureWindow(ctx context.Context) error
}

// closer is implemented by hosts that own a browser process or tab.
type closer interface {
	Close(ctx context.Context) error
}

// New creates a Session at the top-level document of h.
func New(h host.Host, cfg Config, logger *zap.Logger) *Session {
	id := uuid.New().String()
	logger = logger.Named("session").With(zap.String("session_id", id))
	exec := protocol.NewExecutor(h, logger)

	typing := rate.NewLimiter(rate.Inf, 1)
	if cfg.TypingLag > 0 {
		typing = rate.NewLimiter(rate.Every(cfg.TypingLag), 1)
		// Drain the initial token so the first keystroke waits too.
		typing.Reserve()
	}
	return &Session{
		id:     id,
		exec:   exec,
		sync:   pageload.New(exec, cfg.Sync, cfg.Sleeper, logger),
		typing: typing,
		scope:  script.Top(),
		logger: logger,
	}
}

// ID uniquely identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Scope is the nested context scripts from this session run in.
func (s *Session) Scope() script.Scope { return s.scope }

// Open makes sure the host has a window to drive.
func (s *Session) Open(ctx context.Context) error {
	if w, ok := s.exec.Host().(windowOpener); ok {
		if err := w.EnsureWindow(ctx); err != nil {
			return &protocol.HostError{Err: err}
		}
	}
	return nil
}

// Close releases the host when it owns a browser.
func (s *Session) Close(ctx context.Context) error {
	if c, ok := s.exec.Host().(closer); ok {
		return c.Close(ctx)
	}
	return nil
}

func (s *Session) derive(scope script.Scope, fields ...zap.Field) *Session {
	child := *s
	child.scope = scope
	child.logger = s.logger.With(fields...)
	return &child
}

// Frame returns a session scoped to the named child frame of this session's
// window. The frame must exist now.
func (s *Session) Frame(ctx context.Context, name string) (*Session, error) {
	scope := s.scope.With(script.Frame(name))
	if _, err := s.exec.Execute(ctx, script.Wrap(scope, bodyFrameExists), protocol.FrameSubject(scope.FrameNames())); err != nil {
		return nil, err
	}
	return s.derive(scope, zap.Strings("frames", scope.FrameNames())), nil
}

// InCell returns a session whose element lookups start at a table cell. The
// cell is resolved on every call, so a missing cell surfaces as
// protocol.ErrUnknownCell from the operation that needed it.
func (s *Session) InCell(cell locator.Cell) (*Session, error) {
	rule, err := locator.CompileCell(cell)
	if err != nil {
		return nil, err
	}
	return s.derive(s.scope.With(rule), zap.String("cell", rule.Label())), nil
}

// --- Navigation ---

// Goto loads url in the top-level document and waits for it.
func (s *Session) Goto(ctx context.Context, url string) (pageload.Outcome, error) {
	return s.GotoWithDialog(ctx, url, "", false)
}

// GotoWithDialog loads url while pressing label on any system dialog that
// blocks the load, on the window's sheet when sheet is true.
func (s *Session) GotoWithDialog(ctx context.Context, url, label string, sheet bool) (pageload.Outcome, error) {
	var extra pageload.Extra
	if label != "" {
		extra = func(ctx context.Context) (bool, error) {
			return s.exec.PressDialog(ctx, label, sheet)
		}
	}
	s.logger.Info("Navigating.", zap.String("url", url))
	return s.sync.Await(ctx, script.Top(), func(ctx context.Context) error {
		if err := s.exec.Host().SetURL(ctx, url); err != nil {
			return &protocol.HostError{Err: err}
		}
		return nil
	}, extra)
}

// Reload reloads this session's document and waits for the top-level
// document to settle.
func (s *Session) Reload(ctx context.Context) (pageload.Outcome, error) {
	return s.sync.Await(ctx, script.Top(), func(ctx context.Context) error {
		_, err := s.exec.Execute(ctx, script.Wrap(s.scope, bodyReload(s.scope)), s.frameSubject())
		return err
	}, nil)
}

// URL returns the host's current URL.
func (s *Session) URL(ctx context.Context) (string, error) {
	u, err := s.exec.Host().URL(ctx)
	if err != nil {
		return "", &protocol.HostError{Err: err}
	}
	return u, nil
}

// --- Dialogs ---

// ClickAlert presses OK on a JavaScript alert. It reports whether one was
// showing.
func (s *Session) ClickAlert(ctx context.Context) (bool, error) {
	return s.exec.PressDialog(ctx, "OK", false)
}

// ClickSecurityWarning presses label on the window's security sheet.
func (s *Session) ClickSecurityWarning(ctx context.Context, label string) (bool, error) {
	return s.exec.PressDialog(ctx, label, true)
}

// --- Script plumbing ---

// Eval runs body in this session's scope. body may use `return`.
func (s *Session) Eval(ctx context.Context, body string) (any, error) {
	return s.exec.Execute(ctx, script.Wrap(s.scope, body), s.frameSubject())
}

// Compose returns the full script an element operation would send, without
// sending it.
func (s *Session) Compose(loc locator.Locator, operation string) (string, error) {
	return ComposeIn(s.scope, loc, operation)
}

// ComposeIn renders the script for operation on loc in scope.
func ComposeIn(scope script.Scope, loc locator.Locator, operation string) (string, error) {
	frag, err := locator.Compile(scope, loc)
	if err != nil {
		return "", err
	}
	return script.Compose(scope, frag, operation), nil
}

func (s *Session) operate(ctx context.Context, loc locator.Locator, operation string) (any, error) {
	text, err := s.Compose(loc, operation)
	if err != nil {
		return nil, err
	}
	return s.exec.Execute(ctx, text, s.subject(loc))
}

func (s *Session) subject(loc locator.Locator) protocol.Subject {
	return protocol.Subject{
		Element: loc.ElementName(),
		How:     loc.Strategy.String(),
		What:    loc.What(),
		Cell:    s.scope.CellLabel(),
		Frame:   strings.Join(s.scope.FrameNames(), "."),
	}
}

func (s *Session) frameSubject() protocol.Subject {
	subject := protocol.FrameSubject(s.scope.FrameNames())
	subject.Cell = s.scope.CellLabel()
	return subject
}

// asString converts a script reply to text. Null and undefined are "".
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// asBool converts a script reply to a boolean the way JavaScript would for
// the properties read here.
func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	case float64:
		return t != 0
	default:
		return false
	}
}

// downgrade turns a missing element into (false, nil).
func downgrade(err error) (bool, error) {
	if errors.Is(err, protocol.ErrUnknownObject) {
		return false, nil
	}
	return false, err
}
