// internal/protocol/executor.go
// Package protocol sends composed scripts to the scripting host and turns
// sentinel replies into typed errors. It is the only place sentinel replies
// are decoded.
package protocol

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/docdriver/internal/host"
	"github.com/xkilldash9x/docdriver/internal/sentinel"
)

// Subject describes what a script targeted, for error messages.
type Subject struct {
	Element string // element kind, e.g. "TextField"
	How     string // locator strategy
	What    string // locator value
	Cell    string // cell scope description, when scoped to a cell
	Frame   string // frame chain, when scoped to frames
}

func (s Subject) elementName() string {
	if s.Element == "" {
		return "element"
	}
	return s.Element
}

// FrameSubject builds the Subject for a frame chain, outermost first.
func FrameSubject(frames []string) Subject {
	return Subject{Element: "Frame", Frame: strings.Join(frames, ".")}
}

// Executor runs one script at a time against a host.
type Executor struct {
	host   host.Host
	logger *zap.Logger
	sem    *semaphore.Weighted
}

// NewExecutor creates an Executor bound to h.
func NewExecutor(h host.Host, logger *zap.Logger) *Executor {
	return &Executor{
		host:   h,
		logger: logger.Named("protocol"),
		sem:    semaphore.NewWeighted(1),
	}
}

// Host returns the host the executor talks to.
func (e *Executor) Host() host.Host { return e.host }

// Execute runs script and decodes the reply. Sentinel replies map to typed
// errors, NoResponse maps to (nil, nil), anything else is returned as is.
func (e *Executor) Execute(ctx context.Context, script string, subject Subject) (any, error) {
	reply, err := e.run(ctx, script)
	if err != nil {
		return nil, err
	}

	switch sentinel.Decode(reply) {
	case sentinel.NoResponse:
		return nil, nil
	case sentinel.ElementNotFound:
		return nil, &UnknownObjectError{Subject: subject}
	case sentinel.CellNotFound:
		return nil, &UnknownCellError{Subject: subject}
	case sentinel.FrameNotFound:
		return nil, &UnknownFrameError{Subject: subject}
	default:
		return reply, nil
	}
}

// ExecuteIgnoring runs script for its side effects. The reply and any error
// are discarded.
func (e *Executor) ExecuteIgnoring(ctx context.Context, script string) {
	if _, err := e.run(ctx, script); err != nil {
		e.logger.Debug("Ignored script failure.", zap.Error(err))
	}
}

// PressDialog presses label on the host's system dialog, if the host has
// such a channel. It reports true only when the host confirms the press.
func (e *Executor) PressDialog(ctx context.Context, label string, sheet bool) (bool, error) {
	presser, ok := e.host.(host.DialogPresser)
	if !ok {
		return false, nil
	}
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer e.sem.Release(1)

	reply, err := presser.PressButton(ctx, label, sheet)
	if err != nil {
		return false, &HostError{Err: err}
	}
	return sentinel.Decode(strings.TrimSpace(reply)) == sentinel.ExtraActionSuccess, nil
}

func (e *Executor) run(ctx context.Context, script string) (any, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	e.logger.Debug("Running script.", zap.Int("bytes", len(script)))
	reply, err := e.host.RunScript(ctx, script)
	if err != nil {
		return nil, &HostError{Err: err}
	}
	return reply, nil
}
