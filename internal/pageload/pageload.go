// internal/pageload/pageload.go
// Package pageload waits for navigations to finish. The scripting host has no
// load events, so readiness is inferred by polling the document's ready-state
// and URL, then scanning for a meta-refresh that would redirect again.
package pageload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/docdriver/internal/protocol"
	"github.com/xkilldash9x/docdriver/internal/script"
)

// ErrTimeout matches any *TimeoutError.
var ErrTimeout = errors.New("page load timed out")

// TimeoutError reports that readiness was not observed within the poll budget.
type TimeoutError struct {
	Rounds   int
	Interval time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("unable to load page within %s", time.Duration(e.Rounds)*e.Interval)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// State is a step of the synchronizer's state machine.
type State int

const (
	Running State = iota
	Settling
	RedirectPending
	Complete
	TimedOut
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Settling:
		return "settling"
	case RedirectPending:
		return "redirect_pending"
	case Complete:
		return "complete"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Outcome describes how a wait ended.
type Outcome struct {
	State State
	// RedirectDelay is the meta-refresh delay that was honoured, if any.
	RedirectDelay time.Duration
	// Rounds is the number of polling rounds used.
	Rounds int
	// ExtraAction is true when the extra action ended the wait.
	ExtraAction bool
}

// Config tunes the polling loop.
type Config struct {
	MaxRounds    int
	InitialDelay time.Duration
	PollInterval time.Duration
	SettleDelay  time.Duration
}

// DefaultConfig returns the stock polling budget: ten one-second rounds.
func DefaultConfig() Config {
	return Config{
		MaxRounds:    10,
		InitialDelay: time.Second,
		PollInterval: time.Second,
		SettleDelay:  400 * time.Millisecond,
	}
}

// Sleeper blocks for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// RealSleeper sleeps on the wall clock.
var RealSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
})

// Action starts a navigation: setting the location, submitting a form,
// clicking a link.
type Action func(ctx context.Context) error

// Extra is the optional extra action tried at the start of every round.
// Returning true ends the wait successfully.
type Extra func(ctx context.Context) (bool, error)

// Synchronizer runs a navigation and blocks until the resulting page loads.
type Synchronizer struct {
	exec    *protocol.Executor
	cfg     Config
	sleeper Sleeper
	logger  *zap.Logger
}

// New creates a Synchronizer. A nil sleeper means RealSleeper.
func New(exec *protocol.Executor, cfg Config, sleeper Sleeper, logger *zap.Logger) *Synchronizer {
	if sleeper == nil {
		sleeper = RealSleeper
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultConfig().MaxRounds
	}
	return &Synchronizer{exec: exec, cfg: cfg, sleeper: sleeper, logger: logger.Named("pageload")}
}

// Config returns the synchronizer's polling budget.
func (s *Synchronizer) Config() Config { return s.cfg }

// Await runs navigate, then polls until the page in scope is loaded. extra
// may be nil.
func (s *Synchronizer) Await(ctx context.Context, scope script.Scope, navigate Action, extra Extra) (Outcome, error) {
	if err := navigate(ctx); err != nil {
		return Outcome{State: Running}, err
	}
	if err := s.sleeper.Sleep(ctx, s.cfg.InitialDelay); err != nil {
		return Outcome{State: Running}, err
	}

	for round := 1; round <= s.cfg.MaxRounds; round++ {
		// An open dialog can block script evaluation until it is answered, so
		// the extra action runs before the ready-state poll.
		if extra != nil {
			done, err := extra(ctx)
			if err != nil {
				return Outcome{State: Running, Rounds: round}, err
			}
			if done {
				s.logger.Debug("Extra action ended the wait.", zap.Int("round", round))
				return Outcome{State: Complete, Rounds: round, ExtraAction: true}, nil
			}
		}

		ready, err := s.ready(ctx, scope)
		if err != nil {
			return Outcome{State: Running, Rounds: round}, err
		}
		if ready {
			s.logger.Debug("Document ready.", zap.Int("round", round))
			return s.settle(ctx, scope, round)
		}

		if err := s.sleeper.Sleep(ctx, s.cfg.PollInterval); err != nil {
			return Outcome{State: Running, Rounds: round}, err
		}
	}

	s.logger.Warn("Page load timed out.", zap.Int("rounds", s.cfg.MaxRounds), zap.Duration("interval", s.cfg.PollInterval))
	return Outcome{State: TimedOut, Rounds: s.cfg.MaxRounds}, &TimeoutError{Rounds: s.cfg.MaxRounds, Interval: s.cfg.PollInterval}
}

func (s *Synchronizer) ready(ctx context.Context, scope script.Scope) (bool, error) {
	state, err := s.exec.Execute(ctx, readyStateScript(scope), frameSubject(scope))
	if err != nil {
		return false, err
	}
	if state != "complete" {
		return false, nil
	}
	url, err := s.exec.Host().URL(ctx)
	if err != nil {
		return false, &protocol.HostError{Err: err}
	}
	return strings.TrimSpace(url) != "", nil
}

func (s *Synchronizer) settle(ctx context.Context, scope script.Scope, round int) (Outcome, error) {
	out := Outcome{State: Settling, Rounds: round}
	if err := s.sleeper.Sleep(ctx, s.cfg.SettleDelay); err != nil {
		return out, err
	}

	reply, err := s.exec.Execute(ctx, metaRefreshScript(scope), frameSubject(scope))
	if err != nil {
		return out, err
	}
	content, _ := reply.(string)
	if content == "" || content == noRedirect {
		out.State = Complete
		return out, nil
	}

	out.State = RedirectPending
	out.RedirectDelay = time.Duration(RefreshDelay(content)) * time.Second
	s.logger.Debug("Honouring meta refresh.", zap.String("content", content), zap.Duration("delay", out.RedirectDelay))
	if err := s.sleeper.Sleep(ctx, out.RedirectDelay); err != nil {
		return out, err
	}
	out.State = Complete
	return out, nil
}

func frameSubject(scope script.Scope) protocol.Subject {
	subject := protocol.FrameSubject(scope.FrameNames())
	subject.Cell = scope.CellLabel()
	return subject
}
