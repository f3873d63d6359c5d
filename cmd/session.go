// File: cmd/session.go
package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/docdriver/internal/config"
	"github.com/xkilldash9x/docdriver/internal/host"
	"github.com/xkilldash9x/docdriver/internal/host/cdp"
	"github.com/xkilldash9x/docdriver/internal/host/jsdom"
	"github.com/xkilldash9x/docdriver/internal/host/safari"
	"github.com/xkilldash9x/docdriver/internal/observability"
	"github.com/xkilldash9x/docdriver/internal/pageload"
	"github.com/xkilldash9x/docdriver/internal/session"
)

// newHost builds the configured scripting host. The returned release func
// tears down anything the host launched. Replaced in tests.
var newHost = func(ctx context.Context, cfg config.HostConfig, logger *zap.Logger) (host.Host, func(context.Context) error, error) {
	switch cfg.Backend {
	case config.BackendCDP:
		h, err := cdp.New(ctx, cdp.Options{
			RemoteURL: cfg.RemoteURL,
			Headless:  cfg.Headless,
			Timeout:   cfg.ScriptTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return h, h.Close, nil
	case config.BackendSafari:
		h := safari.New(safari.Options{
			AppName:   cfg.AppName,
			OSAScript: cfg.OSAScriptPath,
			Timeout:   cfg.ScriptTimeout,
		}, logger)
		// Safari outlives a single command so the next one finds the same
		// document.
		return h, func(context.Context) error { return nil }, nil
	case config.BackendOffline:
		data, err := os.ReadFile(cfg.Document)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read document: %w", err)
		}
		u := cfg.DocumentURL
		if u == "" {
			abs, err := filepath.Abs(cfg.Document)
			if err != nil {
				return nil, nil, err
			}
			u = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
		}
		h := jsdom.New(logger)
		if err := h.Load(u, string(data)); err != nil {
			return nil, nil, err
		}
		return h, func(context.Context) error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown host backend %q", cfg.Backend)
	}
}

// sessionConfig maps the sync and typing sections onto session.Config.
func sessionConfig(cfg config.Interface) session.Config {
	sc := cfg.Sync()
	return session.Config{
		Sync: pageload.Config{
			MaxRounds:    sc.MaxRounds,
			InitialDelay: sc.InitialDelay,
			PollInterval: sc.PollInterval,
			SettleDelay:  sc.SettleDelay,
		},
		TypingLag: cfg.Typing().Lag,
	}
}

// withSession opens a session on the configured host, narrows it to the
// --frame chain and --cell when f is given, and runs fn.
func withSession(cmd *cobra.Command, f *locateFlags, fn func(ctx context.Context, s *session.Session) error) error {
	ctx := cmd.Context()
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	logger := observability.GetLogger()

	h, release, err := newHost(ctx, cfg.Host(), logger)
	if err != nil {
		return fmt.Errorf("failed to start %s host: %w", cfg.Host().Backend, err)
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			logger.Warn("Failed to release host.", zap.Error(rerr))
		}
	}()

	s := session.New(h, sessionConfig(cfg), logger)
	if err := s.Open(ctx); err != nil {
		return err
	}
	if f != nil {
		for _, name := range f.frames {
			if s, err = s.Frame(ctx, name); err != nil {
				return err
			}
		}
		if s, err = f.narrow(s); err != nil {
			return err
		}
	}
	return fn(ctx, s)
}
