// internal/host/safari/safari.go
// Package safari drives Safari through AppleScript. Every call shells out to
// osascript with the AppleScript on stdin, so nothing needs to be escaped for
// a shell.
package safari

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/docdriver/internal/host"
	"github.com/xkilldash9x/docdriver/internal/sentinel"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	_ host.Host          = (*Host)(nil)
	_ host.DialogPresser = (*Host)(nil)
)

// execCommandContext is a package-level variable to allow mocking in tests.
var execCommandContext = exec.CommandContext

// missingValue is what osascript prints for an AppleScript `missing value`,
// which is how an undefined JavaScript completion value comes back.
const missingValue = "missing value"

// Options configures the adapter.
type Options struct {
	// AppName is the scriptable application, "Safari" unless a technology
	// preview or a renamed bundle is targeted.
	AppName string
	// OSAScript is the path of the osascript binary.
	OSAScript string
	// Timeout bounds each osascript invocation. Zero means no bound beyond ctx.
	Timeout time.Duration
}

// Host runs scripts in the front document of a Safari window.
type Host struct {
	opts   Options
	logger *zap.Logger
}

// New creates a Safari host adapter. It does not touch the application until
// the first call.
func New(opts Options, logger *zap.Logger) *Host {
	if opts.AppName == "" {
		opts.AppName = "Safari"
	}
	if opts.OSAScript == "" {
		opts.OSAScript = "osascript"
	}
	return &Host{opts: opts, logger: logger.Named("safari")}
}

// EnsureWindow activates the application and opens a document if none is open.
func (h *Host) EnsureWindow(ctx context.Context) error {
	_, err := h.osascript(ctx, h.tell(`activate
if (count of documents) is 0 then make new document`))
	return err
}

// RunScript evaluates js in document 1. The completion value is serialized to
// JSON inside the page so that numbers, booleans and null survive the trip
// through AppleScript's string coercion.
func (h *Host) RunScript(ctx context.Context, js string) (any, error) {
	wrapped, err := json.MarshalToString(js)
	if err != nil {
		return nil, fmt.Errorf("failed to encode script: %w", err)
	}
	expr := "JSON.stringify(eval(" + wrapped + "))"
	out, err := h.osascript(ctx, h.tellLine(`do JavaScript "`+Escape(expr)+`" in document 1`))
	if err != nil {
		return nil, err
	}
	return decodeReply(out), nil
}

// URL returns the URL of document 1, or "" while it has none.
func (h *Host) URL(ctx context.Context) (string, error) {
	out, err := h.osascript(ctx, h.tellLine("get URL of document 1"))
	if err != nil {
		return "", err
	}
	if out == missingValue {
		return "", nil
	}
	return out, nil
}

// SetURL points document 1 at url. Safari returns as soon as the navigation
// starts.
func (h *Host) SetURL(ctx context.Context, url string) error {
	_, err := h.osascript(ctx, h.tellLine(`set URL of document 1 to "`+Escape(url)+`"`))
	return err
}

// PressButton clicks a button on a JavaScript alert, or on the window's sheet
// when sheet is true. It needs assistive access for System Events. The reply
// carries the extra-action sentinel when the button was found and clicked.
func (h *Host) PressButton(ctx context.Context, label string, sheet bool) (string, error) {
	return h.osascript(ctx, dialogScript(h.opts.AppName, label, sheet))
}

// Close quits the application.
func (h *Host) Close(ctx context.Context) error {
	_, err := h.osascript(ctx, h.tellLine("quit"))
	return err
}

func (h *Host) tell(body string) string {
	return fmt.Sprintf("tell application \"%s\"\n%s\nend tell", Escape(h.opts.AppName), body)
}

func (h *Host) tellLine(command string) string {
	return fmt.Sprintf("tell application \"%s\" to %s", Escape(h.opts.AppName), command)
}

func (h *Host) osascript(ctx context.Context, source string) (string, error) {
	if h.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.Timeout)
		defer cancel()
	}

	cmd := execCommandContext(ctx, h.opts.OSAScript, "-")
	cmd.Stdin = strings.NewReader(source)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("osascript interrupted: %w", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		h.logger.Debug("osascript failed.", zap.Error(err), zap.String("stderr", msg))
		return "", fmt.Errorf("osascript failed: %w: %s", err, msg)
	}
	return strings.TrimRight(stdout.String(), "\r\n"), nil
}

// Escape quotes s for use inside an AppleScript string literal.
func Escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func decodeReply(out string) any {
	if out == "" || out == missingValue {
		return nil
	}
	var v any
	if err := json.UnmarshalFromString(out, &v); err != nil {
		// Not JSON; hand back what AppleScript printed.
		return out
	}
	return v
}

func dialogScript(app, label string, sheet bool) string {
	button := `button named "` + Escape(label) + `"`
	success := `return "` + sentinel.Literal(sentinel.ExtraActionSuccess) + `"`

	var b strings.Builder
	fmt.Fprintf(&b, "tell application \"System Events\" to tell process \"%s\"\n", Escape(app))
	b.WriteString("\ttell window 1\n")
	if sheet {
		b.WriteString("\t\ttell sheet 1\n\t\t\ttell group 2\n")
		fmt.Fprintf(&b, "\t\t\t\tif %s exists then\n\t\t\t\t\tclick %s\n\t\t\t\t\t%s\n\t\t\t\tend if\n", button, button, success)
		b.WriteString("\t\t\tend tell\n\t\tend tell\n")
	} else {
		fmt.Fprintf(&b, "\t\tif %s exists then\n\t\t\tclick %s\n\t\t\t%s\n\t\tend if\n", button, button, success)
	}
	b.WriteString("\tend tell\nend tell")
	return b.String()
}
