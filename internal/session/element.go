// internal/session/element.go
package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xkilldash9x/docdriver/internal/locator"
	"github.com/xkilldash9x/docdriver/internal/pageload"
	"github.com/xkilldash9x/docdriver/internal/protocol"
	"github.com/xkilldash9x/docdriver/internal/script"
)

// --- Reads ---

// GetText returns the element's rendered text.
func (s *Session) GetText(ctx context.Context, loc locator.Locator) (string, error) {
	v, err := s.operate(ctx, loc, opText)
	return asString(v), err
}

// GetHTML returns the element's inner HTML.
func (s *Session) GetHTML(ctx context.Context, loc locator.Locator) (string, error) {
	v, err := s.operate(ctx, loc, opHTML)
	return asString(v), err
}

// GetValue returns the element's value property.
func (s *Session) GetValue(ctx context.Context, loc locator.Locator) (string, error) {
	v, err := s.operate(ctx, loc, opValue)
	return asString(v), err
}

// GetAttribute returns the named attribute, "" when absent.
func (s *Session) GetAttribute(ctx context.Context, loc locator.Locator, name string) (string, error) {
	v, err := s.operate(ctx, loc, opAttribute(name))
	return asString(v), err
}

// IsChecked reports a checkbox's or radio button's checked state.
func (s *Session) IsChecked(ctx context.Context, loc locator.Locator) (bool, error) {
	v, err := s.operate(ctx, loc, opChecked)
	return asBool(v), err
}

// IsDisabled reports whether the element is disabled.
func (s *Session) IsDisabled(ctx context.Context, loc locator.Locator) (bool, error) {
	v, err := s.operate(ctx, loc, opDisabled)
	return asBool(v), err
}

// Exists reports whether loc matches a node. Only a missing element is
// reported as false; a missing frame or cell is still an error.
func (s *Session) Exists(ctx context.Context, loc locator.Locator) (bool, error) {
	if _, err := s.operate(ctx, loc, ""); err != nil {
		return downgrade(err)
	}
	return true, nil
}

// --- Actions ---

// Focus gives the element keyboard focus.
func (s *Session) Focus(ctx context.Context, loc locator.Locator) error {
	_, err := s.operate(ctx, loc, opFocus)
	return err
}

// Blur removes keyboard focus from the element.
func (s *Session) Blur(ctx context.Context, loc locator.Locator) error {
	_, err := s.operate(ctx, loc, opBlur)
	return err
}

// Highlight paints the element yellow while fn runs, then restores its
// background. The restore is best effort: fn may have navigated away.
func (s *Session) Highlight(ctx context.Context, loc locator.Locator, fn func(ctx context.Context) error) error {
	if _, err := s.operate(ctx, loc, opHighlight); err != nil {
		return err
	}
	fnErr := fn(ctx)

	if restore, err := s.Compose(loc, opUnhighlight); err == nil {
		s.exec.ExecuteIgnoring(ctx, restore)
	}
	return fnErr
}

// Click clicks the element and waits for any page load it starts.
func (s *Session) Click(ctx context.Context, loc locator.Locator) (pageload.Outcome, error) {
	return s.await(ctx, loc, opClick(s.scope))
}

// ClickLink follows a link by setting the target window's location, which
// also works for links whose click handler the host will not run.
func (s *Session) ClickLink(ctx context.Context, loc locator.Locator) (pageload.Outcome, error) {
	return s.await(ctx, loc, opClickLink(s.scope))
}

// Submit submits a form and waits for the response page.
func (s *Session) Submit(ctx context.Context, loc locator.Locator) (pageload.Outcome, error) {
	return s.await(ctx, loc, opSubmit)
}

func (s *Session) await(ctx context.Context, loc locator.Locator, operation string) (pageload.Outcome, error) {
	text, err := s.Compose(loc, operation)
	if err != nil {
		return pageload.Outcome{}, err
	}
	s.logger.Debug("Operating and waiting for load.", zap.Stringer("locator", loc))
	// The navigation may replace the frame or cell this session was scoped
	// to, so readiness is polled on the top-level document.
	return s.sync.Await(ctx, script.Top(), func(ctx context.Context) error {
		_, err := s.exec.Execute(ctx, text, s.subject(loc))
		return err
	}, nil)
}

// --- Select lists ---

// SelectOption selects the first option of the list whose text (or value)
// equals what. A missing option is reported like a missing element.
func (s *Session) SelectOption(ctx context.Context, list locator.Locator, by OptionBy, what string) error {
	_, err := s.operate(ctx, list, opSelect(by, what))
	return err
}

// OptionExists reports whether the list has an option matching what.
func (s *Session) OptionExists(ctx context.Context, list locator.Locator, by OptionBy, what string) (bool, error) {
	if _, err := s.operate(ctx, list, opOptionExists(by, what)); err != nil {
		return downgrade(err)
	}
	return true, nil
}

// OptionSelected reports whether an option matching what is selected.
func (s *Session) OptionSelected(ctx context.Context, list locator.Locator, by OptionBy, what string) (bool, error) {
	v, err := s.operate(ctx, list, opOptionSelected(by, what))
	if err != nil {
		return downgrade(err)
	}
	return asBool(v), nil
}

// SelectedOptions returns the texts of the selected options.
func (s *Session) SelectedOptions(ctx context.Context, list locator.Locator) ([]string, error) {
	v, err := s.operate(ctx, list, opSelectedTexts())
	if err != nil {
		return nil, err
	}
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, asString(item))
	}
	return out, nil
}

// --- Text entry ---

// ClearText empties a text field.
func (s *Session) ClearText(ctx context.Context, loc locator.Locator) error {
	_, err := s.operate(ctx, loc, opClear)
	return err
}

// AppendText appends text to a field's value and fires change.
func (s *Session) AppendText(ctx context.Context, loc locator.Locator, text string) error {
	if err := s.typing.Wait(ctx); err != nil {
		return err
	}
	_, err := s.operate(ctx, loc, opAppend(text))
	return err
}

// SetText clears the field, then types text one character at a time so that
// per-keystroke change handlers see every intermediate value.
func (s *Session) SetText(ctx context.Context, loc locator.Locator, text string) error {
	if err := s.ClearText(ctx, loc); err != nil {
		return err
	}
	for _, r := range text {
		if err := s.AppendText(ctx, loc, string(r)); err != nil {
			var objErr *protocol.UnknownObjectError
			if errors.As(err, &objErr) {
				s.logger.Warn("Field disappeared while typing.", zap.Stringer("locator", loc))
			}
			return err
		}
	}
	return nil
}
