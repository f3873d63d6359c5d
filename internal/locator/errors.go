// internal/locator/errors.go
package locator

import (
	"errors"
	"fmt"
)

// ErrUnsupported matches every compile-time locator error via errors.Is.
var ErrUnsupported = errors.New("unsupported locator")

// UnsupportedError reports a strategy/element combination that cannot be
// compiled. It is raised before anything is sent to the host and is never
// worth retrying.
type UnsupportedError struct {
	Element  string
	Strategy string
	Reason   string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s element does not support %s: %s", e.Element, e.Strategy, e.Reason)
}

// Is lets errors.Is(err, ErrUnsupported) match.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

func unsupported(l Locator, format string, args ...any) error {
	return &UnsupportedError{
		Element:  l.ElementName(),
		Strategy: l.Strategy.String(),
		Reason:   fmt.Sprintf(format, args...),
	}
}
