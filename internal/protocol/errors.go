// internal/protocol/errors.go
package protocol

import (
	"errors"
	"fmt"
)

// Sentinel values for errors.Is. Each typed error below matches exactly one.
var (
	ErrUnknownObject = errors.New("unknown object")
	ErrUnknownCell   = errors.New("unknown table cell")
	ErrUnknownFrame  = errors.New("unknown frame")
)

// UnknownObjectError is returned when the located element does not exist.
type UnknownObjectError struct {
	Subject Subject
}

func (e *UnknownObjectError) Error() string {
	return fmt.Sprintf("unable to locate %s element with %s of %s", e.Subject.elementName(), e.Subject.How, e.Subject.What)
}

// Is reports whether target is ErrUnknownObject.
func (e *UnknownObjectError) Is(target error) bool { return target == ErrUnknownObject }

// UnknownCellError is returned when a cell scope does not resolve.
type UnknownCellError struct {
	Subject Subject
}

func (e *UnknownCellError) Error() string {
	cell := e.Subject.Cell
	if cell == "" {
		cell = fmt.Sprintf("%s of %s", e.Subject.How, e.Subject.What)
	}
	return "unable to locate a table cell: " + cell
}

func (e *UnknownCellError) Is(target error) bool { return target == ErrUnknownCell }

// UnknownFrameError is returned when a frame in the scope chain is missing.
type UnknownFrameError struct {
	Subject Subject
}

func (e *UnknownFrameError) Error() string {
	return fmt.Sprintf("unable to locate a frame with name %s", e.Subject.Frame)
}

func (e *UnknownFrameError) Is(target error) bool { return target == ErrUnknownFrame }

// HostError wraps a failure raised by the scripting host itself, as opposed
// to a sentinel reply from the script.
type HostError struct {
	Err error
}

func (e *HostError) Error() string {
	return "scripting host failed: " + e.Err.Error()
}

// Unwrap provides the underlying host error for use with errors.Is/As.
func (e *HostError) Unwrap() error {
	return e.Err
}
