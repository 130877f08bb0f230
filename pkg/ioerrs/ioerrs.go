// Package ioerrs provides the structured error taxonomy shared by every
// protocol client and the orchestrator.
package ioerrs

import "fmt"

// Kind classifies a failure so callers can react without string matching.
type Kind string

const (
	// KindInvalidInput covers malformed directives and bad arguments.
	KindInvalidInput Kind = "invalid_input"
	// KindNoDevice covers an unknown or unreachable interface.
	KindNoDevice Kind = "nodev"
	// KindTimeout covers a protocol exhausting its retry budget.
	KindTimeout Kind = "timeout"
	// KindCancelled covers an explicit protocol refusal (DHCPv4 NAK).
	KindCancelled Kind = "cancelled"
	// KindProtocol covers unexpected wire content or failed consistency checks.
	KindProtocol Kind = "protocol"
	// KindIO covers a failed call into the stack collaborator.
	KindIO Kind = "io"
)

// Error is a structured, wrapped error carrying a Kind and the component
// that raised it.
type Error struct {
	Kind      Kind
	Component string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Component, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Component, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ioerrs.New("", ioerrs.KindTimeout, "")) match any
// *Error of the same Kind, whatever its component and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error for the given component/kind.
func New(component string, kind Kind, message string) *Error {
	return &Error{Kind: kind, Component: component, Message: message}
}

// Wrap builds an *Error around an underlying cause.
func Wrap(component string, kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Component: component, Message: message, Err: err}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, else "".
func KindOf(err error) Kind {
	var e *Error
	for err != nil {
		if as, ok := err.(*Error); ok {
			e = as
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return ""
	}
	return e.Kind
}
