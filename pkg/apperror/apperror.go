package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide between rollback, warning and rejection.
type Kind string

const (
	KindUnauthenticated    Kind = "unauthenticated"
	KindNoProjectSelected  Kind = "no_project_selected"
	KindEmptyPrompt        Kind = "empty_prompt"
	KindConversationBusy   Kind = "conversation_busy"
	KindInvalidStrategy    Kind = "invalid_strategy"
	KindInvalidParameter   Kind = "invalid_parameter"
	KindMissingProject     Kind = "missing_project"
	KindNetworkFailure     Kind = "network_failure"
	KindBackendRejected    Kind = "backend_rejected"
	KindPersistenceFailure Kind = "persistence_failure"
	KindNotFound           Kind = "not_found"
	KindValidationError    Kind = "validation_error"
)

// Error is the single error type crossing package boundaries.
// Status carries the upstream HTTP status when the failure came from a remote service.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of the message attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthenticated    = New(KindUnauthenticated, "please sign in to send a message")
	ErrNoProjectSelected  = New(KindNoProjectSelected, "please select a project before sending a message")
	ErrEmptyPrompt        = New(KindEmptyPrompt, "prompt is empty")
	ErrConversationBusy   = New(KindConversationBusy, "please wait for the previous answer")
	ErrInvalidStrategy    = New(KindInvalidStrategy, "invalid search mode")
	ErrInvalidParameter   = New(KindInvalidParameter, "invalid search parameter")
	ErrMissingProject     = New(KindMissingProject, "project id is required")
	ErrNetworkFailure     = New(KindNetworkFailure, "network failure")
	ErrBackendRejected    = New(KindBackendRejected, "an error occurred on the backend")
	ErrPersistenceFailure = New(KindPersistenceFailure, "failed to save message")
	ErrNotFound           = New(KindNotFound, "not found")
	ErrValidation         = New(KindValidationError, "validation error")
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithStatus returns a copy of e carrying the upstream HTTP status.
func (e *Error) WithStatus(status int) *Error {
	c := *e
	c.Status = status
	return &c
}

// KindOf returns the kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the user-facing message of err, preferring the apperror message
// over the wrapped cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsPrecondition reports whether err rejects a submission before any state changed.
func IsPrecondition(err error) bool {
	switch KindOf(err) {
	case KindUnauthenticated, KindConversationBusy, KindNoProjectSelected, KindEmptyPrompt:
		return true
	}
	return false
}
