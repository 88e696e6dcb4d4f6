package service

import "errors"

// Error kinds. Handlers map them onto HTTP statuses with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("authentication failed")
	ErrAuthorization  = errors.New("not allowed")
	ErrNotFound       = errors.New("not found")
	ErrServer         = errors.New("server error")
)

// Error pairs an error kind with the short message shown to the user. The
// underlying cause, if any, is kept for logging only.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func validationError(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func notFoundError(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func forbiddenError(msg string) error {
	return &Error{Kind: ErrAuthorization, Message: msg}
}

func serverError(msg string, cause error) error {
	return &Error{Kind: ErrServer, Message: msg, Cause: cause}
}

// Message returns the user-facing text for err. Errors that did not come
// from this package are reported as a generic failure.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Something went wrong"
}
