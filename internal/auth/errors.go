package auth

import "errors"

// Kind sentinels classify operation failures. They carry no message of their
// own; match them with errors.Is against an *Error returned by the service.
var (
	ErrBadRequest   = errors.New("auth: bad request")
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrForbidden    = errors.New("auth: forbidden")
	ErrConflict     = errors.New("auth: conflict")
)

// Store-level sentinels. These pass through the service unwrapped so callers
// can distinguish persistence problems from authorization decisions.
var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
)

// Error is an operation outcome with a machine-readable kind and a
// human-readable message. HTTP status mapping is the transport's concern.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is lets errors.Is(err, ErrUnauthorized) and friends match.
func (e *Error) Is(target error) bool { return e.Kind == target }

func badRequest(msg string) *Error   { return &Error{Kind: ErrBadRequest, Message: msg} }
func unauthorized(msg string) *Error { return &Error{Kind: ErrUnauthorized, Message: msg} }
func forbidden(msg string) *Error    { return &Error{Kind: ErrForbidden, Message: msg} }
func conflict(msg string) *Error     { return &Error{Kind: ErrConflict, Message: msg} }
