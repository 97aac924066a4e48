// Package apperr holds the failure taxonomy shared by every store. Handlers
// report these as {success:false, message} bodies instead of transport errors.
package apperr

import "errors"

var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrUnknownInvitee     = errors.New("user not found")
	ErrAlreadyPending     = errors.New("invitation already pending")
	ErrAlreadyMember      = errors.New("user is already a member of this trip")
)

// Error pairs a taxonomy sentinel with the message shown to callers.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// NotFound is shorthand for a missing record of the named kind, e.g. "trip".
func NotFound(what string) error {
	return &Error{Kind: ErrNotFound, Msg: what + " not found"}
}

// Message reports the caller-facing message for a domain failure. ok is false
// for anything outside the taxonomy, which callers treat as a store fault.
func Message(err error) (msg string, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg, true
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind.Error(), true
		}
	}
	return "", false
}

var kinds = []error{
	ErrValidation,
	ErrNotFound,
	ErrDuplicateUsername,
	ErrDuplicateEmail,
	ErrInvalidCredentials,
	ErrWrongPassword,
	ErrUnknownInvitee,
	ErrAlreadyPending,
	ErrAlreadyMember,
}
