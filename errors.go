package lendkit

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying lendkit failures. Match them with errors.Is.
var (
	// ErrAuthorization is returned when the actor is not allowed to perform an operation.
	ErrAuthorization = errors.New("lendkit: authorization")

	// ErrSelfModification is returned when an actor tries to change their own role.
	ErrSelfModification = errors.New("lendkit: self modification")

	// ErrNotFound is returned when a user or library does not exist.
	ErrNotFound = errors.New("lendkit: not found")

	// ErrInvariantViolation is returned when an operation would break a system invariant,
	// such as demoting the last administrator.
	ErrInvariantViolation = errors.New("lendkit: invariant violation")

	// ErrValidation is returned when input is malformed or does not resolve.
	ErrValidation = errors.New("lendkit: validation")

	// ErrStore is returned when the entity store fails.
	ErrStore = errors.New("lendkit: store error")

	// ErrNoSession is returned when no role snapshot is available for a session.
	ErrNoSession = errors.New("lendkit: no session")
)

// Messages returned to callers. They are part of the public contract: UI layers
// match on them to show the right feedback.
const (
	MsgOnlyAdmins          = "Only administrators can assign roles"
	MsgSelfModification    = "You cannot modify your own role"
	MsgUserNotFound        = "User not found"
	MsgLastAdmin           = "Cannot demote the last administrator"
	MsgOnlyLibrarians      = "Can only assign libraries to librarians"
	msgInvalidLibraryIDs   = "Invalid library IDs: "
	msgInvalidRole         = "Invalid role: "
	msgInvalidAuditEntry   = "Invalid audit entry: "
	msgUnsupportedOperator = "Unsupported filter operator: "
)

// Error wraps a sentinel error with the caller-facing message and context.
type Error struct {
	Err        error    // Underlying sentinel error
	Message    string   // Caller-facing message
	UserID     string   // User involved (if applicable)
	ActorID    string   // Actor who triggered the error (if applicable)
	LibraryIDs []string // Libraries involved (if applicable)
	cause      error
}

// Error returns the caller-facing message, falling back to the sentinel text.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the sentinel and, when present, the underlying cause.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

// NewError creates a new Error with a message.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithUser adds user information to the error.
func (e *Error) WithUser(userID string) *Error {
	e.UserID = userID
	return e
}

// WithActor adds actor information to the error.
func (e *Error) WithActor(actorID string) *Error {
	e.ActorID = actorID
	return e
}

// WithLibraries adds the library ids involved to the error.
func (e *Error) WithLibraries(ids []string) *Error {
	e.LibraryIDs = ids
	return e
}

// WithCause records the error that triggered this one.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

func invalidLibraryIDsError(missing []string) *Error {
	return NewError(ErrValidation, msgInvalidLibraryIDs+strings.Join(missing, ", ")).
		WithLibraries(missing)
}

func invalidRoleError(role Role) *Error {
	return NewError(ErrValidation, msgInvalidRole+string(role))
}

func storeError(op string, err error) *Error {
	return NewError(ErrStore, fmt.Sprintf("%s: %v", op, err)).WithCause(err)
}

// IsAuthorization checks if an error is an authorization error.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrAuthorization)
}

// IsSelfModification checks if an error is due to an actor modifying their own role.
func IsSelfModification(err error) bool {
	return errors.Is(err, ErrSelfModification)
}

// IsNotFound checks if an error is due to a missing user or library.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvariantViolation checks if an error is due to a protected invariant.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

// IsValidation checks if an error is due to invalid input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// wrapStore classifies a store failure as ErrStore unless it already carries
// a lendkit classification.
func wrapStore(op string, err error) error {
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	return storeError(op, err)
}
