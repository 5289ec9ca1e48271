package services

import (
	"errors"
)

// Kind classifies a service failure for the API layer.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindValidation
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a typed service failure. Fields carries per-field validation messages.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewValidationError builds a validation failure from field messages.
func NewValidationError(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

// FieldsOf returns the validation fields of err, if any.
func FieldsOf(err error) map[string]string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Fields
	}
	return nil
}

var (
	ErrUserNotFound    = newError(KindNotFound, "user not found")
	ErrProjectNotFound = newError(KindNotFound, "project not found")
	ErrTaskNotFound    = newError(KindNotFound, "task not found")

	ErrUnauthorized        = newError(KindUnauthorized, "requester is not authorized to perform this action")
	ErrExpiredRefreshToken = newError(KindUnauthorized, "refresh token has expired")

	ErrEmptyUpdate     = newError(KindValidation, "request does not change any field")
	ErrEmailInUse      = &Error{Kind: KindValidation, Message: "email is already in use", Fields: map[string]string{"email": "is already in use"}}
	ErrInvalidPassword = &Error{Kind: KindValidation, Message: "current password is incorrect", Fields: map[string]string{"current_password": "is incorrect"}}

	ErrNonEmployeeUser       = newError(KindConflict, "user is not an employee")
	ErrExistingProjectMember = newError(KindConflict, "user is already a member of the project")
	ErrNotProjectMember      = newError(KindConflict, "user is not a member of the project")
	ErrUncompletedTasks      = newError(KindConflict, "uncompleted tasks remain")

	ErrDraftingNotConfigured = newError(KindUnavailable, "task drafting is not configured")
)
