package apperr

import (
	"errors"

	"gorm.io/gorm"
)

// Kind classifies an error for the transport boundary.
type Kind string

const (
	KindValidation             Kind = "validation_error"
	KindNotFound               Kind = "not_found"
	KindConflict               Kind = "conflict"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindOverpayment            Kind = "overpayment_rejected"
	KindStorage                Kind = "storage_error"
)

// Error is a domain error tagged with its Kind. Code is the stable snake_case identifier.
type Error struct {
	Kind Kind
	Code string
}

func (e *Error) Error() string {
	return e.Code
}

func New(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

func Validation(code string) *Error {
	return New(KindValidation, code)
}

func NotFound(code string) *Error {
	return New(KindNotFound, code)
}

func Conflict(code string) *Error {
	return New(KindConflict, code)
}

func InvalidTransition(code string) *Error {
	return New(KindInvalidStateTransition, code)
}

func Overpayment(code string) *Error {
	return New(KindOverpayment, code)
}

// KindOf reports the kind of err. Untagged errors come from the storage layer.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound
	}
	return KindStorage
}

// CodeOf returns the code of a tagged error, or the kind for untagged ones.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return string(KindOf(err))
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
