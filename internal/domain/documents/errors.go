package documents

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies record store failures. The values double as the
// wire representation in API error envelopes.
type ErrorCode string

const (
	CodeConstraintViolation ErrorCode = "constraint_violation"
	CodeNotFound            ErrorCode = "not_found"
	CodeInvalidStatus       ErrorCode = "invalid_status"
	CodeIllegalTransition   ErrorCode = "illegal_transition"
	CodeConflict            ErrorCode = "conflict"
	CodeBusy                ErrorCode = "busy"
	CodeInternal            ErrorCode = "internal"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrConstraintViolation = &Error{Code: CodeConstraintViolation}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrInvalidStatus       = &Error{Code: CodeInvalidStatus}
	ErrIllegalTransition   = &Error{Code: CodeIllegalTransition}
	ErrConflict            = &Error{Code: CodeConflict}
	ErrBusy                = &Error{Code: CodeBusy}
)

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
	// Duplicate marks a constraint violation caused by an existing key
	// rather than a missing or malformed field.
	Duplicate bool
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil || e == nil {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Cause == nil && t.Code == e.Code
}

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

func Errorf(code ErrorCode, op, format string, args ...interface{}) error {
	return NewError(code, op, fmt.Sprintf(format, args...), nil)
}

// DuplicateError is a constraint violation caused by a key that already exists.
func DuplicateError(op, message string, cause error) error {
	return &Error{
		Code:      CodeConstraintViolation,
		Op:        strings.TrimSpace(op),
		Message:   strings.TrimSpace(message),
		Cause:     cause,
		Duplicate: true,
	}
}

func Duplicatef(op, format string, args ...interface{}) error {
	return DuplicateError(op, fmt.Sprintf(format, args...), nil)
}

// IsDuplicate reports whether err is a constraint violation on an existing key.
func IsDuplicate(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeConstraintViolation && e.Duplicate
}

// Wrap annotates err with a code. Errors that already carry a code keep it.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return NewError(code, op, err.Error(), err)
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func CodeOf(err error) ErrorCode {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}
