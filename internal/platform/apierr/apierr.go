package apierr

import (
	"errors"
	"fmt"
	"net/http"

	types "github.com/yungbote/finsights-backend/internal/domain/documents"
)

// Error pins an HTTP status and machine code onto a cause.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

// From classifies err for an HTTP response. An *Error anywhere in the chain
// wins; record store errors map by code; anything else is a 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	code := types.CodeOf(err)
	if code == "" {
		code = types.CodeInternal
	}
	return New(statusForCode(code, err), string(code), err)
}

func statusForCode(code types.ErrorCode, err error) int {
	switch code {
	case types.CodeConstraintViolation:
		// A duplicate key conflicts with existing state; a missing or
		// malformed field is a bad payload.
		if types.IsDuplicate(err) {
			return http.StatusConflict
		}
		return http.StatusUnprocessableEntity
	case types.CodeNotFound:
		return http.StatusNotFound
	case types.CodeInvalidStatus:
		return http.StatusBadRequest
	case types.CodeIllegalTransition, types.CodeConflict:
		return http.StatusConflict
	case types.CodeBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
