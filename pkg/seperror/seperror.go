// Package seperror defines the error taxonomy shared by the SEP endpoint
// pipeline. Every validation, parsing, and authorization failure is a coded
// Error; the HTTP layer maps codes to status exactly once, in WriteError.
package seperror

import (
	"errors"
	"fmt"
)

// Code classifies an Error for HTTP status mapping.
type Code string

const (
	// CodeInvalidRequestData marks a malformed transport-level body: bad
	// multipart boundary, unsupported content type, non-object JSON.
	CodeInvalidRequestData Code = "invalid_request_data"
	// CodeInvalidSepRequest marks semantically invalid field values.
	CodeInvalidSepRequest Code = "invalid_sep_request"
	// CodeNotAuthorized marks an identity mismatch between request and token.
	CodeNotAuthorized Code = "not_authorized"
	// CodeCustomerNotFound marks a customer id that does not exist or is not
	// owned by the caller.
	CodeCustomerNotFound Code = "customer_not_found"
	// CodeInternal marks any unexpected failure.
	CodeInternal Code = "internal"
)

// Error carries a code for status mapping plus a stable message key and
// parameters so hosting anchors can localize independently of the
// human-readable message.
type Error struct {
	Code       Code
	MessageKey string
	Params     []any
	Message    string
}

func (e *Error) Error() string { return e.Message }

// InvalidRequestData reports a malformed request body.
func InvalidRequestData(format string, args ...any) *Error {
	return &Error{
		Code:       CodeInvalidRequestData,
		MessageKey: "invalid_request_data",
		Message:    fmt.Sprintf(format, args...),
	}
}

// InvalidSepRequest reports a semantically invalid field value. The key is
// stable across releases; params feed localization templates.
func InvalidSepRequest(key, message string, params ...any) *Error {
	return &Error{
		Code:       CodeInvalidSepRequest,
		MessageKey: key,
		Params:     params,
		Message:    message,
	}
}

// NotAuthorized reports that the token does not authorize the claimed identity.
func NotAuthorized(message string) *Error {
	return &Error{Code: CodeNotAuthorized, MessageKey: "not_authorized", Message: message}
}

// CustomerNotFound reports a missing or foreign customer id.
func CustomerNotFound(id string) *Error {
	return &Error{
		Code:       CodeCustomerNotFound,
		MessageKey: "customer_not_found",
		Params:     []any{id},
		Message:    fmt.Sprintf("customer not found for id %s", id),
	}
}

// Internal wraps an unexpected failure from a collaborator.
func Internal(err error) *Error {
	return &Error{
		Code:       CodeInternal,
		MessageKey: "internal_error",
		Message:    fmt.Sprintf("unexpected error: %v", err),
	}
}

// As unwraps err into a *Error when possible.
func As(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
