package status

import "fmt"

// Error is a gRPC status error: a code plus a human-readable message, the
// pair that travels in the grpc-status/grpc-message trailers.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error: code = %s desc = %s", e.Code, e.Message)
}

// New builds a status error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a status error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// FromError unwraps err into a *Error. A nil err maps to OK. Any other
// error is reported as Unknown, matching the cardinality adapters' rule
// for handler panics/errors that aren't already a *Error.
func FromError(err error) *Error {
	if err == nil {
		return New(OK, "")
	}
	if se, ok := err.(*Error); ok {
		return se
	}
	return New(Unknown, err.Error())
}

// Is reports whether err is a status error carrying code.
func Is(err error, code Code) bool {
	se, ok := err.(*Error)
	return ok && se.Code == code
}
