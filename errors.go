package moodle

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrMissingConfig is returned when the moodle url or token is empty.
	ErrMissingConfig = errors.New("moodle url and token are required")

	ErrAuthentication   = errors.New("moodle authentication failed")
	ErrPermissionDenied = errors.New("moodle permission denied")
	ErrNotFound         = errors.New("moodle resource not found")
	ErrInvalidParameter = errors.New("moodle invalid parameter")
)

// ErrorKind is the category of a ServiceError.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuthentication
	KindPermissionDenied
	KindNotFound
	KindInvalidParameter
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindPermissionDenied:
		return "permission denied"
	case KindNotFound:
		return "not found"
	case KindInvalidParameter:
		return "invalid parameter"
	default:
		return "unknown"
	}
}

// ServiceError is a failure reported by the moodle server: an exception
// body, a non-2xx status, or a response that could not be decoded.
type ServiceError struct {
	Function   string
	Exception  string
	ErrorCode  string
	Message    string
	DebugInfo  string
	StatusCode int
	Kind       ErrorKind

	// Err is the decoding error for malformed responses.
	Err error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString("moodle: ")
	if e.Function != "" {
		b.WriteString(e.Function)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Exception != "":
		b.WriteString(e.Exception)
	case e.StatusCode != 0:
		fmt.Fprintf(&b, "http status %d", e.StatusCode)
	default:
		b.WriteString("unexpected response")
	}
	if e.ErrorCode != "" {
		b.WriteString(" (")
		b.WriteString(e.ErrorCode)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *ServiceError) Is(target error) bool {
	switch target {
	case ErrAuthentication:
		return e.Kind == KindAuthentication
	case ErrPermissionDenied:
		return e.Kind == KindPermissionDenied
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrInvalidParameter:
		return e.Kind == KindInvalidParameter
	}
	return false
}

func kindForErrorCode(code string) ErrorKind {
	switch code {
	case "invalidtoken":
		return KindAuthentication
	case "accessexception", "nopermissions":
		return KindPermissionDenied
	case "invalidrecord", "invalidrecordunknown":
		return KindNotFound
	case "invalidparameter":
		return KindInvalidParameter
	}
	return KindUnknown
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuthentication
	case http.StatusForbidden:
		return KindPermissionDenied
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest:
		return KindInvalidParameter
	}
	return KindUnknown
}

// readError returns the ServiceError encoded in a moodle exception body,
// or nil when body is not an exception.
func readError(function, body string) *ServiceError {
	if !strings.HasPrefix(body, "{") || !strings.Contains(body, "\"exception\"") {
		return nil
	}

	type Response struct {
		Message   string `json:"message"`
		Exception string `json:"exception"`
		ErrorCode string `json:"errorcode"`
		DebugInfo string `json:"debuginfo"`
	}
	var response Response
	if err := json.Unmarshal([]byte(body), &response); err != nil {
		return nil
	}
	if response.Exception == "" {
		return nil
	}

	return &ServiceError{
		Function:  function,
		Exception: response.Exception,
		ErrorCode: response.ErrorCode,
		Message:   response.Message,
		DebugInfo: response.DebugInfo,
		Kind:      kindForErrorCode(response.ErrorCode),
	}
}
