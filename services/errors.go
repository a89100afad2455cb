package services

import (
	"fmt"
	"net/http"
)

// RequestError is a failure that maps to a specific HTTP status. Every
// other error returned from a service is treated as a 500.
type RequestError struct {
	Code    int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func badRequest(format string, args ...interface{}) *RequestError {
	return &RequestError{Code: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...interface{}) *RequestError {
	return &RequestError{Code: http.StatusForbidden, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...interface{}) *RequestError {
	return &RequestError{Code: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...interface{}) *RequestError {
	return &RequestError{Code: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}
