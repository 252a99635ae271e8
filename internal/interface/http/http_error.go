package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Transport level codes. Domain failures reuse the summarizer codes.
const (
	codeInvalidRequest = "invalid_request"
	codeUploadTooLarge = "upload_too_large"
	codeRateLimited    = "rate_limit_exceeded"
	codeTimeout        = "timeout"
	codeInternal       = "internal_error"
)

// HTTPError carries the status and the public code and message of a failed request.
// Err stays server side and only reaches the logs.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// asHTTPError hides anything that is not an HTTPError behind a generic 500.
func asHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return NewHTTPError(http.StatusInternalServerError, codeInternal, "something went wrong", err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
