package summarizer

import (
	apperrors "github.com/yanqian/longtext-summarizer/pkg/errors"
)

// Error codes surfaced by the pipeline and its backends.
const (
	CodeValidation         = "invalid_input"
	CodeAuthentication     = "authentication_failed"
	CodeBackendUnavailable = "backend_unavailable"
	CodeInputTooLarge      = "input_too_large"
	CodeEmptyResponse      = "empty_response"
	CodeBackendRejected    = "llm_error"
)

func NewValidationError(message string) error {
	return apperrors.Wrap(CodeValidation, message, nil)
}

func NewAuthenticationError(message string, err error) error {
	return apperrors.Wrap(CodeAuthentication, message, err)
}

func NewBackendUnavailableError(message string, err error) error {
	return apperrors.Wrap(CodeBackendUnavailable, message, err)
}

func NewInputTooLargeError(message string, err error) error {
	return apperrors.Wrap(CodeInputTooLarge, message, err)
}

func NewEmptyResponseError(message string) error {
	return apperrors.Wrap(CodeEmptyResponse, message, nil)
}

func NewBackendRejectedError(message string, err error) error {
	return apperrors.Wrap(CodeBackendRejected, message, err)
}

// IsRetryable reports whether err is a transient backend failure.
func IsRetryable(err error) bool {
	return apperrors.IsCode(err, CodeBackendUnavailable)
}

// outcomeOf labels an error for metrics.
func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	if code := apperrors.CodeOf(err); code != "" {
		return code
	}
	return "error"
}
