package services

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies service failures for callers that need to branch on
// the failure class rather than the HTTP status.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindPermissionDenied
	KindQuotaExceeded
	KindIncompleteUpload
	KindInvalidState
	KindIntegrityFailure
	KindStorageIO
	KindBadRequest
)

type AppError struct {
	Kind     ErrorKind
	HTTPCode int
	Message  string
	Data     interface{}
	Err      error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newAppError(kind ErrorKind, httpCode int, message string, err error) *AppError {
	return &AppError{Kind: kind, HTTPCode: httpCode, Message: message, Err: err}
}

func newNotFound(message string) *AppError {
	return newAppError(KindNotFound, http.StatusNotFound, message, nil)
}

func newPermissionDenied(message string) *AppError {
	return newAppError(KindPermissionDenied, http.StatusForbidden, message, nil)
}

func newBadRequest(message string) *AppError {
	return newAppError(KindBadRequest, http.StatusBadRequest, message, nil)
}

func newInvalidState(message string) *AppError {
	return newAppError(KindInvalidState, http.StatusConflict, message, nil)
}

func newIntegrityFailure(message string) *AppError {
	return newAppError(KindIntegrityFailure, http.StatusBadRequest, message, nil)
}

func newStorageIO(message string, err error) *AppError {
	return newAppError(KindStorageIO, http.StatusInternalServerError, message, err)
}

func newInternal(message string, err error) *AppError {
	return newAppError(KindInternal, http.StatusInternalServerError, message, err)
}

func newQuotaExceeded(message string, used int64, limit int64, required int64) *AppError {
	return &AppError{
		Kind:     KindQuotaExceeded,
		HTTPCode: http.StatusBadRequest,
		Message:  message,
		Data: map[string]interface{}{
			"used":      used,
			"limit":     limit,
			"available": limit - used,
			"required":  required,
		},
	}
}

func newIncompleteUpload(missing []int) *AppError {
	return &AppError{
		Kind:     KindIncompleteUpload,
		HTTPCode: http.StatusBadRequest,
		Message:  fmt.Sprintf("upload incomplete, %d chunks missing", len(missing)),
		Data:     map[string]interface{}{"missing_chunks": missing},
	}
}

// IsKind reports whether err is an *AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Kind == kind
}
