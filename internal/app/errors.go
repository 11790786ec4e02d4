package app

import (
	"errors"
	"fmt"
	"net/http"

	"faqpage/internal/auth"
	"faqpage/internal/document"
	"faqpage/internal/handle"
	"faqpage/internal/ordering"
	"faqpage/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeSchema       = "SCHEMA_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeQuota        = "QUOTA_EXCEEDED"
	CodeHandleTaken  = "HANDLE_TAKEN"
	CodeSameHandle   = "SAME_HANDLE"
	CodeConflict     = "CONFLICT"
	CodeInvalidRange = "INVALID_RANGE"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeServer       = "SERVER_ERROR"
)

var errUnauthorized = domainError(http.StatusUnauthorized, CodeUnauthorized, "Unauthorized", nil)

func validationError(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, CodeValidation, message, nil)
}

// translateError lifts package sentinel errors into domain errors. Anything it does
// not recognise is returned unchanged and ends up as SERVER_ERROR.
func translateError(err error) error {
	var domainErr *DomainError
	var schemaErr *document.SchemaError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &domainErr):
		return domainErr
	case errors.As(err, &schemaErr):
		return domainError(http.StatusUnprocessableEntity, CodeSchema, "Answer is not a valid document", map[string]any{
			"path":   schemaErr.Path,
			"reason": schemaErr.Reason,
		})
	case errors.Is(err, store.ErrNotFound):
		return domainError(http.StatusNotFound, CodeNotFound, "Not found", nil)
	case errors.Is(err, ordering.ErrQuotaExceeded):
		return domainError(http.StatusConflict, CodeQuota, fmt.Sprintf("You can have at most %d questions", ordering.MaxItems), nil)
	case errors.Is(err, ordering.ErrInvalidRange):
		return domainError(http.StatusUnprocessableEntity, CodeInvalidRange, "Invalid target index", nil)
	case errors.Is(err, store.ErrConflict):
		return domainError(http.StatusConflict, CodeConflict, "The list changed while saving, reload and try again", nil)
	case errors.Is(err, handle.ErrInvalid):
		return validationError("Url must be 4-16 characters of a-z, 0-9 or _")
	case errors.Is(err, handle.ErrTaken):
		return domainError(http.StatusConflict, CodeHandleTaken, "This url is already taken", nil)
	case errors.Is(err, handle.ErrSame):
		return domainError(http.StatusConflict, CodeSameHandle, "This is the same url you already have", nil)
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken), errors.Is(err, auth.ErrMissingToken):
		return errUnauthorized
	}
	return err
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(translateError(err), &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	return http.StatusInternalServerError, CodeServer, "Server error", nil
}
