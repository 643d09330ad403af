package util

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

// Error codes surfaced in the response envelope.
const (
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeInvalidOrExpiredToken  = "INVALID_OR_EXPIRED_TOKEN"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeAccountInactive        = "ACCOUNT_INACTIVE"
	CodeForbidden              = "FORBIDDEN"
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeInternal               = "INTERNAL_ERROR"
)

// FieldError describes a problem with a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Fields     []FieldError
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code so callers can use errors.Is
// against the sentinel constructors.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, fields ...FieldError) error {
	err := NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, nil)
	err.Fields = fields
	return err
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewAuthenticationRequired() error {
	return NewDomainError(CodeAuthenticationRequired, "authentication required", http.StatusUnauthorized, nil)
}

func NewInvalidOrExpiredToken() error {
	return NewDomainError(CodeInvalidOrExpiredToken, "invalid or expired token", http.StatusUnauthorized, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewAccountInactive() error {
	return NewDomainError(CodeAccountInactive, "account is not active", http.StatusForbidden, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, fields ...FieldError) error {
	err := NewDomainError(CodeConflict, message, http.StatusConflict, nil)
	err.Fields = fields
	return err
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fromFiberError(fiberErr)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func fromFiberError(err *fiber.Error) *DomainError {
	code := CodeInternal
	switch {
	case err.Code == http.StatusNotFound:
		code = CodeNotFound
	case err.Code == http.StatusUnauthorized:
		code = CodeUnauthorized
	case err.Code == http.StatusForbidden:
		code = CodeForbidden
	case err.Code == http.StatusConflict:
		code = CodeConflict
	case err.Code >= 400 && err.Code < 500:
		code = CodeValidationFailed
	}
	return &DomainError{Code: code, Message: err.Message, HTTPStatus: err.Code}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// JoinFieldMessages renders field errors as a single readable sentence.
func JoinFieldMessages(fields []FieldError) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Message)
	}
	return strings.Join(parts, "; ")
}
