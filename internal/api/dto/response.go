package dto

import apperrors "github.com/spec-kit/mission-service/pkg/util"

// Response is the success envelope.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the failure envelope rendered by the error middleware.
type ErrorResponse struct {
	Success    bool                   `json:"success"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"statusCode"`
	Code       string                 `json:"code"`
	Errors     []apperrors.FieldError `json:"errors,omitempty"`
	Details    map[string]any         `json:"details,omitempty"`
}

// NewErrorResponse renders a DomainError.
func NewErrorResponse(err *apperrors.DomainError) ErrorResponse {
	return ErrorResponse{
		Success:    false,
		Message:    err.Message,
		StatusCode: err.HTTPStatus,
		Code:       err.Code,
		Errors:     err.Fields,
		Details:    err.Details,
	}
}
