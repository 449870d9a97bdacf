package errors

import "net/http"

// FrontendError represents an error formatted for the browser
type FrontendError struct {
	Type      string                 `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Retryable bool                   `json:"retryable"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// ToFrontendError converts an error to a frontend-friendly format
func ToFrontendError(err error) *FrontendError {
	if appErr, ok := As(err); ok {
		return &FrontendError{
			Type:      string(appErr.Type),
			Code:      appErr.Code,
			Message:   appErr.GetUserMessage(),
			Retryable: appErr.Retryable,
			Context:   appErr.Context,
		}
	}

	return &FrontendError{
		Type:      string(ErrTypeApp),
		Code:      "GENERIC_ERROR",
		Message:   "An unexpected error occurred. Please try again",
		Retryable: true,
	}
}

// HTTPStatus maps an error to the status code the API answers with
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case ErrTypeAuth:
		return http.StatusUnauthorized
	case ErrTypeValidation:
		if appErr.Code == ErrCollectionFull.Code || appErr.Code == ErrQuoteDuplicate.Code {
			return http.StatusConflict
		}
		if appErr.Code == ErrFileTooLarge.Code {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case ErrTypeNotFound:
		return http.StatusNotFound
	case ErrTypeNetwork:
		return http.StatusBadGateway
	case ErrTypeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
