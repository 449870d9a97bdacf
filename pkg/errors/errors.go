package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("errors")

// ErrorType represents different categories of errors
type ErrorType string

const (
	// Authorization errors: wrong PIN, gated action while logged out
	ErrTypeAuth ErrorType = "authorization"
	// Durable storage errors: unavailable or corrupt
	ErrTypeStorage ErrorType = "storage"
	// Configuration errors
	ErrTypeConfig ErrorType = "configuration"
	// Validation errors
	ErrTypeValidation ErrorType = "validation"
	// Network errors (quote sources)
	ErrTypeNetwork ErrorType = "network"
	// Lookups of missing records
	ErrTypeNotFound ErrorType = "not_found"
	// Generic application errors
	ErrTypeApp ErrorType = "application"
)

// AppError represents a structured application error
type AppError struct {
	Type        ErrorType              `json:"type"`
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	UserMessage string                 `json:"userMessage"`
	InternalErr error                  `json:"-"`
	Retryable   bool                   `json:"retryable"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.InternalErr != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.InternalErr)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap exposes the wrapped error to errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.InternalErr
}

// Is reports whether target is an AppError with the same type and code.
// Sentinels decorated with WithContext still match the original.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// GetUserMessage returns a user-friendly error message
func (e *AppError) GetUserMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

// clone copies e so that decorating a shared sentinel never mutates it
func (e *AppError) clone() *AppError {
	c := *e
	if e.Context != nil {
		c.Context = make(map[string]interface{}, len(e.Context))
		for k, v := range e.Context {
			c.Context[k] = v
		}
	}
	return &c
}

// WithContext returns a copy of the error with a context entry added
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	c := e.clone()
	if c.Context == nil {
		c.Context = make(map[string]interface{})
	}
	c.Context[key] = value
	return c
}

// WithUserMessage returns a copy of the error with a user-facing message
func (e *AppError) WithUserMessage(msg string) *AppError {
	c := e.clone()
	c.UserMessage = msg
	return c
}

// WithRetryable returns a copy of the error marked (non-)retryable
func (e *AppError) WithRetryable(retryable bool) *AppError {
	c := e.clone()
	c.Retryable = retryable
	return c
}

// IsRetryable checks if the error can be retried
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// Log logs the error; authorization and validation failures are expected
// user mistakes and go out at warn level.
func (e *AppError) Log() {
	contextStr := ""
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		contextStr = fmt.Sprintf(" [%s]", strings.Join(parts, ", "))
	}

	switch e.Type {
	case ErrTypeAuth, ErrTypeValidation, ErrTypeNotFound:
		log.Warnf("%s%s", e.Error(), contextStr)
	default:
		log.Errorf("%s%s", e.Error(), contextStr)
	}
}

// New creates a new AppError
func New(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:        errType,
		Code:        code,
		Message:     message,
		InternalErr: err,
	}
}

// As extracts an *AppError from err, if there is one in the chain
func As(err error) (*AppError, bool) {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Predefined errors for common scenarios
var (
	// Authorization errors
	ErrNotAuthenticated = New(ErrTypeAuth, "NOT_AUTHENTICATED", "admin session required").
				WithUserMessage("Admin access required. Please enter the PIN")

	ErrInvalidPIN = New(ErrTypeAuth, "INVALID_PIN", "invalid PIN").
			WithUserMessage("Incorrect PIN. Please try again")

	// Storage errors
	ErrStorageUnavailable = New(ErrTypeStorage, "STORAGE_UNAVAILABLE", "durable storage unavailable").
				WithUserMessage("Storage is unavailable. Changes cannot be saved")

	ErrStorageWriteFailed = New(ErrTypeStorage, "STORAGE_WRITE_FAILED", "failed to write durable storage").
				WithUserMessage("Unable to save changes. Please try again")

	// Collection errors
	ErrDocumentNotFound = New(ErrTypeNotFound, "DOCUMENT_NOT_FOUND", "document not found").
				WithUserMessage("The requested document could not be found")

	ErrCollectionFull = New(ErrTypeValidation, "COLLECTION_FULL", "collection is full").
				WithUserMessage("Maximum number of files reached")

	ErrFileTooLarge = New(ErrTypeValidation, "FILE_TOO_LARGE", "file too large").
			WithUserMessage("File is too large (max 10MB)")

	ErrNotPDF = New(ErrTypeValidation, "NOT_PDF", "file is not a PDF").
			WithUserMessage("Only PDF files are supported")

	ErrEmptyFile = New(ErrTypeValidation, "FILE_EMPTY", "file is empty").
			WithUserMessage("The selected file is empty")

	// Viewer errors
	ErrNoDocumentOpen = New(ErrTypeValidation, "NO_DOCUMENT_OPEN", "no document loaded in the viewer").
				WithUserMessage("No PDF loaded")

	ErrPageOutOfRange = New(ErrTypeValidation, "PAGE_OUT_OF_RANGE", "page out of range").
				WithUserMessage("That page does not exist")

	// Quote errors
	ErrNoQuote = New(ErrTypeValidation, "NO_QUOTE", "no current quote").
			WithUserMessage("No quote to save")

	ErrQuoteDuplicate = New(ErrTypeValidation, "QUOTE_DUPLICATE", "quote already saved").
				WithUserMessage("Quote already saved!")

	ErrQuoteNotFound = New(ErrTypeNotFound, "QUOTE_NOT_FOUND", "saved quote not found").
				WithUserMessage("That quote is no longer saved")

	ErrQuoteSourceFailed = New(ErrTypeNetwork, "QUOTE_SOURCE_FAILED", "quote source request failed").
				WithUserMessage("Quote service unavailable").
				WithRetryable(true)

	// Question board errors
	ErrQuestionNotFound = New(ErrTypeNotFound, "QUESTION_NOT_FOUND", "question not found").
				WithUserMessage("The question could not be found")

	ErrNoQuestions = New(ErrTypeValidation, "NO_QUESTIONS", "no questions to export").
			WithUserMessage("No questions to save")

	// Configuration errors
	ErrConfigLoadFailed = New(ErrTypeConfig, "CONFIG_LOAD_FAILED", "failed to load configuration").
				WithUserMessage("Configuration file could not be loaded. Using defaults")

	ErrConfigSaveFailed = New(ErrTypeConfig, "CONFIG_SAVE_FAILED", "failed to save configuration").
				WithUserMessage("Unable to save settings. Check permissions")
)

// RetryHandler provides retry functionality for operations
type RetryHandler struct {
	MaxAttempts int
	OnRetry     func(attempt int, err error)
}

// NewRetryHandler creates a new retry handler
func NewRetryHandler(maxAttempts int) *RetryHandler {
	return &RetryHandler{
		MaxAttempts: maxAttempts,
		OnRetry: func(attempt int, err error) {
			log.Warnf("Retry attempt %d/%d failed: %v", attempt, maxAttempts, err)
		},
	}
}

// Execute runs a function with retry logic
func (r *RetryHandler) Execute(fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		// Only AppErrors explicitly marked retryable are retried
		if appErr, ok := As(err); !ok || !appErr.IsRetryable() {
			return err
		}

		if attempt < r.MaxAttempts && r.OnRetry != nil {
			r.OnRetry(attempt, err)
		}
	}

	return Wrap(lastErr, ErrTypeApp, "MAX_RETRIES_EXCEEDED",
		fmt.Sprintf("operation failed after %d attempts", r.MaxAttempts)).
		WithUserMessage("Operation failed after multiple attempts. Please try again later")
}
