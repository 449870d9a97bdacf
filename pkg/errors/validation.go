package errors

import (
	"strings"
)

// Upload limits shared by the library and the admin collection
const (
	MaxUploadBytes    = 10 * 1024 * 1024
	MaxQuestionLength = 4096
)

// ValidationResult holds validation results
type ValidationResult struct {
	IsValid bool
	Errors  []*AppError
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(err *AppError) {
	vr.IsValid = false
	vr.Errors = append(vr.Errors, err)
}

// GetFirstError returns the first error or nil
func (vr *ValidationResult) GetFirstError() *AppError {
	if len(vr.Errors) > 0 {
		return vr.Errors[0]
	}
	return nil
}

// Validator provides validation utilities
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateUpload checks the name and size of an uploaded file. Content
// sniffing happens in the service layer.
func (v *Validator) ValidateUpload(name string, size int) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	if strings.TrimSpace(name) == "" {
		result.AddError(New(ErrTypeValidation, "NAME_EMPTY", "file name cannot be empty").
			WithUserMessage("File name is required"))
	}

	if size == 0 {
		result.AddError(ErrEmptyFile.WithContext("name", name))
	}

	if size > MaxUploadBytes {
		result.AddError(ErrFileTooLarge.
			WithUserMessage("File "+name+" is too large (max 10MB)").
			WithContext("size", size))
	}

	return result
}

// ValidateQuestion validates question type and text
func (v *Validator) ValidateQuestion(kind, text string) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	switch kind {
	case "text", "multiple", "yesno":
	default:
		result.AddError(New(ErrTypeValidation, "QUESTION_TYPE_INVALID", "unknown question type").
			WithUserMessage("Question type must be text, multiple or yesno").
			WithContext("type", kind))
	}

	if len(text) > MaxQuestionLength {
		result.AddError(New(ErrTypeValidation, "QUESTION_TOO_LARGE", "question text too large").
			WithUserMessage("Question text is too long").
			WithContext("size", len(text)))
	}

	return result
}
