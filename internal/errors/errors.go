// Package errors provides custom error types for the ledgercore engine.
// All service-layer errors should use AppError so callers can branch on a
// stable error code without parsing messages. Journal-entry validation
// findings are not AppErrors; they travel as ValidationResult values
// returned by the entry validator.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Account errors.
var (
	ErrAccountNotFound      = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
	ErrDuplicateAccountCode = &AppError{Code: "DUPLICATE_ACCOUNT_CODE", Message: "An account with this code already exists", StatusCode: http.StatusConflict}
	ErrAccountCycle         = &AppError{Code: "ACCOUNT_CYCLE", Message: "Account parent chain would form a cycle", StatusCode: http.StatusBadRequest}
	ErrAccountInactive      = &AppError{Code: "ACCOUNT_INACTIVE", Message: "Account is inactive", StatusCode: http.StatusBadRequest}
)

// Journal entry errors.
var (
	ErrEntryNotFound         = &AppError{Code: "ENTRY_NOT_FOUND", Message: "Journal entry not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEntryNumber  = &AppError{Code: "DUPLICATE_ENTRY_NUMBER", Message: "A journal entry with this number already exists", StatusCode: http.StatusConflict}
	ErrEntryNotEditable      = &AppError{Code: "ENTRY_NOT_EDITABLE", Message: "Only draft entries can be edited", StatusCode: http.StatusBadRequest}
	ErrInvalidStatusChange   = &AppError{Code: "INVALID_STATUS_CHANGE", Message: "Journal entry status transition is not allowed", StatusCode: http.StatusBadRequest}
	ErrEntryValidationFailed = &AppError{Code: "ENTRY_VALIDATION_FAILED", Message: "Journal entry failed validation", StatusCode: http.StatusBadRequest}
)

// Recurring template errors.
var (
	ErrTemplateNotFound = &AppError{Code: "TEMPLATE_NOT_FOUND", Message: "Recurring template not found", StatusCode: http.StatusNotFound}
	ErrTemplateInactive = &AppError{Code: "TEMPLATE_INACTIVE", Message: "Recurring template is inactive", StatusCode: http.StatusBadRequest}
)

// Rule errors.
var (
	ErrRuleNotFound       = &AppError{Code: "RULE_NOT_FOUND", Message: "Rule not found", StatusCode: http.StatusNotFound}
	ErrInvalidRulePattern = &AppError{Code: "INVALID_RULE_PATTERN", Message: "Rule pattern is not a valid regular expression", StatusCode: http.StatusBadRequest}
)

// Bank statement errors.
var (
	ErrStatementLineNotFound = &AppError{Code: "STATEMENT_LINE_NOT_FOUND", Message: "Bank statement line not found", StatusCode: http.StatusNotFound}
)
