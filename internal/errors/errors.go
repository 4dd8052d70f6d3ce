// Package errors provides custom error types for the famfin API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
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

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	ErrUnavailable    = &AppError{Code: "UNAVAILABLE", Message: "A dependent service is temporarily unavailable", StatusCode: http.StatusServiceUnavailable}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Family & membership errors.
var (
	ErrFamilyNotFound     = &AppError{Code: "FAMILY_NOT_FOUND", Message: "Family not found", StatusCode: http.StatusNotFound}
	ErrMemberNotFound     = &AppError{Code: "MEMBER_NOT_FOUND", Message: "User is not a member of this family", StatusCode: http.StatusNotFound}
	ErrDuplicateMember    = &AppError{Code: "DUPLICATE_MEMBER", Message: "User is already a member of this family", StatusCode: http.StatusConflict}
	ErrLastOwnerViolation = &AppError{Code: "LAST_OWNER_VIOLATION", Message: "A family must keep at least one owner", StatusCode: http.StatusConflict}
)

// Invitation errors.
var (
	ErrInvitationNotFound  = &AppError{Code: "INVITATION_NOT_FOUND", Message: "Invitation not found", StatusCode: http.StatusNotFound}
	ErrInvitationExpired   = &AppError{Code: "INVITATION_EXPIRED", Message: "Invitation has expired", StatusCode: http.StatusGone}
	ErrInvitationResolved  = &AppError{Code: "INVALID_STATE", Message: "Invitation has already been resolved", StatusCode: http.StatusConflict}
	ErrDuplicateInvitation = &AppError{Code: "DUPLICATE_PENDING", Message: "A pending invitation for this email already exists", StatusCode: http.StatusConflict}
	ErrAlreadyMember       = &AppError{Code: "ALREADY_MEMBER", Message: "This email already belongs to a family member", StatusCode: http.StatusConflict}
	ErrEmailMismatch       = &AppError{Code: "EMAIL_MISMATCH", Message: "Invitation was issued to a different email address", StatusCode: http.StatusForbidden}
)

// Budget errors.
var (
	ErrBudgetNotFound   = &AppError{Code: "BUDGET_NOT_FOUND", Message: "Budget not found", StatusCode: http.StatusNotFound}
	ErrCategoryNotFound = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrInvalidPeriod    = &AppError{Code: "INVALID_PERIOD", Message: "Budget period is invalid", StatusCode: http.StatusBadRequest}
)
