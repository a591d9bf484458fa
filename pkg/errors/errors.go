package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Is matches AppErrors by code, so copies carrying an internal error still
// compare equal to their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Permission denied",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrRateLimit = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, please slow down",
		StatusCode: http.StatusTooManyRequests,
	}
)

// Authentication and account lifecycle errors. Clients display these messages
// verbatim, so rewording one is an API-visible change.
var (
	ErrEmailOrPasswordIncorrect = &AppError{
		Code:       "EMAIL_OR_PASSWORD_INCORRECT",
		Message:    "Email or password is incorrect",
		StatusCode: http.StatusUnauthorized,
	}

	ErrEmailAlreadyExists = &AppError{
		Code:       "EMAIL_ALREADY_EXISTS",
		Message:    "Email already exists",
		StatusCode: http.StatusConflict,
	}

	ErrUsernameAlreadyExists = &AppError{
		Code:       "USERNAME_ALREADY_EXISTS",
		Message:    "Username already exists",
		StatusCode: http.StatusConflict,
	}

	ErrAccessTokenInvalid = &AppError{
		Code:       "ACCESS_TOKEN_INVALID",
		Message:    "Access token is invalid",
		StatusCode: http.StatusUnauthorized,
	}

	ErrTokenExpired = &AppError{
		Code:       "TOKEN_EXPIRED",
		Message:    "Token has expired",
		StatusCode: http.StatusUnauthorized,
	}

	ErrRefreshTokenInvalid = &AppError{
		Code:       "REFRESH_TOKEN_INVALID",
		Message:    "Refresh token is invalid",
		StatusCode: http.StatusUnauthorized,
	}

	ErrUsedRefreshTokenOrNotExist = &AppError{
		Code:       "USED_REFRESH_TOKEN_OR_NOT_EXIST",
		Message:    "Used refresh token or not exist",
		StatusCode: http.StatusUnauthorized,
	}

	ErrUserNotFound = &AppError{
		Code:       "USER_NOT_FOUND",
		Message:    "User not found",
		StatusCode: http.StatusNotFound,
	}

	ErrUserNotVerified = &AppError{
		Code:       "USER_NOT_VERIFIED",
		Message:    "User not verified",
		StatusCode: http.StatusForbidden,
	}

	ErrEmailAlreadyVerified = &AppError{
		Code:       "EMAIL_ALREADY_VERIFIED_BEFORE",
		Message:    "Email already verified before",
		StatusCode: http.StatusBadRequest,
	}

	ErrEmailVerifyTokenInvalid = &AppError{
		Code:       "EMAIL_VERIFY_TOKEN_INVALID",
		Message:    "Email verify token is invalid",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForgotPasswordTokenInvalid = &AppError{
		Code:       "FORGOT_PASSWORD_TOKEN_INVALID",
		Message:    "Forgot password token is invalid",
		StatusCode: http.StatusUnauthorized,
	}

	ErrGoogleEmailNotVerified = &AppError{
		Code:       "GOOGLE_EMAIL_NOT_VERIFIED",
		Message:    "Google email not verified",
		StatusCode: http.StatusForbidden,
	}

	ErrOAuthExchangeFailed = &AppError{
		Code:       "OAUTH_EXCHANGE_FAILED",
		Message:    "Could not reach the identity provider, please retry",
		StatusCode: http.StatusBadGateway,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}
