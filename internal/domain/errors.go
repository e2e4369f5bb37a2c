package domain

import (
	"errors"
	"fmt"
)

// ErrKind groups domain errors so transports can map them consistently.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"     // 400
	KindAuth           ErrKind = "auth"           // 401
	KindNotFound       ErrKind = "not_found"      // 404
	KindConflict       ErrKind = "conflict"       // 409
	KindRateLimited    ErrKind = "rate_limited"   // 429
	KindInfrastructure ErrKind = "infrastructure" // 503
	KindInternal       ErrKind = "internal"       // 500
)

// Error is a structured domain error.
// - Kind: high-level category for transport mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for users (never leaks internals)
// - Meta: optional details (field, reason, etc.)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// KindOf returns the kind of a domain error, or KindInternal for anything else.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf returns the user-safe message carried by err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return "Something went wrong, please try again"
}

const (
	CodeMissingField       = "missing_field"
	CodeInvalidField       = "invalid_field"
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailAlreadyExists = "email_already_exists"
	CodeUserNotFound       = "user_not_found"
	CodeRouteNotFound      = "route_not_found"
	CodeMethodNotAllowed   = "method_not_allowed"
	CodeRateLimited        = "rate_limited"
	CodeDBUnavailable      = "db_unavailable"
	CodeSessionUnavailable = "session_unavailable"
	CodeNotifyFailed       = "notify_failed"
	CodePersistFailed      = "persist_failed"
	CodeHashFailed         = "hash_failed"
	CodeRandomFailed       = "random_failed"
	CodeInternal           = "internal_error"
)

// ----------------------
// Validation errors (400)
// ----------------------

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, CodeMissingField, "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, CodeInvalidField, "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

// ErrCredentialPolicy rejects an email/password pair at account creation.
// msg is shown to the user as-is.
func ErrCredentialPolicy(field, msg string) *Error {
	return WithMeta(New(KindValidation, CodeInvalidCredentials, msg), map[string]string{
		"field": field,
	})
}

// ----------------------
// Auth errors (401)
// ----------------------

// IMPORTANT: use this for every login failure to avoid user enumeration.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, CodeInvalidCredentials, "Invalid email or password")
}

// ----------------------
// Not Found (404)
// ----------------------

func ErrUserNotFound() *Error {
	return New(KindNotFound, CodeUserNotFound, "user not found")
}

func ErrRouteNotFound(path string) *Error {
	return WithMeta(New(KindNotFound, CodeRouteNotFound, "no such page"), map[string]string{
		"path": path,
	})
}

// ErrMethodNotAllowed maps to 405, not to its kind's usual status.
func ErrMethodNotAllowed(method string) *Error {
	return WithMeta(New(KindValidation, CodeMethodNotAllowed, "method not allowed"), map[string]string{
		"method": method,
	})
}

// ----------------------
// Conflict (409)
// ----------------------

func ErrEmailAlreadyExists() *Error {
	return New(KindConflict, CodeEmailAlreadyExists, "A user with the given email is already registered")
}

// ----------------------
// Rate limit (429)
// ----------------------

func ErrRateLimited(scope string) *Error {
	return WithMeta(New(KindRateLimited, CodeRateLimited, "Too many attempts, please wait a moment"), map[string]string{
		"scope": scope,
	})
}

// ----------------------
// Infrastructure / internal (5xx)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeDBUnavailable, "We could not reach our account store, please try again", cause)
}

func ErrSessionUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeSessionUnavailable, "We could not sign you in right now, please log in again", cause)
}

func ErrNotifyFailed(cause error) *Error {
	return Wrap(KindInfrastructure, CodeNotifyFailed, "We could not send the verification email", cause)
}

func ErrPersistFailed(cause error) *Error {
	return Wrap(KindInfrastructure, CodePersistFailed, "We could not save your changes, please try again", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, CodeHashFailed, "password hashing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, CodeRandomFailed, "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, CodeInternal, "internal error", cause)
}
