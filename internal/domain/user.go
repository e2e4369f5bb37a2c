package domain

import (
	"strings"
	"time"
)

// User is the stored identity plus its email-verification state.
//
// EmailVerificationToken is nil until the token is issued after account
// creation. It is never cleared: once EmailVerified flips to true the token
// simply stops producing a state change.
type User struct {
	ID                     string
	Email                  string
	PasswordHash           string
	EmailVerificationToken *string
	EmailVerified          bool
	EmailVerificationDate  *time.Time
	CreatedAt              time.Time
}

// HasVerificationToken reports whether a verification token was issued.
func (u User) HasVerificationToken() bool {
	return u.EmailVerificationToken != nil && *u.EmailVerificationToken != ""
}

// NormalizeEmail fixes the case policy for emails: trimmed and lower-cased.
// It is applied once at creation and on every lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// VerificationOutcome is the result of presenting a verification token.
type VerificationOutcome string

const (
	// Verified means this call flipped the record to verified.
	Verified VerificationOutcome = "verified"
	// AlreadyVerified means the record was verified before; nothing changed.
	AlreadyVerified VerificationOutcome = "already_verified"
	// NotFound covers unknown tokens and records without a token.
	NotFound VerificationOutcome = "not_found"
)
