// Package auth establishes an authenticated browsing session with either
// cookie or account credentials.
package auth

import (
	"errors"
	"fmt"
)

// Kind classifies an authentication failure.
type Kind int

const (
	// KindInvalidCookie means the injected cookies left the session anonymous.
	KindInvalidCookie Kind = iota + 1
	// KindInvalidCredentials means the site rejected the username or password.
	KindInvalidCredentials
	// KindChallengeRequired means the site demanded an interactive challenge such as a captcha.
	KindChallengeRequired
	// KindTimeout means an authentication step exceeded its bounded wait.
	KindTimeout
	// KindNavigation means the browser failed to load or drive a page.
	KindNavigation
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCookie:
		return "invalid_cookie"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindChallengeRequired:
		return "challenge_required"
	case KindTimeout:
		return "timeout"
	case KindNavigation:
		return "navigation"
	default:
		return "unknown"
	}
}

// Error represents a failed authentication attempt.
type Error struct {
	Kind    Kind
	Method  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error (%s, %s login): %s: %v", e.Kind, e.Method, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth error (%s, %s login): %s", e.Kind, e.Method, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is an authentication Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var authErr *Error
	return errors.As(err, &authErr) && authErr.Kind == kind
}
