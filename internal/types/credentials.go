// Package types provides type definitions for structured data used throughout the downloader.
package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Credentials is the login material for one run. It is either
// CookieCredentials or AccountCredentials, never both.
type Credentials interface {
	// Method names the login strategy, used in logs and errors.
	Method() string
	credentials()
}

// CookieCredentials logs in by injecting the site's session cookies.
type CookieCredentials struct {
	GUID string `json:"ywguid" validate:"required"`
	Key  string `json:"ywkey" validate:"required"`
}

// Method implements Credentials.
func (CookieCredentials) Method() string { return "cookie" }

func (CookieCredentials) credentials() {}

// AccountCredentials logs in through the site's login form.
type AccountCredentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Method implements Credentials.
func (AccountCredentials) Method() string { return "account" }

func (AccountCredentials) credentials() {}

// String hides the password.
func (c AccountCredentials) String() string {
	return fmt.Sprintf("AccountCredentials{Username: %q}", c.Username)
}

// String hides the key.
func (c CookieCredentials) String() string {
	return fmt.Sprintf("CookieCredentials{GUID: %q}", c.GUID)
}

// CredentialsError reports missing, ambiguous or malformed credentials.
type CredentialsError struct {
	Message string
	Cause   error
}

func (e *CredentialsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("credentials error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("credentials error: %s", e.Message)
}

func (e *CredentialsError) Unwrap() error {
	return e.Cause
}

// ValidateCredentials checks that exactly one credential variant is present
// and that its required fields are set.
func ValidateCredentials(c Credentials) error {
	validate := validator.New()

	switch v := c.(type) {
	case nil:
		return &CredentialsError{Message: "no credentials supplied: use cookie or account login"}
	case CookieCredentials:
		if err := validate.Struct(v); err != nil {
			return &CredentialsError{Message: "cookie login requires ywguid and ywkey", Cause: err}
		}
	case AccountCredentials:
		if err := validate.Struct(v); err != nil {
			return &CredentialsError{Message: "account login requires username and password", Cause: err}
		}
	default:
		return &CredentialsError{Message: fmt.Sprintf("unsupported credentials type %T", c)}
	}
	return nil
}
