// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/qidian-downloader/internal/schemas"
	"github.com/jonathan/qidian-downloader/internal/types"
)

// Default values applied by Defaults.
const (
	DefaultOutputDir      = "."
	DefaultTimeoutSeconds = 30
	DefaultNavRate        = 2.0
	DefaultNavBurst       = 2
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	BookID int `json:"book_id,omitempty" validate:"gte=0"` // Book to download

	// Cookie login
	UseCookie bool   `json:"cookie,omitempty"` // Log in with cookies instead of an account
	YWGUID    string `json:"ywguid,omitempty"`
	YWKey     string `json:"ywkey,omitempty"`

	// Account login
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// Browser
	NoHeadless bool    `json:"no_chrome_headless,omitempty"` // Show the browser window
	NavRate    float64 `json:"nav_rate,omitempty" validate:"gte=0,lte=50"`
	NavBurst   int     `json:"nav_burst,omitempty" validate:"gte=0,lte=50"`

	// Bounded waits, in seconds
	AuthTimeout    int `json:"auth_timeout,omitempty" validate:"gte=0,lte=600"`
	CatalogTimeout int `json:"catalog_timeout,omitempty" validate:"gte=0,lte=600"`
	ContentTimeout int `json:"content_timeout,omitempty" validate:"gte=0,lte=600"`

	// Output
	OutputDir string `json:"output_dir,omitempty"`
	Verbose   bool   `json:"verbose,omitempty"`
}

// Defaults returns the configuration used when neither file nor flags set a value.
func Defaults() Config {
	return Config{
		OutputDir:      DefaultOutputDir,
		AuthTimeout:    DefaultTimeoutSeconds,
		CatalogTimeout: DefaultTimeoutSeconds,
		ContentTimeout: DefaultTimeoutSeconds,
		NavRate:        DefaultNavRate,
		NavBurst:       DefaultNavBurst,
	}
}

// LoadConfig loads configuration from a JSON file and checks it against the config schema.
// Returns an error if the file cannot be read, parsed or fails the schema.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := schemas.ValidateConfig(data); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			return nil, fmt.Errorf("config file %s does not match schema (%s): %w", path, strings.Join(validationErr.Fields(), ", "), err)
		}
		return nil, fmt.Errorf("config file %s does not match schema: %w", path, err)
	}

	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("config error: '%s' fails '%s=%s' (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.UseCookie && (c.Username != "" || c.Password != "") {
		return fmt.Errorf("config error: 'cookie' login and 'username'/'password' are mutually exclusive")
	}

	if c.OutputDir != "" {
		if info, err := os.Stat(c.OutputDir); err == nil && !info.IsDir() {
			return fmt.Errorf("config error: output_dir is not a directory: %s", c.OutputDir)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.YWGUID == "" {
		result.YWGUID = defaults.YWGUID
	}
	if result.YWKey == "" {
		result.YWKey = defaults.YWKey
	}
	if result.Username == "" {
		result.Username = defaults.Username
	}
	if result.Password == "" {
		result.Password = defaults.Password
	}
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}

	// Numeric fields: use default if zero
	if result.BookID == 0 {
		result.BookID = defaults.BookID
	}
	if result.AuthTimeout == 0 {
		result.AuthTimeout = defaults.AuthTimeout
	}
	if result.CatalogTimeout == 0 {
		result.CatalogTimeout = defaults.CatalogTimeout
	}
	if result.ContentTimeout == 0 {
		result.ContentTimeout = defaults.ContentTimeout
	}
	if result.NavRate == 0 {
		result.NavRate = defaults.NavRate
	}
	if result.NavBurst == 0 {
		result.NavBurst = defaults.NavBurst
	}

	// Bool fields: a true default wins, since unset and false look the same
	result.UseCookie = result.UseCookie || defaults.UseCookie
	result.NoHeadless = result.NoHeadless || defaults.NoHeadless
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// Credentials returns the login credentials selected by the configuration.
// Cookie login is chosen by the cookie flag or any cookie value, account login
// by a username or password. Selecting both, or neither, is an error.
func (c *Config) Credentials() (types.Credentials, error) {
	guid, key := strings.TrimSpace(c.YWGUID), strings.TrimSpace(c.YWKey)
	username := strings.TrimSpace(c.Username)

	cookie := c.UseCookie || guid != "" || key != ""
	account := username != "" || c.Password != ""

	var creds types.Credentials
	switch {
	case cookie && account:
		return nil, &types.CredentialsError{Message: "cookie and account credentials are mutually exclusive: supply only one"}
	case cookie:
		creds = types.CookieCredentials{GUID: guid, Key: key}
	case account:
		creds = types.AccountCredentials{Username: username, Password: c.Password}
	default:
		return nil, &types.CredentialsError{Message: "no credentials supplied: use --cookie with --ywguid/--ywkey, or --username/--password"}
	}

	if err := types.ValidateCredentials(creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// Headless reports whether the browser runs without a window.
func (c *Config) Headless() bool {
	return !c.NoHeadless
}

// AuthWait returns the authentication timeout.
func (c *Config) AuthWait() time.Duration {
	return seconds(c.AuthTimeout)
}

// CatalogWait returns the catalog resolution timeout.
func (c *Config) CatalogWait() time.Duration {
	return seconds(c.CatalogTimeout)
}

// ContentWait returns the per-chapter timeout.
func (c *Config) ContentWait() time.Duration {
	return seconds(c.ContentTimeout)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
