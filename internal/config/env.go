package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables read by FromEnv.
const (
	EnvBookID   = "QIDIAN_BOOK_ID"
	EnvYWGUID   = "QIDIAN_YWGUID"
	EnvYWKey    = "QIDIAN_YWKEY"
	EnvUsername = "QIDIAN_USERNAME"
	EnvPassword = "QIDIAN_PASSWORD"
)

// FromEnv reads the QIDIAN_* variables. Unset variables leave fields empty.
func FromEnv() (Config, error) {
	return fromLookup(os.Getenv)
}

func fromLookup(getenv func(string) string) (Config, error) {
	cfg := Config{
		YWGUID:   getenv(EnvYWGUID),
		YWKey:    getenv(EnvYWKey),
		Username: getenv(EnvUsername),
		Password: getenv(EnvPassword),
	}

	if raw := getenv(EnvBookID); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %v", EnvBookID, err)
		}
		if id < 1 {
			return Config{}, fmt.Errorf("%s must be a positive integer, got: %d", EnvBookID, id)
		}
		cfg.BookID = id
	}

	return cfg, nil
}

// WithEnv fills missing values from env. Credentials from env only complete
// the login method already selected; when none is selected env may select one.
func (c *Config) WithEnv(env Config) Config {
	result := *c
	if result.BookID == 0 {
		result.BookID = env.BookID
	}

	cookieChosen := result.UseCookie || result.YWGUID != "" || result.YWKey != ""
	accountChosen := result.Username != "" || result.Password != ""

	if !accountChosen {
		if result.YWGUID == "" {
			result.YWGUID = env.YWGUID
		}
		if result.YWKey == "" {
			result.YWKey = env.YWKey
		}
	}
	if !cookieChosen {
		if result.Username == "" {
			result.Username = env.Username
		}
		if result.Password == "" {
			result.Password = env.Password
		}
	}
	return result
}
