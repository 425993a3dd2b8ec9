package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQiDian_Valid(t *testing.T) {
	p := QiDian()
	require.NoError(t, p.Validate())
	assert.Equal(t, "ywguid", p.GUIDCookie)
	assert.Equal(t, "ywkey", p.KeyCookie)
}

func TestBookURL(t *testing.T) {
	assert.Equal(t, "https://book.qidian.com/info/1010868264/", QiDian().BookURL(1010868264))
}

func TestIsLoginPage(t *testing.T) {
	p := QiDian()
	p.LoginURL = "https://passport.example.com/login"

	tests := []struct {
		name     string
		location string
		want     bool
	}{
		{"login page", "https://passport.example.com/login", true},
		{"login page with query", "https://passport.example.com/login?returnUrl=x", true},
		{"other path on passport host", "https://passport.example.com/account", false},
		{"other host", "https://www.example.com/login", false},
		{"invalid url", "://bad", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.IsLoginPage(tt.location))
		})
	}
}

func TestValidate_MissingFields(t *testing.T) {
	p := QiDian()
	p.ChapterContent = nil
	p.LoginURL = "  "

	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chapter_content")
	assert.Contains(t, err.Error(), "login_url")
}

func TestValidate_NoLoggedInMarks(t *testing.T) {
	p := QiDian()
	p.LoggedInMarks = nil
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logged_in_marks")
}

func TestValidate_BookPatternWithoutPlaceholder(t *testing.T) {
	p := QiDian()
	p.BookURLPattern = "https://book.example.com/info/"
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "%d")
}
