// Package site describes the pages of the content site: URLs, cookie names and
// the CSS selectors the authenticator, resolver and extractor rely on.
package site

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Profile holds everything that is specific to one site's markup.
type Profile struct {
	Name string

	// URLs
	LoginURL       string
	VerifyURL      string
	BookURLPattern string // fmt pattern taking the numeric book id

	// Cookie login
	CookieDomain   string
	GUIDCookie     string
	KeyCookie      string
	LoggedInMarks  []string
	AnonymousMarks []string

	// Account login
	UsernameInput string
	PasswordInput string
	SubmitButton  string
	LoginError    []string
	Challenge     []string

	// Catalog page
	CatalogContainer string
	BookNotFound     []string
	BookTitle        string
	BookAuthor       string
	Volume           string
	VolumeTitle      string
	VolumeTitleNoise []string
	ChapterLink      string

	// Chapter page. Title and content selectors are tried in order.
	ChapterTitle   []string
	ChapterContent []string
	ChapterNoise   []string
	ChapterLocked  []string
	SessionExpired []string
}

// QiDian returns the profile for qidian.com.
func QiDian() *Profile {
	return &Profile{
		Name: "qidian",

		LoginURL:       "https://passport.qidian.com/",
		VerifyURL:      "https://my.qidian.com/",
		BookURLPattern: "https://book.qidian.com/info/%d/",

		CookieDomain: ".qidian.com",
		GUIDCookie:   "ywguid",
		KeyCookie:    "ywkey",
		LoggedInMarks: []string{
			"#j-topUserName",
			".my-header .user-name",
		},
		AnonymousMarks: []string{
			"#j-topLoginBtn",
			".login-box",
		},

		UsernameInput: "#username",
		PasswordInput: "#password",
		SubmitButton:  "#j-login-btn",
		LoginError: []string{
			".login-error:not(:empty)",
			".error-tip:not(:empty)",
		},
		Challenge: []string{
			"#tcaptcha_iframe",
			"#tcaptcha_transform",
			".captcha-wrap",
		},

		CatalogContainer: "#j-catalogWrap",
		BookNotFound: []string{
			".error-text",
			"#j-error-page",
		},
		BookTitle:   ".book-info h1 em, #bookName",
		BookAuthor:  ".book-info .writer, .book-author .writer",
		Volume:      "#j-catalogWrap .volume",
		VolumeTitle: "h3",
		VolumeTitleNoise: []string{
			"span",
			"i",
			"em.count",
			"a",
		},
		ChapterLink: "ul li a",

		ChapterTitle: []string{
			".j_chapterName .content-wrap",
			".j_chapterName",
			"h1.title",
		},
		ChapterContent: []string{
			".read-content.j_readContent",
			"main.content",
		},
		ChapterNoise: []string{
			".review",
			".review-count",
			".admire-wrap",
			".chapter-control",
			".j_bookmark",
			".read-btn-box",
			".guide-download",
		},
		ChapterLocked: []string{
			".vip-limit-wrap",
			".lock-mask",
		},
		SessionExpired: []string{
			".login-mask",
			"#loginPopup",
		},
	}
}

// BookURL returns the catalog URL for bookID.
func (p *Profile) BookURL(bookID int) string {
	return fmt.Sprintf(p.BookURLPattern, bookID)
}

// IsLoginPage reports whether location is still on the login page.
func (p *Profile) IsLoginPage(location string) bool {
	login, err := url.Parse(p.LoginURL)
	if err != nil {
		return false
	}
	loc, err := url.Parse(location)
	if err != nil {
		return false
	}
	if !strings.EqualFold(login.Host, loc.Host) {
		return false
	}
	return strings.HasPrefix(loc.Path, strings.TrimSuffix(login.Path, "/"))
}

// Validate checks that every selector and URL the components need is set.
func (p *Profile) Validate() error {
	required := map[string]string{
		"login_url":         p.LoginURL,
		"verify_url":        p.VerifyURL,
		"book_url_pattern":  p.BookURLPattern,
		"cookie_domain":     p.CookieDomain,
		"guid_cookie":       p.GUIDCookie,
		"key_cookie":        p.KeyCookie,
		"username_input":    p.UsernameInput,
		"password_input":    p.PasswordInput,
		"submit_button":     p.SubmitButton,
		"catalog_container": p.CatalogContainer,
		"volume":            p.Volume,
		"chapter_link":      p.ChapterLink,
	}
	var missing []string
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(p.LoggedInMarks) == 0 {
		missing = append(missing, "logged_in_marks")
	}
	if len(p.ChapterContent) == 0 {
		missing = append(missing, "chapter_content")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("site profile %q is missing: %s", p.Name, strings.Join(missing, ", "))
	}
	if !strings.Contains(p.BookURLPattern, "%d") {
		return fmt.Errorf("site profile %q: book_url_pattern must contain %%d", p.Name)
	}
	return nil
}
