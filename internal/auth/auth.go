package auth

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jonathan/qidian-downloader/internal/browser"
	"github.com/jonathan/qidian-downloader/internal/site"
	"github.com/jonathan/qidian-downloader/internal/types"
)

// DefaultTimeout bounds each authentication step.
const DefaultTimeout = 30 * time.Second

// Authenticator logs a browser session into the site.
type Authenticator struct {
	Profile *site.Profile
	// Timeout bounds every step: cookie install, each navigation and each wait.
	Timeout time.Duration
	Logger  *slog.Logger
}

// New creates an Authenticator for profile. A zero timeout uses DefaultTimeout.
func New(profile *site.Profile, timeout time.Duration, logger *slog.Logger) *Authenticator {
	if profile == nil {
		profile = site.QiDian()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{Profile: profile, Timeout: timeout, Logger: logger}
}

// Authenticate leaves s logged in or returns an *Error. The session keeps the
// authentication state for the rest of the run.
func (a *Authenticator) Authenticate(ctx context.Context, s browser.Session, creds types.Credentials) error {
	switch c := creds.(type) {
	case types.CookieCredentials:
		return a.withCookie(ctx, s, c)
	case types.AccountCredentials:
		return a.withAccount(ctx, s, c)
	default:
		return types.ValidateCredentials(creds)
	}
}

func (a *Authenticator) withCookie(ctx context.Context, s browser.Session, c types.CookieCredentials) error {
	method := c.Method()
	p := a.Profile

	stepCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	err := s.SetCookies(stepCtx,
		browser.Cookie{Name: p.GUIDCookie, Value: c.GUID, Domain: p.CookieDomain, Path: "/"},
		browser.Cookie{Name: p.KeyCookie, Value: c.Key, Domain: p.CookieDomain, Path: "/"},
	)
	if err != nil {
		return a.fail(ctx, method, KindNavigation, "failed to install cookies", err)
	}
	a.Logger.Debug("cookies installed", "domain", p.CookieDomain)

	loggedIn, err := a.verify(ctx, s, method)
	if err != nil {
		return err
	}
	if !loggedIn {
		return &Error{Kind: KindInvalidCookie, Method: method, Message: "session is anonymous after installing cookies"}
	}

	a.Logger.Info("authenticated", "method", method)
	return nil
}

// loginOutcome is the signal observed after submitting the login form.
type loginOutcome int

const (
	outcomePending loginOutcome = iota
	outcomeChallenge
	outcomeRejected
	outcomeSignedIn
)

func (a *Authenticator) withAccount(ctx context.Context, s browser.Session, c types.AccountCredentials) error {
	method := c.Method()
	p := a.Profile

	// Step 1: open the login form.
	if err := a.navigate(ctx, s, method, p.LoginURL); err != nil {
		return err
	}
	formCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()
	waitFor := append([]string{p.UsernameInput}, p.Challenge...)
	matched, err := browser.WaitForAny(formCtx, s, a.Timeout, waitFor...)
	if err != nil {
		return a.fail(ctx, method, KindNavigation, "login form did not appear", err)
	}
	if slices.Contains(p.Challenge, matched) {
		return &Error{Kind: KindChallengeRequired, Method: method, Message: fmt.Sprintf("challenge %s shown before login", matched)}
	}

	// Step 2: fill and submit.
	if err := s.Type(formCtx, p.UsernameInput, c.Username); err != nil {
		return a.fail(ctx, method, KindNavigation, "failed to enter username", err)
	}
	if err := s.Type(formCtx, p.PasswordInput, c.Password); err != nil {
		return a.fail(ctx, method, KindNavigation, "failed to enter password", err)
	}
	if err := s.Click(formCtx, p.SubmitButton); err != nil {
		return a.fail(ctx, method, KindNavigation, "failed to submit login form", err)
	}
	a.Logger.Debug("login form submitted", "username", c.Username)

	// Step 3: wait for a post-login navigation or DOM signal. The page is
	// navigating away here, so session errors only count once the wait expires.
	outcome := outcomePending
	var signal string
	var lastErr error
	err = browser.WaitFor(ctx, a.Timeout, browser.DefaultPollInterval, func(ctx context.Context) (bool, error) {
		got, sig, err := a.loginOutcome(ctx, s)
		if err != nil {
			lastErr = err
			a.Logger.Debug("login outcome not readable yet", "error", err)
			return false, nil
		}
		outcome, signal = got, sig
		return outcome != outcomePending, nil
	})
	if err != nil {
		if lastErr != nil {
			err = fmt.Errorf("%w (last error: %v)", err, lastErr)
		}
		return a.fail(ctx, method, KindNavigation, "no response to login", err)
	}

	switch outcome {
	case outcomeChallenge:
		return &Error{Kind: KindChallengeRequired, Method: method, Message: fmt.Sprintf("challenge %s shown after login", signal)}
	case outcomeRejected:
		return &Error{Kind: KindInvalidCredentials, Method: method, Message: fmt.Sprintf("login rejected (%s)", signal)}
	}

	loggedIn, err := a.verify(ctx, s, method)
	if err != nil {
		return err
	}
	if !loggedIn {
		return &Error{Kind: KindInvalidCredentials, Method: method, Message: "session is anonymous after login"}
	}

	a.Logger.Info("authenticated", "method", method, "signal", signal)
	return nil
}

// loginOutcome inspects the current page once. Challenges take precedence
// over errors, errors over success signals.
func (a *Authenticator) loginOutcome(ctx context.Context, s browser.Session) (loginOutcome, string, error) {
	p := a.Profile

	if sel, err := firstPresent(ctx, s, p.Challenge); err != nil || sel != "" {
		return outcomeChallenge, sel, err
	}
	if sel, err := firstPresent(ctx, s, p.LoginError); err != nil || sel != "" {
		return outcomeRejected, sel, err
	}
	if sel, err := firstPresent(ctx, s, p.LoggedInMarks); err != nil || sel != "" {
		return outcomeSignedIn, sel, err
	}

	loc, err := s.Location(ctx)
	if err != nil {
		return outcomePending, "", err
	}
	if loc != "" && !p.IsLoginPage(loc) {
		return outcomeSignedIn, "navigated to " + loc, nil
	}
	return outcomePending, "", nil
}

// verify loads the authenticated-only page and reports whether the session is logged in.
func (a *Authenticator) verify(ctx context.Context, s browser.Session, method string) (bool, error) {
	p := a.Profile
	if err := a.navigate(ctx, s, method, p.VerifyURL); err != nil {
		return false, err
	}

	markers := append(append([]string{}, p.LoggedInMarks...), p.AnonymousMarks...)
	matched, err := browser.WaitForAny(ctx, s, a.Timeout, markers...)
	if err != nil {
		return false, a.fail(ctx, method, KindNavigation, "could not determine login state", err)
	}
	a.Logger.Debug("login state verified", "url", p.VerifyURL, "marker", matched)
	return slices.Contains(p.LoggedInMarks, matched), nil
}

func (a *Authenticator) navigate(ctx context.Context, s browser.Session, method, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()
	if err := s.Navigate(navCtx, url); err != nil {
		return a.fail(ctx, method, KindNavigation, fmt.Sprintf("failed to load %s", url), err)
	}
	return nil
}

// fail classifies err: caller cancellation is returned as is, expired waits
// become KindTimeout and everything else becomes kind.
func (a *Authenticator) fail(ctx context.Context, method string, kind Kind, message string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("authentication aborted: %w", ctx.Err())
	}
	if browser.IsTimeout(err) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Method: method, Message: message, Cause: err}
}

func firstPresent(ctx context.Context, s browser.Session, selectors []string) (string, error) {
	for _, sel := range selectors {
		ok, err := s.Exists(ctx, sel)
		if err != nil {
			return "", err
		}
		if ok {
			return sel, nil
		}
	}
	return "", nil
}
