package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultPollInterval is how often WaitFor re-evaluates its condition.
const DefaultPollInterval = 250 * time.Millisecond

// ErrWaitTimeout is returned when a bounded wait expires before its condition holds.
var ErrWaitTimeout = errors.New("wait timed out")

// Condition is evaluated by WaitFor until it returns true or an error.
type Condition func(ctx context.Context) (bool, error)

// WaitFor polls cond every interval until it reports true, the timeout
// expires (ErrWaitTimeout) or ctx is done (ctx.Err()). A timeout <= 0 waits
// until ctx is done.
func WaitFor(ctx context.Context, timeout, interval time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(waitCtx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if waitCtx.Err() != nil {
				return ErrWaitTimeout
			}
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrWaitTimeout
		case <-ticker.C:
		}
	}
}

// WaitForAny waits until one of selectors is present in the current page of s
// and returns it. Selectors are checked in order on every poll, so earlier
// selectors win when several match.
func WaitForAny(ctx context.Context, s Session, timeout time.Duration, selectors ...string) (string, error) {
	if len(selectors) == 0 {
		return "", fmt.Errorf("no selectors to wait for")
	}

	var matched string
	err := WaitFor(ctx, timeout, DefaultPollInterval, func(ctx context.Context) (bool, error) {
		for _, sel := range selectors {
			if sel == "" {
				continue
			}
			ok, err := s.Exists(ctx, sel)
			if err != nil {
				return false, err
			}
			if ok {
				matched = sel
				return true, nil
			}
		}
		return false, nil
	})
	if errors.Is(err, ErrWaitTimeout) {
		return "", fmt.Errorf("%w after %s waiting for %s", ErrWaitTimeout, timeout, strings.Join(selectors, " | "))
	}
	if err != nil {
		return "", err
	}
	return matched, nil
}

// IsTimeout reports whether err is a wait or context deadline expiry.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrWaitTimeout) || errors.Is(err, context.DeadlineExceeded)
}
