package engine

import (
	"fmt"
)

// RunError reports the state in which a run failed. Err is the stage error
// (*auth.Error, *catalog.Error, *extract.Error, *types.CredentialsError or a
// context error) and stays reachable through errors.As.
type RunError struct {
	State State
	// Index is the 0-based catalog position being extracted, or -1.
	Index int
	Err   error
}

func (e *RunError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("run failed while %s entry %d: %v", e.State, e.Index+1, e.Err)
	}
	return fmt.Sprintf("run failed while %s: %v", e.State, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
