package engine

// State is a step of the acquisition state machine.
type State int

const (
	StateIdle State = iota
	StateAuthenticating
	StateResolvingCatalog
	StateExtracting
	StateAssembling
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateResolvingCatalog:
		return "resolving_catalog"
	case StateExtracting:
		return "extracting"
	case StateAssembling:
		return "assembling"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// ProgressEvent reports a state transition or one extracted chapter.
type ProgressEvent struct {
	RunID   string `json:"run_id"`
	State   State  `json:"state"`
	Message string `json:"message"`
	// Index and Total are set while extracting; Index is 1-based.
	Index int    `json:"index,omitempty"`
	Total int    `json:"total,omitempty"`
	Title string `json:"title,omitempty"`
}

// ProgressCallback is called synchronously from Run.
type ProgressCallback func(event ProgressEvent)
