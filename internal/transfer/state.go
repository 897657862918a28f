package transfer

// State is the lifecycle state of one transfer session. Transitions are
// serialized by the owning session; workers only move forward through the
// table in session.go.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCancelling
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCancelling:
		return "cancelling"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Mode selects the transfer path for a request.
type Mode int

const (
	ModePlainFile Mode = iota
	ModeMediaStream
)

func (m Mode) String() string {
	if m == ModeMediaStream {
		return "media"
	}
	return "file"
}

// Request describes one transfer. It is immutable once handed to a session.
type Request struct {
	URL          string
	OutputPath   string
	Resume       bool
	Mode         Mode
	Quality      string // media mode only, preset name or raw format id
	DeclaredSize int64  // from the reachability probe, 0 = unknown
}

// Outcome is the single result a caller observes after a session reaches a
// terminal state.
type Outcome struct {
	State State
	Path  string
	Bytes int64
	Err   error
}
