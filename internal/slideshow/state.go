package slideshow

// State is the supervisor's position in its run cycle.
type State int32

const (
	// StateIdle means Start has never been called.
	StateIdle State = iota
	// StateWaitingForMonitor means the probe is polled for a display.
	StateWaitingForMonitor
	// StateStartingPlayer means a player is being built.
	StateStartingPlayer
	// StateRunning means a player is inside its blocking Start call.
	StateRunning
	// StateStopped means the supervision goroutine has exited.
	StateStopped
)

// String returns the state name used in logs and metrics.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingForMonitor:
		return "waiting_for_monitor"
	case StateStartingPlayer:
		return "starting_player"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// State returns the current supervisor state.
func (s *Service) State() State {
	return State(s.state.Load())
}

func (s *Service) setState(st State) {
	s.state.Store(int32(st))
}
