// Package discoveryctrl implements the pseudo discovery controller (C3):
// it accepts host connections over a transport.Transport, drives each
// connection through the Fabrics/Admin command state machine, and answers
// Get Log Page requests from the configuration model filtered by the
// requesting host's NQN and ACLs (spec §4.3).
package discoveryctrl

// ConnState is a host connection's position in the discovery state machine.
type ConnState int

const (
	StateIdle ConnState = iota
	StateAuthenticated
	StateEnabled
	StateDisabled
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticated:
		return "authenticated"
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// validTransitions enumerates the state machine's legal edges (spec §4.3).
var validTransitions = map[ConnState][]ConnState{
	StateIdle:          {StateAuthenticated, StateClosed},
	StateAuthenticated: {StateEnabled, StateClosed},
	StateEnabled:       {StateDisabled, StateClosed},
	StateDisabled:      {StateClosed},
	StateClosed:        {},
}

func (s ConnState) canTransitionTo(next ConnState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
