package navigation

import "fmt"

// State is the navigation session state.
type State int

const (
	Idle State = iota
	RouteComputing
	AwaitingConfirmation
	Navigating
	Arrived
	Cancelled
	Error
)

var stateNames = [...]string{
	Idle:                 "idle",
	RouteComputing:       "route_computing",
	AwaitingConfirmation: "awaiting_confirmation",
	Navigating:           "navigating",
	Arrived:              "arrived",
	Cancelled:            "cancelled",
	Error:                "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown navigation state %q", b)
}

// active reports whether a session holds resources that must be torn down
// before a new route can be set up.
func (s State) active() bool {
	return s == RouteComputing || s == AwaitingConfirmation || s == Navigating
}
