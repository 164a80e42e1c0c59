package monitor

// State is the connection lifecycle state. It is the single source of
// truth for whether calls may be attempted against the gateway.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateError        State = "error"
	StateShutdown     State = "shutdown"
)

// String returns the state name.
func (s State) String() string {
	return string(s)
}

// States returns every lifecycle state in a fixed order.
func States() []State {
	return []State{
		StateDisconnected,
		StateConnecting,
		StateConnected,
		StateReconnecting,
		StateError,
		StateShutdown,
	}
}

// legalTransitions maps each state to the states it may move to.
// StateShutdown is terminal.
var legalTransitions = map[State][]State{
	StateDisconnected: {StateConnecting, StateReconnecting, StateShutdown},
	StateConnecting:   {StateConnected, StateError, StateDisconnected, StateShutdown},
	StateConnected:    {StateDisconnected, StateReconnecting, StateShutdown},
	StateReconnecting: {StateConnected, StateError, StateDisconnected, StateShutdown},
	StateError:        {StateConnecting, StateReconnecting, StateShutdown},
	StateShutdown:     {},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
