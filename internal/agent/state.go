package agent

// State is a node of the per-task state machine.
type State int

const (
	StateInit State = iota
	StateAwaitModel
	StateParsed
	StateConfirming
	StateDispatching
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAwaitModel:
		return "await_model"
	case StateParsed:
		return "parsed"
	case StateConfirming:
		return "confirming"
	case StateDispatching:
		return "dispatching"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Outcome is how a run reached StateTerminal.
type Outcome int

const (
	OutcomeFinalAnswer Outcome = iota + 1
	OutcomeCancelled
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFinalAnswer:
		return "final_answer"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}
