package mdp

import "errors"

// State is an opaque model state. The planner never inspects its structure;
// equality between states is delegated to Model.EqualStates.
type State any

// Action is a member of the finite action set reported by a model for a
// given (state, time) pair. Actions must be Go-comparable values.
type Action any

// Transition is the outcome of applying one action to one state at one step.
type Transition struct {
	State  State
	Reward float64
	Done   bool
}

// Model is the contract a time-varying decision process must satisfy to be
// planned against. Transitions and rewards may depend on the step index t,
// so the same state at two different steps is a different planning situation.
//
// Step may be stochastic; repeated calls with identical arguments must yield
// independent samples. The planner never caches calls on the model's behalf.
type Model interface {
	// LegalActions reports the actions available in state at step t.
	// It fails with ErrInvalidState when (state, t) is outside the domain.
	LegalActions(state State, t int) ([]Action, error)

	// Step samples one transition from (state, t) under action.
	Step(state State, t int, action Action) (Transition, error)

	// IsTerminal reports whether (state, t) ends the process.
	IsTerminal(state State, t int) bool

	// EqualStates reports whether two states are the same for tree purposes.
	EqualStates(a, b State) bool
}

// DistanceModel is an optional capability for models with a metric over
// states. Clustered search (OLUCT) needs it to aggregate nearby outcomes.
type DistanceModel interface {
	Model

	// Distance between two states; 0 means identical.
	Distance(a, b State) float64
}

var (
	// ErrInvalidState reports a model query outside its domain.
	ErrInvalidState = errors.New("state out of model domain")

	// ErrNoLegalAction reports a non-terminal state with an empty action set,
	// a violation of the model contract.
	ErrNoLegalAction = errors.New("non-terminal state has no legal actions")

	// ErrNotConverged reports that value sweeps did not settle within the
	// sweep budget.
	ErrNotConverged = errors.New("value sweeps did not converge within budget")
)
