package mdp

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// ChainState is the state of the built-in chain models. Branch is -1 before
// the first action commits the process to one of the NumActions branches.
type ChainState struct {
	Branch int
	Drift  float64
}

// Start returns the initial chain state.
func Start() ChainState {
	return ChainState{Branch: -1}
}

// RewardFunc maps a committed branch and a step index to a reward. The step
// dependence is what makes the chain non-stationary.
type RewardFunc func(branch, t int) float64

// Chain is a deterministic non-stationary process: the first action selects
// a branch, every later action keeps the process on that branch, and the
// reward at step t depends only on (branch, t). The process ends after
// Horizon steps.
type Chain struct {
	NumActions int
	Horizon    int
	Reward     RewardFunc
}

func (c *Chain) LegalActions(state State, t int) ([]Action, error) {
	if _, err := c.check(state, t); err != nil {
		return nil, err
	}
	actions := make([]Action, c.NumActions)
	for i := range actions {
		actions[i] = i
	}
	return actions, nil
}

func (c *Chain) Step(state State, t int, action Action) (Transition, error) {
	cs, err := c.check(state, t)
	if err != nil {
		return Transition{}, err
	}
	a, ok := action.(int)
	if !ok || a < 0 || a >= c.NumActions {
		return Transition{}, errors.Wrapf(ErrInvalidState, "action %v", action)
	}

	branch := cs.Branch
	if branch < 0 {
		branch = a
	}
	return Transition{
		State:  ChainState{Branch: branch},
		Reward: c.Reward(branch, t),
		Done:   t+1 >= c.Horizon,
	}, nil
}

func (c *Chain) IsTerminal(state State, t int) bool {
	return t >= c.Horizon
}

func (c *Chain) EqualStates(a, b State) bool {
	return a.(ChainState) == b.(ChainState)
}

func (c *Chain) check(state State, t int) (ChainState, error) {
	cs, ok := state.(ChainState)
	if !ok {
		return ChainState{}, errors.Wrapf(ErrInvalidState, "state %v", state)
	}
	if t < 0 || cs.Branch >= c.NumActions {
		return ChainState{}, errors.Wrapf(ErrInvalidState, "branch %d at step %d", cs.Branch, t)
	}
	return cs, nil
}

// NoisyChain perturbs a Chain with seeded Gaussian drift on every step, so
// the same (state, t, action) query yields a spread of nearby successor
// states. Drift scales the reward down slightly, which keeps low-noise
// trajectories preferable without changing the optimal branch.
type NoisyChain struct {
	Chain
	Sigma float64

	rng *rand.Rand
}

// NewNoisyChain seeds the model's own sampling source. Distinct seeds give
// distinct outcome sequences; the planner's seed is independent of this one.
func NewNoisyChain(chain Chain, sigma float64, seed uint64) *NoisyChain {
	return &NoisyChain{
		Chain: chain,
		Sigma: sigma,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (c *NoisyChain) Step(state State, t int, action Action) (Transition, error) {
	tr, err := c.Chain.Step(state, t, action)
	if err != nil {
		return Transition{}, err
	}
	cs := tr.State.(ChainState)
	cs.Drift = state.(ChainState).Drift + c.rng.NormFloat64()*c.Sigma
	tr.State = cs
	tr.Reward -= math.Abs(cs.Drift)
	return tr, nil
}

func (c *NoisyChain) Distance(a, b State) float64 {
	as, bs := a.(ChainState), b.(ChainState)
	if as.Branch != bs.Branch {
		return math.Inf(1)
	}
	return math.Abs(as.Drift - bs.Drift)
}
