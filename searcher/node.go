package searcher

import (
	"nsmdp/mdp"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// edge carries the aggregate statistics for one action at one node: the mean
// sampled return through the edge, the mean immediate reward, and the outcome
// states observed so far. Deterministic models keep a single kid per edge;
// stochastic models grow one kid per distinct sampled outcome.
type edge struct {
	action  mdp.Action
	visits  int
	value   float64 // incremental mean of discounted returns through this edge
	samples int
	reward  float64  // incremental mean of immediate rewards sampled on this edge
	kids    []handle // outcome children, matched by state equality or cluster radius
	hits    []int    // sample counts per kid, parallel to kids
}

func (e *edge) update(ret float64) {
	e.visits++
	e.value += (ret - e.value) / float64(e.visits)
}

func (e *edge) observe(reward float64) {
	e.samples++
	e.reward += (reward - e.reward) / float64(e.samples)
}

// node is one lookahead situation: a state at a step index. Two nodes with
// equal states at different steps are distinct, since the model is
// non-stationary. The legal action list is fetched once at creation and
// shuffled; edges grow in that order, one per expansion.
type node struct {
	state    mdp.State
	t        int
	parent   handle
	in       int // index of the parent edge leading here, -1 at the root
	terminal bool
	visits   int
	value    float64 // incremental mean of sampled returns from this node
	actions  []mdp.Action
	edges    []edge
}

func (n *node) expandable() bool {
	return !n.terminal && len(n.edges) < len(n.actions)
}

func (n *node) update(ret float64) {
	n.visits++
	n.value += (ret - n.value) / float64(n.visits)
}

// makeNode allocates a node for (state, t), fetching and shuffling its legal
// actions unless the situation is terminal. A non-terminal state with an
// empty action set violates the model contract.
func makeNode(tr *tree, model mdp.Model, rng *rand.Rand, state mdp.State, t int, parent handle, in int, done bool) (handle, error) {
	terminal := done || model.IsTerminal(state, t)
	n := node{state: state, t: t, parent: parent, in: in, terminal: terminal}
	if !terminal {
		actions, err := model.LegalActions(state, t)
		if err != nil {
			return none, err
		}
		if len(actions) == 0 {
			return none, errors.Wrapf(mdp.ErrNoLegalAction, "at step %d", t)
		}
		rng.Shuffle(len(actions), func(i, j int) {
			actions[i], actions[j] = actions[j], actions[i]
		})
		n.actions = actions
	}
	return tr.alloc(n), nil
}
