package searcher

import (
	"context"

	"nsmdp/mdp"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

// MCTS is the sampling planner shared by the vanilla Monte-Carlo, UCT and
// OLUCT variants; they differ only in selection policy and outcome matching.
// Each decision runs budget simulations of select, expand, rollout and
// backup, then recommends the most-visited root action.
type MCTS struct {
	model mdp.Model
	dist  mdp.DistanceModel // non-nil only for the clustered variant
	sel   selector
	set   settings
	rng   *rand.Rand
	tree  *tree
	rootT int
}

// NewMC builds the vanilla Monte-Carlo planner: uniform selection among
// expanded edges, single expansion per simulation, random playouts.
func NewMC(model mdp.Model, options ...Option) *MCTS {
	return newMCTS(model, nil, uniform{}, options)
}

// NewUCT builds a UCT planner: UCB1 selection with untried-action priority.
func NewUCT(model mdp.Model, options ...Option) *MCTS {
	m := newMCTS(model, nil, nil, options)
	m.sel = ucb{c: m.set.c}
	return m
}

// NewOLUCT builds a UCT planner with state aggregation: sampled outcomes
// within the cluster radius of an existing child share that child's
// statistics, trading a small bias for reduced branching. With a zero
// radius it behaves exactly like UCT.
func NewOLUCT(model mdp.DistanceModel, options ...Option) *MCTS {
	m := newMCTS(model, model, nil, options)
	m.sel = ucb{c: m.set.c}
	return m
}

func newMCTS(model mdp.Model, dist mdp.DistanceModel, sel selector, options []Option) *MCTS {
	set := defaultSettings()
	for _, option := range options {
		option(&set)
	}
	return &MCTS{model: model, dist: dist, sel: sel, set: set, rng: set.newRand()}
}

func (m *MCTS) Plan(ctx context.Context, state mdp.State, t int) (mdp.Action, error) {
	met := m.set.collector
	met.Start()

	if m.model.IsTerminal(state, t) {
		return nil, errors.Errorf("plan called on terminal state at step %d", t)
	}

	reused := false
	if m.set.reuse && m.tree != nil && m.tree.root != none {
		root := m.tree.at(m.tree.root)
		reused = root.t == t && m.model.EqualStates(root.state, state)
		if !reused {
			log.Warn().Int("step", t).Msg("retained root does not match the planning state, rebuilding tree")
		}
	}
	if !reused {
		m.tree = newTree()
		h, err := m.newNode(state, t, none, -1, false)
		if err != nil {
			return nil, err
		}
		m.tree.root = h
	}
	met.SetTreeReuse(reused)
	m.rootT = t

	for i := 0; i < m.set.budget; i++ {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "planning cancelled")
		default:
		}
		if err := m.simulate(); err != nil {
			return nil, err
		}
		met.AddSimulation()
	}
	met.SetTreeSize(m.tree.size())

	root := m.tree.at(m.tree.root)
	if len(root.edges) == 0 {
		return nil, errors.Errorf("search produced no root statistics at step %d", t)
	}
	return root.edges[robustChild(root)].action, nil
}

// Advance re-roots at the child reached by the committed action and the
// observed transition, discarding every sibling subtree. A miss drops the
// whole tree; the next Plan call starts fresh.
func (m *MCTS) Advance(action mdp.Action, observed mdp.State, t int) bool {
	if !m.set.reuse || m.tree == nil || m.tree.root == none {
		return false
	}
	if m.tree.advance(m.close, action, observed, t) {
		return true
	}
	log.Warn().Int("step", t).Msg("observed transition not in tree, discarding")
	m.tree = nil
	return false
}

// frame records one step of a simulation path: the node reached and the
// reward observed entering it during this simulation. The reward is kept on
// the path rather than the node because stochastic models may pay a
// different reward each traversal.
type frame struct {
	h handle
	r float64
}

func (m *MCTS) simulate() error {
	tr := m.tree
	h := tr.root
	path := []frame{{h: h}}

	for {
		n := tr.at(h)

		if n.terminal || n.t-m.rootT >= m.set.horizon {
			if n.terminal {
				m.set.collector.AddFullRollout()
			}
			m.backup(path, 0)
			return nil
		}

		if n.expandable() {
			// Single expansion per simulation: the next untried action in
			// the node's shuffled order.
			i := len(n.edges)
			action := n.actions[i]
			step, err := m.model.Step(n.state, n.t, action)
			if err != nil {
				return err
			}
			kid, err := m.newNode(step.State, n.t+1, h, i, step.Done)
			if err != nil {
				return err
			}
			n = tr.at(h) // alloc may have moved the arena
			n.edges = append(n.edges, edge{action: action})
			e := &n.edges[i]
			e.observe(step.Reward)
			e.kids = append(e.kids, kid)
			e.hits = append(e.hits, 1)

			path = append(path, frame{h: kid, r: step.Reward})
			value, err := m.rollout(step.State, n.t+1, step.Done)
			if err != nil {
				return err
			}
			m.backup(path, value)
			return nil
		}

		// Fully expanded: descend the selected edge on a fresh sample.
		i := m.sel.pick(n, m.rng)
		action := n.edges[i].action
		step, err := m.model.Step(n.state, n.t, action)
		if err != nil {
			return err
		}
		e := &n.edges[i]
		e.observe(step.Reward)

		k := m.matchKid(e, step.State)
		if k < 0 {
			// A previously unseen outcome of a known action: expand it and
			// stop descending.
			kid, err := m.newNode(step.State, n.t+1, h, i, step.Done)
			if err != nil {
				return err
			}
			e = &tr.at(h).edges[i]
			e.kids = append(e.kids, kid)
			e.hits = append(e.hits, 1)
			path = append(path, frame{h: kid, r: step.Reward})
			value, err := m.rollout(step.State, tr.at(kid).t, step.Done)
			if err != nil {
				return err
			}
			m.backup(path, value)
			return nil
		}

		e.hits[k]++
		h = e.kids[k]
		path = append(path, frame{h: h, r: step.Reward})
	}
}

// rollout estimates the return from a leaf by a uniform-random playout to
// the horizon, or by the configured heuristic evaluator.
func (m *MCTS) rollout(state mdp.State, t int, done bool) (float64, error) {
	if done || m.model.IsTerminal(state, t) {
		return 0, nil
	}
	if m.set.leafValue != nil {
		return m.set.leafValue(state, t), nil
	}

	value, discount := 0.0, 1.0
	for t-m.rootT < m.set.horizon {
		actions, err := m.model.LegalActions(state, t)
		if err != nil {
			return 0, err
		}
		if len(actions) == 0 {
			return 0, errors.Wrapf(mdp.ErrNoLegalAction, "at step %d", t)
		}
		step, err := m.model.Step(state, t, actions[m.rng.Intn(len(actions))])
		if err != nil {
			return 0, err
		}
		value += discount * step.Reward
		discount *= m.set.gamma
		state, t = step.State, t+1
		if step.Done || m.model.IsTerminal(state, t) {
			m.set.collector.AddFullRollout()
			break
		}
	}
	return value, nil
}

// backup walks the path from the leaf to the root iteratively: every node's
// visit count is incremented before its value is re-averaged, and the return
// folds in each incoming reward with one discount per level on the way up.
func (m *MCTS) backup(path []frame, leafValue float64) {
	tr := m.tree
	est := leafValue
	for i := len(path) - 1; i >= 0; i-- {
		n := tr.at(path[i].h)
		n.update(est)
		if i == 0 {
			break
		}
		est = path[i].r + m.set.gamma*est
		tr.at(path[i-1].h).edges[n.in].update(est)
	}
}

func (m *MCTS) newNode(state mdp.State, t int, parent handle, in int, done bool) (handle, error) {
	return makeNode(m.tree, m.model, m.rng, state, t, parent, in, done)
}

func (m *MCTS) matchKid(e *edge, state mdp.State) int {
	for k, kid := range e.kids {
		if m.close(m.tree.at(kid).state, state) {
			return k
		}
	}
	return -1
}

// close is the outcome matcher: exact state equality, or distance within the
// cluster radius for the aggregating variant.
func (m *MCTS) close(a, b mdp.State) bool {
	if m.dist != nil && m.set.radius > 0 {
		return m.dist.Distance(a, b) <= m.set.radius
	}
	return m.model.EqualStates(a, b)
}
