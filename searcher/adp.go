package searcher

import (
	"context"
	"math"

	"nsmdp/mdp"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

// ADP is the online asynchronous dynamic-programming planner. Instead of
// repeated random simulations it materializes the tree breadth-first to the
// horizon, then sweeps value backups over it until the largest value change
// falls below the tolerance. A sweep budget that runs out before convergence
// is an error, never an endless loop.
type ADP struct {
	model mdp.Model
	set   settings
	rng   *rand.Rand
	tree  *tree
	rootT int
}

func NewADP(model mdp.Model, options ...Option) *ADP {
	set := defaultSettings()
	for _, option := range options {
		option(&set)
	}
	return &ADP{model: model, set: set, rng: set.newRand()}
}

func (p *ADP) Plan(ctx context.Context, state mdp.State, t int) (mdp.Action, error) {
	met := p.set.collector
	met.Start()

	if p.model.IsTerminal(state, t) {
		return nil, errors.Errorf("plan called on terminal state at step %d", t)
	}

	reused := false
	if p.set.reuse && p.tree != nil && p.tree.root != none {
		root := p.tree.at(p.tree.root)
		reused = root.t == t && p.model.EqualStates(root.state, state)
		if !reused {
			log.Warn().Int("step", t).Msg("retained root does not match the planning state, rebuilding tree")
		}
	}
	if !reused {
		p.tree = newTree()
		h, err := makeNode(p.tree, p.model, p.rng, state, t, none, -1, false)
		if err != nil {
			return nil, err
		}
		p.tree.root = h
	}
	met.SetTreeReuse(reused)
	p.rootT = t

	order, err := p.materialize(ctx)
	if err != nil {
		return nil, err
	}
	met.SetTreeSize(p.tree.size())

	if err := p.sweep(ctx, order); err != nil {
		return nil, err
	}

	// One-step backed-up values were stored on the root edges by the final
	// sweep; ties break toward the first-encountered edge.
	root := p.tree.at(p.tree.root)
	best := 0
	for i := 1; i < len(root.edges); i++ {
		if root.edges[i].value > root.edges[best].value {
			best = i
		}
	}
	return root.edges[best].action, nil
}

func (p *ADP) Advance(action mdp.Action, observed mdp.State, t int) bool {
	if !p.set.reuse || p.tree == nil || p.tree.root == none {
		return false
	}
	if p.tree.advance(p.model.EqualStates, action, observed, t) {
		return true
	}
	log.Warn().Int("step", t).Msg("observed transition not in tree, discarding")
	p.tree = nil
	return false
}

// materialize expands the tree breadth-first to the horizon, drawing a fixed
// number of outcome samples per edge, and returns the nodes in visit order.
// Nodes retained from a previous decision keep their edges; only missing
// ones are expanded.
func (p *ADP) materialize(ctx context.Context) ([]handle, error) {
	tr := p.tree
	var order []handle
	queue := []handle{tr.root}

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "planning cancelled")
		default:
		}

		h := queue[0]
		queue = queue[1:]
		order = append(order, h)

		n := tr.at(h)
		if n.terminal || n.t-p.rootT >= p.set.horizon {
			continue
		}
		if len(n.edges) == 0 {
			if err := p.expand(h); err != nil {
				return nil, err
			}
		}
		for i := range tr.at(h).edges {
			queue = append(queue, tr.at(h).edges[i].kids...)
		}
	}
	return order, nil
}

func (p *ADP) expand(h handle) error {
	tr := p.tree
	actions := tr.at(h).actions
	for i, action := range actions {
		tr.at(h).edges = append(tr.at(h).edges, edge{action: action})
		for s := 0; s < p.set.samples; s++ {
			n := tr.at(h)
			step, err := p.model.Step(n.state, n.t, action)
			if err != nil {
				return err
			}
			e := &n.edges[i]
			e.observe(step.Reward)

			matched := false
			for k, kid := range e.kids {
				if p.model.EqualStates(tr.at(kid).state, step.State) {
					e.hits[k]++
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			kid, err := makeNode(tr, p.model, p.rng, step.State, n.t+1, h, i, step.Done)
			if err != nil {
				return err
			}
			e = &tr.at(h).edges[i] // alloc may have moved the arena
			e.kids = append(e.kids, kid)
			e.hits = append(e.hits, 1)
		}
	}
	return nil
}

// sweep iterates Bellman backups over the materialized tree, deepest nodes
// first, until the largest value change falls below the tolerance. Running
// out of sweeps, or a diverging value, fails with mdp.ErrNotConverged.
func (p *ADP) sweep(ctx context.Context, order []handle) error {
	tr := p.tree
	for sweeps := 1; ; sweeps++ {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "planning cancelled")
		default:
		}

		var delta float64
		for i := len(order) - 1; i >= 0; i-- {
			n := tr.at(order[i])
			if n.terminal || len(n.edges) == 0 {
				continue // leaf: value stays 0
			}
			best := math.Inf(-1)
			for j := range n.edges {
				e := &n.edges[j]
				q := e.reward + p.set.gamma*expectedValue(tr, e)
				e.value = q
				if q > best {
					best = q
				}
			}
			if d := math.Abs(best - n.value); d > delta {
				delta = d
			}
			n.value = best
		}
		p.set.collector.AddSweep()

		if math.IsInf(delta, 0) || math.IsNaN(delta) {
			return errors.Wrapf(mdp.ErrNotConverged, "diverging values on sweep %d", sweeps)
		}
		if delta <= p.set.tolerance {
			return nil
		}
		if sweeps >= p.set.sweeps {
			return errors.Wrapf(mdp.ErrNotConverged, "residual %g after %d sweeps", delta, sweeps)
		}
	}
}

// expectedValue is the sample-weighted mean value over an edge's outcomes.
func expectedValue(tr *tree, e *edge) float64 {
	var sum float64
	var total int
	for k, kid := range e.kids {
		sum += float64(e.hits[k]) * tr.at(kid).value
		total += e.hits[k]
	}
	if total == 0 {
		return 0
	}
	return sum / float64(total)
}
