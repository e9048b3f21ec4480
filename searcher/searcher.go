// Package searcher plans actions for non-stationary decision processes by
// building a lookahead tree against an mdp.Model. Four planners share the
// tree machinery: vanilla Monte-Carlo search, UCT, OLUCT (UCT with state
// aggregation) and an asynchronous dynamic-programming planner that sweeps
// value backups over a materialized tree.
package searcher

import (
	"context"
	"math"
	"time"

	"nsmdp/mdp"
	"nsmdp/searcher/metrics"

	"golang.org/x/exp/rand"
)

// Defaults, overridable per planner through options or config.
const (
	DefaultBudget    = 1000
	DefaultHorizon   = 100
	DefaultDiscount  = 0.9
	DefaultSweeps    = 100
	DefaultTolerance = 1e-6
	DefaultSamples   = 1
)

// DefaultExploration is the UCB1 constant, the canonical sqrt(2).
var DefaultExploration = math.Sqrt2

// Planner recommends one action per real decision step.
type Planner interface {
	// Plan searches from (state, t) under the configured budget and returns
	// the recommended action. The context is checked between simulations or
	// sweeps, never mid-simulation.
	Plan(ctx context.Context, state mdp.State, t int) (mdp.Action, error)

	// Advance re-roots the retained tree at the child matching the action
	// actually taken and the transition actually observed. It reports false
	// when nothing could be retained, in which case the next Plan call
	// rebuilds from scratch.
	Advance(action mdp.Action, observed mdp.State, t int) bool
}

// RolloutValue is a heuristic leaf evaluator replacing random playouts.
type RolloutValue func(state mdp.State, t int) float64

type settings struct {
	budget    int
	horizon   int
	gamma     float64
	c         float64
	seed      uint64
	reuse     bool
	radius    float64
	leafValue RolloutValue
	sweeps    int
	tolerance float64
	samples   int
	collector metrics.Collector
}

func defaultSettings() settings {
	return settings{
		budget:    DefaultBudget,
		horizon:   DefaultHorizon,
		gamma:     DefaultDiscount,
		c:         DefaultExploration,
		seed:      uint64(time.Now().UnixNano()),
		sweeps:    DefaultSweeps,
		tolerance: DefaultTolerance,
		samples:   DefaultSamples,
		collector: metrics.NewNopCollector(),
	}
}

func (s settings) newRand() *rand.Rand {
	return rand.New(rand.NewSource(s.seed))
}

type Option func(*settings)

// WithBudget sets the number of simulations per decision.
func WithBudget(budget int) Option {
	return func(s *settings) {
		if budget > 0 {
			s.budget = budget
		}
	}
}

// WithHorizon bounds tree depth and rollout length, counted from the root.
func WithHorizon(horizon int) Option {
	return func(s *settings) {
		if horizon > 0 {
			s.horizon = horizon
		}
	}
}

// WithDiscount sets the discount factor, in (0, 1].
func WithDiscount(gamma float64) Option {
	return func(s *settings) {
		if gamma > 0 && gamma <= 1 {
			s.gamma = gamma
		}
	}
}

// WithExploration sets the UCB1 exploration constant.
func WithExploration(c float64) Option {
	return func(s *settings) {
		if c >= 0 {
			s.c = c
		}
	}
}

// WithSeed fixes the random source so that two Plan calls on identical
// inputs produce identical decisions.
func WithSeed(seed uint64) Option {
	return func(s *settings) {
		s.seed = seed
	}
}

// WithReuse keeps the subtree reached by Advance across decision steps
// instead of rebuilding the tree every call.
func WithReuse() Option {
	return func(s *settings) {
		s.reuse = true
	}
}

// WithClusterRadius sets the state-aggregation distance threshold used by
// OLUCT: sampled outcomes within the radius of an existing child share that
// child's statistics.
func WithClusterRadius(radius float64) Option {
	return func(s *settings) {
		if radius > 0 {
			s.radius = radius
		}
	}
}

// WithRolloutValue replaces random playouts with a heuristic leaf evaluator.
func WithRolloutValue(value RolloutValue) Option {
	return func(s *settings) {
		if value != nil {
			s.leafValue = value
		}
	}
}

// WithSweeps sets the dynamic-programming sweep budget.
func WithSweeps(sweeps int) Option {
	return func(s *settings) {
		if sweeps > 0 {
			s.sweeps = sweeps
		}
	}
}

// WithTolerance sets the sweep convergence tolerance.
func WithTolerance(tolerance float64) Option {
	return func(s *settings) {
		if tolerance > 0 {
			s.tolerance = tolerance
		}
	}
}

// WithSamples sets how many outcomes the dynamic-programming planner draws
// per edge while materializing the tree. One suffices for deterministic
// models.
func WithSamples(samples int) Option {
	return func(s *settings) {
		if samples > 0 {
			s.samples = samples
		}
	}
}

// WithMetrics attaches a search metric collector.
func WithMetrics(collector metrics.Collector) Option {
	return func(s *settings) {
		if collector != nil {
			s.collector = collector
		}
	}
}
