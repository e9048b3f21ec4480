package searcher

import (
	"context"
	"math"
	"testing"

	"nsmdp/mdp"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// pathModel has a single action, so every simulation follows the same path.
// The state is the step index; the reward at step t is t+1.
type pathModel struct {
	horizon int
}

func (m pathModel) LegalActions(state mdp.State, t int) ([]mdp.Action, error) {
	return []mdp.Action{0}, nil
}

func (m pathModel) Step(state mdp.State, t int, action mdp.Action) (mdp.Transition, error) {
	return mdp.Transition{State: t + 1, Reward: float64(t + 1), Done: t+1 >= m.horizon}, nil
}

func (m pathModel) IsTerminal(state mdp.State, t int) bool {
	return t >= m.horizon
}

func (m pathModel) EqualStates(a, b mdp.State) bool {
	return a == b
}

// starvedModel violates the contract: non-terminal states with no actions.
type starvedModel struct{}

func (starvedModel) LegalActions(mdp.State, int) ([]mdp.Action, error) { return nil, nil }
func (starvedModel) Step(mdp.State, int, mdp.Action) (mdp.Transition, error) {
	return mdp.Transition{}, nil
}
func (starvedModel) IsTerminal(mdp.State, int) bool  { return false }
func (starvedModel) EqualStates(a, b mdp.State) bool { return a == b }

// commitChain is the 2-action, 3-step scenario: action 0 pays 1 at every
// step, action 1 pays 0, then 5, then 0. Committing to action 1 at step 0 is
// optimal (5 > 3).
func commitChain() *mdp.Chain {
	return &mdp.Chain{
		NumActions: 2,
		Horizon:    3,
		Reward: func(branch, t int) float64 {
			if branch == 0 {
				return 1
			}
			if t == 1 {
				return 5
			}
			return 0
		},
	}
}

func TestPlanVisitAccounting(t *testing.T) {
	planners := map[string]*MCTS{
		"mc":  NewMC(commitChain(), WithBudget(57), WithHorizon(3), WithSeed(1)),
		"uct": NewUCT(commitChain(), WithBudget(57), WithHorizon(3), WithSeed(1)),
	}

	for name, planner := range planners {
		t.Run(name+" root visit count equals the simulation budget", func(t *testing.T) {
			_, err := planner.Plan(context.Background(), mdp.Start(), 0)

			require.NoError(t, err)
			require.Equal(t, 57, planner.tree.at(planner.tree.root).visits,
				"Every simulation should visit the root exactly once")
		})
	}
}

func TestPlanMonotoneExploration(t *testing.T) {
	t.Run("every root action is tried within the first |actions| simulations", func(t *testing.T) {
		model := &mdp.Chain{NumActions: 4, Horizon: 5, Reward: func(int, int) float64 { return 0 }}
		planner := NewUCT(model, WithBudget(4), WithHorizon(5), WithSeed(3))

		_, err := planner.Plan(context.Background(), mdp.Start(), 0)

		require.NoError(t, err)
		root := planner.tree.at(planner.tree.root)
		require.Len(t, root.edges, 4)
		for i := range root.edges {
			require.GreaterOrEqual(t, root.edges[i].visits, 1,
				"Zero-visit priority should reach every action")
		}
	})
}

func TestPlanBackupCorrectness(t *testing.T) {
	t.Run("one simulation along a fixed path yields the analytic discounted sum", func(t *testing.T) {
		const horizon = 6
		const gamma = 0.5
		planner := NewUCT(pathModel{horizon: horizon},
			WithBudget(1), WithHorizon(horizon), WithDiscount(gamma), WithSeed(1))

		_, err := planner.Plan(context.Background(), 0, 0)

		require.NoError(t, err)
		expected := 0.0
		for step := 0; step < horizon; step++ {
			expected += math.Pow(gamma, float64(step)) * float64(step+1)
		}
		require.InDelta(t, expected, planner.tree.at(planner.tree.root).value, 1e-9,
			"Root value should equal the discounted sum of rewards along the path")
	})
}

func TestPlanScenario(t *testing.T) {
	t.Run("uct commits to the late-reward action", func(t *testing.T) {
		planner := NewUCT(commitChain(), WithBudget(300), WithHorizon(3), WithDiscount(1), WithSeed(5))

		action, err := planner.Plan(context.Background(), mdp.Start(), 0)

		require.NoError(t, err)
		require.Equal(t, 1, action, "Sufficient budget should find the delayed 5-reward branch")
	})
}

func TestPlanDeterminism(t *testing.T) {
	t.Run("fixed seed and budget reproduce the decision and the tree", func(t *testing.T) {
		run := func() (mdp.Action, []int) {
			planner := NewUCT(commitChain(), WithBudget(100), WithHorizon(3), WithSeed(11))
			action, err := planner.Plan(context.Background(), mdp.Start(), 0)
			require.NoError(t, err)
			root := planner.tree.at(planner.tree.root)
			visits := make([]int, len(root.edges))
			for i := range root.edges {
				visits[i] = root.edges[i].visits
			}
			return action, visits
		}

		action1, visits1 := run()
		action2, visits2 := run()

		require.Equal(t, action1, action2, "Same seed should yield the same decision")
		require.Equal(t, visits1, visits2, "Same seed should yield the same root statistics")
	})
}

func TestPlanReuse(t *testing.T) {
	t.Run("advancing preserves the retained subtree statistics", func(t *testing.T) {
		model := commitChain()
		planner := NewUCT(model, WithBudget(200), WithHorizon(3), WithDiscount(1), WithSeed(7), WithReuse())

		action, err := planner.Plan(context.Background(), mdp.Start(), 0)
		require.NoError(t, err)

		step, err := model.Step(mdp.Start(), 0, action)
		require.NoError(t, err)

		// Snapshot the child that will become the new root.
		root := planner.tree.at(planner.tree.root)
		var snapshot node
		for i := range root.edges {
			if root.edges[i].action == action {
				snapshot = *planner.tree.at(root.edges[i].kids[0])
			}
		}
		require.NotZero(t, snapshot.visits)

		ok := planner.Advance(action, step.State, 1)

		require.True(t, ok, "The realized transition should be in the tree")
		newRoot := planner.tree.at(planner.tree.root)
		require.Equal(t, snapshot.visits, newRoot.visits, "Re-rooting must not touch visit counts")
		require.Equal(t, snapshot.value, newRoot.value, "Re-rooting must not touch value estimates")
		require.True(t, model.EqualStates(step.State, newRoot.state))

		// The next Plan call picks the retained tree up as its root.
		_, err = planner.Plan(context.Background(), step.State, 1)
		require.NoError(t, err)
		require.GreaterOrEqual(t, planner.tree.at(planner.tree.root).visits, snapshot.visits,
			"Reused statistics should only grow")
	})

	t.Run("an unobserved transition drops the tree", func(t *testing.T) {
		planner := NewUCT(commitChain(), WithBudget(50), WithHorizon(3), WithSeed(7), WithReuse())

		_, err := planner.Plan(context.Background(), mdp.Start(), 0)
		require.NoError(t, err)

		ok := planner.Advance(1, mdp.ChainState{Branch: 1, Drift: 99}, 1)

		require.False(t, ok)
		require.Nil(t, planner.tree, "A miss should discard the whole tree")
	})

	t.Run("advance is a no-op without reuse", func(t *testing.T) {
		planner := NewUCT(commitChain(), WithBudget(50), WithHorizon(3), WithSeed(7))

		_, err := planner.Plan(context.Background(), mdp.Start(), 0)
		require.NoError(t, err)

		require.False(t, planner.Advance(0, mdp.ChainState{Branch: 0}, 1))
	})
}

func TestPlanClustering(t *testing.T) {
	base := mdp.Chain{NumActions: 2, Horizon: 4, Reward: func(branch, _ int) float64 { return float64(branch) }}

	t.Run("aggregation keeps one child per action", func(t *testing.T) {
		model := mdp.NewNoisyChain(base, 0.1, 2)
		planner := NewOLUCT(model, WithBudget(100), WithHorizon(4), WithSeed(9), WithClusterRadius(5))

		_, err := planner.Plan(context.Background(), mdp.Start(), 0)

		require.NoError(t, err)
		root := planner.tree.at(planner.tree.root)
		for i := range root.edges {
			require.Len(t, root.edges[i].kids, 1,
				"Outcomes within the cluster radius should share one child")
		}
	})

	t.Run("exact matching keeps sprouting children under noise", func(t *testing.T) {
		model := mdp.NewNoisyChain(base, 0.1, 2)
		planner := NewUCT(model, WithBudget(100), WithHorizon(4), WithSeed(9))

		_, err := planner.Plan(context.Background(), mdp.Start(), 0)

		require.NoError(t, err)
		root := planner.tree.at(planner.tree.root)
		total := 0
		for i := range root.edges {
			total += len(root.edges[i].kids)
		}
		require.Greater(t, total, 2, "Continuous noise should yield distinct exact-match children")
	})
}

func TestPlanErrors(t *testing.T) {
	t.Run("surfaces a contract violation", func(t *testing.T) {
		planner := NewUCT(starvedModel{}, WithBudget(10), WithSeed(1))

		_, err := planner.Plan(context.Background(), "s", 0)

		require.True(t, errors.Is(err, mdp.ErrNoLegalAction),
			"A non-terminal state without actions is a model contract violation")
	})

	t.Run("refuses to plan from a terminal state", func(t *testing.T) {
		planner := NewUCT(commitChain(), WithBudget(10), WithSeed(1))

		_, err := planner.Plan(context.Background(), mdp.ChainState{Branch: 0}, 3)

		require.Error(t, err)
	})

	t.Run("honors cancellation between simulations", func(t *testing.T) {
		planner := NewUCT(commitChain(), WithBudget(1000), WithHorizon(3), WithSeed(1))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := planner.Plan(ctx, mdp.Start(), 0)

		require.True(t, errors.Is(err, context.Canceled))
	})
}
