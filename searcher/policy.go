package searcher

import (
	"math"

	"golang.org/x/exp/rand"
)

// selector picks the edge to descend into at a fully expanded node.
type selector interface {
	pick(n *node, rng *rand.Rand) int
}

// uniform selection: every expanded edge is equally likely. Used by the
// vanilla Monte-Carlo planner.
type uniform struct{}

func (uniform) pick(n *node, rng *rand.Rand) int {
	return rng.Intn(len(n.edges))
}

// ucb implements UCB1 selection. An edge that has never been visited wins
// outright, so every action is tried once before any is re-visited. Ties
// between visited edges break toward the first-encountered edge, which keeps
// decisions reproducible under a fixed seed.
type ucb struct {
	c float64
}

func (u ucb) pick(n *node, _ *rand.Rand) int {
	best := -1
	bestScore := math.Inf(-1)
	for i := range n.edges {
		e := &n.edges[i]
		if e.visits == 0 {
			return i
		}
		score := ucb1(e.value, e.visits, n.visits, u.c)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// ucb1 computes mean + c*sqrt(ln(N)/n). The caller guarantees n and N are
// positive: visits are incremented before their first use as a denominator.
func ucb1(mean float64, visits, parentVisits int, c float64) float64 {
	return mean + c*math.Sqrt(math.Log(float64(parentVisits))/float64(visits))
}

// robustChild returns the index of the root edge with the most visits; ties
// break toward the higher mean return, then toward the first-encountered
// edge. Visit count is preferred over mean value because it is less
// sensitive to variance from thinly sampled actions.
func robustChild(n *node) int {
	best := 0
	for i := 1; i < len(n.edges); i++ {
		e, b := &n.edges[i], &n.edges[best]
		if e.visits > b.visits || (e.visits == b.visits && e.value > b.value) {
			best = i
		}
	}
	return best
}
