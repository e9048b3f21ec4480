package searcher

import "nsmdp/mdp"

// handle addresses a node in the tree arena. Links between nodes are handles
// rather than pointers so that re-rooting is an index move plus a sweep of
// the abandoned slots onto the free list.
type handle int32

const none handle = -1

type tree struct {
	nodes []node
	free  []handle
	root  handle
}

func newTree() *tree {
	return &tree{root: none}
}

func (tr *tree) at(h handle) *node {
	return &tr.nodes[h]
}

func (tr *tree) alloc(n node) handle {
	if k := len(tr.free); k > 0 {
		h := tr.free[k-1]
		tr.free = tr.free[:k-1]
		tr.nodes[h] = n
		return h
	}
	tr.nodes = append(tr.nodes, n)
	return handle(len(tr.nodes) - 1)
}

// size reports the number of live nodes.
func (tr *tree) size() int {
	return len(tr.nodes) - len(tr.free)
}

// reroot promotes a descendant of the current root to be the new root and
// returns every other node of the old tree to the free list. The retained
// subtree keeps its statistics untouched. Pruning is irrevocable.
func (tr *tree) reroot(h handle) {
	stack := []handle{tr.root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == h {
			continue
		}
		n := tr.at(cur)
		for i := range n.edges {
			stack = append(stack, n.edges[i].kids...)
		}
		n.state = nil
		n.actions = nil
		n.edges = nil
		tr.free = append(tr.free, cur)
	}

	n := tr.at(h)
	n.parent = none
	n.in = -1
	tr.root = h
}

// advance looks for the root child reached by action and the observed state,
// re-roots there and reports success. A miss leaves the tree untouched for
// the caller to discard.
func (tr *tree) advance(match func(a, b mdp.State) bool, action mdp.Action, observed mdp.State, t int) bool {
	root := tr.at(tr.root)
	for i := range root.edges {
		e := &root.edges[i]
		if e.action != action {
			continue
		}
		for _, kid := range e.kids {
			n := tr.at(kid)
			if n.t == t && match(n.state, observed) {
				tr.reroot(kid)
				return true
			}
		}
	}
	return false
}
