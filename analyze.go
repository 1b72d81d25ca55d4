package pipeline

import "fmt"

// Scope selects how much of the graph a cycle report covers.
type Scope string

const (
	// ScopeCycle reports exactly the first cycle closed by a DFS back edge.
	ScopeCycle Scope = "cycle"
	// ScopeTangle keeps the DFS cycle path but widens the node and edge sets
	// to everything that survives iterated removal of sources and sinks.
	ScopeTangle Scope = "tangle"
)

// ParseScope maps a request parameter to a Scope. The empty string is ScopeCycle.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeCycle:
		return ScopeCycle, nil
	case ScopeTangle:
		return ScopeTangle, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownScope, s)
}

// Validate reports duplicate node ids.
func Validate(nodes []Node) error {
	_, err := indexNodes(nodes)
	return err
}

// Analyze decides whether the graph is a DAG and, if not, reports the first
// cycle found. See AnalyzeScope.
func Analyze(nodes []Node, edges []Edge) (*AnalysisResult, error) {
	return AnalyzeScope(nodes, edges, ScopeCycle)
}

// AnalyzeScope runs a three-colour depth-first search over the graph.
//
// Nodes are visited in input order and each node's outgoing edges in edge
// input order, so the reported cycle is deterministic. The first back edge
// stops the search. Edges whose source or target is not a known node are
// left out of the adjacency but still counted in NumEdges.
//
// Duplicate node ids return an error wrapping ErrInvalidGraph.
func AnalyzeScope(nodes []Node, edges []Edge, scope Scope) (*AnalysisResult, error) {
	if scope != ScopeCycle && scope != ScopeTangle {
		return nil, fmt.Errorf("%w %q", ErrUnknownScope, scope)
	}

	index, err := indexNodes(nodes)
	if err != nil {
		return nil, err
	}

	res := &AnalysisResult{
		NumNodes: len(nodes),
		NumEdges: len(edges),
		IsDAG:    true,
	}
	if len(nodes) == 0 {
		return res, nil
	}

	adj := make([][]int, len(nodes))
	for _, e := range edges {
		from, ok := index[e.Source]
		if !ok {
			continue
		}
		to, ok := index[e.Target]
		if !ok {
			continue
		}
		adj[from] = append(adj[from], to)
	}

	path := findCycle(adj)
	if path == nil {
		return res, nil
	}

	res.IsDAG = false
	info := &CycleInfo{
		CyclePath:    make([]string, len(path)),
		CycleNodeIDs: make([]string, len(path)),
		CycleEdges:   make([]EdgePair, len(path)),
	}
	for i, n := range path {
		id := nodes[n].ID
		info.CyclePath[i] = id
		info.CycleNodeIDs[i] = id
		next := nodes[path[(i+1)%len(path)]].ID
		info.CycleEdges[i] = EdgePair{id, next}
	}

	if scope == ScopeTangle {
		info.CycleNodeIDs, info.CycleEdges = tangle(nodes, edges, index, adj)
	}

	res.Cycles = info
	return res, nil
}

func indexNodes(nodes []Node) (map[string]int, error) {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %q", ErrInvalidGraph, n.ID)
		}
		index[n.ID] = i
	}
	return index, nil
}

const (
	white = iota
	gray
	black
)

type frame struct {
	node int
	next int // position in adj[node] of the next edge to follow
}

// findCycle returns the node indices of the first cycle closed by a back
// edge, starting at the gray node the edge points to, or nil for a DAG.
func findCycle(adj [][]int) []int {
	color := make([]uint8, len(adj))
	depth := make([]int, len(adj)) // stack position of each gray node
	stack := make([]frame, 0, len(adj))

	for start := range adj {
		if color[start] != white {
			continue
		}
		color[start] = gray
		depth[start] = 0
		stack = append(stack[:0], frame{node: start})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(adj[top.node]) {
				color[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}

			v := adj[top.node][top.next]
			top.next++

			switch color[v] {
			case gray:
				cycle := make([]int, 0, len(stack)-depth[v])
				for _, f := range stack[depth[v]:] {
					cycle = append(cycle, f.node)
				}
				return cycle
			case white:
				color[v] = gray
				depth[v] = len(stack)
				stack = append(stack, frame{node: v})
			}
		}
	}
	return nil
}

// tangle strips nodes with no incoming or no outgoing arcs until none are
// left to strip. What remains is every node that lies on some cycle or
// between two cycles. Output follows node and edge input order.
func tangle(nodes []Node, edges []Edge, index map[string]int, adj [][]int) ([]string, []EdgePair) {
	in := make([]int, len(nodes))
	out := make([]int, len(nodes))
	radj := make([][]int, len(nodes))
	for from, targets := range adj {
		out[from] = len(targets)
		for _, to := range targets {
			in[to]++
			radj[to] = append(radj[to], from)
		}
	}

	removed := make([]bool, len(nodes))
	var queue []int
	for i := range nodes {
		if in[i] == 0 || out[i] == 0 {
			removed[i] = true
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, to := range adj[n] {
			in[to]--
			if !removed[to] && in[to] == 0 {
				removed[to] = true
				queue = append(queue, to)
			}
		}
		for _, from := range radj[n] {
			out[from]--
			if !removed[from] && out[from] == 0 {
				removed[from] = true
				queue = append(queue, from)
			}
		}
	}

	var ids []string
	for i, n := range nodes {
		if !removed[i] {
			ids = append(ids, n.ID)
		}
	}
	var pairs []EdgePair
	for _, e := range edges {
		from, ok := index[e.Source]
		if !ok || removed[from] {
			continue
		}
		to, ok := index[e.Target]
		if !ok || removed[to] {
			continue
		}
		pairs = append(pairs, EdgePair{e.Source, e.Target})
	}
	return ids, pairs
}
