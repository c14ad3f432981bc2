package task

import "sort"

// depGraph stores dependency edges keyed by task ID in both directions.
type depGraph struct {
	out map[int][]Dependency // dependee -> edges
	in  map[int][]Dependency // dependant -> edges
}

func newDepGraph() *depGraph {
	return &depGraph{
		out: make(map[int][]Dependency),
		in:  make(map[int][]Dependency),
	}
}

func (g *depGraph) add(d Dependency) {
	g.out[d.Dependee] = append(g.out[d.Dependee], d)
	g.in[d.Dependant] = append(g.in[d.Dependant], d)
}

func (g *depGraph) find(dependee, dependant int) (Dependency, bool) {
	for _, d := range g.out[dependee] {
		if d.Dependant == dependant {
			return d, true
		}
	}
	return Dependency{}, false
}

// remove deletes the edge and reports whether it existed.
func (g *depGraph) remove(dependee, dependant int) bool {
	key := [2]int{dependee, dependant}
	found := false
	g.out[dependee], found = without(g.out[dependee], key)
	g.in[dependant], _ = without(g.in[dependant], key)
	if len(g.out[dependee]) == 0 {
		delete(g.out, dependee)
	}
	if len(g.in[dependant]) == 0 {
		delete(g.in, dependant)
	}
	return found
}

// detach removes every edge incident to id and returns them.
func (g *depGraph) detach(id int) []Dependency {
	removed := append(g.incoming(id), g.outgoing(id)...)
	for _, d := range removed {
		g.remove(d.Dependee, d.Dependant)
	}
	return removed
}

func (g *depGraph) incoming(id int) []Dependency {
	return append([]Dependency(nil), g.in[id]...)
}

func (g *depGraph) outgoing(id int) []Dependency {
	return append([]Dependency(nil), g.out[id]...)
}

func (g *depGraph) incident(id int) []Dependency {
	return append(g.incoming(id), g.outgoing(id)...)
}

// all returns every edge ordered by (dependee, dependant).
func (g *depGraph) all() []Dependency {
	var out []Dependency
	for _, deps := range g.out {
		out = append(out, deps...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dependee != out[j].Dependee {
			return out[i].Dependee < out[j].Dependee
		}
		return out[i].Dependant < out[j].Dependant
	})
	return out
}

func without(deps []Dependency, key [2]int) ([]Dependency, bool) {
	for i, d := range deps {
		if d.key() == key {
			return append(deps[:i:i], deps[i+1:]...), true
		}
	}
	return deps, false
}

// node is a vertex of the scheduling graph. Every task has an "in" vertex,
// carrying the bound its predecessors and ancestors impose, and an "out"
// vertex, carrying its span.
type node struct {
	id  int
	out bool
}

func inNode(id int) node  { return node{id: id} }
func outNode(id int) node { return node{id: id, out: true} }

func (n node) less(o node) bool {
	if n.id != o.id {
		return n.id < o.id
	}
	return !n.out && o.out
}

// successors returns the arcs leaving n:
//
//	in(parent)  -> in(child)
//	in(leaf)    -> out(leaf)
//	out(child)  -> out(parent)
//	out(dependee) -> in(dependant)
func (m *Manager) successors(n node) []node {
	t, ok := m.tasks[n.id]
	if !ok {
		return nil
	}
	var next []node
	if !n.out {
		if len(t.st.children) == 0 {
			return []node{outNode(n.id)}
		}
		for _, c := range t.st.children {
			next = append(next, inNode(c))
		}
		return next
	}
	for _, d := range m.deps.out[n.id] {
		next = append(next, inNode(d.Dependant))
	}
	if t.st.parent != 0 {
		next = append(next, outNode(t.st.parent))
	}
	return next
}

// reaches reports whether to is reachable from from in the scheduling graph.
func (m *Manager) reaches(from, to node) bool {
	seen := map[node]bool{from: true}
	stack := []node{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		for _, s := range m.successors(n) {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return false
}

// reachable returns every node reachable from seeds, seeds included.
func (m *Manager) reachable(seeds []node) map[node]bool {
	set := make(map[node]bool)
	stack := append([]node(nil), seeds...)
	for _, s := range seeds {
		set[s] = true
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range m.successors(n) {
			if !set[s] {
				set[s] = true
				stack = append(stack, s)
			}
		}
	}
	return set
}

// topoOrder sorts set with Kahn's algorithm, lowest node first among ready nodes.
func (m *Manager) topoOrder(set map[node]bool) ([]node, error) {
	inDegree := make(map[node]int, len(set))
	for n := range set {
		for _, s := range m.successors(n) {
			if set[s] {
				inDegree[s]++
			}
		}
	}
	var ready []node
	for n := range set {
		if inDegree[n] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]node, 0, len(set))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].less(ready[j]) })
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, s := range m.successors(n) {
			if !set[s] {
				continue
			}
			inDegree[s]--
			if inDegree[s] == 0 {
				ready = append(ready, s)
			}
		}
	}
	if len(order) != len(set) {
		return nil, ErrDependencyCycle
	}
	return order, nil
}

// detectCycle reports whether the whole scheduling graph contains a cycle.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
func (m *Manager) detectCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[node]int)

	var dfs func(n node) bool
	dfs = func(n node) bool {
		color[n] = gray
		for _, next := range m.successors(n) {
			switch color[next] {
			case gray:
				return true
			case white:
				if dfs(next) {
					return true
				}
			}
		}
		color[n] = black
		return false
	}

	for _, id := range m.sortedIDs() {
		for _, n := range []node{inNode(id), outNode(id)} {
			if color[n] == white && dfs(n) {
				return true
			}
		}
	}
	return false
}
