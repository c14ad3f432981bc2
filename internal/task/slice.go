package task

// Slice is a snapshot of dependency edges taken at query time. Later edge
// changes are not reflected; query the task again to observe them.
type Slice struct {
	mgr  *Manager
	deps []Dependency
}

// Len returns the number of edges in the slice.
func (s Slice) Len() int { return len(s.deps) }

// All returns a copy of the edges.
func (s Slice) All() []Dependency {
	out := make([]Dependency, len(s.deps))
	copy(out, s.deps)
	return out
}

// Each calls fn for every edge until fn returns false.
func (s Slice) Each(fn func(Dependency) bool) {
	for _, d := range s.deps {
		if !fn(d) {
			return
		}
	}
}

// Filter returns the edges matching pred as a new slice.
func (s Slice) Filter(pred func(Dependency) bool) Slice {
	out := Slice{mgr: s.mgr}
	for _, d := range s.deps {
		if pred(d) {
			out.deps = append(out.deps, d)
		}
	}
	return out
}

// Contains reports whether id is an endpoint of any edge in the slice.
func (s Slice) Contains(id int) bool {
	for _, d := range s.deps {
		if d.Dependee == id || d.Dependant == id {
			return true
		}
	}
	return false
}

// Find returns the edge between dependee and dependant, if present.
func (s Slice) Find(dependee, dependant int) (Dependency, bool) {
	for _, d := range s.deps {
		if d.Dependee == dependee && d.Dependant == dependant {
			return d, true
		}
	}
	return Dependency{}, false
}

// Tasks resolves the endpoints opposite to id. Tasks deleted since the
// snapshot was taken are skipped.
func (s Slice) Tasks(id int) []*Task {
	if s.mgr == nil {
		return nil
	}
	s.mgr.mu.RLock()
	defer s.mgr.mu.RUnlock()
	var out []*Task
	for _, d := range s.deps {
		if t, ok := s.mgr.tasks[d.Other(id)]; ok {
			out = append(out, t)
		}
	}
	return out
}
