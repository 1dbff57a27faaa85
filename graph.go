package pta

import "github.com/ptago/pta/internal/queue"

// PointerFlowGraph records the edges along which points-to sets flow. The
// edge set is deduplicated; adding an existing edge is a no-op.
type PointerFlowGraph struct {
	succs map[Pointer]map[Pointer]bool
}

func newPointerFlowGraph() *PointerFlowGraph {
	return &PointerFlowGraph{succs: make(map[Pointer]map[Pointer]bool)}
}

// AddEdge inserts the edge source -> target and reports whether it was new.
func (g *PointerFlowGraph) AddEdge(source, target Pointer) bool {
	set := g.succs[source]
	if set == nil {
		set = make(map[Pointer]bool)
		g.succs[source] = set
	}
	if set[target] {
		return false
	}
	set[target] = true
	return true
}

// SuccsOf returns the current successor set of p. The returned map is the
// graph's own storage; callers only range over it.
func (g *PointerFlowGraph) SuccsOf(p Pointer) map[Pointer]bool {
	return g.succs[p]
}

// Pointers returns every pointer that is the source of at least one edge.
func (g *PointerFlowGraph) Pointers() []Pointer {
	ptrs := make([]Pointer, 0, len(g.succs))
	for p := range g.succs {
		ptrs = append(ptrs, p)
	}
	return ptrs
}

// workList holds pending propagation obligations. Entries for the same
// pointer accumulate into one pending set rather than queueing separately;
// pointers are drained FIFO. Correctness does not depend on the order, only
// on eventual drain.
type workList struct {
	mgr     *manager
	queue   queue.Queue[Pointer]
	pending map[Pointer]*PointsToSet
}

func newWorkList(mgr *manager) *workList {
	return &workList{mgr: mgr, pending: make(map[Pointer]*PointsToSet)}
}

func (w *workList) add(p Pointer, pts *PointsToSet) {
	if pend, found := w.pending[p]; found {
		pend.Union(pts)
		return
	}
	// The incoming set may be live (e.g. a source pointer's own set), so
	// the pending entry gets a copy.
	w.pending[p] = pts.Copy()
	w.queue.Push(p)
}

func (w *workList) empty() bool {
	return w.queue.Empty()
}

func (w *workList) poll() (Pointer, *PointsToSet) {
	p := w.queue.Pop()
	pts := w.pending[p]
	delete(w.pending, p)
	return p, pts
}
