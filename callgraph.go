package pta

import (
	"sort"

	"github.com/ptago/pta/internal/maps"
	"github.com/ptago/pta/ir"
)

// Edge is a resolved call edge. Two edges are the same edge iff their kind,
// context-qualified call site and context-qualified callee coincide.
type Edge struct {
	Kind   ir.CallKind
	Site   *CSCallSite
	Callee *CSMethod
}

// CallGraph records the reachable methods and resolved call edges
// discovered during a run.
type CallGraph struct {
	entries   []*CSMethod
	reachable map[*CSMethod]bool
	edges     map[Edge]bool
	edgeList  []Edge

	calleesOf map[*CSCallSite][]Edge
	callersOf map[*CSMethod][]Edge
}

func NewCallGraph() *CallGraph {
	return &CallGraph{
		reachable: make(map[*CSMethod]bool),
		edges:     make(map[Edge]bool),
		calleesOf: make(map[*CSCallSite][]Edge),
		callersOf: make(map[*CSMethod][]Edge),
	}
}

// AddEntry records m as a program entry method and marks it reachable.
func (cg *CallGraph) AddEntry(m *CSMethod) {
	cg.entries = append(cg.entries, m)
}

// Contains reports whether m has been marked reachable.
func (cg *CallGraph) Contains(m *CSMethod) bool {
	return cg.reachable[m]
}

// AddReachable marks m reachable and reports whether it was new.
func (cg *CallGraph) AddReachable(m *CSMethod) bool {
	if cg.reachable[m] {
		return false
	}
	cg.reachable[m] = true
	return true
}

// AddEdge inserts e and reports whether it was new. Duplicate insertion is
// a normal no-op.
func (cg *CallGraph) AddEdge(e Edge) bool {
	if cg.edges[e] {
		return false
	}
	cg.edges[e] = true
	cg.edgeList = append(cg.edgeList, e)
	cg.calleesOf[e.Site] = append(cg.calleesOf[e.Site], e)
	cg.callersOf[e.Callee] = append(cg.callersOf[e.Callee], e)
	return true
}

// Entries returns the entry methods.
func (cg *CallGraph) Entries() []*CSMethod { return cg.entries }

// Edges returns every call edge in insertion order.
func (cg *CallGraph) Edges() []Edge { return cg.edgeList }

// CalleesOf returns the edges out of the given call site.
func (cg *CallGraph) CalleesOf(site *CSCallSite) []Edge {
	return cg.calleesOf[site]
}

// CallersOf returns the edges into the given method instance.
func (cg *CallGraph) CallersOf(m *CSMethod) []Edge {
	return cg.callersOf[m]
}

// Reachable returns the reachable method instances, sorted by name for
// reproducible output.
func (cg *CallGraph) Reachable() []*CSMethod {
	ms := maps.Keys(cg.reachable)
	sort.Slice(ms, func(i, j int) bool {
		return ms[i].String() < ms[j].String()
	})
	return ms
}

// ReachableMethods returns the distinct reachable methods, merged over
// contexts and sorted by name.
func (cg *CallGraph) ReachableMethods() []*ir.Method {
	seen := make(map[*ir.Method]bool)
	for m := range cg.reachable {
		seen[m.Method()] = true
	}
	ms := maps.Keys(seen)
	sort.Slice(ms, func(i, j int) bool {
		return ms[i].String() < ms[j].String()
	})
	return ms
}
