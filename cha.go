package pta

import (
	"github.com/ptago/pta/internal/queue"
	"github.com/ptago/pta/ir"
)

// BuildCHACallGraph constructs a whole-program call graph by class
// hierarchy analysis alone: every call site resolves to every non-abstract
// override its declared class admits, with no points-to information. The
// graph uses the empty context throughout.
func BuildCHACallGraph(program *ir.Program) (*CallGraph, error) {
	entry := program.Entry()
	if entry == nil {
		return nil, ErrNoEntry
	}

	mgr := newManager()
	ctx := Context(emptyContext{})
	cg := NewCallGraph()

	csEntry := mgr.csMethod(ctx, entry)
	cg.AddEntry(csEntry)

	var wl queue.Queue[*CSMethod]
	wl.Push(csEntry)
	for !wl.Empty() {
		csm := wl.Pop()
		if !cg.AddReachable(csm) {
			continue
		}
		for _, stmt := range csm.Method().Stmts() {
			call, ok := stmt.(*ir.Call)
			if !ok {
				continue
			}
			site := mgr.csCallSite(ctx, call)
			for _, callee := range resolveCHA(call) {
				csCallee := mgr.csMethod(ctx, callee)
				cg.AddEdge(Edge{call.Kind, site, csCallee})
				if !cg.Contains(csCallee) {
					wl.Push(csCallee)
				}
			}
		}
	}
	return cg, nil
}
