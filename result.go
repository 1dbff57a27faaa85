package pta

import (
	"github.com/ptago/pta/ir"
)

// Result gives access to the points-to relation, the discovered call graph
// and, when the taint overlay was enabled, the reported flows.
type Result struct {
	CallGraph  *CallGraph
	TaintFlows []TaintFlow

	mgr *manager
	pfg *PointerFlowGraph
}

// distinctObjs strips heap contexts and drops duplicates, preserving
// numbering order. The same allocation site reached under several heap
// contexts is one abstract object to callers.
func distinctObjs(objs []*CSObj) []Obj {
	seen := make(map[Obj]bool, len(objs))
	var out []Obj
	for _, o := range objs {
		if !seen[o.Object()] {
			seen[o.Object()] = true
			out = append(out, o.Object())
		}
	}
	return out
}

// PointsTo returns the abstract objects v may reference, merged over every
// context v was analysed under.
func (r *Result) PointsTo(v *ir.Var) []Obj {
	merged := r.mgr.newPointsToSet()
	for key, csVar := range r.mgr.vars {
		if key.v == v {
			merged.Union(csVar.PointsToSet())
		}
	}
	return distinctObjs(merged.Objects())
}

// PointsToIn returns the abstract objects v may reference under one
// specific context.
func (r *Result) PointsToIn(v *ir.Var, ctx Context) []Obj {
	csVar, found := r.mgr.vars[varKey{ctx, v}]
	if !found {
		return nil
	}
	return distinctObjs(csVar.PointsToSet().Objects())
}

// VarPointer returns the pointer for v under ctx, or nil if the analysis
// never touched it.
func (r *Result) VarPointer(v *ir.Var, ctx Context) *CSVar {
	return r.mgr.vars[varKey{ctx, v}]
}

// StaticFieldPointsTo returns the abstract objects the static field f may
// reference.
func (r *Result) StaticFieldPointsTo(f *ir.Field) []Obj {
	sf, found := r.mgr.statics[f]
	if !found {
		return nil
	}
	return distinctObjs(sf.PointsToSet().Objects())
}
