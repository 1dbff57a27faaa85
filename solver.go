package pta

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/ptago/pta/internal/queue"
	"github.com/ptago/pta/ir"
)

var ErrNoEntry = errors.New("program has no entry method")

type AnalysisConfig struct {
	Program *ir.Program

	// Selector decides the context-sensitivity variant. Nil means
	// context-insensitive.
	Selector ContextSelector

	// Heap maps allocation sites to abstract objects. Nil means the
	// allocation-site model.
	Heap HeapModel

	// Taint enables the taint overlay when non-nil.
	Taint *TaintConfig
}

// Analyze runs the points-to analysis to its fixed point and returns the
// result. It fails without starting the fixed-point computation when the
// program has no entry method.
func Analyze(config AnalysisConfig) (*Result, error) {
	s := &solver{
		program:  config.Program,
		selector: config.Selector,
		heap:     config.Heap,
	}
	if s.selector == nil {
		s.selector = Insensitive{}
	}
	if s.heap == nil {
		s.heap = NewAllocSiteModel()
	}

	if err := s.initialize(config.Taint); err != nil {
		return nil, err
	}
	s.analyze()

	res := &Result{
		mgr:       s.mgr,
		pfg:       s.pfg,
		CallGraph: s.cg,
	}
	if s.taint != nil {
		res.TaintFlows = s.taint.collectFlows(s.cg)
	}
	log.Infof("analysis finished: %d reachable method instances, %d call edges",
		len(s.cg.reachable), len(s.cg.edgeList))
	return res, nil
}

// solver drives the mutually-recursive discovery of reachable methods and
// propagation of points-to sets. Discovery never recurses inline: new calls
// only record edges and worklist entries, and the drain loop in analyze
// performs all further discovery.
type solver struct {
	program  *ir.Program
	selector ContextSelector
	heap     HeapModel

	mgr   *manager
	cg    *CallGraph
	pfg   *PointerFlowGraph
	work  *workList
	taint *taintAnalysis

	// Method instances whose statements are still to be visited.
	discover queue.Queue[*CSMethod]
}

func (s *solver) initialize(taintConfig *TaintConfig) error {
	s.mgr = newManager()
	s.cg = NewCallGraph()
	s.pfg = newPointerFlowGraph()
	s.work = newWorkList(s.mgr)
	if taintConfig != nil {
		s.taint = newTaintAnalysis(s, taintConfig)
	}

	entry := s.program.Entry()
	if entry == nil {
		return ErrNoEntry
	}
	csEntry := s.mgr.csMethod(s.selector.EmptyContext(), entry)
	s.cg.AddEntry(csEntry)
	s.addReachable(csEntry)
	log.Debugf("entry method %s", csEntry)
	return nil
}

// addReachable marks a method instance reachable and visits its statements
// once. Instance field, array and instance call statements contribute
// nothing here; they are wired lazily from processCall when receiver
// objects arrive.
func (s *solver) addReachable(csm *CSMethod) {
	if !s.cg.AddReachable(csm) {
		return
	}
	log.Debugf("reachable: %s", csm)

	ctx := csm.Context()
	for _, stmt := range csm.Method().Stmts() {
		switch t := stmt.(type) {
		case *ir.Alloc:
			obj := s.heap.Allocate(t)
			hctx := s.selector.SelectHeapContext(csm, obj)
			s.work.add(s.mgr.csVar(ctx, t.Result),
				s.mgr.newPointsToSet(s.mgr.csObj(hctx, obj)))

		case *ir.Copy:
			s.addPFGEdge(s.mgr.csVar(ctx, t.From), s.mgr.csVar(ctx, t.To))

		case *ir.StaticLoad:
			s.addPFGEdge(s.mgr.staticField(t.Field), s.mgr.csVar(ctx, t.To))

		case *ir.StaticStore:
			s.addPFGEdge(s.mgr.csVar(ctx, t.From), s.mgr.staticField(t.Field))

		case *ir.Call:
			if t.Kind != ir.Static {
				continue
			}
			callee := resolveCallee(nil, t, s.program)
			if callee == nil {
				log.Warnf("unresolved static call %s", t)
				continue
			}
			site := s.mgr.csCallSite(ctx, t)
			tctx := s.selector.SelectContext(site, nil, callee)
			s.addCallEdge(Edge{ir.Static, site, s.mgr.csMethod(tctx, callee)}, nil)
		}
	}
}

// addCallEdge inserts a call edge and, on first occurrence, wires the
// parameter/return edges and queues the callee for statement visiting. base
// is the receiver variable pointer, nil for static calls.
func (s *solver) addCallEdge(e Edge, base *CSVar) {
	if !s.cg.AddEdge(e) {
		return
	}
	s.discover.Push(e.Callee)
	s.wireInvoke(e.Site, e.Callee)
	if s.taint != nil {
		s.taint.transferTaint(e.Callee.Method(), e.Site.Call(), e.Site.Context(), base)
	}
}

// addPFGEdge inserts a pointer flow edge. A newly connected edge must carry
// already-known information forward, so the source's current points-to set
// is pushed to the target on first insertion.
func (s *solver) addPFGEdge(source, target Pointer) {
	if s.pfg.AddEdge(source, target) {
		if pts := source.PointsToSet(); !pts.Empty() {
			s.work.add(target, pts)
		}
	}
}

// analyze drains the discovery queue and the worklist to the fixed point.
// For every object newly added to a variable, the variable's syntactic uses
// are re-examined to wire the field, array and call edges that object
// enables; each (variable, object) pair is handled exactly once since only
// deltas are examined.
func (s *solver) analyze() {
	for {
		for !s.discover.Empty() {
			s.addReachable(s.discover.Pop())
		}
		if s.work.empty() {
			return
		}
		pointer, pts := s.work.poll()
		diff := s.propagate(pointer, pts)
		csVar, ok := pointer.(*CSVar)
		if !ok {
			continue
		}
		v, ctx := csVar.Var(), csVar.Context()
		for _, obj := range diff.Objects() {
			for _, store := range v.ArrayStores() {
				s.addPFGEdge(s.mgr.csVar(ctx, store.From), s.mgr.arrayIndex(obj))
			}
			for _, load := range v.ArrayLoads() {
				s.addPFGEdge(s.mgr.arrayIndex(obj), s.mgr.csVar(ctx, load.To))
			}
			for _, store := range v.FieldStores() {
				s.addPFGEdge(s.mgr.csVar(ctx, store.From),
					s.mgr.instanceField(obj, store.Field))
			}
			for _, load := range v.FieldLoads() {
				s.addPFGEdge(s.mgr.instanceField(obj, load.Field),
					s.mgr.csVar(ctx, load.To))
			}
			s.processCall(csVar, obj)
		}
	}
}

// propagate adds the incoming set to the pointer's own set and pushes the
// delta to the pointer's PFG successors. The taint subset of the delta
// additionally crosses the pointer's taint-flow edges, retagged per edge.
// Returns the delta.
func (s *solver) propagate(pointer Pointer, pts *PointsToSet) *PointsToSet {
	pt := pointer.PointsToSet()
	diff := pt.DiffFrom(pts)
	if diff.Empty() {
		return diff
	}
	pt.Union(diff)

	for succ := range s.pfg.SuccsOf(pointer) {
		s.work.add(succ, diff)
	}
	if s.taint != nil {
		for succ, typ := range s.taint.succsOfTFG(pointer) {
			if taints := s.taint.retag(diff, typ); !taints.Empty() {
				s.work.add(succ, taints)
			}
		}
	}
	return diff
}

// processCall wires the instance calls enabled by a receiver object newly
// pointed to by recv. Taint objects carry no class identity and never serve
// as dispatch receivers.
func (s *solver) processCall(recv *CSVar, obj *CSObj) {
	if isTaintObj(obj.Object()) {
		return
	}
	ctx := recv.Context()
	for _, call := range recv.Var().Invokes() {
		callee := resolveCallee(obj, call, s.program)
		if callee == nil {
			continue
		}
		site := s.mgr.csCallSite(ctx, call)
		tctx := s.selector.SelectContext(site, obj, callee)

		s.work.add(s.mgr.csVar(tctx, callee.This()), s.mgr.newPointsToSet(obj))

		s.addCallEdge(Edge{call.Kind, site, s.mgr.csMethod(tctx, callee)}, recv)
	}
}

// wireInvoke adds the argument-to-parameter and return-to-result edges for
// a call edge seen for the first time, and seeds the result with a taint
// object when the callee is a configured source.
func (s *solver) wireInvoke(site *CSCallSite, csCallee *CSMethod) {
	call, ctx := site.Call(), site.Context()
	callee, tctx := csCallee.Method(), csCallee.Context()

	if len(call.Args) != len(callee.Params()) {
		panic(fmt.Errorf("argument count mismatch at %s calling %s", call, callee))
	}
	for i, arg := range call.Args {
		s.addPFGEdge(s.mgr.csVar(ctx, arg), s.mgr.csVar(tctx, callee.Param(i)))
	}
	if call.Result == nil {
		return
	}
	result := s.mgr.csVar(ctx, call.Result)
	for _, ret := range callee.ReturnVars() {
		s.addPFGEdge(s.mgr.csVar(tctx, ret), result)
	}
	if s.taint != nil && s.taint.isSource(callee, callee.ReturnType()) {
		s.work.add(result,
			s.mgr.newPointsToSet(s.taint.makeTaint(call, callee.ReturnType())))
	}
}
