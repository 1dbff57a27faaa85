package pta

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptago/pta/ir"
)

func init() {
	// Keep analysis logging out of test output.
	log.SetLevel(log.WarnLevel)
}

func analyze(t *testing.T, config AnalysisConfig) *Result {
	t.Helper()
	res, err := Analyze(config)
	require.NoError(t, err)
	return res
}

// edgesTo collects the call edges resolving to the given method.
func edgesTo(cg *CallGraph, m *ir.Method) []Edge {
	var edges []Edge
	for _, e := range cg.Edges() {
		if e.Callee.Method() == m {
			edges = append(edges, e)
		}
	}
	return edges
}

func TestNoEntry(t *testing.T) {
	_, err := Analyze(AnalysisConfig{Program: ir.NewProgram()})
	assert.ErrorIs(t, err, ErrNoEntry)
}

// Static dispatch: main statically calls f, which allocates and returns an
// object into x.
func TestStaticCall(t *testing.T) {
	p := ir.NewProgram()
	c := p.NewClass("Main", nil)

	f := c.NewStaticMethod("f()", "Object")
	tmp := f.NewVar("tmp")
	f.NewAlloc(tmp, "Object")
	f.Return(tmp)

	main := c.NewStaticMethod("main()", "")
	x := main.NewVar("x")
	main.NewCall(ir.Static, x, nil, ir.MethodRef{Class: c, Sig: "f()"})
	p.SetEntry(main)

	res := analyze(t, AnalysisConfig{Program: p})

	require.Len(t, res.PointsTo(x), 1, "x should point to exactly the object allocated in f")

	edges := res.CallGraph.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, ir.Static, edges[0].Kind)
	assert.Same(t, f, edges[0].Callee.Method())
	assert.Same(t, main, edges[0].Site.Call().Method())

	assert.ElementsMatch(t, []*ir.Method{f, main}, res.CallGraph.ReachableMethods())
	assert.Len(t, res.CallGraph.Reachable(), 2)

	// Query surface around the single edge.
	require.Len(t, res.CallGraph.Entries(), 1)
	assert.Same(t, main, res.CallGraph.Entries()[0].Method())
	assert.Equal(t, edges, res.CallGraph.CalleesOf(edges[0].Site))
	assert.Equal(t, edges, res.CallGraph.CallersOf(edges[0].Callee))

	ctx := Insensitive{}.EmptyContext()
	require.NotNil(t, res.VarPointer(x, ctx))
	assert.Len(t, res.PointsToIn(x, ctx), 1)
}

// Virtual dispatch: the runtime type of the receiver decides the callee,
// not the declared class of the call site.
func TestVirtualDispatch(t *testing.T) {
	p := ir.NewProgram()
	a := p.NewClass("A", nil)
	af := a.NewMethod("f()", "")
	b := p.NewClass("B", a)
	bf := b.NewMethod("f()", "")

	main := p.NewClass("Main", nil).NewStaticMethod("main()", "")
	x := main.NewVar("x")
	main.NewAlloc(x, "B")
	main.NewCall(ir.Virtual, nil, x, ir.MethodRef{Class: a, Sig: "f()"})
	p.SetEntry(main)

	res := analyze(t, AnalysisConfig{Program: p})

	assert.Len(t, edgesTo(res.CallGraph, bf), 1, "x is a B, so B.f must be called")
	assert.Empty(t, edgesTo(res.CallGraph, af), "A.f must not be called")
	assert.NotContains(t, res.CallGraph.ReachableMethods(), af)

	// The receiver object flows into the callee's this variable.
	require.Len(t, res.PointsTo(bf.This()), 1)
	assert.Equal(t, ir.Type("B"), res.PointsTo(bf.This())[0].Type())
}

// Dispatch skips abstract declarations: an abstract class with no override
// on the receiver's chain yields no callee and no error.
func TestAbstractNoCallee(t *testing.T) {
	p := ir.NewProgram()
	a := p.NewClass("A", nil).SetAbstract()
	a.NewAbstractMethod("f()", "")
	b := p.NewClass("B", a)

	_ = b // B inherits no concrete f

	main := p.NewClass("Main", nil).NewStaticMethod("main()", "")
	x := main.NewVar("x")
	main.NewAlloc(x, "B")
	main.NewCall(ir.Virtual, nil, x, ir.MethodRef{Class: a, Sig: "f()"})
	p.SetEntry(main)

	res := analyze(t, AnalysisConfig{Program: p})
	assert.Empty(t, res.CallGraph.Edges())
}

// Field aliasing: a.f = obj; b = a; x = b.f must see obj.
func TestFieldAliasing(t *testing.T) {
	p := ir.NewProgram()
	box := p.NewClass("Box", nil)
	fld := box.NewField("f", "Object")

	main := p.NewClass("Main", nil).NewStaticMethod("main()", "")
	va := main.NewVar("a")
	vb := main.NewVar("b")
	vo := main.NewVar("o")
	x := main.NewVar("x")

	main.NewAlloc(va, "Box")
	alloc := main.NewAlloc(vo, "Object")
	main.NewFieldStore(va, fld, vo)
	main.NewCopy(vb, va)
	main.NewFieldLoad(x, vb, fld)
	p.SetEntry(main)

	res := analyze(t, AnalysisConfig{Program: p})

	pts := res.PointsTo(x)
	require.Len(t, pts, 1)
	assert.Same(t, ir.Stmt(alloc), pts[0].Site())
}

// Array stores and loads merge through the per-object array index pointer.
func TestArrayFlow(t *testing.T) {
	p := ir.NewProgram()
	main := p.NewClass("Main", nil).NewStaticMethod("main()", "")
	arr := main.NewVar("arr")
	arr2 := main.NewVar("arr2")
	vo := main.NewVar("o")
	x := main.NewVar("x")

	main.NewAlloc(arr, "Object[]")
	main.NewAlloc(vo, "Object")
	main.NewArrayStore(arr, vo)
	main.NewCopy(arr2, arr)
	main.NewArrayLoad(x, arr2)
	p.SetEntry(main)

	res := analyze(t, AnalysisConfig{Program: p})

	pts := res.PointsTo(x)
	require.Len(t, pts, 1)
	assert.Equal(t, ir.Type("Object"), pts[0].Type())
}

// Static fields flow between methods without any call edge between them.
func TestStaticFieldFlow(t *testing.T) {
	p := ir.NewProgram()
	c := p.NewClass("C", nil)
	sf := c.NewStaticField("shared", "Object")

	writer := c.NewStaticMethod("writer()", "")
	wo := writer.NewVar("o")
	writer.NewAlloc(wo, "Object")
	writer.NewStaticStore(sf, wo)

	reader := c.NewStaticMethod("reader()", "")
	x := reader.NewVar("x")
	reader.NewStaticLoad(x, sf)

	main := c.NewStaticMethod("main()", "")
	main.NewCall(ir.Static, nil, nil, ir.MethodRef{Class: c, Sig: "writer()"})
	main.NewCall(ir.Static, nil, nil, ir.MethodRef{Class: c, Sig: "reader()"})
	p.SetEntry(main)

	res := analyze(t, AnalysisConfig{Program: p})

	require.Len(t, res.StaticFieldPointsTo(sf), 1)
	require.Len(t, res.PointsTo(x), 1)
}

// Special calls dispatch from the declaring class upwards, ignoring the
// receiver's runtime type.
func TestSpecialCall(t *testing.T) {
	p := ir.NewProgram()
	a := p.NewClass("A", nil)
	af := a.NewMethod("init()", "")
	b := p.NewClass("B", a)
	b.NewMethod("init()", "")

	main := p.NewClass("Main", nil).NewStaticMethod("main()", "")
	x := main.NewVar("x")
	main.NewAlloc(x, "B")
	main.NewCall(ir.Special, nil, x, ir.MethodRef{Class: a, Sig: "init()"})
	p.SetEntry(main)

	res := analyze(t, AnalysisConfig{Program: p})

	require.Len(t, res.CallGraph.Edges(), 1)
	assert.Same(t, af, res.CallGraph.Edges()[0].Callee.Method())
	assert.Equal(t, ir.Special, res.CallGraph.Edges()[0].Kind)
}

// Interface calls resolve through implementors of the declared interface.
func TestInterfaceCall(t *testing.T) {
	p := ir.NewProgram()
	i := p.NewInterface("I")
	i.NewAbstractMethod("g()", "")
	impl := p.NewClass("Impl", nil, i)
	ig := impl.NewMethod("g()", "")

	main := p.NewClass("Main", nil).NewStaticMethod("main()", "")
	x := main.NewVar("x")
	main.NewAlloc(x, "Impl")
	main.NewCall(ir.Interface, nil, x, ir.MethodRef{Class: i, Sig: "g()"})
	p.SetEntry(main)

	res := analyze(t, AnalysisConfig{Program: p})

	require.Len(t, res.CallGraph.Edges(), 1)
	assert.Same(t, ig, res.CallGraph.Edges()[0].Callee.Method())
	assert.Equal(t, ir.Interface, res.CallGraph.Edges()[0].Kind)
}

// Recursion terminates: mutually recursive methods reach the fixed point.
func TestRecursionTerminates(t *testing.T) {
	p := ir.NewProgram()
	c := p.NewClass("C", nil)

	ping := c.NewStaticMethod("ping(Object)", "Object")
	pp := ping.NewParam("p")
	pr := ping.NewVar("r")
	ping.NewCall(ir.Static, pr, nil, ir.MethodRef{Class: c, Sig: "pong(Object)"}, pp)
	ping.Return(pr)

	pong := c.NewStaticMethod("pong(Object)", "Object")
	qp := pong.NewParam("q")
	qr := pong.NewVar("r")
	pong.NewCall(ir.Static, qr, nil, ir.MethodRef{Class: c, Sig: "ping(Object)"}, qp)
	pong.Return(qr)
	pong.Return(qp)

	main := c.NewStaticMethod("main()", "")
	o := main.NewVar("o")
	x := main.NewVar("x")
	main.NewAlloc(o, "Object")
	main.NewCall(ir.Static, x, nil, ir.MethodRef{Class: c, Sig: "ping(Object)"}, o)
	p.SetEntry(main)

	res := analyze(t, AnalysisConfig{Program: p})

	require.Len(t, res.PointsTo(x), 1)
	assert.ElementsMatch(t, []*ir.Method{main, ping, pong}, res.CallGraph.ReachableMethods())
}

// After a run, for every PFG edge s -> t, pt(s) ⊆ pt(t).
func TestFixedPointClosure(t *testing.T) {
	p := ir.NewProgram()
	box := p.NewClass("Box", nil)
	fld := box.NewField("f", "Object")
	get := box.NewMethod("get()", "Object")
	gr := get.NewVar("r")
	get.NewFieldLoad(gr, get.This(), fld)
	get.Return(gr)
	set := box.NewMethod("set(Object)", "")
	sv := set.NewParam("v")
	set.NewFieldStore(set.This(), fld, sv)

	main := p.NewClass("Main", nil).NewStaticMethod("main()", "")
	b1 := main.NewVar("b1")
	b2 := main.NewVar("b2")
	o1 := main.NewVar("o1")
	r1 := main.NewVar("r1")
	main.NewAlloc(b1, "Box")
	main.NewAlloc(b2, "Box")
	main.NewAlloc(o1, "Object")
	main.NewCall(ir.Virtual, nil, b1, ir.MethodRef{Class: box, Sig: "set(Object)"}, o1)
	main.NewCopy(b2, b1)
	main.NewCall(ir.Virtual, r1, b2, ir.MethodRef{Class: box, Sig: "get()"})
	p.SetEntry(main)

	res := analyze(t, AnalysisConfig{Program: p})

	for _, src := range res.pfg.Pointers() {
		for dst := range res.pfg.SuccsOf(src) {
			assert.True(t, dst.PointsToSet().ContainsAll(src.PointsToSet()),
				"pt(%s) ⊄ pt(%s)", src, dst)
		}
	}

	assert.NotEmpty(t, res.PointsTo(r1))
}

// Re-propagating an already-contained set yields an empty delta and no
// further worklist growth.
func TestPropagateIdempotent(t *testing.T) {
	p := ir.NewProgram()
	c := p.NewClass("C", nil)
	main := c.NewStaticMethod("main()", "")
	x := main.NewVar("x")
	y := main.NewVar("y")
	main.NewAlloc(x, "Object")
	main.NewCopy(y, x)
	p.SetEntry(main)

	s := &solver{program: p, selector: Insensitive{}, heap: NewAllocSiteModel()}
	require.NoError(t, s.initialize(nil))
	s.analyze()
	require.True(t, s.work.empty())

	ptr := s.mgr.csVar(Insensitive{}.EmptyContext(), x)
	require.False(t, ptr.PointsToSet().Empty())

	diff := s.propagate(ptr, ptr.PointsToSet().Copy())
	assert.True(t, diff.Empty())
	assert.True(t, s.work.empty(), "idempotent propagate must not enqueue work")
}

// A new PFG edge flushes the source's existing points-to set to the target:
// objects known before the edge existed still flow across it.
func TestLateEdgeFlush(t *testing.T) {
	p := ir.NewProgram()
	c := p.NewClass("C", nil)
	main := c.NewStaticMethod("main()", "")
	o := main.NewVar("o")
	late := main.NewVar("late")
	main.NewAlloc(o, "Object")
	p.SetEntry(main)

	s := &solver{program: p, selector: Insensitive{}, heap: NewAllocSiteModel()}
	require.NoError(t, s.initialize(nil))
	s.analyze()

	ctx := Insensitive{}.EmptyContext()
	src := s.mgr.csVar(ctx, o)
	dst := s.mgr.csVar(ctx, late)
	require.False(t, src.PointsToSet().Empty())
	require.True(t, dst.PointsToSet().Empty())

	s.addPFGEdge(src, dst)
	assert.False(t, s.work.empty(), "a new edge must push the known set forward")
	s.analyze()
	assert.True(t, dst.PointsToSet().ContainsAll(src.PointsToSet()))

	// Re-adding the edge is a no-op and enqueues nothing.
	s.addPFGEdge(src, dst)
	assert.True(t, s.work.empty())
}
