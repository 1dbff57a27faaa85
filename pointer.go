// Package pta implements a whole-program, flow-insensitive points-to
// analysis with on-the-fly call graph construction for a class-based
// language with virtual dispatch (see the ir package for the program
// model). Context sensitivity is pluggable through [ContextSelector], and an
// optional taint overlay rides on the same propagation substrate.
package pta

import (
	"fmt"

	"github.com/ptago/pta/ir"
)

// Pointer is a node of the pointer flow graph. Each pointer owns exactly
// one points-to set, which only ever grows during a run.
type Pointer interface {
	PointsToSet() *PointsToSet
	fmt.Stringer
}

// CSVar is a variable qualified by a context.
type CSVar struct {
	ctx Context
	v   *ir.Var
	pts *PointsToSet
}

func (p *CSVar) Context() Context          { return p.ctx }
func (p *CSVar) Var() *ir.Var              { return p.v }
func (p *CSVar) PointsToSet() *PointsToSet { return p.pts }

func (p *CSVar) String() string {
	return fmt.Sprintf("%s:%s", p.ctx, p.v)
}

// StaticField is the pointer for a static field. Static fields are context
// free: there is one per field in the whole program.
type StaticField struct {
	f   *ir.Field
	pts *PointsToSet
}

func (p *StaticField) Field() *ir.Field          { return p.f }
func (p *StaticField) PointsToSet() *PointsToSet { return p.pts }

func (p *StaticField) String() string { return p.f.String() }

// InstanceField is the pointer for a field of one abstract object.
type InstanceField struct {
	base *CSObj
	f    *ir.Field
	pts  *PointsToSet
}

func (p *InstanceField) Base() *CSObj              { return p.base }
func (p *InstanceField) Field() *ir.Field          { return p.f }
func (p *InstanceField) PointsToSet() *PointsToSet { return p.pts }

func (p *InstanceField) String() string {
	return fmt.Sprintf("%s.%s", p.base, p.f.Name())
}

// ArrayIndex is the pointer for the elements of one array object. All
// indices of the array are merged into a single pointer.
type ArrayIndex struct {
	array *CSObj
	pts   *PointsToSet
}

func (p *ArrayIndex) Array() *CSObj             { return p.array }
func (p *ArrayIndex) PointsToSet() *PointsToSet { return p.pts }

func (p *ArrayIndex) String() string {
	return fmt.Sprintf("%s[*]", p.array)
}

// CSObj is an abstract object qualified by a heap context. Objects are
// interned by the manager and numbered densely; points-to sets store the
// numbers.
type CSObj struct {
	ctx   Context
	obj   Obj
	index int
}

func (o *CSObj) Context() Context { return o.ctx }
func (o *CSObj) Object() Obj      { return o.obj }

func (o *CSObj) String() string {
	return fmt.Sprintf("%s:%s", o.ctx, o.obj)
}

// CSCallSite is an invocation qualified by the caller context.
type CSCallSite struct {
	ctx  Context
	call *ir.Call
}

func (s *CSCallSite) Context() Context { return s.ctx }
func (s *CSCallSite) Call() *ir.Call   { return s.call }

func (s *CSCallSite) String() string {
	return fmt.Sprintf("%s:%s", s.ctx, s.call)
}

// CSMethod is a method qualified by a context.
type CSMethod struct {
	ctx Context
	m   *ir.Method
}

func (m *CSMethod) Context() Context   { return m.ctx }
func (m *CSMethod) Method() *ir.Method { return m.m }

func (m *CSMethod) String() string {
	return fmt.Sprintf("%s:%s", m.ctx, m.m)
}

type varKey struct {
	ctx Context
	v   *ir.Var
}

type fieldKey struct {
	base *CSObj
	f    *ir.Field
}

type objKey struct {
	ctx Context
	obj Obj
}

type siteKey struct {
	ctx  Context
	call *ir.Call
}

type methodKey struct {
	ctx Context
	m   *ir.Method
}

// manager interns every context-sensitive element of the analysis, so that
// pointer identity can be used for graph nodes and map keys. It also owns
// the dense numbering of objects backing the points-to set representation.
type manager struct {
	vars    map[varKey]*CSVar
	statics map[*ir.Field]*StaticField
	fields  map[fieldKey]*InstanceField
	arrays  map[*CSObj]*ArrayIndex
	objs    map[objKey]*CSObj
	sites   map[siteKey]*CSCallSite
	methods map[methodKey]*CSMethod

	// Object numbering; index i holds the object with index i.
	objIndex []*CSObj
}

func newManager() *manager {
	return &manager{
		vars:    make(map[varKey]*CSVar),
		statics: make(map[*ir.Field]*StaticField),
		fields:  make(map[fieldKey]*InstanceField),
		arrays:  make(map[*CSObj]*ArrayIndex),
		objs:    make(map[objKey]*CSObj),
		sites:   make(map[siteKey]*CSCallSite),
		methods: make(map[methodKey]*CSMethod),
	}
}

func (m *manager) csVar(ctx Context, v *ir.Var) *CSVar {
	key := varKey{ctx, v}
	if p, found := m.vars[key]; found {
		return p
	}
	p := &CSVar{ctx: ctx, v: v, pts: m.newPointsToSet()}
	m.vars[key] = p
	return p
}

func (m *manager) staticField(f *ir.Field) *StaticField {
	if p, found := m.statics[f]; found {
		return p
	}
	p := &StaticField{f: f, pts: m.newPointsToSet()}
	m.statics[f] = p
	return p
}

func (m *manager) instanceField(base *CSObj, f *ir.Field) *InstanceField {
	key := fieldKey{base, f}
	if p, found := m.fields[key]; found {
		return p
	}
	p := &InstanceField{base: base, f: f, pts: m.newPointsToSet()}
	m.fields[key] = p
	return p
}

func (m *manager) arrayIndex(array *CSObj) *ArrayIndex {
	if p, found := m.arrays[array]; found {
		return p
	}
	p := &ArrayIndex{array: array, pts: m.newPointsToSet()}
	m.arrays[array] = p
	return p
}

func (m *manager) csObj(ctx Context, obj Obj) *CSObj {
	key := objKey{ctx, obj}
	if o, found := m.objs[key]; found {
		return o
	}
	o := &CSObj{ctx: ctx, obj: obj, index: len(m.objIndex)}
	m.objs[key] = o
	m.objIndex = append(m.objIndex, o)
	return o
}

func (m *manager) csCallSite(ctx Context, call *ir.Call) *CSCallSite {
	key := siteKey{ctx, call}
	if s, found := m.sites[key]; found {
		return s
	}
	s := &CSCallSite{ctx: ctx, call: call}
	m.sites[key] = s
	return s
}

func (m *manager) csMethod(ctx Context, method *ir.Method) *CSMethod {
	key := methodKey{ctx, method}
	if cm, found := m.methods[key]; found {
		return cm
	}
	cm := &CSMethod{ctx: ctx, m: method}
	m.methods[key] = cm
	return cm
}
