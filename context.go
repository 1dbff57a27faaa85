package pta

import (
	"fmt"
	"strings"

	"github.com/ptago/pta/internal/slices"
	"github.com/ptago/pta/ir"
)

// Context distinguishes otherwise-identical method and object instances.
// Selector implementations intern their contexts, so two equal contexts are
// always the same value and contexts can be used directly as map keys.
type Context interface {
	fmt.Stringer
}

// ContextSelector decides which contexts methods are analysed under and
// which heap contexts qualify abstract objects. It is consulted only at
// call-processing and allocation time.
type ContextSelector interface {
	// EmptyContext returns the context the entry method runs under.
	EmptyContext() Context
	// SelectContext returns the context for analysing callee when invoked
	// from site. recv is the receiver object for instance calls and nil
	// for static calls.
	SelectContext(site *CSCallSite, recv *CSObj, callee *ir.Method) Context
	// SelectHeapContext returns the heap context for an object allocated
	// in the given method instance.
	SelectHeapContext(method *CSMethod, obj Obj) Context
}

type emptyContext struct{}

func (emptyContext) String() string { return "[]" }

// Insensitive is the context-insensitive selector: one trivial context for
// everything. The solver has no separate context-insensitive code path;
// this degenerate selector is the whole difference.
type Insensitive struct{}

func (Insensitive) EmptyContext() Context { return emptyContext{} }

func (Insensitive) SelectContext(*CSCallSite, *CSObj, *ir.Method) Context {
	return emptyContext{}
}

func (Insensitive) SelectHeapContext(*CSMethod, Obj) Context {
	return emptyContext{}
}

// callString is a k-limited sequence of call sites.
type callString struct {
	sites []*ir.Call
	repr  string
}

func (c *callString) String() string { return c.repr }

// KCallSelector implements k-call-site sensitivity with h-limited heap
// contexts: method contexts are the last K call sites on the call string,
// heap contexts the last H of those.
type KCallSelector struct {
	K, H   int
	intern map[string]*callString
}

func NewKCallSelector(k, h int) *KCallSelector {
	return &KCallSelector{K: k, H: h, intern: make(map[string]*callString)}
}

func (s *KCallSelector) get(sites []*ir.Call) Context {
	repr := "[" + strings.Join(slices.Map(sites, (*ir.Call).String), ", ") + "]"
	if c, found := s.intern[repr]; found {
		return c
	}
	c := &callString{sites: sites, repr: repr}
	s.intern[repr] = c
	return c
}

func (s *KCallSelector) sitesOf(ctx Context) []*ir.Call {
	if c, ok := ctx.(*callString); ok {
		return c.sites
	}
	return nil
}

func (s *KCallSelector) EmptyContext() Context {
	return s.get(nil)
}

func (s *KCallSelector) SelectContext(site *CSCallSite, recv *CSObj, callee *ir.Method) Context {
	parent := s.sitesOf(site.Context())
	sites := make([]*ir.Call, 0, len(parent)+1)
	sites = append(append(sites, parent...), site.Call())
	if len(sites) > s.K {
		sites = sites[len(sites)-s.K:]
	}
	return s.get(sites)
}

func (s *KCallSelector) SelectHeapContext(method *CSMethod, obj Obj) Context {
	sites := s.sitesOf(method.Context())
	if len(sites) > s.H {
		sites = sites[len(sites)-s.H:]
	}
	return s.get(sites)
}

// allocString is a k-limited sequence of allocation objects.
type allocString struct {
	objs []Obj
	repr string
}

func (c *allocString) String() string { return c.repr }

// KObjSelector implements k-object sensitivity with h-limited heap
// contexts: an instance method is analysed under the receiver object's heap
// context extended with the receiver itself.
type KObjSelector struct {
	K, H   int
	intern map[string]*allocString
}

func NewKObjSelector(k, h int) *KObjSelector {
	return &KObjSelector{K: k, H: h, intern: make(map[string]*allocString)}
}

func (s *KObjSelector) get(objs []Obj) Context {
	repr := "[" + strings.Join(slices.Map(objs, Obj.String), ", ") + "]"
	if c, found := s.intern[repr]; found {
		return c
	}
	c := &allocString{objs: objs, repr: repr}
	s.intern[repr] = c
	return c
}

func (s *KObjSelector) objsOf(ctx Context) []Obj {
	if c, ok := ctx.(*allocString); ok {
		return c.objs
	}
	return nil
}

func (s *KObjSelector) EmptyContext() Context {
	return s.get(nil)
}

func (s *KObjSelector) SelectContext(site *CSCallSite, recv *CSObj, callee *ir.Method) Context {
	if recv == nil {
		// Static calls inherit the caller context.
		return site.Context()
	}
	parent := s.objsOf(recv.Context())
	objs := make([]Obj, 0, len(parent)+1)
	objs = append(append(objs, parent...), recv.Object())
	if len(objs) > s.K {
		objs = objs[len(objs)-s.K:]
	}
	return s.get(objs)
}

func (s *KObjSelector) SelectHeapContext(method *CSMethod, obj Obj) Context {
	objs := s.objsOf(method.Context())
	if len(objs) > s.H {
		objs = objs[len(objs)-s.H:]
	}
	return s.get(objs)
}
