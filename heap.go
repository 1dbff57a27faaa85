package pta

import (
	"fmt"

	"github.com/ptago/pta/ir"
)

// This file contains the heap abstraction: the types whose instances
// represent abstract objects targeted by pointers in the analysed program.

// Obj denotes an abstract object. An object is either an allocation-site
// object produced by the heap model, or a synthetic taint object introduced
// by the taint overlay (see taint.go).
type Obj interface {
	// Site returns the statement the object originates from: the
	// allocation for heap objects, the source call for taint objects.
	Site() ir.Stmt
	// Type returns the declared type of the object.
	Type() ir.Type
	fmt.Stringer
}

type allocObj struct {
	site *ir.Alloc
}

func (o allocObj) Site() ir.Stmt { return o.site }
func (o allocObj) Type() ir.Type { return o.site.Type }

func (o allocObj) String() string { return o.site.String() }

// HeapModel maps allocation sites to abstract object identities.
type HeapModel interface {
	Allocate(site *ir.Alloc) Obj
}

// AllocSiteModel is the standard allocation-site abstraction: every
// allocation statement denotes exactly one abstract object, however many
// times it executes.
type AllocSiteModel struct {
	objs map[*ir.Alloc]Obj
}

func NewAllocSiteModel() *AllocSiteModel {
	return &AllocSiteModel{objs: make(map[*ir.Alloc]Obj)}
}

func (m *AllocSiteModel) Allocate(site *ir.Alloc) Obj {
	if o, found := m.objs[site]; found {
		return o
	}
	o := allocObj{site: site}
	m.objs[site] = o
	return o
}
