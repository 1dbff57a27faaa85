package pta

import (
	"strings"

	"golang.org/x/tools/container/intsets"
)

// PointsToSet is a set of abstract objects, stored as a sparse bit set over
// the manager's dense object numbering. Sets grow monotonically; there is
// no removal operation.
type PointsToSet struct {
	mgr *manager
	set intsets.Sparse
}

func (m *manager) newPointsToSet(objs ...*CSObj) *PointsToSet {
	pts := &PointsToSet{mgr: m}
	for _, o := range objs {
		pts.set.Insert(o.index)
	}
	return pts
}

// Add inserts o and reports whether the set changed.
func (s *PointsToSet) Add(o *CSObj) bool {
	return s.set.Insert(o.index)
}

func (s *PointsToSet) Contains(o *CSObj) bool {
	return s.set.Has(o.index)
}

func (s *PointsToSet) Empty() bool {
	return s.set.IsEmpty()
}

func (s *PointsToSet) Len() int {
	return s.set.Len()
}

// Union adds every object of t and reports whether the set changed.
func (s *PointsToSet) Union(t *PointsToSet) bool {
	return s.set.UnionWith(&t.set)
}

// Contains reports whether every object of t is also in s.
func (s *PointsToSet) ContainsAll(t *PointsToSet) bool {
	return t.set.SubsetOf(&s.set)
}

// Copy returns an independent copy of s.
func (s *PointsToSet) Copy() *PointsToSet {
	cp := &PointsToSet{mgr: s.mgr}
	cp.set.Copy(&s.set)
	return cp
}

// DiffFrom returns the objects of t that are not in s: the delta actually
// new to s.
func (s *PointsToSet) DiffFrom(t *PointsToSet) *PointsToSet {
	diff := &PointsToSet{mgr: s.mgr}
	diff.set.Copy(&t.set)
	diff.set.DifferenceWith(&s.set)
	return diff
}

// Objects returns the members in object-number order.
func (s *PointsToSet) Objects() []*CSObj {
	idxs := s.set.AppendTo(nil)
	objs := make([]*CSObj, len(idxs))
	for i, idx := range idxs {
		objs[i] = s.mgr.objIndex[idx]
	}
	return objs
}

func (s *PointsToSet) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, o := range s.Objects() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(o.String())
	}
	sb.WriteByte('}')
	return sb.String()
}
