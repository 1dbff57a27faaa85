package pta

import (
	"github.com/ptago/pta/internal/queue"
	"github.com/ptago/pta/ir"
)

// resolveCallee resolves the callee of a call site. recv is the receiver
// object for instance calls and is ignored for static calls. A nil result
// is not an error: a branch of the hierarchy with no non-abstract override
// simply contributes no callee.
func resolveCallee(recv *CSObj, call *ir.Call, program *ir.Program) *ir.Method {
	switch call.Kind {
	case ir.Static:
		return call.Ref.Resolve()
	case ir.Special:
		return call.Ref.Class.Dispatch(call.Ref.Sig)
	default: // virtual, interface
		class := program.Class(string(recv.Object().Type()))
		if class == nil {
			return nil
		}
		return class.Dispatch(call.Ref.Sig)
	}
}

// resolveCHA resolves a call site by class hierarchy analysis alone,
// ignoring points-to information. Virtual and interface calls yield every
// non-abstract override found by a breadth-first traversal of the
// subclass/subinterface/implementor lattice rooted at the declared class.
func resolveCHA(call *ir.Call) []*ir.Method {
	switch call.Kind {
	case ir.Static:
		if m := call.Ref.Resolve(); m != nil {
			return []*ir.Method{m}
		}
		return nil
	case ir.Special:
		if m := call.Ref.Class.Dispatch(call.Ref.Sig); m != nil {
			return []*ir.Method{m}
		}
		return nil
	default:
		var result []*ir.Method
		seen := make(map[*ir.Method]bool)
		reached := make(map[*ir.Class]bool)
		var wl queue.Queue[*ir.Class]
		wl.Push(call.Ref.Class)
		reached[call.Ref.Class] = true
		for !wl.Empty() {
			class := wl.Pop()
			if m := class.Dispatch(call.Ref.Sig); m != nil && !seen[m] {
				seen[m] = true
				result = append(result, m)
			}
			expand := func(cs []*ir.Class) {
				for _, sub := range cs {
					if !reached[sub] {
						reached[sub] = true
						wl.Push(sub)
					}
				}
			}
			expand(class.Subclasses())
			if class.IsInterface() {
				expand(class.Subinterfaces())
				expand(class.Implementors())
			}
		}
		return result
	}
}
