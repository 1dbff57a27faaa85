package pta

import (
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ptago/pta/ir"
)

// Slot designates a position at a call site that taint can transfer
// between: an argument index, the receiver, or the result.
type Slot int

const (
	SlotBase   Slot = -1
	SlotResult Slot = -2
)

func (s *Slot) UnmarshalYAML(node *yaml.Node) error {
	switch node.Value {
	case "base":
		*s = SlotBase
	case "result":
		*s = SlotResult
	default:
		var i int
		if err := node.Decode(&i); err != nil || i < 0 {
			return fmt.Errorf("invalid slot %q (want argument index, base or result)", node.Value)
		}
		*s = Slot(i)
	}
	return nil
}

func (s Slot) String() string {
	switch s {
	case SlotBase:
		return "base"
	case SlotResult:
		return "result"
	default:
		return fmt.Sprintf("arg %d", int(s))
	}
}

// Source declares that calls to Method produce tainted values of Type.
type Source struct {
	Method *ir.Method
	Type   ir.Type
}

// Sink declares that the Index-th argument of calls to Method must not be
// tainted.
type Sink struct {
	Method *ir.Method
	Index  int
}

// Transfer declares that calls to Method propagate taint from the From
// slot to the To slot, retagged with Type.
type Transfer struct {
	Method   *ir.Method
	From, To Slot
	Type     ir.Type
}

// TaintConfig is the parsed taint specification: sources, sinks and
// transfer rules.
type TaintConfig struct {
	Sources   []Source
	Sinks     []Sink
	Transfers []Transfer
}

type rawTaintConfig struct {
	Sources []struct {
		Method string  `yaml:"method"`
		Type   ir.Type `yaml:"type"`
	} `yaml:"sources"`
	Sinks []struct {
		Method string `yaml:"method"`
		Index  int    `yaml:"index"`
	} `yaml:"sinks"`
	Transfers []struct {
		Method string  `yaml:"method"`
		From   Slot    `yaml:"from"`
		To     Slot    `yaml:"to"`
		Type   ir.Type `yaml:"type"`
	} `yaml:"transfers"`
}

// lookupMethod resolves a "Class#sig" reference from the config against the
// program. The signature is looked up on the named class and its
// superclasses.
func lookupMethod(program *ir.Program, ref string) (*ir.Method, error) {
	name, sig, found := strings.Cut(ref, "#")
	if !found {
		return nil, fmt.Errorf("malformed method reference %q (want Class#sig)", ref)
	}
	class := program.Class(name)
	if class == nil {
		return nil, fmt.Errorf("unknown class in method reference %q", ref)
	}
	m := ir.MethodRef{Class: class, Sig: sig}.Resolve()
	if m == nil {
		return nil, fmt.Errorf("unknown method in reference %q", ref)
	}
	return m, nil
}

// ParseTaintConfig parses a YAML taint specification and resolves its
// method references against the program. Any unknown reference or
// unparsable rule is an error: the analysis must not start on a
// configuration it cannot ground.
func ParseTaintConfig(data []byte, program *ir.Program) (*TaintConfig, error) {
	var raw rawTaintConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing taint config: %w", err)
	}

	config := new(TaintConfig)
	for _, s := range raw.Sources {
		m, err := lookupMethod(program, s.Method)
		if err != nil {
			return nil, fmt.Errorf("taint source: %w", err)
		}
		config.Sources = append(config.Sources, Source{Method: m, Type: s.Type})
	}
	for _, s := range raw.Sinks {
		m, err := lookupMethod(program, s.Method)
		if err != nil {
			return nil, fmt.Errorf("taint sink: %w", err)
		}
		if s.Index < 0 {
			return nil, fmt.Errorf("taint sink %s: negative argument index %d", m, s.Index)
		}
		config.Sinks = append(config.Sinks, Sink{Method: m, Index: s.Index})
	}
	for _, t := range raw.Transfers {
		m, err := lookupMethod(program, t.Method)
		if err != nil {
			return nil, fmt.Errorf("taint transfer: %w", err)
		}
		if t.From == SlotResult {
			return nil, fmt.Errorf("taint transfer %s: result is not a valid from-slot", m)
		}
		if t.To >= 0 {
			return nil, fmt.Errorf("taint transfer %s: arguments are not valid to-slots", m)
		}
		config.Transfers = append(config.Transfers, Transfer{Method: m, From: t.From, To: t.To, Type: t.Type})
	}
	return config, nil
}

// taintObj is a synthetic abstract object marking values produced by a
// source call. It participates in ordinary points-to propagation but never
// serves as a dispatch receiver.
type taintObj struct {
	source *ir.Call
	typ    ir.Type
}

func (o *taintObj) Site() ir.Stmt { return o.source }
func (o *taintObj) Type() ir.Type { return o.typ }

func (o *taintObj) String() string {
	return fmt.Sprintf("taint(%s, %s)", o.typ, o.source)
}

func isTaintObj(obj Obj) bool {
	_, ok := obj.(*taintObj)
	return ok
}

type taintKey struct {
	source *ir.Call
	typ    ir.Type
}

// TaintFlow is one reported source-to-sink flow.
type TaintFlow struct {
	Source *ir.Call
	Sink   *ir.Call
	Index  int
}

func (f TaintFlow) String() string {
	return fmt.Sprintf("%s -> %s (%s)", f.Source, f.Sink, Slot(f.Index))
}

// taintAnalysis is the overlay plugin: it introduces taint objects at
// source calls, maintains the taint flow graph built from transfer rules
// and reports flows into sinks at the end of the run.
type taintAnalysis struct {
	solver *solver

	objs      map[taintKey]*taintObj
	sources   map[*ir.Method][]ir.Type
	sinks     map[*ir.Method][]Sink
	transfers map[*ir.Method][]Transfer

	// Taint flow graph: edges introduced by transfer rules, each carrying
	// the type taint is retagged with when crossing it.
	tfgSuccs map[Pointer]map[Pointer]ir.Type
}

func newTaintAnalysis(s *solver, config *TaintConfig) *taintAnalysis {
	t := &taintAnalysis{
		solver:    s,
		objs:      make(map[taintKey]*taintObj),
		sources:   make(map[*ir.Method][]ir.Type),
		sinks:     make(map[*ir.Method][]Sink),
		transfers: make(map[*ir.Method][]Transfer),
		tfgSuccs:  make(map[Pointer]map[Pointer]ir.Type),
	}
	for _, src := range config.Sources {
		t.sources[src.Method] = append(t.sources[src.Method], src.Type)
	}
	for _, sink := range config.Sinks {
		t.sinks[sink.Method] = append(t.sinks[sink.Method], sink)
	}
	for _, tr := range config.Transfers {
		t.transfers[tr.Method] = append(t.transfers[tr.Method], tr)
	}
	log.Debugf("taint overlay: %d sources, %d sinks, %d transfers",
		len(config.Sources), len(config.Sinks), len(config.Transfers))
	return t
}

func (t *taintAnalysis) isSource(m *ir.Method, typ ir.Type) bool {
	for _, st := range t.sources[m] {
		if st == typ {
			return true
		}
	}
	return false
}

// makeTaint returns the context-free abstract object for taint of the given
// type originating at the given source call.
func (t *taintAnalysis) makeTaint(source *ir.Call, typ ir.Type) *CSObj {
	key := taintKey{source, typ}
	obj, found := t.objs[key]
	if !found {
		obj = &taintObj{source: source, typ: typ}
		t.objs[key] = obj
	}
	return t.solver.mgr.csObj(t.solver.selector.EmptyContext(), obj)
}

// retag maps every taint object of pts to the taint object of the same
// source retagged with the given type. Non-taint objects are dropped.
func (t *taintAnalysis) retag(pts *PointsToSet, typ ir.Type) *PointsToSet {
	out := t.solver.mgr.newPointsToSet()
	for _, o := range pts.Objects() {
		if obj, ok := o.Object().(*taintObj); ok {
			out.Add(t.makeTaint(obj.source, typ))
		}
	}
	return out
}

func (t *taintAnalysis) succsOfTFG(p Pointer) map[Pointer]ir.Type {
	return t.tfgSuccs[p]
}

// addTFGEdge inserts a taint flow edge. On first insertion, taint already
// pointed to by the source is retagged with the transfer type and forwarded
// immediately, mirroring the PFG's flush-on-new-edge rule.
func (t *taintAnalysis) addTFGEdge(source, target Pointer, typ ir.Type) {
	set := t.tfgSuccs[source]
	if set == nil {
		set = make(map[Pointer]ir.Type)
		t.tfgSuccs[source] = set
	}
	if _, found := set[target]; found {
		return
	}
	set[target] = typ

	if pts := t.retag(source.PointsToSet(), typ); !pts.Empty() {
		t.solver.work.add(target, pts)
	}
}

// transferTaint applies the transfer rules of callee to a freshly added
// call edge. base is the receiver variable pointer, nil for static calls.
func (t *taintAnalysis) transferTaint(callee *ir.Method, call *ir.Call, ctx Context, base *CSVar) {
	mgr := t.solver.mgr
	for _, tr := range t.transfers[callee] {
		if tr.From >= 0 && int(tr.From) >= len(call.Args) {
			continue
		}
		switch {
		case tr.From >= 0 && tr.To == SlotResult && call.Result != nil:
			t.addTFGEdge(mgr.csVar(ctx, call.Args[tr.From]),
				mgr.csVar(ctx, call.Result), tr.Type)
		case tr.From == SlotBase && tr.To == SlotResult && base != nil && call.Result != nil:
			t.addTFGEdge(base, mgr.csVar(ctx, call.Result), tr.Type)
		case tr.From >= 0 && tr.To == SlotBase && base != nil:
			t.addTFGEdge(mgr.csVar(ctx, call.Args[tr.From]), base, tr.Type)
		}
	}
}

// collectFlows inspects, for every call edge into a configured sink, the
// points-to set of the sink's tainted argument, and reports every taint
// object found there. The report is deduplicated and sorted.
func (t *taintAnalysis) collectFlows(cg *CallGraph) []TaintFlow {
	seen := make(map[TaintFlow]bool)
	var flows []TaintFlow
	for _, edge := range cg.Edges() {
		call := edge.Site.Call()
		for _, sink := range t.sinks[edge.Callee.Method()] {
			if sink.Index >= len(call.Args) {
				continue
			}
			arg := t.solver.mgr.csVar(edge.Site.Context(), call.Args[sink.Index])
			for _, o := range arg.PointsToSet().Objects() {
				obj, ok := o.Object().(*taintObj)
				if !ok {
					continue
				}
				flow := TaintFlow{Source: obj.source, Sink: call, Index: sink.Index}
				if !seen[flow] {
					seen[flow] = true
					flows = append(flows, flow)
				}
			}
		}
	}
	sort.Slice(flows, func(i, j int) bool {
		a, b := flows[i], flows[j]
		if a.Source.String() != b.Source.String() {
			return a.Source.String() < b.Source.String()
		}
		if a.Sink.String() != b.Sink.String() {
			return a.Sink.String() < b.Sink.String()
		}
		return a.Index < b.Index
	})
	return flows
}
