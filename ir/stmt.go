package ir

import "fmt"

// Stmt is a statement of a method body. The variant set is closed: the
// engine branches on the concrete type.
type Stmt interface {
	// Method containing the statement.
	Method() *Method
	fmt.Stringer

	stmt()
}

type stmtBase struct {
	method *Method
	index  int
}

func (s stmtBase) Method() *Method { return s.method }
func (s stmtBase) stmt()           {}

func (s stmtBase) pos() string {
	return fmt.Sprintf("%s:%d", s.method, s.index)
}

func (m *Method) base() stmtBase {
	if m.abstract {
		panic(fmt.Errorf("cannot add statements to abstract method %s", m))
	}
	return stmtBase{method: m, index: len(m.stmts)}
}

// Alloc is an allocation: to = new T. The statement itself is the
// allocation site identity handed to the heap model.
type Alloc struct {
	stmtBase
	Result *Var
	Type   Type
}

func (s *Alloc) String() string {
	return fmt.Sprintf("%s = new %s [%s]", s.Result.name, s.Type, s.pos())
}

// NewAlloc appends an allocation of type t into `to`.
func (m *Method) NewAlloc(to *Var, t Type) *Alloc {
	s := &Alloc{stmtBase: m.base(), Result: to, Type: t}
	m.stmts = append(m.stmts, s)
	return s
}

// Copy is a local assignment: to = from.
type Copy struct {
	stmtBase
	To, From *Var
}

func (s *Copy) String() string {
	return fmt.Sprintf("%s = %s [%s]", s.To.name, s.From.name, s.pos())
}

// NewCopy appends a copy assignment to = from.
func (m *Method) NewCopy(to, from *Var) *Copy {
	s := &Copy{stmtBase: m.base(), To: to, From: from}
	m.stmts = append(m.stmts, s)
	return s
}

// StaticLoad reads a static field: to = C.f.
type StaticLoad struct {
	stmtBase
	To    *Var
	Field *Field
}

func (s *StaticLoad) String() string {
	return fmt.Sprintf("%s = %s [%s]", s.To.name, s.Field, s.pos())
}

// NewStaticLoad appends a static field load to = f.
func (m *Method) NewStaticLoad(to *Var, f *Field) *StaticLoad {
	if !f.static {
		panic(fmt.Errorf("static load of instance field %s", f))
	}
	s := &StaticLoad{stmtBase: m.base(), To: to, Field: f}
	m.stmts = append(m.stmts, s)
	return s
}

// StaticStore writes a static field: C.f = from.
type StaticStore struct {
	stmtBase
	Field *Field
	From  *Var
}

func (s *StaticStore) String() string {
	return fmt.Sprintf("%s = %s [%s]", s.Field, s.From.name, s.pos())
}

// NewStaticStore appends a static field store f = from.
func (m *Method) NewStaticStore(f *Field, from *Var) *StaticStore {
	if !f.static {
		panic(fmt.Errorf("static store to instance field %s", f))
	}
	s := &StaticStore{stmtBase: m.base(), Field: f, From: from}
	m.stmts = append(m.stmts, s)
	return s
}

// FieldLoad reads an instance field: to = base.f.
type FieldLoad struct {
	stmtBase
	To    *Var
	Base  *Var
	Field *Field
}

func (s *FieldLoad) String() string {
	return fmt.Sprintf("%s = %s.%s [%s]", s.To.name, s.Base.name, s.Field.name, s.pos())
}

// NewFieldLoad appends an instance field load to = base.f and indexes it on
// the base variable.
func (m *Method) NewFieldLoad(to, base *Var, f *Field) *FieldLoad {
	if f.static {
		panic(fmt.Errorf("instance load of static field %s", f))
	}
	s := &FieldLoad{stmtBase: m.base(), To: to, Base: base, Field: f}
	m.stmts = append(m.stmts, s)
	base.fieldLoads = append(base.fieldLoads, s)
	return s
}

// FieldStore writes an instance field: base.f = from.
type FieldStore struct {
	stmtBase
	Base  *Var
	Field *Field
	From  *Var
}

func (s *FieldStore) String() string {
	return fmt.Sprintf("%s.%s = %s [%s]", s.Base.name, s.Field.name, s.From.name, s.pos())
}

// NewFieldStore appends an instance field store base.f = from and indexes it
// on the base variable.
func (m *Method) NewFieldStore(base *Var, f *Field, from *Var) *FieldStore {
	if f.static {
		panic(fmt.Errorf("instance store to static field %s", f))
	}
	s := &FieldStore{stmtBase: m.base(), Base: base, Field: f, From: from}
	m.stmts = append(m.stmts, s)
	base.fieldStores = append(base.fieldStores, s)
	return s
}

// ArrayLoad reads an array element: to = array[*]. Indices are merged.
type ArrayLoad struct {
	stmtBase
	To    *Var
	Array *Var
}

func (s *ArrayLoad) String() string {
	return fmt.Sprintf("%s = %s[*] [%s]", s.To.name, s.Array.name, s.pos())
}

// NewArrayLoad appends an array load to = array[*] and indexes it on the
// array variable.
func (m *Method) NewArrayLoad(to, array *Var) *ArrayLoad {
	s := &ArrayLoad{stmtBase: m.base(), To: to, Array: array}
	m.stmts = append(m.stmts, s)
	array.arrayLoads = append(array.arrayLoads, s)
	return s
}

// ArrayStore writes an array element: array[*] = from.
type ArrayStore struct {
	stmtBase
	Array *Var
	From  *Var
}

func (s *ArrayStore) String() string {
	return fmt.Sprintf("%s[*] = %s [%s]", s.Array.name, s.From.name, s.pos())
}

// NewArrayStore appends an array store array[*] = from and indexes it on the
// array variable.
func (m *Method) NewArrayStore(array, from *Var) *ArrayStore {
	s := &ArrayStore{stmtBase: m.base(), Array: array, From: from}
	m.stmts = append(m.stmts, s)
	array.arrayStores = append(array.arrayStores, s)
	return s
}

// CallKind classifies an invocation.
type CallKind int

const (
	Static CallKind = iota
	Special
	Virtual
	Interface
)

func (k CallKind) String() string {
	switch k {
	case Static:
		return "static"
	case Special:
		return "special"
	case Virtual:
		return "virtual"
	case Interface:
		return "interface"
	default:
		return fmt.Sprintf("CallKind(%d)", int(k))
	}
}

// MethodRef names a method by declaring class and signature, as written at
// a call site.
type MethodRef struct {
	Class *Class
	Sig   string
}

func (r MethodRef) String() string {
	return r.Class.name + "." + r.Sig
}

// Resolve returns the declaration the reference binds to: the first method
// with the referenced signature found on the declaring class or one of its
// superclasses. Returns nil if there is no such declaration.
func (r MethodRef) Resolve() *Method {
	for c := r.Class; c != nil; c = c.super {
		if m := c.methods[r.Sig]; m != nil {
			return m
		}
	}
	return nil
}

// Call is an invocation. Recv is nil for static calls; Result is nil when
// the returned value is discarded.
type Call struct {
	stmtBase
	Kind   CallKind
	Result *Var
	Recv   *Var
	Args   []*Var
	Ref    MethodRef
}

func (s *Call) String() string {
	recv := s.Ref.Class.name
	if s.Recv != nil {
		recv = s.Recv.name
	}
	return fmt.Sprintf("%s.%s(#%d) [%s]", recv, s.Ref.Sig, len(s.Args), s.pos())
}

// NewCall appends an invocation and, for instance calls, indexes it on the
// receiver variable.
func (m *Method) NewCall(kind CallKind, result *Var, recv *Var, ref MethodRef, args ...*Var) *Call {
	if (kind == Static) != (recv == nil) {
		panic(fmt.Errorf("receiver mismatch for %s call to %s", kind, ref))
	}
	s := &Call{stmtBase: m.base(), Kind: kind, Result: result, Recv: recv, Args: args, Ref: ref}
	m.stmts = append(m.stmts, s)
	if recv != nil {
		recv.invokes = append(recv.invokes, s)
	}
	return s
}
