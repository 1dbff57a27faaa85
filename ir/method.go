package ir

import "fmt"

// Method is a method body: a parameter list, a statement list and the set of
// return variables. Signatures are matched by the Sig string alone, so
// overriding a method means declaring the same Sig on a subclass.
type Method struct {
	class    *Class
	sig      string
	static   bool
	abstract bool

	this       *Var
	params     []*Var
	returnVars []*Var
	returnType Type

	stmts []Stmt
}

func (c *Class) newMethod(sig string, ret Type, static, abstract bool) *Method {
	if _, found := c.methods[sig]; found {
		panic(fmt.Errorf("method %s.%s declared twice", c.name, sig))
	}

	m := &Method{class: c, sig: sig, static: static, abstract: abstract, returnType: ret}
	if !static {
		m.this = m.NewVar("this")
	}
	c.methods[sig] = m
	return m
}

// NewMethod declares an instance method on c. A fresh `this` variable is
// created for it.
func (c *Class) NewMethod(sig string, ret Type) *Method {
	return c.newMethod(sig, ret, false, false)
}

// NewStaticMethod declares a static method on c.
func (c *Class) NewStaticMethod(sig string, ret Type) *Method {
	return c.newMethod(sig, ret, true, false)
}

// NewAbstractMethod declares an abstract instance method on c. Abstract
// methods have no statements and are never dispatch targets.
func (c *Class) NewAbstractMethod(sig string, ret Type) *Method {
	return c.newMethod(sig, ret, false, true)
}

func (m *Method) String() string { return m.class.name + "." + m.sig }

func (m *Method) Class() *Class    { return m.class }
func (m *Method) Sig() string      { return m.sig }
func (m *Method) IsStatic() bool   { return m.static }
func (m *Method) IsAbstract() bool { return m.abstract }
func (m *Method) ReturnType() Type { return m.returnType }

// This returns the receiver variable, or nil for static methods.
func (m *Method) This() *Var { return m.this }

func (m *Method) Params() []*Var     { return m.params }
func (m *Method) Param(i int) *Var   { return m.params[i] }
func (m *Method) ReturnVars() []*Var { return m.returnVars }
func (m *Method) Stmts() []Stmt      { return m.stmts }

// NewVar creates a fresh local variable of m.
func (m *Method) NewVar(name string) *Var {
	return &Var{method: m, name: name}
}

// NewParam creates a fresh local variable and appends it to the parameter
// list of m.
func (m *Method) NewParam(name string) *Var {
	v := m.NewVar(name)
	m.params = append(m.params, v)
	return v
}

// Return marks v as a return variable of m.
func (m *Method) Return(v *Var) {
	m.returnVars = append(m.returnVars, v)
}

// Var is a local variable (or parameter, or receiver) of a method. Besides
// its identity it carries indexes over its syntactic uses as a base of field
// and array accesses and as an invocation receiver; the engine consults
// these when the variable's points-to set grows.
type Var struct {
	method *Method
	name   string

	fieldLoads  []*FieldLoad
	fieldStores []*FieldStore
	arrayLoads  []*ArrayLoad
	arrayStores []*ArrayStore
	invokes     []*Call
}

func (v *Var) String() string {
	return fmt.Sprintf("%s/%s", v.method, v.name)
}

func (v *Var) Method() *Method { return v.method }
func (v *Var) Name() string    { return v.name }

// FieldLoads returns the loads with v as the base variable.
func (v *Var) FieldLoads() []*FieldLoad { return v.fieldLoads }

// FieldStores returns the stores with v as the base variable.
func (v *Var) FieldStores() []*FieldStore { return v.fieldStores }

// ArrayLoads returns the array loads with v as the array variable.
func (v *Var) ArrayLoads() []*ArrayLoad { return v.arrayLoads }

// ArrayStores returns the array stores with v as the array variable.
func (v *Var) ArrayStores() []*ArrayStore { return v.arrayStores }

// Invokes returns the invocations with v as the receiver variable.
func (v *Var) Invokes() []*Call { return v.invokes }
