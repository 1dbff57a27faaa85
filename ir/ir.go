// Package ir provides the intermediate representation consumed by the
// points-to analysis engine: a program is a set of classes arranged in a
// hierarchy, each class declares fields and methods, and each method body is
// a flat list of statements (see stmt.go).
//
// Programs are assembled through the builder methods on [Program], [Class]
// and [Method]. The builder maintains the per-variable use indexes
// (loads/stores/invocations keyed by base variable) that the engine's lazy
// field and call discovery depends on.
package ir

import "fmt"

// Type names the declared type of an expression. Class types use the class
// name; value types (String, int, ...) are free-form.
type Type string

type Program struct {
	classes map[string]*Class
	entry   *Method
}

func NewProgram() *Program {
	return &Program{classes: make(map[string]*Class)}
}

// Class returns the class with the given name, or nil.
func (p *Program) Class(name string) *Class {
	return p.classes[name]
}

// Entry returns the program entry method, or nil if none was set.
func (p *Program) Entry() *Method { return p.entry }

// SetEntry marks m as the program entry method.
func (p *Program) SetEntry(m *Method) { p.entry = m }

// Class is a class or interface of the analysed program.
type Class struct {
	name        string
	super       *Class
	interfaces  []*Class
	isInterface bool
	isAbstract  bool

	methods map[string]*Method
	fields  map[string]*Field

	subclasses    []*Class
	subinterfaces []*Class
	implementors  []*Class
}

func (p *Program) newClass(name string, isInterface bool, super *Class, interfaces []*Class) *Class {
	if _, found := p.classes[name]; found {
		panic(fmt.Errorf("class %s declared twice", name))
	}

	c := &Class{
		name:        name,
		super:       super,
		interfaces:  interfaces,
		isInterface: isInterface,
		methods:     make(map[string]*Method),
		fields:      make(map[string]*Field),
	}
	p.classes[name] = c

	if super != nil {
		if isInterface {
			panic(fmt.Errorf("interface %s cannot extend class %s", name, super.name))
		}
		super.subclasses = append(super.subclasses, c)
	}
	for _, itf := range interfaces {
		if isInterface {
			itf.subinterfaces = append(itf.subinterfaces, c)
		} else {
			itf.implementors = append(itf.implementors, c)
		}
	}
	return c
}

// NewClass declares a class extending super (nil for a root class) and
// implementing the given interfaces.
func (p *Program) NewClass(name string, super *Class, interfaces ...*Class) *Class {
	return p.newClass(name, false, super, interfaces)
}

// NewInterface declares an interface extending the given superinterfaces.
func (p *Program) NewInterface(name string, supers ...*Class) *Class {
	c := p.newClass(name, true, nil, supers)
	c.isAbstract = true
	return c
}

func (c *Class) String() string { return c.name }

func (c *Class) Name() string         { return c.name }
func (c *Class) Super() *Class        { return c.super }
func (c *Class) Interfaces() []*Class { return c.interfaces }
func (c *Class) IsInterface() bool    { return c.isInterface }
func (c *Class) IsAbstract() bool     { return c.isAbstract }

// SetAbstract marks the class abstract. Abstract classes may declare
// abstract methods and never produce dispatch targets themselves.
func (c *Class) SetAbstract() *Class {
	c.isAbstract = true
	return c
}

// Subclasses returns the direct subclasses of c.
func (c *Class) Subclasses() []*Class { return c.subclasses }

// Subinterfaces returns the direct subinterfaces of c (interfaces only).
func (c *Class) Subinterfaces() []*Class { return c.subinterfaces }

// Implementors returns the classes directly implementing c (interfaces only).
func (c *Class) Implementors() []*Class { return c.implementors }

// DeclaredMethod returns the method with the given signature declared
// directly on c, or nil.
func (c *Class) DeclaredMethod(sig string) *Method { return c.methods[sig] }

// Dispatch resolves sig against the runtime class c: it walks the superclass
// chain upwards and returns the first non-abstract declaration, or nil if
// every declaration on the chain is abstract or missing.
func (c *Class) Dispatch(sig string) *Method {
	for cur := c; cur != nil; cur = cur.super {
		if m := cur.methods[sig]; m != nil && !m.abstract {
			return m
		}
	}
	return nil
}

// Field is a static or instance field of a class.
type Field struct {
	class  *Class
	name   string
	typ    Type
	static bool
}

func (c *Class) newField(name string, typ Type, static bool) *Field {
	if _, found := c.fields[name]; found {
		panic(fmt.Errorf("field %s.%s declared twice", c.name, name))
	}
	f := &Field{class: c, name: name, typ: typ, static: static}
	c.fields[name] = f
	return f
}

// NewField declares an instance field on c.
func (c *Class) NewField(name string, typ Type) *Field {
	return c.newField(name, typ, false)
}

// NewStaticField declares a static field on c.
func (c *Class) NewStaticField(name string, typ Type) *Field {
	return c.newField(name, typ, true)
}

func (f *Field) Class() *Class  { return f.class }
func (f *Field) Name() string   { return f.name }
func (f *Field) Type() Type     { return f.typ }
func (f *Field) IsStatic() bool { return f.static }

func (f *Field) String() string {
	return f.class.name + "." + f.name
}
