package metakit

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kampute/metakit/descriptor"
)

// typeShell carries the identity fields shared by every type variant.
// Identity and structural fields are both settled before the object is
// committed to the identity cache, so concurrent readers always observe a
// complete object; derived relations are deferred behind idempotent lazy
// computations.
type typeShell struct {
	repo     *Repository
	raw      *descriptor.Type
	sig      string
	fullName string

	declaring Type
	attrs     []*Attribute
}

func (s *typeShell) Name() string      { return s.raw.Name }
func (s *typeShell) Namespace() string { return s.raw.Namespace }
func (s *typeShell) FullName() string  { return s.fullName }
func (s *typeShell) Signature() string { return s.sig }
func (s *typeShell) Declaring() Type   { return s.declaring }
func (s *typeShell) isType()           {}
func (s *typeShell) Visibility() Visibility {
	return s.raw.Visibility
}
func (s *typeShell) Attributes() []*Attribute { return s.attrs }

func (s *typeShell) Assembly() *descriptor.Assembly {
	return owningAssembly(s.raw)
}

// owningAssembly walks a raw record to the assembly that declared it:
// decorations defer to their element, constructions to their definition, and
// generic parameters to their declaring type.
func owningAssembly(raw *descriptor.Type) *descriptor.Assembly {
	for raw != nil {
		if raw.Assembly != nil {
			return raw.Assembly
		}
		switch {
		case raw.Kind.IsDecoration():
			raw = raw.Element
		case raw.Definition != nil:
			raw = raw.Definition
		case raw.Kind == descriptor.GenericParam:
			if raw.DeclaringMember != nil {
				raw = raw.DeclaringMember.Declaring
			} else {
				raw = raw.Declaring
			}
		default:
			raw = raw.Declaring
		}
	}
	return nil
}

// compound holds the structural and lazily derived state shared by the
// member-bearing type variants. Member lists are materialized on first
// request; a constructed generic type delegates to its open definition's
// lists, because instantiations do not materialize members of their own.
type compound struct {
	shell *typeShell

	base       Type
	interfaces []Type
	typeParams []*GenericParameter
	typeArgs   []Type
	definition Type

	memOnce sync.Once
	ctors   []*Constructor
	methods []*Method
	ops     []*Operator
	props   []*Property
	events  []*Event
	fields  []*Field
	nested  []Type

	closureOnce sync.Once
	closure     []Type // transitive interface set, sorted by full name

	refOnce sync.Once
	refIdx  []Member // every member, sorted by code reference

	extOnce   sync.Once
	extGroups []*ExtensionGroup
}

// compounder is satisfied by every member-bearing variant and gives shared
// algorithms access to the variant's compound state without downcasts per
// variant.
type compounder interface {
	Type
	comp() *compound
}

func (c *compound) comp() *compound { return c }

func (c *compound) Base() Type                          { return c.base }
func (c *compound) Interfaces() []Type                  { return c.interfaces }
func (c *compound) TypeParameters() []*GenericParameter { return c.typeParams }
func (c *compound) TypeArguments() []Type               { return c.typeArgs }
func (c *compound) Definition() Type                    { return c.definition }
func (c *compound) IsConstructed() bool                 { return c.definition != nil }

// memberSource resolves to the compound whose member lists apply: the open
// definition's for constructed types, the receiver's own otherwise.
func (c *compound) memberSource() *compound {
	if c.definition != nil {
		if d, ok := c.definition.(compounder); ok {
			dc := d.comp()
			dc.materialize()
			return dc
		}
	}
	c.materialize()
	return c
}

func (c *compound) materialize() {
	c.memOnce.Do(func() {
		for _, rm := range c.shell.raw.Members {
			m, err := c.shell.repo.MemberOf(rm)
			if err != nil {
				continue // defective record; direct requests still fail loudly
			}
			switch m := m.(type) {
			case *Constructor:
				c.ctors = append(c.ctors, m)
			case *Method:
				c.methods = append(c.methods, m)
			case *Operator:
				c.ops = append(c.ops, m)
			case *Property:
				c.props = append(c.props, m)
			case *Event:
				c.events = append(c.events, m)
			case *Field:
				c.fields = append(c.fields, m)
			}
		}
		for _, rn := range c.shell.raw.Nested {
			if n, err := c.shell.repo.TypeOf(rn); err == nil {
				c.nested = append(c.nested, n)
			}
		}
	})
}

func (c *compound) Constructors() []*Constructor { return c.memberSource().ctors }
func (c *compound) Methods() []*Method           { return c.memberSource().methods }
func (c *compound) Operators() []*Operator       { return c.memberSource().ops }
func (c *compound) Properties() []*Property      { return c.memberSource().props }
func (c *compound) Events() []*Event             { return c.memberSource().events }
func (c *compound) Fields() []*Field             { return c.memberSource().fields }
func (c *compound) Nested() []Type               { return c.memberSource().nested }

// Members returns every member across categories, constructors first, in
// declaration order within each category.
func (c *compound) Members() []Member {
	src := c.memberSource()
	out := make([]Member, 0,
		len(src.ctors)+len(src.methods)+len(src.ops)+len(src.props)+len(src.events)+len(src.fields))
	for _, m := range src.ctors {
		out = append(out, m)
	}
	for _, m := range src.methods {
		out = append(out, m)
	}
	for _, m := range src.ops {
		out = append(out, m)
	}
	for _, m := range src.props {
		out = append(out, m)
	}
	for _, m := range src.events {
		out = append(out, m)
	}
	for _, m := range src.fields {
		out = append(out, m)
	}
	return out
}

// allInterfaces is the transitive interface set of the type: direct
// interfaces, their extended interfaces, and everything inherited through
// the base chain, sorted by full name so explicit-implementation lookup can
// binary search it.
func (c *compound) allInterfaces() []Type {
	c.closureOnce.Do(func() {
		seen := make(map[string]bool)
		var visit func(t Type)
		visit = func(t Type) {
			ip, ok := t.(InterfaceProvider)
			if !ok {
				return
			}
			for _, iface := range ip.Interfaces() {
				if seen[iface.Signature()] {
					continue
				}
				seen[iface.Signature()] = true
				c.closure = append(c.closure, iface)
				visit(iface)
			}
		}
		var self Type = c.shell.repo.typeFor(c.shell.sig)
		for t := self; t != nil; t = baseOf(t) {
			visit(t)
		}
		sort.Slice(c.closure, func(i, j int) bool {
			return c.closure[i].FullName() < c.closure[j].FullName()
		})
	})
	return c.closure
}

// crefIndex is the type's members sorted by code reference, built once so
// reference resolution can binary search it the way explicit-implementation
// lookup searches the interface closure.
func (c *compound) crefIndex() []Member {
	src := c.memberSource()
	src.refOnce.Do(func() {
		src.refIdx = src.Members()
		sort.Slice(src.refIdx, func(i, j int) bool {
			return src.refIdx[i].Cref() < src.refIdx[j].Cref()
		})
	})
	return src.refIdx
}

// baseOf returns the base type of t, nil for variants without one or at the
// root of the chain.
func baseOf(t Type) Type {
	if c, ok := t.(compounder); ok {
		return c.comp().base
	}
	return nil
}

// Named type variants. Each pairs the shared identity shell with the
// member-bearing compound state.

type Primitive struct {
	typeShell
	compound
}

type Class struct {
	typeShell
	compound
}

type Struct struct {
	typeShell
	compound
}

type Interface struct {
	typeShell
	compound
}

type Enum struct {
	typeShell
	compound
	underlying Type
}

type Delegate struct {
	typeShell
	compound
}

func (t *Primitive) Kind() TypeKind { return descriptor.Primitive }
func (t *Class) Kind() TypeKind     { return descriptor.Class }
func (t *Struct) Kind() TypeKind    { return descriptor.Struct }
func (t *Interface) Kind() TypeKind { return descriptor.Interface }
func (t *Enum) Kind() TypeKind      { return descriptor.Enum }
func (t *Delegate) Kind() TypeKind  { return descriptor.Delegate }

// IsAbstract reports whether the class cannot be instantiated directly.
func (t *Class) IsAbstract() bool { return t.raw.Modifiers.Has(descriptor.Abstract) }

// IsSealed reports whether the class permits no further derivation.
func (t *Class) IsSealed() bool { return t.raw.Modifiers.Has(descriptor.Final) }

// IsStatic reports whether the class is static (abstract and sealed, no
// instances).
func (t *Class) IsStatic() bool { return t.raw.Modifiers.Has(descriptor.Static) }

// IsByRefLike reports whether the struct is stack-only.
func (t *Struct) IsByRefLike() bool { return t.raw.Modifiers.Has(descriptor.ByRefLike) }

// Underlying is the storage primitive of the enum.
func (t *Enum) Underlying() Type { return t.underlying }

// Invoke is the delegate's invocation signature, nil when the descriptor
// source omitted it.
func (t *Delegate) Invoke() *Method {
	for _, m := range t.Methods() {
		if m.Name() == "Invoke" {
			return m
		}
	}
	return nil
}

// ExtensionGroups are the normalized extension member views a static class
// contributes, computed once on first request.
func (t *Class) ExtensionGroups() []*ExtensionGroup {
	t.extOnce.Do(func() {
		t.extGroups = t.repo.normalizeExtensions(t)
	})
	return t.extGroups
}

// GenericParameter is a type parameter declared by a generic type or method.
// The back-reference to its declaring member is a lookup relation, not
// ownership.
type GenericParameter struct {
	typeShell
	position        int
	variance        Variance
	constraints     Constraint
	constraintTypes []Type
}

func (t *GenericParameter) Kind() TypeKind          { return descriptor.GenericParam }
func (t *GenericParameter) Position() int           { return t.position }
func (t *GenericParameter) Variance() Variance      { return t.variance }
func (t *GenericParameter) Constraints() Constraint { return t.constraints }
func (t *GenericParameter) ConstraintTypes() []Type { return t.constraintTypes }

// IsMethodParameter reports whether the parameter is declared by a generic
// method rather than a generic type.
func (t *GenericParameter) IsMethodParameter() bool { return t.raw.DeclaringMember != nil }

// DeclaringMember resolves the generic method that declared this parameter,
// nil for type-level parameters.
func (t *GenericParameter) DeclaringMember() Member {
	if t.raw.DeclaringMember == nil {
		return nil
	}
	m, err := t.repo.MemberOf(t.raw.DeclaringMember)
	if err != nil {
		return nil
	}
	return m
}

// Decorated wraps an element type with an array, pointer, byref or nullable
// decoration.
type Decorated struct {
	typeShell
	elem Type
}

func (t *Decorated) Kind() TypeKind { return t.raw.Kind }
func (t *Decorated) Element() Type  { return t.elem }

// fillType resolves the structural fields of a freshly allocated type shell.
// It runs inside one construction session; recursive requests for the type
// being filled resolve to the shell the session already holds, which is what
// terminates self-referential shapes such as C : IComparable<C>.
func (r *Repository) fillType(t Type, raw *descriptor.Type, s *buildSession) error {
	shell := shellOf(t)
	if raw.Declaring != nil {
		d, err := r.typeOf(raw.Declaring, s)
		if err != nil {
			return fmt.Errorf("declaring type of %s: %w", shell.fullName, err)
		}
		shell.declaring = d
	}
	attrs, err := r.attributesOf(raw.Attributes, s)
	if err != nil {
		return fmt.Errorf("attributes of %s: %w", shell.fullName, err)
	}
	shell.attrs = attrs

	switch v := t.(type) {
	case *GenericParameter:
		v.position = raw.Position
		v.variance = raw.Variance
		v.constraints = raw.Constraints
		for _, rc := range raw.ConstraintTypes {
			ct, err := r.typeOf(rc, s)
			if err != nil {
				return fmt.Errorf("constraint of %s: %w", raw.Name, err)
			}
			v.constraintTypes = append(v.constraintTypes, ct)
		}
	case *Decorated:
		elem, err := r.typeOf(raw.Element, s)
		if err != nil {
			return fmt.Errorf("element of %s: %w", shell.sig, err)
		}
		v.elem = elem
	case *Enum:
		if err := r.fillCompound(&v.compound, raw, s); err != nil {
			return err
		}
		if raw.Underlying != nil {
			u, err := r.typeOf(raw.Underlying, s)
			if err != nil {
				return fmt.Errorf("underlying type of %s: %w", shell.fullName, err)
			}
			v.underlying = u
		}
	case compounder:
		if err := r.fillCompound(v.comp(), raw, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) fillCompound(c *compound, raw *descriptor.Type, s *buildSession) error {
	name := c.shell.fullName
	if raw.BaseType != nil {
		b, err := r.typeOf(raw.BaseType, s)
		if err != nil {
			return fmt.Errorf("base type of %s: %w", name, err)
		}
		c.base = b
	}
	for _, ri := range raw.Interfaces {
		iface, err := r.typeOf(ri, s)
		if err != nil {
			return fmt.Errorf("interface of %s: %w", name, err)
		}
		c.interfaces = append(c.interfaces, iface)
	}
	for _, rp := range raw.Parameters {
		p, err := r.typeOf(rp, s)
		if err != nil {
			return fmt.Errorf("type parameter of %s: %w", name, err)
		}
		gp, ok := p.(*GenericParameter)
		if !ok {
			return fmt.Errorf("type parameter of %s: %w: %s is not a generic parameter", name, ErrInvalidArgument, p.FullName())
		}
		c.typeParams = append(c.typeParams, gp)
	}
	if raw.Definition != nil {
		def, err := r.typeOf(raw.Definition, s)
		if err != nil {
			return fmt.Errorf("definition of %s: %w", name, err)
		}
		c.definition = def
		for _, ra := range raw.Arguments {
			a, err := r.typeOf(ra, s)
			if err != nil {
				return fmt.Errorf("type argument of %s: %w", name, err)
			}
			c.typeArgs = append(c.typeArgs, a)
		}
	}
	return nil
}

// shellOf extracts the identity shell of any variant.
func shellOf(t Type) *typeShell {
	switch v := t.(type) {
	case *Primitive:
		return &v.typeShell
	case *Class:
		return &v.typeShell
	case *Struct:
		return &v.typeShell
	case *Interface:
		return &v.typeShell
	case *Enum:
		return &v.typeShell
	case *Delegate:
		return &v.typeShell
	case *GenericParameter:
		return &v.typeShell
	case *Decorated:
		return &v.typeShell
	default:
		return nil
	}
}
