package metakit

import "github.com/kampute/metakit/descriptor"

// Public type aliases for descriptor enums used throughout the model API.
// These are Go type aliases (=), identical to the descriptor types at
// compile time, so values created by a descriptor source flow through the
// engine without conversion.

type TypeKind = descriptor.TypeKind
type MemberKind = descriptor.MemberKind
type Visibility = descriptor.Visibility
type Variance = descriptor.Variance
type RefKind = descriptor.RefKind
type Constraint = descriptor.Constraint
type Modifier = descriptor.Modifier

// Virtuality classifies a member's participation in dynamic dispatch. It is
// computed once per member from the raw modifier flags plus whether an
// overridden member was actually found.
type Virtuality uint8

const (
	NotVirtual Virtuality = iota
	Virtual
	Abstract
	Override
	SealedOverride
)

func (v Virtuality) String() string {
	switch v {
	case Virtual:
		return "virtual"
	case Abstract:
		return "abstract"
	case Override:
		return "override"
	case SealedOverride:
		return "sealed override"
	default:
		return "none"
	}
}

// Type is the engine's canonical view of a type descriptor. At most one Type
// exists per canonicalized descriptor within one repository, so Types compare
// correctly by ==.
//
// The concrete variants are Primitive, Class, Struct, Interface, Enum,
// Delegate, GenericParameter and Decorated; consumers switch on them (or on
// Kind) exhaustively.
type Type interface {
	Kind() TypeKind
	Name() string
	Namespace() string
	// FullName is the namespace-qualified declaring chain with numeric
	// generic arity suffixes (for example "System.Collections.Generic.List`1").
	FullName() string
	// Signature is the canonical identity string, including generic
	// arguments. Two Types are the same logical type iff their signatures
	// are equal; within one repository that implies pointer equality.
	Signature() string
	Assembly() *descriptor.Assembly
	Declaring() Type // enclosing type, nil when top-level
	Visibility() Visibility
	Attributes() []*Attribute

	isType()
}

// Member is the engine's canonical view of a member descriptor. The concrete
// variants are Constructor, Method, Operator, Property, Event and Field.
//
// Result is the return type of a method or operator, the value type of a
// property or field, or the handler type of an event; nil means void.
// Parameters never include the return/value slot.
type Member interface {
	Kind() MemberKind
	Name() string
	Declaring() Type
	Visibility() Visibility
	IsStatic() bool
	IsCompilerGenerated() bool
	Parameters() []*Parameter
	Result() Type
	// Cref is the unique code-reference string of the member, usable as a
	// cache key and resolvable back through Repository.MemberByCref.
	Cref() string

	isMember()
}

// VirtualMember is implemented by member variants that participate in
// dynamic dispatch: Method, Operator, Property and Event.
type VirtualMember interface {
	Member
	Virtuality() Virtuality
	// Overridden is the closest base-chain member this member overrides,
	// nil when none. Absence is a valid terminal state, not an error.
	Overridden() Member
	// Implemented is the interface member this member implements, nil when
	// none.
	Implemented() Member
}

// ConstructorProvider is implemented by type variants that can declare
// constructors (Class and Struct).
type ConstructorProvider interface {
	Type
	Constructors() []*Constructor
}

// InterfaceProvider is implemented by type variants that can implement or
// extend interfaces.
type InterfaceProvider interface {
	Type
	Interfaces() []Type
}

// GenericType is implemented by type variants that can declare or bind
// generic parameters (Class, Struct, Interface and Delegate).
type GenericType interface {
	Type
	TypeParameters() []*GenericParameter
	TypeArguments() []Type
	// Definition is the open generic definition of a constructed type, nil
	// for open definitions and non-generic types.
	Definition() Type
	IsConstructed() bool
}

// MemberProvider is implemented by type variants that carry member lists.
// A constructed generic type reports its open definition's members.
type MemberProvider interface {
	Type
	Members() []Member
	Methods() []*Method
	Operators() []*Operator
	Properties() []*Property
	Events() []*Event
	Fields() []*Field
}
