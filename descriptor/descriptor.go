// Package descriptor defines the raw structural model a descriptor source
// hands to the metakit engine: plain data records mirroring the compiled
// program's declared structure. The engine never mutates these records; it
// builds its own canonical, queryable objects on top of them.
//
// A source is free to materialize the same logical element as several
// distinct records (for example a generic type reached both by direct lookup
// and through an inheritance edge). The engine's canonicalizer and identity
// repository collapse such duplicates; descriptor records themselves carry
// no identity guarantees beyond what their fields state.
package descriptor

// ResultPosition is the reserved parameter position for the return or value
// slot of a member. Regular parameters are numbered from zero.
const ResultPosition = -1

// TypeKind classifies a Type record.
type TypeKind uint8

const (
	InvalidType TypeKind = iota
	Primitive            // built-in value type (bool, numeric, char)
	Class
	Struct
	Interface
	Enum
	Delegate
	GenericParam
	Array
	Pointer
	ByRef
	Nullable
)

// IsDecoration reports whether the kind wraps an element type rather than
// naming a declaration.
func (k TypeKind) IsDecoration() bool {
	return k == Array || k == Pointer || k == ByRef || k == Nullable
}

func (k TypeKind) String() string {
	switch k {
	case Primitive:
		return "primitive"
	case Class:
		return "class"
	case Struct:
		return "struct"
	case Interface:
		return "interface"
	case Enum:
		return "enum"
	case Delegate:
		return "delegate"
	case GenericParam:
		return "type parameter"
	case Array:
		return "array"
	case Pointer:
		return "pointer"
	case ByRef:
		return "byref"
	case Nullable:
		return "nullable"
	default:
		return "invalid"
	}
}

// MemberKind classifies a Member record.
type MemberKind uint8

const (
	InvalidMember MemberKind = iota
	Constructor
	Method
	Operator
	Property
	Event
	Field
)

func (k MemberKind) String() string {
	switch k {
	case Constructor:
		return "constructor"
	case Method:
		return "method"
	case Operator:
		return "operator"
	case Property:
		return "property"
	case Event:
		return "event"
	case Field:
		return "field"
	default:
		return "invalid"
	}
}

// Visibility is the declared accessibility of a type or member.
type Visibility uint8

const (
	VisibilityUnknown Visibility = iota
	Public
	ProtectedInternal
	Protected
	Internal
	PrivateProtected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case ProtectedInternal:
		return "protected internal"
	case Protected:
		return "protected"
	case Internal:
		return "internal"
	case PrivateProtected:
		return "private protected"
	case Private:
		return "private"
	default:
		return "unknown"
	}
}

// Variance is the declared variance of a generic parameter.
type Variance uint8

const (
	Invariant Variance = iota
	Covariant
	Contravariant
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "covariant"
	case Contravariant:
		return "contravariant"
	default:
		return "invariant"
	}
}

// RefKind is how a parameter is passed.
type RefKind uint8

const (
	ByValue RefKind = iota
	InRef
	OutRef
	Ref
)

func (k RefKind) String() string {
	switch k {
	case InRef:
		return "in"
	case OutRef:
		return "out"
	case Ref:
		return "ref"
	default:
		return "byvalue"
	}
}

// Constraint is a bit set of generic parameter constraint flags.
type Constraint uint8

const (
	// ReferenceType requires the argument to be a reference type.
	ReferenceType Constraint = 1 << iota
	// NotNullableValueType requires a value type that is not Nullable.
	NotNullableValueType
	// DefaultConstructor requires a reachable public parameterless
	// constructor. Value types always satisfy it.
	DefaultConstructor
	// AllowByRefLike permits stack-only arguments.
	AllowByRefLike
)

// Has reports whether all flags in f are set.
func (c Constraint) Has(f Constraint) bool { return c&f == f }

// Modifier is a bit set of structural flags shared by types and members.
type Modifier uint16

const (
	Static Modifier = 1 << iota
	Abstract
	Virtual
	Final
	ByRefLike         // stack-only type
	CompilerGenerated // synthesized by the compiler
	ExtensionMethod   // static method marked as a classic extension method
)

// Has reports whether all flags in f are set.
func (m Modifier) Has(f Modifier) bool { return m&f == f }

// Assembly is the unit of program scope. A repository accepts descriptors
// only from assemblies it was created with.
type Assembly struct {
	Name    string
	Version string
	Types   []*Type // top-level types; nested types hang off their declarer
}

// Type is the raw record for any type shape: named declarations, generic
// parameters, constructed generics and decorations. Which fields are
// meaningful depends on Kind.
type Type struct {
	Kind       TypeKind
	Name       string // simple name, no arity suffix
	Namespace  string
	Assembly   *Assembly
	Declaring  *Type // enclosing type, nil when top-level
	Visibility Visibility
	Modifiers  Modifier

	BaseType   *Type
	Interfaces []*Type
	Members    []*Member
	Nested     []*Type
	Attributes []*Attribute

	// Underlying is the storage primitive of an enum.
	Underlying *Type

	// Parameters are the generic parameters declared by an open definition,
	// each with Kind == GenericParam.
	Parameters []*Type

	// Definition and Arguments describe a constructed generic type: a
	// non-nil Definition marks the record as an instantiation of that open
	// definition with the given ordered arguments.
	Definition *Type
	Arguments  []*Type

	// Generic parameter fields (Kind == GenericParam).
	Position        int
	Variance        Variance
	Constraints     Constraint
	ConstraintTypes []*Type
	DeclaringMember *Member // non-nil for method type parameters

	// Element is the wrapped type of a decoration (Array, Pointer, ByRef,
	// Nullable).
	Element *Type

	// ExtensionBlocks are receiver-scoped member groups declared by a
	// static class.
	ExtensionBlocks []*ExtensionBlock
}

// Arity returns the number of generic parameters or arguments the type
// carries.
func (t *Type) Arity() int {
	if t.Definition != nil {
		return len(t.Arguments)
	}
	return len(t.Parameters)
}

// Member is the raw record for a type member.
type Member struct {
	Kind       MemberKind
	Name       string
	Declaring  *Type
	Visibility Visibility
	Modifiers  Modifier

	// Params are the declared parameters (indexer parameters for
	// properties). The return/value slot is carried by Result, not here.
	Params []*Param

	// Result is the return type of a method or operator, the value type of
	// a property or field, or the handler type of an event. Nil means void.
	Result *Type

	// TypeParams are generic parameters declared by a generic method, each
	// with Kind == GenericParam.
	TypeParams []*Type

	Attributes []*Attribute
}

// Param is the raw record for a parameter.
type Param struct {
	Name     string
	Position int // ResultPosition for the return/value slot
	Type     *Type
	RefKind  RefKind
	Optional bool
	Default  any
	Variadic bool // parameter array
}

// Attribute is a custom attribute application with typed arguments.
type Attribute struct {
	Type  *Type
	Args  []TypedValue
	Named []NamedValue
}

// TypedValue is a typed constant argument. Array arguments carry their
// elements recursively in Elements.
type TypedValue struct {
	Type     *Type
	Value    any
	Elements []TypedValue
}

// NamedValue is a named attribute argument targeting a property or field.
type NamedValue struct {
	Name    string
	Value   TypedValue
	IsField bool
}

// ExtensionBlock groups extension members declared against a shared
// receiver. Members are stubs whose parameter lists do not include the
// receiver; the implementing static methods live in the declaring type's
// ordinary member list.
type ExtensionBlock struct {
	Receiver   *Param
	TypeParams []*Type
	Members    []*Member
}
