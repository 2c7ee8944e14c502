package metakit

import "github.com/kampute/metakit/descriptor"

// IsValidSubstitution reports whether arg is a legal type argument for the
// generic parameter param under its declared constraints. Adding a
// constraint can only narrow, never widen, the set of legal arguments.
func (r *Repository) IsValidSubstitution(param *GenericParameter, arg Type) bool {
	if param == nil || arg == nil {
		return false
	}
	return r.validSubstitution(param, arg, make(map[string]struct{}))
}

func (r *Repository) validSubstitution(param *GenericParameter, arg Type, seen map[string]struct{}) bool {
	c := param.Constraints()
	if c.Has(descriptor.ReferenceType) && !isReferenceType(arg) {
		return false
	}
	if c.Has(descriptor.NotNullableValueType) && !isNonNullableValueType(arg) {
		return false
	}
	if isByRefLike(arg) && !c.Has(descriptor.AllowByRefLike) {
		return false
	}
	if c.Has(descriptor.DefaultConstructor) && !hasDefaultConstructor(arg) {
		return false
	}
	for _, ct := range param.ConstraintTypes() {
		if !r.assignable(r.substituted(ct, param, arg), arg, seen) {
			return false
		}
	}
	return true
}

// substituted closes a constraint shape over the candidate argument:
// occurrences of the checked parameter inside the constraint are rewritten
// to the argument before assignability runs, which is what lets a
// self-referential bound like IComparable<T> accept C : IComparable<C>.
func (r *Repository) substituted(ct Type, param *GenericParameter, arg Type) Type {
	ctShell, argShell := shellOf(ct), shellOf(arg)
	if ctShell == nil || argShell == nil {
		return ct
	}
	raw := substituteRaw(ctShell.raw, param.Signature(), argShell.raw)
	if raw == ctShell.raw {
		return ct
	}
	t, err := r.TypeOf(raw)
	if err != nil {
		return ct
	}
	return t
}

// substituteRaw rewrites occurrences of the parameter (identified by its
// positional signature) inside a raw constraint shape, sharing unchanged
// subtrees.
func substituteRaw(raw *descriptor.Type, paramSig string, argRaw *descriptor.Type) *descriptor.Type {
	if raw == nil {
		return nil
	}
	if raw.Kind == descriptor.GenericParam && typeSignature(raw) == paramSig {
		return argRaw
	}
	switch {
	case raw.Kind.IsDecoration():
		elem := substituteRaw(raw.Element, paramSig, argRaw)
		if elem == raw.Element {
			return raw
		}
		clone := *raw
		clone.Element = elem
		return &clone
	case raw.Definition != nil:
		changed := false
		args := make([]*descriptor.Type, len(raw.Arguments))
		for i, a := range raw.Arguments {
			args[i] = substituteRaw(a, paramSig, argRaw)
			if args[i] != a {
				changed = true
			}
		}
		if !changed {
			return raw
		}
		clone := *raw
		clone.Arguments = args
		return &clone
	}
	return raw
}

// IsAssignableFrom reports whether a value of type source can stand where
// target is expected. Identical signatures are always assignable; otherwise
// assignability flows along base-type and interface edges, and between two
// constructions of the same open generic definition it is decided per
// parameter by declared variance: a covariant position requires the target
// argument to be assignable from the source argument, a contravariant
// position the reverse, and an invariant position exact equality. Positions
// are evaluated in declaration order with short-circuit AND.
func (r *Repository) IsAssignableFrom(target, source Type) bool {
	if target == nil || source == nil {
		return false
	}
	return r.assignable(target, source, make(map[string]struct{}))
}

// assignable carries a visited set keyed by the (target, source) pair. A
// pair seen again is a self-referential shape (a generic parameter checking
// its own accepts relation against itself during base-declaration discovery)
// and terminates as satisfied rather than recursing forever.
func (r *Repository) assignable(target, source Type, seen map[string]struct{}) bool {
	if target == nil || source == nil {
		return false
	}
	if target.Signature() == source.Signature() {
		return true
	}
	key := target.Signature() + "\x00" + source.Signature()
	if _, ok := seen[key]; ok {
		return true
	}
	seen[key] = struct{}{}

	if r.varianceAssignable(target, source, seen) {
		return true
	}
	for _, super := range supertypesOf(source) {
		if r.assignable(target, super, seen) {
			return true
		}
	}
	return false
}

// varianceAssignable compares two constructions of the same open generic
// definition argument by argument under the definition's declared variance.
func (r *Repository) varianceAssignable(target, source Type, seen map[string]struct{}) bool {
	tg, ok := target.(GenericType)
	if !ok || !tg.IsConstructed() {
		return false
	}
	sg, ok := source.(GenericType)
	if !ok || !sg.IsConstructed() {
		return false
	}
	if tg.Definition() != sg.Definition() {
		return false
	}
	def, ok := tg.Definition().(GenericType)
	if !ok {
		return false
	}
	params := def.TypeParameters()
	ta, sa := tg.TypeArguments(), sg.TypeArguments()
	if len(ta) != len(params) || len(sa) != len(params) {
		return false
	}
	for i, p := range params {
		switch p.Variance() {
		case descriptor.Covariant:
			if !r.assignable(ta[i], sa[i], seen) {
				return false
			}
		case descriptor.Contravariant:
			if !r.assignable(sa[i], ta[i], seen) {
				return false
			}
		default:
			if ta[i].Signature() != sa[i].Signature() {
				return false
			}
		}
	}
	return true
}

// supertypesOf lists the direct widening edges of a type: its base type, its
// direct interfaces and, for a generic parameter, its type constraints.
func supertypesOf(t Type) []Type {
	var out []Type
	if b := baseOf(t); b != nil {
		out = append(out, b)
	}
	if ip, ok := t.(InterfaceProvider); ok {
		out = append(out, ip.Interfaces()...)
	}
	if gp, ok := t.(*GenericParameter); ok {
		out = append(out, gp.ConstraintTypes()...)
	}
	return out
}

// isReferenceType reports whether t is a reference type. A generic parameter
// counts only when its own constraints force a reference type.
func isReferenceType(t Type) bool {
	switch v := t.(type) {
	case *Class, *Interface, *Delegate:
		return true
	case *Decorated:
		return v.Kind() == descriptor.Array
	case *GenericParameter:
		return v.Constraints().Has(descriptor.ReferenceType)
	default:
		return false
	}
}

// isNonNullableValueType reports whether t is a value type other than a
// nullable wrapper.
func isNonNullableValueType(t Type) bool {
	switch v := t.(type) {
	case *Primitive, *Struct, *Enum:
		return true
	case *GenericParameter:
		return v.Constraints().Has(descriptor.NotNullableValueType)
	default:
		return false
	}
}

func isValueType(t Type) bool {
	switch v := t.(type) {
	case *Primitive, *Struct, *Enum:
		return true
	case *Decorated:
		return v.Kind() == descriptor.Nullable
	case *GenericParameter:
		return v.Constraints().Has(descriptor.NotNullableValueType)
	default:
		return false
	}
}

func isByRefLike(t Type) bool {
	s, ok := t.(*Struct)
	return ok && s.IsByRefLike()
}

// hasDefaultConstructor implements the default-constructor constraint. Value
// types always satisfy it; a generic parameter satisfies it when it carries
// the same constraint itself. A class must be non-abstract, declare a public
// parameterless constructor, and (the easily missed part) sit under a
// declaring chain with no non-public and no abstract enclosing type;
// otherwise the constructor is not reachable and the type is treated as
// constructor-less.
func hasDefaultConstructor(t Type) bool {
	if isValueType(t) {
		return true
	}
	if gp, ok := t.(*GenericParameter); ok {
		return gp.Constraints().Has(descriptor.DefaultConstructor)
	}
	cls, ok := t.(*Class)
	if !ok {
		return false
	}
	if cls.IsAbstract() {
		return false
	}
	for d := cls.Declaring(); d != nil; d = d.Declaring() {
		if d.Visibility() != descriptor.Public {
			return false
		}
		if enc, ok := d.(*Class); ok && enc.IsAbstract() {
			return false
		}
	}
	for _, ctor := range cls.Constructors() {
		if ctor.IsStatic() {
			continue
		}
		if len(ctor.Parameters()) == 0 {
			return ctor.Visibility() == descriptor.Public
		}
	}
	return false
}
