package metakit

import (
	"strconv"
	"strings"

	"github.com/kampute/metakit/descriptor"
)

// Canonical signature strings are the engine's identity currency: the
// repository keys its caches on them, and Type.Signature exposes them.
// Generic parameters are encoded positionally ("`n" for type parameters,
// "``n" for method parameters) so the same logical shape reached through
// different navigation paths always renders identically.

// typeSignature builds the canonical signature of a raw type record,
// canonicalizing at every level of the shape.
func typeSignature(raw *descriptor.Type) string {
	var sb strings.Builder
	writeTypeSignature(&sb, raw)
	return sb.String()
}

func writeTypeSignature(sb *strings.Builder, raw *descriptor.Type) {
	raw = canonicalize(raw)
	switch {
	case raw == nil:
		sb.WriteString("<nil>")
	case raw.Kind == descriptor.GenericParam:
		if raw.DeclaringMember != nil {
			sb.WriteString("``")
		} else {
			sb.WriteByte('`')
		}
		sb.WriteString(strconv.Itoa(raw.Position))
	case raw.Kind.IsDecoration():
		writeTypeSignature(sb, raw.Element)
		switch raw.Kind {
		case descriptor.Array:
			sb.WriteString("[]")
		case descriptor.Pointer:
			sb.WriteByte('*')
		case descriptor.ByRef:
			sb.WriteByte('@')
		case descriptor.Nullable:
			sb.WriteByte('?')
		}
	case raw.Definition != nil:
		writeTypeSignature(sb, raw.Definition)
		sb.WriteByte('{')
		for i, arg := range raw.Arguments {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeTypeSignature(sb, arg)
		}
		sb.WriteByte('}')
	default:
		sb.WriteString(typeFullName(raw))
	}
}

// typeFullName renders the namespace-qualified declaring chain of a named
// type record, each generic link suffixed with its numeric arity. Generic
// parameters render as their bare name and decorations as their signature.
func typeFullName(raw *descriptor.Type) string {
	if raw == nil {
		return ""
	}
	if raw.Kind == descriptor.GenericParam {
		return raw.Name
	}
	if raw.Kind.IsDecoration() {
		return typeSignature(raw)
	}
	if raw.Definition != nil {
		return typeFullName(raw.Definition)
	}
	name := raw.Name
	if n := len(raw.Parameters); n > 0 {
		name += "`" + strconv.Itoa(n)
	}
	if raw.Declaring != nil {
		return typeFullName(raw.Declaring) + "." + name
	}
	if raw.Namespace != "" {
		return raw.Namespace + "." + name
	}
	return name
}

// memberKey builds the repository cache key for a raw member record. The key
// pairs the declaring type's canonical signature with an unescaped member
// signature, so the same member reached through duplicate type records lands
// on one cache entry.
func memberKey(raw *descriptor.Member) string {
	var sb strings.Builder
	sb.WriteString(kindTag(raw.Kind))
	sb.WriteByte(':')
	writeTypeSignature(&sb, raw.Declaring)
	sb.WriteString("::")
	sb.WriteString(raw.Name)
	if n := len(raw.TypeParams); n > 0 {
		sb.WriteString("``")
		sb.WriteString(strconv.Itoa(n))
	}
	sb.WriteByte('(')
	for i, p := range raw.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeTypeSignature(&sb, p.Type)
	}
	sb.WriteByte(')')
	if raw.Kind == descriptor.Operator && raw.Result != nil {
		sb.WriteByte('~')
		writeTypeSignature(&sb, raw.Result)
	}
	return sb.String()
}

// kindTag is the one-letter category tag shared by member keys and code
// references.
func kindTag(kind descriptor.MemberKind) string {
	switch kind {
	case descriptor.Constructor, descriptor.Method, descriptor.Operator:
		return "M"
	case descriptor.Property:
		return "P"
	case descriptor.Event:
		return "E"
	case descriptor.Field:
		return "F"
	default:
		return "?"
	}
}

// signatureMatches reports whether cand's signature satisfies base's, the
// asymmetric comparison override and implementation discovery rely on. The
// parameter lists must have equal length and, position-wise, equal reference
// kinds; a base parameter typed by a generic parameter is satisfied by any
// candidate type meeting that parameter's constraints, while a concrete base
// type demands an equal type. The return/value slot is compared the same
// way, except that on non-interface members it additionally permits
// covariant widening, which is what lets override relationships survive
// generic substitution and covariant returns.
func (r *Repository) signatureMatches(base, cand Member) bool {
	bp, cp := base.Parameters(), cand.Parameters()
	if len(bp) != len(cp) {
		return false
	}
	for i := range bp {
		if bp[i].RefKind() != cp[i].RefKind() {
			return false
		}
		if !r.satisfiableBy(bp[i].Type(), cp[i].Type(), false) {
			return false
		}
	}
	br, cr := base.Result(), cand.Result()
	if br == nil || cr == nil {
		return br == nil && cr == nil
	}
	widening := base.Declaring() != nil && base.Declaring().Kind() != descriptor.Interface
	return r.satisfiableBy(br, cr, widening)
}

// satisfiableBy reports whether a candidate type satisfies a base slot type.
// A generic parameter accepts anything meeting its constraints; a concrete
// type accepts only an equal type, or, when widening is permitted for a
// return/value slot, a type assignable to it.
func (r *Repository) satisfiableBy(base, cand Type, widening bool) bool {
	if base == nil || cand == nil {
		return base == cand
	}
	if gp, ok := base.(*GenericParameter); ok {
		return r.IsValidSubstitution(gp, cand)
	}
	if base.Signature() == cand.Signature() {
		return true
	}
	if widening {
		return r.IsAssignableFrom(base, cand)
	}
	return false
}
