package metakit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kampute/metakit/descriptor"
)

// Code references follow the documentation-ID convention: a one-letter
// category tag, the declaring chain with numeric arity suffixes, the member
// name with dots and angle brackets escaped, and parenthesized parameter
// type IDs. They are stable across repositories built from equivalent
// descriptor sets, which makes them the natural join key for external
// documentation stores.

// buildCref renders the code reference of a raw member record.
func buildCref(raw *descriptor.Member) string {
	var sb strings.Builder
	sb.WriteString(kindTag(raw.Kind))
	sb.WriteByte(':')
	sb.WriteString(typeFullName(raw.Declaring))
	sb.WriteByte('.')

	switch {
	case raw.Kind == descriptor.Constructor && raw.Modifiers.Has(descriptor.Static):
		sb.WriteString("#cctor")
	case raw.Kind == descriptor.Constructor:
		sb.WriteString("#ctor")
	default:
		sb.WriteString(escapeCrefName(raw.Name))
	}
	if n := len(raw.TypeParams); n > 0 {
		sb.WriteString("``")
		sb.WriteString(strconv.Itoa(n))
	}

	if len(raw.Params) > 0 {
		sb.WriteByte('(')
		for i, p := range raw.Params {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCrefType(&sb, p.Type)
			if p.RefKind != descriptor.ByValue && (p.Type == nil || p.Type.Kind != descriptor.ByRef) {
				sb.WriteByte('@')
			}
		}
		sb.WriteByte(')')
	}

	// Conversion operators are distinguished by their return type alone.
	if raw.Kind == descriptor.Operator && isConversionOperator(raw.Name) && raw.Result != nil {
		sb.WriteByte('~')
		writeCrefType(&sb, raw.Result)
	}
	return sb.String()
}

func isConversionOperator(name string) bool {
	return name == "op_Implicit" || name == "op_Explicit"
}

// escapeCrefName escapes a member name for use inside a code reference.
// Explicit interface implementation names carry dots and angle brackets,
// which collide with the reference's own separators.
func escapeCrefName(name string) string {
	if !strings.ContainsAny(name, ".<>,") {
		return name
	}
	var sb strings.Builder
	sb.Grow(len(name))
	for _, c := range name {
		switch c {
		case '.':
			sb.WriteByte('#')
		case '<':
			sb.WriteByte('{')
		case '>':
			sb.WriteByte('}')
		case ',':
			sb.WriteByte('@')
		default:
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// writeCrefType renders the documentation ID of a type in parameter
// position: positional backtick forms for generic parameters, suffix forms
// for decorations, braces for constructed generics.
func writeCrefType(sb *strings.Builder, raw *descriptor.Type) {
	raw = canonicalize(raw)
	switch {
	case raw == nil:
		return
	case raw.Kind == descriptor.GenericParam:
		if raw.DeclaringMember != nil {
			sb.WriteString("``")
		} else {
			sb.WriteByte('`')
		}
		sb.WriteString(strconv.Itoa(raw.Position))
	case raw.Kind == descriptor.Array:
		writeCrefType(sb, raw.Element)
		sb.WriteString("[]")
	case raw.Kind == descriptor.Pointer:
		writeCrefType(sb, raw.Element)
		sb.WriteByte('*')
	case raw.Kind == descriptor.ByRef:
		writeCrefType(sb, raw.Element)
		sb.WriteByte('@')
	case raw.Kind == descriptor.Nullable:
		sb.WriteString("System.Nullable{")
		writeCrefType(sb, raw.Element)
		sb.WriteByte('}')
	case raw.Definition != nil:
		sb.WriteString(bareFullName(raw.Definition))
		sb.WriteByte('{')
		for i, arg := range raw.Arguments {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCrefType(sb, arg)
		}
		sb.WriteByte('}')
	default:
		sb.WriteString(typeFullName(raw))
	}
}

// bareFullName is the declaring chain without arity suffixes, the form
// constructed generics take inside code references.
func bareFullName(raw *descriptor.Type) string {
	if raw == nil {
		return ""
	}
	if raw.Definition != nil {
		return bareFullName(raw.Definition)
	}
	if raw.Declaring != nil {
		return bareFullName(raw.Declaring) + "." + raw.Name
	}
	if raw.Namespace != "" {
		return raw.Namespace + "." + raw.Name
	}
	return raw.Name
}

// TypeByCref resolves a "T:" code reference against the repository's scope.
// A malformed reference fails with ErrInvalidArgument; an unknown but
// well-formed one resolves to nil without error.
func (r *Repository) TypeByCref(cref string) (Type, error) {
	tag, rest, err := splitCref(cref)
	if err != nil {
		return nil, err
	}
	if tag != 'T' {
		return nil, fmt.Errorf("%w: %q does not reference a type", ErrInvalidArgument, cref)
	}
	t, ok := r.TypeByName(rest)
	if !ok {
		return nil, nil
	}
	return t, nil
}

// MemberByCref resolves a member code reference against the repository's
// scope. The declaring type is located by name, then its member index, kept
// sorted by code reference, is binary searched for an exact match. A
// malformed reference fails with ErrInvalidArgument; an unknown but
// well-formed one resolves to nil without error.
//
// References resolve in definition form only: a member view declared on a
// constructed generic type renders its reference with substituted arguments,
// which no declaration carries. FindGenericDefinition maps such a view to
// the open definition's member, whose reference does round-trip.
func (r *Repository) MemberByCref(cref string) (Member, error) {
	tag, rest, err := splitCref(cref)
	if err != nil {
		return nil, err
	}
	switch tag {
	case 'M', 'P', 'E', 'F':
	default:
		return nil, fmt.Errorf("%w: %q does not reference a member", ErrInvalidArgument, cref)
	}

	typeName, ok := crefDeclaringName(rest)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no declaring type", ErrInvalidArgument, cref)
	}
	t, found := r.TypeByName(typeName)
	if !found {
		return nil, nil
	}
	c, ok := t.(compounder)
	if !ok {
		return nil, nil
	}
	idx := c.comp().crefIndex()
	i := sort.Search(len(idx), func(i int) bool { return idx[i].Cref() >= cref })
	if i < len(idx) && idx[i].Cref() == cref {
		return idx[i], nil
	}
	return nil, nil
}

func splitCref(cref string) (tag byte, rest string, err error) {
	if len(cref) < 3 || cref[1] != ':' {
		return 0, "", fmt.Errorf("%w: malformed code reference %q", ErrInvalidArgument, cref)
	}
	return cref[0], cref[2:], nil
}

// crefDeclaringName extracts the declaring type's full name from the body of
// a member reference: the parameter list and conversion suffix are dropped,
// then the name splits at the last dot outside braces. Escaped dots in the
// member name are hash signs at this point, so they never split.
func crefDeclaringName(rest string) (string, bool) {
	if i := strings.IndexByte(rest, '('); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '~'); i >= 0 {
		rest = rest[:i]
	}
	depth, cut := 0, -1
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '.':
			if depth == 0 {
				cut = i
			}
		}
	}
	if cut <= 0 {
		return "", false
	}
	return rest[:cut], true
}
