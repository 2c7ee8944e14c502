package metakit

import (
	"sort"
	"strconv"
	"strings"

	"github.com/kampute/metakit/descriptor"
)

// FindOverriddenMember walks the base-type chain of the member's declaring
// type, canonicalizing each hop, and at each level searches same-named,
// non-private, non-sealed candidates of the same category whose signature is
// satisfied by the member's. The closest base level with any match wins and
// the search stops there. A nil result is a valid terminal state: the member
// introduces its own slot.
func (r *Repository) FindOverriddenMember(m Member) Member {
	if m == nil || m.IsStatic() {
		return nil
	}
	decl := m.Declaring()
	if decl == nil || decl.Kind() == descriptor.Interface {
		return nil
	}
	for b := baseOf(decl); b != nil; b = baseOf(b) {
		var found Member
		for _, cand := range sameKindMembers(b, m.Kind()) {
			if cand.Name() != m.Name() {
				continue
			}
			if cand.Visibility() == descriptor.Private {
				continue
			}
			if sealedMember(cand) {
				continue
			}
			if r.signatureMatches(cand, m) {
				found = cand
				break
			}
		}
		if found != nil {
			return found
		}
	}
	return nil
}

// sealedMember reports whether a member closes its dispatch slot: a sealed
// override cannot be overridden further.
func sealedMember(m Member) bool {
	shell := memberShellOf(m)
	return shell != nil && shell.raw.Modifiers.Has(descriptor.Final)
}

// FindImplementedMember locates the interface member a member implements.
// For public members it searches all implemented interfaces breadth-first
// and the first structural match wins. A member whose name carries an
// interface-qualifying prefix is an explicit interface implementation: the
// name is parsed into (interface, member), accounting for generic arity
// encoded in the qualifier, and the interface is located by exact full name
// with a binary search over the declaring type's pre-sorted interface
// closure. A nil result is a valid terminal state.
func (r *Repository) FindImplementedMember(m Member) Member {
	if m == nil {
		return nil
	}
	decl := m.Declaring()
	if decl == nil || decl.Kind() == descriptor.Interface {
		return nil
	}
	c, ok := decl.(compounder)
	if !ok {
		return nil
	}
	if ifaceName, memberName, explicit := splitExplicitName(m.Name()); explicit {
		return r.findExplicitImplemented(c, m, ifaceName, memberName)
	}
	if m.Visibility() != descriptor.Public {
		return nil
	}
	// Breadth-first over the interface graph: direct interfaces before the
	// interfaces they extend.
	seen := make(map[string]bool)
	queue := append([]Type(nil), c.comp().interfaces...)
	if b := baseOf(decl); b != nil {
		// Inherited interfaces participate at the same tier as direct ones
		// once the direct tier is exhausted.
		for t := b; t != nil; t = baseOf(t) {
			if bc, ok := t.(compounder); ok {
				queue = append(queue, bc.comp().interfaces...)
			}
		}
	}
	for len(queue) > 0 {
		iface := queue[0]
		queue = queue[1:]
		if seen[iface.Signature()] {
			continue
		}
		seen[iface.Signature()] = true
		for _, cand := range sameKindMembers(iface, m.Kind()) {
			if cand.Name() != m.Name() {
				continue
			}
			if r.signatureMatches(cand, m) {
				return cand
			}
		}
		if ic, ok := iface.(compounder); ok {
			queue = append(queue, ic.comp().interfaces...)
		}
	}
	return nil
}

func (r *Repository) findExplicitImplemented(decl compounder, m Member, ifaceName, memberName string) Member {
	closure := decl.comp().allInterfaces()
	i := sort.Search(len(closure), func(i int) bool {
		return closure[i].FullName() >= ifaceName
	})
	// Several constructions of one definition share a full name; scan the
	// equal-name run for the first signature match.
	for ; i < len(closure) && closure[i].FullName() == ifaceName; i++ {
		for _, cand := range sameKindMembers(closure[i], m.Kind()) {
			if cand.Name() != memberName {
				continue
			}
			if r.signatureMatches(cand, m) {
				return cand
			}
		}
	}
	return nil
}

// splitExplicitName splits an explicitly implemented member's qualified name
// into the interface's full name (generic qualifiers rewritten to numeric
// arity) and the bare member name. Reports false for ordinary names.
func splitExplicitName(name string) (ifaceName, memberName string, ok bool) {
	dot := -1
	depth := 0
	for i, ch := range name {
		switch ch {
		case '<':
			depth++
		case '>':
			depth--
		case '.':
			if depth == 0 {
				dot = i
			}
		}
	}
	if dot <= 0 || dot == len(name)-1 {
		return "", "", false
	}
	return encodeArity(name[:dot]), name[dot+1:], true
}

// encodeArity rewrites every angle-bracketed generic qualifier in a type
// name to its numeric arity form: "Ns.IFoo<T,U>" becomes "Ns.IFoo`2".
func encodeArity(name string) string {
	var sb strings.Builder
	depth := 0
	args := 0
	for _, ch := range name {
		switch ch {
		case '<':
			depth++
			if depth == 1 {
				args = 1
			}
		case '>':
			depth--
			if depth == 0 {
				sb.WriteByte('`')
				sb.WriteString(strconv.Itoa(args))
			}
		case ',':
			if depth == 1 {
				args++
			}
			if depth == 0 {
				sb.WriteRune(ch)
			}
		default:
			if depth == 0 {
				sb.WriteRune(ch)
			}
		}
	}
	return sb.String()
}

// FindGenericDefinition locates, for a member declared on a constructed
// generic type, the structurally matching member on the open definition. Nil
// when the declaring type is not constructed or no counterpart matches.
func (r *Repository) FindGenericDefinition(m Member) Member {
	if m == nil {
		return nil
	}
	g, ok := m.Declaring().(GenericType)
	if !ok || !g.IsConstructed() {
		return nil
	}
	def := g.Definition()
	for _, cand := range sameKindMembers(def, m.Kind()) {
		if cand.Name() != m.Name() {
			continue
		}
		if r.signatureMatches(cand, m) {
			return cand
		}
	}
	return nil
}

// sameKindMembers returns a type's members of one category, in declaration
// order.
func sameKindMembers(t Type, kind MemberKind) []Member {
	c, ok := t.(compounder)
	if !ok {
		return nil
	}
	src := c.comp().memberSource()
	var out []Member
	switch kind {
	case descriptor.Constructor:
		for _, m := range src.ctors {
			out = append(out, m)
		}
	case descriptor.Method:
		for _, m := range src.methods {
			out = append(out, m)
		}
	case descriptor.Operator:
		for _, m := range src.ops {
			out = append(out, m)
		}
	case descriptor.Property:
		for _, m := range src.props {
			out = append(out, m)
		}
	case descriptor.Event:
		for _, m := range src.events {
			out = append(out, m)
		}
	case descriptor.Field:
		for _, m := range src.fields {
			out = append(out, m)
		}
	}
	return out
}
