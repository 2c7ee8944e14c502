package metakit

import "github.com/kampute/metakit/descriptor"

// canonicalize rewrites a constructed generic shape to its open definition
// when every supplied argument is itself the matching parameter of the same
// definition: same position, same arity, declared within the same
// declaring-name chain. Assembly and module identity are deliberately
// ignored, because the same logical shape reached through an inheritance or
// interface edge may be materialized against a different module's records.
//
// Arguments that are constructed types merely containing parameters are left
// unchanged. The rewrite is idempotent: an open definition has no Definition
// link and passes through untouched.
//
// canonicalize runs before every identity-cache lookup so the cache never
// splits one logical type into two objects.
func canonicalize(raw *descriptor.Type) *descriptor.Type {
	if raw == nil || raw.Definition == nil {
		return raw
	}
	def := raw.Definition
	if len(raw.Arguments) != len(def.Parameters) {
		return raw
	}
	for i, arg := range raw.Arguments {
		if arg == nil || arg.Kind != descriptor.GenericParam {
			return raw
		}
		if arg.Position != i || arg.DeclaringMember != nil {
			return raw
		}
		if arg.Declaring == nil || !sameNameChain(arg.Declaring, def) {
			return raw
		}
	}
	return def
}

// sameNameChain reports whether two named type records denote the same
// declaration by name alone: equal namespaces, equal simple names and equal
// generic arity along the whole declaring chain. Assembly identity does not
// participate.
func sameNameChain(a, b *descriptor.Type) bool {
	for a != nil && b != nil {
		if a == b {
			return true
		}
		if a.Name != b.Name || a.Namespace != b.Namespace || a.Arity() != b.Arity() {
			return false
		}
		a, b = a.Declaring, b.Declaring
	}
	return a == nil && b == nil
}
