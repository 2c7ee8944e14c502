package scripthost

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/kampute/metakit"
	"github.com/kampute/metakit/internal/crefindex"
)

// Host functions accept and return Risor maps with primitive values; scripts
// hand type and member identities around as full names and crefs rather than
// opaque Go values.

func makeAssembliesFn(repo *metakit.Repository) *object.Builtin {
	return object.NewBuiltin("assemblies", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("assemblies", 0, len(args))
		}
		var results []object.Object
		for _, asm := range repo.Assemblies() {
			results = append(results, object.NewMap(map[string]object.Object{
				"name":    object.NewString(asm.Name),
				"version": object.NewString(asm.Version),
			}))
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

func makeTypeByNameFn(repo *metakit.Repository) *object.Builtin {
	return object.NewBuiltin("type_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("type_by_name", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("type_by_name: %v", err)
		}
		t, ok := repo.TypeByName(name)
		if !ok {
			return object.Nil
		}
		return typeToMap(t)
	})
}

func makeTypeByCrefFn(repo *metakit.Repository) *object.Builtin {
	return object.NewBuiltin("type_by_cref", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("type_by_cref", 1, len(args))
		}
		cref, err := toString(args[0])
		if err != nil {
			return object.Errorf("type_by_cref: %v", err)
		}
		t, lookupErr := repo.TypeByCref(cref)
		if lookupErr != nil {
			return object.Errorf("type_by_cref: %v", lookupErr)
		}
		if t == nil {
			return object.Nil
		}
		return typeToMap(t)
	})
}

func makeMemberByCrefFn(repo *metakit.Repository) *object.Builtin {
	return object.NewBuiltin("member_by_cref", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("member_by_cref", 1, len(args))
		}
		cref, err := toString(args[0])
		if err != nil {
			return object.Errorf("member_by_cref: %v", err)
		}
		m, lookupErr := repo.MemberByCref(cref)
		if lookupErr != nil {
			return object.Errorf("member_by_cref: %v", lookupErr)
		}
		if m == nil {
			return object.Nil
		}
		return memberToMap(m)
	})
}

func makeMembersOfFn(repo *metakit.Repository) *object.Builtin {
	return object.NewBuiltin("members_of", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("members_of", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("members_of: %v", err)
		}
		t, ok := repo.TypeByName(name)
		if !ok {
			return object.Errorf("members_of: unknown type %s", name)
		}
		mp, ok := t.(metakit.MemberProvider)
		if !ok {
			return object.NewList([]object.Object{})
		}
		var results []object.Object
		for _, m := range mp.Members() {
			results = append(results, memberToMap(m))
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

func makeAssignableFn(repo *metakit.Repository) *object.Builtin {
	return object.NewBuiltin("assignable", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("assignable", 2, len(args))
		}
		target, err := lookupType(repo, args[0], "assignable")
		if err != nil {
			return object.Errorf("%v", err)
		}
		source, err := lookupType(repo, args[1], "assignable")
		if err != nil {
			return object.Errorf("%v", err)
		}
		return object.NewBool(repo.IsAssignableFrom(target, source))
	})
}

func makeValidSubstitutionFn(repo *metakit.Repository) *object.Builtin {
	return object.NewBuiltin("valid_substitution", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("valid_substitution", 3, len(args))
		}
		defName, err := toString(args[0])
		if err != nil {
			return object.Errorf("valid_substitution: %v", err)
		}
		pos, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("valid_substitution: %v", err)
		}
		def, ok := repo.TypeByName(defName)
		if !ok {
			return object.Errorf("valid_substitution: unknown type %s", defName)
		}
		gt, ok := def.(metakit.GenericType)
		if !ok {
			return object.Errorf("valid_substitution: %s is not generic", defName)
		}
		params := gt.TypeParameters()
		if pos < 0 || int(pos) >= len(params) {
			return object.Errorf("valid_substitution: %s has no parameter %d", defName, pos)
		}
		arg, err := lookupType(repo, args[2], "valid_substitution")
		if err != nil {
			return object.Errorf("%v", err)
		}
		return object.NewBool(repo.IsValidSubstitution(params[pos], arg))
	})
}

func makeOverriddenFn(repo *metakit.Repository) *object.Builtin {
	return makeSlotFn(repo, "overridden", func(repo *metakit.Repository, m metakit.Member) metakit.Member {
		return repo.FindOverriddenMember(m)
	})
}

func makeImplementedFn(repo *metakit.Repository) *object.Builtin {
	return makeSlotFn(repo, "implemented", func(repo *metakit.Repository, m metakit.Member) metakit.Member {
		return repo.FindImplementedMember(m)
	})
}

func makeGenericDefinitionFn(repo *metakit.Repository) *object.Builtin {
	return makeSlotFn(repo, "generic_definition", func(repo *metakit.Repository, m metakit.Member) metakit.Member {
		return repo.FindGenericDefinition(m)
	})
}

// makeSlotFn builds a host function that maps a member cref through one of
// the member-to-member resolution queries.
func makeSlotFn(repo *metakit.Repository, name string, resolve func(*metakit.Repository, metakit.Member) metakit.Member) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		cref, err := toString(args[0])
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		m, lookupErr := repo.MemberByCref(cref)
		if lookupErr != nil {
			return object.Errorf("%s: %v", name, lookupErr)
		}
		if m == nil {
			return object.Errorf("%s: unknown member %s", name, cref)
		}
		target := resolve(repo, m)
		if target == nil {
			return object.Nil
		}
		return memberToMap(target)
	})
}

func makeExtensionsForFn(repo *metakit.Repository) *object.Builtin {
	return object.NewBuiltin("extensions_for", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("extensions_for", 1, len(args))
		}
		receiver, err := lookupType(repo, args[0], "extensions_for")
		if err != nil {
			return object.Errorf("%v", err)
		}
		groups, extErr := repo.ExtensionsFor(receiver)
		if extErr != nil {
			return object.Errorf("extensions_for: %v", extErr)
		}
		var results []object.Object
		for _, g := range groups {
			var members []object.Object
			for _, em := range g.Members() {
				members = append(members, memberToMap(em))
			}
			if members == nil {
				members = []object.Object{}
			}
			results = append(results, object.NewMap(map[string]object.Object{
				"receiver": object.NewString(g.Receiver().Type().FullName()),
				"members":  object.NewList(members),
			}))
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

// --- cref index bridge functions ---

func makeCrefLookupFn(x *crefindex.Index) *object.Builtin {
	return object.NewBuiltin("cref_lookup", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("cref_lookup", 1, len(args))
		}
		cref, err := toString(args[0])
		if err != nil {
			return object.Errorf("cref_lookup: %v", err)
		}
		e, lookupErr := x.ByCref(cref)
		if lookupErr != nil {
			return object.Errorf("cref_lookup: %v", lookupErr)
		}
		if e == nil {
			return object.Nil
		}
		return entryToMap(e)
	})
}

func makeCrefSearchFn(x *crefindex.Index) *object.Builtin {
	return object.NewBuiltin("cref_search", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("cref_search", 2, len(args))
		}
		prefix, err := toString(args[0])
		if err != nil {
			return object.Errorf("cref_search: %v", err)
		}
		limit, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("cref_search: %v", err)
		}
		entries, searchErr := x.ByPrefix(prefix, int(limit))
		if searchErr != nil {
			return object.Errorf("cref_search: %v", searchErr)
		}
		var results []object.Object
		for _, e := range entries {
			results = append(results, entryToMap(e))
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

func makeCrefCountFn(x *crefindex.Index) *object.Builtin {
	return object.NewBuiltin("cref_count", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("cref_count", 0, len(args))
		}
		n, err := x.Count()
		if err != nil {
			return object.Errorf("cref_count: %v", err)
		}
		return object.NewInt(n)
	})
}

// --- conversion helpers ---

// lookupType resolves a script-supplied identity: a "T:" cref or a plain
// full name.
func lookupType(repo *metakit.Repository, arg object.Object, caller string) (metakit.Type, error) {
	name, err := toString(arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", caller, err)
	}
	if len(name) > 2 && name[1] == ':' {
		t, err := repo.TypeByCref(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", caller, err)
		}
		if t == nil {
			return nil, fmt.Errorf("%s: unknown type %s", caller, name)
		}
		return t, nil
	}
	t, ok := repo.TypeByName(name)
	if !ok {
		return nil, fmt.Errorf("%s: unknown type %s", caller, name)
	}
	return t, nil
}

func typeToMap(t metakit.Type) object.Object {
	m := map[string]object.Object{
		"full_name":  object.NewString(t.FullName()),
		"name":       object.NewString(t.Name()),
		"namespace":  object.NewString(t.Namespace()),
		"kind":       object.NewString(t.Kind().String()),
		"signature":  object.NewString(t.Signature()),
		"visibility": object.NewString(t.Visibility().String()),
	}
	if asm := t.Assembly(); asm != nil {
		m["assembly"] = object.NewString(asm.Name)
	}
	if gt, ok := t.(metakit.GenericType); ok {
		if gt.IsConstructed() {
			m["definition"] = object.NewString(gt.Definition().FullName())
			var args []object.Object
			for _, a := range gt.TypeArguments() {
				args = append(args, object.NewString(a.Signature()))
			}
			m["type_arguments"] = object.NewList(args)
		} else if n := len(gt.TypeParameters()); n > 0 {
			m["arity"] = object.NewInt(int64(n))
		}
	}
	return object.NewMap(m)
}

func memberToMap(m metakit.Member) object.Object {
	out := map[string]object.Object{
		"name":       object.NewString(m.Name()),
		"kind":       object.NewString(m.Kind().String()),
		"cref":       object.NewString(m.Cref()),
		"visibility": object.NewString(m.Visibility().String()),
		"static":     object.NewBool(m.IsStatic()),
	}
	if d := m.Declaring(); d != nil {
		out["declaring"] = object.NewString(d.FullName())
	}
	if r := m.Result(); r != nil {
		out["result"] = object.NewString(r.Signature())
	}
	var params []object.Object
	for _, p := range m.Parameters() {
		params = append(params, object.NewMap(map[string]object.Object{
			"name":     object.NewString(p.Name()),
			"position": object.NewInt(int64(p.Position())),
			"type":     object.NewString(p.Type().Signature()),
		}))
	}
	if params == nil {
		params = []object.Object{}
	}
	out["parameters"] = object.NewList(params)
	if vm, ok := m.(metakit.VirtualMember); ok {
		out["virtuality"] = object.NewString(vm.Virtuality().String())
	}
	return object.NewMap(out)
}

func entryToMap(e *crefindex.Entry) object.Object {
	m := map[string]object.Object{
		"cref":     object.NewString(e.Cref),
		"kind":     object.NewString(e.Kind),
		"name":     object.NewString(e.Name),
		"assembly": object.NewString(e.Assembly),
	}
	if e.Declaring != "" {
		m["declaring"] = object.NewString(e.Declaring)
	}
	return object.NewMap(m)
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}
