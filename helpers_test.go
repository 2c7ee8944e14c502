package metakit

import (
	"testing"

	"github.com/kampute/metakit/descriptor"
	"github.com/stretchr/testify/require"
)

// world bundles one fixture assembly with the system types nearly every test
// needs, plus small builders for the descriptor records under test.
type world struct {
	asm    *descriptor.Assembly
	object *descriptor.Type
	str    *descriptor.Type
	i32    *descriptor.Type
	boolW  *descriptor.Type
}

func newWorld() *world {
	w := &world{asm: &descriptor.Assembly{Name: "fixture", Version: "1.0.0"}}
	w.object = w.class("System", "Object") // declared first; later classes derive from it
	w.str = w.class("System", "String")
	w.str.Modifiers = descriptor.Final
	w.i32 = w.primitive("System", "Int32")
	w.boolW = w.primitive("System", "Boolean")
	return w
}

func newTestRepository(t *testing.T, w *world) *Repository {
	t.Helper()
	r, err := NewRepository(w.asm)
	require.NoError(t, err)
	return r
}

func (w *world) declare(t *descriptor.Type) *descriptor.Type {
	t.Assembly = w.asm
	w.asm.Types = append(w.asm.Types, t)
	return t
}

func (w *world) class(ns, name string) *descriptor.Type {
	return w.declare(&descriptor.Type{
		Kind: descriptor.Class, Namespace: ns, Name: name,
		Visibility: descriptor.Public, BaseType: w.object,
	})
}

func (w *world) iface(ns, name string) *descriptor.Type {
	return w.declare(&descriptor.Type{
		Kind: descriptor.Interface, Namespace: ns, Name: name,
		Visibility: descriptor.Public,
	})
}

func (w *world) strukt(ns, name string) *descriptor.Type {
	return w.declare(&descriptor.Type{
		Kind: descriptor.Struct, Namespace: ns, Name: name,
		Visibility: descriptor.Public,
	})
}

func (w *world) primitive(ns, name string) *descriptor.Type {
	return w.declare(&descriptor.Type{
		Kind: descriptor.Primitive, Namespace: ns, Name: name,
		Visibility: descriptor.Public,
	})
}

// nested declares a type inside an enclosing one instead of at the top
// level.
func nested(outer *descriptor.Type, kind descriptor.TypeKind, name string, vis descriptor.Visibility) *descriptor.Type {
	t := &descriptor.Type{
		Kind: kind, Name: name, Namespace: outer.Namespace,
		Declaring: outer, Visibility: vis,
	}
	outer.Nested = append(outer.Nested, t)
	return t
}

// typeParams declares generic parameters on an open definition, in order.
func typeParams(decl *descriptor.Type, names ...string) []*descriptor.Type {
	out := make([]*descriptor.Type, len(names))
	for i, name := range names {
		out[i] = &descriptor.Type{
			Kind: descriptor.GenericParam, Name: name,
			Declaring: decl, Position: i,
		}
	}
	decl.Parameters = out
	return out
}

// construct instantiates an open definition with the given arguments.
func construct(def *descriptor.Type, args ...*descriptor.Type) *descriptor.Type {
	return &descriptor.Type{
		Kind: def.Kind, Name: def.Name, Namespace: def.Namespace,
		Definition: def, Arguments: args,
	}
}

func array(elem *descriptor.Type) *descriptor.Type {
	return &descriptor.Type{Kind: descriptor.Array, Element: elem}
}

func nullable(elem *descriptor.Type) *descriptor.Type {
	return &descriptor.Type{Kind: descriptor.Nullable, Element: elem}
}

func param(name string, pos int, typ *descriptor.Type) *descriptor.Param {
	return &descriptor.Param{Name: name, Position: pos, Type: typ}
}

// method declares a public instance method; result nil means void.
func method(decl *descriptor.Type, name string, result *descriptor.Type, params ...*descriptor.Param) *descriptor.Member {
	m := &descriptor.Member{
		Kind: descriptor.Method, Name: name, Declaring: decl,
		Visibility: descriptor.Public, Params: params, Result: result,
	}
	decl.Members = append(decl.Members, m)
	return m
}

func ctor(decl *descriptor.Type, vis descriptor.Visibility, params ...*descriptor.Param) *descriptor.Member {
	m := &descriptor.Member{
		Kind: descriptor.Constructor, Name: ".ctor", Declaring: decl,
		Visibility: vis, Params: params,
	}
	decl.Members = append(decl.Members, m)
	return m
}

func property(decl *descriptor.Type, name string, typ *descriptor.Type, params ...*descriptor.Param) *descriptor.Member {
	m := &descriptor.Member{
		Kind: descriptor.Property, Name: name, Declaring: decl,
		Visibility: descriptor.Public, Params: params, Result: typ,
	}
	decl.Members = append(decl.Members, m)
	return m
}

func field(decl *descriptor.Type, name string, typ *descriptor.Type) *descriptor.Member {
	m := &descriptor.Member{
		Kind: descriptor.Field, Name: name, Declaring: decl,
		Visibility: descriptor.Public, Result: typ,
	}
	decl.Members = append(decl.Members, m)
	return m
}
