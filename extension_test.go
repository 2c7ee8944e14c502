package metakit

import (
	"testing"

	"github.com/kampute/metakit/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticClass(w *world, ns, name string) *descriptor.Type {
	t := w.class(ns, name)
	t.Modifiers = descriptor.Static | descriptor.Abstract | descriptor.Final
	return t
}

func staticMethod(decl *descriptor.Type, name string, result *descriptor.Type, params ...*descriptor.Param) *descriptor.Member {
	m := method(decl, name, result, params...)
	m.Modifiers = descriptor.Static
	return m
}

func TestExtensionGroups_BlockClaimsImplementation(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")

	ext := staticClass(w, "Acme", "WidgetExtensions")
	impl := staticMethod(ext, "Resize", nil,
		param("w", 0, widget), param("size", 1, w.i32))
	ext.ExtensionBlocks = []*descriptor.ExtensionBlock{{
		Receiver: param("w", 0, widget),
		Members: []*descriptor.Member{{
			Kind: descriptor.Method, Name: "Resize", Declaring: ext,
			Visibility: descriptor.Public,
			Params:     []*descriptor.Param{param("size", 0, w.i32)},
		}},
	}}

	r := newTestRepository(t, w)
	cls := resolve(t, r, ext).(*Class)

	groups := cls.ExtensionGroups()
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "Acme.Widget", g.Receiver().Type().FullName())
	require.Len(t, g.Members(), 1)

	m := g.Members()[0]
	assert.Equal(t, descriptor.Method, m.Kind())
	assert.Equal(t, "Resize", m.Name())
	require.Len(t, m.Parameters(), 1)
	assert.Equal(t, "size", m.Parameters()[0].Name())
	assert.False(t, m.IsStatic())

	// The view is backed by the lowered static method.
	implM := resolveMethod(t, r, impl)
	require.Len(t, m.Underlying(), 1)
	assert.Same(t, implM, m.Underlying()[0])
	assert.Equal(t, implM.Cref(), m.Cref())
}

func TestExtensionGroups_ClaimingIsExclusive(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")

	ext := staticClass(w, "Acme", "WidgetExtensions")
	staticMethod(ext, "Resize", nil, param("w", 0, widget), param("size", 1, w.i32))

	stub := func() *descriptor.Member {
		return &descriptor.Member{
			Kind: descriptor.Method, Name: "Resize", Declaring: ext,
			Visibility: descriptor.Public,
			Params:     []*descriptor.Param{param("size", 0, w.i32)},
		}
	}
	ext.ExtensionBlocks = []*descriptor.ExtensionBlock{
		{Receiver: param("w", 0, widget), Members: []*descriptor.Member{stub()}},
		{Receiver: param("w", 0, widget), Members: []*descriptor.Member{stub()}},
	}

	r := newTestRepository(t, w)
	cls := resolve(t, r, ext).(*Class)

	// One implementation, two claimants: the first block wins, the second
	// normalizes to nothing.
	groups := cls.ExtensionGroups()
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Members(), 1)
}

func TestExtensionGroups_PropertyAccessorsFuse(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")

	ext := staticClass(w, "Acme", "WidgetExtensions")
	staticMethod(ext, "get_Area", w.i32, param("w", 0, widget))
	staticMethod(ext, "set_Area", nil, param("w", 0, widget), param("value", 1, w.i32))
	ext.ExtensionBlocks = []*descriptor.ExtensionBlock{{
		Receiver: param("w", 0, widget),
		Members: []*descriptor.Member{{
			Kind: descriptor.Property, Name: "Area", Declaring: ext,
			Visibility: descriptor.Public, Result: w.i32,
		}},
	}}

	r := newTestRepository(t, w)
	cls := resolve(t, r, ext).(*Class)

	groups := cls.ExtensionGroups()
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Members(), 1)

	m := groups[0].Members()[0]
	assert.Equal(t, descriptor.Property, m.Kind())
	assert.Equal(t, "Area", m.Name())
	assert.Empty(t, m.Parameters())
	assert.Equal(t, "System.Int32", m.Result().FullName())
	assert.Len(t, m.Underlying(), 2) // both accessors back the view
}

func TestExtensionGroups_UnmatchedStubSkipped(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")

	ext := staticClass(w, "Acme", "WidgetExtensions")
	// Implementation takes a string, the stub asks for an int: no claim.
	staticMethod(ext, "Resize", nil, param("w", 0, widget), param("size", 1, w.str))
	ext.ExtensionBlocks = []*descriptor.ExtensionBlock{{
		Receiver: param("w", 0, widget),
		Members: []*descriptor.Member{{
			Kind: descriptor.Method, Name: "Resize", Declaring: ext,
			Visibility: descriptor.Public,
			Params:     []*descriptor.Param{param("size", 0, w.i32)},
		}},
	}}

	r := newTestRepository(t, w)
	cls := resolve(t, r, ext).(*Class)
	assert.Empty(t, cls.ExtensionGroups())
}

func TestExtensionGroups_ClassicExtensionMethod(t *testing.T) {
	w := newWorld()
	ext := staticClass(w, "Acme", "StringExtensions")
	shout := staticMethod(ext, "Shout", w.str, param("s", 0, w.str))
	shout.Modifiers |= descriptor.ExtensionMethod

	r := newTestRepository(t, w)
	cls := resolve(t, r, ext).(*Class)

	groups := cls.ExtensionGroups()
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "System.String", g.Receiver().Type().FullName())
	require.Len(t, g.Members(), 1)
	assert.Equal(t, "Shout", g.Members()[0].Name())
	assert.Empty(t, g.Members()[0].Parameters())
}

func TestExtensionGroups_ClaimedImplementationNotDoubled(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")

	ext := staticClass(w, "Acme", "WidgetExtensions")
	// Lowered form of a block member still carries the classic marker; the
	// block's claim must keep it out of the classic pass.
	impl := staticMethod(ext, "Resize", nil, param("w", 0, widget), param("size", 1, w.i32))
	impl.Modifiers |= descriptor.ExtensionMethod
	ext.ExtensionBlocks = []*descriptor.ExtensionBlock{{
		Receiver: param("w", 0, widget),
		Members: []*descriptor.Member{{
			Kind: descriptor.Method, Name: "Resize", Declaring: ext,
			Visibility: descriptor.Public,
			Params:     []*descriptor.Param{param("size", 0, w.i32)},
		}},
	}}

	r := newTestRepository(t, w)
	cls := resolve(t, r, ext).(*Class)
	assert.Len(t, cls.ExtensionGroups(), 1)
}

func TestExtensionsFor_ScansScope(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")
	gadget := w.class("Acme", "Gadget")
	gadget.BaseType = widget

	ext := staticClass(w, "Acme", "WidgetExtensions")
	resize := staticMethod(ext, "Resize", nil, param("w", 0, widget), param("size", 1, w.i32))
	resize.Modifiers |= descriptor.ExtensionMethod

	r := newTestRepository(t, w)

	groups, err := r.ExtensionsFor(resolve(t, r, widget))
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Resize", groups[0].Members()[0].Name())

	// A derived receiver picks the extension up through assignability.
	groups, err = r.ExtensionsFor(resolve(t, r, gadget))
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	// An unrelated receiver does not.
	groups, err = r.ExtensionsFor(resolve(t, r, w.str))
	require.NoError(t, err)
	assert.Empty(t, groups)
}
