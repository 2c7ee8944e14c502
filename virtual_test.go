package metakit

import (
	"testing"

	"github.com/kampute/metakit/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveMethod(t *testing.T, r *Repository, raw *descriptor.Member) *Method {
	t.Helper()
	m, err := r.MethodOf(raw)
	require.NoError(t, err)
	return m
}

// ==== virtuality classification ====

func TestVirtuality_Classification(t *testing.T) {
	w := newWorld()
	base := w.class("Acme", "Base")
	base.Modifiers = descriptor.Abstract
	slot := method(base, "Run", nil)
	slot.Modifiers = descriptor.Virtual
	duty := method(base, "Duty", nil)
	duty.Modifiers = descriptor.Abstract
	plain := method(base, "Plain", nil)

	derived := w.class("Acme", "Derived")
	derived.BaseType = base
	override := method(derived, "Run", nil)
	override.Modifiers = descriptor.Virtual

	last := w.class("Acme", "Last")
	last.BaseType = derived
	sealedOverride := method(last, "Run", nil)
	sealedOverride.Modifiers = descriptor.Virtual | descriptor.Final

	r := newTestRepository(t, w)

	assert.Equal(t, Virtual, resolveMethod(t, r, slot).Virtuality())
	assert.Equal(t, Abstract, resolveMethod(t, r, duty).Virtuality())
	assert.Equal(t, NotVirtual, resolveMethod(t, r, plain).Virtuality())
	assert.Equal(t, Override, resolveMethod(t, r, override).Virtuality())
	assert.Equal(t, SealedOverride, resolveMethod(t, r, sealedOverride).Virtuality())
}

// ==== override discovery ====

func TestFindOverriddenMember_ClosestLevelWins(t *testing.T) {
	w := newWorld()
	a := w.class("Acme", "A")
	aRun := method(a, "Run", nil)
	aRun.Modifiers = descriptor.Virtual

	b := w.class("Acme", "B")
	b.BaseType = a
	bRun := method(b, "Run", nil)
	bRun.Modifiers = descriptor.Virtual

	c := w.class("Acme", "C")
	c.BaseType = b
	cRun := method(c, "Run", nil)
	cRun.Modifiers = descriptor.Virtual

	r := newTestRepository(t, w)

	bm := resolveMethod(t, r, bRun)
	cm := resolveMethod(t, r, cRun)
	am := resolveMethod(t, r, aRun)

	assert.Same(t, Member(bm), cm.Overridden())
	assert.Same(t, Member(am), bm.Overridden())
	assert.Nil(t, am.Overridden())
}

func TestFindOverriddenMember_SkipsSealedSlots(t *testing.T) {
	w := newWorld()
	a := w.class("Acme", "A")
	aRun := method(a, "Run", nil)
	aRun.Modifiers = descriptor.Virtual

	b := w.class("Acme", "B")
	b.BaseType = a
	bRun := method(b, "Run", nil)
	bRun.Modifiers = descriptor.Virtual | descriptor.Final

	c := w.class("Acme", "C")
	c.BaseType = b
	cRun := method(c, "Run", nil)
	cRun.Modifiers = descriptor.Virtual

	r := newTestRepository(t, w)

	// The sealed slot in B never participates as an override target.
	got := resolveMethod(t, r, cRun).Overridden()
	assert.Same(t, Member(resolveMethod(t, r, aRun)), got)
}

func TestFindOverriddenMember_SignatureMustMatch(t *testing.T) {
	w := newWorld()
	base := w.class("Acme", "Base")
	baseRun := method(base, "Run", nil, param("n", 0, w.i32))
	baseRun.Modifiers = descriptor.Virtual

	derived := w.class("Acme", "Derived")
	derived.BaseType = base
	otherRun := method(derived, "Run", nil, param("s", 0, w.str))
	otherRun.Modifiers = descriptor.Virtual

	r := newTestRepository(t, w)

	// Same name, different parameter type: a fresh slot, not an override.
	m := resolveMethod(t, r, otherRun)
	assert.Nil(t, m.Overridden())
	assert.Equal(t, Virtual, m.Virtuality())
}

func TestFindOverriddenMember_CovariantReturn(t *testing.T) {
	w := newWorld()
	animal := w.class("Acme", "Animal")
	dog := w.class("Acme", "Dog")
	dog.BaseType = animal

	farm := w.class("Acme", "Farm")
	breed := method(farm, "Breed", animal)
	breed.Modifiers = descriptor.Virtual

	kennel := w.class("Acme", "Kennel")
	kennel.BaseType = farm
	narrower := method(kennel, "Breed", dog)
	narrower.Modifiers = descriptor.Virtual

	r := newTestRepository(t, w)

	got := resolveMethod(t, r, narrower).Overridden()
	assert.Same(t, Member(resolveMethod(t, r, breed)), got)
}

func TestFindOverriddenMember_ThroughConstructedBase(t *testing.T) {
	w := newWorld()
	base := w.class("Acme", "Base")
	bp := typeParams(base, "T")
	baseM := method(base, "Process", nil, param("value", 0, bp[0]))
	baseM.Modifiers = descriptor.Virtual

	derived := w.class("Acme", "Derived")
	derived.BaseType = construct(base, w.i32)
	derivedM := method(derived, "Process", nil, param("value", 0, w.i32))
	derivedM.Modifiers = descriptor.Virtual

	r := newTestRepository(t, w)

	// Derived.Process(int) overrides Base<T>.Process(T): the open
	// definition's member is the resolution target.
	got := resolveMethod(t, r, derivedM).Overridden()
	require.NotNil(t, got)
	assert.Same(t, Member(resolveMethod(t, r, baseM)), got)
}

func TestFindOverriddenMember_StaticAndInterfaceMembersExcluded(t *testing.T) {
	w := newWorld()
	iface := w.iface("Acme", "IShape")
	draw := method(iface, "Draw", nil)

	util := w.class("Acme", "Util")
	helper := method(util, "Helper", nil)
	helper.Modifiers = descriptor.Static

	r := newTestRepository(t, w)

	assert.Nil(t, r.FindOverriddenMember(resolveMethod(t, r, draw)))
	assert.Nil(t, r.FindOverriddenMember(resolveMethod(t, r, helper)))
}

// ==== interface implementation discovery ====

func TestFindImplementedMember_Implicit(t *testing.T) {
	w := newWorld()
	shape := w.iface("Acme", "IShape")
	ifaceDraw := method(shape, "Draw", nil)

	widget := w.class("Acme", "Widget")
	widget.Interfaces = []*descriptor.Type{shape}
	classDraw := method(widget, "Draw", nil)
	other := method(widget, "Resize", nil)

	r := newTestRepository(t, w)

	assert.Same(t, Member(resolveMethod(t, r, ifaceDraw)), resolveMethod(t, r, classDraw).Implemented())
	assert.Nil(t, resolveMethod(t, r, other).Implemented())
}

func TestFindImplementedMember_OnlyPublicImplicitly(t *testing.T) {
	w := newWorld()
	shape := w.iface("Acme", "IShape")
	method(shape, "Draw", nil)

	widget := w.class("Acme", "Widget")
	widget.Interfaces = []*descriptor.Type{shape}
	hidden := method(widget, "Draw", nil)
	hidden.Visibility = descriptor.Internal

	r := newTestRepository(t, w)
	assert.Nil(t, resolveMethod(t, r, hidden).Implemented())
}

func TestFindImplementedMember_ThroughBaseChain(t *testing.T) {
	w := newWorld()
	shape := w.iface("Acme", "IShape")
	ifaceDraw := method(shape, "Draw", nil)

	base := w.class("Acme", "Base")
	base.Interfaces = []*descriptor.Type{shape}

	derived := w.class("Acme", "Derived")
	derived.BaseType = base
	classDraw := method(derived, "Draw", nil)

	r := newTestRepository(t, w)

	// The interface arrives through the base class, not directly.
	assert.Same(t, Member(resolveMethod(t, r, ifaceDraw)), resolveMethod(t, r, classDraw).Implemented())
}

func TestFindImplementedMember_Explicit(t *testing.T) {
	w := newWorld()
	box := w.iface("Acme", "IBox")
	bp := typeParams(box, "T")
	ifaceGet := method(box, "Get", bp[0])

	crate := w.class("Acme", "Crate")
	crate.Interfaces = []*descriptor.Type{construct(box, w.str)}
	explicit := &descriptor.Member{
		Kind: descriptor.Method, Name: "Acme.IBox<System.String>.Get",
		Declaring: crate, Visibility: descriptor.Private, Result: w.str,
	}
	crate.Members = append(crate.Members, explicit)

	r := newTestRepository(t, w)

	got := resolveMethod(t, r, explicit).Implemented()
	require.NotNil(t, got)
	assert.Same(t, Member(resolveMethod(t, r, ifaceGet)), got)
}

func TestSplitExplicitName(t *testing.T) {
	iface, member, ok := splitExplicitName("Acme.IBox<System.String>.Get")
	require.True(t, ok)
	assert.Equal(t, "Acme.IBox`1", iface)
	assert.Equal(t, "Get", member)

	iface, member, ok = splitExplicitName("Acme.IDict<K,V>.Lookup")
	require.True(t, ok)
	assert.Equal(t, "Acme.IDict`2", iface)
	assert.Equal(t, "Lookup", member)

	_, _, ok = splitExplicitName("Draw")
	assert.False(t, ok)

	// A leading dot marks a special name, not an explicit qualifier.
	_, _, ok = splitExplicitName(".ctor")
	assert.False(t, ok)
}

// ==== generic definition mapping ====

func TestFindGenericDefinition_MapsConstructedMembers(t *testing.T) {
	w := newWorld()
	base := w.class("Acme", "Base")
	bp := typeParams(base, "T")
	defM := method(base, "Process", bp[0], param("value", 0, bp[0]))

	closedM := &descriptor.Member{
		Kind: descriptor.Method, Name: "Process", Declaring: construct(base, w.i32),
		Visibility: descriptor.Public,
		Params:     []*descriptor.Param{param("value", 0, w.i32)},
		Result:     w.i32,
	}

	r := newTestRepository(t, w)

	got := resolveMethod(t, r, closedM).GenericDefinition()
	require.NotNil(t, got)
	assert.Same(t, Member(resolveMethod(t, r, defM)), got)

	// Members of non-constructed types have no definition counterpart.
	assert.Nil(t, resolveMethod(t, r, defM).GenericDefinition())
}
