package metakit

import (
	"sync"
	"testing"

	"github.com/kampute/metakit/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRepository_RequiresAssemblies(t *testing.T) {
	_, err := NewRepository()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewRepository(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTypeOf_SameRecordSameObject(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")
	r := newTestRepository(t, w)

	a, err := r.TypeOf(widget)
	require.NoError(t, err)
	b, err := r.TypeOf(widget)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestTypeOf_DuplicateRecordsCollapse(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")
	r := newTestRepository(t, w)

	// A second record denoting the same declaration, as a descriptor source
	// reaching the type through another edge would materialize it.
	dup := &descriptor.Type{
		Kind: descriptor.Class, Namespace: "Acme", Name: "Widget",
		Assembly: w.asm, Visibility: descriptor.Public, BaseType: w.object,
	}

	a, err := r.TypeOf(widget)
	require.NoError(t, err)
	b, err := r.TypeOf(dup)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestTypeOf_OutOfScopeAssembly(t *testing.T) {
	w := newWorld()
	r := newTestRepository(t, w)

	other := &descriptor.Assembly{Name: "other"}
	stray := &descriptor.Type{
		Kind: descriptor.Class, Namespace: "Acme", Name: "Stray",
		Assembly: other, Visibility: descriptor.Public,
	}
	other.Types = append(other.Types, stray)

	_, err := r.TypeOf(stray)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTypeOf_SelfReferentialShape(t *testing.T) {
	w := newWorld()
	comparable := w.iface("System", "IComparable")
	typeParams(comparable, "T")

	// C : IComparable<C> must construct without recursing forever.
	c := w.class("Acme", "C")
	c.Interfaces = []*descriptor.Type{construct(comparable, c)}

	r := newTestRepository(t, w)
	got, err := r.TypeOf(c)
	require.NoError(t, err)

	cls, ok := got.(*Class)
	require.True(t, ok)
	require.Len(t, cls.Interfaces(), 1)

	ifc, ok := cls.Interfaces()[0].(*Interface)
	require.True(t, ok)
	require.Len(t, ifc.TypeArguments(), 1)
	assert.Same(t, got, ifc.TypeArguments()[0])
}

func TestTypeOf_VariantAllocation(t *testing.T) {
	w := newWorld()
	s := w.strukt("Acme", "Point")
	i := w.iface("Acme", "IShape")
	e := w.declare(&descriptor.Type{
		Kind: descriptor.Enum, Namespace: "Acme", Name: "Color",
		Visibility: descriptor.Public, Underlying: w.i32,
	})
	d := w.declare(&descriptor.Type{
		Kind: descriptor.Delegate, Namespace: "Acme", Name: "Handler",
		Visibility: descriptor.Public, BaseType: w.object,
	})
	r := newTestRepository(t, w)

	st, err := r.TypeOf(s)
	require.NoError(t, err)
	assert.IsType(t, &Struct{}, st)

	it, err := r.TypeOf(i)
	require.NoError(t, err)
	assert.IsType(t, &Interface{}, it)

	et, err := r.TypeOf(e)
	require.NoError(t, err)
	require.IsType(t, &Enum{}, et)
	ut, err := r.TypeOf(w.i32)
	require.NoError(t, err)
	assert.Same(t, ut, et.(*Enum).Underlying())

	dt, err := r.TypeOf(d)
	require.NoError(t, err)
	assert.IsType(t, &Delegate{}, dt)

	at, err := r.TypeOf(array(w.i32))
	require.NoError(t, err)
	require.IsType(t, &Decorated{}, at)
	assert.Equal(t, descriptor.Array, at.Kind())
	assert.Same(t, ut, at.(*Decorated).Element())
}

func TestTypeByName_FindsUnconstructedTypes(t *testing.T) {
	w := newWorld()
	list := w.class("System.Collections.Generic", "List")
	typeParams(list, "T")
	r := newTestRepository(t, w)

	// Never requested through TypeOf; the lookup must scan the assembly.
	got, ok := r.TypeByName("System.Collections.Generic.List`1")
	require.True(t, ok)
	assert.Equal(t, "List", got.Name())

	again, err := r.TypeOf(list)
	require.NoError(t, err)
	assert.Same(t, got, again)

	_, ok = r.TypeByName("No.Such.Type")
	assert.False(t, ok)
}

func TestMemberOf_SameRecordSameObject(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")
	run := method(widget, "Run", nil, param("count", 0, w.i32))
	r := newTestRepository(t, w)

	a, err := r.MemberOf(run)
	require.NoError(t, err)
	b, err := r.MemberOf(run)
	require.NoError(t, err)
	assert.Same(t, a, b)

	m, ok := a.(*Method)
	require.True(t, ok)
	require.Len(t, m.Parameters(), 1)
	assert.Equal(t, "count", m.Parameters()[0].Name())
	assert.Nil(t, m.Result())
}

func TestMemberOf_KindedAccessorsRejectMismatches(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")
	name := property(widget, "Name", w.str)
	r := newTestRepository(t, w)

	p, err := r.PropertyOf(name)
	require.NoError(t, err)
	assert.Equal(t, "Name", p.Name())

	_, err = r.MethodOf(name)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAssemblyTypes_WalksNestedDeclarations(t *testing.T) {
	w := newWorld()
	outer := w.class("Acme", "Outer")
	inner := nested(outer, descriptor.Class, "Inner", descriptor.Public)
	r := newTestRepository(t, w)

	types, err := r.AssemblyTypes(w.asm)
	require.NoError(t, err)

	names := make(map[string]bool, len(types))
	for _, typ := range types {
		names[typ.FullName()] = true
	}
	assert.True(t, names["Acme.Outer"])
	assert.True(t, names["Acme.Outer.Inner"])

	it, err := r.TypeOf(inner)
	require.NoError(t, err)
	ot, err := r.TypeOf(outer)
	require.NoError(t, err)
	assert.Same(t, ot, it.Declaring())
}

func TestTypeOf_MembersMaterializeLazily(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")
	ctor(widget, descriptor.Public)
	method(widget, "Run", nil)
	field(widget, "Count", w.i32)
	r := newTestRepository(t, w)

	got, err := r.TypeOf(widget)
	require.NoError(t, err)
	cls := got.(*Class)

	assert.Len(t, cls.Constructors(), 1)
	assert.Len(t, cls.Methods(), 1)
	assert.Len(t, cls.Fields(), 1)
	assert.Len(t, cls.Members(), 3)

	for _, m := range cls.Members() {
		assert.Same(t, got, m.Declaring())
	}
}

func TestTypeOf_ConcurrentGetOrCreate(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")
	run := method(widget, "Run", nil, param("count", 0, w.i32))
	r := newTestRepository(t, w)

	const workers = 32
	types := make([]Type, workers)
	members := make([]Member, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			typ, err := r.TypeOf(widget)
			assert.NoError(t, err)
			types[i] = typ
			m, err := r.MemberOf(run)
			assert.NoError(t, err)
			members[i] = m
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Same(t, types[0], types[i])
		assert.Same(t, members[0], members[i])
	}
}

func TestTypeOf_ConcurrentConstructionIsComplete(t *testing.T) {
	w := newWorld()
	runnable := w.iface("Acme", "IRunnable")
	base := w.class("Acme", "Base")
	base.Interfaces = []*descriptor.Type{runnable}
	derived := w.class("Acme", "Derived")
	derived.BaseType = base
	run := method(derived, "Run", w.i32, param("count", 0, w.i32))
	r := newTestRepository(t, w)

	// Whichever goroutine receives the object must already see its structural
	// fields, not just a stable identity.
	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			typ, err := r.TypeOf(derived)
			if !assert.NoError(t, err) {
				return
			}
			cls, ok := typ.(*Class)
			if !assert.True(t, ok) {
				return
			}
			if assert.NotNil(t, cls.Base()) {
				assert.Equal(t, "Acme.Base", cls.Base().FullName())
				assert.Len(t, cls.Base().(*Class).Interfaces(), 1)
			}

			m, err := r.MemberOf(run)
			if !assert.NoError(t, err) {
				return
			}
			if assert.Len(t, m.(*Method).Parameters(), 1) {
				assert.Equal(t, "count", m.(*Method).Parameters()[0].Name())
			}
			assert.NotNil(t, m.(*Method).Result())
		}()
	}
	wg.Wait()
}
