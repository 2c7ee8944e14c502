package metakit

import (
	"testing"

	"github.com/kampute/metakit/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_SelfConstructionCollapses(t *testing.T) {
	w := newWorld()
	list := w.class("System.Collections.Generic", "List")
	tp := typeParams(list, "T")

	// List<T> constructed with its own T restates the open definition.
	restated := construct(list, tp[0])
	assert.Same(t, list, canonicalize(restated))

	// Idempotent: the definition passes through untouched.
	assert.Same(t, list, canonicalize(list))
}

func TestCanonicalize_RealArgumentsPreserved(t *testing.T) {
	w := newWorld()
	list := w.class("System.Collections.Generic", "List")
	typeParams(list, "T")

	closed := construct(list, w.i32)
	assert.Same(t, closed, canonicalize(closed))
}

func TestCanonicalize_ForeignParameterPreserved(t *testing.T) {
	w := newWorld()
	list := w.class("System.Collections.Generic", "List")
	typeParams(list, "T")
	dict := w.class("System.Collections.Generic", "Dictionary")
	dp := typeParams(dict, "K", "V")

	// List<V> inside Dictionary<K,V> uses another declaration's parameter.
	foreign := construct(list, dp[1])
	assert.Same(t, foreign, canonicalize(foreign))

	// Position mismatch: List<T> constructed with a position-1 parameter.
	shifted := construct(list, &descriptor.Type{
		Kind: descriptor.GenericParam, Name: "T", Declaring: list, Position: 1,
	})
	assert.Same(t, shifted, canonicalize(shifted))
}

func TestCanonicalize_DuplicateDefinitionRecordsByName(t *testing.T) {
	w := newWorld()
	list := w.class("System.Collections.Generic", "List")
	typeParams(list, "T")

	// A second record of the same definition, as materialized through an
	// inheritance edge: distinct pointers, same name chain.
	dup := &descriptor.Type{
		Kind: descriptor.Class, Namespace: "System.Collections.Generic", Name: "List",
		Assembly: w.asm, Visibility: descriptor.Public,
	}
	dupParams := typeParams(dup, "T")

	restated := construct(list, dupParams[0])
	assert.Same(t, list, canonicalize(restated))
}

func TestTypeOf_CanonicalizedShapesShareIdentity(t *testing.T) {
	w := newWorld()
	list := w.class("System.Collections.Generic", "List")
	tp := typeParams(list, "T")
	r := newTestRepository(t, w)

	def, err := r.TypeOf(list)
	require.NoError(t, err)
	restated, err := r.TypeOf(construct(list, tp[0]))
	require.NoError(t, err)
	assert.Same(t, def, restated)

	closed, err := r.TypeOf(construct(list, w.i32))
	require.NoError(t, err)
	assert.NotSame(t, def, closed)

	g, ok := closed.(GenericType)
	require.True(t, ok)
	assert.True(t, g.IsConstructed())
	assert.Same(t, def, g.Definition())
}
