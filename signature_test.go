package metakit

import (
	"testing"

	"github.com/kampute/metakit/descriptor"
	"github.com/stretchr/testify/assert"
)

func TestTypeSignature_NamedAndNested(t *testing.T) {
	w := newWorld()
	outer := w.class("Acme", "Outer")
	inner := nested(outer, descriptor.Class, "Inner", descriptor.Public)

	assert.Equal(t, "Acme.Outer", typeSignature(outer))
	assert.Equal(t, "Acme.Outer.Inner", typeSignature(inner))
}

func TestTypeSignature_GenericShapes(t *testing.T) {
	w := newWorld()
	list := w.class("System.Collections.Generic", "List")
	tp := typeParams(list, "T")

	assert.Equal(t, "System.Collections.Generic.List`1", typeSignature(list))
	assert.Equal(t, "`0", typeSignature(tp[0]))
	assert.Equal(t, "System.Collections.Generic.List`1{System.Int32}", typeSignature(construct(list, w.i32)))

	// A construction restating its own definition canonicalizes away.
	assert.Equal(t, "System.Collections.Generic.List`1", typeSignature(construct(list, tp[0])))
}

func TestTypeSignature_MethodParameterForm(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")
	of := method(widget, "Of", nil)
	mp := &descriptor.Type{
		Kind: descriptor.GenericParam, Name: "T",
		DeclaringMember: of, Position: 0,
	}
	of.TypeParams = []*descriptor.Type{mp}

	assert.Equal(t, "``0", typeSignature(mp))
}

func TestTypeSignature_Decorations(t *testing.T) {
	w := newWorld()

	assert.Equal(t, "System.Int32[]", typeSignature(array(w.i32)))
	assert.Equal(t, "System.Int32?", typeSignature(nullable(w.i32)))
	assert.Equal(t, "System.Int32[][]", typeSignature(array(array(w.i32))))
	assert.Equal(t, "System.Int32@", typeSignature(&descriptor.Type{Kind: descriptor.ByRef, Element: w.i32}))
	assert.Equal(t, "System.Int32*", typeSignature(&descriptor.Type{Kind: descriptor.Pointer, Element: w.i32}))
}

func TestMemberKey_DisambiguatesOverloads(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")
	a := method(widget, "Run", nil, param("n", 0, w.i32))
	b := method(widget, "Run", nil, param("s", 0, w.str))

	assert.NotEqual(t, memberKey(a), memberKey(b))
}

func TestMemberKey_ConversionOperatorsDifferByResult(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")
	toInt := &descriptor.Member{
		Kind: descriptor.Operator, Name: "op_Implicit", Declaring: widget,
		Visibility: descriptor.Public,
		Params:     []*descriptor.Param{param("value", 0, widget)},
		Result:     w.i32,
	}
	toStr := &descriptor.Member{
		Kind: descriptor.Operator, Name: "op_Implicit", Declaring: widget,
		Visibility: descriptor.Public,
		Params:     []*descriptor.Param{param("value", 0, widget)},
		Result:     w.str,
	}

	assert.NotEqual(t, memberKey(toInt), memberKey(toStr))
}

func TestMemberKey_GenericMethodArity(t *testing.T) {
	w := newWorld()
	widget := w.class("Acme", "Widget")
	plain := method(widget, "Of", nil)
	generic := &descriptor.Member{
		Kind: descriptor.Method, Name: "Of", Declaring: widget,
		Visibility: descriptor.Public,
	}
	generic.TypeParams = []*descriptor.Type{{
		Kind: descriptor.GenericParam, Name: "T", DeclaringMember: generic, Position: 0,
	}}

	assert.NotEqual(t, memberKey(plain), memberKey(generic))
}
