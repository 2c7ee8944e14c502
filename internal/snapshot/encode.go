package snapshot

import (
	"fmt"

	"github.com/kampute/metakit/descriptor"
)

// encoder flattens the reachable record graph. Records register an index on
// first visit, before their own references are walked, so cycles terminate
// naturally.
type encoder struct {
	assemblies []*descriptor.Assembly
	asmIndex   map[*descriptor.Assembly]int32

	typeIndex   map[*descriptor.Type]int32
	memberIndex map[*descriptor.Member]int32
	types       []*descriptor.Type
	members     []*descriptor.Member
}

func newEncoder(assemblies []*descriptor.Assembly) *encoder {
	return &encoder{
		assemblies:  assemblies,
		asmIndex:    make(map[*descriptor.Assembly]int32, len(assemblies)),
		typeIndex:   make(map[*descriptor.Type]int32),
		memberIndex: make(map[*descriptor.Member]int32),
	}
}

func (e *encoder) run() (*payload, error) {
	p := &payload{Schema: SchemaVersion}
	for i, asm := range e.assemblies {
		if asm == nil {
			return nil, fmt.Errorf("encode snapshot: nil assembly at %d", i)
		}
		e.asmIndex[asm] = int32(i)
	}
	for _, asm := range e.assemblies {
		fa := flatAssembly{Name: asm.Name, Version: asm.Version}
		for _, t := range asm.Types {
			fa.Types = append(fa.Types, e.typeRef(t))
		}
		p.Assemblies = append(p.Assemblies, fa)
	}

	// The registration pass may keep discovering records while flattening,
	// so flatten by index until the frontier stops moving.
	for i := 0; i < len(e.types); i++ {
		p.Types = append(p.Types, e.flattenType(e.types[i]))
	}
	for i := 0; i < len(e.members); i++ {
		p.Members = append(p.Members, e.flattenMember(e.members[i]))
	}
	// Late discoveries extend both slices; keep going until stable.
	for len(p.Types) < len(e.types) || len(p.Members) < len(e.members) {
		for i := len(p.Types); i < len(e.types); i++ {
			p.Types = append(p.Types, e.flattenType(e.types[i]))
		}
		for i := len(p.Members); i < len(e.members); i++ {
			p.Members = append(p.Members, e.flattenMember(e.members[i]))
		}
	}
	return p, nil
}

func (e *encoder) typeRef(t *descriptor.Type) int32 {
	if t == nil {
		return nilRef
	}
	if id, ok := e.typeIndex[t]; ok {
		return id
	}
	id := int32(len(e.types))
	e.typeIndex[t] = id
	e.types = append(e.types, t)
	return id
}

func (e *encoder) memberRef(m *descriptor.Member) int32 {
	if m == nil {
		return nilRef
	}
	if id, ok := e.memberIndex[m]; ok {
		return id
	}
	id := int32(len(e.members))
	e.memberIndex[m] = id
	e.members = append(e.members, m)
	return id
}

func (e *encoder) asmRef(asm *descriptor.Assembly) int32 {
	if asm == nil {
		return nilRef
	}
	if id, ok := e.asmIndex[asm]; ok {
		return id
	}
	return nilRef // out-of-snapshot assembly; dropped
}

func (e *encoder) typeRefs(ts []*descriptor.Type) []int32 {
	if len(ts) == 0 {
		return nil
	}
	out := make([]int32, len(ts))
	for i, t := range ts {
		out[i] = e.typeRef(t)
	}
	return out
}

func (e *encoder) flattenType(t *descriptor.Type) flatType {
	ft := flatType{
		Kind:       uint8(t.Kind),
		Name:       t.Name,
		Namespace:  t.Namespace,
		Assembly:   e.asmRef(t.Assembly),
		Declaring:  e.typeRef(t.Declaring),
		Visibility: uint8(t.Visibility),
		Modifiers:  uint16(t.Modifiers),

		Base:       e.typeRef(t.BaseType),
		Interfaces: e.typeRefs(t.Interfaces),
		Nested:     e.typeRefs(t.Nested),
		Underlying: e.typeRef(t.Underlying),

		Parameters: e.typeRefs(t.Parameters),
		Definition: e.typeRef(t.Definition),
		Arguments:  e.typeRefs(t.Arguments),

		Position:        int32(t.Position),
		Variance:        uint8(t.Variance),
		Constraints:     uint8(t.Constraints),
		ConstraintTypes: e.typeRefs(t.ConstraintTypes),
		DeclaringMember: e.memberRef(t.DeclaringMember),

		Element: e.typeRef(t.Element),
	}
	for _, m := range t.Members {
		ft.Members = append(ft.Members, e.memberRef(m))
	}
	ft.Attributes = e.flattenAttributes(t.Attributes)
	for _, blk := range t.ExtensionBlocks {
		fb := flatBlock{TypeParams: e.typeRefs(blk.TypeParams)}
		if blk.Receiver != nil {
			fb.Receiver = e.flattenParam(blk.Receiver)
		}
		for _, m := range blk.Members {
			fb.Members = append(fb.Members, e.memberRef(m))
		}
		ft.Blocks = append(ft.Blocks, fb)
	}
	return ft
}

func (e *encoder) flattenMember(m *descriptor.Member) flatMember {
	fm := flatMember{
		Kind:       uint8(m.Kind),
		Name:       m.Name,
		Declaring:  e.typeRef(m.Declaring),
		Visibility: uint8(m.Visibility),
		Modifiers:  uint16(m.Modifiers),
		Result:     e.typeRef(m.Result),
		TypeParams: e.typeRefs(m.TypeParams),
		Attributes: e.flattenAttributes(m.Attributes),
	}
	for _, p := range m.Params {
		fm.Params = append(fm.Params, e.flattenParam(p))
	}
	return fm
}

func (e *encoder) flattenParam(p *descriptor.Param) flatParam {
	return flatParam{
		Name:     p.Name,
		Position: int32(p.Position),
		Type:     e.typeRef(p.Type),
		RefKind:  uint8(p.RefKind),
		Optional: p.Optional,
		Default:  p.Default,
		Variadic: p.Variadic,
	}
}

func (e *encoder) flattenAttributes(attrs []*descriptor.Attribute) []flatAttribute {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]flatAttribute, 0, len(attrs))
	for _, a := range attrs {
		fa := flatAttribute{Type: e.typeRef(a.Type)}
		for _, v := range a.Args {
			fa.Args = append(fa.Args, e.flattenTypedValue(v))
		}
		for _, n := range a.Named {
			fa.Named = append(fa.Named, flatNamedValue{
				Name:    n.Name,
				Value:   e.flattenTypedValue(n.Value),
				IsField: n.IsField,
			})
		}
		out = append(out, fa)
	}
	return out
}

func (e *encoder) flattenTypedValue(v descriptor.TypedValue) flatTypedValue {
	fv := flatTypedValue{Type: e.typeRef(v.Type), Value: v.Value}
	for _, el := range v.Elements {
		fv.Elements = append(fv.Elements, e.flattenTypedValue(el))
	}
	return fv
}
