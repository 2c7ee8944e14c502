package snapshot

import (
	"fmt"

	"github.com/kampute/metakit/descriptor"
)

// rebuild allocates every record first, then fills the cross-references, so
// cyclic shapes reconnect regardless of record order.
func rebuild(p *payload) ([]*descriptor.Assembly, error) {
	if p.Schema != SchemaVersion {
		return nil, fmt.Errorf("decode snapshot: schema %d, want %d", p.Schema, SchemaVersion)
	}

	assemblies := make([]*descriptor.Assembly, len(p.Assemblies))
	for i, fa := range p.Assemblies {
		assemblies[i] = &descriptor.Assembly{Name: fa.Name, Version: fa.Version}
	}
	types := make([]*descriptor.Type, len(p.Types))
	for i := range types {
		types[i] = &descriptor.Type{}
	}
	members := make([]*descriptor.Member, len(p.Members))
	for i := range members {
		members[i] = &descriptor.Member{}
	}

	d := &decoder{assemblies: assemblies, types: types, members: members}

	for i, fa := range p.Assemblies {
		for _, ref := range fa.Types {
			t, err := d.typeAt(ref)
			if err != nil {
				return nil, err
			}
			assemblies[i].Types = append(assemblies[i].Types, t)
		}
	}
	for i := range p.Types {
		if err := d.fillType(types[i], &p.Types[i]); err != nil {
			return nil, err
		}
	}
	for i := range p.Members {
		if err := d.fillMember(members[i], &p.Members[i]); err != nil {
			return nil, err
		}
	}
	return assemblies, nil
}

type decoder struct {
	assemblies []*descriptor.Assembly
	types      []*descriptor.Type
	members    []*descriptor.Member
}

func (d *decoder) typeAt(ref int32) (*descriptor.Type, error) {
	if ref == nilRef {
		return nil, nil
	}
	if ref < 0 || int(ref) >= len(d.types) {
		return nil, fmt.Errorf("decode snapshot: type ref %d out of range", ref)
	}
	return d.types[ref], nil
}

func (d *decoder) memberAt(ref int32) (*descriptor.Member, error) {
	if ref == nilRef {
		return nil, nil
	}
	if ref < 0 || int(ref) >= len(d.members) {
		return nil, fmt.Errorf("decode snapshot: member ref %d out of range", ref)
	}
	return d.members[ref], nil
}

func (d *decoder) asmAt(ref int32) (*descriptor.Assembly, error) {
	if ref == nilRef {
		return nil, nil
	}
	if ref < 0 || int(ref) >= len(d.assemblies) {
		return nil, fmt.Errorf("decode snapshot: assembly ref %d out of range", ref)
	}
	return d.assemblies[ref], nil
}

func (d *decoder) typesAt(refs []int32) ([]*descriptor.Type, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	out := make([]*descriptor.Type, len(refs))
	for i, ref := range refs {
		t, err := d.typeAt(ref)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (d *decoder) fillType(t *descriptor.Type, ft *flatType) error {
	t.Kind = descriptor.TypeKind(ft.Kind)
	t.Name = ft.Name
	t.Namespace = ft.Namespace
	t.Visibility = descriptor.Visibility(ft.Visibility)
	t.Modifiers = descriptor.Modifier(ft.Modifiers)
	t.Position = int(ft.Position)
	t.Variance = descriptor.Variance(ft.Variance)
	t.Constraints = descriptor.Constraint(ft.Constraints)

	var err error
	if t.Assembly, err = d.asmAt(ft.Assembly); err != nil {
		return err
	}
	if t.Declaring, err = d.typeAt(ft.Declaring); err != nil {
		return err
	}
	if t.BaseType, err = d.typeAt(ft.Base); err != nil {
		return err
	}
	if t.Interfaces, err = d.typesAt(ft.Interfaces); err != nil {
		return err
	}
	if t.Nested, err = d.typesAt(ft.Nested); err != nil {
		return err
	}
	if t.Underlying, err = d.typeAt(ft.Underlying); err != nil {
		return err
	}
	if t.Parameters, err = d.typesAt(ft.Parameters); err != nil {
		return err
	}
	if t.Definition, err = d.typeAt(ft.Definition); err != nil {
		return err
	}
	if t.Arguments, err = d.typesAt(ft.Arguments); err != nil {
		return err
	}
	if t.ConstraintTypes, err = d.typesAt(ft.ConstraintTypes); err != nil {
		return err
	}
	if t.DeclaringMember, err = d.memberAt(ft.DeclaringMember); err != nil {
		return err
	}
	if t.Element, err = d.typeAt(ft.Element); err != nil {
		return err
	}
	for _, ref := range ft.Members {
		m, err := d.memberAt(ref)
		if err != nil {
			return err
		}
		t.Members = append(t.Members, m)
	}
	if t.Attributes, err = d.attributesAt(ft.Attributes); err != nil {
		return err
	}
	for i := range ft.Blocks {
		blk := &descriptor.ExtensionBlock{}
		recv, err := d.paramAt(&ft.Blocks[i].Receiver)
		if err != nil {
			return err
		}
		blk.Receiver = recv
		if blk.TypeParams, err = d.typesAt(ft.Blocks[i].TypeParams); err != nil {
			return err
		}
		for _, ref := range ft.Blocks[i].Members {
			m, err := d.memberAt(ref)
			if err != nil {
				return err
			}
			blk.Members = append(blk.Members, m)
		}
		t.ExtensionBlocks = append(t.ExtensionBlocks, blk)
	}
	return nil
}

func (d *decoder) fillMember(m *descriptor.Member, fm *flatMember) error {
	m.Kind = descriptor.MemberKind(fm.Kind)
	m.Name = fm.Name
	m.Visibility = descriptor.Visibility(fm.Visibility)
	m.Modifiers = descriptor.Modifier(fm.Modifiers)

	var err error
	if m.Declaring, err = d.typeAt(fm.Declaring); err != nil {
		return err
	}
	if m.Result, err = d.typeAt(fm.Result); err != nil {
		return err
	}
	if m.TypeParams, err = d.typesAt(fm.TypeParams); err != nil {
		return err
	}
	for i := range fm.Params {
		p, err := d.paramAt(&fm.Params[i])
		if err != nil {
			return err
		}
		m.Params = append(m.Params, p)
	}
	if m.Attributes, err = d.attributesAt(fm.Attributes); err != nil {
		return err
	}
	return nil
}

func (d *decoder) paramAt(fp *flatParam) (*descriptor.Param, error) {
	t, err := d.typeAt(fp.Type)
	if err != nil {
		return nil, err
	}
	return &descriptor.Param{
		Name:     fp.Name,
		Position: int(fp.Position),
		Type:     t,
		RefKind:  descriptor.RefKind(fp.RefKind),
		Optional: fp.Optional,
		Default:  fp.Default,
		Variadic: fp.Variadic,
	}, nil
}

func (d *decoder) attributesAt(fas []flatAttribute) ([]*descriptor.Attribute, error) {
	if len(fas) == 0 {
		return nil, nil
	}
	out := make([]*descriptor.Attribute, 0, len(fas))
	for _, fa := range fas {
		t, err := d.typeAt(fa.Type)
		if err != nil {
			return nil, err
		}
		a := &descriptor.Attribute{Type: t}
		for i := range fa.Args {
			v, err := d.typedValueAt(&fa.Args[i])
			if err != nil {
				return nil, err
			}
			a.Args = append(a.Args, v)
		}
		for i := range fa.Named {
			v, err := d.typedValueAt(&fa.Named[i].Value)
			if err != nil {
				return nil, err
			}
			a.Named = append(a.Named, descriptor.NamedValue{
				Name:    fa.Named[i].Name,
				Value:   v,
				IsField: fa.Named[i].IsField,
			})
		}
		out = append(out, a)
	}
	return out, nil
}

func (d *decoder) typedValueAt(fv *flatTypedValue) (descriptor.TypedValue, error) {
	t, err := d.typeAt(fv.Type)
	if err != nil {
		return descriptor.TypedValue{}, err
	}
	v := descriptor.TypedValue{Type: t, Value: fv.Value}
	for i := range fv.Elements {
		el, err := d.typedValueAt(&fv.Elements[i])
		if err != nil {
			return descriptor.TypedValue{}, err
		}
		v.Elements = append(v.Elements, el)
	}
	return v, nil
}
