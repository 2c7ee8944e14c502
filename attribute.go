package metakit

import (
	"fmt"

	"github.com/kampute/metakit/descriptor"
)

// Attribute is the canonical view of a custom attribute application: the
// resolved attribute type plus its ordered constructor arguments and named
// arguments.
type Attribute struct {
	typ   Type
	args  []TypedValue
	named []NamedArgument
}

func (a *Attribute) Type() Type                      { return a.typ }
func (a *Attribute) Arguments() []TypedValue         { return a.args }
func (a *Attribute) NamedArguments() []NamedArgument { return a.named }

// TypedValue is a typed constant attribute argument. Array arguments carry
// their elements recursively.
type TypedValue struct {
	Type     Type
	Value    any
	Elements []TypedValue
}

// NamedArgument is an attribute argument targeting a property or field of
// the attribute type by name.
type NamedArgument struct {
	Name    string
	Value   TypedValue
	IsField bool
}

func (r *Repository) attributesOf(raws []*descriptor.Attribute, s *buildSession) ([]*Attribute, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]*Attribute, 0, len(raws))
	for _, raw := range raws {
		if raw == nil {
			return nil, fmt.Errorf("%w: nil attribute", ErrInvalidArgument)
		}
		typ, err := r.typeOf(raw.Type, s)
		if err != nil {
			return nil, err
		}
		a := &Attribute{typ: typ}
		for _, rv := range raw.Args {
			v, err := r.typedValueOf(rv, s)
			if err != nil {
				return nil, err
			}
			a.args = append(a.args, v)
		}
		for _, rn := range raw.Named {
			v, err := r.typedValueOf(rn.Value, s)
			if err != nil {
				return nil, err
			}
			a.named = append(a.named, NamedArgument{Name: rn.Name, Value: v, IsField: rn.IsField})
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *Repository) typedValueOf(raw descriptor.TypedValue, s *buildSession) (TypedValue, error) {
	typ, err := r.typeOf(raw.Type, s)
	if err != nil {
		return TypedValue{}, err
	}
	v := TypedValue{Type: typ, Value: raw.Value}
	for _, re := range raw.Elements {
		e, err := r.typedValueOf(re, s)
		if err != nil {
			return TypedValue{}, err
		}
		v.Elements = append(v.Elements, e)
	}
	return v, nil
}
