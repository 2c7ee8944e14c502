package metakit

import (
	"fmt"
	"sync"

	"github.com/kampute/metakit/descriptor"
)

// Parameter is the canonical view of a parameter record, pairing the raw
// record with the resolved canonical type.
type Parameter struct {
	raw *descriptor.Param
	typ Type
}

func (p *Parameter) Name() string     { return p.raw.Name }
func (p *Parameter) Position() int    { return p.raw.Position }
func (p *Parameter) Type() Type       { return p.typ }
func (p *Parameter) RefKind() RefKind { return p.raw.RefKind }
func (p *Parameter) Optional() bool   { return p.raw.Optional }
func (p *Parameter) Default() any     { return p.raw.Default }
func (p *Parameter) Variadic() bool   { return p.raw.Variadic }

// memberShell carries the fields shared by every member variant. Like type
// shells, member shells are fully constructed before they are committed to
// the identity cache; derived relations hide behind idempotent lazy
// computations.
type memberShell struct {
	repo *Repository
	raw  *descriptor.Member
	key  string

	declaring Type
	params    []*Parameter
	result    Type
	attrs     []*Attribute

	crefOnce sync.Once
	cref     string
}

func (s *memberShell) Name() string             { return s.raw.Name }
func (s *memberShell) Declaring() Type          { return s.declaring }
func (s *memberShell) Visibility() Visibility   { return s.raw.Visibility }
func (s *memberShell) IsStatic() bool           { return s.raw.Modifiers.Has(descriptor.Static) }
func (s *memberShell) Parameters() []*Parameter { return s.params }
func (s *memberShell) Result() Type             { return s.result }
func (s *memberShell) Attributes() []*Attribute { return s.attrs }
func (s *memberShell) isMember()                {}

func (s *memberShell) IsCompilerGenerated() bool {
	return s.raw.Modifiers.Has(descriptor.CompilerGenerated)
}

func (s *memberShell) Cref() string {
	s.crefOnce.Do(func() {
		s.cref = buildCref(s.raw)
	})
	return s.cref
}

// virtualShell carries the lazily computed dispatch relations of a virtual
// member variant. Each relation is computed at most once and only points
// toward strictly more-base or more-interface-like members, so following it
// repeatedly always terminates.
type virtualShell struct {
	virtOnce   sync.Once
	virtuality Virtuality
	overridden Member

	implOnce    sync.Once
	implemented Member

	defOnce    sync.Once
	genericDef Member
}

func (s *virtualShell) resolveVirtual(m Member, raw *descriptor.Member, r *Repository) {
	s.virtOnce.Do(func() {
		switch {
		case raw.Modifiers.Has(descriptor.Abstract):
			s.overridden = r.FindOverriddenMember(m)
			s.virtuality = Abstract
		case raw.Modifiers.Has(descriptor.Virtual):
			s.overridden = r.FindOverriddenMember(m)
			switch {
			case s.overridden == nil:
				s.virtuality = Virtual
			case raw.Modifiers.Has(descriptor.Final):
				s.virtuality = SealedOverride
			default:
				s.virtuality = Override
			}
		default:
			s.virtuality = NotVirtual
		}
	})
}

func (s *virtualShell) resolveImplemented(m Member, r *Repository) {
	s.implOnce.Do(func() {
		s.implemented = r.FindImplementedMember(m)
	})
}

func (s *virtualShell) resolveGenericDef(m Member, r *Repository) {
	s.defOnce.Do(func() {
		s.genericDef = r.FindGenericDefinition(m)
	})
}

// Constructor is an instance or type initializer.
type Constructor struct {
	memberShell
}

func (m *Constructor) Kind() MemberKind { return descriptor.Constructor }

// Method is an ordinary callable member, possibly generic.
type Method struct {
	memberShell
	virtualShell
	typeParams []*GenericParameter
}

func (m *Method) Kind() MemberKind { return descriptor.Method }

// TypeParameters are the generic parameters declared by the method itself.
func (m *Method) TypeParameters() []*GenericParameter { return m.typeParams }

// IsExtensionMethod reports whether the method is a classic extension
// method: static, with its receiver as the literal first parameter.
func (m *Method) IsExtensionMethod() bool {
	return m.raw.Modifiers.Has(descriptor.ExtensionMethod)
}

func (m *Method) Virtuality() Virtuality {
	m.resolveVirtual(m, m.raw, m.repo)
	return m.virtuality
}

func (m *Method) Overridden() Member {
	m.resolveVirtual(m, m.raw, m.repo)
	return m.overridden
}

func (m *Method) Implemented() Member {
	m.resolveImplemented(m, m.repo)
	return m.implemented
}

// GenericDefinition resolves the structurally matching method on the open
// definition when the method is declared on a constructed generic type; nil
// otherwise.
func (m *Method) GenericDefinition() Member {
	m.resolveGenericDef(m, m.repo)
	return m.genericDef
}

// Operator is a user-defined operator, including conversion operators whose
// identity depends on the return type.
type Operator struct {
	memberShell
	virtualShell
}

func (m *Operator) Kind() MemberKind { return descriptor.Operator }

func (m *Operator) Virtuality() Virtuality {
	m.resolveVirtual(m, m.raw, m.repo)
	return m.virtuality
}

func (m *Operator) Overridden() Member {
	m.resolveVirtual(m, m.raw, m.repo)
	return m.overridden
}

func (m *Operator) Implemented() Member {
	m.resolveImplemented(m, m.repo)
	return m.implemented
}

func (m *Operator) GenericDefinition() Member {
	m.resolveGenericDef(m, m.repo)
	return m.genericDef
}

// Property is a value accessor member; indexers carry their index parameters
// in Parameters and their value type in Result.
type Property struct {
	memberShell
	virtualShell
}

func (m *Property) Kind() MemberKind { return descriptor.Property }

func (m *Property) Virtuality() Virtuality {
	m.resolveVirtual(m, m.raw, m.repo)
	return m.virtuality
}

func (m *Property) Overridden() Member {
	m.resolveVirtual(m, m.raw, m.repo)
	return m.overridden
}

func (m *Property) Implemented() Member {
	m.resolveImplemented(m, m.repo)
	return m.implemented
}

func (m *Property) GenericDefinition() Member {
	m.resolveGenericDef(m, m.repo)
	return m.genericDef
}

// Event is a subscription member; Result is the handler delegate type.
type Event struct {
	memberShell
	virtualShell
}

func (m *Event) Kind() MemberKind { return descriptor.Event }

func (m *Event) Virtuality() Virtuality {
	m.resolveVirtual(m, m.raw, m.repo)
	return m.virtuality
}

func (m *Event) Overridden() Member {
	m.resolveVirtual(m, m.raw, m.repo)
	return m.overridden
}

func (m *Event) Implemented() Member {
	m.resolveImplemented(m, m.repo)
	return m.implemented
}

func (m *Event) GenericDefinition() Member {
	m.resolveGenericDef(m, m.repo)
	return m.genericDef
}

// Field is a stored value member; Result is the field type.
type Field struct {
	memberShell
}

func (m *Field) Kind() MemberKind { return descriptor.Field }

// fillMember resolves the structural fields of a freshly allocated member
// shell within its construction session.
func (r *Repository) fillMember(m Member, raw *descriptor.Member, s *buildSession) error {
	shell := memberShellOf(m)
	declaring, err := r.typeOf(raw.Declaring, s)
	if err != nil {
		return fmt.Errorf("declaring type of %s: %w", raw.Name, err)
	}
	shell.declaring = declaring

	if mm, ok := m.(*Method); ok {
		for _, rp := range raw.TypeParams {
			p, err := r.typeOf(rp, s)
			if err != nil {
				return fmt.Errorf("type parameter of %s: %w", raw.Name, err)
			}
			gp, ok := p.(*GenericParameter)
			if !ok {
				return fmt.Errorf("type parameter of %s: %w: not a generic parameter", raw.Name, ErrInvalidArgument)
			}
			mm.typeParams = append(mm.typeParams, gp)
		}
	}

	for _, rp := range raw.Params {
		p, err := r.parameterOf(rp, s)
		if err != nil {
			return fmt.Errorf("parameter %s of %s: %w", rp.Name, raw.Name, err)
		}
		shell.params = append(shell.params, p)
	}
	if raw.Result != nil {
		res, err := r.typeOf(raw.Result, s)
		if err != nil {
			return fmt.Errorf("result of %s: %w", raw.Name, err)
		}
		shell.result = res
	}
	attrs, err := r.attributesOf(raw.Attributes, s)
	if err != nil {
		return fmt.Errorf("attributes of %s: %w", raw.Name, err)
	}
	shell.attrs = attrs
	return nil
}

func (r *Repository) parameterOf(raw *descriptor.Param, s *buildSession) (*Parameter, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil parameter", ErrInvalidArgument)
	}
	typ, err := r.typeOf(raw.Type, s)
	if err != nil {
		return nil, err
	}
	return &Parameter{raw: raw, typ: typ}, nil
}

// memberShellOf extracts the identity shell of any member variant.
func memberShellOf(m Member) *memberShell {
	switch v := m.(type) {
	case *Constructor:
		return &v.memberShell
	case *Method:
		return &v.memberShell
	case *Operator:
		return &v.memberShell
	case *Property:
		return &v.memberShell
	case *Event:
		return &v.memberShell
	case *Field:
		return &v.memberShell
	default:
		return nil
	}
}
