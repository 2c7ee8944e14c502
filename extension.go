package metakit

import (
	"strings"

	"github.com/kampute/metakit/descriptor"
)

// ExtensionGroup is one receiver-relative view of extension members: the
// receiver parameter, the generic parameters it depends on, and the
// normalized member views the group contributes to the receiver type.
type ExtensionGroup struct {
	receiver   *Parameter
	typeParams []*GenericParameter
	members    []*ExtensionMember
}

func (g *ExtensionGroup) Receiver() *Parameter                { return g.receiver }
func (g *ExtensionGroup) TypeParameters() []*GenericParameter { return g.typeParams }
func (g *ExtensionGroup) Members() []*ExtensionMember         { return g.members }

// ExtensionMember is a normalized view over one or more underlying static
// implementation methods: the receiver is reported separately and the
// remaining parameters keep their order, so the member reads as if declared
// on the receiver type. Cref and declaring type come from the first
// underlying method, which is what a documentation consumer links to.
type ExtensionMember struct {
	kind     MemberKind
	name     string
	receiver *Parameter
	params   []*Parameter
	result   Type

	underlying []*Method
}

func (m *ExtensionMember) Kind() MemberKind         { return m.kind }
func (m *ExtensionMember) Name() string             { return m.name }
func (m *ExtensionMember) Receiver() *Parameter     { return m.receiver }
func (m *ExtensionMember) Parameters() []*Parameter { return m.params }
func (m *ExtensionMember) Result() Type             { return m.result }
func (m *ExtensionMember) Underlying() []*Method    { return m.underlying }
func (m *ExtensionMember) Declaring() Type          { return m.underlying[0].Declaring() }
func (m *ExtensionMember) Visibility() Visibility   { return m.underlying[0].Visibility() }
func (m *ExtensionMember) IsStatic() bool           { return false }
func (m *ExtensionMember) Cref() string             { return m.underlying[0].Cref() }
func (m *ExtensionMember) isMember()                {}

func (m *ExtensionMember) IsCompilerGenerated() bool {
	return m.underlying[0].IsCompilerGenerated()
}

// implGroup is one claimable unit in the implementation pool: a single
// static method, or the accessor pair of one synthesized property, keyed by
// the stripped accessor name.
type implGroup struct {
	name     string // accessor prefix stripped
	kind     MemberKind
	receiver *Parameter // literal first parameter
	params   []*Parameter
	result   Type
	methods  []*Method
	claimed  bool
}

// normalizeExtensions unifies the two extension source shapes a static class
// can carry into receiver-relative groups:
//
//  1. Extension-block members: for each block member stub, the one unclaimed
//     implementation group whose name, return/value type and parameter shape
//     match (the block's implicit receiver standing as parameter zero) is
//     claimed, removed from the pool, and wrapped so the receiver reports
//     separately. A stub with no matching group is skipped, not errored.
//  2. Classic extension methods: any still-unclaimed, still-extension-marked
//     static method becomes its own group with its literal first parameter
//     as the receiver.
//
// Claiming is first-match-first-served, so no two stubs ever normalize to
// the same underlying group.
func (r *Repository) normalizeExtensions(t *Class) []*ExtensionGroup {
	raw := t.raw
	if len(raw.ExtensionBlocks) == 0 && !hasExtensionMethods(t) {
		return nil
	}
	pool := buildImplPool(t)
	var out []*ExtensionGroup

	for _, blk := range raw.ExtensionBlocks {
		g, err := r.blockGroup(t, blk, pool)
		if err != nil {
			continue // defective block record; tolerated like a missing stub match
		}
		if g != nil {
			out = append(out, g)
		}
	}

	for _, ig := range pool {
		if ig.claimed || len(ig.methods) != 1 {
			continue
		}
		m := ig.methods[0]
		if !m.IsExtensionMethod() || len(m.Parameters()) == 0 {
			continue
		}
		ig.claimed = true
		recv := m.Parameters()[0]
		out = append(out, &ExtensionGroup{
			receiver:   recv,
			typeParams: m.TypeParameters(),
			members: []*ExtensionMember{{
				kind:       descriptor.Method,
				name:       m.Name(),
				receiver:   recv,
				params:     m.Parameters()[1:],
				result:     m.Result(),
				underlying: []*Method{m},
			}},
		})
	}
	return out
}

func hasExtensionMethods(t *Class) bool {
	for _, m := range t.Methods() {
		if m.IsExtensionMethod() {
			return true
		}
	}
	return false
}

// buildImplPool groups the class's static methods into claimable units.
// Accessor methods (get_/set_ prefixes) taking the same receiver and value
// shape fuse into one property group under the stripped name; every other
// method is its own group.
func buildImplPool(t *Class) []*implGroup {
	var pool []*implGroup
	props := make(map[string]*implGroup)

	for _, m := range t.Methods() {
		if !m.IsStatic() || len(m.Parameters()) == 0 {
			continue
		}
		recv := m.Parameters()[0]
		if stripped, isGet, ok := accessorName(m.Name()); ok {
			valueType, indexParams := accessorShape(m, isGet)
			if valueType == nil {
				continue
			}
			key := stripped + "\x00" + recv.Type().Signature() + "\x00" + valueType.Signature()
			g, exists := props[key]
			if !exists {
				g = &implGroup{
					name:     stripped,
					kind:     descriptor.Property,
					receiver: recv,
					params:   indexParams,
					result:   valueType,
				}
				props[key] = g
				pool = append(pool, g)
			}
			g.methods = append(g.methods, m)
			continue
		}
		pool = append(pool, &implGroup{
			name:     m.Name(),
			kind:     descriptor.Method,
			receiver: recv,
			params:   m.Parameters()[1:],
			result:   m.Result(),
			methods:  []*Method{m},
		})
	}
	return pool
}

// accessorName strips a property accessor prefix, reporting whether the name
// had one and which accessor it was.
func accessorName(name string) (stripped string, isGet, ok bool) {
	if s, found := strings.CutPrefix(name, "get_"); found && s != "" {
		return s, true, true
	}
	if s, found := strings.CutPrefix(name, "set_"); found && s != "" {
		return s, false, true
	}
	return "", false, false
}

// accessorShape derives the property value type and index parameters from an
// accessor method, with the receiver already occupying parameter zero. A get
// accessor yields its return type; a set accessor yields its trailing value
// parameter's type.
func accessorShape(m *Method, isGet bool) (valueType Type, indexParams []*Parameter) {
	rest := m.Parameters()[1:]
	if isGet {
		return m.Result(), rest
	}
	if len(rest) == 0 {
		return nil, nil
	}
	return rest[len(rest)-1].Type(), rest[:len(rest)-1]
}

// blockGroup matches an extension block's member stubs against the
// implementation pool and wraps the claims into one group.
func (r *Repository) blockGroup(t *Class, blk *descriptor.ExtensionBlock, pool []*implGroup) (*ExtensionGroup, error) {
	recv, err := r.parameterOf(blk.Receiver, nil)
	if err != nil {
		return nil, err
	}
	var typeParams []*GenericParameter
	for _, rp := range blk.TypeParams {
		p, err := r.TypeOf(rp)
		if err != nil {
			return nil, err
		}
		if gp, ok := p.(*GenericParameter); ok {
			typeParams = append(typeParams, gp)
		}
	}
	g := &ExtensionGroup{receiver: recv, typeParams: typeParams}
	for _, stub := range blk.Members {
		ig := r.claimGroup(pool, recv, stub)
		if ig == nil {
			continue // partial declaration; deliberately tolerated
		}
		g.members = append(g.members, &ExtensionMember{
			kind:       stub.Kind,
			name:       stub.Name,
			receiver:   recv,
			params:     ig.params,
			result:     ig.result,
			underlying: ig.methods,
		})
	}
	if len(g.members) == 0 {
		return nil, nil
	}
	return g, nil
}

// claimGroup finds and claims the first unclaimed pool group matching a
// stub's name, value type and parameter shape, the block's implicit receiver
// standing as parameter zero of the implementation.
func (r *Repository) claimGroup(pool []*implGroup, recv *Parameter, stub *descriptor.Member) *implGroup {
	var stubResult Type
	if stub.Result != nil {
		t, err := r.TypeOf(stub.Result)
		if err != nil {
			return nil
		}
		stubResult = t
	}
	for _, ig := range pool {
		if ig.claimed || ig.name != stub.Name {
			continue
		}
		if stub.Kind == descriptor.Property && ig.kind != descriptor.Property {
			continue
		}
		if stub.Kind != descriptor.Property && ig.kind != descriptor.Method {
			continue
		}
		if !r.typesCorrespond(stubResult, ig.result) {
			continue
		}
		if !r.receiverCorresponds(recv, ig.receiver) {
			continue
		}
		if !r.stubParamsCorrespond(stub.Params, ig.params) {
			continue
		}
		ig.claimed = true
		return ig
	}
	return nil
}

func (r *Repository) receiverCorresponds(stub, impl *Parameter) bool {
	return r.typesCorrespond(stub.Type(), impl.Type())
}

func (r *Repository) stubParamsCorrespond(stub []*descriptor.Param, impl []*Parameter) bool {
	if len(stub) != len(impl) {
		return false
	}
	for i, sp := range stub {
		st, err := r.TypeOf(sp.Type)
		if err != nil {
			return false
		}
		if sp.RefKind != impl[i].RefKind() {
			return false
		}
		if !r.typesCorrespond(st, impl[i].Type()) {
			return false
		}
	}
	return true
}

// typesCorrespond compares a stub-side type against an implementation-side
// type. Exact signature equality decides concrete types; generic parameters
// correspond positionally, because the block's parameters and the lowered
// method's parameters are distinct records of the same declaration.
func (r *Repository) typesCorrespond(stub, impl Type) bool {
	if stub == nil || impl == nil {
		return stub == nil && impl == nil
	}
	sp, sok := stub.(*GenericParameter)
	ip, iok := impl.(*GenericParameter)
	if sok && iok {
		return sp.Position() == ip.Position()
	}
	if sok != iok {
		return false
	}
	sg, sgo := stub.(GenericType)
	ig, igo := impl.(GenericType)
	if sgo && igo && sg.IsConstructed() && ig.IsConstructed() {
		if sg.Definition() != ig.Definition() {
			return false
		}
		sa, ia := sg.TypeArguments(), ig.TypeArguments()
		if len(sa) != len(ia) {
			return false
		}
		for i := range sa {
			if !r.typesCorrespond(sa[i], ia[i]) {
				return false
			}
		}
		return true
	}
	return stub.Signature() == impl.Signature()
}
