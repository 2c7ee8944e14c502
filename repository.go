package metakit

import (
	"fmt"
	"sync"

	"github.com/kampute/metakit/descriptor"
)

// Repository is the caller-owned identity cache for one program scope: the
// set of assemblies it was created with. Repeated requests for descriptors
// denoting the same program element return the same object, so every
// downstream comparison can rely on pointer equality.
//
// Get-or-create is safe for concurrent use: exactly one winner constructs a
// given object under a race, and losers receive the winner's instance only
// after its structural fields are complete. All constructed objects are
// immutable after construction except for lazily derived, idempotent
// relations.
type Repository struct {
	assemblies []*descriptor.Assembly
	scope      map[*descriptor.Assembly]struct{}

	buildMu sync.Mutex // serializes construction of new objects

	mu      sync.Mutex // guards the completed maps below
	types   map[string]Type
	members map[string]Member
	byName  map[string]Type // full name -> named open definition or non-generic type
}

// buildSession holds the shells of one in-flight construction. Shells are
// visible to the constructing request only, so a self-referential descriptor
// resolves to its own in-progress shell while concurrent requests never
// observe an object before its structural fields are filled.
type buildSession struct {
	types   map[string]Type
	members map[string]Member
}

func newBuildSession() *buildSession {
	return &buildSession{
		types:   make(map[string]Type),
		members: make(map[string]Member),
	}
}

// commit publishes the session's completed objects to the identity cache.
func (r *Repository) commit(s *buildSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sig, t := range s.types {
		r.types[sig] = t
		shell := shellOf(t)
		if named(shell.raw) {
			r.byName[shell.fullName] = t
		}
	}
	for key, m := range s.members {
		r.members[key] = m
	}
}

// NewRepository creates a repository scoped to the given assemblies. Every
// descriptor later passed to the repository must belong to one of them.
func NewRepository(assemblies ...*descriptor.Assembly) (*Repository, error) {
	if len(assemblies) == 0 {
		return nil, fmt.Errorf("%w: no assemblies", ErrInvalidArgument)
	}
	r := &Repository{
		scope:   make(map[*descriptor.Assembly]struct{}, len(assemblies)),
		types:   make(map[string]Type),
		members: make(map[string]Member),
		byName:  make(map[string]Type),
	}
	for _, asm := range assemblies {
		if asm == nil {
			return nil, fmt.Errorf("%w: nil assembly", ErrInvalidArgument)
		}
		if _, dup := r.scope[asm]; dup {
			continue
		}
		r.scope[asm] = struct{}{}
		r.assemblies = append(r.assemblies, asm)
	}
	return r, nil
}

// Assemblies returns the assemblies forming the repository's program scope,
// in registration order.
func (r *Repository) Assemblies() []*descriptor.Assembly { return r.assemblies }

// TypeOf returns the canonical Type for a raw record, constructing and
// caching it on first request. The record is canonicalized before lookup, so
// a constructed generic shape that merely restates its own definition
// resolves to the definition's object.
func (r *Repository) TypeOf(raw *descriptor.Type) (Type, error) {
	return r.typeOf(raw, nil)
}

// typeOf implements TypeOf. A nil session marks a top-level request: it takes
// the construction lock and commits the session's shells on success, so the
// identity cache only ever hands out fully constructed objects. Recursive
// requests made while filling structural fields carry the session and resolve
// its in-progress shells directly.
func (r *Repository) typeOf(raw *descriptor.Type, s *buildSession) (Type, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil type descriptor", ErrInvalidArgument)
	}
	canon := canonicalize(raw)
	if err := r.checkScope(canon); err != nil {
		return nil, err
	}
	sig := typeSignature(canon)

	if s != nil {
		if t, ok := s.types[sig]; ok {
			return t, nil
		}
		if t := r.typeFor(sig); t != nil {
			return t, nil
		}
		return r.buildType(canon, sig, s)
	}

	if t := r.typeFor(sig); t != nil {
		return t, nil
	}
	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	// Another construction may have finished it while we waited.
	if t := r.typeFor(sig); t != nil {
		return t, nil
	}
	s = newBuildSession()
	t, err := r.buildType(canon, sig, s)
	if err != nil {
		return nil, err
	}
	r.commit(s)
	return t, nil
}

// buildType allocates a shell, registers it with the session so recursive
// references to the same shape terminate, and fills its structural fields.
func (r *Repository) buildType(canon *descriptor.Type, sig string, s *buildSession) (Type, error) {
	t, err := newTypeShell(r, canon, sig)
	if err != nil {
		return nil, err
	}
	s.types[sig] = t
	if err := r.fillType(t, canon, s); err != nil {
		delete(s.types, sig)
		return nil, err
	}
	return t, nil
}

// newTypeShell allocates the variant for a canonicalized record and
// populates its identity fields. Structural fields are resolved afterwards
// by fillType, once the shell is registered with its construction session.
func newTypeShell(r *Repository, raw *descriptor.Type, sig string) (Type, error) {
	shell := typeShell{repo: r, raw: raw, sig: sig, fullName: typeFullName(raw)}
	switch raw.Kind {
	case descriptor.Primitive:
		t := &Primitive{typeShell: shell}
		t.compound.shell = &t.typeShell
		return t, nil
	case descriptor.Class:
		t := &Class{typeShell: shell}
		t.compound.shell = &t.typeShell
		return t, nil
	case descriptor.Struct:
		t := &Struct{typeShell: shell}
		t.compound.shell = &t.typeShell
		return t, nil
	case descriptor.Interface:
		t := &Interface{typeShell: shell}
		t.compound.shell = &t.typeShell
		return t, nil
	case descriptor.Enum:
		t := &Enum{typeShell: shell}
		t.compound.shell = &t.typeShell
		return t, nil
	case descriptor.Delegate:
		t := &Delegate{typeShell: shell}
		t.compound.shell = &t.typeShell
		return t, nil
	case descriptor.GenericParam:
		return &GenericParameter{typeShell: shell}, nil
	case descriptor.Array, descriptor.Pointer, descriptor.ByRef, descriptor.Nullable:
		return &Decorated{typeShell: shell}, nil
	default:
		return nil, fmt.Errorf("%w: type kind %d", ErrNotSupported, raw.Kind)
	}
}

// named reports whether a record owns a stable full name worth indexing:
// named declarations that are not generic parameters, decorations or
// constructions.
func named(raw *descriptor.Type) bool {
	return raw.Kind != descriptor.GenericParam && !raw.Kind.IsDecoration() && raw.Definition == nil
}

// checkScope verifies that the record's owning assembly belongs to the
// repository's program scope.
func (r *Repository) checkScope(raw *descriptor.Type) error {
	asm := owningAssembly(raw)
	if asm == nil {
		return fmt.Errorf("%w: descriptor %q has no assembly", ErrInvalidArgument, typeFullName(raw))
	}
	if _, ok := r.scope[asm]; !ok {
		return fmt.Errorf("%w: assembly %q is outside this repository's scope", ErrInvalidArgument, asm.Name)
	}
	return nil
}

// typeFor returns the cached Type for a canonical signature, nil when the
// signature has not been requested yet.
func (r *Repository) typeFor(sig string) Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.types[sig]
}

// TypeByName returns the named type with the given full name (arity suffix
// included, for example "System.Collections.Generic.List`1") if it has been
// constructed, or looks it up across the scope's assemblies otherwise.
func (r *Repository) TypeByName(fullName string) (Type, bool) {
	r.mu.Lock()
	t, ok := r.byName[fullName]
	r.mu.Unlock()
	if ok {
		return t, true
	}
	for _, asm := range r.assemblies {
		if raw := findRawByName(asm.Types, fullName); raw != nil {
			t, err := r.TypeOf(raw)
			if err != nil {
				return nil, false
			}
			return t, true
		}
	}
	return nil, false
}

func findRawByName(raws []*descriptor.Type, fullName string) *descriptor.Type {
	for _, raw := range raws {
		if typeFullName(raw) == fullName {
			return raw
		}
		if found := findRawByName(raw.Nested, fullName); found != nil {
			return found
		}
	}
	return nil
}

// MemberOf returns the canonical Member for a raw record, constructing and
// caching it on first request. The declaring type is resolved first,
// recursively.
func (r *Repository) MemberOf(raw *descriptor.Member) (Member, error) {
	return r.memberOf(raw, nil)
}

func (r *Repository) memberOf(raw *descriptor.Member, s *buildSession) (Member, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil member descriptor", ErrInvalidArgument)
	}
	if raw.Declaring == nil {
		return nil, fmt.Errorf("%w: member %q has no declaring type", ErrInvalidArgument, raw.Name)
	}
	if err := r.checkScope(raw.Declaring); err != nil {
		return nil, err
	}
	key := memberKey(raw)

	if s != nil {
		if m, ok := s.members[key]; ok {
			return m, nil
		}
		if m := r.memberFor(key); m != nil {
			return m, nil
		}
		return r.buildMember(raw, key, s)
	}

	if m := r.memberFor(key); m != nil {
		return m, nil
	}
	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	if m := r.memberFor(key); m != nil {
		return m, nil
	}
	s = newBuildSession()
	m, err := r.buildMember(raw, key, s)
	if err != nil {
		return nil, err
	}
	r.commit(s)
	return m, nil
}

func (r *Repository) buildMember(raw *descriptor.Member, key string, s *buildSession) (Member, error) {
	m, err := newMemberShell(r, raw, key)
	if err != nil {
		return nil, err
	}
	s.members[key] = m
	if err := r.fillMember(m, raw, s); err != nil {
		delete(s.members, key)
		return nil, err
	}
	return m, nil
}

// memberFor returns the cached Member for a key, nil when the record has not
// been requested yet.
func (r *Repository) memberFor(key string) Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[key]
}

func newMemberShell(r *Repository, raw *descriptor.Member, key string) (Member, error) {
	switch raw.Kind {
	case descriptor.Constructor:
		return &Constructor{memberShell: memberShell{repo: r, raw: raw, key: key}}, nil
	case descriptor.Method:
		return &Method{memberShell: memberShell{repo: r, raw: raw, key: key}}, nil
	case descriptor.Operator:
		return &Operator{memberShell: memberShell{repo: r, raw: raw, key: key}}, nil
	case descriptor.Property:
		return &Property{memberShell: memberShell{repo: r, raw: raw, key: key}}, nil
	case descriptor.Event:
		return &Event{memberShell: memberShell{repo: r, raw: raw, key: key}}, nil
	case descriptor.Field:
		return &Field{memberShell: memberShell{repo: r, raw: raw, key: key}}, nil
	default:
		return nil, fmt.Errorf("%w: member kind %d", ErrNotSupported, raw.Kind)
	}
}

// Typed get-or-create accessors per member category. Each fails with
// ErrInvalidArgument when the record belongs to a different category.

func (r *Repository) ConstructorOf(raw *descriptor.Member) (*Constructor, error) {
	return memberAs[*Constructor](r, raw, descriptor.Constructor)
}

func (r *Repository) MethodOf(raw *descriptor.Member) (*Method, error) {
	return memberAs[*Method](r, raw, descriptor.Method)
}

func (r *Repository) OperatorOf(raw *descriptor.Member) (*Operator, error) {
	return memberAs[*Operator](r, raw, descriptor.Operator)
}

func (r *Repository) PropertyOf(raw *descriptor.Member) (*Property, error) {
	return memberAs[*Property](r, raw, descriptor.Property)
}

func (r *Repository) EventOf(raw *descriptor.Member) (*Event, error) {
	return memberAs[*Event](r, raw, descriptor.Event)
}

func (r *Repository) FieldOf(raw *descriptor.Member) (*Field, error) {
	return memberAs[*Field](r, raw, descriptor.Field)
}

func memberAs[T Member](r *Repository, raw *descriptor.Member, kind descriptor.MemberKind) (T, error) {
	var zero T
	if raw != nil && raw.Kind != kind {
		return zero, fmt.Errorf("%w: %q is a %s, not a %s", ErrInvalidArgument, raw.Name, raw.Kind, kind)
	}
	m, err := r.MemberOf(raw)
	if err != nil {
		return zero, err
	}
	return m.(T), nil
}

// AssemblyTypes constructs and returns every type declared by an assembly,
// nested types included, in declaration order.
func (r *Repository) AssemblyTypes(asm *descriptor.Assembly) ([]Type, error) {
	if asm == nil {
		return nil, fmt.Errorf("%w: nil assembly", ErrInvalidArgument)
	}
	if _, ok := r.scope[asm]; !ok {
		return nil, fmt.Errorf("%w: assembly %q is outside this repository's scope", ErrInvalidArgument, asm.Name)
	}
	var out []Type
	var walk func(raws []*descriptor.Type) error
	walk = func(raws []*descriptor.Type) error {
		for _, raw := range raws {
			t, err := r.TypeOf(raw)
			if err != nil {
				return err
			}
			out = append(out, t)
			if err := walk(raw.Nested); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(asm.Types); err != nil {
		return nil, err
	}
	return out, nil
}

// ExtensionsFor aggregates the normalized extension groups across the whole
// scope whose receiver accepts the given type. A nil result means no static
// class in scope extends it.
func (r *Repository) ExtensionsFor(receiver Type) ([]*ExtensionGroup, error) {
	if receiver == nil {
		return nil, fmt.Errorf("%w: nil receiver", ErrInvalidArgument)
	}
	var out []*ExtensionGroup
	for _, asm := range r.assemblies {
		types, err := r.AssemblyTypes(asm)
		if err != nil {
			return nil, err
		}
		for _, t := range types {
			cls, ok := t.(*Class)
			if !ok || !cls.IsStatic() {
				continue
			}
			for _, g := range cls.ExtensionGroups() {
				if r.receiverAccepts(g.Receiver().Type(), receiver) {
					out = append(out, g)
				}
			}
		}
	}
	return out, nil
}

// receiverAccepts reports whether an extension receiver declared with type
// rt applies to a value of type t.
func (r *Repository) receiverAccepts(rt, t Type) bool {
	if rt == nil || t == nil {
		return false
	}
	if gp, ok := rt.(*GenericParameter); ok {
		return r.IsValidSubstitution(gp, t)
	}
	return r.IsAssignableFrom(rt, t)
}
