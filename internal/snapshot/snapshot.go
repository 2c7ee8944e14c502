// Package snapshot serializes descriptor graphs with msgpack. Descriptor
// records form an arbitrary pointer graph (self-referential generics are
// the norm, not the exception), so the codec flattens the graph into indexed
// records on encode and rebuilds the pointers on decode.
package snapshot

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kampute/metakit/descriptor"
)

// SchemaVersion is bumped whenever the payload format changes; decoding a
// payload with a different version fails rather than misreading it.
const SchemaVersion uint16 = 1

const nilRef = int32(-1)

// payload is the flat on-disk form: every type and member record appears
// exactly once, and all cross-references are indexes into the two slices.
type payload struct {
	Schema     uint16         `msgpack:"schema"`
	Assemblies []flatAssembly `msgpack:"assemblies"`
	Types      []flatType     `msgpack:"types"`
	Members    []flatMember   `msgpack:"members"`
}

type flatAssembly struct {
	Name    string  `msgpack:"name"`
	Version string  `msgpack:"version"`
	Types   []int32 `msgpack:"types"`
}

type flatType struct {
	Kind       uint8  `msgpack:"kind"`
	Name       string `msgpack:"name"`
	Namespace  string `msgpack:"ns,omitempty"`
	Assembly   int32  `msgpack:"asm"`
	Declaring  int32  `msgpack:"decl"`
	Visibility uint8  `msgpack:"vis,omitempty"`
	Modifiers  uint16 `msgpack:"mods,omitempty"`

	Base       int32           `msgpack:"base"`
	Interfaces []int32         `msgpack:"ifaces,omitempty"`
	Members    []int32         `msgpack:"members,omitempty"`
	Nested     []int32         `msgpack:"nested,omitempty"`
	Attributes []flatAttribute `msgpack:"attrs,omitempty"`
	Underlying int32           `msgpack:"under"`

	Parameters []int32 `msgpack:"params,omitempty"`
	Definition int32   `msgpack:"def"`
	Arguments  []int32 `msgpack:"args,omitempty"`

	Position        int32   `msgpack:"pos,omitempty"`
	Variance        uint8   `msgpack:"var,omitempty"`
	Constraints     uint8   `msgpack:"constr,omitempty"`
	ConstraintTypes []int32 `msgpack:"ctypes,omitempty"`
	DeclaringMember int32   `msgpack:"dmember"`

	Element int32 `msgpack:"elem"`

	Blocks []flatBlock `msgpack:"blocks,omitempty"`
}

type flatMember struct {
	Kind       uint8           `msgpack:"kind"`
	Name       string          `msgpack:"name"`
	Declaring  int32           `msgpack:"decl"`
	Visibility uint8           `msgpack:"vis,omitempty"`
	Modifiers  uint16          `msgpack:"mods,omitempty"`
	Params     []flatParam     `msgpack:"params,omitempty"`
	Result     int32           `msgpack:"result"`
	TypeParams []int32         `msgpack:"tparams,omitempty"`
	Attributes []flatAttribute `msgpack:"attrs,omitempty"`
}

type flatParam struct {
	Name     string `msgpack:"name,omitempty"`
	Position int32  `msgpack:"pos"`
	Type     int32  `msgpack:"type"`
	RefKind  uint8  `msgpack:"ref,omitempty"`
	Optional bool   `msgpack:"opt,omitempty"`
	Default  any    `msgpack:"def,omitempty"`
	Variadic bool   `msgpack:"variadic,omitempty"`
}

type flatAttribute struct {
	Type  int32            `msgpack:"type"`
	Args  []flatTypedValue `msgpack:"args,omitempty"`
	Named []flatNamedValue `msgpack:"named,omitempty"`
}

type flatTypedValue struct {
	Type     int32            `msgpack:"type"`
	Value    any              `msgpack:"value,omitempty"`
	Elements []flatTypedValue `msgpack:"elems,omitempty"`
}

type flatNamedValue struct {
	Name    string         `msgpack:"name"`
	Value   flatTypedValue `msgpack:"value"`
	IsField bool           `msgpack:"field,omitempty"`
}

type flatBlock struct {
	Receiver   flatParam `msgpack:"recv"`
	TypeParams []int32   `msgpack:"tparams,omitempty"`
	Members    []int32   `msgpack:"members,omitempty"`
}

// Encode writes the assemblies and every record reachable from them to w.
func Encode(w io.Writer, assemblies []*descriptor.Assembly) error {
	enc := newEncoder(assemblies)
	p, err := enc.run()
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// Marshal is Encode into a fresh byte slice.
func Marshal(assemblies []*descriptor.Assembly) ([]byte, error) {
	enc := newEncoder(assemblies)
	p, err := enc.run()
	if err != nil {
		return nil, err
	}
	data, err := msgpack.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode reads a payload from r and rebuilds the descriptor pointer graph.
func Decode(r io.Reader) ([]*descriptor.Assembly, error) {
	var p payload
	if err := msgpack.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return rebuild(&p)
}

// Unmarshal is Decode from a byte slice.
func Unmarshal(data []byte) ([]*descriptor.Assembly, error) {
	var p payload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return rebuild(&p)
}
