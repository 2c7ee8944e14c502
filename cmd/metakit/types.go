package main

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIType is a JSON-friendly type representation.
type CLIType struct {
	FullName      string   `json:"full_name"`
	Name          string   `json:"name"`
	Namespace     string   `json:"namespace,omitempty"`
	Kind          string   `json:"kind"`
	Signature     string   `json:"signature"`
	Visibility    string   `json:"visibility"`
	Assembly      string   `json:"assembly,omitempty"`
	Base          string   `json:"base,omitempty"`
	Interfaces    []string `json:"interfaces,omitempty"`
	Arity         int      `json:"arity,omitempty"`
	Definition    string   `json:"definition,omitempty"`
	TypeArguments []string `json:"type_arguments,omitempty"`
	MemberCount   int      `json:"member_count"`
}

// CLIMember is a JSON-friendly member representation.
type CLIMember struct {
	Cref       string         `json:"cref"`
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Declaring  string         `json:"declaring,omitempty"`
	Visibility string         `json:"visibility"`
	Static     bool           `json:"static"`
	Virtuality string         `json:"virtuality,omitempty"`
	Result     string         `json:"result,omitempty"`
	Parameters []CLIParameter `json:"parameters,omitempty"`
}

// CLIParameter is a JSON-friendly parameter representation.
type CLIParameter struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
	Type     string `json:"type"`
}

// CLISlots describes where a member sits in the virtual and generic
// machinery: the slot it overrides, the interface slot it implements and the
// open definition it instantiates, when any of those exist.
type CLISlots struct {
	Member      CLIMember  `json:"member"`
	Overridden  *CLIMember `json:"overridden,omitempty"`
	Implemented *CLIMember `json:"implemented,omitempty"`
	Definition  *CLIMember `json:"definition,omitempty"`
}

// CLIExtensionGroup is a JSON-friendly extension group representation.
type CLIExtensionGroup struct {
	Receiver string      `json:"receiver"`
	Members  []CLIMember `json:"members"`
}

// CLIEntry is a JSON-friendly cref index entry.
type CLIEntry struct {
	Cref      string `json:"cref"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Declaring string `json:"declaring,omitempty"`
	Assembly  string `json:"assembly"`
}
