package abi

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Entry kinds as they appear in the "type" field of an ABI descriptor.
const (
	KindFunction    = "function"
	KindConstructor = "constructor"
	KindEvent       = "event"
	KindFallback    = "fallback"
	KindReceive     = "receive"
	KindError       = "error"
)

// Entry is one descriptor from a contract ABI. Entries are treated as
// immutable once parsed.
type Entry struct {
	Type            string  `json:"type"`
	Name            string  `json:"name,omitempty"`
	Inputs          []Param `json:"inputs"`
	Outputs         []Param `json:"outputs,omitempty"`
	StateMutability string  `json:"stateMutability,omitempty"`
	Constant        bool    `json:"constant,omitempty"`
	Payable         bool    `json:"payable,omitempty"`
	Anonymous       bool    `json:"anonymous,omitempty"`
}

// Param is a parameter in an ABI entry.
type Param struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	InternalType string  `json:"internalType,omitempty"`
	Components   []Param `json:"components,omitempty"`
	Indexed      bool    `json:"indexed,omitempty"`
}

// IsConstant reports whether calling the entry cannot change state.
// Older ABIs carry the "constant" flag, newer ones a state mutability.
func (e Entry) IsConstant() bool {
	return e.Constant || e.StateMutability == "view" || e.StateMutability == "pure"
}

// IsPayable reports whether the entry accepts a value transfer.
func (e Entry) IsPayable() bool {
	return e.Payable || e.StateMutability == "payable"
}

// Signature returns name(type1,type2,...) using canonical type names, which
// is what distinguishes overloads.
func (e Entry) Signature() string {
	types := make([]string, len(e.Inputs))
	for i, p := range e.Inputs {
		types[i] = canonicalTypeName(p)
	}
	return e.Name + "(" + strings.Join(types, ",") + ")"
}

// Selector returns the 4-byte function selector as 0x-prefixed hex.
func (e Entry) Selector() string {
	return "0x" + hex.EncodeToString(e.selectorBytes())
}

func (e Entry) selectorBytes() []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(e.Signature()))
	return h.Sum(nil)[:4]
}

// Label renders the entry for a picker: transfer(to: address, value: uint256).
func (e Entry) Label() string {
	parts := make([]string, len(e.Inputs))
	for i, p := range e.Inputs {
		if p.Name != "" {
			parts[i] = p.Name + ": " + p.Type
		} else {
			parts[i] = p.Type
		}
	}
	name := e.Name
	if name == "" {
		name = e.Type
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

// canonicalTypeName falls back to the raw type string when the parameter
// cannot be parsed; such entries never make it to submission anyway.
func canonicalTypeName(p Param) string {
	t, err := ParseParam(p)
	if err != nil {
		return p.Type
	}
	return t.String()
}
