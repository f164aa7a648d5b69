package contract

import (
	"fmt"
	"sort"

	"github.com/Mohsinsiddi/w3wizard/internal/abi"
)

// KindCustom marks a watch-list entry whose ABI was supplied by the user.
const KindCustom = "custom"

// BuiltinKind is a contract type whose ABI ships with the binary. Built-ins
// register themselves from init() in their own <id>_abi.go file.
type BuiltinKind struct {
	ID          string // machine key, e.g. "erc20"
	Name        string // human label
	Description string
	ABI         []abi.Entry
	ABIText     string
}

var builtinRegistry = map[string]BuiltinKind{}

// RegisterBuiltin parses abiJSON and adds the built-in to the registry.
// A malformed built-in ABI panics at init.
func RegisterBuiltin(id, name, description, abiJSON string) {
	entries, err := abi.ParseEntries([]byte(abiJSON))
	if err != nil {
		panic(fmt.Sprintf("contract: built-in %q: %v", id, err))
	}
	builtinRegistry[id] = BuiltinKind{
		ID:          id,
		Name:        name,
		Description: description,
		ABI:         entries,
		ABIText:     abiJSON,
	}
}

// GetBuiltin returns a built-in by ID. ok is false if not found.
func GetBuiltin(id string) (BuiltinKind, bool) {
	b, ok := builtinRegistry[id]
	return b, ok
}

// AllBuiltins returns all registered built-ins sorted by ID.
func AllBuiltins() []BuiltinKind {
	out := make([]BuiltinKind, 0, len(builtinRegistry))
	for _, b := range builtinRegistry {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
