package abi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru"
)

// Validation errors.
var (
	ErrMalformedJSON   = errors.New("malformed JSON")
	ErrInvalidABIShape = errors.New("invalid ABI shape")
)

// Contract is one compiled contract from a combined compiler output.
type Contract struct {
	Name    string
	ABI     []Entry
	ABIText string
	Code    string // 0x-prefixed deployment bytecode
}

// Document is the validated form of raw ABI text. For a plain ABI array
// Contracts is empty; for combined compiler output Entries and Code follow
// the selected contract.
type Document struct {
	Entries   []Entry
	Contracts []Contract
	Selected  int
}

// IsCombined reports whether the document came from combined compiler output.
func (d *Document) IsCombined() bool {
	return len(d.Contracts) > 0
}

// Code returns the selected contract's bytecode, or "" for a plain ABI.
func (d *Document) Code() string {
	if !d.IsCombined() {
		return ""
	}
	return d.Contracts[d.Selected].Code
}

// ContractName returns the selected contract's name, or "" for a plain ABI.
func (d *Document) ContractName() string {
	if !d.IsCombined() {
		return ""
	}
	return d.Contracts[d.Selected].Name
}

// Select returns a copy of the document with contract i selected.
func (d *Document) Select(i int) (*Document, error) {
	if i < 0 || i >= len(d.Contracts) {
		return nil, fmt.Errorf("contract index %d out of range (have %d)", i, len(d.Contracts))
	}
	return &Document{
		Entries:   d.Contracts[i].ABI,
		Contracts: d.Contracts,
		Selected:  i,
	}, nil
}

// SelectByName returns a copy of the document with the named contract selected.
func (d *Document) SelectByName(name string) (*Document, error) {
	for i, c := range d.Contracts {
		if c.Name == name {
			return d.Select(i)
		}
	}
	return nil, fmt.Errorf("contract %q not found in compiler output", name)
}

// Constructor returns the constructor entry, or nil when the ABI has none.
// A missing constructor is not an error: deployment takes no parameters.
func (d *Document) Constructor() *Entry {
	for i := range d.Entries {
		if d.Entries[i].Type == KindConstructor {
			return &d.Entries[i]
		}
	}
	return nil
}

// Functions returns all entries of type function in source order.
func (d *Document) Functions() []Entry {
	var out []Entry
	for _, e := range d.Entries {
		if e.Type == KindFunction {
			out = append(out, e)
		}
	}
	return out
}

// Validate parses raw text as an ABI array. When that fails it falls back to
// the combined-output shape {"contracts":{name:{"abi":...,"bin":...}}} and
// selects the first contract. If both fail, the combined-output error is
// returned for an object with a contracts key and the primary error
// otherwise.
func Validate(raw string) (*Document, error) {
	entries, err := ParseEntries([]byte(raw))
	if err == nil {
		return &Document{Entries: entries}, nil
	}
	doc, cerr := parseCombined([]byte(raw))
	if cerr != nil {
		if hasContracts([]byte(raw)) {
			return nil, cerr
		}
		return nil, err
	}
	return doc, nil
}

func hasContracts(data []byte) bool {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return false
	}
	_, ok := top["contracts"]
	return ok
}

// ParseEntries parses a JSON ABI array, keeping source order.
func ParseEntries(data []byte) ([]Entry, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected an array of descriptors, got %s", ErrInvalidABIShape, jsonKind(doc))
	}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d is %s, not an object", ErrInvalidABIShape, i, jsonKind(item))
		}
		typ, ok := obj["type"].(string)
		if !ok || typ == "" {
			return nil, fmt.Errorf("%w: entry %d has no type", ErrInvalidABIShape, i)
		}
	}

	entries := make([]Entry, 0, len(items))
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidABIShape, err)
	}
	return entries, nil
}

func parseCombined(data []byte) (*Document, error) {
	var out struct {
		Contracts json.RawMessage `json:"contracts"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if len(out.Contracts) == 0 {
		return nil, fmt.Errorf("%w: no contracts in compiler output", ErrInvalidABIShape)
	}

	names, err := objectKeys(out.Contracts)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no contracts in compiler output", ErrInvalidABIShape)
	}

	var byName map[string]struct {
		ABI json.RawMessage `json:"abi"`
		Bin string          `json:"bin"`
	}
	if err := json.Unmarshal(out.Contracts, &byName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidABIShape, err)
	}

	doc := &Document{Contracts: make([]Contract, 0, len(names))}
	for _, name := range names {
		c := byName[name]
		text, err := abiText(c.ABI)
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", name, err)
		}
		entries, err := ParseEntries([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", name, err)
		}
		doc.Contracts = append(doc.Contracts, Contract{
			Name:    name,
			ABI:     entries,
			ABIText: text,
			Code:    PrefixHex(c.Bin),
		})
	}
	doc.Entries = doc.Contracts[0].ABI
	return doc, nil
}

// abiText accepts both encodings compilers use for the abi field: a JSON
// string holding the array, or the array itself.
func abiText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: missing abi", ErrInvalidABIShape)
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		return s, nil
	}
	return string(raw), nil
}

// objectKeys returns the keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: contracts is not an object", ErrInvalidABIShape)
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected token %v", ErrMalformedJSON, tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// PrefixHex adds a 0x prefix when missing.
func PrefixHex(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	}
	return fmt.Sprintf("%T", v)
}

// Validator memoizes Validate results by raw text so it can run on every
// keystroke of an ABI field.
type Validator struct {
	cache *lru.Cache
}

type validation struct {
	doc *Document
	err error
}

// NewValidator creates a Validator holding up to size results.
func NewValidator(size int) (*Validator, error) {
	if size <= 0 {
		size = 64
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("creating ABI cache: %w", err)
	}
	return &Validator{cache: cache}, nil
}

// Validate is Validate with memoization. Returned documents are shared and
// must not be mutated.
func (v *Validator) Validate(raw string) (*Document, error) {
	if cached, ok := v.cache.Get(raw); ok {
		r := cached.(validation)
		return r.doc, r.err
	}
	doc, err := Validate(raw)
	v.cache.Add(raw, validation{doc: doc, err: err})
	return doc, err
}
