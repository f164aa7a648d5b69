package abi

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrUnrecognizedType is returned when a type string matches no ABI grammar rule.
var ErrUnrecognizedType = errors.New("unrecognized ABI type")

// MaxFixedElements bounds the number of values a type's default holds
// across all fixed-array dimensions and tuple components. Larger types are
// rejected so a pasted ABI cannot allocate without limit.
const MaxFixedElements = 4096

// ZeroAddress is the default value of an address parameter.
var ZeroAddress = common.Address{}.Hex()

// Kind is the semantic kind of an ABI type.
type Kind int

const (
	KindInvalid Kind = iota
	KindAddress
	KindBool
	KindUint
	KindInt
	KindBytes      // dynamic bytes
	KindFixedBytes // bytes1..bytes32
	KindString
	KindSlice // T[]
	KindArray // T[N]
	KindTuple
)

var kindNames = map[Kind]string{
	KindInvalid:    "invalid",
	KindAddress:    "address",
	KindBool:       "bool",
	KindUint:       "uint",
	KindInt:        "int",
	KindBytes:      "bytes",
	KindFixedBytes: "fixedbytes",
	KindString:     "string",
	KindSlice:      "slice",
	KindArray:      "array",
	KindTuple:      "tuple",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Type is a parsed ABI type.
//
// Size is the bit width for uint/int, the byte length for fixed bytes and the
// element count for fixed arrays.
type Type struct {
	Kind       Kind
	Size       int
	Elem       *Type
	Components []Type
	Names      []string // component names, parallel to Components

	geth gethabi.Type
}

// String returns the canonical type name, e.g. "uint256[]" or "(address,bool)".
func (t Type) String() string {
	return t.geth.String()
}

var typePattern = regexp.MustCompile(`^(address|bool|string|tuple|bytes(?:[1-9][0-9]?)?|u?int(?:[1-9][0-9]{0,2})?)((?:\[(?:[1-9][0-9]*)?\])*)$`)

// ParseType resolves a type string to its semantic kind. Tuple types need
// their components and must go through ParseParam.
func ParseType(t string) (Type, error) {
	return ParseParam(Param{Type: t})
}

// ParseParam resolves a parameter (including tuple components) to its
// semantic kind.
func ParseParam(p Param) (Type, error) {
	raw := strings.TrimSpace(p.Type)
	m := typePattern.FindStringSubmatch(raw)
	if m == nil {
		return Type{}, fmt.Errorf("%w: %q", ErrUnrecognizedType, p.Type)
	}
	base, suffix := m[1], m[2]
	switch base {
	case "uint":
		base = "uint256"
	case "int":
		base = "int256"
	}

	gt, err := gethabi.NewType(base+suffix, "", marshaling(p.Components))
	if err != nil {
		return Type{}, fmt.Errorf("%w: %q: %v", ErrUnrecognizedType, p.Type, err)
	}
	typ, err := fromGeth(gt, p.Components)
	if err != nil {
		return Type{}, fmt.Errorf("%w: %q: %v", ErrUnrecognizedType, p.Type, err)
	}
	if typ.width() > MaxFixedElements {
		return Type{}, fmt.Errorf("%w: %q holds more than %d values", ErrUnrecognizedType, p.Type, MaxFixedElements)
	}
	return typ, nil
}

// width counts the leaf values of the default, saturating just above
// MaxFixedElements. A dynamic slice counts as one element.
func (t Type) width() int {
	const over = MaxFixedElements + 1
	switch t.Kind {
	case KindSlice:
		return t.Elem.width()
	case KindArray:
		w := t.Elem.width()
		if t.Size > 0 && w > over/t.Size {
			return over
		}
		return min(t.Size*w, over)
	case KindTuple:
		n := 0
		for _, c := range t.Components {
			n = min(n+c.width(), over)
		}
		return n
	}
	return 1
}

// marshaling converts components for go-ethereum. Field names are
// synthesized because anonymous or underscored names are rejected there;
// the real names are kept in Type.Names.
func marshaling(components []Param) []gethabi.ArgumentMarshaling {
	if len(components) == 0 {
		return nil
	}
	out := make([]gethabi.ArgumentMarshaling, len(components))
	for i, c := range components {
		out[i] = gethabi.ArgumentMarshaling{
			Name:       fmt.Sprintf("field%d", i),
			Type:       canonicalBase(c.Type),
			Components: marshaling(c.Components),
		}
	}
	return out
}

func canonicalBase(t string) string {
	t = strings.TrimSpace(t)
	if m := typePattern.FindStringSubmatch(t); m != nil {
		switch m[1] {
		case "uint":
			return "uint256" + m[2]
		case "int":
			return "int256" + m[2]
		}
	}
	return t
}

func fromGeth(gt gethabi.Type, components []Param) (Type, error) {
	typ := Type{geth: gt}
	switch gt.T {
	case gethabi.AddressTy:
		typ.Kind = KindAddress
	case gethabi.BoolTy:
		typ.Kind = KindBool
	case gethabi.StringTy:
		typ.Kind = KindString
	case gethabi.BytesTy:
		typ.Kind = KindBytes
	case gethabi.FixedBytesTy:
		typ.Kind = KindFixedBytes
		typ.Size = gt.Size
	case gethabi.UintTy, gethabi.IntTy:
		if gt.Size < 8 || gt.Size > 256 || gt.Size%8 != 0 {
			return Type{}, fmt.Errorf("invalid integer width %d", gt.Size)
		}
		typ.Kind = KindUint
		if gt.T == gethabi.IntTy {
			typ.Kind = KindInt
		}
		typ.Size = gt.Size
	case gethabi.SliceTy, gethabi.ArrayTy:
		elem, err := fromGeth(*gt.Elem, components)
		if err != nil {
			return Type{}, err
		}
		typ.Elem = &elem
		typ.Kind = KindSlice
		if gt.T == gethabi.ArrayTy {
			typ.Kind = KindArray
			typ.Size = gt.Size
		}
	case gethabi.TupleTy:
		if len(gt.TupleElems) == 0 || len(gt.TupleElems) != len(components) {
			return Type{}, errors.New("tuple without components")
		}
		typ.Kind = KindTuple
		typ.Components = make([]Type, len(gt.TupleElems))
		typ.Names = make([]string, len(gt.TupleElems))
		for i, elem := range gt.TupleElems {
			c, err := fromGeth(*elem, components[i].Components)
			if err != nil {
				return Type{}, err
			}
			typ.Components[i] = c
			typ.Names[i] = components[i].Name
		}
	default:
		return Type{}, fmt.Errorf("unsupported type %s", gt.String())
	}
	return typ, nil
}

// Default returns a freshly allocated default value for the type:
//
//	address     zero address string
//	bool        false
//	uint/int    *big.Int zero
//	bytes       empty []byte, or N zero bytes for bytesN
//	string      ""
//	T[]         empty []any
//	T[N]        []any of N element defaults
//	tuple       []any of component defaults
func (t Type) Default() any {
	switch t.Kind {
	case KindAddress:
		return ZeroAddress
	case KindBool:
		return false
	case KindUint, KindInt:
		return new(big.Int)
	case KindBytes:
		return []byte{}
	case KindFixedBytes:
		return make([]byte, t.Size)
	case KindString:
		return ""
	case KindSlice:
		return []any{}
	case KindArray:
		out := make([]any, t.Size)
		for i := range out {
			out[i] = t.Elem.Default()
		}
		return out
	case KindTuple:
		out := make([]any, len(t.Components))
		for i, c := range t.Components {
			out[i] = c.Default()
		}
		return out
	}
	return nil
}
