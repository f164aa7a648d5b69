package form

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Mohsinsiddi/w3wizard/internal/abi"
)

// Field errors.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidNumber  = errors.New("invalid number")
	ErrInvalidValue   = errors.New("invalid value")
)

// Coerce converts raw user input to the value representation of typ (the
// same representation abi.Type.Default produces). Composite kinds take a
// JSON array, e.g. ["0xabc...", "0xdef..."] or [1, true].
func Coerce(typ abi.Type, raw string) (any, error) {
	switch typ.Kind {
	case abi.KindAddress:
		return coerceAddress(raw)
	case abi.KindUint, abi.KindInt:
		return coerceInteger(typ, raw)
	case abi.KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, raw)
		}
		return b, nil
	case abi.KindString:
		return raw, nil
	case abi.KindBytes:
		return coerceBytes(raw, -1)
	case abi.KindFixedBytes:
		return coerceBytes(raw, typ.Size)
	case abi.KindSlice, abi.KindArray, abi.KindTuple:
		if strings.TrimSpace(raw) == "" {
			return typ.Default(), nil
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: expected a JSON array: %v", ErrInvalidValue, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("%w: trailing data after JSON array", ErrInvalidValue)
		}
		return coerceJSON(typ, v)
	}
	return nil, fmt.Errorf("%w: %s", abi.ErrUnrecognizedType, typ.Kind)
}

// coerceJSON converts a decoded JSON value. Scalars go through Coerce so
// element validation matches top-level validation.
func coerceJSON(typ abi.Type, v any) (any, error) {
	switch typ.Kind {
	case abi.KindSlice, abi.KindArray, abi.KindTuple:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected a JSON array for %s", ErrInvalidValue, typ)
		}
		var elemType func(int) abi.Type
		switch typ.Kind {
		case abi.KindArray:
			if len(items) != typ.Size {
				return nil, fmt.Errorf("%w: %s needs %d elements, got %d", ErrInvalidValue, typ, typ.Size, len(items))
			}
			elemType = func(int) abi.Type { return *typ.Elem }
		case abi.KindTuple:
			if len(items) != len(typ.Components) {
				return nil, fmt.Errorf("%w: %s needs %d components, got %d", ErrInvalidValue, typ, len(typ.Components), len(items))
			}
			elemType = func(i int) abi.Type { return typ.Components[i] }
		default:
			elemType = func(int) abi.Type { return *typ.Elem }
		}
		out := make([]any, len(items))
		for i, item := range items {
			c, err := coerceJSON(elemType(i), item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	}

	var raw string
	switch s := v.(type) {
	case string:
		raw = s
	case json.Number:
		raw = s.String()
	case bool:
		raw = strconv.FormatBool(s)
	default:
		return nil, fmt.Errorf("%w: unexpected %T for %s", ErrInvalidValue, v, typ)
	}
	return Coerce(typ, raw)
}

func coerceAddress(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("%w: %q must start with 0x", ErrInvalidAddress, raw)
	}
	if !common.IsHexAddress(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	// Mixed case means the user supplied an EIP-55 checksum; it has to match.
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if common.HexToAddress(s).Hex() != "0x"+body {
			return nil, fmt.Errorf("%w: %q has a bad checksum", ErrInvalidAddress, raw)
		}
	}
	return s, nil
}

func coerceInteger(typ abi.Type, raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidNumber)
	}
	n, ok := parseInteger(s)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidNumber, raw)
	}
	if typ.Kind == abi.KindUint {
		if n.Sign() < 0 {
			return nil, fmt.Errorf("%w: %s must not be negative", ErrInvalidNumber, typ)
		}
		if n.BitLen() > typ.Size {
			return nil, fmt.Errorf("%w: %s does not fit in %s", ErrInvalidNumber, n, typ)
		}
		return n, nil
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(typ.Size-1))
	lowest := new(big.Int).Neg(limit)
	if n.Cmp(lowest) < 0 || n.Cmp(limit) >= 0 {
		return nil, fmt.Errorf("%w: %s does not fit in %s", ErrInvalidNumber, n, typ)
	}
	return n, nil
}

// parseInteger reads an optionally signed decimal, or hex after 0x. A
// leading zero is still decimal, and digit separators and other base
// prefixes are rejected.
func parseInteger(s string) (*big.Int, bool) {
	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 {
		return nil, false
	}
	base := 10
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		base, digits = 16, digits[2:]
	}
	if digits == "" || strings.ContainsAny(digits, "_+-") {
		return nil, false
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, false
	}
	if s[0] == '-' {
		n.Neg(n)
	}
	return n, true
}

// coerceBytes decodes hex with or without 0x. size < 0 means dynamic bytes;
// otherwise the result is right-padded to size.
func coerceBytes(raw string, size int) (any, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "0x" || s == "0X" {
		if size < 0 {
			return []byte{}, nil
		}
		return make([]byte, size), nil
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode("0x" + s[2:])
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not hex: %v", ErrInvalidValue, raw, err)
	}
	if size < 0 {
		return b, nil
	}
	if len(b) > size {
		return nil, fmt.Errorf("%w: %d bytes do not fit in bytes%d", ErrInvalidValue, len(b), size)
	}
	out := make([]byte, size)
	copy(out, b)
	return out, nil
}
