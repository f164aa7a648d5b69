package abi

import (
	"fmt"
	"math/big"
	"reflect"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var bigIntType = reflect.TypeOf(&big.Int{})

// PackArgs ABI-encodes values against params. Values use the representation
// produced by Type.Default and the form coercions.
func PackArgs(params []Param, values []any) ([]byte, error) {
	if len(params) != len(values) {
		return nil, fmt.Errorf("expects %d args, got %d", len(params), len(values))
	}
	if len(params) == 0 {
		return nil, nil
	}

	args := make(gethabi.Arguments, len(params))
	packed := make([]any, len(params))
	for i, p := range params {
		typ, err := ParseParam(p)
		if err != nil {
			return nil, fmt.Errorf("param %d (%s): %w", i, p.Name, err)
		}
		v, err := toGeth(typ, values[i])
		if err != nil {
			return nil, fmt.Errorf("param %d (%s): %w", i, p.Name, err)
		}
		args[i] = gethabi.Argument{Name: p.Name, Type: typ.geth}
		packed[i] = v.Interface()
	}
	return args.Pack(packed...)
}

// EncodeCall builds calldata: 4-byte selector followed by the packed inputs.
func EncodeCall(fn Entry, values []any) ([]byte, error) {
	args, err := PackArgs(fn.Inputs, values)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", fn.Signature(), err)
	}
	return append(fn.selectorBytes(), args...), nil
}

// EncodeDeploy builds deployment data: bytecode followed by the packed
// constructor arguments. ctor may be nil.
func EncodeDeploy(code []byte, ctor *Entry, values []any) ([]byte, error) {
	data := make([]byte, len(code))
	copy(data, code)
	if ctor == nil {
		if len(values) != 0 {
			return nil, fmt.Errorf("contract has no constructor but %d args were given", len(values))
		}
		return data, nil
	}
	args, err := PackArgs(ctor.Inputs, values)
	if err != nil {
		return nil, fmt.Errorf("encoding constructor: %w", err)
	}
	return append(data, args...), nil
}

// toGeth converts a value into the Go type go-ethereum expects for typ.
func toGeth(typ Type, v any) (reflect.Value, error) {
	rt := typ.geth.GetType()
	switch typ.Kind {
	case KindAddress:
		s, ok := v.(string)
		if !ok || !common.IsHexAddress(s) {
			return reflect.Value{}, fmt.Errorf("invalid address %v", v)
		}
		return reflect.ValueOf(common.HexToAddress(s)), nil

	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return reflect.Value{}, fmt.Errorf("expected bool, got %T", v)
		}
		return reflect.ValueOf(b), nil

	case KindString:
		s, ok := v.(string)
		if !ok {
			return reflect.Value{}, fmt.Errorf("expected string, got %T", v)
		}
		return reflect.ValueOf(s), nil

	case KindUint, KindInt:
		n, ok := v.(*big.Int)
		if !ok || n == nil {
			return reflect.Value{}, fmt.Errorf("expected integer, got %T", v)
		}
		if rt == bigIntType {
			return reflect.ValueOf(new(big.Int).Set(n)), nil
		}
		out := reflect.New(rt).Elem()
		if typ.Kind == KindUint {
			out.SetUint(n.Uint64())
		} else {
			out.SetInt(n.Int64())
		}
		return out, nil

	case KindBytes:
		b, ok := v.([]byte)
		if !ok {
			return reflect.Value{}, fmt.Errorf("expected bytes, got %T", v)
		}
		return reflect.ValueOf(b), nil

	case KindFixedBytes:
		b, ok := v.([]byte)
		if !ok || len(b) > typ.Size {
			return reflect.Value{}, fmt.Errorf("expected at most %d bytes, got %v", typ.Size, v)
		}
		out := reflect.New(rt).Elem()
		reflect.Copy(out, reflect.ValueOf(b))
		return out, nil

	case KindSlice, KindArray:
		items, ok := v.([]any)
		if !ok {
			return reflect.Value{}, fmt.Errorf("expected list, got %T", v)
		}
		var out reflect.Value
		if typ.Kind == KindSlice {
			out = reflect.MakeSlice(rt, len(items), len(items))
		} else {
			if len(items) != typ.Size {
				return reflect.Value{}, fmt.Errorf("expected %d elements, got %d", typ.Size, len(items))
			}
			out = reflect.New(rt).Elem()
		}
		for i, item := range items {
			ev, err := toGeth(*typ.Elem, item)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(ev)
		}
		return out, nil

	case KindTuple:
		items, ok := v.([]any)
		if !ok || len(items) != len(typ.Components) {
			return reflect.Value{}, fmt.Errorf("expected %d tuple components, got %v", len(typ.Components), v)
		}
		out := reflect.New(rt).Elem()
		for i, item := range items {
			cv, err := toGeth(typ.Components[i], item)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("component %d: %w", i, err)
			}
			out.Field(i).Set(cv)
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnrecognizedType, typ.String())
}
