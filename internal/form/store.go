// Package form holds the values and validation state of an ABI-derived form.
package form

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/go-multierror"

	"github.com/Mohsinsiddi/w3wizard/internal/abi"
	"github.com/Mohsinsiddi/w3wizard/internal/chain"
)

// Field pairs one ABI input with its current value and error. Value holds
// the coerced value when Err is nil and the raw input otherwise.
type Field struct {
	Param abi.Param
	Type  abi.Type
	Raw   string
	Value any
	Err   error
}

// Label is the parameter name, or its position for unnamed parameters.
func (f Field) Label(i int) string {
	if f.Param.Name != "" {
		return f.Param.Name
	}
	return fmt.Sprintf("#%d", i)
}

// State is an immutable snapshot of the form. Every mutation produces a new
// State; earlier snapshots are never modified.
type State struct {
	Function *abi.Entry
	Fields   []Field

	From    string
	FromErr error

	Amount    string   // ether decimal as typed
	Value     *big.Int // Amount in wei
	AmountErr error
}

// ParamsClean reports whether a function is selected and every parameter
// validates.
func (s State) ParamsClean() bool {
	if s.Function == nil {
		return false
	}
	for _, f := range s.Fields {
		if f.Err != nil {
			return false
		}
	}
	return true
}

// Valid is the aggregate validity: all fields clean and no sender or
// amount error.
func (s State) Valid() bool {
	return s.Err() == nil
}

// Err collects every error in the form, or nil when it is valid.
func (s State) Err() error {
	var result *multierror.Error
	if s.Function == nil {
		result = multierror.Append(result, fmt.Errorf("no function selected"))
	}
	for i, f := range s.Fields {
		if f.Err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", f.Label(i), f.Err))
		}
	}
	if s.FromErr != nil {
		result = multierror.Append(result, fmt.Errorf("from: %w", s.FromErr))
	}
	if s.AmountErr != nil {
		result = multierror.Append(result, fmt.Errorf("amount: %w", s.AmountErr))
	}
	return result.ErrorOrNil()
}

// Values returns the field values in input order.
func (s State) Values() []any {
	out := make([]any, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Value
	}
	return out
}

// Change describes what a mutation touched.
type Change struct {
	Reset  bool  // function (re)selected, all fields replaced
	Fields []int // indexes of changed fields
	From   bool
	Amount bool
}

// Listener receives the new state and the change that produced it.
type Listener func(State, Change)

// Store owns the form state for one wizard instance. It is not safe for
// concurrent use; mutations are expected to come from a single event loop.
type Store struct {
	state     State
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a store with no function selected, sender from and a
// zero amount.
func NewStore(from string) *Store {
	s := &Store{
		state:     State{Amount: "0", Value: new(big.Int)},
		listeners: make(map[int]Listener),
	}
	s.state.From, s.state.FromErr = validateFrom(from)
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	return s.state
}

// Subscribe registers fn for every subsequent change and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() { delete(s.listeners, id) }
}

// SelectFunction resets the form to one field per input of entry, each at
// its type's default. Inputs whose type cannot be parsed get a field-level
// abi.ErrUnrecognizedType. A nil entry clears the form.
func (s *Store) SelectFunction(entry *abi.Entry) State {
	next := s.state
	next.Function = entry
	next.Fields = nil

	change := Change{Reset: true}
	if entry != nil {
		next.Fields = make([]Field, len(entry.Inputs))
		change.Fields = make([]int, len(entry.Inputs))
		for i, p := range entry.Inputs {
			f := Field{Param: p}
			typ, err := abi.ParseParam(p)
			if err != nil {
				f.Err = err
			} else {
				f.Type = typ
				f.Value = typ.Default()
			}
			next.Fields[i] = f
			change.Fields[i] = i
		}
	}
	return s.commit(next, change)
}

// SetValue validates raw against field i and stores value and error
// together. i must be within the current field list; anything else is a
// programming error and panics.
func (s *Store) SetValue(i int, raw string) State {
	if i < 0 || i >= len(s.state.Fields) {
		panic(fmt.Sprintf("form: field index %d out of range [0,%d)", i, len(s.state.Fields)))
	}

	next := s.state
	next.Fields = make([]Field, len(s.state.Fields))
	copy(next.Fields, s.state.Fields)

	f := next.Fields[i]
	f.Raw = raw
	if f.Type.Kind == abi.KindInvalid {
		f.Value, f.Err = raw, fmt.Errorf("%w: %q", abi.ErrUnrecognizedType, f.Param.Type)
	} else if v, err := Coerce(f.Type, raw); err != nil {
		f.Value, f.Err = raw, err
	} else {
		f.Value, f.Err = v, nil
	}
	next.Fields[i] = f

	return s.commit(next, Change{Fields: []int{i}})
}

// SetFrom sets and validates the sender address.
func (s *Store) SetFrom(from string) State {
	next := s.state
	next.From, next.FromErr = validateFrom(from)
	return s.commit(next, Change{From: true})
}

// SetAmount sets the transaction value as an ether decimal. On error the
// previous wei value is replaced by zero so no stale value is submitted.
func (s *Store) SetAmount(amount string) State {
	next := s.state
	next.Amount = amount
	wei, err := chain.EtherToWei(amount)
	if err != nil {
		next.Value, next.AmountErr = new(big.Int), fmt.Errorf("%w: %v", ErrInvalidNumber, err)
	} else {
		next.Value, next.AmountErr = wei, nil
	}
	return s.commit(next, Change{Amount: true})
}

func (s *Store) commit(next State, change Change) State {
	s.state = next
	for _, fn := range s.listeners {
		fn(next, change)
	}
	return next
}

func validateFrom(from string) (string, error) {
	if from == "" {
		return "", fmt.Errorf("%w: sender is required", ErrInvalidAddress)
	}
	v, err := coerceAddress(from)
	if err != nil {
		return from, err
	}
	return v.(string), nil
}
