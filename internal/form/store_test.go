package form

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3wizard/internal/abi"
)

const sender = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func ownerConstructor(t *testing.T) *abi.Entry {
	t.Helper()
	doc, err := abi.Validate(`[{"type":"constructor","inputs":[{"name":"owner","type":"address"}]}]`)
	require.NoError(t, err)
	ctor := doc.Constructor()
	require.NotNil(t, ctor)
	return ctor
}

func transferFn() *abi.Entry {
	return &abi.Entry{
		Type: abi.KindFunction,
		Name: "transfer",
		Inputs: []abi.Param{
			{Name: "to", Type: "address"},
			{Name: "value", Type: "uint256"},
		},
	}
}

// ---------------------------------------------------------------------------
// SelectFunction
// ---------------------------------------------------------------------------

func TestSelectFunctionConstructorDefaults(t *testing.T) {
	s := NewStore(sender)
	st := s.SelectFunction(ownerConstructor(t))

	require.Len(t, st.Fields, 1)
	f := st.Fields[0]
	assert.Equal(t, abi.KindAddress, f.Type.Kind)
	assert.Equal(t, abi.ZeroAddress, f.Value)
	assert.NoError(t, f.Err)
	assert.True(t, st.Valid())
}

func TestSelectFunctionIsIdempotent(t *testing.T) {
	s := NewStore(sender)
	fn := transferFn()

	first := s.SelectFunction(fn)
	s.SetValue(1, "42")
	second := s.SelectFunction(fn)

	assert.Equal(t, first.Fields, second.Fields)
	assert.Equal(t, 0, second.Fields[1].Value.(*big.Int).Sign())
}

func TestSelectFunctionNilClears(t *testing.T) {
	s := NewStore(sender)
	s.SelectFunction(transferFn())
	st := s.SelectFunction(nil)
	assert.Empty(t, st.Fields)
	assert.False(t, st.ParamsClean())
	assert.False(t, st.Valid())
}

func TestSelectFunctionNoInputs(t *testing.T) {
	s := NewStore(sender)
	st := s.SelectFunction(&abi.Entry{Type: abi.KindConstructor})
	assert.Empty(t, st.Fields)
	assert.True(t, st.ParamsClean())
	assert.True(t, st.Valid())
}

func TestSelectFunctionUnrecognizedTypeIsFieldError(t *testing.T) {
	s := NewStore(sender)
	st := s.SelectFunction(&abi.Entry{Type: abi.KindFunction, Name: "f", Inputs: []abi.Param{
		{Name: "ok", Type: "bool"},
		{Name: "weird", Type: "fixed128x18"},
	}})
	require.Len(t, st.Fields, 2)
	assert.NoError(t, st.Fields[0].Err)
	assert.ErrorIs(t, st.Fields[1].Err, abi.ErrUnrecognizedType)
	assert.False(t, st.Valid())

	st = s.SetValue(1, "1.5")
	assert.ErrorIs(t, st.Fields[1].Err, abi.ErrUnrecognizedType)
	assert.Equal(t, "1.5", st.Fields[1].Value)
}

// ---------------------------------------------------------------------------
// SetValue
// ---------------------------------------------------------------------------

func TestSetValueInvalidAddressBlocksValidity(t *testing.T) {
	s := NewStore(sender)
	s.SelectFunction(ownerConstructor(t))

	st := s.SetValue(0, "not-an-address")
	assert.ErrorIs(t, st.Fields[0].Err, ErrInvalidAddress)
	assert.Equal(t, "not-an-address", st.Fields[0].Value, "error pairs with the raw value")
	assert.False(t, st.Valid())
	assert.ErrorIs(t, st.Err(), ErrInvalidAddress)
	assert.Contains(t, st.Err().Error(), "owner")
}

func TestSetValueFixesError(t *testing.T) {
	s := NewStore(sender)
	s.SelectFunction(transferFn())

	s.SetValue(1, "-5")
	assert.ErrorIs(t, s.State().Fields[1].Err, ErrInvalidNumber)

	st := s.SetValue(1, "5")
	assert.NoError(t, st.Fields[1].Err)
	assert.Equal(t, int64(5), st.Fields[1].Value.(*big.Int).Int64())
	assert.Equal(t, "5", st.Fields[1].Raw)
	assert.True(t, st.Valid())
}

func TestSetValueOutOfRangePanics(t *testing.T) {
	s := NewStore(sender)
	s.SelectFunction(transferFn())
	assert.Panics(t, func() { s.SetValue(2, "x") })
	assert.Panics(t, func() { s.SetValue(-1, "x") })
}

func TestSnapshotsAreImmutable(t *testing.T) {
	s := NewStore(sender)
	before := s.SelectFunction(transferFn())
	s.SetValue(0, vitalik)
	assert.Equal(t, abi.ZeroAddress, before.Fields[0].Value)
	assert.Equal(t, vitalik, s.State().Fields[0].Value)
}

func TestValuesInInputOrder(t *testing.T) {
	s := NewStore(sender)
	s.SelectFunction(transferFn())
	s.SetValue(0, vitalik)
	s.SetValue(1, "9")

	values := s.State().Values()
	require.Len(t, values, 2)
	assert.Equal(t, vitalik, values[0])
	assert.Equal(t, int64(9), values[1].(*big.Int).Int64())
}

// ---------------------------------------------------------------------------
// from / amount
// ---------------------------------------------------------------------------

func TestSenderRequired(t *testing.T) {
	s := NewStore("")
	st := s.SelectFunction(transferFn())
	assert.True(t, st.ParamsClean())
	assert.False(t, st.Valid())
	assert.ErrorIs(t, st.FromErr, ErrInvalidAddress)

	st = s.SetFrom(sender)
	assert.NoError(t, st.FromErr)
	assert.True(t, st.Valid())
}

func TestSetAmount(t *testing.T) {
	s := NewStore(sender)
	s.SelectFunction(transferFn())

	st := s.SetAmount("0.5")
	assert.NoError(t, st.AmountErr)
	assert.Equal(t, "500000000000000000", st.Value.String())

	st = s.SetAmount("-1")
	assert.ErrorIs(t, st.AmountErr, ErrInvalidNumber)
	assert.Equal(t, 0, st.Value.Sign())
	assert.True(t, st.ParamsClean(), "amount errors do not affect params")
	assert.False(t, st.Valid())
}

// ---------------------------------------------------------------------------
// Subscribe
// ---------------------------------------------------------------------------

func TestSubscribeReceivesChanges(t *testing.T) {
	s := NewStore(sender)
	var changes []Change
	unsubscribe := s.Subscribe(func(_ State, c Change) { changes = append(changes, c) })

	s.SelectFunction(transferFn())
	s.SetValue(1, "3")
	s.SetFrom(vitalik)
	s.SetAmount("1")

	require.Len(t, changes, 4)
	assert.True(t, changes[0].Reset)
	assert.Equal(t, []int{0, 1}, changes[0].Fields)
	assert.Equal(t, []int{1}, changes[1].Fields)
	assert.True(t, changes[2].From)
	assert.True(t, changes[3].Amount)

	unsubscribe()
	s.SetAmount("2")
	assert.Len(t, changes, 4)
}
