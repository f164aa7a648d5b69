package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3wizard/internal/abi"
	"github.com/Mohsinsiddi/w3wizard/internal/config"
	"github.com/Mohsinsiddi/w3wizard/internal/contract"
	"github.com/Mohsinsiddi/w3wizard/internal/form"
	"github.com/Mohsinsiddi/w3wizard/internal/gas"
)

func newAdd(h *harness) (*AddContract, *fakeRegistry) {
	reg := h.deps.Registry.(*fakeRegistry)
	return NewAddContract(h.deps), reg
}

func TestAddHasTwoSteps(t *testing.T) {
	w, _ := newAdd(newHarness())
	v := w.View()
	assert.Equal(t, []string{"ABI type", "Details"}, v.Steps)
	assert.True(t, v.CanNext)
	assert.False(t, v.ShowGas)

	kind := field(t, v, KeyKind)
	assert.Equal(t, contract.KindCustom, kind.Value)
	assert.Equal(t, []string{"erc20", "multisig", contract.KindCustom}, kind.Options)

	require.NoError(t, w.Next())
	require.NoError(t, w.Next())
	assert.Equal(t, AddDetails, w.View().Step)
	w.Prev()
	assert.Equal(t, AddType, w.View().Step)
}

func TestAddBuiltinMakesABIReadOnly(t *testing.T) {
	w, _ := newAdd(newHarness())
	mustSet(t, w, KeyKind, "erc20")
	require.NoError(t, w.Next())

	f := field(t, w.View(), KeyABI)
	assert.True(t, f.ReadOnly)
	assert.NoError(t, f.Err)
	assert.NotEmpty(t, f.Value)

	_, err := w.Set(KeyABI, "[]")
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestAddSwitchingBackToCustomClearsABI(t *testing.T) {
	w, _ := newAdd(newHarness())
	mustSet(t, w, KeyKind, "multisig")
	mustSet(t, w, KeyKind, contract.KindCustom)
	require.NoError(t, w.Next())

	f := field(t, w.View(), KeyABI)
	assert.False(t, f.ReadOnly)
	assert.Empty(t, f.Value)
	assert.ErrorIs(t, f.Err, ErrRequired)
}

func TestAddUnknownKind(t *testing.T) {
	w, _ := newAdd(newHarness())
	_, err := w.Set(KeyKind, "erc721")
	assert.ErrorIs(t, err, ErrUnknownOption)
	_, err = w.Set("bogus", "")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestAddAddressValidation(t *testing.T) {
	h := newHarness()
	w, reg := newAdd(h)
	require.NoError(t, reg.Add(config.ContractEntry{Address: token}))
	require.NoError(t, w.Next())

	assert.ErrorIs(t, field(t, w.View(), KeyAddress).Err, ErrRequired)

	mustSet(t, w, KeyAddress, "0x1234")
	assert.ErrorIs(t, field(t, w.View(), KeyAddress).Err, form.ErrInvalidAddress)

	mustSet(t, w, KeyAddress, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	assert.ErrorIs(t, field(t, w.View(), KeyAddress).Err, ErrDuplicateContract)

	mustSet(t, w, KeyAddress, sender)
	assert.NoError(t, field(t, w.View(), KeyAddress).Err)
}

func TestAddCustomABIValidation(t *testing.T) {
	w, _ := newAdd(newHarness())
	require.NoError(t, w.Next())

	mustSet(t, w, KeyABI, "not json at all")
	assert.ErrorIs(t, field(t, w.View(), KeyABI).Err, abi.ErrMalformedJSON)

	mustSet(t, w, KeyABI, `[{"name":"x"}]`)
	assert.ErrorIs(t, field(t, w.View(), KeyABI).Err, abi.ErrInvalidABIShape)

	mustSet(t, w, KeyABI, `[]`)
	assert.NoError(t, field(t, w.View(), KeyABI).Err)
}

func TestAddSubmitNotReady(t *testing.T) {
	w, reg := newAdd(newHarness())
	mustSet(t, w, KeyKind, "erc20")
	mustSet(t, w, KeyAddress, sender)

	assert.False(t, w.View().CanSubmit)
	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Empty(t, reg.entries)
}

func TestAddSubmitStoresEntry(t *testing.T) {
	w, reg := newAdd(newHarness())
	mustSet(t, w, KeyKind, "erc20")
	require.NoError(t, w.Next())
	mustSet(t, w, KeyAddress, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	mustSet(t, w, KeyName, " usdc ")
	mustSet(t, w, KeyDescription, "Circle dollar")
	mustSet(t, w, KeyTags, "stable, ,erc20")

	require.True(t, w.View().CanSubmit)
	addr, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, addr)

	e, ok := reg.entries[token]
	require.True(t, ok)
	assert.Equal(t, "usdc", e.Name)
	assert.Equal(t, "Circle dollar", e.Description)
	assert.Equal(t, []string{"stable", "erc20"}, e.Tags)
	assert.Equal(t, "erc20", e.Kind)
	assert.NotEmpty(t, e.ABI)
	assert.Equal(t, 1, reg.saves)

	// now a duplicate
	assert.False(t, w.View().CanSubmit)
}

func TestAddSubmitSaveFailure(t *testing.T) {
	h := newHarness()
	w, reg := newAdd(h)
	reg.saveErr = errors.New("disk full")
	mustSet(t, w, KeyAddress, sender)
	mustSet(t, w, KeyName, "me")
	mustSet(t, w, KeyABI, "[]")

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	require.Len(t, h.notified.errs, 1)
	assert.ErrorIs(t, w.View().Err, ErrSubmissionFailed)
}

func TestAddNeverEstimates(t *testing.T) {
	h := newHarness()
	w, _ := newAdd(h)
	_, err := estimate(t, w)
	assert.ErrorIs(t, err, gas.ErrNotReady)
	assert.Equal(t, 0, h.est.calls)
}
