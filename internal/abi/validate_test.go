package abi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerCtorABI = `[{"type":"constructor","inputs":[{"name":"owner","type":"address"}]}]`

const tokenABI = `[
  {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"balanceOf","inputs":[{"name":"who","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"constant":true},
  {"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256"}]}
]`

// ---------------------------------------------------------------------------
// Validate: plain ABI arrays
// ---------------------------------------------------------------------------

func TestValidateConstructorABI(t *testing.T) {
	doc, err := Validate(ownerCtorABI)
	require.NoError(t, err)
	require.Len(t, doc.Entries, 1)
	assert.False(t, doc.IsCombined())
	assert.Equal(t, "", doc.Code())

	ctor := doc.Constructor()
	require.NotNil(t, ctor)
	require.Len(t, ctor.Inputs, 1)
	assert.Equal(t, "owner", ctor.Inputs[0].Name)
	assert.Equal(t, "address", ctor.Inputs[0].Type)
}

func TestValidatePreservesSourceOrder(t *testing.T) {
	doc, err := Validate(tokenABI)
	require.NoError(t, err)
	require.Len(t, doc.Entries, 3)
	assert.Equal(t, "transfer", doc.Entries[0].Name)
	assert.Equal(t, "balanceOf", doc.Entries[1].Name)
	assert.Equal(t, "Transfer", doc.Entries[2].Name)
	assert.True(t, doc.Entries[2].Inputs[0].Indexed)
}

func TestValidateEmptyABIHasNoConstructor(t *testing.T) {
	doc, err := Validate(`[]`)
	require.NoError(t, err)
	assert.Empty(t, doc.Entries)
	assert.Nil(t, doc.Constructor())
}

func TestValidateABIWithoutConstructor(t *testing.T) {
	doc, err := Validate(tokenABI)
	require.NoError(t, err)
	assert.Nil(t, doc.Constructor())
	assert.Len(t, doc.Functions(), 2)
}

// ---------------------------------------------------------------------------
// Validate: failures
// ---------------------------------------------------------------------------

func TestValidateMalformedJSON(t *testing.T) {
	for _, raw := range []string{"not json at all", "", "[", `{"contracts":`, "[{]"} {
		doc, err := Validate(raw)
		assert.Nil(t, doc, raw)
		assert.ErrorIs(t, err, ErrMalformedJSON, "raw %q", raw)
	}
}

func TestValidateWrongShape(t *testing.T) {
	for _, raw := range []string{
		`{}`,
		`null`,
		`42`,
		`"abi"`,
		`[1,2]`,
		`[{"name":"foo"}]`,
		`[{"type":""}]`,
		`[{"type":"function","inputs":"nope"}]`,
		`{"contracts":{}}`,
	} {
		_, err := Validate(raw)
		assert.ErrorIs(t, err, ErrInvalidABIShape, "raw %q", raw)
	}
}

// ---------------------------------------------------------------------------
// Validate: combined compiler output
// ---------------------------------------------------------------------------

func combinedOutput(t *testing.T, contracts ...[3]string) string {
	t.Helper()
	out := `{"contracts":{`
	for i, c := range contracts {
		if i > 0 {
			out += ","
		}
		abiJSON, err := json.Marshal(c[1])
		require.NoError(t, err)
		out += `"` + c[0] + `":{"abi":` + string(abiJSON) + `,"bin":"` + c[2] + `"}`
	}
	return out + `}}`
}

func TestValidateCombinedOutputSelectsFirst(t *testing.T) {
	raw := combinedOutput(t,
		[3]string{"Foo", ownerCtorABI, "600160"},
		[3]string{"Bar", tokenABI, "0x6002"},
	)

	doc, err := Validate(raw)
	require.NoError(t, err)
	require.True(t, doc.IsCombined())
	require.Len(t, doc.Contracts, 2)
	assert.Equal(t, "Foo", doc.ContractName())
	assert.Equal(t, "0x600160", doc.Code())
	require.NotNil(t, doc.Constructor())
}

func TestValidateCombinedOutputKeepsDocumentOrder(t *testing.T) {
	raw := combinedOutput(t,
		[3]string{"Zeta", tokenABI, "01"},
		[3]string{"Alpha", ownerCtorABI, "02"},
	)

	doc, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "Zeta", doc.Contracts[0].Name)
	assert.Equal(t, "Alpha", doc.Contracts[1].Name)
}

func TestValidateCombinedOutputSelectByName(t *testing.T) {
	raw := combinedOutput(t,
		[3]string{"Foo", ownerCtorABI, "600160"},
		[3]string{"Bar", tokenABI, "0x6002"},
	)
	doc, err := Validate(raw)
	require.NoError(t, err)

	bar, err := doc.SelectByName("Bar")
	require.NoError(t, err)
	assert.Equal(t, "Bar", bar.ContractName())
	assert.Equal(t, "0x6002", bar.Code())
	assert.Nil(t, bar.Constructor())

	// The original document is unchanged.
	assert.Equal(t, "Foo", doc.ContractName())

	_, err = doc.SelectByName("Missing")
	assert.Error(t, err)
	_, err = doc.Select(5)
	assert.Error(t, err)
}

func TestValidateCombinedOutputInlineABIArray(t *testing.T) {
	raw := `{"contracts":{"Foo":{"abi":` + ownerCtorABI + `,"bin":"6001"}}}`
	doc, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "0x6001", doc.Code())
	require.NotNil(t, doc.Constructor())
}

func TestValidateCombinedOutputBadContractABI(t *testing.T) {
	raw := `{"contracts":{"Foo":{"abi":"[{\"name\":\"x\"}]","bin":"6001"}}}`
	_, err := Validate(raw)
	assert.ErrorIs(t, err, ErrInvalidABIShape)
	assert.Contains(t, err.Error(), "contract Foo")

	_, err = Validate(`{"contracts":{"Foo":{"abi":"[bad","bin":"6001"}}}`)
	assert.ErrorIs(t, err, ErrMalformedJSON)
	assert.Contains(t, err.Error(), "contract Foo")
	assert.NotContains(t, err.Error(), "expected an array")

	_, err = Validate(`{"name":"Foo"}`)
	assert.ErrorIs(t, err, ErrInvalidABIShape)
	assert.Contains(t, err.Error(), "expected an array")
}

// ---------------------------------------------------------------------------
// Validator (memoized)
// ---------------------------------------------------------------------------

func TestValidatorReturnsCachedDocument(t *testing.T) {
	v, err := NewValidator(4)
	require.NoError(t, err)

	a, err := v.Validate(tokenABI)
	require.NoError(t, err)
	b, err := v.Validate(tokenABI)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestValidatorCachesErrors(t *testing.T) {
	v, err := NewValidator(0)
	require.NoError(t, err)

	_, err = v.Validate("nope")
	assert.ErrorIs(t, err, ErrMalformedJSON)
	_, err = v.Validate("nope")
	assert.ErrorIs(t, err, ErrMalformedJSON)
}

// ---------------------------------------------------------------------------
// PrefixHex
// ---------------------------------------------------------------------------

func TestPrefixHex(t *testing.T) {
	assert.Equal(t, "0x600160", PrefixHex("600160"))
	assert.Equal(t, "0x600160", PrefixHex("0x600160"))
	assert.Equal(t, "0x", PrefixHex(""))
}
