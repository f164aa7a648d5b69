package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// EtherToWei
// ---------------------------------------------------------------------------

func TestEtherToWei(t *testing.T) {
	cases := map[string]string{
		"":                     "0",
		"0":                    "0",
		"1":                    "1000000000000000000",
		"0.5":                  "500000000000000000",
		" 2.25 ":               "2250000000000000000",
		"0.000000000000000001": "1",
		"1000000":              "1000000000000000000000000",
		"0100":                 "100000000000000000000",
		".5":                   "500000000000000000",
		"1.":                   "1000000000000000000",
	}
	for in, want := range cases {
		got, err := EtherToWei(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}
}

func TestEtherToWeiRejects(t *testing.T) {
	for _, in := range []string{
		"-1", "abc", "1/2", "1e18", "0.0000000000000000001", "1.2.3",
		"0x10", "0X1", "0b1", "0o7", "1_000", "0x1p4", "Inf", ".",
	} {
		_, err := EtherToWei(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

// ---------------------------------------------------------------------------
// WeiToETH / WeiToGwei
// ---------------------------------------------------------------------------

func TestWeiToETHZero(t *testing.T) {
	assert.Equal(t, "0.000000000000000000", WeiToETH(big.NewInt(0)))
	assert.Equal(t, "0.000000000000000000", WeiToETH(nil))
}

func TestWeiToETHOne(t *testing.T) {
	wei, _ := new(big.Int).SetString("1000000000000000000", 10)
	assert.Equal(t, "1.000000000000000000", WeiToETH(wei))
}

func TestWeiToETHSmallest(t *testing.T) {
	assert.Equal(t, "0.000000000000000001", WeiToETH(big.NewInt(1)))
}

func TestWeiToGwei(t *testing.T) {
	assert.Equal(t, 1.5, WeiToGwei(big.NewInt(1_500_000_000)))
	assert.Equal(t, 0.0, WeiToGwei(nil))
}
