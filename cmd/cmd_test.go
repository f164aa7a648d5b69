package cmd

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3wizard/internal/abi"
	"github.com/Mohsinsiddi/w3wizard/internal/config"
	"github.com/Mohsinsiddi/w3wizard/internal/contract"
	"github.com/Mohsinsiddi/w3wizard/internal/gas"
	"github.com/Mohsinsiddi/w3wizard/internal/wallet"
)

const (
	alice = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	bob   = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	usdc  = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

// run executes the CLI against dir with stdin in and returns everything it
// printed.
func run(t *testing.T, dir, in string, args ...string) (string, error) {
	t.Helper()
	removeYes, accountRemoveYes, deployNoRegister, execNoWait = false, false, false, false
	accountKeyFlag, fromFlag = "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(in))
	rootCmd.SetArgs(append([]string{"--config", dir}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func loadConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	c, err := config.Load(dir)
	require.NoError(t, err)
	return c
}

func seedAccounts(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, loadConfig(t, dir).SaveAccounts(&config.AccountsFile{Accounts: []config.Account{
		{Name: "alice", Address: alice, KeyRef: "w3wizard.alice", IsDefault: true},
		{Name: "bob", Address: bob, KeyRef: "w3wizard.bob"},
	}}))
}

func seedContract(t *testing.T, dir string) {
	t.Helper()
	b, ok := contract.GetBuiltin("erc20")
	require.True(t, ok)
	reg := contract.NewRegistry(loadConfig(t, dir))
	require.NoError(t, reg.Load())
	require.NoError(t, reg.Add(config.ContractEntry{
		Address: usdc, Name: "usdc", Kind: b.ID, ABI: b.ABI, Tags: []string{"stable"},
	}))
	require.NoError(t, reg.Save())
}

// ---------------------------------------------------------------------------
// config
// ---------------------------------------------------------------------------

func TestConfigShowDefaults(t *testing.T) {
	out, err := run(t, t.TempDir(), "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "http://127.0.0.1:8545")
	assert.Contains(t, out, "1.2")
	assert.Contains(t, out, "nearest")
	assert.Contains(t, out, "from node")
}

func TestConfigSetSaves(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "config", "set", "gas_rounding", "floor")
	require.NoError(t, err)
	_, err = run(t, dir, "", "config", "set", "chain_id", "31337")
	require.NoError(t, err)

	c := loadConfig(t, dir)
	assert.Equal(t, "floor", c.GasRounding)
	assert.Equal(t, int64(31337), c.ChainID)
}

func TestConfigSetRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "config", "set", "gas_multiplier", "0.5")
	require.Error(t, err)
	_, err = run(t, dir, "", "config", "set", "nope", "1")
	require.Error(t, err)

	assert.Equal(t, config.DefaultGasMultiplier, loadConfig(t, dir).GasMultiplier)
}

func TestApplySetting(t *testing.T) {
	c := loadConfig(t, t.TempDir())
	require.NoError(t, applySetting(c, "rpc_url", "http://node:8545"))
	require.NoError(t, applySetting(c, "max_gas_estimation", "1000000"))
	require.NoError(t, applySetting(c, "abi_cache_size", "8"))
	require.NoError(t, applySetting(c, "log_level", "trace"))
	assert.Equal(t, "http://node:8545", c.RPCURL)
	assert.Equal(t, uint64(1_000_000), c.MaxGasEstimation)
	assert.Equal(t, 8, c.ABICacheSize)
	assert.NoError(t, c.Validate())

	assert.Error(t, applySetting(c, "chain_id", "-1"))
	assert.Error(t, applySetting(c, "max_gas_estimation", "0"))
	assert.Error(t, applySetting(c, "abi_cache_size", "many"))
}

// ---------------------------------------------------------------------------
// contract
// ---------------------------------------------------------------------------

func TestContractBuiltins(t *testing.T) {
	out, err := run(t, t.TempDir(), "", "contract", "builtins")
	require.NoError(t, err)
	assert.Contains(t, out, "erc20")
	assert.Contains(t, out, "multisig")
}

func TestContractListEmpty(t *testing.T) {
	out, err := run(t, t.TempDir(), "", "contract", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No contracts")
}

func TestContractListAndShow(t *testing.T) {
	dir := t.TempDir()
	seedContract(t, dir)

	out, err := run(t, dir, "", "contract", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "usdc")
	assert.Contains(t, out, usdc)
	assert.Contains(t, out, "stable")

	out, err = run(t, dir, "", "contract", "show", "USDC")
	require.NoError(t, err)
	assert.Contains(t, out, "transfer(to: address, value: uint256)")
	assert.Contains(t, out, "read")

	_, err = run(t, dir, "", "contract", "show", "dai")
	assert.ErrorIs(t, err, contract.ErrContractNotFound)
}

func TestContractRemoveAsksFirst(t *testing.T) {
	dir := t.TempDir()
	seedContract(t, dir)

	out, err := run(t, dir, "n\n", "contract", "remove", "usdc")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	reg, err := loadRegistry(dir)
	require.NoError(t, err)
	assert.True(t, reg.Has(usdc))

	_, err = run(t, dir, "", "contract", "remove", "usdc", "--yes")
	require.NoError(t, err)
	reg, err = loadRegistry(dir)
	require.NoError(t, err)
	assert.False(t, reg.Has(usdc))
}

func loadRegistry(dir string) (*contract.Registry, error) {
	c, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	reg := contract.NewRegistry(c)
	return reg, reg.Load()
}

// ---------------------------------------------------------------------------
// account
// ---------------------------------------------------------------------------

func TestAccountListEmpty(t *testing.T) {
	out, err := run(t, t.TempDir(), "", "account", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No accounts")
}

func TestAccountListAndDefault(t *testing.T) {
	dir := t.TempDir()
	seedAccounts(t, dir)

	out, err := run(t, dir, "", "account", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, bob)

	_, err = run(t, dir, "", "account", "default", "bob")
	require.NoError(t, err)
	mgr := wallet.NewManager(loadConfig(t, dir), nil)
	d, err := mgr.Default()
	require.NoError(t, err)
	assert.Equal(t, "bob", d.Name)

	_, err = run(t, dir, "", "account", "default", "carol")
	assert.ErrorIs(t, err, wallet.ErrAccountNotFound)
}

func TestAccountRemoveCancelled(t *testing.T) {
	dir := t.TempDir()
	seedAccounts(t, dir)
	out, err := run(t, dir, "\n", "account", "remove", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
}

// ---------------------------------------------------------------------------
// sender resolution
// ---------------------------------------------------------------------------

func TestSenderAddress(t *testing.T) {
	dir := t.TempDir()
	seedAccounts(t, dir)
	cfg = loadConfig(t, dir)
	t.Cleanup(func() { fromFlag = "" })
	mgr := wallet.NewManager(cfg, nil)

	addr, err := senderAddress(mgr)
	require.NoError(t, err)
	assert.Equal(t, alice, addr)

	cfg.DefaultAccount = "bob"
	addr, err = senderAddress(mgr)
	require.NoError(t, err)
	assert.Equal(t, bob, addr)

	fromFlag = strings.ToLower(alice)
	addr, err = senderAddress(mgr)
	require.NoError(t, err)
	assert.Equal(t, alice, addr)
}

func TestSenderAddressWithoutAccounts(t *testing.T) {
	cfg = loadConfig(t, t.TempDir())
	_, err := senderAddress(wallet.NewManager(cfg, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, wallet.ErrAccountNotFound)
	assert.Contains(t, err.Error(), "account import")
}

// ---------------------------------------------------------------------------
// gas settings
// ---------------------------------------------------------------------------

type fixedEstimator uint64

func (f fixedEstimator) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return uint64(f), nil
}

func TestNewSequencerUsesConfiguredGasSettings(t *testing.T) {
	cfg = loadConfig(t, t.TempDir())
	cfg.GasMultiplier = "1.5"
	cfg.GasRounding = "floor"

	seq, err := newSequencer(fixedEstimator(1001), newLogger("error", false))
	require.NoError(t, err)

	st, err := seq.Estimate(context.Background(), gas.Request{
		From:     alice,
		To:       usdc,
		Function: &abi.Entry{Type: abi.KindFunction, Name: "ping"},
		Clean:    true,
		Value:    big.NewInt(0),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1001), st.Estimated)
	assert.Equal(t, uint64(1501), st.Adjusted)
}

func TestNewSequencerRejectsBadRounding(t *testing.T) {
	cfg = loadConfig(t, t.TempDir())
	cfg.GasRounding = "up"
	_, err := newSequencer(fixedEstimator(1), newLogger("error", false))
	assert.Error(t, err)
}
