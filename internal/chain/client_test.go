package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// rpcMock creates a test HTTP server that serves a fixed JSON-RPC response
// per method. Pass method→result pairs; any unknown method returns an RPC error.
// Every request's params are recorded under its method name.
func rpcMock(t *testing.T, responses map[string]any) (*httptest.Server, *paramLog) {
	t.Helper()
	seen := &paramLog{params: make(map[string]json.RawMessage)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
			ID     int             `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		seen.record(req.Method, req.Params)
		w.Header().Set("Content-Type", "application/json")
		if result, ok := responses[req.Method]; ok {
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  result,
			})
		} else {
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]any{"code": -32601, "message": "method not found"},
			})
		}
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

type paramLog struct {
	mu     sync.Mutex
	params map[string]json.RawMessage
}

func (l *paramLog) record(method string, params json.RawMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.params[method] = params
}

func (l *paramLog) get(method string) (json.RawMessage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.params[method]
	return p, ok
}

func dialMock(t *testing.T, responses map[string]any) (*Client, *paramLog) {
	t.Helper()
	srv, seen := rpcMock(t, responses)
	c, err := Dial(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, seen
}

// ---------------------------------------------------------------------------
// EstimateGas
// ---------------------------------------------------------------------------

func TestEstimateGas(t *testing.T) {
	c, seen := dialMock(t, map[string]any{"eth_estimateGas": "0x5208"})

	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	gas, err := c.EstimateGas(context.Background(), ethereum.CallMsg{
		From:  common.HexToAddress("0x00000000000000000000000000000000000000bb"),
		To:    &to,
		Gas:   50_000_000,
		Value: big.NewInt(1),
		Data:  []byte{0xa9, 0x05, 0x9c, 0xbb},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), gas)

	var params []map[string]any
	raw, ok := seen.get("eth_estimateGas")
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(raw, &params))
	require.NotEmpty(t, params)
	assert.Equal(t, "0x2faf080", params[0]["gas"], "gas cap is forwarded")
	assert.Equal(t, "0xa9059cbb", params[0]["input"])
}

func TestEstimateGasRPCError(t *testing.T) {
	c, _ := dialMock(t, map[string]any{})
	_, err := c.EstimateGas(context.Background(), ethereum.CallMsg{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}

// ---------------------------------------------------------------------------
// Chain metadata
// ---------------------------------------------------------------------------

func TestChainIDAndGasPrice(t *testing.T) {
	c, _ := dialMock(t, map[string]any{
		"eth_chainId":  "0x539",
		"eth_gasPrice": "0x3b9aca00",
	})

	id, err := c.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1337), id.Int64())

	gp, err := c.SuggestGasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), gp.Int64())
}

func TestPendingNonceAndCode(t *testing.T) {
	c, _ := dialMock(t, map[string]any{
		"eth_getTransactionCount": "0x7",
		"eth_getCode":             "0x6001",
	})
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	nonce, err := c.PendingNonceAt(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	code, err := c.CodeAt(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x01}, code)
}

// ---------------------------------------------------------------------------
// SendTransaction
// ---------------------------------------------------------------------------

func TestSendTransactionReturnsHash(t *testing.T) {
	c, seen := dialMock(t, map[string]any{"eth_sendRawTransaction": "0xabc"})

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, GasPrice: big.NewInt(1), Gas: 21000, Value: big.NewInt(0)})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(1337)), key)
	require.NoError(t, err)

	hash, err := c.SendTransaction(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, signed.Hash().Hex(), hash)
	_, ok := seen.get("eth_sendRawTransaction")
	assert.True(t, ok)
}

// ---------------------------------------------------------------------------
// Receipts
// ---------------------------------------------------------------------------

func TestTransactionReceiptPending(t *testing.T) {
	c, _ := dialMock(t, map[string]any{"eth_getTransactionReceipt": nil})
	r, err := c.TransactionReceipt(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestTransactionReceiptDeploy(t *testing.T) {
	c, _ := dialMock(t, map[string]any{"eth_getTransactionReceipt": map[string]any{
		"status":          "0x1",
		"blockNumber":     "0x10",
		"gasUsed":         "0x5208",
		"contractAddress": "0x00000000000000000000000000000000000000cc",
	}})
	r, err := c.TransactionReceipt(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, uint64(1), r.Status)
	assert.Equal(t, uint64(16), r.BlockNumber)
	assert.Equal(t, uint64(21000), r.GasUsed)
	assert.True(t, strings.EqualFold("0x00000000000000000000000000000000000000cc", r.ContractAddress))
}

func TestWaitForReceiptReverted(t *testing.T) {
	c, _ := dialMock(t, map[string]any{"eth_getTransactionReceipt": map[string]any{
		"status": "0x0", "blockNumber": "0x1", "gasUsed": "0x1",
	}})
	r, err := c.WaitForReceipt(context.Background(), "0xabc", time.Second)
	assert.ErrorIs(t, err, ErrReverted)
	require.NotNil(t, r)
}

func TestWaitForReceiptTimeout(t *testing.T) {
	c, _ := dialMock(t, map[string]any{"eth_getTransactionReceipt": nil})
	c.pollInterval = 10 * time.Millisecond
	_, err := c.WaitForReceipt(context.Background(), "0xabc", 50*time.Millisecond)
	assert.Error(t, err)
}
