package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/hashicorp/go-hclog"
)

// ErrReverted is returned by WaitForReceipt when the transaction was mined
// but failed.
var ErrReverted = errors.New("transaction reverted")

// Client is a thin JSON-RPC adapter over an EVM node.
type Client struct {
	rpc    *rpc.Client
	eth    *ethclient.Client
	logger hclog.Logger

	// receipt polling interval
	pollInterval time.Duration
}

// TxReceipt holds the fields of a receipt the wizards report.
type TxReceipt struct {
	Hash            string
	Status          uint64 // 1 = success, 0 = reverted
	BlockNumber     uint64
	GasUsed         uint64
	ContractAddress string // non-empty when a contract was deployed
}

// Dial connects to url. Only the initial dial honours ctx.
func Dial(ctx context.Context, url string, logger hclog.Logger) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return NewClient(c, logger), nil
}

// NewClient wraps an existing RPC client.
func NewClient(c *rpc.Client, logger hclog.Logger) *Client {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Client{
		rpc:          c,
		eth:          ethclient.NewClient(c),
		logger:       logger.Named("chain"),
		pollInterval: 2 * time.Second,
	}
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// EstimateGas asks the node for the gas msg would consume.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	gas, err := c.eth.EstimateGas(ctx, msg)
	if err != nil {
		return 0, err
	}
	c.logger.Trace("eth_estimateGas", "from", msg.From.Hex(), "to", toString(msg.To), "gas", gas)
	return gas, nil
}

// SuggestGasPrice returns the node's gas price suggestion in wei.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

// ChainID returns the chain id reported by the node.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.eth.ChainID(ctx)
}

// PendingNonceAt returns the next nonce for account, counting pending txs.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.eth.PendingNonceAt(ctx, account)
}

// CodeAt returns the deployed bytecode at address (empty for an EOA).
func (c *Client) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	return c.eth.CodeAt(ctx, address, nil)
}

// SendTransaction broadcasts a signed transaction via eth_sendRawTransaction
// and returns its hash.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) (string, error) {
	if err := c.eth.SendTransaction(ctx, tx); err != nil {
		return "", err
	}
	hash := tx.Hash().Hex()
	c.logger.Debug("transaction sent", "hash", hash, "nonce", tx.Nonce(), "gas", tx.Gas())
	return hash, nil
}

// TransactionReceipt fetches the receipt for hash.
// Returns nil, nil if the transaction is still pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash string) (*TxReceipt, error) {
	var r *struct {
		Status          hexutil.Uint64  `json:"status"`
		BlockNumber     hexutil.Uint64  `json:"blockNumber"`
		GasUsed         hexutil.Uint64  `json:"gasUsed"`
		ContractAddress *common.Address `json:"contractAddress"`
	}
	if err := c.rpc.CallContext(ctx, &r, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil // still pending
	}
	receipt := &TxReceipt{
		Hash:        hash,
		Status:      uint64(r.Status),
		BlockNumber: uint64(r.BlockNumber),
		GasUsed:     uint64(r.GasUsed),
	}
	if r.ContractAddress != nil {
		receipt.ContractAddress = r.ContractAddress.Hex()
	}
	return receipt, nil
}

// WaitForReceipt polls until the transaction is mined or timeout expires.
// Returns ErrReverted if the transaction failed (Status == 0).
func (c *Client) WaitForReceipt(ctx context.Context, hash string, timeout time.Duration) (*TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.TransactionReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			if receipt.Status == 0 {
				return receipt, fmt.Errorf("%w (hash: %s)", ErrReverted, hash)
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not mined within %s", hash, timeout)
		case <-ticker.C:
		}
	}
}

func toString(a *common.Address) string {
	if a == nil {
		return "<create>"
	}
	return a.Hex()
}
