package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/hashicorp/go-hclog"

	"github.com/Mohsinsiddi/w3wizard/internal/chain"
)

// Backend is the node side of a submission. *chain.Client satisfies it.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) (string, error)
}

// TxSigner signs a transaction for a chain.
type TxSigner interface {
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// SignerSource resolves the signer for a sender address.
type SignerSource func(from string) (TxSigner, error)

// Sender signs and broadcasts wizard transactions.
type Sender struct {
	backend Backend
	chainID *big.Int
	signers SignerSource
	logger  hclog.Logger
}

// NewSender creates a Sender for chainID.
func NewSender(backend Backend, chainID *big.Int, signers SignerSource, logger hclog.Logger) *Sender {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Sender{
		backend: backend,
		chainID: chainID,
		signers: signers,
		logger:  logger.Named("sender"),
	}
}

// Submit builds an EIP-1559 transaction from req, signs it with the key of
// req.From and broadcasts it. It returns the transaction hash.
func (s *Sender) Submit(ctx context.Context, req chain.TxRequest) (string, error) {
	signer, err := s.signers(req.From)
	if err != nil {
		return "", fmt.Errorf("resolving signer: %w", err)
	}

	from := common.HexToAddress(req.From)
	nonce, err := s.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("getting nonce: %w", err)
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("getting gas price: %w", err)
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	inner := &types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       req.Gas,
		Value:     value,
		Data:      req.Data,
	}
	if !req.IsCreate() {
		to := common.HexToAddress(req.To)
		inner.To = &to
	}

	signed, err := signer.SignTx(types.NewTx(inner), s.chainID)
	if err != nil {
		return "", fmt.Errorf("signing transaction: %w", err)
	}

	hash, err := s.backend.SendTransaction(ctx, signed)
	if err != nil {
		return "", fmt.Errorf("broadcasting transaction: %w", err)
	}
	s.logger.Info("transaction sent", "hash", hash, "nonce", nonce, "gas", req.Gas, "create", req.IsCreate())
	return hash, nil
}
