package wallet

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Mohsinsiddi/w3wizard/internal/config"
)

// Signer signs transactions for one account.
type Signer struct {
	account config.Account
	keys    KeyStore
}

// NewSigner creates a signer for the given account.
func NewSigner(a config.Account, keys KeyStore) *Signer {
	return &Signer{account: a, keys: keys}
}

// SignTx signs tx for chainID. The stored key must belong to the account.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	hexKey, err := s.keys.Retrieve(s.account.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("retrieving key: %w", err)
	}
	key, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if addr := crypto.PubkeyToAddress(key.PublicKey).Hex(); !strings.EqualFold(addr, s.account.Address) {
		return nil, fmt.Errorf("%w: key is for %s, account %q is %s", ErrInvalidKey, addr, s.account.Name, s.account.Address)
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return signed, nil
}

// Address returns the account address.
func (s *Signer) Address() string {
	return s.account.Address
}
