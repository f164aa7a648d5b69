package chain

import "math/big"

// TxRequest is a fully validated, unsigned transaction.
type TxRequest struct {
	From  string
	To    string // empty for contract creation
	Data  []byte
	Value *big.Int
	Gas   uint64
}

// IsCreate reports whether the request deploys a contract.
func (r TxRequest) IsCreate() bool {
	return r.To == ""
}
