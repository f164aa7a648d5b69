package config

import "github.com/Mohsinsiddi/w3wizard/internal/abi"

// Config holds all w3wizard configuration.
type Config struct {
	RPCURL           string `json:"rpc_url"`
	ChainID          int64  `json:"chain_id"` // 0 = ask the node
	DefaultAccount   string `json:"default_account"`
	GasMultiplier    string `json:"gas_multiplier"` // decimal, e.g. "1.2"
	GasRounding      string `json:"gas_rounding"`   // "nearest" | "floor"
	MaxGasEstimation uint64 `json:"max_gas_estimation"`
	LogLevel         string `json:"log_level"`
	ABICacheSize     int    `json:"abi_cache_size"`

	// internal: config dir path used for Save()
	configDir string
}

// Account is a signing account. The private key lives in the OS keychain
// under KeyRef.
type Account struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	KeyRef    string `json:"key_ref"`
	IsDefault bool   `json:"is_default"`
	CreatedAt string `json:"created_at"`
}

// AccountsFile is the structure of accounts.json.
type AccountsFile struct {
	Accounts []Account `json:"accounts"`
}

// ContractEntry is a contract on the watch list.
type ContractEntry struct {
	Address     string      `json:"address"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Kind        string      `json:"kind"` // builtin ABI id or "custom"
	ABI         []abi.Entry `json:"abi"`
	AddedAt     string      `json:"added_at"`
}

// ContractsFile is the structure of contracts.json.
type ContractsFile struct {
	Contracts []ContractEntry `json:"contracts"`
}
