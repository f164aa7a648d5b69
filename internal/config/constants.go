package config

import "time"

// Gas limits used when no estimate is available at submit time.
const (
	GasLimitContractCall   = uint64(200_000)
	GasLimitContractDeploy = uint64(3_000_000)
)

// Defaults for the gas sequencer.
const (
	DefaultGasMultiplier    = "1.2"
	DefaultGasRounding      = "nearest"
	DefaultMaxGasEstimation = uint64(50_000_000)
)

// Timeout constants used across cmd and the chain client.
const (
	RPCTimeout       = 15 * time.Second
	TxConfirmTimeout = 3 * time.Minute
	TxDeployTimeout  = 5 * time.Minute
)
