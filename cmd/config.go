package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3wizard/internal/config"
	"github.com/Mohsinsiddi/w3wizard/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		chainID := "from node"
		if cfg.ChainID != 0 {
			chainID = strconv.FormatInt(cfg.ChainID, 10)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Configuration", [][2]string{
			{"rpc_url", cfg.RPCURL},
			{"chain_id", chainID},
			{"default_account", cfg.DefaultAccount},
			{"gas_multiplier", cfg.GasMultiplier},
			{"gas_rounding", cfg.GasRounding},
			{"max_gas_estimation", strconv.FormatUint(cfg.MaxGasEstimation, 10)},
			{"log_level", cfg.LogLevel},
			{"abi_cache_size", strconv.Itoa(cfg.ABICacheSize)},
			{"dir", cfg.Dir()},
		}))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a setting and save it.

Keys: rpc_url, chain_id, default_account, gas_multiplier, gas_rounding,
max_gas_estimation, log_level, abi_cache_size.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applySetting(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s set to %q", args[0], args[1])))
		return nil
	},
}

func applySetting(c *config.Config, key, value string) error {
	switch key {
	case "rpc_url":
		c.RPCURL = value
	case "chain_id":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil || id < 0 {
			return fmt.Errorf("chain_id must be a non-negative integer, got %q", value)
		}
		c.ChainID = id
	case "default_account":
		c.DefaultAccount = value
	case "gas_multiplier":
		c.GasMultiplier = value
	case "gas_rounding":
		c.GasRounding = value
	case "max_gas_estimation":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil || n == 0 {
			return fmt.Errorf("max_gas_estimation must be a positive integer, got %q", value)
		}
		c.MaxGasEstimation = n
	case "log_level":
		c.LogLevel = value
	case "abi_cache_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("abi_cache_size must be an integer, got %q", value)
		}
		c.ABICacheSize = n
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
