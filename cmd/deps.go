package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/Mohsinsiddi/w3wizard/internal/abi"
	"github.com/Mohsinsiddi/w3wizard/internal/chain"
	"github.com/Mohsinsiddi/w3wizard/internal/config"
	"github.com/Mohsinsiddi/w3wizard/internal/contract"
	"github.com/Mohsinsiddi/w3wizard/internal/gas"
	"github.com/Mohsinsiddi/w3wizard/internal/ui"
	"github.com/Mohsinsiddi/w3wizard/internal/wallet"
	"github.com/Mohsinsiddi/w3wizard/internal/wizard"
)

const logFile = "w3wizard.log"

func errorLine(err error) string { return ui.Err(err.Error()) }

// accountManager opens the account list. The keychain is only opened when
// needKeys is set, so listing never prompts for a password.
func accountManager(needKeys bool) (*wallet.Manager, error) {
	var keys wallet.KeyStore
	if needKeys {
		ks, err := wallet.OpenKeystore(cfg.Dir())
		if err != nil {
			return nil, err
		}
		keys = ks
	}
	return wallet.NewManager(cfg, keys), nil
}

func contractRegistry() (*contract.Registry, error) {
	reg := contract.NewRegistry(cfg)
	if err := reg.Load(); err != nil {
		return nil, fmt.Errorf("loading contracts: %w", err)
	}
	return reg, nil
}

// senderAddress resolves --from, then default_account, then the account
// manager's default.
func senderAddress(mgr *wallet.Manager) (string, error) {
	name := fromFlag
	if name == "" {
		name = cfg.DefaultAccount
	}
	var (
		a   *config.Account
		err error
	)
	if name != "" {
		a, err = mgr.Get(name)
	} else {
		a, err = mgr.Default()
	}
	if err != nil {
		return "", fmt.Errorf("%w\n  Import one with: w3wizard account import <name>", err)
	}
	return a.Address, nil
}

// wizardLogger sends logs to a file under the config dir while the
// full-screen UI owns the terminal.
func wizardLogger() (hclog.Logger, func(), error) {
	f, err := os.OpenFile(filepath.Join(cfg.Dir(), logFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	l := hclog.New(&hclog.LoggerOptions{
		Name:   "w3wizard",
		Level:  logger.GetLevel(),
		Output: f,
	})
	return l, func() { f.Close() }, nil
}

func newSequencer(est gas.Estimator, l hclog.Logger) (*gas.Sequencer, error) {
	m, err := cfg.Multiplier()
	if err != nil {
		return nil, err
	}
	r, err := gas.ParseRounding(cfg.GasRounding)
	if err != nil {
		return nil, err
	}
	return gas.NewSequencer(est,
		gas.WithMultiplier(m),
		gas.WithRounding(r),
		gas.WithGasCap(cfg.MaxGasEstimation),
		gas.WithLogger(l),
	), nil
}

// signerSource adapts the account manager to contract.SignerSource.
func signerSource(mgr *wallet.Manager) contract.SignerSource {
	return func(from string) (contract.TxSigner, error) {
		s, err := mgr.SignerFor(from)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// session is everything a transaction wizard needs: a node connection, a
// signing account and the wizard collaborators built on them.
type session struct {
	client   *chain.Client
	registry *contract.Registry
	from     string
	deps     wizard.Deps
	closeLog func()
}

func openSession(ctx context.Context) (*session, error) {
	reg, err := contractRegistry()
	if err != nil {
		return nil, err
	}
	mgr, err := accountManager(true)
	if err != nil {
		return nil, err
	}
	from, err := senderAddress(mgr)
	if err != nil {
		return nil, err
	}

	l, closeLog, err := wizardLogger()
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, config.RPCTimeout)
	defer cancel()
	client, err := chain.Dial(dialCtx, cfg.RPCURL, l)
	if err != nil {
		closeLog()
		return nil, err
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		if chainID, err = client.ChainID(dialCtx); err != nil {
			client.Close()
			closeLog()
			return nil, fmt.Errorf("reading chain id from %s: %w", cfg.RPCURL, err)
		}
	}

	seq, err := newSequencer(client, l)
	if err != nil {
		client.Close()
		closeLog()
		return nil, err
	}
	val, err := abi.NewValidator(cfg.ABICacheSize)
	if err != nil {
		client.Close()
		closeLog()
		return nil, err
	}

	logger.Debug("session opened", "rpc", cfg.RPCURL, "chain_id", chainID, "from", from)
	return &session{
		client:   client,
		registry: reg,
		from:     from,
		closeLog: closeLog,
		deps: wizard.Deps{
			Sequencer: seq,
			Submitter: contract.NewSender(client, chainID, signerSource(mgr), l),
			Notifier: wizard.NotifierFunc(func(err error) {
				l.Warn("submission failed", "error", err)
			}),
			Registry:  reg,
			Validator: val,
			Logger:    l,
		},
	}, nil
}

func (s *session) Close() {
	s.client.Close()
	s.closeLog()
}
