// Package wallet manages signing accounts and signs transactions with them.
package wallet

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Mohsinsiddi/w3wizard/internal/config"
)

// Errors.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrInvalidKey      = errors.New("invalid private key")
)

// Store persists account metadata.
type Store interface {
	LoadAccounts() (*config.AccountsFile, error)
	SaveAccounts(*config.AccountsFile) error
}

// Manager handles account CRUD. Keys go to the KeyStore; only metadata is
// written to the Store.
type Manager struct {
	store    Store
	keys     KeyStore
	accounts map[string]*config.Account
	loaded   bool
}

// NewManager creates an account manager. *config.Config satisfies Store.
func NewManager(store Store, keys KeyStore) *Manager {
	return &Manager{
		store:    store,
		keys:     keys,
		accounts: make(map[string]*config.Account),
	}
}

// Import derives the address of hexKey, stores the key and records the
// account. The first account imported becomes the default.
func (m *Manager) Import(name, hexKey string) (*config.Account, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	if _, exists := m.accounts[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, name)
	}

	key, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	for _, a := range m.accounts {
		if strings.EqualFold(a.Address, addr) {
			return nil, fmt.Errorf("%w: %s is %s", ErrAccountExists, addr, a.Name)
		}
	}

	ref, err := m.keys.Store(name, hexKey)
	if err != nil {
		return nil, fmt.Errorf("storing key: %w", err)
	}

	a := &config.Account{
		Name:      name,
		Address:   addr,
		KeyRef:    ref,
		IsDefault: len(m.accounts) == 0,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	m.accounts[name] = a
	return a, m.persist()
}

// Get returns an account by name or address.
func (m *Manager) Get(nameOrAddress string) (*config.Account, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	if a, ok := m.accounts[nameOrAddress]; ok {
		return a, nil
	}
	for _, a := range m.accounts {
		if strings.EqualFold(a.Address, nameOrAddress) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, nameOrAddress)
}

// List returns all accounts sorted by name.
func (m *Manager) List() ([]config.Account, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	out := make([]config.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Remove deletes an account and its key.
func (m *Manager) Remove(name string) error {
	a, err := m.Get(name)
	if err != nil {
		return err
	}
	if err := m.keys.Delete(a.KeyRef); err != nil {
		return err
	}
	delete(m.accounts, a.Name)
	return m.persist()
}

// SetDefault marks an account as the default sender.
func (m *Manager) SetDefault(name string) error {
	target, err := m.Get(name)
	if err != nil {
		return err
	}
	for _, a := range m.accounts {
		a.IsDefault = a.Name == target.Name
	}
	return m.persist()
}

// Default returns the default account. A single account is the default
// even when not marked.
func (m *Manager) Default() (*config.Account, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	for _, a := range m.accounts {
		if a.IsDefault {
			return a, nil
		}
	}
	if len(m.accounts) == 1 {
		for _, a := range m.accounts {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: no default account", ErrAccountNotFound)
}

// SignerFor returns a signer for the account with the given name or address.
func (m *Manager) SignerFor(nameOrAddress string) (*Signer, error) {
	a, err := m.Get(nameOrAddress)
	if err != nil {
		return nil, err
	}
	return NewSigner(*a, m.keys), nil
}

func (m *Manager) load() error {
	if m.loaded {
		return nil
	}
	af, err := m.store.LoadAccounts()
	if err != nil {
		return err
	}
	for i := range af.Accounts {
		a := af.Accounts[i]
		m.accounts[a.Name] = &a
	}
	m.loaded = true
	return nil
}

func (m *Manager) persist() error {
	af := &config.AccountsFile{Accounts: make([]config.Account, 0, len(m.accounts))}
	for _, a := range m.accounts {
		af.Accounts = append(af.Accounts, *a)
	}
	sort.Slice(af.Accounts, func(i, j int) bool { return af.Accounts[i].Name < af.Accounts[j].Name })
	return m.store.SaveAccounts(af)
}
