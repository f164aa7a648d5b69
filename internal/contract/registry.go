// Package contract keeps the contract watch list, the built-in ABIs and the
// transaction sender used by the wizards.
package contract

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Mohsinsiddi/w3wizard/internal/config"
)

// Registry errors.
var (
	ErrContractNotFound = errors.New("contract not found")
	ErrContractExists   = errors.New("contract already in watch list")
)

// Store persists the watch list. *config.Config satisfies it.
type Store interface {
	LoadContracts() (*config.ContractsFile, error)
	SaveContracts(*config.ContractsFile) error
}

// Registry is the contract watch list, keyed by lowercased address.
type Registry struct {
	store     Store
	contracts map[string]*config.ContractEntry
}

// NewRegistry creates an empty registry over store. Call Load to read it.
func NewRegistry(store Store) *Registry {
	return &Registry{
		store:     store,
		contracts: make(map[string]*config.ContractEntry),
	}
}

// Load reads stored contracts.
func (r *Registry) Load() error {
	cf, err := r.store.LoadContracts()
	if err != nil {
		return err
	}
	for i := range cf.Contracts {
		e := cf.Contracts[i]
		r.contracts[key(e.Address)] = &e
	}
	return nil
}

// Save writes all contracts, ordered by name.
func (r *Registry) Save() error {
	return r.store.SaveContracts(&config.ContractsFile{Contracts: r.All()})
}

// Has reports whether address is already on the watch list.
func (r *Registry) Has(address string) bool {
	_, ok := r.contracts[key(address)]
	return ok
}

// Add registers a new entry. Addresses are unique.
func (r *Registry) Add(e config.ContractEntry) error {
	if r.Has(e.Address) {
		return fmt.Errorf("%w: %s", ErrContractExists, e.Address)
	}
	r.contracts[key(e.Address)] = &e
	return nil
}

// Get returns a contract by address or by case-insensitive name.
func (r *Registry) Get(addressOrName string) (*config.ContractEntry, error) {
	if e, ok := r.contracts[key(addressOrName)]; ok {
		return e, nil
	}
	for _, e := range r.contracts {
		if strings.EqualFold(e.Name, addressOrName) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrContractNotFound, addressOrName)
}

// All returns all contracts sorted by name, then address.
func (r *Registry) All() []config.ContractEntry {
	out := make([]config.ContractEntry, 0, len(r.contracts))
	for _, e := range r.contracts {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return key(out[i].Address) < key(out[j].Address)
	})
	return out
}

// Remove deletes a contract by address or name.
func (r *Registry) Remove(addressOrName string) error {
	e, err := r.Get(addressOrName)
	if err != nil {
		return err
	}
	delete(r.contracts, key(e.Address))
	return nil
}

func key(address string) string {
	return strings.ToLower(address)
}
