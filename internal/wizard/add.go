package wizard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/Mohsinsiddi/w3wizard/internal/abi"
	"github.com/Mohsinsiddi/w3wizard/internal/config"
	"github.com/Mohsinsiddi/w3wizard/internal/contract"
	"github.com/Mohsinsiddi/w3wizard/internal/form"
	"github.com/Mohsinsiddi/w3wizard/internal/gas"
)

// Add-contract steps.
const (
	AddType = iota
	AddDetails
)

var addressType, _ = abi.ParseType("address")

// AddContract puts an existing contract on the watch list. Step one picks
// the ABI type, step two takes the details.
type AddContract struct {
	ctl       *Controller
	registry  Registry
	validator *abi.Validator
	notifier  Notifier
	logger    hclog.Logger

	kind        string
	address     string
	name        string
	description string
	tags        string

	abiText string
	doc     *abi.Document
	abiErr  error

	lastErr error
}

// NewAddContract opens the add-contract wizard with a custom ABI selected.
func NewAddContract(d Deps) *AddContract {
	w := &AddContract{
		ctl:       NewController([]string{"ABI type", "Details"}, nil),
		registry:  d.Registry,
		validator: d.validator(),
		notifier:  d.Notifier,
		logger:    d.logger("add"),
		kind:      contract.KindCustom,
		abiErr:    ErrRequired,
	}
	return w
}

// Kinds lists the selectable ABI types: the built-ins, then custom.
func Kinds() []string {
	var out []string
	for _, b := range contract.AllBuiltins() {
		out = append(out, b.ID)
	}
	return append(out, contract.KindCustom)
}

func (w *AddContract) builtin() bool { return w.kind != contract.KindCustom }

func (w *AddContract) addressErr() error {
	if strings.TrimSpace(w.address) == "" {
		return ErrRequired
	}
	if _, err := form.Coerce(addressType, w.address); err != nil {
		return err
	}
	if w.registry != nil && w.registry.Has(w.address) {
		return ErrDuplicateContract
	}
	return nil
}

func (w *AddContract) nameErr() error {
	if strings.TrimSpace(w.name) == "" {
		return ErrRequired
	}
	return nil
}

// Err collects the errors that block Submit.
func (w *AddContract) Err() error {
	var result *multierror.Error
	if err := w.addressErr(); err != nil {
		result = multierror.Append(result, fmt.Errorf("address: %w", err))
	}
	if err := w.nameErr(); err != nil {
		result = multierror.Append(result, fmt.Errorf("name: %w", err))
	}
	if w.abiErr != nil {
		result = multierror.Append(result, fmt.Errorf("abi: %w", w.abiErr))
	}
	return result.ErrorOrNil()
}

// Valid reports whether the entry can be added.
func (w *AddContract) Valid() bool { return w.Err() == nil }

// Set implements Wizard. Nothing here needs a gas estimate.
func (w *AddContract) Set(key, value string) (bool, error) {
	switch key {
	case KeyKind:
		return false, w.setKind(value)
	case KeyAddress:
		w.address = strings.TrimSpace(value)
	case KeyName:
		w.name = value
	case KeyDescription:
		w.description = value
	case KeyTags:
		w.tags = value
	case KeyABI:
		if w.builtin() {
			return false, fmt.Errorf("%w: %s", ErrReadOnly, key)
		}
		w.setABI(value)
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	return false, nil
}

func (w *AddContract) setKind(kind string) error {
	if kind == contract.KindCustom {
		if w.builtin() {
			w.kind = kind
			w.setABI("")
		}
		return nil
	}
	b, ok := contract.GetBuiltin(kind)
	if !ok {
		return fmt.Errorf("%w: ABI type %q", ErrUnknownOption, kind)
	}
	w.kind = b.ID
	w.setABI(b.ABIText)
	return nil
}

func (w *AddContract) setABI(text string) {
	w.abiText = text
	if strings.TrimSpace(text) == "" {
		w.doc, w.abiErr = nil, ErrRequired
		return
	}
	w.doc, w.abiErr = w.validator.Validate(text)
}

// Next implements Wizard.
func (w *AddContract) Next() error { return w.ctl.Next() }

// Prev implements Wizard.
func (w *AddContract) Prev() { w.ctl.Prev() }

// Tags splits the comma-separated tag list.
func (w *AddContract) Tags() []string {
	var out []string
	for _, t := range strings.Split(w.tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// View implements Wizard.
func (w *AddContract) View() View {
	v := View{
		Title:     "Add contract",
		Steps:     w.ctl.Titles(),
		Step:      w.ctl.Step(),
		Err:       w.lastErr,
		CanSubmit: w.Valid(),
	}
	switch w.ctl.Step() {
	case AddType:
		v.Fields = []FieldView{{Key: KeyKind, Label: "ABI type", Value: w.kind, Kind: FieldSelect, Options: Kinds()}}
		v.CanNext = true
	case AddDetails:
		v.Fields = []FieldView{
			{Key: KeyAddress, Label: "Address", Value: w.address, Hint: "address", Err: w.addressErr()},
			{Key: KeyName, Label: "Name", Value: w.name, Err: w.nameErr()},
			{Key: KeyDescription, Label: "Description", Value: w.description},
			{Key: KeyTags, Label: "Tags", Value: w.tags, Hint: "comma separated"},
			{Key: KeyABI, Label: "ABI", Value: w.abiText, Err: w.abiErr, ReadOnly: w.builtin(), Kind: FieldMultiline},
		}
	}
	return v
}

// EstimateRequest implements Wizard. Adding a contract sends no
// transaction, so the request is never ready.
func (w *AddContract) EstimateRequest() gas.Request { return gas.Request{} }

// Estimate implements Wizard. It never calls the node.
func (w *AddContract) Estimate(context.Context, gas.Request) (gas.State, error) {
	return gas.State{}, gas.ErrNotReady
}

// Entry is the watch-list entry the wizard would add.
func (w *AddContract) Entry() config.ContractEntry {
	e := config.ContractEntry{
		Address:     w.address,
		Name:        strings.TrimSpace(w.name),
		Description: w.description,
		Tags:        w.Tags(),
		Kind:        w.kind,
		AddedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	if w.doc != nil {
		e.ABI = w.doc.Entries
	}
	if common.IsHexAddress(w.address) {
		e.Address = common.HexToAddress(w.address).Hex()
	}
	return e
}

// Submit adds the entry to the registry and saves it. It returns the
// contract address.
func (w *AddContract) Submit(context.Context) (string, error) {
	if !w.Valid() {
		return "", ErrNotReady
	}
	e := w.Entry()
	err := w.registry.Add(e)
	if err == nil {
		err = w.registry.Save()
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
		w.lastErr = err
		if w.notifier != nil {
			w.notifier.Notify(err)
		}
		w.logger.Error("adding contract failed", "error", err)
		return "", err
	}
	w.lastErr = nil
	w.logger.Info("contract added", "address", e.Address, "name", e.Name, "kind", e.Kind)
	return e.Address, nil
}
